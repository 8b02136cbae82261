package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/GoPolymarket/polycreds/internal/clob"
	"github.com/GoPolymarket/polycreds/internal/config"
	"github.com/GoPolymarket/polycreds/internal/model"
	"github.com/GoPolymarket/polycreds/internal/pkg/apperrors"
	"github.com/GoPolymarket/polymarket-go-sdk/pkg/auth"
	"github.com/GoPolymarket/polymarket-go-sdk/pkg/clob/clobtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mintedKeyBody = `{"apiKey":"sdk-key","secret":"c2VjcmV0LWtleS1mb3ItdGVzdHMtMTIzNDU2Nzg5MA","passphrase":"sdk-pass"}`

type seenRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
}

// fakeCLOB serves the endpoints reached by the SDK client and the raw
// transport, and records every request.
type fakeCLOB struct {
	*httptest.Server
	mu     sync.Mutex
	seen   []seenRequest
	create cannedReply
	derive cannedReply
}

func newFakeCLOB(t *testing.T, create, derive cannedReply) *fakeCLOB {
	t.Helper()
	f := &fakeCLOB{create: create, derive: derive}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.seen = append(f.seen, seenRequest{r.Method, r.URL.Path, r.URL.Query(), r.Header.Clone()})
		f.mu.Unlock()

		reply := func(c cannedReply) {
			w.WriteHeader(c.status)
			_, _ = w.Write([]byte(c.body))
		}
		switch r.URL.Path {
		case "/time":
			reply(cannedReply{http.StatusOK, "1700000000"})
		case clob.EndpointCreateApiKey:
			reply(f.create)
		case clob.EndpointDeriveApiKey:
			reply(f.derive)
		case clob.EndpointBalanceAllowance:
			reply(cannedReply{http.StatusOK, `{"balance":"2500000"}`})
		case clob.EndpointGetApiKeys:
			reply(cannedReply{http.StatusOK, `{"apiKeys":["cfg-key"]}`})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeCLOB) Requests(path string) []seenRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []seenRequest
	for _, r := range f.seen {
		if path == "" || r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeCLOB) Paths() []string {
	var out []string
	for _, r := range f.Requests("") {
		out = append(out, r.Method+" "+r.Path)
	}
	return out
}

func configFor(t *testing.T, fc *fakeCLOB, withCreds bool) (*config.Config, string) {
	t.Helper()
	cfg, signerAddr := testConfig(t)
	cfg.Polymarket.ClobURL = fc.URL
	if !withCreds {
		cfg.Polymarket.ApiKey = ""
		cfg.Polymarket.ApiSecret = ""
		cfg.Polymarket.ApiPassphrase = ""
	}
	return cfg, signerAddr
}

func TestDeriveCredsMintsThroughSDKClient(t *testing.T) {
	fc := newFakeCLOB(t,
		cannedReply{http.StatusOK, mintedKeyBody},
		cannedReply{http.StatusBadRequest, `{"error":"unused"}`})
	cfg, signerAddr := configFor(t, fc, false)

	m, err := NewAuthManager(cfg, nil)
	require.NoError(t, err)
	ctx := context.Background()

	cred, err := m.DeriveCreds(ctx, "startup")
	require.NoError(t, err)
	assert.Equal(t, "sdk-key", cred.ApiKey)
	assert.Equal(t, testSecret, cred.Secret)
	assert.Equal(t, model.SourceDerived, cred.Source)

	assert.Equal(t, []string{"POST " + clob.EndpointCreateApiKey}, fc.Paths())
	req := fc.Requests(clob.EndpointCreateApiKey)[0]
	assert.Equal(t, signerAddr, req.Header.Get(auth.HeaderPolyAddress))
	assert.Equal(t, "0", req.Header.Get(auth.HeaderPolyNonce))
	assert.NotEmpty(t, req.Header.Get(auth.HeaderPolyTimestamp))
	assert.Len(t, req.Header.Get(auth.HeaderPolySignature), 132)

	sess, err := m.GetClient(ctx)
	require.NoError(t, err)
	require.NotNil(t, sess.Credential)
	assert.Equal(t, "sdk-key", sess.Credential.ApiKey)
}

func TestDeriveCredsFallsBackToDeriveThroughSDKClient(t *testing.T) {
	fc := newFakeCLOB(t,
		cannedReply{http.StatusBadRequest, `{"error":"key already exists"}`},
		cannedReply{http.StatusOK, mintedKeyBody})
	cfg, _ := configFor(t, fc, false)

	m, err := NewAuthManager(cfg, nil)
	require.NoError(t, err)

	cred, err := m.DeriveCreds(context.Background(), "startup")
	require.NoError(t, err)
	assert.Equal(t, "sdk-key", cred.ApiKey)
	assert.Equal(t, []string{
		"POST " + clob.EndpointCreateApiKey,
		"GET " + clob.EndpointDeriveApiKey,
	}, fc.Paths(), "L1 calls never fetch server time")
}

func TestDeriveCredsRefusalThroughSDKClientBlocks(t *testing.T) {
	refusal := cannedReply{http.StatusBadRequest, `{"error":"This account cannot create API keys"}`}
	fc := newFakeCLOB(t, refusal, refusal)
	cfg, _ := configFor(t, fc, false)

	m, err := NewAuthManager(cfg, nil)
	require.NoError(t, err)

	_, err = m.DeriveCreds(context.Background(), "startup")
	assert.True(t, apperrors.Is(err, apperrors.ErrPermanentRefusal))
	assert.True(t, m.GateState().Blocked)
}

func TestSessionUsesConfiguredTransportAndSignatureType(t *testing.T) {
	cases := []struct {
		name    string
		funder  string
		sigType string
	}{
		{"regular", "", "0"},
		{"safe_proxy", addrB, "2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fc := newFakeCLOB(t, cannedReply{http.StatusOK, mintedKeyBody}, cannedReply{http.StatusOK, mintedKeyBody})
			cfg, signerAddr := configFor(t, fc, true)
			cfg.Polymarket.FunderAddress = tc.funder

			m, err := NewAuthManager(cfg, nil)
			require.NoError(t, err)
			ctx := context.Background()

			sess, err := m.GetClient(ctx)
			require.NoError(t, err)
			assert.Equal(t, fc.URL, sess.SDK.Config.BaseURLs.CLOB)
			if tc.funder != "" {
				assert.Equal(t, hexAddr(tc.funder), sess.Funder)
			} else {
				assert.Empty(t, sess.Funder)
			}

			resp, err := sess.SDK.CLOB.BalanceAllowance(ctx, &clobtypes.BalanceAllowanceRequest{AssetType: clobtypes.AssetTypeCollateral})
			require.NoError(t, err)
			assert.Equal(t, "2500000", resp.Balance)

			reqs := fc.Requests(clob.EndpointBalanceAllowance)
			require.Len(t, reqs, 1)
			assert.Equal(t, tc.sigType, reqs[0].Query.Get("signature_type"))
			assert.Equal(t, signerAddr, reqs[0].Header.Get(auth.HeaderPolyAddress))
			assert.Equal(t, "cfg-key", reqs[0].Header.Get(auth.HeaderPolyAPIKey))
			assert.Equal(t, "1700000000", reqs[0].Header.Get(auth.HeaderPolyTimestamp), "L2 calls sign with server time")
			assert.NotEmpty(t, fc.Requests("/time"))

			res, err := m.ValidateCreds(ctx)
			require.NoError(t, err)
			assert.True(t, res.OK)
			assert.Len(t, fc.Requests(clob.EndpointGetApiKeys), 1)
		})
	}
}

func TestSessionFactoryRequiresSignerAndTransport(t *testing.T) {
	_, err := NewSessionFactory(SessionConfig{})(model.WalletIdentity{}, nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrConfiguration))
}
