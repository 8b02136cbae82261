package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/GoPolymarket/polycreds/internal/model"
	"github.com/GoPolymarket/polymarket-go-sdk"
	sdkclob "github.com/GoPolymarket/polymarket-go-sdk/pkg/clob"
	"github.com/GoPolymarket/polymarket-go-sdk/pkg/clob/clobtypes"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

const (
	addrA      = "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	addrB      = "0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"
	testSecret = "c2VjcmV0LWtleS1mb3ItdGVzdHMtMTIzNDU2Nzg5MA=="
)

func hexAddr(s string) string {
	return common.HexToAddress(s).Hex()
}

func intPtr(v int) *int {
	return &v
}

func mustIdentity(t *testing.T, signer, funder string, override *int) *IdentityResolver {
	t.Helper()
	r, err := NewIdentityResolver(signer, funder, override)
	require.NoError(t, err)
	return r
}

func staticCred() model.ApiCredential {
	return model.ApiCredential{ApiKey: "cfg-key", Secret: testSecret, Passphrase: "cfg-pass"}
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// listerAPI only lists keys.
type listerAPI struct {
	list func() (any, error)
}

func (a *listerAPI) ListAPIKeys(ctx context.Context) (any, error) {
	if a.list == nil {
		return []any{}, nil
	}
	return a.list()
}

// keyCLOB is an SDK CLOB client with scripted key minting. Anything else
// panics through the nil embedded interface.
type keyCLOB struct {
	sdkclob.Client
	mu    sync.Mutex
	calls int
	fn    func() (clobtypes.APIKeyResponse, error)
}

func (c *keyCLOB) CreateOrDeriveAPIKey(ctx context.Context) (clobtypes.APIKeyResponse, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.fn()
}

func (c *keyCLOB) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// createOnlyKeys exposes plain create and nothing else.
type createOnlyKeys struct {
	calls int
	fn    func() (clobtypes.APIKeyResponse, error)
}

func (c *createOnlyKeys) CreateAPIKey(ctx context.Context) (clobtypes.APIKeyResponse, error) {
	c.calls++
	return c.fn()
}

// countingFactory hands out sessions around fixed key surfaces and counts builds.
type countingFactory struct {
	mu     sync.Mutex
	api    KeyLister
	keys   sdkclob.Client
	builds int
	last   *model.ApiCredential
}

func (f *countingFactory) Build(id model.WalletIdentity, cred *model.ApiCredential) (*ExchangeSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builds++
	f.last = cred
	sess := &ExchangeSession{
		API:           f.api,
		ContextKey:    id.ContextKey,
		SignatureType: id.SignatureType,
		Credential:    cred,
	}
	if f.keys != nil {
		sess.SDK = &polymarket.Client{CLOB: f.keys}
	}
	return sess, nil
}

func (f *countingFactory) Builds() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.builds
}
