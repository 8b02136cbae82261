package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/GoPolymarket/polycreds/internal/clob"
	"github.com/GoPolymarket/polycreds/internal/model"
	"github.com/GoPolymarket/polycreds/internal/pkg/apperrors"
	"github.com/GoPolymarket/polycreds/internal/pkg/logger"
	"github.com/GoPolymarket/polycreds/internal/pkg/metrics"
	"github.com/GoPolymarket/polycreds/internal/signer"
	"github.com/GoPolymarket/polymarket-go-sdk"
	"github.com/GoPolymarket/polymarket-go-sdk/pkg/auth"
	"github.com/GoPolymarket/polymarket-go-sdk/pkg/clob/clobtypes"
	"github.com/ethereum/go-ethereum/common"
)

// KeyLister is the part of the exchange key surface every session must expose.
type KeyLister interface {
	ListAPIKeys(ctx context.Context) (any, error)
}

// Key-minting capabilities of the session's SDK CLOB client, tried in order by
// DeriveCreds.
type keyCreateOrDeriver interface {
	CreateOrDeriveAPIKey(ctx context.Context) (clobtypes.APIKeyResponse, error)
}

type keyCreator interface {
	CreateAPIKey(ctx context.Context) (clobtypes.APIKeyResponse, error)
}

type deriveFunc func(ctx context.Context) (clobtypes.APIKeyResponse, error)

var deriveCapabilities = []func(keys any) (deriveFunc, bool){
	func(keys any) (deriveFunc, bool) {
		c, ok := keys.(keyCreateOrDeriver)
		if !ok {
			return nil, false
		}
		return c.CreateOrDeriveAPIKey, true
	},
	func(keys any) (deriveFunc, bool) {
		c, ok := keys.(keyCreator)
		if !ok {
			return nil, false
		}
		return c.CreateAPIKey, true
	},
}

// keyMinter returns the first capability keys exposes, or nil.
func keyMinter(keys any) deriveFunc {
	if keys == nil {
		return nil
	}
	for _, capability := range deriveCapabilities {
		if fn, ok := capability(keys); ok {
			return fn
		}
	}
	return nil
}

// ExchangeSession is one authenticated binding of signer, signature type and
// credential. It is discarded whenever its context key goes stale.
type ExchangeSession struct {
	// SDK mints keys (L1) and carries the signature type and funder binding.
	SDK *polymarket.Client
	// API lists keys over the raw transport; the payload is loosely typed.
	API           KeyLister
	ContextKey    string
	SignatureType int
	Funder        string
	Credential    *model.ApiCredential
}

func (s *ExchangeSession) keyClient() any {
	if s == nil || s.SDK == nil || s.SDK.CLOB == nil {
		return nil
	}
	return s.SDK.CLOB
}

// SessionFactory builds a session; cred is nil when no credential exists yet.
type SessionFactory func(id model.WalletIdentity, cred *model.ApiCredential) (*ExchangeSession, error)

// SessionConfig is what every session shares regardless of identity.
type SessionConfig struct {
	// Signer is the EOA's L1 signer, already bound to the configured chain ID.
	Signer *auth.PrivateKeySigner
	// Transport supplies the configured CLOB base URL and HTTP client.
	Transport *clob.Client
}

// NewSessionFactory binds the SDK client and the raw key-list adapter to one
// identity. The SDK talks to the configured CLOB URL with the configured chain
// ID, signature type and (outside EOA mode) funder.
func NewSessionFactory(cfg SessionConfig) SessionFactory {
	return func(id model.WalletIdentity, cred *model.ApiCredential) (*ExchangeSession, error) {
		if cfg.Signer == nil || cfg.Transport == nil {
			return nil, apperrors.NewConfiguration("session factory needs a signer and a CLOB transport", nil)
		}

		sdkCfg := polymarket.DefaultConfig()
		sdkCfg.BaseURLs.CLOB = cfg.Transport.BaseURL()
		sdkCfg.HTTPClient = cfg.Transport.HTTPClient()
		sdkCfg.UseServerTime = true
		sdk := polymarket.NewClient(polymarket.WithConfig(sdkCfg))

		var apiKey *auth.APIKey
		if cred != nil {
			apiKey = &auth.APIKey{
				Key:        cred.ApiKey,
				Secret:     cred.Secret,
				Passphrase: cred.Passphrase,
			}
		}
		// the signer is bound even without a credential so L1 minting works
		sdk = sdk.WithAuth(cfg.Signer, apiKey)
		sdk.CLOB = sdk.CLOB.WithSignatureType(auth.SignatureType(id.SignatureType))

		sess := &ExchangeSession{
			SDK:           sdk,
			API:           clob.NewAuthAPI(cfg.Transport, id.PolyAddress, cred),
			ContextKey:    id.ContextKey,
			SignatureType: id.SignatureType,
			Credential:    cred,
		}
		if id.SignatureType != int(auth.SignatureEOA) {
			sdk.CLOB = sdk.CLOB.WithFunder(common.HexToAddress(id.FunderAddress))
			sess.Funder = id.FunderAddress
		}
		return sess, nil
	}
}

// ExchangeClient memoizes the session and runs the derive and validate flows.
type ExchangeClient struct {
	identity *IdentityResolver
	store    *CredentialStore
	gate     *DeriveGate
	factory  SessionFactory
	audit    *AuditService

	mu       sync.Mutex
	session  *ExchangeSession
	builtFor string
}

func NewExchangeClient(identity *IdentityResolver, store *CredentialStore, gate *DeriveGate, factory SessionFactory, audit *AuditService) *ExchangeClient {
	return &ExchangeClient{
		identity: identity,
		store:    store,
		gate:     gate,
		factory:  factory,
		audit:    audit,
	}
}

// GetClient returns the memoized session, rebuilding it when the context key
// changed since the last build.
func (c *ExchangeClient) GetClient(ctx context.Context) (*ExchangeSession, error) {
	id := c.identity.Identity()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil && c.builtFor == id.ContextKey {
		return c.session, nil
	}

	var credPtr *model.ApiCredential
	if cred, ok := c.store.Active(id.ContextKey); ok {
		if _, err := signer.DecodeSecret(cred.Secret); err != nil {
			return nil, apperrors.NewConfiguration("api secret for "+id.ContextKey+" is unusable", err)
		}
		credPtr = &cred
	}

	sess, err := c.factory(id, credPtr)
	if err != nil {
		return nil, err
	}
	if c.session != nil {
		logger.Info("exchange session rebuilt", "from", c.builtFor, "to", id.ContextKey)
	}
	c.session = sess
	c.builtFor = id.ContextKey
	metrics.SessionBuilds.Inc()
	return sess, nil
}

// Invalidate drops the memoized session.
func (c *ExchangeClient) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = nil
	c.builtFor = ""
}

// DeriveCreds mints or recovers an L2 credential for the current context.
func (c *ExchangeClient) DeriveCreds(ctx context.Context, reason string) (model.ApiCredential, error) {
	id := c.identity.Identity()
	log := logger.With("context_key", id.ContextKey, "reason", reason)

	if err := c.gate.Acquire(); err != nil {
		metrics.DeriveAttempts.WithLabelValues(OutcomeRejected).Inc()
		c.audit.Record("derive", id.ContextKey, OutcomeRejected, err.Error())
		log.Warn("derive rejected by gate", "error", err.Error())
		return model.ApiCredential{}, err
	}

	sess, err := c.keySession(ctx, id)
	if err != nil {
		c.recordDerive(id.ContextKey, OutcomeError, err.Error())
		return model.ApiCredential{}, err
	}

	derive := keyMinter(sess.keyClient())
	if derive == nil {
		err := apperrors.New(apperrors.ErrInternal, "exchange session exposes no key creation method", nil)
		c.recordDerive(id.ContextKey, OutcomeError, err.Message)
		return model.ApiCredential{}, err
	}

	resp, err := derive(ctx)
	if err != nil {
		if IsPermanentRefusal(err) {
			until := c.gate.Block()
			c.recordDerive(id.ContextKey, OutcomeRefused, err.Error())
			log.Error("exchange refused key creation; derivation blocked", "blocked_until", until.Format(time.RFC3339))
			return model.ApiCredential{}, apperrors.New(apperrors.ErrPermanentRefusal,
				fmt.Sprintf("exchange refused API key creation for %s; derivation blocked until %s",
					id.SignerAddress, until.UTC().Format(time.RFC3339)), err)
		}
		c.recordDerive(id.ContextKey, OutcomeError, err.Error())
		log.Warn("derive failed", "error", err.Error())
		return model.ApiCredential{}, apperrors.New(apperrors.ErrUpstream, "derive api key failed", err)
	}

	cred, missing := credentialFromResponse(resp)
	if len(missing) > 0 {
		msg := "exchange response missing " + strings.Join(missing, ", ")
		c.recordDerive(id.ContextKey, OutcomeMalformed, msg)
		log.Warn("derive returned incomplete credential", "missing", missing)
		return model.ApiCredential{}, apperrors.New(apperrors.ErrMalformedUpstream, msg, nil)
	}
	cred.Secret = signer.NormalizeToBase64(cred.Secret)
	if _, err := signer.DecodeSecret(cred.Secret); err != nil {
		c.recordDerive(id.ContextKey, OutcomeMalformed, err.Error())
		return model.ApiCredential{}, apperrors.New(apperrors.ErrMalformedUpstream, "exchange returned an undecodable secret", err)
	}
	cred.DerivedAt = time.Now().UTC()
	cred.Source = model.SourceDerived

	c.store.SetDerived(id.ContextKey, cred)
	c.Invalidate()

	c.recordDerive(id.ContextKey, OutcomeOK, "api_key="+logger.Mask(cred.ApiKey))
	log.Info("api credential derived",
		"api_key", logger.Mask(cred.ApiKey),
		"secret", logger.Mask(cred.Secret),
		"passphrase", logger.Mask(cred.Passphrase))
	return cred, nil
}

// ValidateCreds lists the account's keys with the active credential. A rejected
// credential is reported in the result, not as an error.
func (c *ExchangeClient) ValidateCreds(ctx context.Context) (model.ValidationResult, error) {
	sess, err := c.GetClient(ctx)
	if err != nil {
		return model.ValidationResult{}, err
	}
	res := model.ValidationResult{ApiKeys: []string{}}
	if sess.Credential == nil {
		res.Error = "no API credential configured or derived"
		return res, nil
	}
	res.ActiveApiKey = sess.Credential.ApiKey

	payload, err := sess.API.ListAPIKeys(ctx)
	if err != nil {
		if IsUnauthorizedErr(err) {
			res.Unauthorized = true
			res.Error = err.Error()
			c.audit.Record("validate", sess.ContextKey, OutcomeRejected, "unauthorized")
			return res, nil
		}
		c.audit.Record("validate", sess.ContextKey, OutcomeError, err.Error())
		return res, apperrors.New(apperrors.ErrUpstream, "list api keys failed", err)
	}

	if PayloadUnauthorized(payload) {
		res.Unauthorized = true
		res.Error = PayloadError(payload)
		if res.Error == "" {
			res.Error = "unauthorized"
		}
		c.audit.Record("validate", sess.ContextKey, OutcomeRejected, "unauthorized payload")
		return res, nil
	}
	if msg := PayloadError(payload); msg != "" {
		res.Error = msg
		c.audit.Record("validate", sess.ContextKey, OutcomeError, msg)
		return res, nil
	}

	if keys := ExtractAPIKeys(payload); keys != nil {
		res.ApiKeys = keys
	}
	for _, k := range res.ApiKeys {
		if k == res.ActiveApiKey {
			res.ActiveListed = true
			break
		}
	}
	res.OK = true
	c.audit.Record("validate", sess.ContextKey, OutcomeOK, fmt.Sprintf("%d keys", len(res.ApiKeys)))
	return res, nil
}

// keySession returns the session used for L1 minting. A credential-less
// session is built when the memoized one cannot be, so a broken configured
// secret does not prevent recovering a working one.
func (c *ExchangeClient) keySession(ctx context.Context, id model.WalletIdentity) (*ExchangeSession, error) {
	sess, err := c.GetClient(ctx)
	if err == nil {
		return sess, nil
	}
	if !apperrors.Is(err, apperrors.ErrConfiguration) {
		return nil, err
	}
	bare, buildErr := c.factory(id, nil)
	if buildErr != nil {
		return nil, errors.Join(err, buildErr)
	}
	return bare, nil
}

func (c *ExchangeClient) recordDerive(contextKey, outcome, detail string) {
	metrics.DeriveAttempts.WithLabelValues(outcome).Inc()
	c.audit.Record("derive", contextKey, outcome, detail)
}

func credentialFromResponse(resp clobtypes.APIKeyResponse) (model.ApiCredential, []string) {
	cred := model.ApiCredential{
		ApiKey:     strings.TrimSpace(resp.APIKey),
		Secret:     strings.TrimSpace(resp.Secret),
		Passphrase: strings.TrimSpace(resp.Passphrase),
	}
	var missing []string
	if cred.ApiKey == "" {
		missing = append(missing, "apiKey")
	}
	if cred.Secret == "" {
		missing = append(missing, "secret")
	}
	if cred.Passphrase == "" {
		missing = append(missing, "passphrase")
	}
	return cred, missing
}
