package service

import (
	"context"
	"fmt"
	"time"

	"github.com/GoPolymarket/polycreds/internal/clob"
	"github.com/GoPolymarket/polycreds/internal/config"
	"github.com/GoPolymarket/polycreds/internal/model"
	"github.com/GoPolymarket/polycreds/internal/pkg/apperrors"
	"github.com/GoPolymarket/polycreds/internal/pkg/logger"
	"github.com/GoPolymarket/polycreds/internal/signer"
)

// AuthManager 是凭证管理的唯一入口, 由进程入口构造一次并注入调用方
type AuthManager struct {
	identity *IdentityResolver
	store    *CredentialStore
	gate     *DeriveGate
	exchange *ExchangeClient
	prober   *BalanceProber
	selfTest *SelfTestRunner
	audit    *AuditService
}

type managerOptions struct {
	factory SessionFactory
	client  *clob.Client
}

type ManagerOption func(*managerOptions)

// WithSessionFactory replaces the SDK-backed session factory.
func WithSessionFactory(f SessionFactory) ManagerOption {
	return func(o *managerOptions) { o.factory = f }
}

// WithCLOBClient replaces the transport built from polymarket.clob_url.
func WithCLOBClient(c *clob.Client) ManagerOption {
	return func(o *managerOptions) { o.client = c }
}

func NewAuthManager(cfg *config.Config, audit *AuditService, opts ...ManagerOption) (*AuthManager, error) {
	var o managerOptions
	for _, opt := range opts {
		opt(&o)
	}

	pm := cfg.Polymarket
	wallet, err := signer.NewWalletSigner(pm.PrivateKey, pm.ChainID)
	if err != nil {
		return nil, apperrors.NewConfiguration("cannot build signer from private key", err)
	}

	identity, err := NewIdentityResolver(wallet.Address().Hex(), pm.FunderAddress, pm.SignatureType)
	if err != nil {
		return nil, err
	}

	store := NewCredentialStore(model.ApiCredential{
		ApiKey:     pm.ApiKey,
		Secret:     pm.ApiSecret,
		Passphrase: pm.ApiPassphrase,
	})
	if pm.ApiKey != "" {
		if _, err := signer.DecodeSecret(pm.ApiSecret); err != nil {
			return nil, apperrors.NewConfiguration("configured api secret is unusable", err)
		}
	}

	if o.client == nil {
		o.client = clob.NewClient(pm.ClobURL, time.Duration(pm.HTTPTimeoutMs)*time.Millisecond)
	}
	if o.factory == nil {
		o.factory = NewSessionFactory(SessionConfig{Signer: wallet, Transport: o.client})
	}

	gate := NewDeriveGate(DeriveGateOptionsFromConfig(cfg.DeriveGate))
	exchange := NewExchangeClient(identity, store, gate, o.factory, audit)
	prober := NewBalanceProber(identity, store, o.client)

	m := &AuthManager{
		identity: identity,
		store:    store,
		gate:     gate,
		exchange: exchange,
		prober:   prober,
		selfTest: NewSelfTestRunner(identity, store, exchange, prober),
		audit:    audit,
	}

	id := identity.Identity()
	logger.Info("auth manager ready",
		"signer", id.SignerAddress,
		"funder", id.FunderAddress,
		"mode", id.AuthMode,
		"signature_type", id.SignatureType,
		"api_key", logger.Mask(pm.ApiKey))
	return m, nil
}

func (m *AuthManager) GetClient(ctx context.Context) (*ExchangeSession, error) {
	return m.exchange.GetClient(ctx)
}

func (m *AuthManager) GetAuthMode() model.AuthMode { return m.identity.AuthMode() }

func (m *AuthManager) GetSignatureType() int { return m.identity.SignatureType() }

func (m *AuthManager) GetSignerAddress() string { return m.identity.SignerAddress() }

func (m *AuthManager) GetFunderAddress() string { return m.identity.FunderAddress() }

func (m *AuthManager) GetPolyAddressHeader() string { return m.identity.PolyAddressHeader() }

func (m *AuthManager) GetBalanceQueryAddress() string { return m.identity.BalanceQueryAddress() }

func (m *AuthManager) Identity() model.WalletIdentity { return m.identity.Identity() }

func (m *AuthManager) ValidateCreds(ctx context.Context) (model.ValidationResult, error) {
	return m.exchange.ValidateCreds(ctx)
}

func (m *AuthManager) DeriveCreds(ctx context.Context, reason string) (model.ApiCredential, error) {
	return m.exchange.DeriveCreds(ctx, reason)
}

func (m *AuthManager) GetBalance(ctx context.Context) model.BalanceResult {
	return m.prober.GetBalance(ctx)
}

func (m *AuthManager) SelfTest(ctx context.Context) model.SelfTestReport {
	return m.selfTest.SelfTest(ctx)
}

// Reconfigure switches the funder and signature type override.
func (m *AuthManager) Reconfigure(funderAddress string, signatureType *int) (model.WalletIdentity, error) {
	before := m.identity.ContextKey()
	if err := m.identity.Reconfigure(funderAddress, signatureType); err != nil {
		m.audit.Record("reconfigure", before, OutcomeError, err.Error())
		return model.WalletIdentity{}, err
	}
	id := m.identity.Identity()
	m.audit.Record("reconfigure", id.ContextKey, OutcomeOK, fmt.Sprintf("from %s", before))
	logger.Info("identity reconfigured", "from", before, "to", id.ContextKey, "mode", id.AuthMode)
	return id, nil
}

// GateStatus is the derive gate snapshot plus the contexts holding derived keys.
type GateStatus struct {
	State           model.DeriveGateState `json:"state"`
	Blocked         bool                  `json:"blocked"`
	DerivedContexts []string              `json:"derived_contexts"`
}

func (m *AuthManager) GateState() GateStatus {
	st := m.gate.Snapshot()
	return GateStatus{
		State:           st,
		Blocked:         time.Now().Before(st.BlockedUntil),
		DerivedContexts: m.store.Contexts(),
	}
}

func (m *AuthManager) AuditEvents(ctx context.Context, action string, limit int) ([]*model.AuditEvent, error) {
	return m.audit.List(ctx, action, limit)
}
