package service

import (
	"context"
	"fmt"

	"github.com/GoPolymarket/polycreds/internal/model"
	"github.com/GoPolymarket/polycreds/internal/pkg/logger"
)

type SelfTestRunner struct {
	identity *IdentityResolver
	store    *CredentialStore
	exchange *ExchangeClient
	prober   *BalanceProber
}

func NewSelfTestRunner(identity *IdentityResolver, store *CredentialStore, exchange *ExchangeClient, prober *BalanceProber) *SelfTestRunner {
	return &SelfTestRunner{
		identity: identity,
		store:    store,
		exchange: exchange,
		prober:   prober,
	}
}

// SelfTest runs every diagnostic step and never fails; OK tracks the balance probe.
func (r *SelfTestRunner) SelfTest(ctx context.Context) model.SelfTestReport {
	id := r.identity.Identity()
	details := []string{
		fmt.Sprintf("identity: mode=%s signature_type=%d context=%s", id.AuthMode, id.SignatureType, id.ContextKey),
		fmt.Sprintf("identity: signer=%s funder=%s poly_address=%s balance_address=%s",
			id.SignerAddress, id.FunderAddress, id.PolyAddress, id.BalanceQueryAddress),
	}

	if cred, ok := r.store.Active(id.ContextKey); ok {
		details = append(details, fmt.Sprintf("credential: source=%s api_key=%s secret=%s",
			cred.Source, logger.Mask(cred.ApiKey), logger.Mask(cred.Secret)))
	} else {
		details = append(details, "credential: none configured or derived")
	}

	details = append(details, r.validateLine(ctx))

	bal := r.prober.GetBalance(ctx)
	if bal.Error != "" {
		details = append(details, fmt.Sprintf("balance: failed (status=%d candidate=%s): %s", bal.Status, bal.Candidate, bal.Error))
	} else {
		details = append(details, fmt.Sprintf("balance: %.6f USDC at %s (candidate %s)", bal.USDC, bal.Address, bal.Candidate))
	}

	report := model.SelfTestReport{OK: bal.Error == "", Details: details}
	logger.Info("self-test finished", "ok", report.OK, "context_key", id.ContextKey)
	return report
}

func (r *SelfTestRunner) validateLine(ctx context.Context) (line string) {
	defer func() {
		if rec := recover(); rec != nil {
			line = fmt.Sprintf("validate: panic: %v", rec)
		}
	}()

	res, err := r.exchange.ValidateCreds(ctx)
	switch {
	case err != nil:
		return "validate: error: " + err.Error()
	case res.Unauthorized:
		return "validate: credential unauthorized: " + res.Error
	case !res.OK:
		return "validate: failed: " + res.Error
	default:
		return fmt.Sprintf("validate: ok, %d keys listed, active key listed=%t", len(res.ApiKeys), res.ActiveListed)
	}
}
