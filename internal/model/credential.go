package model

import "time"

type AuthMode string

const (
	AuthModeRegular   AuthMode = "regular"
	AuthModeSafeProxy AuthMode = "safe_proxy"
)

type CredentialSource string

const (
	SourceConfig  CredentialSource = "config"
	SourceDerived CredentialSource = "derived"
)

// WalletIdentity is resolved from static config on demand and never persisted.
type WalletIdentity struct {
	SignerAddress       string   `json:"signer_address"`
	FunderAddress       string   `json:"funder_address"`
	SignatureType       int      `json:"signature_type"`
	AuthMode            AuthMode `json:"auth_mode"`
	PolyAddress         string   `json:"poly_address"`
	BalanceQueryAddress string   `json:"balance_query_address"`
	ContextKey          string   `json:"context_key"`
}

// ApiCredential is an L2 credential triad. Secret is canonical padded base64.
type ApiCredential struct {
	ApiKey     string           `json:"api_key"`
	Secret     string           `json:"-"`
	Passphrase string           `json:"-"`
	Source     CredentialSource `json:"source"`
	DerivedAt  time.Time        `json:"derived_at,omitempty"`
}

// DeriveGateState is mutated only by derive attempts.
type DeriveGateState struct {
	BlockedUntil     time.Time `json:"blocked_until"`
	LastAttempt      time.Time `json:"last_attempt"`
	WindowStart      time.Time `json:"window_start"`
	AttemptsInWindow int       `json:"attempts_in_window"`
}

type ValidationResult struct {
	OK           bool     `json:"ok"`
	Unauthorized bool     `json:"unauthorized"`
	ApiKeys      []string `json:"api_keys"`
	ActiveApiKey string   `json:"active_api_key"`
	ActiveListed bool     `json:"active_listed"`
	Error        string   `json:"error,omitempty"`
}

type BalanceResult struct {
	USDC      float64 `json:"usdc"`
	Raw       string  `json:"raw,omitempty"`
	Address   string  `json:"address"`
	Candidate string  `json:"candidate,omitempty"`
	Status    int     `json:"status,omitempty"`
	Error     string  `json:"error,omitempty"`
}

type SelfTestReport struct {
	OK      bool     `json:"ok"`
	Details []string `json:"details"`
}
