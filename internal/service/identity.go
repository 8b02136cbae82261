package service

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/GoPolymarket/polycreds/internal/model"
	"github.com/GoPolymarket/polycreds/internal/pkg/apperrors"
	"github.com/GoPolymarket/polymarket-go-sdk/pkg/auth"
	"github.com/ethereum/go-ethereum/common"
)

// IdentityResolver 根据静态配置推导签名身份 (signer / funder / 签名类型 / context key)
type IdentityResolver struct {
	mu       sync.RWMutex
	signer   string
	funder   string
	override *int
}

// NewIdentityResolver takes the signer address derived from the private key. An
// empty funder means the signer holds the funds.
func NewIdentityResolver(signerAddress, funderAddress string, override *int) (*IdentityResolver, error) {
	if !common.IsHexAddress(signerAddress) {
		return nil, apperrors.NewConfiguration(fmt.Sprintf("invalid signer address %q", signerAddress), nil)
	}
	r := &IdentityResolver{signer: common.HexToAddress(signerAddress).Hex()}
	if err := r.apply(funderAddress, override); err != nil {
		return nil, err
	}
	return r, nil
}

// Reconfigure switches funder and signature type override at runtime. The new
// identity gets a new context key, so the next session build is forced.
func (r *IdentityResolver) Reconfigure(funderAddress string, override *int) error {
	return r.apply(funderAddress, override)
}

func (r *IdentityResolver) apply(funderAddress string, override *int) error {
	funder := strings.TrimSpace(funderAddress)
	if funder != "" {
		if !common.IsHexAddress(funder) {
			return apperrors.NewConfiguration(fmt.Sprintf("invalid funder address %q", funder), nil)
		}
		funder = common.HexToAddress(funder).Hex()
	}
	if override != nil {
		switch auth.SignatureType(*override) {
		case auth.SignatureEOA, auth.SignatureProxy, auth.SignatureGnosisSafe:
		default:
			return apperrors.NewConfiguration(fmt.Sprintf("signature type %d is not one of 0, 1, 2", *override), nil)
		}
		v := *override
		override = &v
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if funder == "" {
		funder = r.signer
	}
	r.funder = funder
	r.override = override
	return nil
}

func (r *IdentityResolver) SignerAddress() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.signer
}

func (r *IdentityResolver) FunderAddress() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.funder
}

func (r *IdentityResolver) AuthMode() model.AuthMode {
	return r.Identity().AuthMode
}

func (r *IdentityResolver) SignatureType() int {
	return r.Identity().SignatureType
}

// PolyAddressHeader is always the signer EOA, even when a Safe holds the funds:
// the exchange verifies L2 signatures against the EOA.
func (r *IdentityResolver) PolyAddressHeader() string {
	return r.SignerAddress()
}

func (r *IdentityResolver) BalanceQueryAddress() string {
	return r.Identity().BalanceQueryAddress
}

func (r *IdentityResolver) ContextKey() string {
	return r.Identity().ContextKey
}

// Identity returns a consistent snapshot of every derived value.
func (r *IdentityResolver) Identity() model.WalletIdentity {
	r.mu.RLock()
	signer, funder, override := r.signer, r.funder, r.override
	r.mu.RUnlock()

	mode := model.AuthModeRegular
	if !strings.EqualFold(signer, funder) {
		mode = model.AuthModeSafeProxy
	}

	sigType := int(auth.SignatureEOA)
	switch {
	case override != nil:
		sigType = *override
	case mode == model.AuthModeSafeProxy:
		sigType = int(auth.SignatureGnosisSafe)
	}

	balanceAddr := signer
	if mode == model.AuthModeSafeProxy {
		balanceAddr = funder
	}

	return model.WalletIdentity{
		SignerAddress:       signer,
		FunderAddress:       funder,
		SignatureType:       sigType,
		AuthMode:            mode,
		PolyAddress:         signer,
		BalanceQueryAddress: balanceAddr,
		ContextKey:          ContextKey(sigType, signer),
	}
}

// ContextKey partitions cached credentials by signature type and POLY_ADDRESS.
func ContextKey(signatureType int, polyAddress string) string {
	return strconv.Itoa(signatureType) + ":" + strings.ToLower(polyAddress)
}
