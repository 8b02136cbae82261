package signer

import (
	"fmt"
	"strings"

	"github.com/GoPolymarket/polymarket-go-sdk/pkg/auth"
)

// NewWalletSigner parses the signer EOA's private key into the SDK's L1
// (EIP-712 ClobAuth) signer bound to chainID. The 0x prefix is optional.
func NewWalletSigner(privateKeyHex string, chainID int64) (*auth.PrivateKeySigner, error) {
	privateKeyHex = strings.TrimSpace(privateKeyHex)
	if strings.TrimPrefix(privateKeyHex, "0x") == "" {
		return nil, fmt.Errorf("private key is required")
	}
	if chainID == 0 {
		chainID = auth.PolygonChainID
	}
	s, err := auth.NewPrivateKeySigner(privateKeyHex, chainID)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return s, nil
}
