package clob

import (
	"net/http"
	"strconv"

	"github.com/GoPolymarket/polycreds/internal/model"
	"github.com/GoPolymarket/polycreds/internal/signer"
)

// Polymarket uses underscores, not hyphens, in its auth header names.
const (
	HeaderAddress    = "POLY_ADDRESS"
	HeaderSignature  = "POLY_SIGNATURE"
	HeaderTimestamp  = "POLY_TIMESTAMP"
	HeaderApiKey     = "POLY_API_KEY"
	HeaderPassphrase = "POLY_PASSPHRASE"
)

// L2Headers signs one request with the credential's secret. polyAddress must be
// the signer (EOA) address in every custody mode.
func L2Headers(polyAddress string, cred model.ApiCredential, timestamp int64, method, path string, body []byte) (http.Header, error) {
	key, err := signer.DecodeSecret(cred.Secret)
	if err != nil {
		return nil, err
	}
	h := http.Header{}
	setRaw(h, HeaderAddress, polyAddress)
	setRaw(h, HeaderApiKey, cred.ApiKey)
	setRaw(h, HeaderPassphrase, cred.Passphrase)
	setRaw(h, HeaderTimestamp, strconv.FormatInt(timestamp, 10))
	setRaw(h, HeaderSignature, signer.Sign(key, timestamp, method, path, body))
	return h, nil
}

// setRaw bypasses canonicalization so POLY_API_KEY is not rewritten to Poly_api_key.
func setRaw(h http.Header, key, value string) {
	h[key] = []string{value}
}
