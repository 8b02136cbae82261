package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrEmptySecret is returned when a secret decodes to zero bytes.
var ErrEmptySecret = errors.New("api secret decodes to zero bytes")

// NormalizeToBase64 converts a url-safe or sloppy base64 secret into canonical,
// padded standard base64. Padding is derived from the unpadded length; a
// remainder of 1 cannot be padded and is left for the decoder to reject.
func NormalizeToBase64(input string) string {
	s := strings.NewReplacer("-", "+", "_", "/").Replace(strings.TrimSpace(input))

	var b strings.Builder
	b.Grow(len(s) + 2)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '+', c == '/':
			b.WriteByte(c)
		}
	}
	out := b.String()

	switch len(out) % 4 {
	case 2:
		out += "=="
	case 3:
		out += "="
	}
	return out
}

// DecodeSecret normalizes and decodes an API secret into HMAC key bytes.
func DecodeSecret(secret string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(NormalizeToBase64(secret))
	if err != nil {
		return nil, fmt.Errorf("api secret is not valid base64: %w", err)
	}
	if len(key) == 0 {
		return nil, ErrEmptySecret
	}
	return key, nil
}

// Sign builds the L2 request signature:
// base64(HMAC-SHA256(secret, timestamp + METHOD + path [+ body])) with the
// url-safe alphabet and the '=' padding kept.
func Sign(secret []byte, timestamp int64, method, path string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte(strings.ToUpper(method)))
	mac.Write([]byte(path))
	if len(body) > 0 {
		mac.Write(body)
	}
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return strings.NewReplacer("+", "-", "/", "_").Replace(sig)
}
