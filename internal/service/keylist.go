package service

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/GoPolymarket/polycreds/internal/clob"
	sdkerrors "github.com/GoPolymarket/polymarket-go-sdk/pkg/errors"
)

// The /auth/api-keys payload shape is not a stable contract. Detection is a list
// of extractors and predicates tried in order; add new shapes here.

type keyExtractor func(payload any) ([]string, bool)

var keyExtractors = []keyExtractor{
	stringArrayKeys,
	objectArrayKeys,
	wrappedArrayKeys,
}

var (
	keyObjectFields  = []string{"apiKey", "api_key", "key", "ApiKey"}
	keyWrapperFields = []string{"apiKeys", "api_keys", "keys", "data"}
	errorFields      = []string{"error", "errorMsg", "error_msg", "message"}
	statusFields     = []string{"status", "code", "statusCode", "status_code"}
)

// ExtractAPIKeys returns the key ids found by the first extractor that
// recognizes the payload.
func ExtractAPIKeys(payload any) []string {
	for _, extract := range keyExtractors {
		if keys, ok := extract(payload); ok {
			return keys
		}
	}
	return nil
}

func stringArrayKeys(payload any) ([]string, bool) {
	arr, ok := payload.([]any)
	if !ok || len(arr) == 0 {
		return nil, ok
	}
	keys := make([]string, 0, len(arr))
	for _, item := range arr {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		keys = append(keys, s)
	}
	return keys, true
}

func objectArrayKeys(payload any) ([]string, bool) {
	arr, ok := payload.([]any)
	if !ok {
		return nil, false
	}
	keys := make([]string, 0, len(arr))
	for _, item := range arr {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		if k := firstString(obj, keyObjectFields); k != "" {
			keys = append(keys, k)
		}
	}
	return keys, true
}

func wrappedArrayKeys(payload any) ([]string, bool) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, false
	}
	for _, field := range keyWrapperFields {
		inner, ok := obj[field].([]any)
		if !ok {
			continue
		}
		if keys, ok := stringArrayKeys(inner); ok {
			return keys, true
		}
		if keys, ok := objectArrayKeys(inner); ok {
			return keys, true
		}
	}
	return nil, false
}

// PayloadError returns the error text a 2xx payload carries, if any.
func PayloadError(payload any) string {
	obj, ok := payload.(map[string]any)
	if !ok {
		return ""
	}
	if _, hasKeys := wrappedArrayKeys(obj); hasKeys {
		return ""
	}
	if msg := firstString(obj, errorFields); msg != "" {
		return msg
	}
	for _, field := range statusFields {
		if isStatus401(obj[field]) {
			return fmt.Sprintf("%s %v", field, obj[field])
		}
	}
	return ""
}

// PayloadUnauthorized reports whether a 2xx payload nonetheless encodes a 401.
func PayloadUnauthorized(payload any) bool {
	obj, ok := payload.(map[string]any)
	if !ok {
		return false
	}
	for _, field := range statusFields {
		if isStatus401(obj[field]) {
			return true
		}
	}
	return looksUnauthorized(firstString(obj, errorFields))
}

// IsUnauthorizedErr reports whether a transport or API error means the L2
// credential was rejected.
func IsUnauthorizedErr(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *clob.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		return true
	}
	if errors.Is(err, sdkerrors.ErrUnauthorized) {
		return true
	}
	return looksUnauthorized(err.Error())
}

var refusalPattern = regexp.MustCompile(`(?i)(cannot|can't|can not|not allowed to|not permitted to|unable to) create (an )?(api )?keys?`)

// IsPermanentRefusal matches the exchange's "this account cannot create keys" wording.
func IsPermanentRefusal(err error) bool {
	return err != nil && refusalPattern.MatchString(err.Error())
}

func looksUnauthorized(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "unauthorized") || strings.Contains(m, "invalid api key")
}

func isStatus401(v any) bool {
	switch s := v.(type) {
	case float64:
		return s == http.StatusUnauthorized
	case string:
		return s == "401" || strings.EqualFold(s, "unauthorized")
	}
	return false
}

func firstString(obj map[string]any, fields []string) string {
	for _, f := range fields {
		if s, ok := obj[f].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
