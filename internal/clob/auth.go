package clob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/GoPolymarket/polycreds/internal/model"
)

// AuthAPI lists the account's L2 keys over the raw transport. Key creation and
// derivation go through the SDK client; this adapter exists because the
// /auth/api-keys payload does not fit the SDK's typed response.
type AuthAPI struct {
	client      *Client
	polyAddress string
	cred        *model.ApiCredential
	now         func() time.Time
}

// NewAuthAPI binds the adapter to the signer address and (optionally) one L2 credential.
func NewAuthAPI(client *Client, polyAddress string, cred *model.ApiCredential) *AuthAPI {
	return &AuthAPI{
		client:      client,
		polyAddress: polyAddress,
		cred:        cred,
		now:         time.Now,
	}
}

// ListAPIKeys returns the decoded /auth/api-keys payload. The shape is not a
// stable contract, so it is left loosely typed.
func (a *AuthAPI) ListAPIKeys(ctx context.Context) (any, error) {
	if a.cred == nil {
		return nil, errors.New("no api credential bound to session")
	}
	ts := a.now().Unix()
	h, err := L2Headers(a.polyAddress, *a.cred, ts, http.MethodGet, EndpointGetApiKeys, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(ctx, http.MethodGet, EndpointGetApiKeys, h, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, resp.Err(http.MethodGet, EndpointGetApiKeys)
	}
	return decodeLoose(resp.Body)
}

func decodeLoose(body []byte) (any, error) {
	var out any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}
