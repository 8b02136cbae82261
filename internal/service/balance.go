package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/GoPolymarket/polycreds/internal/clob"
	"github.com/GoPolymarket/polycreds/internal/model"
	"github.com/GoPolymarket/polycreds/internal/pkg/logger"
	"github.com/GoPolymarket/polycreds/internal/pkg/metrics"
	"github.com/shopspring/decimal"
)

// usdcDecimals is the collateral token's base-unit exponent.
const usdcDecimals = 6

// The exchange has accepted each of these encodings at some point. Order and
// count are fixed; a 400 means the candidate's schema was not recognized.
var balanceCandidates = []string{
	"asset_type=COLLATERAL&signature_type=%d",
	"asset_type=0&signature_type=%d",
	"assetType=COLLATERAL&signatureType=%d",
	"asset_type=collateral&signature_type=%d",
}

var balanceFields = []string{"balance", "available_balance"}

// BalanceProber 按候选顺序查询 USDC 余额, 400 视为 schema 不匹配并继续
type BalanceProber struct {
	identity *IdentityResolver
	store    *CredentialStore
	client   *clob.Client
	now      func() time.Time
}

func NewBalanceProber(identity *IdentityResolver, store *CredentialStore, client *clob.Client) *BalanceProber {
	return &BalanceProber{
		identity: identity,
		store:    store,
		client:   client,
		now:      time.Now,
	}
}

// GetBalance never returns an error; failures are reported in the result.
func (p *BalanceProber) GetBalance(ctx context.Context) model.BalanceResult {
	id := p.identity.Identity()
	// BalanceQueryAddress is reported only. The exchange resolves the funded
	// wallet from POLY_ADDRESS plus signature_type, so it never reaches the wire.
	res := model.BalanceResult{Address: id.BalanceQueryAddress}

	cred, ok := p.store.Active(id.ContextKey)
	if !ok {
		res.Error = "no API credential configured or derived"
		return res
	}

	// one timestamp for the whole probe, one signature per candidate
	ts := p.now().Unix()
	for _, tmpl := range balanceCandidates {
		query := fmt.Sprintf(tmpl, id.SignatureType)
		path := clob.EndpointBalanceAllowance + "?" + query
		res.Candidate = query

		header, err := clob.L2Headers(id.PolyAddress, cred, ts, http.MethodGet, path, nil)
		if err != nil {
			res.Error = "api secret unusable: " + err.Error()
			return res
		}

		resp, err := p.client.Do(ctx, http.MethodGet, path, header, nil)
		if err != nil {
			metrics.BalanceCandidates.WithLabelValues("transport").Inc()
			res.Error = err.Error()
			return res
		}
		res.Status = resp.Status

		switch {
		case resp.OK():
			metrics.BalanceCandidates.WithLabelValues("2xx").Inc()
			res.Raw, res.USDC = parseBalance(resp.Body)
			res.Error = ""
			logger.Debug("balance probed", "address", res.Address, "candidate", query, "usdc", res.USDC)
			return res
		case resp.Status == http.StatusBadRequest:
			metrics.BalanceCandidates.WithLabelValues("400").Inc()
			res.Error = resp.Err(http.MethodGet, path).Error()
			continue
		default:
			metrics.BalanceCandidates.WithLabelValues("other").Inc()
			res.Error = resp.Err(http.MethodGet, path).Error()
			return res
		}
	}
	logger.Warn("every balance candidate rejected", "address", res.Address, "error", res.Error)
	return res
}

// parseBalance reads the first present balance field. Unparseable values count as 0.
func parseBalance(body []byte) (string, float64) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return "", 0
	}

	for _, field := range balanceFields {
		v, ok := payload[field]
		if !ok || v == nil {
			continue
		}
		raw := fmt.Sprint(v)
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return raw, 0
		}
		return raw, amount.Shift(-usdcDecimals).InexactFloat64()
	}
	return "", 0
}
