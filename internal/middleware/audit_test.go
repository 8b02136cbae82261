package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/GoPolymarket/polycreds/internal/service"
	"github.com/gin-gonic/gin"
)

func TestRedactAuditBodyAuthRoutes(t *testing.T) {
	body := []byte(`{"funder_address":"0xabc","nested":{"api_secret":"s","passphrase":"p"},"private_key":"0xdead"}`)
	out := redactAuditBody("/v1/auth/identity", body)

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(out), &data); err != nil {
		t.Fatalf("invalid json output: %v", err)
	}
	if data["private_key"] == "0xdead" {
		t.Fatalf("private key not redacted")
	}
	if data["funder_address"] != "0xabc" {
		t.Fatalf("non-sensitive field was redacted")
	}
	if nested, ok := data["nested"].(map[string]interface{}); ok {
		if nested["api_secret"] == "s" || nested["passphrase"] == "p" {
			t.Fatalf("nested creds not redacted")
		}
	}
}

func TestRedactAuditBodyNonSensitivePath(t *testing.T) {
	body := []byte(`{"ok":true}`)
	out := redactAuditBody("/health", body)
	if out != string(body) {
		t.Fatalf("unexpected redaction on non-sensitive path")
	}
}

func TestRedactAuditBodyInvalidJSON(t *testing.T) {
	body := []byte("not-json")
	out := redactAuditBody("/v1/auth/derive", body)
	if out != "[redacted]" {
		t.Fatalf("expected redacted placeholder for invalid json")
	}
}

func TestAuditMiddlewareRecordsMutations(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auditSvc := service.NewAuditService(10, nil)

	router := gin.New()
	router.Use(AuditMiddleware(auditSvc))
	router.GET("/v1/auth/identity", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.PUT("/v1/auth/identity", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	for _, method := range []string{http.MethodGet, http.MethodPut} {
		req := httptest.NewRequest(method, "/v1/auth/identity", strings.NewReader(`{"private_key":"0xdead"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Header().Get(HeaderRequestID) == "" {
			t.Fatalf("missing request id on %s", method)
		}
	}

	events, _ := auditSvc.List(context.Background(), "", 10)
	if len(events) != 1 {
		t.Fatalf("expected only the PUT to be audited, got %d events", len(events))
	}
	if events[0].Outcome != service.OutcomeError {
		t.Fatalf("expected error outcome, got %s", events[0].Outcome)
	}
	if strings.Contains(events[0].Detail, "0xdead") {
		t.Fatalf("audit detail leaks the request body: %s", events[0].Detail)
	}
}
