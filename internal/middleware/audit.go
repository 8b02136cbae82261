package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/GoPolymarket/polycreds/internal/model"
	"github.com/GoPolymarket/polycreds/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const HeaderRequestID = "X-Request-ID"

// AuditMiddleware 记录管理端变更请求 (derive / identity switch) 到凭证审计流
func AuditMiddleware(auditSvc *service.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := uuid.New().String()
		c.Header(HeaderRequestID, reqID)

		if c.Request.Method == "GET" || c.Request.Method == "HEAD" {
			c.Next()
			return
		}

		// 读取请求体 (并写回以便后续 Bind 使用)
		var reqBodyBytes []byte
		if c.Request.Body != nil {
			reqBodyBytes, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(reqBodyBytes))
		}

		c.Next()

		outcome := service.OutcomeOK
		if c.Writer.Status() >= 400 {
			outcome = service.OutcomeError
		}
		auditSvc.Log(&model.AuditEvent{
			ID:      reqID,
			Action:  "http " + c.Request.Method + " " + c.FullPath(),
			Outcome: outcome,
			Detail: fmt.Sprintf("status=%d ip=%s body=%s",
				c.Writer.Status(), c.ClientIP(), redactAuditBody(c.Request.URL.Path, reqBodyBytes)),
		})
	}
}

func redactAuditBody(path string, body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if !isSensitivePath(path) {
		return string(body)
	}
	redacted, ok := redactJSON(body)
	if !ok {
		return "[redacted]"
	}
	return string(redacted)
}

func isSensitivePath(path string) bool {
	return strings.HasPrefix(path, "/v1/auth") || strings.HasPrefix(path, "/v1/account")
}

func redactJSON(body []byte) ([]byte, bool) {
	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, false
	}
	redactValue(&data)
	out, err := json.Marshal(data)
	if err != nil {
		return nil, false
	}
	return out, true
}

func redactValue(v *interface{}) {
	switch raw := (*v).(type) {
	case map[string]interface{}:
		for key, val := range raw {
			if isSensitiveKey(key) {
				raw[key] = "***"
				continue
			}
			vv := val
			redactValue(&vv)
			raw[key] = vv
		}
	case []interface{}:
		for i, val := range raw {
			vv := val
			redactValue(&vv)
			raw[i] = vv
		}
	}
}

func isSensitiveKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "api_key",
		"api_secret",
		"api_passphrase",
		"secret",
		"passphrase",
		"private_key",
		"signature",
		"admin_key",
		"admin_secret_key":
		return true
	default:
		return false
	}
}
