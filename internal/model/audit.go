package model

import (
	"time"
)

// AuditEvent 记录一次凭证相关操作 (derive / validate / identity switch)
type AuditEvent struct {
	ID         string    `json:"id"`          // 唯一事件 ID (UUID)
	Action     string    `json:"action"`      // derive, validate, reconfigure ...
	ContextKey string    `json:"context_key"` // signatureType:address
	Outcome    string    `json:"outcome"`     // ok, rejected, refused, malformed, error
	Detail     string    `json:"detail"`      // 已脱敏的说明
	CreatedAt  time.Time `json:"created_at"`
}
