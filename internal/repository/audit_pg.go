package repository

import (
	"context"
	"time"

	"github.com/GoPolymarket/polycreds/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// auditRecord is the row shape of credential_audit_events.
type auditRecord struct {
	ID         string    `gorm:"primaryKey"`
	Action     string    `gorm:"index:idx_credential_audit_action,priority:1"`
	ContextKey string    `gorm:"index"`
	Outcome    string
	Detail     string
	CreatedAt  time.Time `gorm:"index:idx_credential_audit_action,priority:2,sort:desc"`
}

func (auditRecord) TableName() string {
	return "credential_audit_events"
}

type PostgresAuditRepo struct {
	db *gorm.DB
}

// NewPostgresAuditRepo migrates the audit table before returning.
func NewPostgresAuditRepo(db *gorm.DB) (*PostgresAuditRepo, error) {
	if err := db.AutoMigrate(&auditRecord{}); err != nil {
		return nil, err
	}
	return &PostgresAuditRepo{db: db}, nil
}

func (r *PostgresAuditRepo) Insert(ctx context.Context, entry *model.AuditEvent) error {
	if entry == nil {
		return nil
	}
	rec := toAuditRecord(entry)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rec).Error
}

func (r *PostgresAuditRepo) List(ctx context.Context, action string, limit int) ([]*model.AuditEvent, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	q := r.db.WithContext(ctx).Model(&auditRecord{})
	if action != "" {
		q = q.Where("action = ?", action)
	}

	var rows []auditRecord
	if err := q.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make([]*model.AuditEvent, 0, len(rows))
	for i := range rows {
		records = append(records, fromAuditRecord(rows[i]))
	}
	return records, nil
}

// Cleanup deletes events older than the retention window.
func (r *PostgresAuditRepo) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if olderThan <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	return r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&auditRecord{}).Error
}

func toAuditRecord(e *model.AuditEvent) auditRecord {
	return auditRecord{
		ID:         e.ID,
		Action:     e.Action,
		ContextKey: e.ContextKey,
		Outcome:    e.Outcome,
		Detail:     e.Detail,
		CreatedAt:  e.CreatedAt,
	}
}

func fromAuditRecord(r auditRecord) *model.AuditEvent {
	return &model.AuditEvent{
		ID:         r.ID,
		Action:     r.Action,
		ContextKey: r.ContextKey,
		Outcome:    r.Outcome,
		Detail:     r.Detail,
		CreatedAt:  r.CreatedAt,
	}
}
