package service

import (
	"context"
	"sync"
	"time"

	"github.com/GoPolymarket/polycreds/internal/model"
	"github.com/GoPolymarket/polycreds/internal/pkg/logger"
	"github.com/google/uuid"
)

// Audit outcomes
const (
	OutcomeOK        = "ok"
	OutcomeRejected  = "rejected"
	OutcomeRefused   = "refused"
	OutcomeMalformed = "malformed"
	OutcomeError     = "error"
)

type AuditService struct {
	logChan chan *model.AuditEvent
	buffer  *auditBuffer
	repo    AuditRepo
	done    chan struct{}
	closeMu sync.Once
}

type AuditRepo interface {
	Insert(ctx context.Context, entry *model.AuditEvent) error
	List(ctx context.Context, action string, limit int) ([]*model.AuditEvent, error)
}

func NewAuditService(bufferSize int, repo AuditRepo) *AuditService {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	svc := &AuditService{
		logChan: make(chan *model.AuditEvent, bufferSize),
		buffer:  newAuditBuffer(bufferSize),
		repo:    repo,
		done:    make(chan struct{}),
	}

	// 启动消费者 goroutine
	go svc.processLogs()

	return svc
}

// Record builds and logs one event. A nil service is a no-op.
func (s *AuditService) Record(action, contextKey, outcome, detail string) {
	if s == nil {
		return
	}
	s.Log(&model.AuditEvent{
		Action:     action,
		ContextKey: contextKey,
		Outcome:    outcome,
		Detail:     detail,
	})
}

func (s *AuditService) Log(entry *model.AuditEvent) {
	if s == nil || entry == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.buffer.Add(entry)
	if s.repo == nil {
		return
	}
	select {
	case s.logChan <- entry:
	default:
		// 缓冲区满，丢弃以保护主流程
		logger.Warn("audit channel full, dropping event", "action", entry.Action)
	}
}

// List reads from the repository when one is wired, else from the ring buffer.
func (s *AuditService) List(ctx context.Context, action string, limit int) ([]*model.AuditEvent, error) {
	if s == nil {
		return nil, nil
	}
	if s.repo != nil {
		records, err := s.repo.List(ctx, action, limit)
		if err == nil {
			return records, nil
		}
		logger.LogError(ctx, err, "audit repository list failed, serving buffer")
	}
	return s.buffer.List(action, limit), nil
}

func (s *AuditService) processLogs() {
	defer close(s.done)
	for entry := range s.logChan {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.repo.Insert(ctx, entry); err != nil {
			logger.LogError(ctx, err, "failed to write audit event", "id", entry.ID)
		}
		cancel()
	}
}

// Close drains pending events into the repository.
func (s *AuditService) Close() {
	if s == nil {
		return
	}
	s.closeMu.Do(func() {
		close(s.logChan)
		<-s.done
	})
}

type auditBuffer struct {
	mu        sync.Mutex
	maxSize   int
	records   []*model.AuditEvent
	nextIndex int
}

func newAuditBuffer(maxSize int) *auditBuffer {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &auditBuffer{
		maxSize: maxSize,
		records: make([]*model.AuditEvent, 0, maxSize),
	}
}

func (b *auditBuffer) Add(entry *model.AuditEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.records) < b.maxSize {
		b.records = append(b.records, entry)
		return
	}
	b.records[b.nextIndex] = entry
	b.nextIndex = (b.nextIndex + 1) % b.maxSize
}

// List returns newest first.
func (b *auditBuffer) List(action string, limit int) []*model.AuditEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	if limit <= 0 || limit > b.maxSize {
		limit = b.maxSize
	}
	results := make([]*model.AuditEvent, 0, limit)
	total := len(b.records)
	for i := 0; i < total; i++ {
		idx := (b.nextIndex + total - 1 - i) % total
		entry := b.records[idx]
		if entry == nil {
			continue
		}
		if action != "" && entry.Action != action {
			continue
		}
		results = append(results, entry)
		if len(results) >= limit {
			break
		}
	}
	return results
}
