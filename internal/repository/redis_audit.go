package repository

import (
	"context"
	"encoding/json"

	"github.com/GoPolymarket/polycreds/internal/model"
	"github.com/redis/go-redis/v9"
)

// RedisAuditRepo keeps the newest listMax events in one Redis list.
type RedisAuditRepo struct {
	client  redis.Cmdable
	listKey string
	listMax int
}

func NewRedisAuditRepo(client redis.Cmdable, listKey string, listMax int) *RedisAuditRepo {
	if listKey == "" {
		listKey = "polycreds:audit"
	}
	if listMax <= 0 {
		listMax = 10000
	}
	return &RedisAuditRepo{
		client:  client,
		listKey: listKey,
		listMax: listMax,
	}
}

func (r *RedisAuditRepo) Insert(ctx context.Context, entry *model.AuditEvent) error {
	if entry == nil {
		return nil
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, r.listKey, payload)
		pipe.LTrim(ctx, r.listKey, 0, int64(r.listMax-1))
		return nil
	})
	return err
}

// List returns newest first, optionally filtered by action.
func (r *RedisAuditRepo) List(ctx context.Context, action string, limit int) ([]*model.AuditEvent, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	fetch := limit
	if action != "" {
		fetch = limit * 5
	}
	if fetch > r.listMax {
		fetch = r.listMax
	}

	items, err := r.client.LRange(ctx, r.listKey, 0, int64(fetch-1)).Result()
	if err != nil {
		return nil, err
	}
	return decodeAuditItems(items, action, limit), nil
}

func decodeAuditItems(items []string, action string, limit int) []*model.AuditEvent {
	results := make([]*model.AuditEvent, 0, limit)
	for _, raw := range items {
		var entry model.AuditEvent
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}
		if action != "" && entry.Action != action {
			continue
		}
		results = append(results, &entry)
		if len(results) >= limit {
			break
		}
	}
	return results
}
