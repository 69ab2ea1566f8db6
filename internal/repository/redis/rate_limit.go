package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/repository"
)

const (
	defaultRateLimitPrefix = "rate-limit"
	maxUpdateRetries       = 5
)

// RateLimitConfig defines key layout and expiry for stored rate-limit records.
type RateLimitConfig struct {
	KeyPrefix string
	TTL       time.Duration
}

// RateLimitRepository persists one JSON document per (limit type, identifier).
type RateLimitRepository struct {
	client *redis.Client
	cfg    RateLimitConfig
}

type attemptDocument struct {
	Timestamp int64  `json:"ts"`
	IP        string `json:"ip,omitempty"`
}

type recordDocument struct {
	Attempts     []attemptDocument `json:"attempts"`
	BlockedUntil *int64            `json:"blocked_until,omitempty"`
	LastResetAt  *int64            `json:"last_reset_at,omitempty"`
}

// NewRateLimitRepository constructs a repository using the provided Redis client and config.
func NewRateLimitRepository(client *redis.Client, cfg RateLimitConfig) *RateLimitRepository {
	cfg.KeyPrefix = strings.TrimSpace(cfg.KeyPrefix)
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultRateLimitPrefix
	}
	return &RateLimitRepository{client: client, cfg: cfg}
}

// Get loads the record stored for key. Returns repository.ErrNotFound when absent.
func (r *RateLimitRepository) Get(ctx context.Context, key domain.RateLimitKey) (*domain.RateLimitRecord, error) {
	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	record, err := decodeRecord(raw)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Set replaces the record stored for key.
func (r *RateLimitRepository) Set(ctx context.Context, key domain.RateLimitKey, record domain.RateLimitRecord) error {
	payload, err := encodeRecord(record)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(key), payload, r.cfg.TTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Update applies a partial update under optimistic locking, retrying when a concurrent writer
// changes the record between read and write.
func (r *RateLimitRepository) Update(ctx context.Context, key domain.RateLimitKey, update domain.RateLimitUpdate) error {
	redisKey := r.key(key)

	txf := func(tx *redis.Tx) error {
		var record domain.RateLimitRecord
		raw, err := tx.Get(ctx, redisKey).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("redis get: %w", err)
		default:
			if record, err = decodeRecord(raw); err != nil {
				return err
			}
		}

		update.Apply(&record)
		payload, err := encodeRecord(record)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, redisKey, payload, r.cfg.TTL)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := r.client.Watch(ctx, txf, redisKey)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return fmt.Errorf("redis update: %w", err)
	}
	return fmt.Errorf("redis update: %w", redis.TxFailedErr)
}

func (r *RateLimitRepository) key(key domain.RateLimitKey) string {
	return fmt.Sprintf("%s:%s", r.cfg.KeyPrefix, key.String())
}

func encodeRecord(record domain.RateLimitRecord) ([]byte, error) {
	doc := recordDocument{Attempts: make([]attemptDocument, 0, len(record.Attempts))}
	for _, attempt := range record.Attempts {
		doc.Attempts = append(doc.Attempts, attemptDocument{Timestamp: attempt.Timestamp.UnixNano(), IP: attempt.IP})
	}
	if record.BlockedUntil != nil {
		ts := record.BlockedUntil.UnixNano()
		doc.BlockedUntil = &ts
	}
	if record.LastResetAt != nil {
		ts := record.LastResetAt.UnixNano()
		doc.LastResetAt = &ts
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode rate limit record: %w", err)
	}
	return payload, nil
}

func decodeRecord(raw []byte) (domain.RateLimitRecord, error) {
	var doc recordDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.RateLimitRecord{}, fmt.Errorf("%w: decode rate limit record: %v", repository.ErrCorruptRecord, err)
	}

	record := domain.RateLimitRecord{Attempts: make([]domain.Attempt, 0, len(doc.Attempts))}
	for _, attempt := range doc.Attempts {
		record.Attempts = append(record.Attempts, domain.Attempt{Timestamp: time.Unix(0, attempt.Timestamp).UTC(), IP: attempt.IP})
	}
	if doc.BlockedUntil != nil {
		ts := time.Unix(0, *doc.BlockedUntil).UTC()
		record.BlockedUntil = &ts
	}
	if doc.LastResetAt != nil {
		ts := time.Unix(0, *doc.LastResetAt).UTC()
		record.LastResetAt = &ts
	}
	return record, nil
}
