package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/repository"
)

func TestRateLimitRepository_GetMiss(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, RateLimitConfig{KeyPrefix: "rl", TTL: time.Hour})

	_, err := repo.Get(context.Background(), domain.RateLimitKey{Type: domain.LimitLogin, Identifier: "a@b.c"})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRateLimitRepository_SetAndGet(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewRateLimitRepository(client, RateLimitConfig{KeyPrefix: "rl", TTL: time.Hour})
	ctx := context.Background()
	key := domain.RateLimitKey{Type: domain.LimitLogin, Identifier: "a@b.c"}

	at := time.Date(2025, 10, 12, 10, 0, 0, 123, time.UTC)
	blocked := at.Add(30 * time.Minute)
	record := domain.RateLimitRecord{
		Attempts:     []domain.Attempt{{Timestamp: at, IP: "203.0.113.1"}},
		BlockedUntil: &blocked,
	}
	if err := repo.Set(ctx, key, record); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	got, err := repo.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if len(got.Attempts) != 1 || !got.Attempts[0].Timestamp.Equal(at) || got.Attempts[0].IP != "203.0.113.1" {
		t.Fatalf("unexpected attempts %+v", got.Attempts)
	}
	if got.BlockedUntil == nil || !got.BlockedUntil.Equal(blocked) {
		t.Fatalf("unexpected blockedUntil %v", got.BlockedUntil)
	}
	if got.LastResetAt != nil {
		t.Fatalf("expected no reset timestamp")
	}

	if !server.Exists("rl:login:a@b.c") {
		t.Fatalf("expected key rl:login:a@b.c")
	}
	if ttl := server.TTL("rl:login:a@b.c"); ttl <= 0 || ttl > time.Hour {
		t.Fatalf("expected ttl within (0, 1h], got %v", ttl)
	}
}

func TestRateLimitRepository_UpdateMergesFields(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, RateLimitConfig{})
	ctx := context.Background()
	key := domain.RateLimitKey{Type: domain.LimitTwoFactor, Identifier: "user-1"}

	at := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	reset := at.Add(-time.Hour)
	if err := repo.Set(ctx, key, domain.RateLimitRecord{
		Attempts:    []domain.Attempt{{Timestamp: at}},
		LastResetAt: &reset,
	}); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	until := at.Add(15 * time.Minute)
	if err := repo.Update(ctx, key, domain.RateLimitUpdate{BlockedUntil: &until}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	got, err := repo.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if len(got.Attempts) != 1 {
		t.Fatalf("attempts should be untouched, got %d", len(got.Attempts))
	}
	if got.BlockedUntil == nil || !got.BlockedUntil.Equal(until) {
		t.Fatalf("expected block to be set")
	}
	if got.LastResetAt == nil || !got.LastResetAt.Equal(reset) {
		t.Fatalf("reset timestamp should be preserved")
	}

	if err := repo.Update(ctx, key, domain.RateLimitUpdate{
		Attempts:        []domain.Attempt{{Timestamp: at.Add(time.Minute)}, {Timestamp: at.Add(2 * time.Minute)}},
		ReplaceAttempts: true,
		ClearBlock:      true,
	}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	got, err = repo.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if len(got.Attempts) != 2 || got.BlockedUntil != nil {
		t.Fatalf("unexpected record after replace: %+v", got)
	}
}

func TestRateLimitRepository_UpdateMissingKeyCreatesRecord(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, RateLimitConfig{KeyPrefix: "rl"})
	ctx := context.Background()
	key := domain.RateLimitKey{Type: domain.LimitPasswordReset, Identifier: "x@y.z"}

	at := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	if err := repo.Update(ctx, key, domain.RateLimitUpdate{Attempts: []domain.Attempt{{Timestamp: at}}, ReplaceAttempts: true}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	got, err := repo.Get(ctx, key)
	if err != nil || len(got.Attempts) != 1 {
		t.Fatalf("expected created record, got %+v err=%v", got, err)
	}
}

func TestRateLimitRepository_CorruptDocument(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewRateLimitRepository(client, RateLimitConfig{KeyPrefix: "rl"})
	if err := server.Set("rl:login:a@b.c", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := repo.Get(context.Background(), domain.RateLimitKey{Type: domain.LimitLogin, Identifier: "a@b.c"})
	if !errors.Is(err, repository.ErrCorruptRecord) {
		t.Fatalf("expected corrupt record error, got %v", err)
	}
}

func TestRateLimitRepository_StoreUnavailable(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewRateLimitRepository(client, RateLimitConfig{KeyPrefix: "rl"})
	server.Close()

	_, err := repo.Get(context.Background(), domain.RateLimitKey{Type: domain.LimitLogin, Identifier: "a@b.c"})
	if err == nil || errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrCorruptRecord) {
		t.Fatalf("expected connection error, got %v", err)
	}
}
