package usecase

import (
	"context"
	"sync"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/repository"
)

type memoryRateLimitStore struct {
	mu      sync.Mutex
	records map[domain.RateLimitKey]domain.RateLimitRecord

	getErr    error
	setErr    error
	updateErr error

	setCalls    int
	updateCalls int
}

func newMemoryRateLimitStore() *memoryRateLimitStore {
	return &memoryRateLimitStore{records: make(map[domain.RateLimitKey]domain.RateLimitRecord)}
}

func (s *memoryRateLimitStore) Get(_ context.Context, key domain.RateLimitKey) (*domain.RateLimitRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	record, ok := s.records[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copyRecord := record
	copyRecord.Attempts = append([]domain.Attempt(nil), record.Attempts...)
	return &copyRecord, nil
}

func (s *memoryRateLimitStore) Set(_ context.Context, key domain.RateLimitKey, record domain.RateLimitRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCalls++
	if s.setErr != nil {
		return s.setErr
	}
	record.Attempts = append([]domain.Attempt(nil), record.Attempts...)
	s.records[key] = record
	return nil
}

func (s *memoryRateLimitStore) Update(_ context.Context, key domain.RateLimitKey, update domain.RateLimitUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateCalls++
	if s.updateErr != nil {
		return s.updateErr
	}
	record := s.records[key]
	update.Apply(&record)
	s.records[key] = record
	return nil
}

func (s *memoryRateLimitStore) record(key domain.RateLimitKey) (domain.RateLimitRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[key]
	return record, ok
}
