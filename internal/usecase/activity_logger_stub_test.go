package usecase

import (
	"context"
	"sync"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"
)

type recordingActivityLogger struct {
	mu      sync.Mutex
	entries []domain.ActivityEntry
	err     error
	calls   int
}

func (r *recordingActivityLogger) Log(_ context.Context, entry domain.ActivityEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *recordingActivityLogger) snapshot() []domain.ActivityEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ActivityEntry(nil), r.entries...)
}

func (r *recordingActivityLogger) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *recordingActivityLogger) countSeverity(severity domain.Severity) int {
	count := 0
	for _, entry := range r.snapshot() {
		if entry.Severity == severity {
			count++
		}
	}
	return count
}
