package audit

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/port"
)

// Sink is a named activity destination.
type Sink struct {
	Name   string
	Logger port.ActivityLogger
}

// Fanout writes every entry to all sinks. It fails only when no sink accepted the entry,
// so a retry never duplicates into a healthy sink.
type Fanout struct {
	sinks  []Sink
	logger *zap.Logger
}

// NewFanout constructs a fan-out logger. Nil sinks are skipped.
func NewFanout(logger *zap.Logger, sinks ...Sink) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	filtered := make([]Sink, 0, len(sinks))
	for _, sink := range sinks {
		if sink.Logger != nil {
			filtered = append(filtered, sink)
		}
	}
	return &Fanout{sinks: filtered, logger: logger}
}

// Log implements port.ActivityLogger.
func (f *Fanout) Log(ctx context.Context, entry domain.ActivityEntry) error {
	if len(f.sinks) == 0 {
		return nil
	}

	var errs []error
	for _, sink := range f.sinks {
		if err := sink.Logger.Log(ctx, entry); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name, err))
		}
	}

	switch {
	case len(errs) == 0:
		return nil
	case len(errs) == len(f.sinks):
		return errors.Join(errs...)
	default:
		f.logger.Warn("activity entry dropped by some sinks",
			zap.String("entry_id", entry.ID),
			zap.Error(errors.Join(errs...)),
		)
		return nil
	}
}

// Sinks returns the configured sink names.
func (f *Fanout) Sinks() []string {
	names := make([]string, 0, len(f.sinks))
	for _, sink := range f.sinks {
		names = append(names, sink.Name)
	}
	return names
}

var _ port.ActivityLogger = (*Fanout)(nil)
