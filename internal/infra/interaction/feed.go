package interaction

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"
	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/port"
)

// ErrUntracked is returned when dispatching an interaction kind nobody tracks.
var ErrUntracked = errors.New("interaction kind is not tracked")

type listener struct {
	id uint64
	fn func()
}

// Feed is an in-process registry that relays UI interactions reported by clients to
// listeners such as the session guard.
type Feed struct {
	mu        sync.RWMutex
	listeners map[domain.Interaction][]listener
	nextID    uint64
	logger    *zap.Logger
}

// NewFeed constructs an empty feed.
func NewFeed(logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{listeners: make(map[domain.Interaction][]listener), logger: logger}
}

// Listen registers fn for kind and returns a function that removes it.
func (f *Feed) Listen(kind domain.Interaction, fn func()) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	id := f.nextID
	f.listeners[kind] = append(f.listeners[kind], listener{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			current := f.listeners[kind]
			for i, l := range current {
				if l.id == id {
					f.listeners[kind] = append(current[:i:i], current[i+1:]...)
					break
				}
			}
			if len(f.listeners[kind]) == 0 {
				delete(f.listeners, kind)
			}
		})
	}
}

// Dispatch invokes every listener registered for kind and returns how many ran.
func (f *Feed) Dispatch(kind domain.Interaction) (int, error) {
	if !kind.IsTracked() {
		return 0, ErrUntracked
	}

	f.mu.RLock()
	current := append([]listener(nil), f.listeners[kind]...)
	f.mu.RUnlock()

	for _, l := range current {
		f.invoke(kind, l.fn)
	}
	return len(current), nil
}

// Count returns the number of listeners registered for kind.
func (f *Feed) Count(kind domain.Interaction) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.listeners[kind])
}

func (f *Feed) invoke(kind domain.Interaction, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("interaction listener panicked", zap.String("kind", string(kind)), zap.Any("panic", r))
		}
	}()
	fn()
}

var _ port.InteractionSource = (*Feed)(nil)
