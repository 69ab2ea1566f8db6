package usecase

import (
	"context"
	"sync"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"
)

type recordingEventPublisher struct {
	mu         sync.Mutex
	resets     []domain.PasswordResetRequestedEvent
	signOuts   []domain.SessionSignedOutEvent
	resetErr   error
	signOutErr error
}

func (p *recordingEventPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resetErr != nil {
		return p.resetErr
	}
	p.resets = append(p.resets, event)
	return nil
}

func (p *recordingEventPublisher) PublishSessionSignedOut(_ context.Context, event domain.SessionSignedOutEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.signOutErr != nil {
		return p.signOutErr
	}
	p.signOuts = append(p.signOuts, event)
	return nil
}

func (p *recordingEventPublisher) resetEvents() []domain.PasswordResetRequestedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.PasswordResetRequestedEvent(nil), p.resets...)
}

func (p *recordingEventPublisher) signOutEvents() []domain.SessionSignedOutEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.SessionSignedOutEvent(nil), p.signOuts...)
}
