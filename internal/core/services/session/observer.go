package session

import (
	"context"
	"sync"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
)

// Observer defines the interface for components interested in session events.
type Observer interface {
	OnStateChanged(ctx context.Context, sessionID string, state domain.AcquisitionState)
	OnLocationSelected(ctx context.Context, sessionID string, sel domain.Selection)
	OnNotice(ctx context.Context, sessionID string, notice domain.Notice)
	OnAddressResolved(ctx context.Context, sessionID string, address string)
}

// Subject manages observers and notifies them of session events.
type Subject struct {
	observers []Observer
	mu        sync.RWMutex
}

// NewSubject creates a new subject.
func NewSubject() *Subject {
	return &Subject{
		observers: make([]Observer, 0),
	}
}

// AddObserver registers a new observer.
func (s *Subject) AddObserver(observer Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, observer)
}

// NotifyState notifies all observers of an acquisition state change.
func (s *Subject) NotifyState(ctx context.Context, sessionID string, state domain.AcquisitionState) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, obs := range s.observers {
		go obs.OnStateChanged(ctx, sessionID, state)
	}
}

// NotifySelected notifies all observers of a location selection.
func (s *Subject) NotifySelected(ctx context.Context, sessionID string, sel domain.Selection) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, obs := range s.observers {
		go obs.OnLocationSelected(ctx, sessionID, sel)
	}
}

// NotifyNotice notifies all observers of a user-facing notice.
func (s *Subject) NotifyNotice(ctx context.Context, sessionID string, notice domain.Notice) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, obs := range s.observers {
		go obs.OnNotice(ctx, sessionID, notice)
	}
}

// NotifyAddress notifies all observers of a resolved address.
func (s *Subject) NotifyAddress(ctx context.Context, sessionID string, address string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, obs := range s.observers {
		go obs.OnAddressResolved(ctx, sessionID, address)
	}
}
