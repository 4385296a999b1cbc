package repository

import (
	"context"
	"sync"

	"roomrent-dashboard/internal/domain"
)

// Subscription carries the callbacks of one live query and guarantees that
// nothing is delivered after Cancel returns. Callbacks run one at a time and
// must not call Cancel themselves.
type Subscription struct {
	onRooms func([]domain.Room)
	onError func(error)

	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}

	mu      sync.Mutex
	stopped bool
}

// NewSubscription derives the context that bounds the listener goroutine.
// The adapter must call Finish when that goroutine exits.
func NewSubscription(parent context.Context, onRooms func([]domain.Room), onError func(error)) (*Subscription, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	if onError == nil {
		onError = func(error) {}
	}
	return &Subscription{
		onRooms: onRooms,
		onError: onError,
		cancel:  cancel,
		done:    make(chan struct{}),
	}, ctx
}

// Deliver hands a full snapshot to the subscriber unless it was cancelled.
func (s *Subscription) Deliver(rooms []domain.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.onRooms(rooms)
}

// Fail reports a listener error unless the subscriber already went away.
func (s *Subscription) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.onError(err)
}

// Cancel stops the listener and waits for an in-flight callback to return.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.cancel()
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
	})
}

// Finish marks the listener goroutine as gone.
func (s *Subscription) Finish() {
	s.Cancel()
	close(s.done)
}

// Done is closed once the listener goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// CancelFunc adapts the subscription to the RoomStore contract.
func (s *Subscription) CancelFunc() CancelFunc {
	return s.Cancel
}
