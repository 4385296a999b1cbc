package view

import (
	"context"
	"errors"
	"sync"

	"roomrent-dashboard/internal/domain"
	"roomrent-dashboard/internal/logger"
	"roomrent-dashboard/internal/repository"
	"roomrent-dashboard/internal/service"
)

var errReplicaStarted = errors.New("room replica already started")

// Replica keeps the latest room snapshot for the lifetime of the process.
// It is a read-only copy of the store and holds no state of its own.
type Replica struct {
	svc service.RoomService

	mu     sync.RWMutex
	rooms  []domain.Room
	loaded bool
	err    error

	// guards cancel; separate from mu so a store may deliver during Start
	lifecycle sync.Mutex
	cancel    repository.CancelFunc

	onSnapshot []func([]domain.Room)
	onError    []func(error)
}

func NewReplica(svc service.RoomService) *Replica {
	return &Replica{svc: svc}
}

// OnSnapshot registers fn to run after each snapshot is stored. Register
// before Start.
func (r *Replica) OnSnapshot(fn func([]domain.Room)) {
	r.onSnapshot = append(r.onSnapshot, fn)
}

// OnError registers fn to run when the live query fails. Register before
// Start.
func (r *Replica) OnError(fn func(error)) {
	r.onError = append(r.onError, fn)
}

// Start attaches the live query. It is released by Close or when ctx ends.
func (r *Replica) Start(ctx context.Context) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	if r.cancel != nil {
		return errReplicaStarted
	}

	cancel, err := r.svc.SubscribeRooms(ctx, r.store, r.fail)
	if err != nil {
		r.mu.Lock()
		r.err = err
		r.mu.Unlock()
		return err
	}
	r.cancel = cancel
	logger.Info("Room replica attached")
	return nil
}

func (r *Replica) store(rooms []domain.Room) {
	r.mu.Lock()
	r.rooms = rooms
	r.loaded = true
	r.err = nil
	r.mu.Unlock()

	for _, fn := range r.onSnapshot {
		fn(rooms)
	}
}

// fail keeps whatever was loaded; the view stays stale or keeps loading.
func (r *Replica) fail(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()

	for _, fn := range r.onError {
		fn(err)
	}
}

// Snapshot returns the cached rooms and whether a snapshot ever arrived.
// The slice is shared and must not be modified.
func (r *Replica) Snapshot() ([]domain.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms, r.loaded
}

// Err returns the last live query error, cleared by the next snapshot.
func (r *Replica) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

func (r *Replica) Close() {
	r.lifecycle.Lock()
	cancel := r.cancel
	r.lifecycle.Unlock()
	if cancel != nil {
		cancel()
		logger.Info("Room replica released")
	}
}
