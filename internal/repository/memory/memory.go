package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"roomrent-dashboard/internal/domain"
	"roomrent-dashboard/internal/logger"
	"roomrent-dashboard/internal/repository"
)

const backendName = "memory"

// Store implements repository.RoomStore in process memory. It is meant for
// local development and tests; data does not survive a restart.
type Store struct {
	mu       sync.Mutex
	rooms    map[string]domain.Room
	subs     map[*subscriber]struct{}
	writeErr error
	closed   bool
}

type subscriber struct {
	sub *repository.Subscription
	// holds at most the latest undelivered snapshot
	pending chan []domain.Room
}

var _ repository.RoomStore = (*Store)(nil)

var errClosed = errors.New("memory store is closed")

func NewStore() *Store {
	return &Store{
		rooms: make(map[string]domain.Room),
		subs:  make(map[*subscriber]struct{}),
	}
}

// SetWriteError makes every following Insert and Update fail with err until
// it is called again with nil.
func (s *Store) SetWriteError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

func (s *Store) Subscribe(ctx context.Context, onRooms func([]domain.Room), onError func(error)) (repository.CancelFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errClosed
	}

	sub, subCtx := repository.NewSubscription(ctx, onRooms, onError)
	sb := &subscriber{sub: sub, pending: make(chan []domain.Room, 1)}
	s.subs[sb] = struct{}{}
	sb.pending <- s.snapshotLocked()
	logger.SubscriptionEvent(backendName, "attach", "subscribers", len(s.subs))

	go func() {
		defer sub.Finish()
		defer s.detach(sb)
		for {
			select {
			case <-subCtx.Done():
				return
			case rooms := <-sb.pending:
				sub.Deliver(rooms)
			}
		}
	}()

	return sub.CancelFunc(), nil
}

func (s *Store) detach(sb *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, sb)
	logger.SubscriptionEvent(backendName, "release", "subscribers", len(s.subs))
}

func (s *Store) Insert(ctx context.Context, room *domain.Room) error {
	logger.StoreCall(backendName, "insert", "name", room.Name)
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writableLocked(); err != nil {
		logger.StoreResult(backendName, "insert", err)
		return err
	}

	room.ID = uuid.NewString()
	stored := *room
	if room.CurrentBooking != nil {
		b := *room.CurrentBooking
		stored.CurrentBooking = &b
	}
	s.rooms[room.ID] = stored
	s.publishLocked()

	logger.StoreResult(backendName, "insert", nil, "room_id", room.ID)
	return nil
}

func (s *Store) Update(ctx context.Context, roomID string, update domain.RoomUpdate) error {
	logger.StoreCall(backendName, "update", "room_id", roomID, "status", update.Status)
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writableLocked(); err != nil {
		logger.StoreResult(backendName, "update", err)
		return err
	}

	room, ok := s.rooms[roomID]
	if !ok {
		err := fmt.Errorf("room %s: %w", roomID, domain.ErrRoomNotFound)
		logger.StoreResult(backendName, "update", err)
		return err
	}
	if room.Apply(update) {
		s.rooms[roomID] = room
		s.publishLocked()
	}

	logger.StoreResult(backendName, "update", nil, "room_id", roomID)
	return nil
}

// Close ends every live subscription.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	subs := make([]*subscriber, 0, len(s.subs))
	for sb := range s.subs {
		subs = append(subs, sb)
	}
	s.mu.Unlock()

	for _, sb := range subs {
		sb.sub.Cancel()
	}
	return nil
}

func (s *Store) writableLocked() error {
	if s.closed {
		return errClosed
	}
	if s.writeErr != nil {
		return fmt.Errorf("write rejected: %w", s.writeErr)
	}
	return nil
}

// publishLocked replaces each subscriber's pending snapshot with the current
// state so a slow subscriber only ever sees the latest full list.
func (s *Store) publishLocked() {
	for sb := range s.subs {
		rooms := s.snapshotLocked()
		select {
		case <-sb.pending:
		default:
		}
		sb.pending <- rooms
	}
}

func (s *Store) snapshotLocked() []domain.Room {
	rooms := make([]domain.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		if r.CurrentBooking != nil {
			b := *r.CurrentBooking
			r.CurrentBooking = &b
		}
		rooms = append(rooms, r)
	}
	sort.SliceStable(rooms, func(i, j int) bool {
		if rooms[i].Name != rooms[j].Name {
			return rooms[i].Name < rooms[j].Name
		}
		return rooms[i].ID < rooms[j].ID
	})
	return rooms
}
