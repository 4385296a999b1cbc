package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"roomrent-dashboard/internal/domain"
	"roomrent-dashboard/internal/logger"
	"roomrent-dashboard/internal/metrics"
	"roomrent-dashboard/internal/repository"
)

type roomService struct {
	store   repository.RoomStore
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewRoomService wraps store. m may be nil.
func NewRoomService(store repository.RoomStore, m *metrics.Metrics) RoomService {
	return NewRoomServiceWithClock(store, m, time.Now)
}

func NewRoomServiceWithClock(store repository.RoomStore, m *metrics.Metrics, now func() time.Time) RoomService {
	return &roomService{
		store:   store,
		metrics: m,
		now:     now,
	}
}

func (s *roomService) CreateRoom(ctx context.Context, name string, roomType domain.RoomType, price float64) (*domain.Room, error) {
	room, err := domain.NewRoom(name, roomType, price, s.now())
	if err != nil {
		s.metrics.RecordRoomOperation("create", err)
		return nil, err
	}
	if err := s.store.Insert(ctx, room); err != nil {
		s.metrics.RecordRoomOperation("create", err)
		logger.Error("Failed to add room", "name", room.Name, "error", err)
		return nil, fmt.Errorf("failed to add room: %w", err)
	}
	s.metrics.RecordRoomOperation("create", nil)
	logger.Info("Room added", "room_id", room.ID, "name", room.Name, "type", room.Type)
	return room, nil
}

// SubscribeRooms attaches a live query. onRooms receives the complete room
// list sorted by name on attach and after every change. The subscription
// ends on cancel, on ctx cancellation or on the first error.
func (s *roomService) SubscribeRooms(ctx context.Context, onRooms func([]domain.Room), onError func(error)) (repository.CancelFunc, error) {
	var once sync.Once
	opened := s.metrics.SubscriptionOpened()
	release := func() { once.Do(opened) }

	cancel, err := s.store.Subscribe(ctx,
		func(rooms []domain.Room) {
			sortRooms(rooms)
			s.metrics.ObserveRooms(rooms)
			onRooms(rooms)
		},
		func(err error) {
			release()
			logger.Error("Error fetching rooms", "error", err)
			if onError != nil {
				onError(err)
			}
		},
	)
	if err != nil {
		release()
		logger.Error("Error fetching rooms", "error", err)
		return nil, fmt.Errorf("failed to subscribe to rooms: %w", err)
	}

	stop := context.AfterFunc(ctx, release)
	return func() {
		cancel()
		stop()
		release()
	}, nil
}

// BookRoom marks the room occupied with booking. Occupancy is not checked:
// booking an occupied room replaces its current booking.
func (s *roomService) BookRoom(ctx context.Context, roomID string, booking domain.Booking) error {
	b, err := domain.NewBooking(booking.TenantName, booking.CheckIn, booking.CheckOut)
	if err != nil {
		s.metrics.RecordRoomOperation("book", err)
		return err
	}
	err = s.store.Update(ctx, roomID, domain.BookUpdate(*b))
	s.metrics.RecordRoomOperation("book", err)
	if err != nil {
		logger.Error("Failed to book room", "room_id", roomID, "error", err)
		return fmt.Errorf("failed to book room: %w", err)
	}
	logger.Info("Room booked", "room_id", roomID, "tenant", b.TenantName, "check_in", b.CheckIn, "check_out", b.CheckOut)
	return nil
}

// CheckoutRoom frees the room and discards its booking. Checking out an
// available room is a no-op.
func (s *roomService) CheckoutRoom(ctx context.Context, roomID string) error {
	err := s.store.Update(ctx, roomID, domain.CheckoutUpdate())
	s.metrics.RecordRoomOperation("checkout", err)
	if err != nil {
		logger.Error("Failed to check out", "room_id", roomID, "error", err)
		return fmt.Errorf("failed to check out: %w", err)
	}
	logger.Info("Room checked out", "room_id", roomID)
	return nil
}

// ListRooms returns the first snapshot of a short-lived subscription.
func (s *roomService) ListRooms(ctx context.Context) ([]domain.Room, error) {
	type result struct {
		rooms []domain.Room
		err   error
	}
	first := make(chan result, 1)
	deliver := func(r result) {
		select {
		case first <- r:
		default:
		}
	}

	cancel, err := s.store.Subscribe(ctx,
		func(rooms []domain.Room) { deliver(result{rooms: rooms}) },
		func(err error) { deliver(result{err: err}) },
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer cancel()

	select {
	case r := <-first:
		if r.err != nil {
			return nil, fmt.Errorf("failed to list rooms: %w", r.err)
		}
		sortRooms(r.rooms)
		return r.rooms, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func sortRooms(rooms []domain.Room) {
	slices.SortStableFunc(rooms, func(a, b domain.Room) int {
		return cmp.Compare(a.Name, b.Name)
	})
}
