package service

import (
	"context"

	"roomrent-dashboard/internal/domain"
	"roomrent-dashboard/internal/repository"
)

// RoomService is the room repository the dashboard talks to. Reads are live
// subscriptions; writes go straight to the store with no local state.
type RoomService interface {
	CreateRoom(ctx context.Context, name string, roomType domain.RoomType, price float64) (*domain.Room, error)
	SubscribeRooms(ctx context.Context, onRooms func([]domain.Room), onError func(error)) (repository.CancelFunc, error)
	BookRoom(ctx context.Context, roomID string, booking domain.Booking) error
	CheckoutRoom(ctx context.Context, roomID string) error
	ListRooms(ctx context.Context) ([]domain.Room, error)
}
