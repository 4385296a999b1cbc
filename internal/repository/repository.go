package repository

import (
	"context"

	"roomrent-dashboard/internal/domain"
)

// CancelFunc releases a live query. It is safe to call more than once.
type CancelFunc func()

// RoomStore is the remote store adapter for the rooms collection.
type RoomStore interface {
	// Subscribe attaches a live query ordered by name ascending. onRooms gets
	// the full result set on attach and after every change; callbacks for one
	// subscription never run concurrently. A failure of the live query is
	// reported once to onError and ends the subscription.
	Subscribe(ctx context.Context, onRooms func([]domain.Room), onError func(error)) (CancelFunc, error)

	// Insert writes a new room and sets room.ID to the store-assigned id.
	Insert(ctx context.Context, room *domain.Room) error

	// Update writes status and currentBooking of an existing room. It returns
	// domain.ErrRoomNotFound when roomID does not exist.
	Update(ctx context.Context, roomID string, update domain.RoomUpdate) error

	Close() error
}
