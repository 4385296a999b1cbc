package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"roomrent-dashboard/internal/domain"
	"roomrent-dashboard/internal/repository"
)

// MockRoomStore
type MockRoomStore struct {
	mock.Mock
}

func (m *MockRoomStore) Subscribe(ctx context.Context, onRooms func([]domain.Room), onError func(error)) (repository.CancelFunc, error) {
	args := m.Called(ctx, onRooms, onError)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(repository.CancelFunc), args.Error(1)
}

func (m *MockRoomStore) Insert(ctx context.Context, room *domain.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *MockRoomStore) Update(ctx context.Context, roomID string, update domain.RoomUpdate) error {
	args := m.Called(ctx, roomID, update)
	return args.Error(0)
}

func (m *MockRoomStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
