package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"roomrent-dashboard/internal/domain"
	"roomrent-dashboard/internal/logger"
	"roomrent-dashboard/internal/repository"
	"roomrent-dashboard/internal/utils"
)

type bookingRecord struct {
	TenantName string `json:"tenantName"`
	CheckIn    string `json:"checkIn"`
	CheckOut   string `json:"checkOut"`
}

func (s *Store) Subscribe(ctx context.Context, onRooms func([]domain.Room), onError func(error)) (repository.CancelFunc, error) {
	n := s.newNotifier()
	if err := n.Listen(roomsChannel); err != nil {
		n.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", roomsChannel, err)
	}

	sub, subCtx := repository.NewSubscription(ctx, onRooms, onError)
	logger.SubscriptionEvent(backendName, "attach", "channel", roomsChannel)

	go func() {
		defer sub.Finish()
		defer n.Close()

		if !s.publish(subCtx, sub) {
			return
		}

		ping := time.NewTicker(s.pingEvery)
		defer ping.Stop()
		for {
			select {
			case <-subCtx.Done():
				logger.SubscriptionEvent(backendName, "release", "channel", roomsChannel)
				return
			case _, ok := <-n.NotificationChannel():
				// a nil notification follows a reconnect; re-read either way
				if !ok {
					sub.Fail(errors.New("rooms listener closed"))
					return
				}
				if !s.publish(subCtx, sub) {
					return
				}
			case <-ping.C:
				if err := n.Ping(); err != nil {
					logger.Warn("Rooms listener ping failed", "error", err)
				}
			}
		}
	}()

	return sub.CancelFunc(), nil
}

// publish re-reads the full ordered list and hands it to the subscriber. It
// returns false when the subscription has to end.
func (s *Store) publish(ctx context.Context, sub *repository.Subscription) bool {
	rooms, err := s.ListRooms(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		logger.Error("Room subscription failed", "backend", backendName, "error", err)
		sub.Fail(err)
		return false
	}
	sub.Deliver(rooms)
	return true
}

// ListRooms returns all rooms ordered by name using byte order, matching
// the order of the other backends. Rows whose booking cannot be decoded are
// left out.
func (s *Store) ListRooms(ctx context.Context) ([]domain.Room, error) {
	query := `SELECT id, name, type, price, status, current_booking, created_at FROM rooms ORDER BY name COLLATE "C" ASC, id ASC`
	logger.StoreCall(backendName, "list")
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		logger.StoreResult(backendName, "list", err)
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	rooms := []domain.Room{}
	for rows.Next() {
		var (
			r       domain.Room
			booking []byte
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Type, &r.Price, &r.Status, &booking, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		r.CurrentBooking, err = decodeBooking(booking)
		if err != nil {
			logger.Warn("Skipping room with unreadable booking", "backend", backendName, "room_id", r.ID, "error", err)
			continue
		}
		rooms = append(rooms, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rooms: %w", err)
	}
	logger.StoreResult(backendName, "list", nil, "rooms", len(rooms))
	return rooms, nil
}

func (s *Store) Insert(ctx context.Context, room *domain.Room) error {
	query := `INSERT INTO rooms (id, name, type, price, status, current_booking, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	logger.StoreCall(backendName, "insert", "name", room.Name)

	booking, err := encodeBooking(room.CurrentBooking)
	if err != nil {
		return err
	}
	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, query, id, room.Name, string(room.Type), room.Price, string(room.Status), booking, room.CreatedAt)
	logger.StoreResult(backendName, "insert", err, "room_id", id)
	if err != nil {
		return fmt.Errorf("failed to insert room: %w", err)
	}
	room.ID = id
	return nil
}

func (s *Store) Update(ctx context.Context, roomID string, update domain.RoomUpdate) error {
	query := `UPDATE rooms SET status = $1, current_booking = $2 WHERE id = $3`
	logger.StoreCall(backendName, "update", "room_id", roomID, "status", update.Status)

	booking, err := encodeBooking(update.CurrentBooking)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, query, string(update.Status), booking, roomID)
	if err != nil {
		logger.StoreResult(backendName, "update", err, "room_id", roomID)
		return fmt.Errorf("failed to update room %s: %w", roomID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update room %s: %w", roomID, err)
	}
	if affected == 0 {
		return fmt.Errorf("room %s: %w", roomID, domain.ErrRoomNotFound)
	}
	logger.StoreResult(backendName, "update", nil, "room_id", roomID)
	return nil
}

// encodeBooking returns nil for no booking so the column is stored as NULL.
func encodeBooking(b *domain.Booking) (any, error) {
	if b == nil {
		return nil, nil
	}
	data, err := json.Marshal(bookingRecord{
		TenantName: b.TenantName,
		CheckIn:    b.CheckIn.String(),
		CheckOut:   b.CheckOut.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode booking: %w", err)
	}
	return string(data), nil
}

func decodeBooking(data []byte) (*domain.Booking, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var rec bookingRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode booking: %w", err)
	}
	checkIn, err := utils.ParseDate(rec.CheckIn)
	if err != nil {
		return nil, err
	}
	checkOut, err := utils.ParseDate(rec.CheckOut)
	if err != nil {
		return nil, err
	}
	return &domain.Booking{TenantName: rec.TenantName, CheckIn: checkIn, CheckOut: checkOut}, nil
}
