package firestore

import (
	"fmt"
	"time"

	"roomrent-dashboard/internal/domain"
	"roomrent-dashboard/internal/utils"
)

// Field paths in the rooms collection.
const (
	fieldName           = "name"
	fieldStatus         = "status"
	fieldCurrentBooking = "currentBooking"
)

type roomDocument struct {
	Name           string           `firestore:"name"`
	Type           string           `firestore:"type"`
	Price          float64          `firestore:"price"`
	Status         string           `firestore:"status"`
	CurrentBooking *bookingDocument `firestore:"currentBooking"`
	CreatedAt      time.Time        `firestore:"createdAt"`
}

// Booking dates are stored as yyyy-mm-dd strings, the format the browser
// date inputs produce.
type bookingDocument struct {
	TenantName string `firestore:"tenantName"`
	CheckIn    string `firestore:"checkIn"`
	CheckOut   string `firestore:"checkOut"`
}

func toRoomDocument(r *domain.Room) roomDocument {
	return roomDocument{
		Name:           r.Name,
		Type:           string(r.Type),
		Price:          r.Price,
		Status:         string(r.Status),
		CurrentBooking: toBookingDocument(r.CurrentBooking),
		CreatedAt:      r.CreatedAt,
	}
}

func toBookingDocument(b *domain.Booking) *bookingDocument {
	if b == nil {
		return nil
	}
	return &bookingDocument{
		TenantName: b.TenantName,
		CheckIn:    b.CheckIn.String(),
		CheckOut:   b.CheckOut.String(),
	}
}

// fromRoomDocument maps a stored document back to a Room. Documents written
// by other clients are trusted for name and price; status is normalized so
// occupied always comes with a booking.
func fromRoomDocument(id string, d roomDocument) (domain.Room, error) {
	room := domain.Room{
		ID:        id,
		Name:      d.Name,
		Type:      domain.RoomType(d.Type),
		Price:     d.Price,
		Status:    domain.RoomStatusAvailable,
		CreatedAt: d.CreatedAt,
	}
	if d.CurrentBooking != nil {
		checkIn, err := utils.ParseDate(d.CurrentBooking.CheckIn)
		if err != nil {
			return domain.Room{}, fmt.Errorf("room %s check-in: %w", id, err)
		}
		checkOut, err := utils.ParseDate(d.CurrentBooking.CheckOut)
		if err != nil {
			return domain.Room{}, fmt.Errorf("room %s check-out: %w", id, err)
		}
		room.Status = domain.RoomStatusOccupied
		room.CurrentBooking = &domain.Booking{
			TenantName: d.CurrentBooking.TenantName,
			CheckIn:    checkIn,
			CheckOut:   checkOut,
		}
	}
	return room, nil
}
