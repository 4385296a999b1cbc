package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

type RoomType string

const (
	RoomTypeStandard RoomType = "Standard"
	RoomTypeDeluxe   RoomType = "Deluxe"
	RoomTypeSuite    RoomType = "Suite"
)

// RoomTypes lists the categories in the order the add-room form offers them.
var RoomTypes = []RoomType{RoomTypeStandard, RoomTypeDeluxe, RoomTypeSuite}

// ParseRoomType matches a category name case-insensitively.
func ParseRoomType(s string) (RoomType, error) {
	for _, t := range RoomTypes {
		if strings.EqualFold(strings.TrimSpace(s), string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown room type %q", ErrInvalidRoom, s)
}

type RoomStatus string

const (
	RoomStatusAvailable RoomStatus = "available"
	RoomStatusOccupied  RoomStatus = "occupied"
)

type Booking struct {
	TenantName string     `json:"tenantName"`
	CheckIn    civil.Date `json:"checkIn"`
	CheckOut   civil.Date `json:"checkOut"`
}

type Room struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Type           RoomType   `json:"type"`
	Price          float64    `json:"price"`
	Status         RoomStatus `json:"status"`
	CurrentBooking *Booking   `json:"currentBooking"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// NewRoom builds an available room with no booking. The ID is left empty
// until the store assigns one.
func NewRoom(name string, roomType RoomType, price float64, createdAt time.Time) (*Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRoom)
	}
	if _, err := ParseRoomType(string(roomType)); err != nil {
		return nil, err
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return nil, fmt.Errorf("%w: price must be a non-negative number", ErrInvalidRoom)
	}
	return &Room{
		Name:      name,
		Type:      roomType,
		Price:     price,
		Status:    RoomStatusAvailable,
		CreatedAt: createdAt,
	}, nil
}

// NewBooking validates the tenant name and the stay range. A same-day stay
// (checkOut == checkIn) is allowed.
func NewBooking(tenantName string, checkIn, checkOut civil.Date) (*Booking, error) {
	tenantName = strings.TrimSpace(tenantName)
	if tenantName == "" {
		return nil, fmt.Errorf("%w: tenant name is required", ErrInvalidBooking)
	}
	if !checkIn.IsValid() || !checkOut.IsValid() {
		return nil, fmt.Errorf("%w: check-in and check-out dates are required", ErrInvalidBooking)
	}
	if checkOut.Before(checkIn) {
		return nil, fmt.Errorf("%w: check-out %s is before check-in %s", ErrInvalidBooking, checkOut, checkIn)
	}
	return &Booking{TenantName: tenantName, CheckIn: checkIn, CheckOut: checkOut}, nil
}

func (b *Booking) Equal(other *Booking) bool {
	if b == nil || other == nil {
		return b == other
	}
	return *b == *other
}

func (r Room) IsOccupied() bool {
	return r.Status == RoomStatusOccupied
}

// RoomUpdate is the only mutation a room accepts after creation. Status and
// CurrentBooking always change together so occupied iff a booking is set.
type RoomUpdate struct {
	Status         RoomStatus
	CurrentBooking *Booking
}

func BookUpdate(b Booking) RoomUpdate {
	return RoomUpdate{Status: RoomStatusOccupied, CurrentBooking: &b}
}

func CheckoutUpdate() RoomUpdate {
	return RoomUpdate{Status: RoomStatusAvailable}
}

// Apply writes the update onto r and reports whether anything changed.
func (r *Room) Apply(u RoomUpdate) bool {
	if r.Status == u.Status && r.CurrentBooking.Equal(u.CurrentBooking) {
		return false
	}
	r.Status = u.Status
	if u.CurrentBooking != nil {
		b := *u.CurrentBooking
		r.CurrentBooking = &b
	} else {
		r.CurrentBooking = nil
	}
	return true
}
