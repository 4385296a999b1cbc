package view

import (
	"strconv"

	"cloud.google.com/go/civil"

	"roomrent-dashboard/internal/domain"
	"roomrent-dashboard/internal/utils"
)

// Alert codes carried in the ?error= query parameter after a failed form post.
const (
	AlertAddRoom  = "add"
	AlertBookRoom = "book"
	AlertCheckout = "checkout"
)

var alertMessages = map[string]string{
	AlertAddRoom:  "Failed to add room",
	AlertBookRoom: "Failed to book room",
	AlertCheckout: "Failed to check out",
}

// AlertMessage returns the user-facing text for code, or "" for unknown codes.
func AlertMessage(code string) string {
	return alertMessages[code]
}

const (
	LoadingText        = "Loading rooms..."
	EmptyText          = "No rooms found. Add one to get started!"
	CheckoutPromptText = "Are you sure you want to check out this tenant?"
)

type Dashboard struct {
	Loading bool
	Empty   bool
	Stats   domain.Stats
	Cards   []RoomCard

	RoomTypes       []domain.RoomType
	DefaultRoomType domain.RoomType
	DefaultCheckIn  string
	DefaultCheckOut string

	Alert          string
	LoadingText    string
	EmptyText      string
	CheckoutPrompt string
}

type RoomCard struct {
	ID          string
	Title       string
	Type        string
	Price       string
	StatusLabel string
	Occupied    bool

	Tenant   string
	CheckIn  string
	CheckOut string
	TimeLeft string
	Urgent   bool
}

// BuildDashboard derives everything the page shows from one snapshot. today
// drives the time-left labels and the booking form defaults.
func BuildDashboard(rooms []domain.Room, loaded bool, today civil.Date) Dashboard {
	d := Dashboard{
		Loading:         !loaded,
		Stats:           domain.ComputeStats(rooms),
		RoomTypes:       domain.RoomTypes,
		DefaultRoomType: domain.RoomTypeStandard,
		DefaultCheckIn:  today.String(),
		DefaultCheckOut: today.AddDays(1).String(),
		LoadingText:     LoadingText,
		EmptyText:       EmptyText,
		CheckoutPrompt:  CheckoutPromptText,
	}
	if !loaded {
		return d
	}

	d.Empty = len(rooms) == 0
	d.Cards = make([]RoomCard, 0, len(rooms))
	for _, r := range rooms {
		d.Cards = append(d.Cards, NewRoomCard(r, today))
	}
	return d
}

func NewRoomCard(r domain.Room, today civil.Date) RoomCard {
	card := RoomCard{
		ID:          r.ID,
		Title:       "Room " + r.Name,
		Type:        string(r.Type),
		Price:       FormatPrice(r.Price),
		StatusLabel: "Available",
	}
	if !r.IsOccupied() {
		return card
	}

	card.Occupied = true
	card.StatusLabel = "Booked"
	if b := r.CurrentBooking; b != nil {
		days := utils.DaysLeft(b.CheckOut, today)
		card.Tenant = b.TenantName
		card.CheckIn = b.CheckIn.String()
		card.CheckOut = b.CheckOut.String()
		card.TimeLeft = utils.TimeLeftLabel(days)
		card.Urgent = utils.IsUrgent(days)
	}
	return card
}

// FormatPrice prints the shortest decimal form, so 50 reads "50" and 49.5
// reads "49.5".
func FormatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}
