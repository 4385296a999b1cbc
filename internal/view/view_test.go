package view

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomrent-dashboard/internal/domain"
	"roomrent-dashboard/internal/repository"
)

var today = civil.Date{Year: 2024, Month: time.January, Day: 3}

func sampleRooms() []domain.Room {
	return []domain.Room{
		{ID: "r1", Name: "101", Type: domain.RoomTypeStandard, Price: 50, Status: domain.RoomStatusAvailable},
		{
			ID: "r2", Name: "102", Type: domain.RoomTypeSuite, Price: 149.5, Status: domain.RoomStatusOccupied,
			CurrentBooking: &domain.Booking{
				TenantName: "Alice",
				CheckIn:    civil.Date{Year: 2024, Month: time.January, Day: 1},
				CheckOut:   civil.Date{Year: 2024, Month: time.January, Day: 4},
			},
		},
		{
			ID: "r3", Name: "103", Type: domain.RoomTypeDeluxe, Price: 80, Status: domain.RoomStatusOccupied,
			CurrentBooking: &domain.Booking{
				TenantName: "Bob",
				CheckIn:    civil.Date{Year: 2024, Month: time.January, Day: 1},
				CheckOut:   civil.Date{Year: 2024, Month: time.January, Day: 10},
			},
		},
	}
}

func TestBuildDashboard(t *testing.T) {
	t.Run("Loading", func(t *testing.T) {
		d := BuildDashboard(nil, false, today)
		assert.True(t, d.Loading)
		assert.False(t, d.Empty)
		assert.Empty(t, d.Cards)
		assert.Equal(t, "2024-01-03", d.DefaultCheckIn)
		assert.Equal(t, "2024-01-04", d.DefaultCheckOut)
	})

	t.Run("Empty", func(t *testing.T) {
		d := BuildDashboard([]domain.Room{}, true, today)
		assert.False(t, d.Loading)
		assert.True(t, d.Empty)
		assert.Equal(t, domain.Stats{}, d.Stats)
	})

	t.Run("Cards", func(t *testing.T) {
		d := BuildDashboard(sampleRooms(), true, today)
		require.Len(t, d.Cards, 3)
		assert.Equal(t, domain.Stats{Total: 3, Available: 1, Occupied: 2}, d.Stats)

		free := d.Cards[0]
		assert.Equal(t, "Room 101", free.Title)
		assert.Equal(t, "Available", free.StatusLabel)
		assert.Equal(t, "50", free.Price)
		assert.False(t, free.Occupied)
		assert.Empty(t, free.TimeLeft)

		dueSoon := d.Cards[1]
		assert.Equal(t, "Booked", dueSoon.StatusLabel)
		assert.Equal(t, "149.5", dueSoon.Price)
		assert.Equal(t, "Alice", dueSoon.Tenant)
		assert.Equal(t, "1 days", dueSoon.TimeLeft)
		assert.True(t, dueSoon.Urgent)

		later := d.Cards[2]
		assert.Equal(t, "7 days", later.TimeLeft)
		assert.False(t, later.Urgent)
	})

	t.Run("Overdue reads due today", func(t *testing.T) {
		rooms := sampleRooms()
		card := NewRoomCard(rooms[1], civil.Date{Year: 2024, Month: time.January, Day: 9})
		assert.Equal(t, "Due today", card.TimeLeft)
		assert.True(t, card.Urgent)
	})
}

func TestAlertMessage(t *testing.T) {
	assert.Equal(t, "Failed to add room", AlertMessage(AlertAddRoom))
	assert.Equal(t, "Failed to book room", AlertMessage(AlertBookRoom))
	assert.Equal(t, "Failed to check out", AlertMessage(AlertCheckout))
	assert.Empty(t, AlertMessage("<script>"))
}

func TestRenderer(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	t.Run("Page", func(t *testing.T) {
		d := BuildDashboard(sampleRooms(), true, today)
		d.Alert = AlertMessage(AlertBookRoom)

		var buf bytes.Buffer
		require.NoError(t, r.RenderPage(&buf, d))
		html := buf.String()
		assert.Contains(t, html, "Room Rent Management System")
		assert.Contains(t, html, "Room 101")
		assert.Contains(t, html, "$ 149.5")
		assert.Contains(t, html, `action="/rooms/r3/checkout"`)
		assert.Contains(t, html, `id="stat-occupied" class="danger">2<`)
		assert.Contains(t, html, `value="2024-01-04"`)
		assert.Contains(t, html, "Failed to book room")
		assert.Contains(t, html, "Are you sure you want to check out this tenant?")
	})

	t.Run("Loading fragment", func(t *testing.T) {
		html, err := r.RoomsHTML(BuildDashboard(nil, false, today))
		require.NoError(t, err)
		assert.Contains(t, html, "Loading rooms...")
		assert.NotContains(t, html, "No rooms found")
	})

	t.Run("Empty fragment", func(t *testing.T) {
		html, err := r.RoomsHTML(BuildDashboard(nil, true, today))
		require.NoError(t, err)
		assert.Contains(t, html, "No rooms found. Add one to get started!")
	})

	t.Run("Escapes room names", func(t *testing.T) {
		rooms := []domain.Room{{ID: "x", Name: "<b>bad</b>", Type: domain.RoomTypeStandard, Status: domain.RoomStatusAvailable}}
		html, err := r.RoomsHTML(BuildDashboard(rooms, true, today))
		require.NoError(t, err)
		assert.NotContains(t, html, "<b>bad</b>")
		assert.Equal(t, 1, strings.Count(html, "Book Now"))
	})
}

// fakeRooms is a RoomService whose live query is driven by the test.
type fakeRooms struct {
	mu        sync.Mutex
	onRooms   func([]domain.Room)
	onError   func(error)
	cancelled bool
	subErr    error
}

func (f *fakeRooms) SubscribeRooms(ctx context.Context, onRooms func([]domain.Room), onError func(error)) (repository.CancelFunc, error) {
	if f.subErr != nil {
		return nil, f.subErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onRooms, f.onError = onRooms, onError
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.cancelled = true
	}, nil
}

func (f *fakeRooms) CreateRoom(context.Context, string, domain.RoomType, float64) (*domain.Room, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeRooms) BookRoom(context.Context, string, domain.Booking) error { return nil }
func (f *fakeRooms) CheckoutRoom(context.Context, string) error             { return nil }
func (f *fakeRooms) ListRooms(context.Context) ([]domain.Room, error)       { return nil, nil }

func TestReplica(t *testing.T) {
	ctx := context.Background()

	t.Run("Snapshots replace the cache", func(t *testing.T) {
		svc := &fakeRooms{}
		r := NewReplica(svc)
		var observed [][]domain.Room
		r.OnSnapshot(func(rooms []domain.Room) { observed = append(observed, rooms) })

		require.NoError(t, r.Start(ctx))
		assert.ErrorIs(t, r.Start(ctx), errReplicaStarted)

		rooms, loaded := r.Snapshot()
		assert.False(t, loaded)
		assert.Nil(t, rooms)

		svc.onRooms(sampleRooms())
		svc.onRooms(sampleRooms()[:1])
		rooms, loaded = r.Snapshot()
		assert.True(t, loaded)
		assert.Len(t, rooms, 1)
		assert.Len(t, observed, 2)

		r.Close()
		assert.True(t, svc.cancelled)
	})

	t.Run("Error before data keeps loading", func(t *testing.T) {
		svc := &fakeRooms{}
		r := NewReplica(svc)
		var failures []error
		r.OnError(func(err error) { failures = append(failures, err) })
		require.NoError(t, r.Start(ctx))

		svc.onError(errors.New("permission denied"))
		_, loaded := r.Snapshot()
		assert.False(t, loaded)
		assert.EqualError(t, r.Err(), "permission denied")
		assert.Len(t, failures, 1)
	})

	t.Run("Error after data keeps the stale list", func(t *testing.T) {
		svc := &fakeRooms{}
		r := NewReplica(svc)
		require.NoError(t, r.Start(ctx))

		svc.onRooms(sampleRooms())
		svc.onError(errors.New("unavailable"))
		rooms, loaded := r.Snapshot()
		assert.True(t, loaded)
		assert.Len(t, rooms, 3)
		assert.Error(t, r.Err())
	})

	t.Run("Subscribe failure", func(t *testing.T) {
		r := NewReplica(&fakeRooms{subErr: errors.New("closed")})
		assert.Error(t, r.Start(ctx))
		assert.Error(t, r.Err())
		r.Close()
	})
}
