package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"roomrent-dashboard/internal/domain"
	"roomrent-dashboard/internal/metrics"
	"roomrent-dashboard/internal/repository/memory"
	"roomrent-dashboard/internal/service"
	"roomrent-dashboard/internal/utils"
	"roomrent-dashboard/internal/view"
)

var testNow = time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	store   *memory.Store
	rooms   service.RoomService
	replica *view.Replica
	router  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	m := metrics.New("test", prometheus.NewRegistry())
	rooms := service.NewRoomServiceWithClock(store, m, func() time.Time { return testNow })
	replica := view.NewReplica(rooms)
	require.NoError(t, replica.Start(context.Background()))

	renderer, err := view.NewRenderer()
	require.NoError(t, err)

	h := NewHandler(Options{
		Rooms:    rooms,
		Replica:  replica,
		Renderer: renderer,
		Metrics:  m,
		Location: time.UTC,
		Now:      func() time.Time { return testNow },
	})
	t.Cleanup(func() {
		replica.Close()
		store.Close()
	})

	env := &testEnv{store: store, rooms: rooms, replica: replica, router: NewRouter(h)}
	env.waitForRooms(t, 0)
	return env
}

func mustDate(t *testing.T, s string) civil.Date {
	t.Helper()
	d, err := utils.ParseDate(s)
	require.NoError(t, err)
	return d
}

func (e *testEnv) waitForRooms(t *testing.T, n int) []domain.Room {
	t.Helper()
	var rooms []domain.Room
	require.Eventually(t, func() bool {
		var loaded bool
		rooms, loaded = e.replica.Snapshot()
		return loaded && len(rooms) == n
	}, time.Second, 5*time.Millisecond)
	return rooms
}

func (e *testEnv) do(method, target string, body string, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postForm(target string, form url.Values) *httptest.ResponseRecorder {
	return e.do(http.MethodPost, target, form.Encode(), "application/x-www-form-urlencoded")
}

func (e *testEnv) addRoom(t *testing.T, name string) domain.Room {
	t.Helper()
	room, err := e.rooms.CreateRoom(context.Background(), name, domain.RoomTypeStandard, 50)
	require.NoError(t, err)
	return *room
}

func TestDashboard_Loading(t *testing.T) {
	store := memory.NewStore()
	defer store.Close()
	rooms := service.NewRoomService(store, nil)
	renderer, err := view.NewRenderer()
	require.NoError(t, err)
	h := NewHandler(Options{Rooms: rooms, Replica: view.NewReplica(rooms), Renderer: renderer})

	rec := httptest.NewRecorder()
	NewRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Loading rooms...")

	rec = httptest.NewRecorder()
	NewRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDashboard_EmptyAndAlert(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/?error=checkout", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No rooms found. Add one to get started!")
	assert.Contains(t, rec.Body.String(), "Failed to check out")
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}

func TestForms_AddBookCheckout(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postForm("/rooms", url.Values{"name": {"101"}, "type": {"Standard"}, "price": {"50"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	rooms := env.waitForRooms(t, 1)
	roomID := rooms[0].ID

	rec = env.postForm("/rooms/"+roomID+"/book", url.Values{
		"tenantName": {"Alice"}, "checkIn": {"2024-01-01"}, "checkOut": {"2024-01-05"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	require.Eventually(t, func() bool {
		rooms, _ := env.replica.Snapshot()
		return rooms[0].IsOccupied()
	}, time.Second, 5*time.Millisecond)

	page := env.do(http.MethodGet, "/partials/rooms", "", "").Body.String()
	assert.Contains(t, page, "Room 101")
	assert.Contains(t, page, "Alice")
	assert.Contains(t, page, "2 days")

	rec = env.postForm("/rooms/"+roomID+"/checkout", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	require.Eventually(t, func() bool {
		rooms, _ := env.replica.Snapshot()
		return !rooms[0].IsOccupied() && rooms[0].CurrentBooking == nil
	}, time.Second, 5*time.Millisecond)
}

func TestForms_Failures(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t, "101")

	tests := []struct {
		name     string
		target   string
		form     url.Values
		location string
	}{
		{"Missing price", "/rooms", url.Values{"name": {"101"}, "type": {"Standard"}}, "/?error=add"},
		{"Unknown type", "/rooms", url.Values{"name": {"101"}, "type": {"Single"}, "price": {"5"}}, "/?error=add"},
		{"Blank name", "/rooms", url.Values{"name": {"  "}, "type": {"Suite"}, "price": {"5"}}, "/?error=add"},
		{"Bad date", "/rooms/" + room.ID + "/book", url.Values{"tenantName": {"Bob"}, "checkIn": {"01/01/2024"}, "checkOut": {"2024-01-02"}}, "/?error=book"},
		{"Reversed dates", "/rooms/" + room.ID + "/book", url.Values{"tenantName": {"Bob"}, "checkIn": {"2024-01-05"}, "checkOut": {"2024-01-02"}}, "/?error=book"},
		{"Unknown room", "/rooms/missing/book", url.Values{"tenantName": {"Bob"}, "checkIn": {"2024-01-01"}, "checkOut": {"2024-01-02"}}, "/?error=book"},
		{"Checkout unknown room", "/rooms/missing/checkout", nil, "/?error=checkout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.postForm(tt.target, tt.form)
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, tt.location, rec.Header().Get("Location"))
		})
	}

	t.Run("Store write failure", func(t *testing.T) {
		env.store.SetWriteError(errors.New("permission denied"))
		defer env.store.SetWriteError(nil)

		rec := env.postForm("/rooms", url.Values{"name": {"102"}, "type": {"Deluxe"}, "price": {"80"}})
		assert.Equal(t, "/?error=add", rec.Header().Get("Location"))
	})
}

func TestAPI_Rooms(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/rooms", `{"name":"201","type":"suite","price":199.99}`, "application/json")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created domain.Room
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, domain.RoomTypeSuite, created.Type)
	assert.Equal(t, domain.RoomStatusAvailable, created.Status)
	env.waitForRooms(t, 1)

	rec = env.do(http.MethodPut, "/api/v1/rooms/"+created.ID+"/booking",
		`{"tenantName":"Alice","checkIn":"2024-01-01","checkOut":"2024-01-05"}`, "application/json")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.Eventually(t, func() bool {
		rooms, _ := env.replica.Snapshot()
		return rooms[0].IsOccupied()
	}, time.Second, 5*time.Millisecond)

	rec = env.do(http.MethodGet, "/api/v1/stats", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total":1,"available":0,"occupied":1}`, rec.Body.String())

	rec = env.do(http.MethodGet, "/api/v1/rooms", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Rooms []domain.Room `json:"rooms"`
		Stats domain.Stats  `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Rooms, 1)
	require.NotNil(t, listed.Rooms[0].CurrentBooking)
	assert.Equal(t, "2024-01-05", listed.Rooms[0].CurrentBooking.CheckOut.String())

	rec = env.do(http.MethodDelete, "/api/v1/rooms/"+created.ID+"/booking", "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(http.MethodDelete, "/api/v1/rooms/"+created.ID+"/booking", "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAPI_Errors(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t, "101")

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
	}{
		{"Malformed body", http.MethodPost, "/api/v1/rooms", `{`, http.StatusBadRequest},
		{"Negative price", http.MethodPost, "/api/v1/rooms", `{"name":"x","type":"Standard","price":-1}`, http.StatusBadRequest},
		{"Missing price", http.MethodPost, "/api/v1/rooms", `{"name":"x","type":"Standard"}`, http.StatusBadRequest},
		{"Null price", http.MethodPost, "/api/v1/rooms", `{"name":"x","type":"Standard","price":null}`, http.StatusBadRequest},
		{"Unknown type", http.MethodPost, "/api/v1/rooms", `{"name":"x","type":"Penthouse","price":1}`, http.StatusBadRequest},
		{"Empty tenant", http.MethodPut, "/api/v1/rooms/" + room.ID + "/booking", `{"tenantName":"","checkIn":"2024-01-01","checkOut":"2024-01-02"}`, http.StatusBadRequest},
		{"Bad date", http.MethodPut, "/api/v1/rooms/" + room.ID + "/booking", `{"tenantName":"A","checkIn":"tomorrow","checkOut":"2024-01-02"}`, http.StatusBadRequest},
		{"Unknown room", http.MethodPut, "/api/v1/rooms/missing/booking", `{"tenantName":"A","checkIn":"2024-01-01","checkOut":"2024-01-02"}`, http.StatusNotFound},
		{"Checkout unknown room", http.MethodDelete, "/api/v1/rooms/missing/booking", ``, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(tt.method, tt.target, tt.body, "application/json")
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}

	t.Run("Rejected create adds nothing", func(t *testing.T) {
		rooms, err := env.rooms.ListRooms(context.Background())
		require.NoError(t, err)
		assert.Len(t, rooms, 1)
	})

	t.Run("Store failure", func(t *testing.T) {
		env.store.SetWriteError(errors.New("unavailable"))
		defer env.store.SetWriteError(nil)

		rec := env.do(http.MethodDelete, "/api/v1/rooms/"+room.ID+"/booking", "", "")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestAPI_Export(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t, "101")
	env.addRoom(t, "102")
	require.NoError(t, env.rooms.BookRoom(context.Background(), room.ID, domain.Booking{
		TenantName: "Alice",
		CheckIn:    mustDate(t, "2024-01-01"),
		CheckOut:   mustDate(t, "2024-01-03"),
	}))

	rec := env.do(http.MethodGet, "/api/v1/rooms/export.xlsx", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "rooms.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, roomExportHeader, rows[0])
	assert.Equal(t, []string{"101", "Standard", "50", "Booked", "Alice", "2024-01-01", "2024-01-03", "Due today"}, rows[1])
	assert.Equal(t, "Available", rows[2][3])
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","roomsLoaded":true}`, rec.Body.String())

	rec = env.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_http_requests_total")
	assert.Contains(t, rec.Body.String(), "test_live_subscriptions 1")
}

func TestRoomStream(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/rooms"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() roomsMessage {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg roomsMessage
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	first := read()
	assert.Equal(t, domain.Stats{}, first.Stats)
	assert.Contains(t, first.HTML, "No rooms found")

	env.addRoom(t, "101")
	var msg roomsMessage
	for i := 0; i < 3; i++ {
		msg = read()
		if msg.Stats.Total == 1 {
			break
		}
	}
	assert.Equal(t, domain.Stats{Total: 1, Available: 1}, msg.Stats)
	require.Len(t, msg.Rooms, 1)
	assert.Contains(t, msg.HTML, "Room 101")
}

func TestRoomStream_ServerShutdown(t *testing.T) {
	store := memory.NewStore()
	defer store.Close()
	rooms := service.NewRoomService(store, nil)
	replica := view.NewReplica(rooms)
	renderer, err := view.NewRenderer()
	require.NoError(t, err)

	shutdown, stop := context.WithCancel(context.Background())
	h := NewHandler(Options{Rooms: rooms, Replica: replica, Renderer: renderer, ShutdownContext: shutdown})
	server := httptest.NewServer(NewRouter(h))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws/rooms", nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg roomsMessage
	require.NoError(t, conn.ReadJSON(&msg))

	stop()
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected error: %v", err)
}
