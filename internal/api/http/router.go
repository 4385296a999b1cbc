package http

import (
	"context"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gorilla/mux"

	"roomrent-dashboard/internal/metrics"
	"roomrent-dashboard/internal/service"
	"roomrent-dashboard/internal/utils"
	"roomrent-dashboard/internal/view"
)

// Options carries the collaborators of the dashboard handlers.
type Options struct {
	Rooms    service.RoomService
	Replica  *view.Replica
	Renderer *view.Renderer
	Metrics  *metrics.Metrics // may be nil

	// Location is the display time zone for "today". Nil means time.Local.
	Location *time.Location
	Now      func() time.Time

	// ShutdownContext ends live streams when the server stops.
	ShutdownContext context.Context
}

// Handler serves the dashboard, its form posts, the JSON API and the live
// room stream.
type Handler struct {
	rooms    service.RoomService
	replica  *view.Replica
	renderer *view.Renderer
	metrics  *metrics.Metrics
	loc      *time.Location
	now      func() time.Time
	shutdown context.Context
}

func NewHandler(opts Options) *Handler {
	h := &Handler{
		rooms:    opts.Rooms,
		replica:  opts.Replica,
		renderer: opts.Renderer,
		metrics:  opts.Metrics,
		loc:      opts.Location,
		now:      opts.Now,
		shutdown: opts.ShutdownContext,
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.shutdown == nil {
		h.shutdown = context.Background()
	}
	return h
}

// NewRouter registers every dashboard route on a fresh router.
func NewRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(h.metrics.Middleware)
	RegisterRoutes(router, h)
	return router
}

func RegisterRoutes(router *mux.Router, h *Handler) {
	router.HandleFunc("/", h.HandleDashboard).Methods("GET")
	router.HandleFunc("/partials/rooms", h.HandleRoomsPartial).Methods("GET")
	router.HandleFunc("/rooms", h.HandleAddRoom).Methods("POST")
	router.HandleFunc("/rooms/{id}/book", h.HandleBookRoom).Methods("POST")
	router.HandleFunc("/rooms/{id}/checkout", h.HandleCheckout).Methods("POST")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/rooms", h.HandleListRooms).Methods("GET")
	api.HandleFunc("/rooms", h.HandleCreateRoom).Methods("POST")
	api.HandleFunc("/rooms/export.xlsx", h.HandleExportRooms).Methods("GET")
	api.HandleFunc("/rooms/{id}/booking", h.HandlePutBooking).Methods("PUT")
	api.HandleFunc("/rooms/{id}/booking", h.HandleDeleteBooking).Methods("DELETE")
	api.HandleFunc("/stats", h.HandleStats).Methods("GET")

	router.HandleFunc("/ws/rooms", h.HandleRoomStream).Methods("GET")
	router.HandleFunc("/healthz", h.HandleHealth).Methods("GET")
	router.Handle("/metrics", h.metrics.Handler()).Methods("GET")
}

func (h *Handler) today() civil.Date {
	return utils.Today(h.now(), h.loc)
}

// HandleHealth reports liveness and whether the room list has loaded.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_, loaded := h.replica.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"roomsLoaded": loaded,
	})
}
