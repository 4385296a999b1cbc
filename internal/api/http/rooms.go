package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"roomrent-dashboard/internal/domain"
)

type createRoomRequest struct {
	Name  string  `json:"name"`
	Type  string  `json:"type"`
	Price *float64 `json:"price"`
}

// HandleListRooms returns the replica's current rooms. It answers 503 until
// the first snapshot has arrived.
func (h *Handler) HandleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, loaded := h.replica.Snapshot()
	if !loaded {
		writeError(w, http.StatusServiceUnavailable, "rooms are still loading")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rooms": rooms,
		"stats": domain.ComputeStats(rooms),
	})
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	rooms, loaded := h.replica.Snapshot()
	if !loaded {
		writeError(w, http.StatusServiceUnavailable, "rooms are still loading")
		return
	}
	writeJSON(w, http.StatusOK, domain.ComputeStats(rooms))
}

func (h *Handler) HandleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Price == nil {
		writeServiceError(w, fmt.Errorf("price is required: %w", domain.ErrInvalidRoom))
		return
	}
	roomType, err := domain.ParseRoomType(req.Type)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	room, err := h.rooms.CreateRoom(r.Context(), req.Name, roomType, *req.Price)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

// HandlePutBooking books the room. An existing booking is replaced.
func (h *Handler) HandlePutBooking(w http.ResponseWriter, r *http.Request) {
	var booking domain.Booking
	if err := json.NewDecoder(r.Body).Decode(&booking); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: dates must be yyyy-mm-dd")
		return
	}
	if err := h.rooms.BookRoom(r.Context(), mux.Vars(r)["id"], booking); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleDeleteBooking(w http.ResponseWriter, r *http.Request) {
	if err := h.rooms.CheckoutRoom(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps validation errors to 400, unknown rooms to 404 and
// everything else, which came from the store, to 502.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRoom), errors.Is(err, domain.ErrInvalidBooking):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}
