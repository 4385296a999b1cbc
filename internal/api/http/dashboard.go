package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"roomrent-dashboard/internal/domain"
	"roomrent-dashboard/internal/logger"
	"roomrent-dashboard/internal/utils"
	"roomrent-dashboard/internal/view"
)

func (h *Handler) dashboard() view.Dashboard {
	rooms, loaded := h.replica.Snapshot()
	return view.BuildDashboard(rooms, loaded, h.today())
}

// HandleDashboard renders the full page. A failed form post comes back here
// with ?error= and the page raises the matching alert.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	d := h.dashboard()
	d.Alert = view.AlertMessage(r.URL.Query().Get("error"))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.renderer.RenderPage(w, d); err != nil {
		logger.Error("Failed to render dashboard", "error", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

// HandleRoomsPartial renders only the room grid.
func (h *Handler) HandleRoomsPartial(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.renderer.RenderRooms(w, h.dashboard()); err != nil {
		logger.Error("Failed to render rooms", "error", err)
		http.Error(w, "Failed to render rooms", http.StatusInternalServerError)
	}
}

func (h *Handler) HandleAddRoom(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWithAlert(w, r, view.AlertAddRoom)
		return
	}

	roomType, err := domain.ParseRoomType(r.PostFormValue("type"))
	if err != nil {
		logger.Warn("Rejected room form", "error", err)
		redirectWithAlert(w, r, view.AlertAddRoom)
		return
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(r.PostFormValue("price")), 64)
	if err != nil {
		logger.Warn("Rejected room form", "error", err)
		redirectWithAlert(w, r, view.AlertAddRoom)
		return
	}

	if _, err := h.rooms.CreateRoom(r.Context(), r.PostFormValue("name"), roomType, price); err != nil {
		redirectWithAlert(w, r, view.AlertAddRoom)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) HandleBookRoom(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]
	if err := r.ParseForm(); err != nil {
		redirectWithAlert(w, r, view.AlertBookRoom)
		return
	}

	checkIn, err := utils.ParseDate(r.PostFormValue("checkIn"))
	if err != nil {
		logger.Warn("Rejected booking form", "room_id", roomID, "error", err)
		redirectWithAlert(w, r, view.AlertBookRoom)
		return
	}
	checkOut, err := utils.ParseDate(r.PostFormValue("checkOut"))
	if err != nil {
		logger.Warn("Rejected booking form", "room_id", roomID, "error", err)
		redirectWithAlert(w, r, view.AlertBookRoom)
		return
	}

	booking := domain.Booking{TenantName: r.PostFormValue("tenantName"), CheckIn: checkIn, CheckOut: checkOut}
	if err := h.rooms.BookRoom(r.Context(), roomID, booking); err != nil {
		redirectWithAlert(w, r, view.AlertBookRoom)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleCheckout runs after the browser-side confirmation.
func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	if err := h.rooms.CheckoutRoom(r.Context(), mux.Vars(r)["id"]); err != nil {
		redirectWithAlert(w, r, view.AlertCheckout)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func redirectWithAlert(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, "/?error="+url.QueryEscape(code), http.StatusSeeOther)
}
