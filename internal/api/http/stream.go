package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"roomrent-dashboard/internal/domain"
	"roomrent-dashboard/internal/logger"
	"roomrent-dashboard/internal/view"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// roomsMessage is one live push: the new stats, the raw rooms and the
// re-rendered grid.
type roomsMessage struct {
	Stats domain.Stats  `json:"stats"`
	Rooms []domain.Room `json:"rooms"`
	HTML  string        `json:"html"`
}

// HandleRoomStream upgrades to a websocket and pushes every snapshot of a
// subscription owned by this connection. The subscription is released when
// the client goes away or the server shuts down.
func (h *Handler) HandleRoomStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("Room stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(h.shutdown, cancel)
	defer stop()

	// latest snapshot wins when the client reads slower than the store writes
	updates := make(chan []domain.Room, 1)
	failed := make(chan error, 1)
	unsubscribe, err := h.rooms.SubscribeRooms(ctx,
		func(rooms []domain.Room) {
			select {
			case <-updates:
			default:
			}
			updates <- rooms
		},
		func(err error) {
			select {
			case failed <- err:
			default:
			}
		},
	)
	if err != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "rooms unavailable"),
			time.Now().Add(streamWriteWait))
		return
	}
	defer unsubscribe()

	go h.readStream(conn, cancel)

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(streamWriteWait))
			return
		case err := <-failed:
			logger.Warn("Room stream ended by live query error", "error", err)
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "rooms unavailable"),
				time.Now().Add(streamWriteWait))
			return
		case rooms := <-updates:
			msg, err := h.roomsMessage(rooms)
			if err != nil {
				logger.Error("Failed to render room stream update", "error", err)
				return
			}
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug("Room stream write failed", "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		}
	}
}

// readStream drains client frames so pongs and close frames are handled,
// and cancels the stream once the connection is gone.
func (h *Handler) readStream(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) roomsMessage(rooms []domain.Room) (roomsMessage, error) {
	d := view.BuildDashboard(rooms, true, h.today())
	html, err := h.renderer.RoomsHTML(d)
	if err != nil {
		return roomsMessage{}, err
	}
	return roomsMessage{Stats: d.Stats, Rooms: rooms, HTML: html}, nil
}
