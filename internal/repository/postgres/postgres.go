package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"roomrent-dashboard/internal/logger"
	"roomrent-dashboard/internal/repository"
)

const (
	backendName = "postgres"

	// roomsChannel is signalled by the rooms trigger on every effective change.
	roomsChannel = "rooms_changed"
)

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	type            TEXT NOT NULL,
	price           DOUBLE PRECISION NOT NULL CHECK (price >= 0),
	status          TEXT NOT NULL CHECK (status IN ('available', 'occupied')),
	current_booking JSONB,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	CHECK ((status = 'occupied') = (current_booking IS NOT NULL))
);

CREATE INDEX IF NOT EXISTS rooms_name_idx ON rooms (name COLLATE "C");

CREATE OR REPLACE FUNCTION notify_rooms_changed() RETURNS trigger AS $$
BEGIN
	IF TG_OP = 'UPDATE' AND OLD IS NOT DISTINCT FROM NEW THEN
		RETURN NEW;
	END IF;
	PERFORM pg_notify('rooms_changed', NEW.id);
	RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS rooms_changed ON rooms;
CREATE TRIGGER rooms_changed AFTER INSERT OR UPDATE ON rooms
	FOR EACH ROW EXECUTE FUNCTION notify_rooms_changed();
`

// notifier is the part of *pq.Listener the live query needs.
type notifier interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

// Store implements repository.RoomStore on a PostgreSQL rooms table.
type Store struct {
	db          *sql.DB
	newNotifier func() notifier
	pingEvery   time.Duration
}

var _ repository.RoomStore = (*Store)(nil)

// NewStore uses db for reads and writes and opens one LISTEN connection per
// subscription from connStr.
func NewStore(db *sql.DB, connStr string) *Store {
	return &Store{
		db: db,
		newNotifier: func() notifier {
			return pq.NewListener(connStr, 10*time.Second, time.Minute, logListenerEvent)
		},
		pingEvery: 90 * time.Second,
	}
}

// Migrate creates the rooms table and its change trigger.
func (s *Store) Migrate(ctx context.Context) error {
	logger.StoreCall(backendName, "migrate")
	_, err := s.db.ExecContext(ctx, schema)
	logger.StoreResult(backendName, "migrate", err)
	if err != nil {
		return fmt.Errorf("failed to migrate rooms schema: %w", err)
	}
	return nil
}

// Close is a no-op; the caller owns db.
func (s *Store) Close() error {
	return nil
}

func logListenerEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnectionAttemptFailed, pq.ListenerEventDisconnected:
		logger.Warn("Rooms listener connection problem", "event", ev, "error", err)
	case pq.ListenerEventReconnected:
		logger.Info("Rooms listener reconnected")
	}
}
