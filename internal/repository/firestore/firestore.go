package firestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"roomrent-dashboard/internal/domain"
	"roomrent-dashboard/internal/logger"
	"roomrent-dashboard/internal/repository"
)

const backendName = "firestore"

// Config holds the Firebase project settings
type Config struct {
	ProjectID       string
	CredentialsFile string
	APIKey          string
	Collection      string
}

// Store implements repository.RoomStore on a Firestore collection.
type Store struct {
	client     *firestore.Client
	collection string
}

var _ repository.RoomStore = (*Store)(nil)

// Open initializes the Firebase app and its Firestore client.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return NewStore(client, cfg.Collection), nil
}

// NewStore wraps an existing client, e.g. one pointed at the emulator.
func NewStore(client *firestore.Client, collection string) *Store {
	if collection == "" {
		collection = "rooms"
	}
	return &Store{client: client, collection: collection}
}

func (s *Store) rooms() *firestore.CollectionRef {
	return s.client.Collection(s.collection)
}

func (s *Store) Subscribe(ctx context.Context, onRooms func([]domain.Room), onError func(error)) (repository.CancelFunc, error) {
	sub, subCtx := repository.NewSubscription(ctx, onRooms, onError)
	it := s.rooms().OrderBy(fieldName, firestore.Asc).Snapshots(subCtx)
	logger.SubscriptionEvent(backendName, "attach", "collection", s.collection)

	go func() {
		defer sub.Finish()
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if subCtx.Err() != nil || errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled {
					logger.SubscriptionEvent(backendName, "release", "collection", s.collection)
					return
				}
				logger.Error("Room subscription failed", "backend", backendName, "error", err)
				sub.Fail(fmt.Errorf("rooms live query: %w", err))
				return
			}

			docs, err := snap.Documents.GetAll()
			if err != nil {
				logger.Error("Room subscription failed", "backend", backendName, "error", err)
				sub.Fail(fmt.Errorf("failed to read snapshot documents: %w", err))
				return
			}
			rooms := decodeRooms(storedRooms(docs))
			logger.SubscriptionEvent(backendName, "snapshot", "rooms", len(rooms), "changes", len(snap.Changes))
			sub.Deliver(rooms)
		}
	}()

	return sub.CancelFunc(), nil
}

// documentData is the part of a document snapshot the decoder needs.
type documentData interface {
	DataTo(p any) error
}

type storedRoom struct {
	id   string
	data documentData
}

func storedRooms(docs []*firestore.DocumentSnapshot) []storedRoom {
	stored := make([]storedRoom, 0, len(docs))
	for _, doc := range docs {
		stored = append(stored, storedRoom{id: doc.Ref.ID, data: doc})
	}
	return stored
}

// decodeRooms maps every readable document to a Room. Documents that do not
// decode are logged and left out of the snapshot.
func decodeRooms(docs []storedRoom) []domain.Room {
	rooms := make([]domain.Room, 0, len(docs))
	for _, doc := range docs {
		var d roomDocument
		if err := doc.data.DataTo(&d); err != nil {
			logger.Warn("Skipping undecodable room document", "backend", backendName, "room_id", doc.id, "error", err)
			continue
		}
		room, err := fromRoomDocument(doc.id, d)
		if err != nil {
			logger.Warn("Skipping undecodable room document", "backend", backendName, "room_id", doc.id, "error", err)
			continue
		}
		rooms = append(rooms, room)
	}
	return rooms
}

func (s *Store) Insert(ctx context.Context, room *domain.Room) error {
	logger.StoreCall(backendName, "insert", "name", room.Name)
	ref, _, err := s.rooms().Add(ctx, toRoomDocument(room))
	if err != nil {
		logger.StoreResult(backendName, "insert", err)
		return fmt.Errorf("failed to add room: %w", err)
	}
	room.ID = ref.ID
	logger.StoreResult(backendName, "insert", nil, "room_id", room.ID)
	return nil
}

func (s *Store) Update(ctx context.Context, roomID string, update domain.RoomUpdate) error {
	logger.StoreCall(backendName, "update", "room_id", roomID, "status", update.Status)
	var booking any
	if b := toBookingDocument(update.CurrentBooking); b != nil {
		booking = b
	}
	_, err := s.rooms().Doc(roomID).Update(ctx, []firestore.Update{
		{Path: fieldStatus, Value: string(update.Status)},
		{Path: fieldCurrentBooking, Value: booking},
	})
	if err != nil {
		logger.StoreResult(backendName, "update", err, "room_id", roomID)
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("room %s: %w", roomID, domain.ErrRoomNotFound)
		}
		return fmt.Errorf("failed to update room %s: %w", roomID, err)
	}
	logger.StoreResult(backendName, "update", nil, "room_id", roomID)
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
