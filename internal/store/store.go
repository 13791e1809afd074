package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/dkeye/Board/internal/domain"
)

// Store is the gorm-backed room directory and event history.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

type Option func(*Store)

// WithClock overrides the timestamp source for new rows.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// CreateRoom inserts a room record.
func (s *Store) CreateRoom(ctx context.Context, slug, name string, admin domain.UserID) (domain.Room, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return domain.Room{}, errors.New("store: room slug is required")
	}
	row := Room{Slug: slug, Name: name, AdminID: string(admin), CreatedAt: s.timestamp()}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.Room{}, fmt.Errorf("store: create room: %w", err)
	}
	return row.toDomain(), nil
}

// LookupRoom returns domain.ErrRoomNotFound when no record exists.
func (s *Store) LookupRoom(ctx context.Context, id domain.RoomID) (domain.Room, error) {
	var row Room
	err := s.db.WithContext(ctx).Where("id = ?", id.Uint()).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	if err != nil {
		return domain.Room{}, fmt.Errorf("store: lookup room %s: %w", id, err)
	}
	return row.toDomain(), nil
}

// AppendEvent persists ev and fills in the durable id and timestamp.
func (s *Store) AppendEvent(ctx context.Context, ev domain.Event) (domain.Event, error) {
	kind := ev.Kind
	if kind == "" {
		kind = domain.EventChat
	}
	row := Chat{
		RoomID:    ev.RoomID.Uint(),
		UserID:    string(ev.Author.ID),
		UserName:  ev.Author.Username,
		Kind:      string(kind),
		Message:   ev.Payload,
		CreatedAt: s.timestamp(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.Event{}, fmt.Errorf("store: append event to room %s: %w", ev.RoomID, err)
	}
	return row.toDomain(), nil
}

// QueryEvents returns every event of the room, oldest first.
func (s *Store) QueryEvents(ctx context.Context, room domain.RoomID) ([]domain.Event, error) {
	var rows []Chat
	err := s.db.WithContext(ctx).
		Where("room_id = ?", room.Uint()).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: query events of room %s: %w", room, err)
	}
	return toEvents(rows), nil
}

// RecentEvents returns the newest limit events of the room, oldest first.
func (s *Store) RecentEvents(ctx context.Context, room domain.RoomID, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		return []domain.Event{}, nil
	}
	var rows []Chat
	err := s.db.WithContext(ctx).
		Where("room_id = ?", room.Uint()).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: recent events of room %s: %w", room, err)
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return toEvents(rows), nil
}

func toEvents(rows []Chat) []domain.Event {
	out := make([]domain.Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out
}
