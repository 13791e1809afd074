package core

import (
	"context"
	"errors"

	"github.com/dkeye/Board/internal/domain"
)

// Authentication failures. Each one is fatal for the connection.
var (
	ErrNoSecret          = errors.New("no secret configured")
	ErrNoCredential      = errors.New("no token found")
	ErrInvalidCredential = errors.New("invalid or expired token")
	ErrInvalidPayload    = errors.New("invalid token payload")
)

// IdentityVerifier turns a bearer credential into a stable identity.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (domain.User, error)
}

// HistoryStore is the append-only ordered record of room events.
type HistoryStore interface {
	// AppendEvent persists ev and returns it with its durable id and timestamp.
	AppendEvent(ctx context.Context, ev domain.Event) (domain.Event, error)
	// QueryEvents returns the full history of a room, oldest first.
	QueryEvents(ctx context.Context, room domain.RoomID) ([]domain.Event, error)
	// RecentEvents returns at most limit of the newest events, oldest first.
	RecentEvents(ctx context.Context, room domain.RoomID, limit int) ([]domain.Event, error)
}
