package core

import (
	"context"

	"github.com/dkeye/Board/internal/domain"
)

// RoomDirectory is the external room-metadata oracle.
// LookupRoom returns domain.ErrRoomNotFound when the room does not exist.
type RoomDirectory interface {
	LookupRoom(ctx context.Context, id domain.RoomID) (domain.Room, error)
}

// RoomInfo is a read-only snapshot of live presence in one room.
type RoomInfo struct {
	ID      domain.RoomID   `json:"room_id"`
	Members []domain.Member `json:"members"`
}
