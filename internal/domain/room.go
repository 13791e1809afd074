package domain

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidRoomID = errors.New("invalid room id format")
	ErrRoomNotFound  = errors.New("room does not exist")
	ErrAlreadyInRoom = errors.New("already in room")
	ErrNotInRoom     = errors.New("not in room")
)

// RoomID is the canonical decimal form of a persisted room key.
type RoomID string

// ParseRoomID accepts a positive base-10 integer and returns its canonical form.
func ParseRoomID(raw string) (RoomID, error) {
	raw = strings.TrimSpace(raw)
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return "", ErrInvalidRoomID
	}
	return RoomID(strconv.FormatUint(n, 10)), nil
}

// Uint returns the numeric key; callers must only pass ids from ParseRoomID.
func (id RoomID) Uint() uint64 {
	n, _ := strconv.ParseUint(string(id), 10, 64)
	return n
}

// Room is owned by the external room store; presence only references it.
type Room struct {
	ID        RoomID    `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name,omitempty"`
	AdminID   UserID    `json:"adminId"`
	CreatedAt time.Time `json:"createdAt"`
}
