package store

import (
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/dkeye/Board/internal/domain"
)

// Room is the persisted room record. It is created by the room CRUD service;
// this package only reads it, apart from CreateRoom used for seeding.
type Room struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	Slug      string    `gorm:"size:64;uniqueIndex;not null"`
	Name      string    `gorm:"size:128"`
	AdminID   string    `gorm:"size:64;not null;index"`
	CreatedAt time.Time `gorm:"not null"`
}

// Chat stores one room event. Drawing operations share the table with chat
// text; Kind records which socket message produced the row.
type Chat struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	RoomID    uint64    `gorm:"not null;index"`
	UserID    string    `gorm:"size:64;not null;index"`
	UserName  string    `gorm:"size:64"`
	Kind      string    `gorm:"size:16;not null;default:chat"`
	Message   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;index"`

	Room *Room `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
}

// Migrate creates or updates the tables owned by this package.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Room{}, &Chat{})
}

func (r Room) toDomain() domain.Room {
	return domain.Room{
		ID:        domain.RoomID(strconv.FormatUint(r.ID, 10)),
		Slug:      r.Slug,
		Name:      r.Name,
		AdminID:   domain.UserID(r.AdminID),
		CreatedAt: r.CreatedAt.UTC(),
	}
}

func (c Chat) toDomain() domain.Event {
	return domain.Event{
		ID:        c.ID,
		RoomID:    domain.RoomID(strconv.FormatUint(c.RoomID, 10)),
		Author:    domain.User{ID: domain.UserID(c.UserID), Username: c.UserName},
		Kind:      domain.EventKind(c.Kind),
		Payload:   c.Message,
		CreatedAt: c.CreatedAt.UTC(),
	}
}
