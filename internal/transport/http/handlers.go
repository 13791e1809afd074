package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Board/internal/app"
	"github.com/dkeye/Board/internal/core"
	"github.com/dkeye/Board/internal/domain"
	"github.com/dkeye/Board/internal/protocol"
)

const (
	userKey       = "board.user"
	maxRecentChat = 500
)

// Handlers serves the read-only REST surface next to the websocket.
type Handlers struct {
	Verifier    core.IdentityVerifier
	Registry    *app.Registry
	History     core.HistoryStore
	RecentLimit int
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string    `json:"status"`
	Stats  app.Stats `json:"stats"`
}

// HistoryEntry is one persisted event as the board client replays it: the
// stored payload is always in Message, and IsDrawing tells a serialized shape
// apart from chat text.
type HistoryEntry struct {
	ID        uint64        `json:"id"`
	RoomID    domain.RoomID `json:"room_id"`
	UserID    domain.UserID `json:"user_id"`
	UserName  string        `json:"user_name"`
	Message   string        `json:"message"`
	IsDrawing bool          `json:"is_drawing"`
	Timestamp string        `json:"timestamp"`
}

func newHistoryEntry(ev domain.Event) HistoryEntry {
	return HistoryEntry{
		ID:        ev.ID,
		RoomID:    ev.RoomID,
		UserID:    ev.Author.ID,
		UserName:  ev.Author.Username,
		Message:   ev.Payload,
		IsDrawing: ev.Kind == domain.EventDraw,
		Timestamp: protocol.FormatTimestamp(ev.CreatedAt),
	}
}

type RecentChatsResponse struct {
	RoomID   domain.RoomID  `json:"room_id"`
	Messages []HistoryEntry `json:"messages"`
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Stats: h.Registry.Stats()})
}

// RequireBearer authenticates the request with the same verifier the
// websocket handshake uses.
func (h *Handlers) RequireBearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.Verifier == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{Error: "No SECRET configured"})
			return
		}
		header := c.GetHeader("Authorization")
		if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing bearer token"})
			return
		}
		user, err := h.Verifier.Verify(c.Request.Context(), strings.TrimSpace(header[7:]))
		if err != nil {
			msg := "Invalid or expired token"
			if errors.Is(err, core.ErrInvalidPayload) {
				msg = "Invalid token payload"
			}
			log.Warn().Err(err).Str("module", "transport.http").Str("path", c.FullPath()).Msg("rejected bearer token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: msg})
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

// CurrentUser returns the identity stored by RequireBearer.
func CurrentUser(c *gin.Context) (domain.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return domain.User{}, false
	}
	u, ok := v.(domain.User)
	return u, ok
}

// LiveRooms lists rooms that currently have present members.
func (h *Handlers) LiveRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.Registry.List()})
}

func (h *Handlers) Presence(c *gin.Context) {
	room, err := domain.ParseRoomID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: protocol.MsgInvalidRoomID})
		return
	}
	c.JSON(http.StatusOK, core.RoomInfo{ID: room, Members: h.Registry.MembersOf(room)})
}

// RecentChats returns the newest persisted events of a room, oldest first.
func (h *Handlers) RecentChats(c *gin.Context) {
	room, err := domain.ParseRoomID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: protocol.MsgInvalidRoomID})
		return
	}

	limit := h.RecentLimit
	if limit <= 0 {
		limit = 50
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxRecentChat)
	}

	events, err := h.History.RecentEvents(c.Request.Context(), room, limit)
	if err != nil {
		log.Error().Err(err).Str("module", "transport.http").Str("room", string(room)).Msg("recent events failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: protocol.MsgInternal})
		return
	}

	out := make([]HistoryEntry, 0, len(events))
	for _, ev := range events {
		out = append(out, newHistoryEntry(ev))
	}
	c.JSON(http.StatusOK, RecentChatsResponse{RoomID: room, Messages: out})
}
