package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Board/internal/core"
	"github.com/dkeye/Board/internal/domain"
)

const (
	DefaultRoomTTL = 5 * time.Minute
	keyPrefix      = "board:room:"
)

// RoomCache is a read-through redis cache in front of a RoomDirectory.
// Only existing rooms are cached; redis failures fall back to the directory.
type RoomCache struct {
	rdb  *redis.Client
	next core.RoomDirectory
	ttl  time.Duration
}

func NewRoomCache(rdb *redis.Client, next core.RoomDirectory, ttl time.Duration) *RoomCache {
	if ttl <= 0 {
		ttl = DefaultRoomTTL
	}
	return &RoomCache{rdb: rdb, next: next, ttl: ttl}
}

func (c *RoomCache) key(id domain.RoomID) string { return keyPrefix + string(id) }

func (c *RoomCache) LookupRoom(ctx context.Context, id domain.RoomID) (domain.Room, error) {
	raw, err := c.rdb.Get(ctx, c.key(id)).Bytes()
	switch {
	case err == nil:
		var room domain.Room
		if err := json.Unmarshal(raw, &room); err == nil {
			return room, nil
		}
		log.Warn().Str("module", "cache.room").Str("room", string(id)).Msg("dropping undecodable cache entry")
		_ = c.rdb.Del(ctx, c.key(id)).Err()
	case errors.Is(err, redis.Nil):
	default:
		log.Warn().Err(err).Str("module", "cache.room").Str("room", string(id)).Msg("redis get failed")
	}

	room, err := c.next.LookupRoom(ctx, id)
	if err != nil {
		return domain.Room{}, err
	}

	if raw, err := json.Marshal(room); err == nil {
		if err := c.rdb.Set(ctx, c.key(id), raw, c.ttl).Err(); err != nil {
			log.Warn().Err(err).Str("module", "cache.room").Str("room", string(id)).Msg("redis set failed")
		}
	}
	return room, nil
}

// Invalidate drops a cached room, e.g. after the room record was deleted.
func (c *RoomCache) Invalidate(ctx context.Context, id domain.RoomID) error {
	return c.rdb.Del(ctx, c.key(id)).Err()
}
