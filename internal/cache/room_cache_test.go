package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Board/internal/domain"
)

type countingDirectory struct {
	rooms map[domain.RoomID]domain.Room
	calls int
	err   error
}

func (d *countingDirectory) LookupRoom(_ context.Context, id domain.RoomID) (domain.Room, error) {
	d.calls++
	if d.err != nil {
		return domain.Room{}, d.err
	}
	room, ok := d.rooms[id]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	return room, nil
}

func newTestCache(t *testing.T, dir *countingDirectory) (*RoomCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRoomCache(rdb, dir, time.Minute), mr
}

func TestRoomCacheServesRepeatedLookupsFromRedis(t *testing.T) {
	created := time.Date(2024, 2, 2, 8, 0, 0, 0, time.UTC)
	dir := &countingDirectory{rooms: map[domain.RoomID]domain.Room{
		"42": {ID: "42", Slug: "r42", AdminID: "admin", CreatedAt: created},
	}}
	c, mr := newTestCache(t, dir)
	ctx := context.Background()

	first, err := c.LookupRoom(ctx, "42")
	require.NoError(t, err)
	second, err := c.LookupRoom(ctx, "42")
	require.NoError(t, err)

	require.Equal(t, 1, dir.calls)
	require.Equal(t, first.Slug, second.Slug)
	require.True(t, second.CreatedAt.Equal(created))
	require.True(t, mr.Exists("board:room:42"))
	require.Equal(t, time.Minute, mr.TTL("board:room:42"))
}

func TestRoomCacheDoesNotCacheMissingRooms(t *testing.T) {
	dir := &countingDirectory{rooms: map[domain.RoomID]domain.Room{}}
	c, mr := newTestCache(t, dir)
	ctx := context.Background()

	_, err := c.LookupRoom(ctx, "7")
	require.ErrorIs(t, err, domain.ErrRoomNotFound)
	_, err = c.LookupRoom(ctx, "7")
	require.ErrorIs(t, err, domain.ErrRoomNotFound)

	require.Equal(t, 2, dir.calls)
	require.False(t, mr.Exists("board:room:7"))
}

func TestRoomCacheFallsBackWhenRedisIsDown(t *testing.T) {
	dir := &countingDirectory{rooms: map[domain.RoomID]domain.Room{"1": {ID: "1", Slug: "one"}}}
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	c := NewRoomCache(rdb, dir, time.Minute)
	mr.Close()

	room, err := c.LookupRoom(context.Background(), "1")
	require.NoError(t, err)
	require.Equal(t, "one", room.Slug)
}

func TestRoomCachePropagatesDirectoryErrors(t *testing.T) {
	boom := errors.New("db down")
	c, _ := newTestCache(t, &countingDirectory{err: boom})

	_, err := c.LookupRoom(context.Background(), "1")
	require.ErrorIs(t, err, boom)
}

func TestRoomCacheInvalidate(t *testing.T) {
	dir := &countingDirectory{rooms: map[domain.RoomID]domain.Room{"1": {ID: "1", Slug: "one"}}}
	c, mr := newTestCache(t, dir)
	ctx := context.Background()

	_, err := c.LookupRoom(ctx, "1")
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx, "1"))
	require.False(t, mr.Exists("board:room:1"))

	_, err = c.LookupRoom(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, 2, dir.calls)
}
