package app

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/Board/internal/core"
	"github.com/dkeye/Board/internal/domain"
)

type stubConn struct{ id core.SessionID }

func (c *stubConn) ID() core.SessionID       { return c.id }
func (c *stubConn) TrySend(core.Frame) error { return nil }
func (c *stubConn) Close()                   {}

func user(id string) domain.User { return domain.User{ID: domain.UserID(id), Username: "user-" + id} }

// requireConsistent checks that the room and reverse indexes mirror each other.
func requireConsistent(t *testing.T, r *Registry) {
	t.Helper()
	r.mu.RLock()
	defer r.mu.RUnlock()
	for room, members := range r.rooms {
		require.NotEmpty(t, members, "empty room %s kept", room)
		for uid := range members {
			_, ok := r.joined[uid][room]
			require.True(t, ok, "%s in %s missing from reverse index", uid, room)
			_, ok = r.users[uid]
			require.True(t, ok, "member %s not registered", uid)
		}
	}
	for uid, rooms := range r.joined {
		require.NotEmpty(t, rooms)
		for room := range rooms {
			_, ok := r.rooms[room][uid]
			require.True(t, ok, "%s claims %s but is not a member", uid, room)
		}
	}
}

func TestJoinLeaveAndEmptyRoomRemoval(t *testing.T) {
	r := NewRegistry()
	require.Nil(t, r.Register(user("a"), &stubConn{id: "s-a"}))
	require.Nil(t, r.Register(user("b"), &stubConn{id: "s-b"}))

	require.True(t, r.Join("a", "42"))
	require.False(t, r.Join("a", "42"))
	require.True(t, r.Join("b", "42"))
	require.True(t, r.Join("a", "7"))
	requireConsistent(t, r)

	require.Equal(t, []domain.RoomID{"42", "7"}, r.RoomsOf("a"))
	members := r.MembersOf("42")
	require.Equal(t, []domain.Member{{ID: "a", Username: "user-a"}, {ID: "b", Username: "user-b"}}, members)

	left, emptied := r.Leave("b", "42")
	require.True(t, left)
	require.False(t, emptied)
	left, emptied = r.Leave("b", "42")
	require.False(t, left)
	require.False(t, emptied)

	left, emptied = r.Leave("a", "42")
	require.True(t, left)
	require.True(t, emptied)
	require.False(t, r.HasRoom("42"))
	require.Empty(t, r.MembersOf("42"))
	requireConsistent(t, r)
}

func TestListLiveRooms(t *testing.T) {
	r := NewRegistry()
	r.Register(user("b"), &stubConn{id: "s-b"})
	r.Register(user("a"), &stubConn{id: "s-a"})
	r.Join("a", "10")
	r.Join("b", "10")
	r.Join("b", "9")

	rooms := r.List()
	require.Len(t, rooms, 2)
	require.Equal(t, domain.RoomID("9"), rooms[0].ID)
	require.Equal(t, domain.RoomID("10"), rooms[1].ID)
	require.Equal(t, []domain.Member{{ID: "a", Username: "user-a"}, {ID: "b", Username: "user-b"}}, rooms[1].Members)

	r.Leave("b", "9")
	require.Len(t, r.List(), 1)
}

func TestJoinUnknownUser(t *testing.T) {
	r := NewRegistry()
	require.False(t, r.Join("ghost", "1"))
	require.False(t, r.HasRoom("1"))
}

func TestUnregisterCascades(t *testing.T) {
	r := NewRegistry()
	conn := &stubConn{id: "s-a"}
	r.Register(user("a"), conn)
	r.Register(user("b"), &stubConn{id: "s-b"})
	r.Join("a", "1")
	r.Join("a", "2")
	r.Join("b", "2")

	rooms := r.Unregister("a", conn)
	require.Equal(t, []domain.RoomID{"1", "2"}, rooms)
	require.False(t, r.HasRoom("1"))
	require.True(t, r.HasRoom("2"))
	require.False(t, r.IsMember("a", "2"))
	_, ok := r.User("a")
	require.False(t, ok)
	require.Equal(t, Stats{Users: 1, Rooms: 1}, r.Stats())
	requireConsistent(t, r)

	require.Nil(t, r.Unregister("a", conn))
}

func TestRegisterSupersedes(t *testing.T) {
	r := NewRegistry()
	old := &stubConn{id: "old"}
	fresh := &stubConn{id: "new"}
	r.Register(user("a"), old)
	r.Join("a", "1")

	prev := r.Register(user("a"), fresh)
	require.Same(t, old, prev)
	require.False(t, r.IsMember("a", "1"))
	require.False(t, r.HasRoom("1"))
	require.True(t, r.Owns("a", fresh))
	require.False(t, r.Owns("a", old))
	require.Same(t, fresh, r.Conn("a"))

	require.False(t, r.JoinVia("a", old, "1"))
	require.True(t, r.JoinVia("a", fresh, "1"))

	require.Nil(t, r.Unregister("a", old))
	require.True(t, r.IsMember("a", "1"))
	requireConsistent(t, r)
}

func TestRecipientsSnapshot(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"a", "b", "c"} {
		r.Register(user(id), &stubConn{id: core.SessionID("s-" + id)})
		r.Join(domain.UserID(id), "9")
	}

	got := r.Recipients("9", "b")
	require.Len(t, got, 2)
	for _, rc := range got {
		require.NotEqual(t, domain.UserID("b"), rc.User.ID)
		require.Equal(t, core.SessionID("s-"+string(rc.User.ID)), rc.Conn.ID())
	}
	require.Empty(t, r.Recipients("404", ""))
}

func TestConcurrentMembershipStaysConsistent(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uid := domain.UserID(fmt.Sprintf("u%d", i))
			conn := &stubConn{id: core.SessionID(uid)}
			r.Register(domain.User{ID: uid}, conn)
			for j := 0; j < 50; j++ {
				room := domain.RoomID(fmt.Sprintf("%d", j%5+1))
				r.Join(uid, room)
				_ = r.Recipients(room, uid)
				if j%3 == 0 {
					r.Leave(uid, room)
				}
			}
			if i%2 == 0 {
				r.Unregister(uid, conn)
			}
		}(i)
	}
	wg.Wait()

	requireConsistent(t, r)
	require.Equal(t, 8, r.Stats().Users)
}

func TestSimplePolicyKicks(t *testing.T) {
	require.Equal(t, KickMember, SimplePolicy{}.OnBackPressure("a", &stubConn{}))
}
