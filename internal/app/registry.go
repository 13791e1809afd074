package app

import (
	"sort"
	"sync"

	"github.com/dkeye/Board/internal/core"
	"github.com/dkeye/Board/internal/domain"
	"github.com/rs/zerolog/log"
)

type presenceEntry struct {
	User domain.User
	Conn core.SignalConnection
}

// Registry is the process-wide presence table. It keeps three indexes in
// lockstep: user -> live connection, room -> members and the reverse
// user -> rooms index used for disconnect cleanup.
// A room entry exists only while it has at least one member.
type Registry struct {
	mu     sync.RWMutex
	users  map[domain.UserID]*presenceEntry
	rooms  map[domain.RoomID]map[domain.UserID]struct{}
	joined map[domain.UserID]map[domain.RoomID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		users:  make(map[domain.UserID]*presenceEntry),
		rooms:  make(map[domain.RoomID]map[domain.UserID]struct{}),
		joined: make(map[domain.UserID]map[domain.RoomID]struct{}),
	}
}

// Register binds user to conn. When the user already had a live connection it
// is returned as superseded; its room memberships are dropped and the caller
// is responsible for closing it.
func (r *Registry) Register(user domain.User, conn core.SignalConnection) core.SignalConnection {
	r.mu.Lock()
	defer r.mu.Unlock()

	var prev core.SignalConnection
	if e, ok := r.users[user.ID]; ok {
		prev = e.Conn
		dropped := r.dropMembershipsLocked(user.ID)
		log.Info().Str("module", "app.registry").Str("uid", string(user.ID)).Int("rooms", len(dropped)).Msg("superseded session")
	}
	r.users[user.ID] = &presenceEntry{User: user, Conn: conn}
	log.Info().Str("module", "app.registry").Str("uid", string(user.ID)).Str("sid", string(conn.ID())).Msg("registered user")
	return prev
}

// Unregister removes the user and every membership it holds, returning the
// rooms it was removed from. When conn is non-nil and no longer the
// registered connection (it was superseded) nothing happens.
func (r *Registry) Unregister(uid domain.UserID, conn core.SignalConnection) []domain.RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.users[uid]
	if !ok {
		return nil
	}
	if conn != nil && e.Conn != conn {
		return nil
	}
	delete(r.users, uid)
	rooms := r.dropMembershipsLocked(uid)
	log.Info().Str("module", "app.registry").Str("uid", string(uid)).Int("rooms", len(rooms)).Msg("unregistered user")
	return rooms
}

// Join reports false when the user is unknown or already a member.
func (r *Registry) Join(uid domain.UserID, room domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[uid]; !ok {
		return false
	}
	return r.joinLocked(uid, room)
}

// JoinVia is Join restricted to the connection currently registered for uid,
// so a superseded connection cannot add memberships to its replacement.
func (r *Registry) JoinVia(uid domain.UserID, conn core.SignalConnection, room domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.users[uid]; !ok || e.Conn != conn {
		return false
	}
	return r.joinLocked(uid, room)
}

// Owns reports whether conn is the live connection registered for uid.
func (r *Registry) Owns(uid domain.UserID, conn core.SignalConnection) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.users[uid]
	return ok && e.Conn == conn
}

func (r *Registry) joinLocked(uid domain.UserID, room domain.RoomID) bool {
	members := r.rooms[room]
	if _, ok := members[uid]; ok {
		return false
	}
	if members == nil {
		members = make(map[domain.UserID]struct{})
		r.rooms[room] = members
	}
	members[uid] = struct{}{}
	if r.joined[uid] == nil {
		r.joined[uid] = make(map[domain.RoomID]struct{})
	}
	r.joined[uid][room] = struct{}{}
	log.Info().Str("module", "app.registry").Str("uid", string(uid)).Str("room", string(room)).Msg("joined room")
	return true
}

// Leave reports whether the user was a member and whether the room emptied out.
func (r *Registry) Leave(uid domain.UserID, room domain.RoomID) (left, emptied bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[room][uid]; !ok {
		return false, false
	}
	emptied = r.removeLocked(uid, room)
	log.Info().Str("module", "app.registry").Str("uid", string(uid)).Str("room", string(room)).Bool("emptied", emptied).Msg("left room")
	return true, emptied
}

func (r *Registry) IsMember(uid domain.UserID, room domain.RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[room][uid]
	return ok
}

// MembersOf returns the current members ordered by id; empty for unknown rooms.
func (r *Registry) MembersOf(room domain.RoomID) []domain.Member {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[room]
	out := make([]domain.Member, 0, len(members))
	for uid := range members {
		if e, ok := r.users[uid]; ok {
			out = append(out, domain.NewMember(e.User))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RoomsOf returns the rooms uid is currently joined to, ordered by id.
func (r *Registry) RoomsOf(uid domain.UserID) []domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.RoomID, 0, len(r.joined[uid]))
	for room := range r.joined[uid] {
		out = append(out, room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// List snapshots every live room with its members, ordered by room id.
func (r *Registry) List() []core.RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]core.RoomInfo, 0, len(r.rooms))
	for room, members := range r.rooms {
		info := core.RoomInfo{ID: room, Members: make([]domain.Member, 0, len(members))}
		for uid := range members {
			if e, ok := r.users[uid]; ok {
				info.Members = append(info.Members, domain.NewMember(e.User))
			}
		}
		sort.Slice(info.Members, func(i, j int) bool { return info.Members[i].ID < info.Members[j].ID })
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].ID) != len(out[j].ID) {
			return len(out[i].ID) < len(out[j].ID)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// HasRoom reports whether the room currently has a live entry.
func (r *Registry) HasRoom(room domain.RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[room]
	return ok
}

func (r *Registry) User(uid domain.UserID) (domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.users[uid]; ok {
		return e.User, true
	}
	return domain.User{}, false
}

// Conn returns the live connection registered for uid, or nil.
func (r *Registry) Conn(uid domain.UserID) core.SignalConnection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.users[uid]; ok {
		return e.Conn
	}
	return nil
}

// Recipient is a snapshot of one member's delivery endpoint.
type Recipient struct {
	User domain.User
	Conn core.SignalConnection
}

// Recipients snapshots the members of room, skipping exclude. Delivery walks
// this snapshot so joins and leaves racing with a broadcast only affect the
// next one.
func (r *Registry) Recipients(room domain.RoomID, exclude domain.UserID) []Recipient {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[room]
	out := make([]Recipient, 0, len(members))
	for uid := range members {
		if uid == exclude {
			continue
		}
		if e, ok := r.users[uid]; ok {
			out = append(out, Recipient{User: e.User, Conn: e.Conn})
		}
	}
	return out
}

type Stats struct {
	Users int `json:"users_online"`
	Rooms int `json:"live_rooms"`
}

func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Stats{Users: len(r.users), Rooms: len(r.rooms)}
}

func (r *Registry) dropMembershipsLocked(uid domain.UserID) []domain.RoomID {
	rooms := make([]domain.RoomID, 0, len(r.joined[uid]))
	for room := range r.joined[uid] {
		rooms = append(rooms, room)
	}
	for _, room := range rooms {
		if r.removeLocked(uid, room) {
			log.Info().Str("module", "app.registry").Str("room", string(room)).Msg("room emptied")
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i] < rooms[j] })
	return rooms
}

// removeLocked reports whether the room entry was deleted.
func (r *Registry) removeLocked(uid domain.UserID, room domain.RoomID) bool {
	if rooms, ok := r.joined[uid]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(r.joined, uid)
		}
	}
	members, ok := r.rooms[room]
	if !ok {
		return false
	}
	delete(members, uid)
	if len(members) == 0 {
		delete(r.rooms, room)
		return true
	}
	return false
}
