package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"huddle/internal/domain"
)

type binding struct {
	Room domain.RoomCode
	User domain.UserID
	Conn Conn
}

// Registry tracks which live connection is bound to which (room, user).
// Purely in-memory; it says who is reachable for broadcast right now,
// never who is a member — the membership store owns that.
type Registry struct {
	mu    sync.RWMutex
	conns map[ConnID]*binding
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[ConnID]*binding)}
}

func (r *Registry) Bind(id ConnID, room domain.RoomCode, user domain.UserID, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = &binding{Room: room, User: user, Conn: conn}
	log.Info().Str("module", "core.registry").Str("conn", string(id)).
		Str("room", string(room)).Str("user", string(user)).Msg("bound connection")
}

func (r *Registry) Unbind(id ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
	log.Info().Str("module", "core.registry").Str("conn", string(id)).Msg("unbound connection")
}

// Binding reports the (room, user) a connection is bound to, if any.
func (r *Registry) Binding(id ConnID) (domain.RoomCode, domain.UserID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.conns[id]
	if !ok {
		return "", "", false
	}
	return b.Room, b.User, true
}

// ConnSnap is one entry of a room's audience snapshot.
type ConnSnap struct {
	ID   ConnID
	User domain.UserID
	Conn Conn
}

// ConnectionsInRoom snapshots the audience of a room at call time.
func (r *Registry) ConnectionsInRoom(room domain.RoomCode) []ConnSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ConnSnap, 0, len(r.conns))
	for id, b := range r.conns {
		if b.Room == room {
			out = append(out, ConnSnap{ID: id, User: b.User, Conn: b.Conn})
		}
	}
	return out
}
