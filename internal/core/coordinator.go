package core

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"huddle/internal/domain"
)

// MembershipStore is the durable member set. AddMember must be an atomic
// conditional add: it fails with domain.ErrRoomFull by itself, without a
// separate read-then-write round trip from the caller.
type MembershipStore interface {
	AddMember(code domain.RoomCode, user domain.UserID) (int, error)
	RemoveMember(code domain.RoomCode, user domain.UserID) (int, error)
	CountMembers(code domain.RoomCode) (int, error)
}

// MessageLog is the durable, append-only, time-ordered message store.
type MessageLog interface {
	Append(m *domain.Message) error
	ListOrdered(code domain.RoomCode) ([]domain.Message, error)
}

// RoomDirectory is the room-CRUD collaborator's read surface. The
// coordinator never creates or deletes rooms.
type RoomDirectory interface {
	Get(code domain.RoomCode) (domain.Room, error)
	Exists(code domain.RoomCode) (bool, error)
}

// Coordinator is the serialization point per room code. All membership
// mutations for one room go through that room's mutex, so the count each
// broadcast carries reflects a total order of joins and leaves. Message
// sends do not take the room mutex; they only order persistence before
// fan-out within one call.
type Coordinator struct {
	registry *Registry
	fanout   *Fanout
	members  MembershipStore
	messages MessageLog
	rooms    RoomDirectory

	mu    sync.RWMutex
	locks map[domain.RoomCode]*sync.Mutex
}

func NewCoordinator(registry *Registry, fanout *Fanout, members MembershipStore, messages MessageLog, rooms RoomDirectory) *Coordinator {
	return &Coordinator{
		registry: registry,
		fanout:   fanout,
		members:  members,
		messages: messages,
		rooms:    rooms,
		locks:    make(map[domain.RoomCode]*sync.Mutex),
	}
}

// roomLock returns the mutex for a room code, creating it on first use.
// Different rooms never contend.
func (c *Coordinator) roomLock(code domain.RoomCode) *sync.Mutex {
	c.mu.RLock()
	lk, ok := c.locks[code]
	c.mu.RUnlock()
	if ok {
		return lk
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if lk, ok = c.locks[code]; ok {
		return lk
	}
	lk = &sync.Mutex{}
	c.locks[code] = lk
	return lk
}

// Join seats the user, binds the connection and broadcasts the new count.
// A user re-joining while their old connection is still seated keeps
// exactly one seat. A full room rejects the join with domain.ErrRoomFull
// and leaves the connection unregistered.
func (c *Coordinator) Join(code domain.RoomCode, user domain.UserID, connID ConnID, conn Conn) (int, error) {
	// A connection switching rooms leaves its old room first.
	if oldRoom, oldUser, ok := c.registry.Binding(connID); ok {
		if err := c.Leave(oldRoom, oldUser, connID); err != nil {
			log.Error().Err(err).Str("module", "core.coordinator").
				Str("conn", string(connID)).Msg("leave previous room")
		}
	}

	if _, err := c.rooms.Get(code); err != nil {
		return 0, err
	}

	lk := c.roomLock(code)
	lk.Lock()
	defer lk.Unlock()

	// Unbind any older connection this user still holds in the room, so
	// its eventual teardown cannot free the seat taken here.
	for _, snap := range c.registry.ConnectionsInRoom(code) {
		if snap.User == user && snap.ID != connID {
			c.registry.Unbind(snap.ID)
		}
	}

	// Drop any stale seat from a previous connection, so the capacity
	// check below sees the seat this user is about to retake as free.
	if _, err := c.members.RemoveMember(code, user); err != nil {
		return 0, fmt.Errorf("remove stale membership: %w", err)
	}

	count, err := c.members.AddMember(code, user)
	if err != nil {
		return 0, err
	}

	c.registry.Bind(connID, code, user, conn)
	c.fanout.Publish(code, NewUserCountEvent(count))
	log.Info().Str("module", "core.coordinator").Str("room", string(code)).
		Str("user", string(user)).Int("count", count).Msg("join")
	return count, nil
}

// Leave frees the user's seat, unbinds the connection and broadcasts the
// new count. Leaving a room one isn't in, or a room that no longer
// exists, is a no-op, not a failure.
func (c *Coordinator) Leave(code domain.RoomCode, user domain.UserID, connID ConnID) error {
	lk := c.roomLock(code)
	lk.Lock()
	defer lk.Unlock()

	c.registry.Unbind(connID)

	count, err := c.members.RemoveMember(code, user)
	if err != nil {
		return fmt.Errorf("remove membership: %w", err)
	}

	c.fanout.Publish(code, NewUserCountEvent(count))
	log.Info().Str("module", "core.coordinator").Str("room", string(code)).
		Str("user", string(user)).Int("count", count).Msg("leave")
	return nil
}

// SendMessage truncates, persists and then fans out one message. The
// append completes before any receiver sees the event, so a history
// fetch issued after the broadcast always includes it. Membership is not
// re-checked; a sender whose seat lapsed while the connection stayed open
// is still accepted.
func (c *Coordinator) SendMessage(code domain.RoomCode, sender domain.UserID, username, content string) (*domain.Message, error) {
	ok, err := c.rooms.Exists(code)
	if err != nil {
		return nil, fmt.Errorf("room lookup: %w", err)
	}
	if !ok {
		return nil, domain.ErrRoomNotFound
	}

	msg := domain.NewMessage(code, sender, username, content)
	if err := c.messages.Append(msg); err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}

	c.fanout.Publish(code, NewMessageEvent(msg))
	return msg, nil
}

// History returns the room's messages oldest first.
func (c *Coordinator) History(code domain.RoomCode) ([]domain.Message, error) {
	ok, err := c.rooms.Exists(code)
	if err != nil {
		return nil, fmt.Errorf("room lookup: %w", err)
	}
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return c.messages.ListOrdered(code)
}

// HandleDisconnect converges an ungraceful teardown onto the Leave path
// using the connection's last-known binding. Never surfaces an error to
// the transport; cleanup is best effort and tolerates state already gone.
func (c *Coordinator) HandleDisconnect(connID ConnID) {
	code, user, ok := c.registry.Binding(connID)
	if !ok {
		return
	}
	if err := c.Leave(code, user, connID); err != nil {
		log.Error().Err(err).Str("module", "core.coordinator").Str("conn", string(connID)).
			Str("room", string(code)).Msg("disconnect cleanup")
	}
}
