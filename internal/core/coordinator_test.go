package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"huddle/internal/domain"
	"huddle/internal/storage"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []Frame
	broken bool
}

func (c *fakeConn) TrySend(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return errors.New("send buffer full")
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {}

// events decodes every received frame into a loose map keyed by "type".
func (c *fakeConn) events(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.frames))
	for _, f := range c.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(f, &m))
		out = append(out, m)
	}
	return out
}

func (c *fakeConn) lastCount(t *testing.T) int {
	t.Helper()
	count := -1
	for _, e := range c.events(t) {
		if e["type"] == EventUserCount {
			count = int(e["count"].(float64))
		}
	}
	return count
}

type testEnv struct {
	coord    *Coordinator
	registry *Registry
	members  *storage.MembershipRepository
	messages *storage.MessageRepository
	rooms    *storage.RoomRepository
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	db, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	registry := NewRegistry()
	members := storage.NewMembershipRepository(db)
	messages := storage.NewMessageRepository(db)
	rooms := storage.NewRoomRepository(db)
	coord := NewCoordinator(registry, NewFanout(registry), members, messages, rooms)
	return &testEnv{coord: coord, registry: registry, members: members, messages: messages, rooms: rooms}
}

func (e *testEnv) createRoom(t *testing.T, code domain.RoomCode, capacity int) {
	t.Helper()
	room, err := domain.NewRoom(code, "test room", capacity, "owner-1")
	require.NoError(t, err)
	require.NoError(t, e.rooms.Create(room))
}

func Test_Join_UnknownRoom(t *testing.T) {
	env := setup(t)
	_, err := env.coord.Join("NOROOM", "alice", "conn-1", &fakeConn{})
	require.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func Test_Join_ConcurrentNeverExceedsCapacity(t *testing.T) {
	req := require.New(t)
	env := setup(t)
	env.createRoom(t, "ABC123", 3)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	conns := make([]*fakeConn, attempts)

	for i := 0; i < attempts; i++ {
		conns[i] = &fakeConn{}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := domain.UserID(fmt.Sprintf("user-%d", i))
			connID := ConnID(fmt.Sprintf("conn-%d", i))
			_, errs[i] = env.coord.Join("ABC123", user, connID, conns[i])
		}(i)
	}
	wg.Wait()

	admitted := 0
	for _, err := range errs {
		switch {
		case err == nil:
			admitted++
		case errors.Is(err, domain.ErrRoomFull):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	req.Equal(3, admitted)

	count, err := env.members.CountMembers("ABC123")
	req.NoError(err)
	req.Equal(3, count)

	// Rejected joins leave no trace in the registry.
	req.Len(env.registry.ConnectionsInRoom("ABC123"), 3)
}

func Test_Join_RejoinKeepsOneSeat(t *testing.T) {
	req := require.New(t)
	env := setup(t)
	env.createRoom(t, "ABC123", 5)

	count, err := env.coord.Join("ABC123", "alice", "conn-1", &fakeConn{})
	req.NoError(err)
	req.Equal(1, count)

	// Reconnect before the old connection was cleaned up.
	count, err = env.coord.Join("ABC123", "alice", "conn-2", &fakeConn{})
	req.NoError(err)
	req.Equal(1, count)

	// The old connection's teardown must not free the retaken seat.
	env.coord.HandleDisconnect("conn-1")
	count, err = env.members.CountMembers("ABC123")
	req.NoError(err)
	req.Equal(1, count)
	req.Len(env.registry.ConnectionsInRoom("ABC123"), 1)
}

func Test_Join_BroadcastsNewCount(t *testing.T) {
	req := require.New(t)
	env := setup(t)
	env.createRoom(t, "ABC123", 5)

	aliceConn := &fakeConn{}
	_, err := env.coord.Join("ABC123", "alice", "conn-1", aliceConn)
	req.NoError(err)

	_, err = env.coord.Join("ABC123", "bob", "conn-2", &fakeConn{})
	req.NoError(err)

	req.Equal(2, aliceConn.lastCount(t))
}

func Test_Leave_NoOpForNonMember(t *testing.T) {
	req := require.New(t)
	env := setup(t)
	env.createRoom(t, "ABC123", 5)

	_, err := env.coord.Join("ABC123", "alice", "conn-1", &fakeConn{})
	req.NoError(err)

	req.NoError(env.coord.Leave("ABC123", "ghost", "conn-ghost"))

	count, err := env.members.CountMembers("ABC123")
	req.NoError(err)
	req.Equal(1, count)
}

func Test_Leave_MissingRoomIsNoOp(t *testing.T) {
	env := setup(t)
	require.NoError(t, env.coord.Leave("NOROOM", "alice", "conn-1"))
}

func Test_Disconnect_EqualsLeave(t *testing.T) {
	req := require.New(t)
	env := setup(t)
	env.createRoom(t, "ABC123", 5)

	bobConn := &fakeConn{}
	_, err := env.coord.Join("ABC123", "bob", "conn-bob", bobConn)
	req.NoError(err)
	_, err = env.coord.Join("ABC123", "alice", "conn-alice", &fakeConn{})
	req.NoError(err)

	env.coord.HandleDisconnect("conn-alice")

	count, err := env.members.CountMembers("ABC123")
	req.NoError(err)
	req.Equal(1, count)
	req.Equal(1, bobConn.lastCount(t))

	// A second teardown notification for the same connection is a no-op.
	env.coord.HandleDisconnect("conn-alice")
	count, err = env.members.CountMembers("ABC123")
	req.NoError(err)
	req.Equal(1, count)
}

func Test_SendMessage_PersistsBeforeBroadcast(t *testing.T) {
	req := require.New(t)
	env := setup(t)
	env.createRoom(t, "ABC123", 5)

	bobConn := &fakeConn{}
	_, err := env.coord.Join("ABC123", "bob", "conn-bob", bobConn)
	req.NoError(err)

	before := time.Now().UTC()
	msg, err := env.coord.SendMessage("ABC123", "alice", "alice", "hi")
	req.NoError(err)
	req.False(msg.CreatedAt.Before(before))

	msgs, err := env.messages.ListOrdered("ABC123")
	req.NoError(err)
	req.Len(msgs, 1)
	req.Equal("hi", msgs[0].Content)

	var got []map[string]any
	for _, e := range bobConn.events(t) {
		if e["type"] == EventMessage {
			got = append(got, e)
		}
	}
	req.Len(got, 1)
	req.Equal("hi", got[0]["content"])
	req.Equal("alice", got[0]["username"])
}

func Test_SendMessage_TruncatesLongContent(t *testing.T) {
	req := require.New(t)
	env := setup(t)
	env.createRoom(t, "ABC123", 5)

	bobConn := &fakeConn{}
	_, err := env.coord.Join("ABC123", "bob", "conn-bob", bobConn)
	req.NoError(err)

	long := strings.Repeat("x", domain.MaxMessageLen+500)
	msg, err := env.coord.SendMessage("ABC123", "alice", "alice", long)
	req.NoError(err)
	req.Len(msg.Content, domain.MaxMessageLen)

	msgs, err := env.messages.ListOrdered("ABC123")
	req.NoError(err)
	req.Len(msgs[0].Content, domain.MaxMessageLen)

	for _, e := range bobConn.events(t) {
		if e["type"] == EventMessage {
			req.Len(e["content"].(string), domain.MaxMessageLen)
		}
	}
}

func Test_SendMessage_UnknownRoom(t *testing.T) {
	env := setup(t)
	_, err := env.coord.SendMessage("NOROOM", "alice", "alice", "hi")
	require.ErrorIs(t, err, domain.ErrRoomNotFound)
}

// failingLog refuses every append; the coordinator must not broadcast.
type failingLog struct{}

func (failingLog) Append(*domain.Message) error { return errors.New("store unavailable") }
func (failingLog) ListOrdered(domain.RoomCode) ([]domain.Message, error) {
	return nil, errors.New("store unavailable")
}

func Test_SendMessage_NoBroadcastOnPersistFailure(t *testing.T) {
	req := require.New(t)
	env := setup(t)
	env.createRoom(t, "ABC123", 5)

	coord := NewCoordinator(env.registry, NewFanout(env.registry), env.members, failingLog{}, env.rooms)

	bobConn := &fakeConn{}
	_, err := coord.Join("ABC123", "bob", "conn-bob", bobConn)
	req.NoError(err)
	joinEvents := len(bobConn.events(t))

	_, err = coord.SendMessage("ABC123", "alice", "alice", "hi")
	req.Error(err)
	req.Len(bobConn.events(t), joinEvents)
}

func Test_BrokenReceiverDoesNotFailOthers(t *testing.T) {
	req := require.New(t)
	env := setup(t)
	env.createRoom(t, "ABC123", 5)

	broken := &fakeConn{broken: true}
	healthy := &fakeConn{}
	_, err := env.coord.Join("ABC123", "alice", "conn-a", broken)
	req.NoError(err)
	_, err = env.coord.Join("ABC123", "bob", "conn-b", healthy)
	req.NoError(err)

	_, err = env.coord.SendMessage("ABC123", "alice", "alice", "hi")
	req.NoError(err)

	found := false
	for _, e := range healthy.events(t) {
		if e["type"] == EventMessage {
			found = true
		}
	}
	req.True(found)
}

func Test_FullRoomCycle(t *testing.T) {
	req := require.New(t)
	env := setup(t)
	env.createRoom(t, "ABC123", 2)

	count, err := env.coord.Join("ABC123", "alice", "conn-a", &fakeConn{})
	req.NoError(err)
	req.Equal(1, count)

	count, err = env.coord.Join("ABC123", "bob", "conn-b", &fakeConn{})
	req.NoError(err)
	req.Equal(2, count)

	_, err = env.coord.Join("ABC123", "carol", "conn-c", &fakeConn{})
	req.ErrorIs(err, domain.ErrRoomFull)
	req.Len(env.registry.ConnectionsInRoom("ABC123"), 2)

	req.NoError(env.coord.Leave("ABC123", "alice", "conn-a"))

	count, err = env.coord.Join("ABC123", "carol", "conn-c", &fakeConn{})
	req.NoError(err)
	req.Equal(2, count)
}

func Test_LoneMemberDisconnect(t *testing.T) {
	req := require.New(t)
	env := setup(t)
	env.createRoom(t, "ABC123", 4)

	_, err := env.coord.Join("ABC123", "alice", "conn-a", &fakeConn{})
	req.NoError(err)

	_, err = env.coord.SendMessage("ABC123", "alice", "alice", "hi")
	req.NoError(err)

	msgs, err := env.coord.History("ABC123")
	req.NoError(err)
	req.Len(msgs, 1)
	req.Equal("hi", msgs[0].Content)

	env.coord.HandleDisconnect("conn-a")

	count, err := env.members.CountMembers("ABC123")
	req.NoError(err)
	req.Equal(0, count)
	req.Empty(env.registry.ConnectionsInRoom("ABC123"))
}
