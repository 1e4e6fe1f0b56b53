package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Registry_BindAndLookup(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	conn := &fakeConn{}
	r.Bind("conn-1", "ABC123", "alice", conn)

	room, user, ok := r.Binding("conn-1")
	req.True(ok)
	req.Equal("ABC123", string(room))
	req.Equal("alice", string(user))

	_, _, ok = r.Binding("conn-2")
	req.False(ok)
}

func Test_Registry_Unbind(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	r.Bind("conn-1", "ABC123", "alice", &fakeConn{})
	r.Unbind("conn-1")

	_, _, ok := r.Binding("conn-1")
	req.False(ok)

	// Unbinding twice is harmless.
	r.Unbind("conn-1")
}

func Test_Registry_ConnectionsInRoom(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	r.Bind("conn-1", "ABC123", "alice", &fakeConn{})
	r.Bind("conn-2", "ABC123", "bob", &fakeConn{})
	r.Bind("conn-3", "XYZ789", "carol", &fakeConn{})

	snaps := r.ConnectionsInRoom("ABC123")
	req.Len(snaps, 2)
	for _, s := range snaps {
		req.NotNil(s.Conn)
		req.NotEqual("carol", string(s.User))
	}

	req.Empty(r.ConnectionsInRoom("EMPTY1"))
}
