package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"huddle/internal/domain"
)

func Test_Append_And_ListOrdered(t *testing.T) {
	req := require.New(t)
	db := setupDB(t)
	repo := NewMessageRepository(db)

	at := time.Now().UTC()
	for i := 0; i < 5; i++ {
		m := domain.NewMessage("ABC123", "alice", "alice", fmt.Sprintf("message %d", i))
		m.CreatedAt = at.Add(time.Duration(i) * time.Minute)
		req.NoError(repo.Append(m))
	}

	msgs, err := repo.ListOrdered("ABC123")
	req.NoError(err)
	req.Len(msgs, 5)
	for i, m := range msgs {
		req.Equal(fmt.Sprintf("message %d", i), m.Content)
	}
}

func Test_ListOrdered_IsolatesRooms(t *testing.T) {
	req := require.New(t)
	db := setupDB(t)
	repo := NewMessageRepository(db)

	req.NoError(repo.Append(domain.NewMessage("ABC123", "alice", "alice", "here")))
	req.NoError(repo.Append(domain.NewMessage("XYZ789", "bob", "bob", "there")))

	msgs, err := repo.ListOrdered("ABC123")
	req.NoError(err)
	req.Len(msgs, 1)
	req.Equal("here", msgs[0].Content)
}

func Test_ListOrdered_EmptyRoom(t *testing.T) {
	req := require.New(t)
	db := setupDB(t)
	repo := NewMessageRepository(db)

	msgs, err := repo.ListOrdered("EMPTY1")
	req.NoError(err)
	req.Empty(msgs)
}

func Test_DeleteRoom_RemovesOnlyThatLog(t *testing.T) {
	req := require.New(t)
	db := setupDB(t)
	repo := NewMessageRepository(db)

	req.NoError(repo.Append(domain.NewMessage("ABC123", "alice", "alice", "bye")))
	req.NoError(repo.Append(domain.NewMessage("XYZ789", "bob", "bob", "stay")))

	req.NoError(repo.DeleteRoom("ABC123"))

	msgs, err := repo.ListOrdered("ABC123")
	req.NoError(err)
	req.Empty(msgs)

	msgs, err = repo.ListOrdered("XYZ789")
	req.NoError(err)
	req.Len(msgs, 1)
}
