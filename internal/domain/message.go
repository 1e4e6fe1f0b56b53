package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxMessageLen caps message content in runes. Longer content is truncated,
// never rejected.
const MaxMessageLen = 3000

type MessageID string

// Message is immutable once created. Ordered by CreatedAt within a room.
type Message struct {
	ID        MessageID `json:"id"`
	Room      RoomCode  `json:"room"`
	SenderID  UserID    `json:"sender_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func NewMessage(room RoomCode, sender UserID, username, content string) *Message {
	return &Message{
		ID:        MessageID(uuid.NewString()),
		Room:      room,
		SenderID:  sender,
		Username:  username,
		Content:   TruncateContent(content),
		CreatedAt: time.Now().UTC(),
	}
}

// TruncateContent cuts content to MaxMessageLen runes without splitting a
// multi-byte sequence.
func TruncateContent(content string) string {
	if len(content) <= MaxMessageLen {
		return content
	}
	runes := []rune(content)
	if len(runes) <= MaxMessageLen {
		return content
	}
	return string(runes[:MaxMessageLen])
}
