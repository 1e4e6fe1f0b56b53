package core

import (
	"time"

	"huddle/internal/domain"
)

// Outbound event types fanned out to a room's audience.
const (
	EventUserCount = "userCount"
	EventMessage   = "message"
)

type UserCountEvent struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

func NewUserCountEvent(count int) UserCountEvent {
	return UserCountEvent{Type: EventUserCount, Count: count}
}

type MessageEvent struct {
	Type      string    `json:"type"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewMessageEvent(m *domain.Message) MessageEvent {
	return MessageEvent{
		Type:      EventMessage,
		Username:  m.Username,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}
