package domain

import "time"

// Member represents a user currently occupying a seat in a room.
// No transport or lifecycle logic here; the membership store owns the
// authoritative set of these records.
type Member struct {
	Room     RoomCode  `json:"room"`
	UserID   UserID    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(room RoomCode, user UserID) *Member {
	return &Member{Room: room, UserID: user, JoinedAt: time.Now().UTC()}
}
