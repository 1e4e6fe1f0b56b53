package domain

import (
	"errors"
	"time"
)

const (
	RoomCodeLen      = 6
	MaxRoomNameLen   = 20
	MinRoomCapacity  = 2
	MaxRoomCapacity  = 100
	MaxRoomsPerOwner = 10
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room full")
	ErrRoomCodeTaken = errors.New("room code already exists")
	ErrRoomLimit     = errors.New("room limit reached for owner")
	ErrBadRoomCode   = errors.New("invalid room code")
	ErrBadCapacity   = errors.New("capacity out of range")
)

type RoomCode string

type Room struct {
	Code        RoomCode  `json:"code"`
	Name        string    `json:"name"`
	MaxCapacity int       `json:"max_capacity"`
	OwnerID     UserID    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewRoom validates the code and capacity bounds; name length is clamped
// rather than rejected.
func NewRoom(code RoomCode, name string, maxCapacity int, owner UserID) (*Room, error) {
	if !ValidRoomCode(code) {
		return nil, ErrBadRoomCode
	}
	if maxCapacity < MinRoomCapacity || maxCapacity > MaxRoomCapacity {
		return nil, ErrBadCapacity
	}
	if len(name) > MaxRoomNameLen {
		name = name[:MaxRoomNameLen]
	}
	return &Room{
		Code:        code,
		Name:        name,
		MaxCapacity: maxCapacity,
		OwnerID:     owner,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// ValidRoomCode reports whether code is exactly RoomCodeLen alphanumerics.
func ValidRoomCode(code RoomCode) bool {
	if len(code) != RoomCodeLen {
		return false
	}
	for _, r := range code {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return true
}
