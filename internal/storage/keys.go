package storage

import (
	"fmt"

	"huddle/internal/domain"
)

func roomKey(code domain.RoomCode) []byte {
	return []byte("room:" + string(code))
}

func ownerIdxKey(owner domain.UserID, code domain.RoomCode) []byte {
	return []byte("ownidx:" + string(owner) + ":" + string(code))
}

func ownerIdxPrefix(owner domain.UserID) []byte {
	return []byte("ownidx:" + string(owner) + ":")
}

func memberKey(code domain.RoomCode, user domain.UserID) []byte {
	return []byte("member:" + string(code) + ":" + string(user))
}

func memberPrefix(code domain.RoomCode) []byte {
	return []byte("member:" + string(code) + ":")
}

func memberCountKey(code domain.RoomCode) []byte {
	return []byte("mcount:" + string(code))
}

// msgKey pads nanoseconds to a fixed width so lexical key order equals
// creation order under badger's ascending iteration.
func msgKey(m *domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%020d:%s", m.Room, m.CreatedAt.UnixNano(), m.ID))
}

func msgPrefix(code domain.RoomCode) []byte {
	return []byte("msg:" + string(code) + ":")
}

func userKey(id domain.UserID) []byte {
	return []byte("user:id:" + string(id))
}

func userEmailKey(email string) []byte {
	return []byte("user:email:" + email)
}

func userNameKey(username string) []byte {
	return []byte("user:name:" + username)
}
