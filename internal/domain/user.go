// Package domain contains entities without logic, just meta-data
package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MinUsernameLen = 4
	MaxUsernameLen = 40
	MaxEmailLen    = 80
)

var (
	ErrUsernameEmpty   = errors.New("username empty")
	ErrUsernameTooLong = errors.New("username too long")
	ErrEmailTaken      = errors.New("email already registered")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrUserNotFound    = errors.New("user not found")
)

type UserID string

type User struct {
	ID           UserID    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
// Email and username are stored lowercased so lookups are case-insensitive.
func NewUser(email, username, passwordHash string) (*User, error) {
	if len(username) == 0 {
		return nil, ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return nil, ErrUsernameTooLong
	}
	return &User{
		ID:           UserID(uuid.NewString()),
		Email:        NormalizeEmail(email),
		Username:     strings.ToLower(username),
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// NormalizeEmail lowercases for case-insensitive lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(email)
}
