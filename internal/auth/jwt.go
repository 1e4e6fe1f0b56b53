// Package auth issues and verifies the credentials the core trusts:
// bcrypt password hashes at rest and signed tokens on the wire.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"huddle/internal/domain"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the verified identity a transport session hands the core.
type Claims struct {
	UserID   domain.UserID `json:"id"`
	Email    string        `json:"email"`
	Username string        `json:"username"`
	jwt.RegisteredClaims
}

// Tokens wraps a signing secret for issuing/verifying tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl}
}

func (t *Tokens) Issue(u *domain.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   u.ID,
		Email:    u.Email,
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(u.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(t.secret)
}

func (t *Tokens) Verify(token string) (*Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !parsed.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
