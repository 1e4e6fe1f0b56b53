package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"huddle/internal/domain"
)

// UserRepository backs the auth service: unique email and username,
// lookups by either.
type UserRepository struct {
	db *badger.DB
}

// storedUser re-adds the password hash, which domain.User hides from
// API marshaling.
type storedUser struct {
	domain.User
	PasswordHash string `json:"password_hash"`
}

func encodeUser(u *domain.User) ([]byte, error) {
	return json.Marshal(storedUser{User: *u, PasswordHash: u.PasswordHash})
}

func decodeUser(v []byte, u *domain.User) error {
	var su storedUser
	if err := json.Unmarshal(v, &su); err != nil {
		return err
	}
	*u = su.User
	u.PasswordHash = su.PasswordHash
	return nil
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(u *domain.User) error {
	data, err := encodeUser(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	return update(r.db, func(txn *badger.Txn) error {
		if _, err := txn.Get(userEmailKey(u.Email)); err == nil {
			return domain.ErrEmailTaken
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if _, err := txn.Get(userNameKey(u.Username)); err == nil {
			return domain.ErrUsernameTaken
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := txn.Set(userKey(u.ID), data); err != nil {
			return err
		}
		if err := txn.Set(userEmailKey(u.Email), []byte(u.ID)); err != nil {
			return err
		}
		return txn.Set(userNameKey(u.Username), []byte(u.ID))
	})
}

func (r *UserRepository) GetByID(id domain.UserID) (domain.User, error) {
	var user domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return decodeUser(v, &user)
		})
	})
	return user, err
}

func (r *UserRepository) GetByEmail(email string) (domain.User, error) {
	var user domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userEmailKey(email))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		var id domain.UserID
		if err := item.Value(func(v []byte) error {
			id = domain.UserID(v)
			return nil
		}); err != nil {
			return err
		}

		item, err = txn.Get(userKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return decodeUser(v, &user)
		})
	})
	return user, err
}
