package storage

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog/log"

	"huddle/internal/domain"
)

// MessageRepository is the append-only, time-ordered message log per room.
type MessageRepository struct {
	db *badger.DB
}

func NewMessageRepository(db *badger.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append persists one message under a key that sorts by creation time.
func (r *MessageRepository) Append(m *domain.Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(msgKey(m), data)
	})
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	log.Debug().Str("module", "storage.messages").Str("room", string(m.Room)).
		Str("id", string(m.ID)).Msg("message appended")
	return nil
}

// ListOrdered returns every message for a room, oldest first. Safe to
// re-run for a fresh history fetch.
func (r *MessageRepository) ListOrdered(code domain.RoomCode) ([]domain.Message, error) {
	var out []domain.Message
	prefix := msgPrefix(code)

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var m domain.Message
				if err := json.Unmarshal(v, &m); err != nil {
					return fmt.Errorf("unmarshal message: %w", err)
				}
				out = append(out, m)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteRoom bulk-deletes a room's log; only called when the room itself
// is deleted.
func (r *MessageRepository) DeleteRoom(code domain.RoomCode) error {
	return update(r.db, func(txn *badger.Txn) error {
		keys, err := collectKeys(txn, msgPrefix(code))
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
