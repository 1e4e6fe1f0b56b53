package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog/log"

	"huddle/internal/domain"
)

// MembershipRepository owns the authoritative member set per room. The
// count key is read inside every mutating transaction, so two concurrent
// adds against the same room conflict at commit and one of them retries —
// the capacity check and the insert are a single atomic unit.
type MembershipRepository struct {
	db *badger.DB
}

func NewMembershipRepository(db *badger.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// AddMember seats the user if the room has a free seat and returns the
// resulting member count. Seating a user who already holds a seat is a
// no-op that reports the unchanged count. Returns domain.ErrRoomNotFound
// or domain.ErrRoomFull as expected outcomes.
func (r *MembershipRepository) AddMember(code domain.RoomCode, user domain.UserID) (int, error) {
	var count int
	err := update(r.db, func(txn *badger.Txn) error {
		room, err := getRoom(txn, code)
		if err != nil {
			return err
		}

		n, err := readCount(txn, code)
		if err != nil {
			return err
		}

		mk := memberKey(code, user)
		if _, err := txn.Get(mk); err == nil {
			count = n
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if n >= room.MaxCapacity {
			return domain.ErrRoomFull
		}

		data, err := json.Marshal(domain.NewMember(code, user))
		if err != nil {
			return err
		}
		if err := txn.Set(mk, data); err != nil {
			return err
		}
		count = n + 1
		return writeCount(txn, code, count)
	})
	if err != nil {
		return 0, err
	}
	log.Debug().Str("module", "storage.membership").Str("room", string(code)).
		Str("user", string(user)).Int("count", count).Msg("member added")
	return count, nil
}

// RemoveMember frees the user's seat and returns the resulting count.
// Removing a non-member, or any member of a room that no longer exists,
// is a no-op.
func (r *MembershipRepository) RemoveMember(code domain.RoomCode, user domain.UserID) (int, error) {
	var count int
	err := update(r.db, func(txn *badger.Txn) error {
		n, err := readCount(txn, code)
		if err != nil {
			return err
		}
		count = n

		mk := memberKey(code, user)
		if _, err := txn.Get(mk); errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		} else if err != nil {
			return err
		}

		if err := txn.Delete(mk); err != nil {
			return err
		}
		if n > 0 {
			count = n - 1
		}
		return writeCount(txn, code, count)
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CountMembers reads the current member count; zero for unknown rooms.
func (r *MembershipRepository) CountMembers(code domain.RoomCode) (int, error) {
	var count int
	err := r.db.View(func(txn *badger.Txn) error {
		n, err := readCount(txn, code)
		if err != nil {
			return err
		}
		count = n
		return nil
	})
	return count, err
}

// RemoveAll drops every seat in a room; used when the room is deleted.
func (r *MembershipRepository) RemoveAll(code domain.RoomCode) error {
	return update(r.db, func(txn *badger.Txn) error {
		keys, err := collectKeys(txn, memberPrefix(code))
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return txn.Delete(memberCountKey(code))
	})
}

func readCount(txn *badger.Txn, code domain.RoomCode) (int, error) {
	item, err := txn.Get(memberCountKey(code))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var n int
	err = item.Value(func(v []byte) error {
		c, read := binary.Varint(v)
		if read <= 0 {
			return errors.New("corrupt member count")
		}
		n = int(c)
		return nil
	})
	return n, err
}

func writeCount(txn *badger.Txn, code domain.RoomCode, n int) error {
	buf := make([]byte, binary.MaxVarintLen64)
	return txn.Set(memberCountKey(code), buf[:binary.PutVarint(buf, int64(n))])
}

func collectKeys(txn *badger.Txn, prefix []byte) ([][]byte, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys, nil
}
