package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog/log"

	"huddle/internal/domain"
)

// RoomRepository holds room records and the owner index. The live member
// set lives in MembershipRepository; this store never touches seats.
type RoomRepository struct {
	db *badger.DB
}

func NewRoomRepository(db *badger.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// Create stores a new room. Fails with domain.ErrRoomCodeTaken on a
// duplicate code and domain.ErrRoomLimit once the owner holds
// domain.MaxRoomsPerOwner rooms.
func (r *RoomRepository) Create(room *domain.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("marshal room: %w", err)
	}
	err = update(r.db, func(txn *badger.Txn) error {
		if _, err := txn.Get(roomKey(room.Code)); err == nil {
			return domain.ErrRoomCodeTaken
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		owned, err := collectKeys(txn, ownerIdxPrefix(room.OwnerID))
		if err != nil {
			return err
		}
		if len(owned) >= domain.MaxRoomsPerOwner {
			return domain.ErrRoomLimit
		}

		if err := txn.Set(roomKey(room.Code), data); err != nil {
			return err
		}
		return txn.Set(ownerIdxKey(room.OwnerID, room.Code), nil)
	})
	if err != nil {
		return err
	}
	log.Info().Str("module", "storage.rooms").Str("room", string(room.Code)).
		Str("owner", string(room.OwnerID)).Int("capacity", room.MaxCapacity).Msg("room created")
	return nil
}

func (r *RoomRepository) Get(code domain.RoomCode) (domain.Room, error) {
	var room domain.Room
	err := r.db.View(func(txn *badger.Txn) error {
		got, err := getRoom(txn, code)
		if err != nil {
			return err
		}
		room = got
		return nil
	})
	return room, err
}

func (r *RoomRepository) Exists(code domain.RoomCode) (bool, error) {
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(roomKey(code))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes the room record and its owner index entry. The caller is
// expected to cascade messages and membership.
func (r *RoomRepository) Delete(code domain.RoomCode) error {
	return update(r.db, func(txn *badger.Txn) error {
		room, err := getRoom(txn, code)
		if err != nil {
			return err
		}
		if err := txn.Delete(ownerIdxKey(room.OwnerID, code)); err != nil {
			return err
		}
		return txn.Delete(roomKey(code))
	})
}

func (r *RoomRepository) ListByOwner(owner domain.UserID) ([]domain.Room, error) {
	var rooms []domain.Room
	prefix := ownerIdxPrefix(owner)

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			code := domain.RoomCode(it.Item().Key()[len(prefix):])
			room, err := getRoom(txn, code)
			if err != nil {
				return err
			}
			rooms = append(rooms, room)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func getRoom(txn *badger.Txn, code domain.RoomCode) (domain.Room, error) {
	var room domain.Room
	item, err := txn.Get(roomKey(code))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return room, domain.ErrRoomNotFound
	}
	if err != nil {
		return room, err
	}
	err = item.Value(func(v []byte) error {
		return json.Unmarshal(v, &room)
	})
	return room, err
}
