// Package storage holds the durable stores, all backed by a single
// BadgerDB instance. Key layout:
//
//	room:<code>                 room record
//	ownidx:<ownerID>:<code>     owner -> room index
//	member:<code>:<userID>      one seat in a room
//	mcount:<code>               current member count
//	msg:<code>:<nanos>:<id>     message, time-ordered by key
//	user:id:<id>                user record
//	user:email:<email>          email -> user id
//	user:name:<username>        username -> user id
package storage

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog/log"
)

const txnRetries = 64

func Open(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}
	return db, nil
}

// OpenInMemory is used by tests; nothing touches disk.
func OpenInMemory() (*badger.DB, error) {
	return badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(badgerLogger{}))
}

// update runs fn in a read-write transaction, retrying on commit conflicts.
// Badger detects write skew on the keys a transaction read; retrying makes
// a read-check-write sequence behave as one atomic conditional update.
func update(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < txnRetries; i++ {
		err = db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// badgerLogger routes badger's own chatter through zerolog.
type badgerLogger struct{}

func (badgerLogger) Errorf(f string, v ...interface{}) {
	log.Error().Str("module", "storage.badger").Msgf(f, v...)
}

func (badgerLogger) Warningf(f string, v ...interface{}) {
	log.Warn().Str("module", "storage.badger").Msgf(f, v...)
}

func (badgerLogger) Infof(f string, v ...interface{}) {
	log.Debug().Str("module", "storage.badger").Msgf(f, v...)
}

func (badgerLogger) Debugf(f string, v ...interface{}) {
	log.Debug().Str("module", "storage.badger").Msgf(f, v...)
}
