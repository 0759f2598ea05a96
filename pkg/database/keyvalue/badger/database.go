// Copyright 2023 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package badger

import (
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"gitlab.com/accumulatenetwork/chainsim/internal/logging"
	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue"
	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue/memory"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
)

type Database struct {
	opts
	badger *badger.DB
	ready  bool
	mu     sync.RWMutex
}

type opts struct {
	logger logging.OptionalLogger
}

type Option func(*opts) error

// WithLogger routes Badger's log output to the given logger.
func WithLogger(logger logging.Logger) Option {
	return func(o *opts) error {
		o.logger.Set(logger, "module", "badger")
		return nil
	}
}

// New opens a Badger database. If filepath is empty, the database is held
// entirely in memory.
func New(filepath string, o ...Option) (*Database, error) {
	d := new(Database)
	for _, o := range o {
		err := o(&d.opts)
		if err != nil {
			return nil, errors.UnknownError.Wrap(err)
		}
	}

	opts := badger.DefaultOptions(filepath)
	if filepath == "" {
		opts = opts.WithInMemory(true)
	} else {
		// Make sure all directories exist
		err := os.MkdirAll(filepath, 0700)
		if err != nil {
			return nil, errors.UnknownError.WithFormat("open badger: create %q: %w", filepath, err)
		}
	}
	opts = opts.WithLogger(logger{&d.logger})

	// Open Badger
	var err error
	d.badger, err = badger.Open(opts)
	if err != nil {
		return nil, errors.UnknownError.WithFormat("open badger: %w", err)
	}

	d.ready = true
	return d, nil
}

// NewInMemory opens an in-memory Badger database.
func NewInMemory(o ...Option) (*Database, error) {
	return New("", o...)
}

var _ keyvalue.Beginner = (*Database)(nil)

// Begin begins a change set.
func (d *Database) Begin(prefix keyvalue.Key, writable bool) keyvalue.ChangeSet {
	// Use a read-only transaction for reading
	rd := d.badger.NewTransaction(false)

	// Read from the transaction
	get := func(key keyvalue.Key) ([]byte, error) {
		item, err := rd.Get([]byte(key))
		switch {
		case err == nil:
			// Ok
		case errors.Is(err, badger.ErrKeyNotFound):
			return nil, errors.NotFound.WithFormat("%v not found", key)
		default:
			return nil, errors.UnknownError.WithFormat("get %v: %w", key, err)
		}

		v, err := item.ValueCopy(nil)
		if err != nil {
			return nil, errors.UnknownError.WithFormat("get %v: %w", key, err)
		}
		return v, nil
	}

	// Iterate over the transaction
	forEach := func(fn func(keyvalue.Key, []byte) error) error {
		opts := badger.DefaultIteratorOptions
		if prefix != "" {
			opts.Prefix = []byte(prefix + ".")
		}
		it := rd.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			v, err := item.ValueCopy(nil)
			if err != nil {
				return errors.UnknownError.WithFormat("load %s: %w", item.Key(), err)
			}
			err = fn(keyvalue.Key(item.KeyCopy(nil)), v)
			if err != nil {
				return err
			}
		}
		return nil
	}

	// Commit to the write batch
	var commit memory.CommitFunc
	if writable {
		commit = func(entries map[keyvalue.Key]keyvalue.Entry) error {
			l, err := d.lock(false)
			if err != nil {
				return err
			}
			defer l.Unlock()

			// Use a write batch for writing to work around Badger's limitations
			wr := d.badger.NewWriteBatch()

			for _, e := range entries {
				if e.Delete {
					err = wr.Delete([]byte(e.Key))
				} else {
					err = wr.Set([]byte(e.Key), e.Value)
				}
				if err != nil {
					wr.Cancel()
					return errors.UnknownError.WithFormat("commit %v: %w", e.Key, err)
				}
			}

			return wr.Flush()
		}
	}

	// The memory changeset caches entries in a map so Get will see values
	// updated with Put, regardless of the underlying transaction and write
	// batch behavior
	return memory.NewChangeSet(memory.ChangeSetOptions{
		Prefix:  prefix,
		Get:     get,
		ForEach: forEach,
		Commit:  commit,
		Discard: rd.Discard,
	})
}

// Close closes the underlying database.
func (d *Database) Close() error {
	if l, err := d.lock(true); err != nil {
		return err
	} else {
		defer l.Unlock()
	}

	d.ready = false
	return d.badger.Close()
}

// lock acquires a lock on the ready mutex and checks for readiness. This
// prevents race conditions between commits and Close.
func (d *Database) lock(closing bool) (sync.Locker, error) {
	var l sync.Locker = &d.mu
	if !closing {
		l = d.mu.RLocker()
	}

	l.Lock()
	if !d.ready {
		l.Unlock()
		return nil, errors.BadRequest.With("database is closed")
	}

	return l, nil
}
