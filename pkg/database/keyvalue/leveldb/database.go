// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package leveldb

import (
	"os"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue"
	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue/memory"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
)

type Database struct {
	leveldb *leveldb.DB
}

var _ keyvalue.Beginner = (*Database)(nil)

func OpenFile(filepath string) (*Database, error) {
	// Make sure all directories exist
	err := os.MkdirAll(filepath, 0700)
	if err != nil {
		return nil, errors.UnknownError.WithFormat("create %q: %w", filepath, err)
	}

	db, err := leveldb.OpenFile(filepath, nil)
	if err != nil {
		return nil, errors.UnknownError.WithFormat("open %q: %w", filepath, err)
	}
	return &Database{db}, nil
}

// NewInMemory opens a LevelDB database backed by memory.
func NewInMemory() (*Database, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, errors.UnknownError.WithFormat("open leveldb: %w", err)
	}
	return &Database{db}, nil
}

// Begin begins a change set.
func (d *Database) Begin(prefix keyvalue.Key, writable bool) keyvalue.ChangeSet {
	snap, err := d.leveldb.GetSnapshot()

	get := func(key keyvalue.Key) ([]byte, error) {
		return d.get(snap, err, key)
	}

	forEach := func(fn func(keyvalue.Key, []byte) error) error {
		return d.forEach(snap, err, prefix, fn)
	}

	var commit memory.CommitFunc
	if writable {
		commit = d.commit
	}

	discard := func() {
		if snap != nil {
			snap.Release()
		}
	}

	// The memory changeset caches entries in a map so Get will see values
	// updated with Put, regardless of the underlying snapshot and write batch
	// behavior
	return memory.NewChangeSet(memory.ChangeSetOptions{
		Prefix:  prefix,
		Get:     get,
		Commit:  commit,
		ForEach: forEach,
		Discard: discard,
	})
}

func (d *Database) commit(entries map[keyvalue.Key]keyvalue.Entry) error {
	batch := new(leveldb.Batch)
	for _, e := range entries {
		if e.Delete {
			batch.Delete([]byte(e.Key))
		} else {
			batch.Put([]byte(e.Key), e.Value)
		}
	}

	err := d.leveldb.Write(batch, nil)
	if err != nil {
		return errors.UnknownError.WithFormat("commit: %w", err)
	}
	return nil
}

func (d *Database) get(snap *leveldb.Snapshot, err error, key keyvalue.Key) ([]byte, error) {
	if err != nil {
		return nil, errors.UnknownError.WithFormat("snapshot: %w", err)
	}

	v, err := snap.Get([]byte(key), nil)
	switch {
	case err == nil:
		u := make([]byte, len(v))
		copy(u, v)
		return u, nil
	case errors.Is(err, leveldb.ErrNotFound):
		return nil, errors.NotFound.WithFormat("%v not found", key)
	default:
		return nil, errors.UnknownError.WithFormat("get %v: %w", key, err)
	}
}

func (d *Database) forEach(snap *leveldb.Snapshot, err error, prefix keyvalue.Key, fn func(keyvalue.Key, []byte) error) error {
	if err != nil {
		return errors.UnknownError.WithFormat("snapshot: %w", err)
	}

	var rng *util.Range
	if prefix != "" {
		rng = util.BytesPrefix([]byte(prefix + "."))
	}

	it := snap.NewIterator(rng, nil)
	defer it.Release()
	for it.Next() {
		value := make([]byte, len(it.Value()))
		copy(value, it.Value())
		err = fn(keyvalue.Key(it.Key()), value)
		if err != nil {
			return err
		}
	}
	it.Release()
	return it.Error()
}

// Close closes the underlying database.
func (d *Database) Close() error {
	return d.leveldb.Close()
}
