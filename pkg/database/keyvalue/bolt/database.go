// Copyright 2025 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package bolt

import (
	"bytes"
	"os"
	"path/filepath"

	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue"
	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue/memory"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("chainsim")

type Database struct {
	bolt    *bolt.DB
	tempDir string
}

var _ keyvalue.Beginner = (*Database)(nil)

func Open(filepath string) (*Database, error) {
	db, err := bolt.Open(filepath, 0600, nil)
	if err != nil {
		return nil, errors.UnknownError.WithFormat("open %q: %w", filepath, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.UnknownError.WithFormat("open %q: %w", filepath, err)
	}

	return &Database{bolt: db}, nil
}

// OpenTemp opens a database in a temporary directory that is removed when the
// database is closed.
func OpenTemp() (*Database, error) {
	dir, err := os.MkdirTemp("", "chainsim-bolt-")
	if err != nil {
		return nil, errors.UnknownError.WithFormat("create temp dir: %w", err)
	}

	d, err := Open(filepath.Join(dir, "bolt.db"))
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	d.tempDir = dir
	return d, nil
}

// Begin begins a change set.
func (d *Database) Begin(prefix keyvalue.Key, writable bool) keyvalue.ChangeSet {
	// Use a read-only transaction for reading
	rd, err := d.bolt.Begin(false)

	// Discard the transaction
	discard := func() {
		if rd != nil {
			_ = rd.Rollback()
		}
	}

	get := func(key keyvalue.Key) ([]byte, error) {
		return d.get(rd, err, key)
	}

	var commit memory.CommitFunc
	if writable {
		commit = func(entries map[keyvalue.Key]keyvalue.Entry) error {
			return d.commit(rd, entries)
		}
	}

	forEach := func(fn func(keyvalue.Key, []byte) error) error {
		return d.forEach(rd, err, prefix, fn)
	}

	// The memory changeset caches entries in a map so Get will see values
	// updated with Put, regardless of the underlying transaction and write
	// batch behavior
	return memory.NewChangeSet(memory.ChangeSetOptions{
		Prefix:  prefix,
		Get:     get,
		Commit:  commit,
		ForEach: forEach,
		Discard: discard,
	})
}

func (d *Database) get(txn *bolt.Tx, err error, key keyvalue.Key) ([]byte, error) {
	if err != nil {
		return nil, errors.UnknownError.WithFormat("begin: %w", err)
	}

	v := txn.Bucket(bucketName).Get([]byte(key))
	if v == nil {
		return nil, errors.NotFound.WithFormat("%v not found", key)
	}

	u := make([]byte, len(v))
	copy(u, v)
	return u, nil
}

func (d *Database) commit(rd *bolt.Tx, entries map[keyvalue.Key]keyvalue.Entry) error {
	// Discard the read transaction to unlock the database
	if rd != nil {
		_ = rd.Rollback()
	}

	err := d.bolt.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		for _, e := range entries {
			var err error
			if e.Delete {
				err = b.Delete([]byte(e.Key))
			} else {
				err = b.Put([]byte(e.Key), e.Value)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.UnknownError.WithFormat("commit: %w", err)
	}
	return nil
}

func (d *Database) forEach(txn *bolt.Tx, err error, prefix keyvalue.Key, fn func(keyvalue.Key, []byte) error) error {
	if err != nil {
		return errors.UnknownError.WithFormat("begin: %w", err)
	}

	var start []byte
	if prefix != "" {
		start = []byte(prefix + ".")
	}

	c := txn.Bucket(bucketName).Cursor()
	for k, v := c.Seek(start); k != nil; k, v = c.Next() {
		if len(start) > 0 && !bytes.HasPrefix(k, start) {
			break
		}

		u := make([]byte, len(v))
		copy(u, v)
		err := fn(keyvalue.Key(k), u)
		if err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database, and removes it if it was opened with
// [OpenTemp].
func (d *Database) Close() error {
	err := d.bolt.Close()
	if d.tempDir != "" {
		_ = os.RemoveAll(d.tempDir)
	}
	return err
}
