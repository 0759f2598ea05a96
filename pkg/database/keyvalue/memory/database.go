// Copyright 2023 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package memory

import (
	"sync"

	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Database struct {
	mu      sync.RWMutex
	entries map[keyvalue.Key][]byte
}

var _ keyvalue.Beginner = (*Database)(nil)

func New() *Database {
	return &Database{entries: map[keyvalue.Key][]byte{}}
}

// Begin begins a change set.
func (d *Database) Begin(prefix keyvalue.Key, writable bool) keyvalue.ChangeSet {
	opts := ChangeSetOptions{
		Prefix:  prefix,
		Get:     d.get,
		ForEach: d.forEach,
	}
	if writable {
		opts.Commit = d.put
	}
	return NewChangeSet(opts)
}

// Export exports the database as a set of entries, sorted by key.
func (d *Database) Export() ([]keyvalue.Entry, error) {
	var entries []keyvalue.Entry
	err := d.forEach(func(key keyvalue.Key, value []byte) error {
		entries = append(entries, keyvalue.Entry{Key: key, Value: value})
		return nil
	})
	return entries, err
}

// Import imports a set of entries into the database.
func (d *Database) Import(entries []keyvalue.Entry) error {
	m := make(map[keyvalue.Key]keyvalue.Entry, len(entries))
	for _, e := range entries {
		m[e.Key] = e
	}
	return d.put(m)
}

func (d *Database) get(key keyvalue.Key) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.entries[key]
	if ok {
		return slices.Clone(v), nil
	}

	// Not found
	return nil, errors.NotFound.WithFormat("%v not found", key)
}

func (d *Database) forEach(fn func(keyvalue.Key, []byte) error) error {
	// Copy the entries so the callback can use the database
	d.mu.RLock()
	keys := maps.Keys(d.entries)
	values := make(map[keyvalue.Key][]byte, len(keys))
	for _, k := range keys {
		values[k] = d.entries[k]
	}
	d.mu.RUnlock()

	slices.Sort(keys)
	for _, k := range keys {
		err := fn(k, slices.Clone(values[k]))
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *Database) put(entries map[keyvalue.Key]keyvalue.Entry) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, e := range entries {
		if e.Delete {
			delete(d.entries, e.Key)
		} else {
			d.entries[e.Key] = slices.Clone(e.Value)
		}
	}
	return nil
}
