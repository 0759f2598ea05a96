// Copyright 2023 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package kvtest

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
)

type Opener = func() (keyvalue.Beginner, error)

type closableDb struct {
	keyvalue.Beginner
	t      testing.TB
	closed bool
}

func (c *closableDb) Close() {
	if c.closed {
		return
	}
	c.closed = true

	if d, ok := c.Beginner.(io.Closer); ok {
		require.NoError(c.t, d.Close())
	}
}

func openDb(t testing.TB, open Opener) *closableDb {
	db, err := open()
	require.NoError(t, err)
	c := &closableDb{db, t, false}
	t.Cleanup(c.Close)
	return c
}

// TestSuite runs the tests every store must pass. The opener must return a
// database with the same contents each time it is called.
func TestSuite(t *testing.T, open Opener) {
	t.Run("Database", func(t *testing.T) { TestDatabase(t, open) })
	t.Run("SubBatch", func(t *testing.T) { TestSubBatch(t, open) })
	t.Run("Prefix", func(t *testing.T) { TestPrefix(t, open) })
	t.Run("Delete", func(t *testing.T) { TestDelete(t, open) })
	t.Run("Discard", func(t *testing.T) { TestDiscard(t, open) })
}

func TestDatabase(t *testing.T, open Opener) {
	const N = 1000

	// Open and write changes
	db := openDb(t, open)

	batch := db.Begin("", true)
	defer batch.Discard()

	// Read when nothing exists
	_, err := batch.Get(keyvalue.NewKey("answer", 0))
	require.Error(t, err)
	require.ErrorIs(t, err, errors.NotFound)

	// Write
	values := map[keyvalue.Key]string{}
	for i := 0; i < N; i++ {
		key := keyvalue.NewKey("answer", i)
		value := fmt.Sprintf("%x this much data ", i)
		values[key] = value
		err := batch.Put(key, []byte(value))
		require.NoError(t, err, "Put")
	}

	// Commit
	require.NoError(t, batch.Commit())

	// Verify with a new batch
	batch = db.Begin("", false)
	defer batch.Discard()

	for i := 0; i < N; i++ {
		val, err := batch.Get(keyvalue.NewKey("answer", i))
		require.NoError(t, err, "Get")
		require.Equal(t, fmt.Sprintf("%x this much data ", i), string(val))
	}

	batch.Discard()

	// Verify with a fresh instance
	db.Close()
	db = openDb(t, open)

	batch = db.Begin("", false)
	defer batch.Discard()

	for i := 0; i < N; i++ {
		val, err := batch.Get(keyvalue.NewKey("answer", i))
		require.NoError(t, err, "Get")
		require.Equal(t, fmt.Sprintf("%x this much data ", i), string(val))
	}

	// Verify ForEach
	var last keyvalue.Key
	require.NoError(t, batch.ForEach(func(key keyvalue.Key, value []byte) error {
		require.Less(t, last, key, "Keys must be iterated in order")
		last = key
		expect, ok := values[key]
		if !ok {
			return nil // Entries written by other tests
		}
		require.Equalf(t, expect, string(value), "%v should match", key)
		delete(values, key)
		return nil
	}))
	require.Empty(t, values, "All values should be iterated over")
}

// TestIsolation verifies that a change set does not observe changes committed
// after it began.
func TestIsolation(t *testing.T, open Opener) {
	// Open and write
	db := openDb(t, open)

	batch := db.Begin("", true)
	defer batch.Discard()

	key := keyvalue.NewKey("key")
	err := batch.Put(key, []byte("value"))
	require.NoError(t, err, "Put")
	require.NoError(t, batch.Commit())

	// Start two batches
	b1 := db.Begin("", true)
	defer b1.Discard()

	b2 := db.Begin("", false)
	defer b2.Discard()

	// Delete and commit in batch 1
	require.NoError(t, b1.Delete(key))
	require.NoError(t, b1.Commit())

	// Verify the change is not visible from batch 2
	v, err := b2.Get(key)
	require.NoError(t, err, "Get")
	require.Equal(t, []byte("value"), v)

	// Verify the change is now visible
	batch = db.Begin("", true)
	defer batch.Discard()
	_, err = batch.Get(key)
	require.ErrorIs(t, err, errors.NotFound)
}

func TestSubBatch(t *testing.T, open Opener) {
	db := openDb(t, open)

	batch := db.Begin("", true)
	defer batch.Discard()
	sub := batch.Begin("", true)
	defer sub.Discard()

	for i := 0; i < 100; i++ {
		err := sub.Put(keyvalue.NewKey("sub", i), []byte(fmt.Sprintf("%x this much data ", i)))
		require.NoError(t, err, "Put")
	}

	// Not visible from the outer batch until the sub-batch commits
	_, err := batch.Get(keyvalue.NewKey("sub", 0))
	require.ErrorIs(t, err, errors.NotFound)

	// Commit and begin a new sub-batch
	require.NoError(t, sub.Commit())
	sub = batch.Begin("", true)
	defer sub.Discard()

	for i := 0; i < 100; i++ {
		val, err := sub.Get(keyvalue.NewKey("sub", i))
		require.NoError(t, err, "Get")
		require.Equal(t, fmt.Sprintf("%x this much data ", i), string(val))
	}

	// A discarded sub-batch leaves the outer batch untouched
	require.NoError(t, sub.Delete(keyvalue.NewKey("sub", 0)))
	sub.Discard()
	_, err = batch.Get(keyvalue.NewKey("sub", 0))
	require.NoError(t, err)
}

func TestPrefix(t *testing.T, open Opener) {
	data := []byte("prefixed data")

	db := openDb(t, open)

	const prefix, key = "foo", "bar"
	batch := db.Begin(keyvalue.NewKey(prefix), true)
	defer batch.Discard()
	require.NoError(t, batch.Put(keyvalue.NewKey(key), data))
	require.NoError(t, batch.Commit())

	batch = db.Begin(keyvalue.NewKey(prefix), true)
	defer batch.Discard()
	v, err := batch.Get(keyvalue.NewKey(key))
	require.NoError(t, err)
	require.Equal(t, data, v)

	// The full key is visible without the prefix
	batch = db.Begin("", false)
	defer batch.Discard()
	v, err = batch.Get(keyvalue.NewKey(prefix, key))
	require.NoError(t, err)
	require.Equal(t, data, v)

	// ForEach only visits keys within the prefix
	batch = db.Begin(keyvalue.NewKey(prefix), false)
	defer batch.Discard()
	var keys []keyvalue.Key
	require.NoError(t, batch.ForEach(func(k keyvalue.Key, _ []byte) error {
		keys = append(keys, k)
		return nil
	}))
	require.Equal(t, []keyvalue.Key{key}, keys)
}

func TestDelete(t *testing.T, open Opener) {
	db := openDb(t, open)

	// Write a value
	batch := db.Begin("", true)
	defer batch.Discard()
	require.NoError(t, batch.Put(keyvalue.NewKey("foo"), []byte("bar")))
	require.NoError(t, batch.Commit())

	// Verify it can be retrieved
	batch = db.Begin("", false)
	defer batch.Discard()
	v, err := batch.Get(keyvalue.NewKey("foo"))
	require.NoError(t, err)
	require.Equal(t, "bar", string(v))
	batch.Discard()

	// Delete the value
	batch = db.Begin("", true)
	defer batch.Discard()
	require.NoError(t, batch.Delete(keyvalue.NewKey("foo")))

	// Verify it returns not found from the same batch
	_, err = batch.Get(keyvalue.NewKey("foo"))
	require.ErrorIs(t, err, errors.NotFound)

	// Commit and reopen
	require.NoError(t, batch.Commit())
	db.Close()
	db = openDb(t, open)

	// Verify it returns not found from a new batch
	batch = db.Begin("", false)
	defer batch.Discard()
	_, err = batch.Get(keyvalue.NewKey("foo"))
	require.ErrorIs(t, err, errors.NotFound)
}

func TestDiscard(t *testing.T, open Opener) {
	db := openDb(t, open)

	batch := db.Begin("", true)
	require.NoError(t, batch.Put(keyvalue.NewKey("discarded"), []byte("value")))
	batch.Discard()

	batch = db.Begin("", false)
	defer batch.Discard()
	_, err := batch.Get(keyvalue.NewKey("discarded"))
	require.ErrorIs(t, err, errors.NotFound)
}

func BenchmarkCommit(b *testing.B, open Opener) {
	db := openDb(b, open)

	batch := db.Begin("", true)
	defer batch.Discard()

	for i := 0; i < b.N; i++ {
		err := batch.Put(keyvalue.NewKey("answer", i), []byte(fmt.Sprintf("%x this much data ", i)))
		require.NoError(b, err, "Put")
	}

	b.ResetTimer()
	require.NoError(b, batch.Commit())
}
