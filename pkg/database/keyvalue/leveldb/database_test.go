// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package leveldb

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue"
	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue/kvtest"
)

func newOpener(t testing.TB) kvtest.Opener {
	path := t.TempDir()
	return func() (keyvalue.Beginner, error) {
		return OpenFile(path)
	}
}

func TestSuite(t *testing.T) {
	kvtest.TestSuite(t, newOpener(t))
}

func TestIsolation(t *testing.T) {
	kvtest.TestIsolation(t, newOpener(t))
}

func TestInMemory(t *testing.T) {
	db, err := NewInMemory()
	require.NoError(t, err)
	defer func() { require.NoError(t, db.Close()) }()

	batch := db.Begin(keyvalue.NewKey("para", 2000), true)
	require.NoError(t, batch.Put("a", []byte{1}))
	require.NoError(t, batch.Put("b", []byte{2}))
	require.NoError(t, batch.Commit())

	// Keys outside the prefix are not visited
	batch = db.Begin("", true)
	require.NoError(t, batch.Put(keyvalue.NewKey("para", 2001, "a"), []byte{3}))
	require.NoError(t, batch.Commit())

	batch = db.Begin(keyvalue.NewKey("para", 2000), false)
	defer batch.Discard()
	var keys []keyvalue.Key
	require.NoError(t, batch.ForEach(func(k keyvalue.Key, _ []byte) error {
		keys = append(keys, k)
		return nil
	}))
	require.Equal(t, []keyvalue.Key{"a", "b"}, keys)
}
