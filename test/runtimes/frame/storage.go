// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package frame

import (
	"github.com/ethereum/go-ethereum/rlp"
	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
)

// Load decodes the value stored under the key into v. Load returns false if
// there is no value.
func Load(s keyvalue.Store, key keyvalue.Key, v interface{}) (bool, error) {
	b, err := s.Get(key)
	switch {
	case err == nil:
	case errors.Is(err, errors.NotFound):
		return false, nil
	default:
		return false, errors.UnknownError.WithFormat("load %v: %w", key, err)
	}

	err = rlp.DecodeBytes(b, v)
	if err != nil {
		return false, errors.EncodingError.WithFormat("decode %v: %w", key, err)
	}
	return true, nil
}

// Store stores the RLP encoding of v under the key.
func Store(s keyvalue.Store, key keyvalue.Key, v interface{}) error {
	b, err := rlp.EncodeToBytes(v)
	if err != nil {
		return errors.EncodingError.WithFormat("encode %v: %w", key, err)
	}
	return s.Put(key, b)
}

// Entry returns a genesis entry storing the RLP encoding of v under the key.
func Entry(key keyvalue.Key, v interface{}) (keyvalue.Entry, error) {
	b, err := rlp.EncodeToBytes(v)
	if err != nil {
		return keyvalue.Entry{}, errors.EncodingError.WithFormat("encode %v: %w", key, err)
	}
	return keyvalue.Entry{Key: key, Value: b}, nil
}

// Count returns the number of keys within the prefix.
func Count(s keyvalue.Store, prefix keyvalue.Key) (int, error) {
	var n int
	err := s.ForEach(func(k keyvalue.Key, _ []byte) error {
		if _, ok := k.TrimPrefix(prefix); ok {
			n++
		}
		return nil
	})
	return n, err
}
