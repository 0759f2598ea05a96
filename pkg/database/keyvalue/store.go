// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package keyvalue

import (
	"fmt"
	"strings"
)

// Store is a key-value store.
type Store interface {
	// Get loads a value. Get returns a NotFound error if the key does not
	// exist.
	Get(Key) ([]byte, error)

	// Put stores a value.
	Put(Key, []byte) error

	// Delete deletes a key-value pair.
	Delete(Key) error

	// ForEach iterates over each value in key order.
	ForEach(func(Key, []byte) error) error
}

// Entry is a key-value pair or a deletion marker.
type Entry struct {
	Key    Key
	Value  []byte
	Delete bool
}

// Key is a dot-separated record key.
type Key string

// NewKey returns a key composed of the given parts.
func NewKey(parts ...interface{}) Key {
	return Key("").Append(parts...)
}

// Append returns a new key with the given parts appended.
func (k Key) Append(parts ...interface{}) Key {
	s := make([]string, 0, len(parts)+1)
	if k != "" {
		s = append(s, string(k))
	}
	for _, p := range parts {
		s = append(s, fmt.Sprint(p))
	}
	return Key(strings.Join(s, "."))
}

// AppendKey returns a new key with l appended to k.
func (k Key) AppendKey(l Key) Key {
	switch {
	case k == "":
		return l
	case l == "":
		return k
	}
	return k + "." + l
}

// TrimPrefix removes prefix from k. TrimPrefix returns false if k is not
// within prefix.
func (k Key) TrimPrefix(prefix Key) (Key, bool) {
	if prefix == "" {
		return k, true
	}
	if !strings.HasPrefix(string(k), string(prefix)+".") {
		return "", false
	}
	return k[len(prefix)+1:], true
}

func (k Key) String() string { return string(k) }
