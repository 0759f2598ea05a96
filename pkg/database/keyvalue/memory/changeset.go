// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package memory

import (
	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type GetFunc = func(keyvalue.Key) ([]byte, error)
type ForEachFunc = func(func(keyvalue.Key, []byte) error) error
type CommitFunc = func(map[keyvalue.Key]keyvalue.Entry) error

// ChangeSetOptions configures a change set. Get and ForEach operate on full
// (prefixed) keys. A change set without a commit function is read-only.
type ChangeSetOptions struct {
	Prefix  keyvalue.Key
	Get     GetFunc
	ForEach ForEachFunc
	Commit  CommitFunc
	Discard func()
}

// ChangeSet buffers changes in memory until they are committed.
type ChangeSet struct {
	opts    ChangeSetOptions
	entries map[keyvalue.Key]keyvalue.Entry
	done    bool
}

var _ keyvalue.ChangeSet = (*ChangeSet)(nil)

func NewChangeSet(opts ChangeSetOptions) *ChangeSet {
	c := new(ChangeSet)
	c.opts = opts
	c.entries = map[keyvalue.Key]keyvalue.Entry{}
	return c
}

// Begin begins a nested change set. Committing the nested change set commits
// its changes to this one.
func (c *ChangeSet) Begin(prefix keyvalue.Key, writable bool) keyvalue.ChangeSet {
	opts := ChangeSetOptions{
		Prefix:  c.opts.Prefix.AppendKey(prefix),
		Get:     c.get,
		ForEach: c.forEach,
	}
	if writable {
		opts.Commit = c.putAll
	}
	return NewChangeSet(opts)
}

func (c *ChangeSet) Get(key keyvalue.Key) ([]byte, error) {
	if c.done {
		return nil, errors.BadRequest.With("change set has been committed or discarded")
	}
	return c.get(c.opts.Prefix.AppendKey(key))
}

func (c *ChangeSet) Put(key keyvalue.Key, value []byte) error {
	if err := c.checkWritable(); err != nil {
		return err
	}
	key = c.opts.Prefix.AppendKey(key)
	c.entries[key] = keyvalue.Entry{Key: key, Value: slices.Clone(value)}
	return nil
}

func (c *ChangeSet) Delete(key keyvalue.Key) error {
	if err := c.checkWritable(); err != nil {
		return err
	}
	key = c.opts.Prefix.AppendKey(key)
	c.entries[key] = keyvalue.Entry{Key: key, Delete: true}
	return nil
}

// ForEach iterates over the entries within the change set's prefix, in key
// order, with the prefix removed.
func (c *ChangeSet) ForEach(fn func(keyvalue.Key, []byte) error) error {
	if c.done {
		return errors.BadRequest.With("change set has been committed or discarded")
	}
	return c.forEach(func(key keyvalue.Key, value []byte) error {
		key, ok := key.TrimPrefix(c.opts.Prefix)
		if !ok {
			return nil
		}
		return fn(key, value)
	})
}

func (c *ChangeSet) Commit() error {
	if c.done {
		return errors.BadRequest.With("change set has been committed or discarded")
	}
	defer c.Discard()

	if c.opts.Commit == nil || len(c.entries) == 0 {
		return nil
	}
	return c.opts.Commit(c.entries)
}

func (c *ChangeSet) Discard() {
	if c.done {
		return
	}
	c.done = true
	c.entries = nil
	if c.opts.Discard != nil {
		c.opts.Discard()
	}
}

func (c *ChangeSet) checkWritable() error {
	switch {
	case c.done:
		return errors.BadRequest.With("change set has been committed or discarded")
	case c.opts.Commit == nil:
		return errors.BadRequest.With("change set is not writable")
	}
	return nil
}

func (c *ChangeSet) get(key keyvalue.Key) ([]byte, error) {
	if e, ok := c.entries[key]; ok {
		if e.Delete {
			return nil, errors.NotFound.WithFormat("%v not found", key)
		}
		return slices.Clone(e.Value), nil
	}
	return c.opts.Get(key)
}

func (c *ChangeSet) putAll(entries map[keyvalue.Key]keyvalue.Entry) error {
	if err := c.checkWritable(); err != nil {
		return err
	}
	for k, e := range entries {
		c.entries[k] = e
	}
	return nil
}

// forEach merges the pending entries with the underlying store.
func (c *ChangeSet) forEach(fn func(keyvalue.Key, []byte) error) error {
	merged := map[keyvalue.Key][]byte{}
	if c.opts.ForEach != nil {
		err := c.opts.ForEach(func(key keyvalue.Key, value []byte) error {
			merged[key] = value
			return nil
		})
		if err != nil {
			return errors.UnknownError.Wrap(err)
		}
	}
	for k, e := range c.entries {
		if e.Delete {
			delete(merged, k)
		} else {
			merged[k] = e.Value
		}
	}

	keys := maps.Keys(merged)
	slices.Sort(keys)
	for _, k := range keys {
		err := fn(k, slices.Clone(merged[k]))
		if err != nil {
			return err
		}
	}
	return nil
}
