// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package simulator

import (
	"io"

	"gitlab.com/accumulatenetwork/chainsim/config"
	"gitlab.com/accumulatenetwork/chainsim/internal/logging"
	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue"
	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue/badger"
	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue/bolt"
	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue/leveldb"
	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue/memory"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
)

type Option func(*simFactory) error

type OpenDatabaseFunc = func(logger logging.Logger) (keyvalue.Beginner, error)
type SnapshotFunc = func(chain messaging.ChainID, network *config.Network) ([]keyvalue.Entry, error)

// EnvelopeInterceptor is called for every envelope a runtime sends. If it
// returns false the envelope is dropped before it reaches the channel.
type EnvelopeInterceptor = func(*messaging.Envelope) (keep bool)

func WithLogger(logger logging.Logger) Option {
	return func(f *simFactory) error {
		f.logger = logger
		return nil
	}
}

// WithNetwork sets the topology of the network.
func WithNetwork(net *config.Network) Option {
	return func(f *simFactory) error {
		f.network = net
		return nil
	}
}

// WithRuntime registers a runtime under the name chains use to refer to it in
// the network declaration.
func WithRuntime(name string, fn RuntimeFunc) Option {
	return func(f *simFactory) error {
		if f.runtimes == nil {
			f.runtimes = map[string]RuntimeFunc{}
		}
		if _, ok := f.runtimes[name]; ok {
			return errors.BadRequest.WithFormat("runtime %q is already registered", name)
		}
		f.runtimes[name] = fn
		return nil
	}
}

func WithSnapshot(fn SnapshotFunc) Option {
	return func(f *simFactory) error {
		f.snapshot = fn
		return nil
	}
}

func WithDatabase(fn OpenDatabaseFunc) Option {
	return func(f *simFactory) error {
		f.database = fn
		return nil
	}
}

// MemoryDatabase configures the simulator to use an in-memory map.
func MemoryDatabase(f *simFactory) error {
	return WithDatabase(func(logging.Logger) (keyvalue.Beginner, error) {
		return memory.New(), nil
	})(f)
}

// BadgerDatabase configures the simulator to use an in-memory Badger
// database.
func BadgerDatabase(f *simFactory) error {
	return WithDatabase(func(logger logging.Logger) (keyvalue.Beginner, error) {
		return badger.NewInMemory(badger.WithLogger(logger))
	})(f)
}

// LevelDBDatabase configures the simulator to use an in-memory LevelDB
// database.
func LevelDBDatabase(f *simFactory) error {
	return WithDatabase(func(logging.Logger) (keyvalue.Beginner, error) {
		return leveldb.NewInMemory()
	})(f)
}

// BoltDatabase configures the simulator to use a Bolt database in a temporary
// directory.
func BoltDatabase(f *simFactory) error {
	return WithDatabase(func(logging.Logger) (keyvalue.Beginner, error) {
		return bolt.OpenTemp()
	})(f)
}

// WithMaxDeliveryPerRound limits the number of envelopes delivered from each
// channel per round. Zero means unlimited.
func WithMaxDeliveryPerRound(n int) Option {
	return func(f *simFactory) error {
		if n < 0 {
			return errors.BadRequest.WithFormat("invalid delivery limit %d", n)
		}
		f.maxDelivery = &n
		return nil
	}
}

// WithRecording writes a YAML document to w at the end of every round.
func WithRecording(w io.Writer) Option {
	return func(f *simFactory) error {
		f.recording = w
		return nil
	}
}

// CaptureEnvelopes allows the caller to inspect and drop envelopes as they
// are sent.
func CaptureEnvelopes(fn EnvelopeInterceptor) Option {
	return func(f *simFactory) error {
		f.intercept = fn
		return nil
	}
}
