// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package simulator

import (
	"io"

	"gitlab.com/accumulatenetwork/chainsim/config"
	"gitlab.com/accumulatenetwork/chainsim/internal/core/events"
	"gitlab.com/accumulatenetwork/chainsim/internal/logging"
	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue"
	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue/badger"
	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue/bolt"
	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue/leveldb"
	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue/memory"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type simFactory struct {
	// Options
	logger      logging.Logger
	network     *config.Network
	runtimes    map[string]RuntimeFunc
	snapshot    SnapshotFunc
	database    OpenDatabaseFunc
	maxDelivery *int
	recording   io.Writer
	intercept   EnvelopeInterceptor
}

// New builds a network. Any failure is reported as [errors.SetupFailed], and
// no round is run.
func New(opts ...Option) (*Network, error) {
	f := new(simFactory)
	for _, opt := range opts {
		err := opt(f)
		if err != nil {
			return nil, errors.SetupFailed.Wrap(err)
		}
	}

	n, err := f.Build()
	if err != nil {
		return nil, errors.SetupFailed.Wrap(err)
	}
	return n, nil
}

func (f *simFactory) Build() (*Network, error) {
	if f.network == nil {
		return nil, errors.BadRequest.With("no network declared")
	}
	err := f.network.Validate()
	if err != nil {
		return nil, errors.UnknownError.WithFormat("invalid topology: %w", err)
	}

	n := new(Network)
	n.config = f.network.Copy()
	n.logger.Set(f.logger, "module", "sim")
	n.bus = events.NewBus(f.logger)
	n.metrics = newMetrics()
	n.metrics.subscribe(n.bus)
	n.intercept = f.intercept

	n.maxDelivery = n.config.Simulation.MaxDeliveryPerRound
	if f.maxDelivery != nil {
		n.maxDelivery = *f.maxDelivery
	}

	n.store, err = f.openDatabase()
	if err != nil {
		return nil, errors.UnknownError.WithFormat("open database: %w", err)
	}

	err = f.buildChannels(n)
	if err != nil {
		_ = n.Close()
		return nil, err
	}

	err = f.buildNodes(n)
	if err != nil {
		_ = n.Close()
		return nil, err
	}

	if f.recording != nil {
		n.recorder = newRecorder(n, f.recording)
		n.recorder.subscribe(n.bus)
	}

	n.logger.Info("Network ready", "network", n.config.Name, "chains", len(n.nodes), "channels", len(n.channels))
	return n, nil
}

func (f *simFactory) openDatabase() (keyvalue.Beginner, error) {
	if f.database != nil {
		return f.database(f.logger)
	}

	switch f.network.Simulation.Storage {
	case config.BadgerStorage:
		return badger.NewInMemory(badger.WithLogger(f.logger))
	case config.LevelDBStorage:
		return leveldb.NewInMemory()
	case config.BoltStorage:
		return bolt.OpenTemp()
	default:
		return memory.New(), nil
	}
}

func (f *simFactory) buildChannels(n *Network) error {
	n.channels = map[ChannelID]*Channel{}
	n.routes = map[[2]messaging.ChainID]*Channel{}
	n.hops = map[messaging.ChainID]*Channel{}

	add := func(id ChannelID, route config.RouteKind, capacity int) {
		ch := newChannel(id, route, capacity)
		n.channels[id] = ch
		n.routes[[2]messaging.ChainID{id.Sender, id.Recipient}] = ch
	}

	// Every parachain is connected to the relay in both directions
	relay := messaging.Relay()
	for _, p := range f.network.Parachains {
		para := messaging.Para(messaging.ParaID(p.ID))
		add(ChannelID{Kind: messaging.Downward, Sender: relay, Recipient: para}, config.DirectRoute, 0)
		add(ChannelID{Kind: messaging.Upward, Sender: para, Recipient: relay}, config.DirectRoute, 0)
	}

	for _, c := range f.network.Channels {
		from, err := f.network.Resolve(c.From)
		if err != nil {
			return errors.UnknownError.Wrap(err)
		}
		to, err := f.network.Resolve(c.To)
		if err != nil {
			return errors.UnknownError.Wrap(err)
		}
		add(ChannelID{Kind: messaging.Horizontal, Sender: from, Recipient: to}, c.Route, c.Capacity)

		// Relayed messages are carried to the recipient on a leg from the
		// relay
		if c.Route == config.RelayRoute && n.hops[to] == nil {
			id := ChannelID{Kind: messaging.Horizontal, Sender: relay, Recipient: to}
			hop := newChannel(id, config.DirectRoute, 0)
			n.channels[id] = hop
			n.hops[to] = hop
		}
	}

	n.channelList = maps.Values(n.channels)
	slices.SortFunc(n.channelList, func(a, b *Channel) int { return a.ID().Compare(b.ID()) })
	return nil
}

func (f *simFactory) buildNodes(n *Network) error {
	n.nodes = map[messaging.ChainID]*Node{}

	build := func(id messaging.ChainID, name, runtime string) error {
		fn, ok := f.runtimes[runtime]
		if !ok {
			return errors.NotFound.WithFormat("%s (%v): no runtime named %q", name, id, runtime)
		}

		node := new(Node)
		node.id = id
		node.name = name
		node.net = n
		node.store = n.store
		node.prefix = keyvalue.NewKey(id.String())
		node.baseLogger.Set(f.logger)
		node.logger.Set(f.logger, "module", "sim", "chain", id)

		var err error
		node.runtime, err = fn(id, n.config)
		if err != nil {
			return errors.UnknownError.WithFormat("%s (%v): create runtime: %w", name, id, err)
		}

		if f.snapshot != nil {
			entries, err := f.snapshot(id, n.config)
			if err != nil {
				return errors.UnknownError.WithFormat("%s (%v): genesis: %w", name, id, err)
			}
			err = node.initChain(entries)
			if err != nil {
				return errors.UnknownError.WithFormat("%s (%v): init chain: %w", name, id, err)
			}
		}

		n.nodes[id] = node
		n.chainIDs = append(n.chainIDs, id)
		return nil
	}

	err := build(messaging.Relay(), f.network.Relay.Name, f.network.Relay.Runtime)
	if err != nil {
		return err
	}
	for _, p := range f.network.Parachains {
		err = build(messaging.Para(messaging.ParaID(p.ID)), p.Name, p.Runtime)
		if err != nil {
			return err
		}
	}

	slices.SortFunc(n.chainIDs, func(a, b messaging.ChainID) int { return a.Compare(b) })
	return nil
}
