// Copyright 2023 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package simulator

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"gitlab.com/accumulatenetwork/chainsim/config"
	"gitlab.com/accumulatenetwork/chainsim/internal/core/events"
	"gitlab.com/accumulatenetwork/chainsim/internal/logging"
	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
)

// Network is a simulated relay chain and its parachains. It owns every node
// and channel and advances them in rounds. A network is not safe for
// concurrent use.
type Network struct {
	logger      logging.OptionalLogger
	config      *config.Network
	store       keyvalue.Beginner
	nodes       map[messaging.ChainID]*Node
	chainIDs    []messaging.ChainID
	channels    map[ChannelID]*Channel
	channelList []*Channel
	routes      map[[2]messaging.ChainID]*Channel
	hops        map[messaging.ChainID]*Channel
	maxDelivery int
	intercept   EnvelopeInterceptor
	bus         *events.Bus
	metrics     *metrics
	recorder    *recorder
	round       uint64
	closed      bool
}

func (n *Network) Config() *config.Network { return n.config.Copy() }
func (n *Network) EventBus() *events.Bus   { return n.bus }

// Round returns the number of the last round that was run.
func (n *Network) Round() uint64 { return n.round }

// Metrics returns the network's metrics registry.
func (n *Network) Metrics() prometheus.Gatherer { return n.metrics.registry }

// Chains returns the IDs of every chain, relay first, then parachains in
// ascending order.
func (n *Network) Chains() []messaging.ChainID {
	return append([]messaging.ChainID(nil), n.chainIDs...)
}

// Node returns the node of a chain.
func (n *Network) Node(id messaging.ChainID) (*Node, error) {
	node, ok := n.nodes[id]
	if !ok {
		return nil, errors.NotFound.WithFormat("%v is not part of %s", id, n.config.Name)
	}
	return node, nil
}

// Resolve resolves a chain name or ID to a chain of the network.
func (n *Network) Resolve(s string) (*Node, error) {
	id, err := n.config.Resolve(s)
	if err != nil {
		return nil, err
	}
	return n.Node(id)
}

// Channel returns the channel from sender to recipient.
func (n *Network) Channel(sender, recipient messaging.ChainID) (*Channel, error) {
	ch, ok := n.routes[[2]messaging.ChainID{sender, recipient}]
	if !ok {
		return nil, errors.NotFound.WithFormat("no channel from %v to %v is declared", sender, recipient)
	}
	return ch, nil
}

// Channels returns every channel, including the relay legs of relayed
// horizontal channels, in a deterministic order.
func (n *Network) Channels() []*Channel {
	return append([]*Channel(nil), n.channelList...)
}

// Pending returns the number of envelopes waiting for delivery.
func (n *Network) Pending() int {
	var count int
	for _, ch := range n.channelList {
		count += ch.Len()
	}
	return count
}

func (n *Network) outbound(sender, recipient messaging.ChainID) (*Channel, error) {
	ch, ok := n.routes[[2]messaging.ChainID{sender, recipient}]
	if !ok {
		return nil, errors.ChannelClosed.WithFormat("no channel from %v to %v is declared", sender, recipient)
	}
	return ch, nil
}

// StateHashes returns the state hash of every chain.
func (n *Network) StateHashes() (map[messaging.ChainID]messaging.Hash, error) {
	hashes := make(map[messaging.ChainID]messaging.Hash, len(n.nodes))
	for _, id := range n.chainIDs {
		h, err := n.nodes[id].StateHash()
		if err != nil {
			return nil, err
		}
		hashes[id] = h
	}
	return hashes, nil
}

// Close tears down every channel and releases the state store.
func (n *Network) Close() error {
	if n.closed {
		return nil
	}
	n.closed = true
	for _, ch := range n.channelList {
		ch.Close()
	}
	if c, ok := n.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
