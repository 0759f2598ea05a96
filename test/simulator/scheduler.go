// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package simulator

import (
	"gitlab.com/accumulatenetwork/chainsim/config"
	"gitlab.com/accumulatenetwork/chainsim/internal/core/events"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
)

type submission struct {
	node   *Node
	origin messaging.Origin
	call   messaging.Call
}

type delivery struct {
	channel   *Channel
	envelopes []*messaging.Envelope
}

// Step runs a round without a triggering call.
func (n *Network) Step() error {
	return n.step(nil)
}

// Execute runs a round in which the call is executed on the given chain. If
// the call fails, the round still completes and a [CallError] is returned.
func (n *Network) Execute(chain messaging.ChainID, origin messaging.Origin, call messaging.Call) error {
	node, err := n.Node(chain)
	if err != nil {
		return err
	}
	return n.step(&submission{node, origin, call})
}

func (n *Network) step(sub *submission) error {
	if n.closed {
		return errors.BadRequest.With("network is closed")
	}

	n.round++
	round := n.round
	n.bus.Publish(events.WillBeginRound{Round: round})
	n.logger.Debug("Begin round", "round", round)

	var callErr error
	for _, id := range n.chainIDs {
		err := n.nodes[id].OnRoundStart(round)
		if err != nil && callErr == nil {
			callErr = err
		}
	}

	// Execution phase
	if sub != nil {
		err := sub.node.Execute(round, sub.origin, sub.call)
		if err != nil {
			callErr = err
		}
	}

	// Routing phase
	delivered, routeErr := n.route(round)

	n.metrics.setQueued(n.channelList)
	n.bus.Publish(events.DidCommitRound{Round: round, Delivered: delivered, Pending: n.Pending()})
	n.logger.Debug("End round", "round", round, "delivered", delivered, "pending", n.Pending())

	switch {
	case routeErr != nil:
		return routeErr
	case n.recorder != nil && n.recorder.err != nil:
		return errors.UnknownError.WithFormat("record round %d: %w", round, n.recorder.err)
	}
	return callErr
}

// StepN runs N rounds.
func (n *Network) StepN(count int) error {
	for i := 0; i < count; i++ {
		err := n.Step()
		if err != nil {
			return err
		}
	}
	return nil
}

// route delivers every envelope that is ready. Envelopes are collected before
// any are delivered, so envelopes sent during delivery wait for the next
// round. Relayed horizontal envelopes are moved to the relay's leg after
// delivery, so they reach their recipient one round later.
func (n *Network) route(round uint64) (int, error) {
	byRecipient := map[messaging.ChainID][]delivery{}
	var forwards []delivery
	for _, ch := range n.channelList {
		envs := ch.Peek(n.maxDelivery)
		if len(envs) == 0 {
			continue
		}
		if ch.Route() == config.RelayRoute {
			forwards = append(forwards, delivery{ch, envs})
			continue
		}
		id := ch.ID().Recipient
		byRecipient[id] = append(byRecipient[id], delivery{ch, envs})
	}

	var count int
	var delivered []messaging.ChainID
	for _, id := range n.chainIDs {
		batch := byRecipient[id]
		if len(batch) == 0 {
			continue
		}

		var envs []*messaging.Envelope
		for _, d := range batch {
			envs = append(envs, d.envelopes...)
		}

		err := n.nodes[id].DeliverInbound(round, envs)
		if err != nil {
			n.logger.Error("Delivery failed", "round", round, "recipient", id, "count", len(envs), "error", err)
			return count, &RoutingError{Round: round, Recipient: id, Delivered: delivered, Cause: err}
		}

		for _, d := range batch {
			d.channel.DrainReady(len(d.envelopes))
			for _, env := range d.envelopes {
				n.nodes[id].baseLogger.Trace("Delivered envelope", "module", env.Kind.LogModule(), "chain", id, "envelope", env.String())
			}
		}
		count += len(envs)
		delivered = append(delivered, id)
		n.bus.Publish(events.DidRouteEnvelopes{Round: round, Recipient: id, Envelopes: envs})
	}

	for _, d := range forwards {
		id := d.channel.ID().Recipient
		hop := n.hops[id]
		for i, env := range d.envelopes {
			err := hop.forward(env)
			if err != nil {
				d.channel.DrainReady(i)
				return count, &RoutingError{Round: round, Recipient: id, Delivered: delivered, Cause: err}
			}
			n.nodes[messaging.Relay()].baseLogger.Trace("Forwarded envelope", "module", "hrmp", "chain", messaging.Relay(), "envelope", env.String())
		}
		d.channel.DrainReady(len(d.envelopes))
		n.bus.Publish(events.DidRouteEnvelopes{Round: round, Recipient: id, Envelopes: d.envelopes, Forwarded: true})
	}
	return count, nil
}
