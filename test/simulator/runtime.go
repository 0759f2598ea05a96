// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package simulator

import (
	"gitlab.com/accumulatenetwork/chainsim/config"
	"gitlab.com/accumulatenetwork/chainsim/internal/logging"
	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
)

// ChainRuntime is the capability a chain must provide to be simulated. The
// node wraps every invocation so that state changes, events, and outbound
// envelopes are only applied if the invocation returns nil.
type ChainRuntime interface {
	// Execute executes a call.
	Execute(ctx *Context, origin messaging.Origin, call messaging.Call) error

	// OnRoundStart is called once per round before the execution phase.
	OnRoundStart(ctx *Context) error

	// DeliverInbound processes envelopes addressed to the chain, in order.
	DeliverInbound(ctx *Context, envelopes []*messaging.Envelope) error
}

// RuntimeFunc constructs the runtime of a chain.
type RuntimeFunc = func(chain messaging.ChainID, network *config.Network) (ChainRuntime, error)

// Context is the environment of a single runtime invocation.
type Context struct {
	node   *Node
	round  uint64
	batch  keyvalue.ChangeSet
	events []messaging.Event
	sent   []*pendingEnvelope
	parent *Context
}

type pendingEnvelope struct {
	channel  *Channel
	envelope *messaging.Envelope
}

// Chain returns the ID of the chain.
func (c *Context) Chain() messaging.ChainID { return c.node.id }

// Round returns the current round.
func (c *Context) Round() uint64 { return c.round }

// Network returns the declaration of the network.
func (c *Context) Network() *config.Network { return c.node.net.config }

// Store returns the chain's state, as seen by this invocation.
func (c *Context) Store() keyvalue.Store { return c.batch }

// Logger returns a logger for the given module.
func (c *Context) Logger(module string) logging.Logger {
	return c.node.baseLogger.With("module", module, "chain", c.node.id, "round", c.round)
}

// Emit appends events to the chain's event log if the invocation succeeds.
func (c *Context) Emit(events ...messaging.Event) {
	c.events = append(c.events, events...)
}

// CanSend returns true if the network declares a channel from this chain to
// the recipient.
func (c *Context) CanSend(recipient messaging.ChainID) bool {
	ch, err := c.node.net.outbound(c.node.id, recipient)
	return err == nil && !ch.Closed()
}

// Send stages an envelope for the recipient. The envelope is enqueued if the
// invocation succeeds. The returned envelope carries the sequence number it
// will be assigned. Send fails with ChannelClosed if no channel to the
// recipient is declared or the channel has been closed, and with ChannelFull
// if the channel would exceed its capacity.
func (c *Context) Send(recipient messaging.ChainID, payload []byte) (*messaging.Envelope, error) {
	ch, err := c.node.net.outbound(c.node.id, recipient)
	if err != nil {
		return nil, err
	}
	if ch.Closed() {
		return nil, errors.ChannelClosed.WithFormat("%v is closed", ch.ID())
	}

	staged := c.stagedFor(ch)
	if !ch.hasRoom(staged + 1) {
		return nil, errors.ChannelFull.WithFormat("%v is full (capacity %d)", ch.ID(), ch.Capacity())
	}

	env := &messaging.Envelope{
		Kind:      ch.ID().Kind,
		Sender:    c.node.id,
		Recipient: recipient,
		Sequence:  ch.NextSequence() + uint64(staged),
		Payload:   append([]byte(nil), payload...),
		Round:     c.round,
	}

	// The interceptor may drop the envelope before it reaches the channel
	if c.node.net.intercept != nil && !c.node.net.intercept(env.Copy()) {
		c.Logger(env.Kind.LogModule()).Debug("Dropped envelope", "envelope", env.String())
		env.Sequence = 0
		return env, nil
	}

	c.sent = append(c.sent, &pendingEnvelope{ch, env})
	return env.Copy(), nil
}

func (c *Context) stagedFor(ch *Channel) int {
	var n int
	for x := c; x != nil; x = x.parent {
		for _, p := range x.sent {
			if p.channel == ch {
				n++
			}
		}
	}
	return n
}

// Nested runs fn in a nested context. If fn succeeds, its state changes,
// events, and envelopes are merged into this context. Otherwise they are
// discarded and this context is unaffected.
func (c *Context) Nested(fn func(*Context) error) error {
	batch := c.batch.Begin("", true)
	defer batch.Discard()

	d := &Context{node: c.node, round: c.round, batch: batch, parent: c}
	err := fn(d)
	if err != nil {
		return err
	}

	err = batch.Commit()
	if err != nil {
		return errors.UnknownError.WithFormat("commit nested change set: %w", err)
	}
	c.events = append(c.events, d.events...)
	c.sent = append(c.sent, d.sent...)
	return nil
}
