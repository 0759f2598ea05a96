// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package simulator

import (
	"fmt"

	"gitlab.com/accumulatenetwork/chainsim/config"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
)

// ChannelID identifies a channel by its endpoints and kind.
type ChannelID struct {
	Kind      messaging.ChannelKind
	Sender    messaging.ChainID
	Recipient messaging.ChainID
}

func (id ChannelID) String() string {
	return fmt.Sprintf("%s %v→%v", id.Kind.LogModule(), id.Sender, id.Recipient)
}

// Compare orders channels by sender, then recipient, then kind.
func (id ChannelID) Compare(other ChannelID) int {
	if c := id.Sender.Compare(other.Sender); c != 0 {
		return c
	}
	if c := id.Recipient.Compare(other.Recipient); c != 0 {
		return c
	}
	switch {
	case id.Kind < other.Kind:
		return -1
	case id.Kind > other.Kind:
		return +1
	}
	return 0
}

// Channel is a directional FIFO queue of envelopes between two chains.
type Channel struct {
	id       ChannelID
	route    config.RouteKind
	capacity int
	queue    []*messaging.Envelope
	nextSeq  uint64
	enqueued uint64
	drained  uint64
	closed   bool
}

func newChannel(id ChannelID, route config.RouteKind, capacity int) *Channel {
	if route == "" {
		route = config.DirectRoute
	}
	return &Channel{id: id, route: route, capacity: capacity, nextSeq: 1}
}

func (c *Channel) ID() ChannelID           { return c.id }
func (c *Channel) Route() config.RouteKind { return c.route }
func (c *Channel) Capacity() int           { return c.capacity }
func (c *Channel) Closed() bool            { return c.closed }

// Len returns the number of queued envelopes.
func (c *Channel) Len() int { return len(c.queue) }

// Enqueued returns the total number of envelopes ever enqueued.
func (c *Channel) Enqueued() uint64 { return c.enqueued }

// Drained returns the total number of envelopes ever drained.
func (c *Channel) Drained() uint64 { return c.drained }

// NextSequence returns the sequence number the next enqueued envelope will be
// assigned.
func (c *Channel) NextSequence() uint64 { return c.nextSeq }

// Enqueue appends a copy of the envelope to the tail of the channel,
// assigning it the channel's endpoints, kind, and next sequence number.
func (c *Channel) Enqueue(env *messaging.Envelope) (*messaging.Envelope, error) {
	env = env.Copy()
	env.Kind = c.id.Kind
	env.Sender = c.id.Sender
	env.Recipient = c.id.Recipient
	env.Sequence = c.nextSeq

	err := c.push(env)
	if err != nil {
		return nil, err
	}
	c.nextSeq++
	return env, nil
}

// forward appends an envelope that already has a sequence number, as the
// relay does when it carries a horizontal message on to its recipient.
func (c *Channel) forward(env *messaging.Envelope) error {
	return c.push(env)
}

func (c *Channel) push(env *messaging.Envelope) error {
	switch {
	case c.closed:
		return errors.ChannelClosed.WithFormat("%v is closed", c.id)
	case c.capacity > 0 && len(c.queue) >= c.capacity:
		return errors.ChannelFull.WithFormat("%v is full (capacity %d)", c.id, c.capacity)
	}
	c.queue = append(c.queue, env)
	c.enqueued++
	return nil
}

// Peek returns up to max envelopes from the head without removing them. If
// max <= 0, every queued envelope is returned.
func (c *Channel) Peek(max int) []*messaging.Envelope {
	n := len(c.queue)
	if max > 0 && max < n {
		n = max
	}
	return append([]*messaging.Envelope(nil), c.queue[:n]...)
}

// DrainReady removes and returns up to max envelopes from the head in FIFO
// order. If max <= 0, every queued envelope is drained.
func (c *Channel) DrainReady(max int) []*messaging.Envelope {
	envs := c.Peek(max)
	c.queue = c.queue[len(envs):]
	c.drained += uint64(len(envs))
	return envs
}

// Close tears the channel down. Queued envelopes remain queued but nothing
// more can be enqueued.
func (c *Channel) Close() { c.closed = true }

// hasRoom returns true if n more envelopes can be enqueued.
func (c *Channel) hasRoom(n int) bool {
	return c.capacity <= 0 || len(c.queue)+n <= c.capacity
}
