// Copyright 2023 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package simulator

import (
	"fmt"
	"runtime/debug"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"gitlab.com/accumulatenetwork/chainsim/internal/core/events"
	"gitlab.com/accumulatenetwork/chainsim/internal/logging"
	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
)

// EventLogEntry is an entry in a chain's event log.
type EventLogEntry struct {
	Chain messaging.ChainID
	Round uint64
	Index int
	Event messaging.Event
}

func (e *EventLogEntry) String() string {
	return fmt.Sprintf("%v #%d (round %d) %s %+v", e.Chain, e.Index, e.Round, messaging.NameOf(e.Event), e.Event)
}

// Node is a simulated chain. It owns the chain's runtime, state, and event
// log.
type Node struct {
	id         messaging.ChainID
	name       string
	net        *Network
	runtime    ChainRuntime
	store      keyvalue.Beginner
	prefix     keyvalue.Key
	logger     logging.OptionalLogger
	baseLogger logging.OptionalLogger
	log        []*EventLogEntry
}

func (n *Node) ID() messaging.ChainID { return n.id }
func (n *Node) Name() string          { return n.name }
func (n *Node) Runtime() ChainRuntime { return n.runtime }
func (n *Node) String() string        { return fmt.Sprintf("%s (%v)", n.name, n.id) }

func (n *Node) initChain(entries []keyvalue.Entry) error {
	batch := n.store.Begin(n.prefix, true)
	defer batch.Discard()

	for _, e := range entries {
		err := batch.Put(e.Key, e.Value)
		if err != nil {
			return errors.UnknownError.WithFormat("store %v: %w", e.Key, err)
		}
	}
	return batch.Commit()
}

// Execute executes a call against the chain. If the call fails, nothing is
// applied and a [CallError] is returned.
func (n *Node) Execute(round uint64, origin messaging.Origin, call messaging.Call) error {
	name := messaging.NameOf(call)
	err := n.invoke(round, name, func(ctx *Context) error {
		return n.runtime.Execute(ctx, origin, call)
	})
	n.net.bus.Publish(events.DidExecuteCall{
		Round:  round,
		Chain:  n.id,
		Origin: origin,
		Call:   name,
		Err:    err,
	})
	return err
}

// OnRoundStart runs the runtime's round start hook.
func (n *Node) OnRoundStart(round uint64) error {
	return n.invoke(round, "on-round-start", n.runtime.OnRoundStart)
}

// DeliverInbound delivers envelopes to the runtime. Envelopes the runtime
// sends in response are enqueued behind any envelope already queued, so they
// are not delivered until the next round.
func (n *Node) DeliverInbound(round uint64, envelopes []*messaging.Envelope) error {
	copies := make([]*messaging.Envelope, len(envelopes))
	for i, env := range envelopes {
		copies[i] = env.Copy()
	}
	return n.invoke(round, "deliver-inbound", func(ctx *Context) error {
		return n.runtime.DeliverInbound(ctx, copies)
	})
}

// EventsSince returns the entries appended to the event log after the cursor
// and the new cursor. Calling it again with the same cursor returns the same
// entries.
func (n *Node) EventsSince(cursor int) ([]*EventLogEntry, int) {
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= len(n.log) {
		return nil, len(n.log)
	}
	return append([]*EventLogEntry(nil), n.log[cursor:]...), len(n.log)
}

// Checkpoint returns a cursor positioned at the end of the event log.
func (n *Node) Checkpoint() int { return len(n.log) }

// View calls fn with a read-only view of the chain's state.
func (n *Node) View(fn func(keyvalue.Store) error) error {
	batch := n.store.Begin(n.prefix, false)
	defer batch.Discard()
	return fn(batch)
}

// StateHash returns the Keccak-256 hash of the chain's state.
func (n *Node) StateHash() (messaging.Hash, error) {
	var h messaging.Hash
	hasher := crypto.NewKeccakState()
	err := n.View(func(s keyvalue.Store) error {
		return s.ForEach(func(key keyvalue.Key, value []byte) error {
			return rlp.Encode(hasher, []interface{}{string(key), value})
		})
	})
	if err != nil {
		return h, errors.UnknownError.WithFormat("hash %v: %w", n.id, err)
	}
	_, _ = hasher.Read(h[:])
	return h, nil
}

// invoke runs fn atomically. Runtime panics are recovered and reported as
// call failures.
func (n *Node) invoke(round uint64, what string, fn func(*Context) error) (err error) {
	batch := n.store.Begin(n.prefix, true)
	defer batch.Discard()

	ctx := &Context{node: n, round: round, batch: batch}
	err = n.run(ctx, fn)
	if err != nil {
		n.logger.Info("Invocation failed", "round", round, "call", what, "error", err)
		return &CallError{Chain: n.id, Round: round, Call: what, Reason: err.Error(), Cause: err}
	}

	err = batch.Commit()
	if err != nil {
		return errors.UnknownError.WithFormat("commit %v: %w", n.id, err)
	}

	for _, e := range ctx.events {
		n.log = append(n.log, &EventLogEntry{Chain: n.id, Round: round, Index: len(n.log), Event: e})
		n.net.metrics.didEmitEvent(n.id)
	}

	if len(ctx.sent) == 0 {
		return nil
	}

	var sent []*messaging.Envelope
	for _, p := range ctx.sent {
		env, err := p.channel.Enqueue(p.envelope)
		if err != nil {
			// Send checks the channel, so this is a bug
			return errors.InternalError.WithFormat("enqueue %v: %w", p.envelope, err)
		}
		n.net.metrics.didEnqueue(env)
		n.baseLogger.Debug("Enqueued envelope", "module", env.Kind.LogModule(), "chain", n.id, "envelope", env.String())
		sent = append(sent, env)
	}
	n.net.bus.Publish(events.DidSendEnvelopes{Round: round, Chain: n.id, Envelopes: sent})
	return nil
}

func (n *Node) run(ctx *Context, fn func(*Context) error) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		n.logger.Error("Runtime panicked", "error", r, "stack", string(debug.Stack()))
		err = errors.InternalError.WithFormat("runtime panicked: %v", r)
	}()
	return fn(ctx)
}
