// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package harness

import (
	"fmt"
	"strings"

	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
)

// A Condition is a function that is used by Harness.StepUntil to wait until
// some condition is met.
type Condition interface {
	Satisfied(*Harness) bool
	String() string
}

type True func(*Harness) bool

func (f True) Satisfied(h *Harness) bool { return f(h) }

func (f True) String() string { return "(unknown predicate function)" }

// Quiet is satisfied once no envelope is waiting for delivery.
func Quiet() Condition {
	return &condition{
		message: []string{"network", "is quiet"},
		predicate: func(h *Harness) bool {
			return h.net.Pending() == 0
		},
	}
}

// Round is satisfied once the network has run the given round.
func Round(n uint64) Condition {
	return &condition{
		message: []string{"network", fmt.Sprintf("reaches round %d", n)},
		predicate: func(h *Harness) bool {
			return h.net.Round() >= n
		},
	}
}

// On defines a condition on a chain.
func On(chain messaging.ChainID) chainCond { return chainCond{chain} }

// chainCond provides methods to define conditions on a chain.
type chainCond struct {
	chain messaging.ChainID
}

// Emits waits until the chain's events since its last checkpoint contain the
// patterns in order.
func (c chainCond) Emits(patterns ...Pattern) Condition {
	s := make([]string, len(patterns))
	for i, p := range patterns {
		s[i] = p.String()
	}
	return &condition{
		message: []string{c.chain.String(), "emits", strings.Join(s, ", ")},
		predicate: func(h *Harness) bool {
			h.tb.Helper()
			return MatchEvents(h.Events(c.chain), patterns...) == nil
		},
	}
}

// Receives waits until every envelope enqueued from the sender to the chain
// has been delivered. Envelopes on a relay-routed channel are not delivered
// until they leave the relay leg.
func (c chainCond) Receives(sender messaging.ChainID) Condition {
	return &condition{
		message: []string{c.chain.String(), "receives from", sender.String()},
		predicate: func(h *Harness) bool {
			h.tb.Helper()
			ch := h.Channel(sender, c.chain)
			n := ch.Enqueued()
			return n > 0 && h.received[[2]messaging.ChainID{sender, c.chain}] >= n
		},
	}
}

type condition struct {
	predicate func(*Harness) bool
	message   []string
	satisfied bool
}

func (c *condition) String() string {
	return strings.Join(c.message, " ")
}

// Satisfied evaluates the predicate until it succeeds. Once satisfied, the
// condition stays satisfied.
func (c *condition) Satisfied(h *Harness) bool {
	if c.satisfied {
		return true
	}
	if !c.predicate(h) {
		return false
	}
	c.satisfied = true
	if h.VerboseConditions {
		fmt.Println(c, "✔")
	}
	return true
}
