// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package harness

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/accumulatenetwork/chainsim/internal/core/events"
	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
	"gitlab.com/accumulatenetwork/chainsim/test/simulator"
)

// MaxSteps is the number of rounds StepUntil runs before giving up.
const MaxSteps = 50

func New(tb testing.TB, net *simulator.Network) *Harness {
	h := new(Harness)
	h.tb = tb
	h.net = net
	h.cursors = map[messaging.ChainID]int{}
	h.received = map[[2]messaging.ChainID]uint64{}

	// Forwarded envelopes sit on the relay leg for another round, so only
	// final deliveries count
	events.SubscribeSync(net.EventBus(), func(e events.DidRouteEnvelopes) {
		if e.Forwarded {
			return
		}
		for _, env := range e.Envelopes {
			h.received[[2]messaging.ChainID{env.Sender, e.Recipient}]++
		}
	})
	return h
}

// Harness drives a simulated network from a test. Every method fails the
// test instead of returning an error.
type Harness struct {
	tb      testing.TB
	net     *simulator.Network
	cursors map[messaging.ChainID]int

	// received counts envelopes delivered to a recipient, by sender.
	received map[[2]messaging.ChainID]uint64

	// VerboseConditions prints each condition as it is satisfied.
	VerboseConditions bool
}

func (h *Harness) TB() testing.TB              { return h.tb }
func (h *Harness) Network() *simulator.Network { return h.net }

func (h *Harness) Step() {
	h.tb.Helper()
	require.NoError(h.tb, h.net.Step())
}

func (h *Harness) StepN(n int) {
	h.tb.Helper()
	for i := 0; i < n; i++ {
		require.NoError(h.tb, h.net.Step())
	}
}

// StepUntil steps until every condition is satisfied, failing the test after
// [MaxSteps] rounds.
func (h *Harness) StepUntil(conditions ...Condition) {
	h.tb.Helper()
	for i := 0; ; i++ {
		if i >= MaxSteps {
			var unmet []string
			for _, c := range conditions {
				if !c.Satisfied(h) {
					unmet = append(unmet, c.String())
				}
			}
			h.tb.Fatalf("Condition not met after %d rounds: %s", MaxSteps, strings.Join(unmet, ", "))
		}
		ok := true
		for _, c := range conditions {
			if !c.Satisfied(h) {
				ok = false
			}
		}
		if ok {
			break
		}
		h.Step()
	}
}

// StepUntilQuiet steps until no envelope is waiting for delivery.
func (h *Harness) StepUntilQuiet() {
	h.tb.Helper()
	h.StepUntil(Quiet())
}

// Execute runs a round in which the call is executed and requires it to
// succeed.
func (h *Harness) Execute(chain messaging.ChainID, origin messaging.Origin, call messaging.Call) {
	h.tb.Helper()
	require.NoError(h.tb, h.net.Execute(chain, origin, call))
}

// ExecuteWith runs a round in which the call is executed and returns the
// error, if any.
func (h *Harness) ExecuteWith(chain messaging.ChainID, origin messaging.Origin, call messaging.Call) error {
	return h.net.Execute(chain, origin, call)
}

// ExecuteFails runs a round in which the call is executed and requires it to
// fail with a [simulator.CallError], which is returned.
func (h *Harness) ExecuteFails(chain messaging.ChainID, origin messaging.Origin, call messaging.Call) *simulator.CallError {
	h.tb.Helper()
	err := h.net.Execute(chain, origin, call)
	var callErr *simulator.CallError
	require.ErrorAs(h.tb, err, &callErr)
	return callErr
}

// Checkpoint moves the event cursor of each chain, or of every chain if none
// are given, to the end of its log.
func (h *Harness) Checkpoint(chains ...messaging.ChainID) {
	h.tb.Helper()
	if len(chains) == 0 {
		chains = h.net.Chains()
	}
	for _, id := range chains {
		h.cursors[id] = h.Node(id).Checkpoint()
	}
}

// Events returns the chain's events since its last checkpoint.
func (h *Harness) Events(chain messaging.ChainID) []*simulator.EventLogEntry {
	h.tb.Helper()
	entries, _ := h.Node(chain).EventsSince(h.cursors[chain])
	return entries
}

// ExpectEvents requires the chain's events since its last checkpoint to
// contain the patterns in order.
func (h *Harness) ExpectEvents(chain messaging.ChainID, patterns ...Pattern) {
	h.tb.Helper()
	err := MatchEvents(h.Events(chain), patterns...)
	if err != nil {
		h.tb.Fatalf("%v: %v", chain, err)
	}
}
