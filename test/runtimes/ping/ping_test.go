// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package ping_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
	. "gitlab.com/accumulatenetwork/chainsim/test/harness"
	"gitlab.com/accumulatenetwork/chainsim/test/networks"
	"gitlab.com/accumulatenetwork/chainsim/test/runtimes/frame"
	"gitlab.com/accumulatenetwork/chainsim/test/runtimes/genesis"
	"gitlab.com/accumulatenetwork/chainsim/test/runtimes/ping"
	"gitlab.com/accumulatenetwork/chainsim/test/simulator"
	acctesting "gitlab.com/accumulatenetwork/chainsim/test/testing"
)

var (
	paraA = messaging.Para(networks.ParaA)
	paraB = messaging.Para(networks.ParaB)
)

func setup(t *testing.T) *Harness {
	net, err := networks.New(networks.PolkadotMockNet(), simulator.WithLogger(acctesting.NewTestLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, net.Close()) })
	return New(t, net)
}

func pending(h *Harness, chain messaging.ChainID) int {
	var n int
	h.View(chain, func(s keyvalue.Store) {
		var err error
		n, err = ping.PendingPings(s)
		require.NoError(h.TB(), err)
	})
	return n
}

func TestPingPong(t *testing.T) {
	h := setup(t)
	h.Checkpoint()

	h.Execute(paraA, messaging.Root(), &ping.Send{To: paraB})
	h.ExpectEvents(paraA, Event[*ping.PingSent](Field("To", paraB), Field("Seq", uint64(1))))
	require.Equal(t, 1, pending(h, paraA))

	h.ExpectEvents(paraB,
		Event[*ping.Pinged](Field("From", paraA)),
		Event[*ping.PongSent](Field("To", paraA)))

	h.StepUntil(On(paraA).Emits(Event[*ping.Ponged](Field("From", paraB))))
	h.ExpectEvents(paraA, Event[*ping.Ponged](Field("Seq", uint64(1)), Field("Rounds", uint64(1))))
	require.Zero(t, pending(h, paraA))
}

func TestPingRequiresRoot(t *testing.T) {
	h := setup(t)
	err := h.ExecuteFails(paraA, messaging.Signed(acctesting.GenerateAccount("Alice")), &ping.Send{To: paraB})
	require.ErrorIs(t, err.Cause, errors.Unauthorized)
	require.Zero(t, pending(h, paraA))
}

func TestPingUndeclaredChannel(t *testing.T) {
	h := setup(t)
	h.Checkpoint()

	h.Execute(paraA, messaging.Root(), &ping.Send{To: messaging.Para(3000)})
	h.ExpectEvents(paraA, Event[*ping.ErrorSendingPing](
		Field("To", messaging.Para(3000)),
		Where("channel closed", func(e *ping.ErrorSendingPing) bool { return e.Error != "" })))
	require.Zero(t, pending(h, paraA))

	var count uint64
	h.View(paraA, func(s keyvalue.Store) {
		var err error
		count, err = ping.PingCount(s)
		require.NoError(t, err)
	})
	require.Equal(t, uint64(1), count)
}

func TestPingRelay(t *testing.T) {
	h := setup(t)
	h.Checkpoint()

	// The relay has no ping module, so it drops the ping
	h.Execute(paraA, messaging.Root(), &ping.Send{To: messaging.Relay()})
	h.ExpectEvents(messaging.Relay(), Event[*frame.MessageDropped](Field("From", paraA)))
	h.StepUntilQuiet()
	require.Equal(t, 1, pending(h, paraA))
}

func TestStartStop(t *testing.T) {
	h := setup(t)
	h.Execute(paraA, messaging.Root(), &ping.StartMany{To: paraB, Payload: []byte("hi"), Count: 2})
	h.Checkpoint()

	h.StepN(3)
	var sent, ponged int
	for _, e := range h.Events(paraA) {
		switch e.Event.(type) {
		case *ping.PingSent:
			sent++
		case *ping.Ponged:
			ponged++
		}
	}
	require.Equal(t, 6, sent, "Two pings per round")
	require.Equal(t, 4, ponged, "Pongs arrive the round after their ping")

	h.Execute(paraA, messaging.Root(), &ping.Stop{To: paraB})
	h.View(paraA, func(s keyvalue.Store) {
		targets, err := ping.Targets(s)
		require.NoError(t, err)
		require.Len(t, targets, 1)
	})

	h.Execute(paraA, messaging.Root(), new(ping.StopAll))
	h.StepUntilQuiet()
	h.Checkpoint()
	h.Step()
	require.Empty(t, h.Events(paraA))
	require.Zero(t, pending(h, paraA))

	err := h.ExecuteFails(paraA, messaging.Root(), &ping.Stop{To: paraB})
	require.ErrorIs(t, err.Cause, errors.NotFound)
}

// rawModule sends arbitrary payloads.
type rawModule struct{}

type sendRaw struct {
	To      messaging.ChainID
	Payload []byte
}

func (*sendRaw) Module() string { return "raw" }
func (rawModule) Name() string  { return "raw" }
func (rawModule) Execute(ctx *simulator.Context, _ messaging.Origin, call messaging.Call) error {
	c := call.(*sendRaw)
	_, err := ctx.Send(c.To, c.Payload)
	return err
}

func TestUnknownPong(t *testing.T) {
	topology := networks.PolkadotMockNet()
	topology.Parachains[1].Runtime = "raw"
	code := networks.Code()
	code["raw"] = []byte("raw")

	net, err := networks.New(topology,
		simulator.WithLogger(acctesting.NewTestLogger(t)),
		simulator.WithSnapshot(genesis.Snapshot(code)),
		simulator.WithRuntime("raw", frame.Func(func(messaging.ChainID) []frame.Module {
			return []frame.Module{rawModule{}}
		})))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, net.Close()) })
	h := New(t, net)
	h.Checkpoint()

	payload, err := frame.Encode(ping.ModuleName, "pong", struct {
		Seq     uint64
		Payload []byte
	}{Seq: 9, Payload: []byte("?")})
	require.NoError(t, err)

	h.Execute(paraB, messaging.Root(), &sendRaw{To: paraA, Payload: payload})
	h.ExpectEvents(paraA, Event[*ping.UnknownPong](Field("From", paraB), Field("Seq", uint64(9))))

	// A malformed body fails the message, not the round
	payload, err = frame.Encode(ping.ModuleName, "pong", "not a body")
	require.NoError(t, err)
	h.Execute(paraB, messaging.Root(), &sendRaw{To: paraA, Payload: payload})
	h.ExpectEvents(paraA, Event[*frame.MessageFailed](Field("From", paraB), Field("Method", "ping.pong")))
}
