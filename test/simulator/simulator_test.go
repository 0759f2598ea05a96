// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package simulator

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"gitlab.com/accumulatenetwork/chainsim/config"
	"gitlab.com/accumulatenetwork/chainsim/internal/core/events"
	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
	acctesting "gitlab.com/accumulatenetwork/chainsim/test/testing"
)

var (
	relay = messaging.Relay()
	paraA = messaging.Para(2000)
	paraB = messaging.Para(2001)
	paraC = messaging.Para(2002)
)

type out struct {
	To      messaging.ChainID
	Payload string
}

type sendCall struct {
	Sends []out
	Fail  bool
	Panic bool
}

func (*sendCall) Module() string { return "fake" }

func send(to messaging.ChainID, payloads ...string) *sendCall {
	c := new(sendCall)
	for _, p := range payloads {
		c.Sends = append(c.Sends, out{to, p})
	}
	return c
}

type didSend struct {
	To       messaging.ChainID
	Sequence uint64
}

type didReceive struct {
	From     messaging.ChainID
	Sequence uint64
	Payload  string
}

func (*didSend) Module() string    { return "fake" }
func (*didReceive) Module() string { return "fake" }

// fakeRuntime sends what it is told to and answers "ping" with "pong".
type fakeRuntime struct {
	failDelivery bool
}

func (r *fakeRuntime) Execute(ctx *Context, _ messaging.Origin, call messaging.Call) error {
	c, ok := call.(*sendCall)
	if !ok {
		return errors.BadRequest.WithFormat("unknown call %T", call)
	}

	err := ctx.Store().Put(keyvalue.NewKey("last-call"), []byte(fmt.Sprint(ctx.Round())))
	if err != nil {
		return err
	}

	for _, s := range c.Sends {
		env, err := ctx.Send(s.To, []byte(s.Payload))
		if err != nil {
			return err
		}
		ctx.Emit(&didSend{To: s.To, Sequence: env.Sequence})
	}

	if c.Panic {
		panic("boom")
	}
	if c.Fail {
		return errors.BadRequest.With("rejected")
	}
	return nil
}

func (r *fakeRuntime) OnRoundStart(ctx *Context) error {
	return ctx.Store().Put(keyvalue.NewKey("round"), []byte(fmt.Sprint(ctx.Round())))
}

func (r *fakeRuntime) DeliverInbound(ctx *Context, envelopes []*messaging.Envelope) error {
	if r.failDelivery {
		return errors.BadRequest.With("delivery rejected")
	}
	for _, env := range envelopes {
		ctx.Emit(&didReceive{From: env.Sender, Sequence: env.Sequence, Payload: string(env.Payload)})
		if string(env.Payload) != "ping" {
			continue
		}
		_, err := ctx.Send(env.Sender, []byte("pong"))
		if err != nil {
			return err
		}
	}
	return nil
}

type testNetwork struct {
	*Network
	runtimes map[messaging.ChainID]*fakeRuntime
}

func testTopology(channels ...config.Channel) *config.Network {
	return &config.Network{
		Name:  "test",
		Relay: config.Relay{Name: "Relay", Runtime: "fake"},
		Parachains: []config.Parachain{
			{Name: "ParaA", ID: 2000, Runtime: "fake"},
			{Name: "ParaB", ID: 2001, Runtime: "fake"},
			{Name: "ParaC", ID: 2002, Runtime: "fake"},
		},
		Channels: channels,
	}
}

func newTestNetwork(t testing.TB, topology *config.Network, opts ...Option) *testNetwork {
	t.Helper()
	n := &testNetwork{runtimes: map[messaging.ChainID]*fakeRuntime{}}
	opts = append([]Option{
		WithLogger(acctesting.NewTestLogger(t)),
		WithNetwork(topology),
		WithRuntime("fake", func(id messaging.ChainID, _ *config.Network) (ChainRuntime, error) {
			r := new(fakeRuntime)
			n.runtimes[id] = r
			return r, nil
		}),
	}, opts...)

	var err error
	n.Network, err = New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, n.Close()) })
	return n
}

func (n *testNetwork) received(t testing.TB, chain messaging.ChainID) []*didReceive {
	t.Helper()
	node, err := n.Node(chain)
	require.NoError(t, err)
	entries, _ := node.EventsSince(0)
	var r []*didReceive
	for _, e := range entries {
		if e, ok := e.Event.(*didReceive); ok {
			r = append(r, e)
		}
	}
	return r
}

func (n *testNetwork) channel(t testing.TB, sender, recipient messaging.ChainID) *Channel {
	t.Helper()
	ch, err := n.Channel(sender, recipient)
	require.NoError(t, err)
	return ch
}

func payloads(r []*didReceive) []string {
	var s []string
	for _, r := range r {
		s = append(s, r.Payload)
	}
	return s
}

func bothWays(a, b string) []config.Channel {
	return []config.Channel{{From: a, To: b}, {From: b, To: a}}
}

func TestChannelFIFO(t *testing.T) {
	ch := newChannel(ChannelID{messaging.Horizontal, paraA, paraB}, config.DirectRoute, 0)
	for i := 0; i < 5; i++ {
		env, err := ch.Enqueue(&messaging.Envelope{Payload: []byte{byte(i)}})
		require.NoError(t, err)
		require.Equal(t, uint64(i+1), env.Sequence)
		require.Equal(t, messaging.Horizontal, env.Kind)
	}

	require.Len(t, ch.Peek(2), 2)
	require.Equal(t, 5, ch.Len(), "Peek does not remove entries")

	var seq uint64
	for _, batch := range [][]*messaging.Envelope{ch.DrainReady(2), ch.DrainReady(0)} {
		for _, env := range batch {
			require.Greater(t, env.Sequence, seq)
			require.Equal(t, byte(env.Sequence-1), env.Payload[0])
			seq = env.Sequence
		}
	}
	require.Equal(t, uint64(5), seq)
	require.Empty(t, ch.DrainReady(10))
	require.Equal(t, ch.Enqueued(), ch.Drained())
}

func TestChannelFailures(t *testing.T) {
	ch := newChannel(ChannelID{messaging.Horizontal, paraA, paraB}, config.DirectRoute, 1)
	_, err := ch.Enqueue(new(messaging.Envelope))
	require.NoError(t, err)
	_, err = ch.Enqueue(new(messaging.Envelope))
	require.ErrorIs(t, err, errors.ChannelFull)
	require.Equal(t, uint64(2), ch.NextSequence(), "A rejected envelope does not consume a sequence number")

	ch.Close()
	ch.DrainReady(0)
	_, err = ch.Enqueue(new(messaging.Envelope))
	require.ErrorIs(t, err, errors.ChannelClosed)
}

func TestFIFOAcrossRounds(t *testing.T) {
	n := newTestNetwork(t, testTopology(bothWays("ParaA", "ParaB")...), WithMaxDeliveryPerRound(2))

	require.NoError(t, n.Execute(paraA, messaging.Root(), send(paraB, "1", "2", "3")))
	require.NoError(t, n.Execute(paraA, messaging.Root(), send(paraB, "4", "5")))
	require.NoError(t, n.StepN(3))

	received := n.received(t, paraB)
	require.Equal(t, []string{"1", "2", "3", "4", "5"}, payloads(received))
	for i, r := range received {
		require.Equal(t, paraA, r.From)
		require.Equal(t, uint64(i+1), r.Sequence)
	}
}

func TestRoundDelay(t *testing.T) {
	n := newTestNetwork(t, testTopology(bothWays("ParaA", "ParaB")...))

	sent := map[messaging.Hash]uint64{}
	delivered := map[messaging.Hash]uint64{}
	from := map[messaging.Hash]messaging.ChainID{}
	events.SubscribeSync(n.EventBus(), func(e events.DidSendEnvelopes) {
		for _, env := range e.Envelopes {
			sent[env.Hash()] = e.Round
			from[env.Hash()] = e.Chain
		}
	})
	events.SubscribeSync(n.EventBus(), func(e events.DidRouteEnvelopes) {
		for _, env := range e.Envelopes {
			require.Contains(t, sent, env.Hash())
			require.GreaterOrEqual(t, e.Round, sent[env.Hash()])
			delivered[env.Hash()] = e.Round
		}
	})

	require.NoError(t, n.Execute(paraA, messaging.Root(), send(paraB, "ping")))
	require.Equal(t, []string{"ping"}, payloads(n.received(t, paraB)), "Sent and delivered in the same round")
	require.Empty(t, n.received(t, paraA), "A reply is not delivered in the round it is sent")

	require.NoError(t, n.Step())
	require.Equal(t, []string{"pong"}, payloads(n.received(t, paraA)))

	// The ping is executed and delivered in round 1. The pong is sent while
	// the ping is delivered, so it waits for round 2.
	require.Len(t, delivered, 2)
	for h, round := range delivered {
		switch from[h] {
		case paraA:
			require.Equal(t, sent[h], round, "ping")
		case paraB:
			require.Equal(t, sent[h]+1, round, "pong")
		default:
			t.Fatalf("unexpected sender %v", from[h])
		}
	}
}

func TestNoLoss(t *testing.T) {
	topology := testTopology(append(bothWays("ParaA", "ParaB"), config.Channel{From: "ParaA", To: "ParaC", Route: config.RelayRoute})...)
	n := newTestNetwork(t, topology, WithMaxDeliveryPerRound(1))

	call := send(paraB, "ping", "ping", "x")
	call.Sends = append(call.Sends, out{paraC, "y"}, out{paraC, "z"}, out{relay, "ping"})
	require.NoError(t, n.Execute(paraA, messaging.Root(), call))
	for i := 0; n.Pending() > 0; i++ {
		require.Less(t, i, 20, "Envelopes are still pending")
		require.NoError(t, n.Step())
	}

	for _, ch := range n.Channels() {
		require.Equalf(t, ch.Enqueued(), ch.Drained(), "%v", ch.ID())
	}
	require.Equal(t, []string{"pong", "pong", "pong"}, payloads(n.received(t, paraA)))
}

func TestRelayHop(t *testing.T) {
	topology := testTopology(config.Channel{From: "ParaA", To: "ParaC", Route: config.RelayRoute})
	n := newTestNetwork(t, topology)

	require.NoError(t, n.Execute(paraA, messaging.Root(), send(paraC, "hello")))
	require.Empty(t, n.received(t, paraC), "A relayed envelope takes an extra round")

	require.NoError(t, n.Step())
	received := n.received(t, paraC)
	require.Len(t, received, 1)
	require.Equal(t, paraA, received[0].From)
	require.Equal(t, uint64(1), received[0].Sequence)

	// Only the relay leg, never the relay runtime, sees the envelope
	require.Empty(t, n.received(t, relay))
	require.Equal(t, 1.0, testutil.ToFloat64(n.metrics.forwarded))

	direct := n.channel(t, paraA, paraC)
	require.Equal(t, config.RelayRoute, direct.Route())
	require.Equal(t, uint64(1), direct.Drained())
}

func TestCallFailureIsAtomic(t *testing.T) {
	n := newTestNetwork(t, testTopology(bothWays("ParaA", "ParaB")...), WithMaxDeliveryPerRound(1))

	require.NoError(t, n.Execute(paraA, messaging.Root(), send(paraB, "1", "2")))
	nodeA, err := n.Node(paraA)
	require.NoError(t, err)
	cursor := nodeA.Checkpoint()

	call := send(paraB, "3")
	call.Fail = true
	err = n.Execute(paraA, messaging.Root(), call)
	require.ErrorIs(t, err, errors.CallFailed)

	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	require.Equal(t, paraA, callErr.Chain)
	require.Equal(t, uint64(2), callErr.Round)
	require.Equal(t, "fake.sendCall", callErr.Call)
	require.ErrorIs(t, callErr.Cause, errors.BadRequest)

	// Nothing the call did is visible
	entries, _ := nodeA.EventsSince(cursor)
	require.Empty(t, entries)
	require.Equal(t, uint64(2), n.channel(t, paraA, paraB).Enqueued())
	require.NoError(t, nodeA.View(func(s keyvalue.Store) error {
		v, err := s.Get(keyvalue.NewKey("last-call"))
		require.NoError(t, err)
		require.Equal(t, "1", string(v))
		return nil
	}))

	// Envelopes queued earlier are still delivered
	require.Equal(t, []string{"1", "2"}, payloads(n.received(t, paraB)))
	require.Equal(t, 1.0, testutil.ToFloat64(n.metrics.failures.WithLabelValues(paraA.String())))
}

func TestRuntimePanic(t *testing.T) {
	n := newTestNetwork(t, testTopology(bothWays("ParaA", "ParaB")...))

	call := send(paraB, "1")
	call.Panic = true
	err := n.Execute(paraA, messaging.Root(), call)
	require.ErrorIs(t, err, errors.CallFailed)

	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	require.ErrorIs(t, callErr.Cause, errors.InternalError)
	require.Zero(t, n.channel(t, paraA, paraB).Enqueued())
}

func TestSendFailures(t *testing.T) {
	topology := testTopology(config.Channel{From: "ParaA", To: "ParaB", Capacity: 1})
	n := newTestNetwork(t, topology)

	cases := []struct {
		Name   string
		Call   *sendCall
		Expect errors.Status
	}{
		{"Undeclared", send(paraC, "1"), errors.ChannelClosed},
		{"Self", send(paraA, "1"), errors.ChannelClosed},
		{"Full", send(paraB, "1", "2"), errors.ChannelFull},
	}
	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			err := n.Execute(paraA, messaging.Root(), c.Call)
			var callErr *CallError
			require.ErrorAs(t, err, &callErr)
			require.ErrorIs(t, callErr.Cause, c.Expect)
		})
	}
	require.Zero(t, n.channel(t, paraA, paraB).Enqueued())

	n.channel(t, paraA, paraB).Close()
	err := n.Execute(paraA, messaging.Root(), send(paraB, "1"))
	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	require.ErrorIs(t, callErr.Cause, errors.ChannelClosed)
}

func TestRoutingFailure(t *testing.T) {
	n := newTestNetwork(t, testTopology(bothWays("ParaA", "ParaB")...))
	n.runtimes[paraB].failDelivery = true

	call := send(relay, "up")
	call.Sends = append(call.Sends, out{paraB, "across"})
	err := n.Execute(paraA, messaging.Root(), call)
	require.ErrorIs(t, err, errors.RoutingFailed)
	require.ErrorIs(t, err, errors.CallFailed)

	var routeErr *RoutingError
	require.ErrorAs(t, err, &routeErr)
	require.Equal(t, paraB, routeErr.Recipient)
	require.Equal(t, []messaging.ChainID{relay}, routeErr.Delivered)

	// The failed delivery stays queued
	require.Equal(t, []string{"up"}, payloads(n.received(t, relay)))
	require.Empty(t, n.received(t, paraB))
	require.Equal(t, 1, n.channel(t, paraA, paraB).Len())

	// And is retried
	n.runtimes[paraB].failDelivery = false
	require.NoError(t, n.Step())
	require.Equal(t, []string{"across"}, payloads(n.received(t, paraB)))
}

func TestEventsSince(t *testing.T) {
	n := newTestNetwork(t, testTopology(bothWays("ParaA", "ParaB")...))
	require.NoError(t, n.Execute(paraA, messaging.Root(), send(paraB, "ping")))
	require.NoError(t, n.Step())

	node, err := n.Node(paraA)
	require.NoError(t, err)
	a, c1 := node.EventsSince(0)
	b, c2 := node.EventsSince(0)
	require.Equal(t, a, b)
	require.Equal(t, c1, c2)
	require.Equal(t, node.Checkpoint(), c1)
	require.Len(t, a, 2)
	require.Equal(t, uint64(1), a[0].Round)
	require.Equal(t, uint64(2), a[1].Round)
	require.Equal(t, 1, a[1].Index)

	rest, c3 := node.EventsSince(c1)
	require.Empty(t, rest)
	require.Equal(t, c1, c3)

	tail, _ := node.EventsSince(1)
	require.Equal(t, a[1:], tail)
}

func TestMetrics(t *testing.T) {
	n := newTestNetwork(t, testTopology(bothWays("ParaA", "ParaB")...))
	require.NoError(t, n.Execute(paraA, messaging.Root(), send(paraB, "ping")))
	require.NoError(t, n.Step())

	require.Equal(t, 2.0, testutil.ToFloat64(n.metrics.rounds))
	require.Equal(t, 2.0, testutil.ToFloat64(n.metrics.enqueued.WithLabelValues("horizontal")))
	require.Equal(t, 2.0, testutil.ToFloat64(n.metrics.delivered.WithLabelValues("horizontal")))
	require.Equal(t, 0.0, testutil.ToFloat64(n.metrics.queued.WithLabelValues("horizontal")))

	count, err := testutil.GatherAndCount(n.Metrics(), "chainsim_rounds_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestCaptureEnvelopes(t *testing.T) {
	var dropped []*messaging.Envelope
	n := newTestNetwork(t, testTopology(bothWays("ParaA", "ParaB")...), CaptureEnvelopes(func(env *messaging.Envelope) bool {
		if env.Recipient == paraB {
			dropped = append(dropped, env)
			return false
		}
		return true
	}))

	call := send(paraB, "dropped")
	call.Sends = append(call.Sends, out{relay, "kept"})
	require.NoError(t, n.Execute(paraA, messaging.Root(), call))

	require.Len(t, dropped, 1)
	require.Empty(t, n.received(t, paraB))
	require.Equal(t, []string{"kept"}, payloads(n.received(t, relay)))
	require.Zero(t, n.channel(t, paraA, paraB).Enqueued())
}

func runScenario(t *testing.T, opts ...Option) (*testNetwork, []byte) {
	buf := new(bytes.Buffer)
	topology := testTopology(append(bothWays("ParaA", "ParaB"), config.Channel{From: "ParaB", To: "ParaC", Route: config.RelayRoute})...)
	n := newTestNetwork(t, topology, append(opts, WithRecording(buf))...)

	call := send(paraB, "ping", "x")
	call.Sends = append(call.Sends, out{relay, "ping"})
	require.NoError(t, n.Execute(paraA, messaging.Root(), call))
	require.NoError(t, n.Execute(paraB, messaging.Signed(acctesting.GenerateAccount("Bob")), send(paraC, "y")))
	require.NoError(t, n.StepN(3))
	return n, buf.Bytes()
}

func TestDeterministicRecording(t *testing.T) {
	n1, rec1 := runScenario(t)
	n2, rec2 := runScenario(t)
	require.Equal(t, string(rec1), string(rec2))

	h1, err := n1.StateHashes()
	require.NoError(t, err)
	h2, err := n2.StateHashes()
	require.NoError(t, err)
	require.Equal(t, h1, h2)

	rounds, err := ReadRecording(bytes.NewReader(rec1))
	require.NoError(t, err)
	require.Len(t, rounds, 5)
	require.Equal(t, "fake.sendCall", rounds[0].Calls[0].Call)
	require.Equal(t, "root", rounds[0].Calls[0].Origin)
	require.Len(t, rounds[0].Sent, 5, "Three sent by the call and two replies")
	require.Equal(t, h1[paraA].String(), rounds[4].State[paraA.String()])
}

func TestStorageEnginesAgree(t *testing.T) {
	mem, _ := runScenario(t, MemoryDatabase)
	expect, err := mem.StateHashes()
	require.NoError(t, err)

	engines := map[string]Option{
		"Badger":  BadgerDatabase,
		"LevelDB": LevelDBDatabase,
		"Bolt":    BoltDatabase,
	}
	for name, opt := range engines {
		t.Run(name, func(t *testing.T) {
			n, _ := runScenario(t, opt)
			actual, err := n.StateHashes()
			require.NoError(t, err)
			require.Equal(t, expect, actual)
		})
	}
}

func TestGenesis(t *testing.T) {
	n := newTestNetwork(t, testTopology(), WithSnapshot(func(id messaging.ChainID, _ *config.Network) ([]keyvalue.Entry, error) {
		return []keyvalue.Entry{{Key: keyvalue.NewKey("self"), Value: []byte(id.String())}}, nil
	}))

	for _, id := range n.Chains() {
		node, err := n.Node(id)
		require.NoError(t, err)
		require.NoError(t, node.View(func(s keyvalue.Store) error {
			v, err := s.Get(keyvalue.NewKey("self"))
			require.NoError(t, err)
			require.Equal(t, id.String(), string(v))
			return nil
		}))
	}
	require.Equal(t, []messaging.ChainID{relay, paraA, paraB, paraC}, n.Chains())
}

func TestSetupFailures(t *testing.T) {
	fake := WithRuntime("fake", func(messaging.ChainID, *config.Network) (ChainRuntime, error) {
		return new(fakeRuntime), nil
	})

	_, err := New(fake)
	require.ErrorIs(t, err, errors.SetupFailed)

	_, err = New(WithNetwork(testTopology()))
	require.ErrorIs(t, err, errors.SetupFailed)
	require.ErrorIs(t, err, errors.NotFound)

	_, err = New(fake, WithNetwork(testTopology(config.Channel{From: "ParaA", To: "ParaD"})))
	require.ErrorIs(t, err, errors.SetupFailed)
	require.ErrorIs(t, err, errors.BadRequest)

	_, err = New(fake, WithNetwork(testTopology()), WithSnapshot(func(messaging.ChainID, *config.Network) ([]keyvalue.Entry, error) {
		return nil, errors.NotFound.With("code artifact is missing")
	}))
	require.ErrorIs(t, err, errors.SetupFailed)
	require.Contains(t, err.Error(), "code artifact is missing")

	_, err = New(fake, fake)
	require.ErrorIs(t, err, errors.SetupFailed)
}

func TestExecuteUnknownChain(t *testing.T) {
	n := newTestNetwork(t, testTopology())
	err := n.Execute(messaging.Para(3000), messaging.Root(), send(paraA, "1"))
	require.ErrorIs(t, err, errors.NotFound)
	require.Zero(t, n.Round())
}

func TestClose(t *testing.T) {
	n := newTestNetwork(t, testTopology(bothWays("ParaA", "ParaB")...))
	require.NoError(t, n.Close())
	require.ErrorIs(t, n.Step(), errors.BadRequest)
	for _, ch := range n.Channels() {
		require.True(t, ch.Closed())
	}
}
