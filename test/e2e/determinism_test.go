// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package e2e

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
	. "gitlab.com/accumulatenetwork/chainsim/test/harness"
	"gitlab.com/accumulatenetwork/chainsim/test/networks"
	"gitlab.com/accumulatenetwork/chainsim/test/runtimes/balances"
	"gitlab.com/accumulatenetwork/chainsim/test/runtimes/genesis"
	"gitlab.com/accumulatenetwork/chainsim/test/runtimes/ping"
	"gitlab.com/accumulatenetwork/chainsim/test/runtimes/xcm"
	"gitlab.com/accumulatenetwork/chainsim/test/simulator"
	acctesting "gitlab.com/accumulatenetwork/chainsim/test/testing"
)

func mixedScenario(net *simulator.Network) error {
	type step struct {
		chain  messaging.ChainID
		origin messaging.Origin
		call   messaging.Call
	}
	steps := []step{
		{paraA, messaging.Root(), &ping.StartMany{To: paraB, Payload: []byte("a"), Count: 2}},
		{paraB, messaging.Root(), &ping.Start{To: paraA, Payload: []byte("b")}},
		{relay, messaging.Root(), &xcm.Send{Dest: paraA, Message: []byte("down")}},
		{paraB, messaging.Signed(genesis.Account("Alice")), &balances.Transfer{To: genesis.Account("Bob"), Amount: 1}},
		{paraA, messaging.Root(), &ping.Stop{To: paraB}},
	}
	for _, s := range steps {
		err := net.Execute(s.chain, s.origin, s.call)
		if err != nil {
			return err
		}
	}
	return net.StepN(5)
}

func TestDeterminism(t *testing.T) {
	logger := acctesting.NewTestLogger(t)
	for _, storage := range []struct {
		name string
		opt  simulator.Option
	}{
		{"Memory", simulator.MemoryDatabase},
		{"Badger", simulator.BadgerDatabase},
		{"LevelDB", simulator.LevelDBDatabase},
		{"Bolt", simulator.BoltDatabase},
	} {
		t.Run(storage.name, func(t *testing.T) {
			RequireDeterministic(t,
				func(w io.Writer) (*simulator.Network, error) {
					return networks.New(networks.PolkadotMockNet(),
						simulator.WithLogger(logger),
						simulator.WithRecording(w),
						storage.opt)
				},
				mixedScenario)
		})
	}
}

func TestRecordingIsReadable(t *testing.T) {
	buf := new(bytes.Buffer)
	net, err := networks.New(networks.PolkadotMockNet(),
		simulator.WithLogger(acctesting.NewTestLogger(t)),
		simulator.WithRecording(buf))
	require.NoError(t, err)
	defer func() { require.NoError(t, net.Close()) }()
	require.NoError(t, mixedScenario(net))

	rounds, err := simulator.ReadRecording(buf)
	require.NoError(t, err)
	require.Len(t, rounds, int(net.Round()))
	for i, r := range rounds {
		require.Equal(t, uint64(i+1), r.Round)
	}
}
