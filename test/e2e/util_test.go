// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package e2e

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/accumulatenetwork/chainsim/config"
	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue"
	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
	"gitlab.com/accumulatenetwork/chainsim/test/harness"
	"gitlab.com/accumulatenetwork/chainsim/test/networks"
	"gitlab.com/accumulatenetwork/chainsim/test/runtimes/ping"
	"gitlab.com/accumulatenetwork/chainsim/test/simulator"
	acctesting "gitlab.com/accumulatenetwork/chainsim/test/testing"
)

var (
	relay = messaging.Relay()
	paraA = messaging.Para(networks.ParaA)
	paraB = messaging.Para(networks.ParaB)
)

func init() { acctesting.EnableDebugFeatures() }

func newHarness(t *testing.T, topology *config.Network, opts ...simulator.Option) *harness.Harness {
	t.Helper()
	opts = append([]simulator.Option{simulator.WithLogger(acctesting.NewTestLogger(t))}, opts...)
	net, err := networks.New(topology, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, net.Close()) })
	return harness.New(t, net)
}

func pendingPings(h *harness.Harness, chain messaging.ChainID) int {
	var n int
	h.View(chain, func(s keyvalue.Store) {
		var err error
		n, err = ping.PendingPings(s)
		require.NoError(h.TB(), err)
	})
	return n
}
