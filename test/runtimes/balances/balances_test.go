// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package balances_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
	. "gitlab.com/accumulatenetwork/chainsim/test/harness"
	"gitlab.com/accumulatenetwork/chainsim/test/networks"
	"gitlab.com/accumulatenetwork/chainsim/test/runtimes/balances"
	"gitlab.com/accumulatenetwork/chainsim/test/runtimes/genesis"
	"gitlab.com/accumulatenetwork/chainsim/test/simulator"
	acctesting "gitlab.com/accumulatenetwork/chainsim/test/testing"
)

var (
	paraA = messaging.Para(networks.ParaA)
	alice = genesis.Account("Alice")
	bob   = genesis.Account("Bob")
)

func setup(t *testing.T) *Harness {
	net, err := networks.New(networks.PolkadotMockNet(), simulator.WithLogger(acctesting.NewTestLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, net.Close()) })
	return New(t, net)
}

func free(h *Harness, chain messaging.ChainID, who messaging.AccountID) uint64 {
	var v uint64
	h.View(chain, func(s keyvalue.Store) {
		var err error
		v, err = balances.Free(s, who)
		require.NoError(h.TB(), err)
	})
	return v
}

func issuance(h *Harness, chain messaging.ChainID) uint64 {
	var v uint64
	h.View(chain, func(s keyvalue.Store) {
		var err error
		v, err = balances.TotalIssuance(s)
		require.NoError(h.TB(), err)
	})
	return v
}

func TestGenesisBalances(t *testing.T) {
	h := setup(t)
	ed := genesis.ParaExistentialDeposit
	require.Equal(t, ed*4096, free(h, paraA, alice))
	require.Equal(t, ed*4096*uint64(len(genesis.WellKnownAccounts)), issuance(h, paraA))
	require.Equal(t, genesis.RelayExistentialDeposit*4096, free(h, messaging.Relay(), bob))
}

func TestTransfer(t *testing.T) {
	h := setup(t)
	before := free(h, paraA, alice)
	h.Checkpoint()

	h.Execute(paraA, messaging.Signed(alice), &balances.Transfer{To: bob, Amount: 100})
	h.ExpectEvents(paraA, Event[*balances.Transferred](Field("From", alice), Field("To", bob), Field("Amount", uint64(100))))
	require.Equal(t, before-100, free(h, paraA, alice))
	require.Equal(t, before+100, free(h, paraA, bob))
	require.Equal(t, before*uint64(len(genesis.WellKnownAccounts)), issuance(h, paraA))
}

func TestTransferIsAtomic(t *testing.T) {
	h := setup(t)
	h.Checkpoint()

	err := h.ExecuteFails(paraA, messaging.Signed(alice), &balances.Transfer{To: bob, Amount: free(h, paraA, alice) + 1})
	require.ErrorIs(t, err.Cause, errors.BadRequest)
	require.Contains(t, err.Reason, "insufficient balance")
	require.Empty(t, h.Events(paraA))
	require.Equal(t, genesis.ParaExistentialDeposit*4096, free(h, paraA, alice))
	require.Equal(t, genesis.ParaExistentialDeposit*4096, free(h, paraA, bob))
}

func TestTransferRequiresSigner(t *testing.T) {
	h := setup(t)
	err := h.ExecuteFails(paraA, messaging.Root(), &balances.Transfer{To: bob, Amount: 1})
	require.ErrorIs(t, err.Cause, errors.Unauthorized)
}

func TestForceSetBalance(t *testing.T) {
	h := setup(t)
	charlie := genesis.Account("Charlie")
	total := issuance(h, paraA)
	old := free(h, paraA, charlie)
	h.Checkpoint()

	err := h.ExecuteFails(paraA, messaging.Signed(alice), &balances.ForceSetBalance{Who: charlie, Free: 1})
	require.ErrorIs(t, err.Cause, errors.Unauthorized)

	h.Execute(paraA, messaging.Root(), &balances.ForceSetBalance{Who: charlie, Free: 1})
	h.ExpectEvents(paraA, Event[*balances.BalanceSet](Field("Who", charlie), Field("Free", uint64(1))))
	require.Equal(t, uint64(1), free(h, paraA, charlie))
	require.Equal(t, total-old+1, issuance(h, paraA))
}

func TestGenesisOverflow(t *testing.T) {
	_, err := balances.Genesis(map[messaging.AccountID]uint64{alice: ^uint64(0), bob: 1})
	require.ErrorIs(t, err, errors.BadRequest)
}
