// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package harness

import (
	"github.com/stretchr/testify/require"
	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
	"gitlab.com/accumulatenetwork/chainsim/test/simulator"
)

func (h *Harness) Node(chain messaging.ChainID) *simulator.Node {
	h.tb.Helper()
	node, err := h.net.Node(chain)
	require.NoError(h.tb, err)
	return node
}

func (h *Harness) Channel(sender, recipient messaging.ChainID) *simulator.Channel {
	h.tb.Helper()
	ch, err := h.net.Channel(sender, recipient)
	require.NoError(h.tb, err)
	return ch
}

// View calls fn with a read-only view of the chain's state.
func (h *Harness) View(chain messaging.ChainID, fn func(keyvalue.Store)) {
	h.tb.Helper()
	require.NoError(h.tb, h.Node(chain).View(func(s keyvalue.Store) error {
		fn(s)
		return nil
	}))
}

// QueryState returns the value stored under the key, or nil if there is none.
func (h *Harness) QueryState(chain messaging.ChainID, key keyvalue.Key) []byte {
	h.tb.Helper()
	var value []byte
	h.View(chain, func(s keyvalue.Store) {
		v, err := s.Get(key)
		switch {
		case err == nil:
			value = v
		case !errors.Is(err, errors.NotFound):
			require.NoError(h.tb, err)
		}
	})
	return value
}

// StateHashes returns the state hash of every chain.
func (h *Harness) StateHashes() map[messaging.ChainID]messaging.Hash {
	h.tb.Helper()
	hashes, err := h.net.StateHashes()
	require.NoError(h.tb, err)
	return hashes
}
