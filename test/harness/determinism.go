// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package harness

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
	"gitlab.com/accumulatenetwork/chainsim/test/simulator"
	"golang.org/x/sync/errgroup"
)

// BuildFunc builds a network that records every round to the writer.
type BuildFunc func(recording io.Writer) (*simulator.Network, error)

// ScenarioFunc drives a network. It may be called from a goroutine other than
// the test's, so it must report failures by returning an error.
type ScenarioFunc func(*simulator.Network) error

type replica struct {
	recording bytes.Buffer
	hashes    map[messaging.ChainID]messaging.Hash
}

// RequireDeterministic runs the scenario on two independently built networks
// concurrently and requires their recordings to be byte-identical and their
// final state hashes to be equal.
func RequireDeterministic(tb testing.TB, build BuildFunc, scenario ScenarioFunc) {
	tb.Helper()

	replicas := make([]*replica, 2)
	errg := new(errgroup.Group)
	for i := range replicas {
		r := new(replica)
		replicas[i] = r
		errg.Go(func() error {
			net, err := build(&r.recording)
			if err != nil {
				return err
			}
			defer func() { _ = net.Close() }()

			err = scenario(net)
			if err != nil {
				return errors.UnknownError.WithFormat("scenario: %w", err)
			}

			r.hashes, err = net.StateHashes()
			return err
		})
	}
	require.NoError(tb, errg.Wait())

	a, b := replicas[0], replicas[1]
	require.NotEmpty(tb, a.recording.Bytes(), "Nothing was recorded")
	require.Equal(tb, a.recording.String(), b.recording.String(), "Recordings differ")
	require.Equal(tb, a.hashes, b.hashes, "State hashes differ")
}
