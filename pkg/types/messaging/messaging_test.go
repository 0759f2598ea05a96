// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package messaging_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
	. "gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
)

func TestChainOrder(t *testing.T) {
	ids := []ChainID{Para(2001), Relay(), Para(1000), Para(2000)}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) < 0 })
	require.Equal(t, []ChainID{Relay(), Para(1000), Para(2000), Para(2001)}, ids)
}

func TestParseChainID(t *testing.T) {
	cases := map[string]ChainID{
		"relay":      Relay(),
		"RELAY":      Relay(),
		"2000":       Para(2000),
		"para(2001)": Para(2001),
	}
	for s, expect := range cases {
		t.Run(s, func(t *testing.T) {
			actual, err := ParseChainID(s)
			require.NoError(t, err)
			require.Equal(t, expect, actual)
		})
	}

	_, err := ParseChainID("parachain")
	require.ErrorIs(t, err, errors.BadRequest)
}

func TestChainIDText(t *testing.T) {
	b, err := Para(2000).MarshalText()
	require.NoError(t, err)
	require.Equal(t, "para(2000)", string(b))

	var id ChainID
	require.NoError(t, id.UnmarshalText(b))
	require.Equal(t, Para(2000), id)

	_, err = ChainID{}.MarshalText()
	require.ErrorIs(t, err, errors.EncodingError)
}

func TestKindFor(t *testing.T) {
	kind, err := KindFor(Relay(), Para(1))
	require.NoError(t, err)
	require.Equal(t, Downward, kind)

	kind, err = KindFor(Para(1), Relay())
	require.NoError(t, err)
	require.Equal(t, Upward, kind)

	kind, err = KindFor(Para(1), Para(2))
	require.NoError(t, err)
	require.Equal(t, Horizontal, kind)

	_, err = KindFor(Para(1), Para(1))
	require.ErrorIs(t, err, errors.BadRequest)
}

func TestEnvelopeHash(t *testing.T) {
	a := &Envelope{Kind: Horizontal, Sender: Para(1), Recipient: Para(2), Sequence: 1, Payload: []byte("ping"), Round: 1}
	b := a.Copy()
	b.Round = 7
	require.Equal(t, a.Hash(), b.Hash(), "the enqueue round is not hashed")

	b.Sequence = 2
	require.NotEqual(t, a.Hash(), b.Hash())

	b = a.Copy()
	b.Payload[0] = 'P'
	require.Equal(t, byte('p'), a.Payload[0], "copies do not share payloads")
	require.NotEqual(t, a.Hash(), b.Hash())
}

type fooEvent struct{}

func (*fooEvent) Module() string { return "foo" }

func TestNameOf(t *testing.T) {
	require.Equal(t, "foo.fooEvent", NameOf(new(fooEvent)))
}

func TestAccountIDText(t *testing.T) {
	var a AccountID
	a[0], a[31] = 0xAB, 0xCD
	b, err := a.MarshalText()
	require.NoError(t, err)
	require.Len(t, b, 64)

	var c AccountID
	require.NoError(t, c.UnmarshalText(b))
	require.Equal(t, a, c)
	require.Equal(t, "ab000000", a.String())

	require.ErrorIs(t, c.UnmarshalText([]byte("abcd")), errors.EncodingError)
}
