// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package messaging

import (
	"fmt"
	"strconv"
	"strings"

	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
)

// ParaID is the numeric identifier of a parachain.
type ParaID uint32

// ChainKind distinguishes the relay chain from parachains.
type ChainKind uint8

const (
	ChainKindRelay ChainKind = 1
	ChainKindPara  ChainKind = 2
)

// ChainID identifies a chain within a network. A network has exactly one
// relay chain; parachains are identified by their para ID.
type ChainID struct {
	Kind ChainKind
	Para ParaID
}

// Relay returns the ID of the relay chain.
func Relay() ChainID { return ChainID{Kind: ChainKindRelay} }

// Para returns the ID of the parachain with the given para ID.
func Para(id ParaID) ChainID { return ChainID{Kind: ChainKindPara, Para: id} }

func (c ChainID) IsRelay() bool { return c.Kind == ChainKindRelay }
func (c ChainID) IsPara() bool  { return c.Kind == ChainKindPara }

// Valid returns true if the ID is a relay or parachain ID.
func (c ChainID) Valid() bool {
	switch c.Kind {
	case ChainKindRelay:
		return c.Para == 0
	case ChainKindPara:
		return true
	}
	return false
}

func (c ChainID) String() string {
	switch c.Kind {
	case ChainKindRelay:
		return "relay"
	case ChainKindPara:
		return fmt.Sprintf("para(%d)", c.Para)
	default:
		return fmt.Sprintf("invalid(%d, %d)", c.Kind, c.Para)
	}
}

// Compare orders the relay chain first, then parachains by ascending ID.
func (c ChainID) Compare(d ChainID) int {
	switch {
	case c.Kind < d.Kind:
		return -1
	case c.Kind > d.Kind:
		return +1
	case c.Para < d.Para:
		return -1
	case c.Para > d.Para:
		return +1
	}
	return 0
}

// ParseChainID parses "relay", "para(2000)", or "2000".
func ParseChainID(s string) (ChainID, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "relay") {
		return Relay(), nil
	}
	if strings.HasPrefix(s, "para(") && strings.HasSuffix(s, ")") {
		s = s[5 : len(s)-1]
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return ChainID{}, errors.BadRequest.WithFormat("invalid chain ID %q", s)
	}
	return Para(ParaID(v)), nil
}

func (c ChainID) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, errors.EncodingError.WithFormat("invalid chain ID %v", c)
	}
	return []byte(c.String()), nil
}

func (c *ChainID) UnmarshalText(b []byte) error {
	v, err := ParseChainID(string(b))
	if err != nil {
		return errors.EncodingError.Wrap(err)
	}
	*c = v
	return nil
}
