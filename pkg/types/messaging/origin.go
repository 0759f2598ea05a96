// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package messaging

import (
	"encoding/hex"
	"fmt"

	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
)

// AccountID identifies an account on a chain.
type AccountID [32]byte

func (a AccountID) String() string { return hex.EncodeToString(a[:4]) }

// MarshalText implements [encoding.TextMarshaler]. Unlike String, the full ID
// is encoded.
func (a AccountID) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(a[:])), nil
}

func (a *AccountID) UnmarshalText(b []byte) error {
	if hex.DecodedLen(len(b)) != len(a) {
		return errors.EncodingError.WithFormat("invalid account ID %q: want %d bytes", b, len(a))
	}
	_, err := hex.Decode(a[:], b)
	if err != nil {
		return errors.EncodingError.WithFormat("invalid account ID %q: %w", b, err)
	}
	return nil
}

// Origin is the authority a call is executed with.
type Origin struct {
	Root   bool
	Signer AccountID
}

// Root returns the administrative origin.
func Root() Origin { return Origin{Root: true} }

// Signed returns the origin of a call signed by the given account.
func Signed(account AccountID) Origin { return Origin{Signer: account} }

func (o Origin) String() string {
	if o.Root {
		return "root"
	}
	return fmt.Sprintf("signed(%v)", o.Signer)
}

// MarshalText implements [encoding.TextMarshaler].
func (o Origin) MarshalText() ([]byte, error) { return []byte(o.String()), nil }
