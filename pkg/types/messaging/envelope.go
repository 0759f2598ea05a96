// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package messaging

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
)

// ChannelKind is the kind of a message channel.
type ChannelKind uint8

const (
	// Downward channels carry messages from the relay chain to a parachain.
	Downward ChannelKind = 1

	// Upward channels carry messages from a parachain to the relay chain.
	Upward ChannelKind = 2

	// Horizontal channels carry messages between parachains.
	Horizontal ChannelKind = 3
)

func (k ChannelKind) String() string {
	switch k {
	case Downward:
		return "downward"
	case Upward:
		return "upward"
	case Horizontal:
		return "horizontal"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// LogModule returns the logging module conventionally used for the kind.
func (k ChannelKind) LogModule() string {
	switch k {
	case Downward:
		return "dmp"
	case Upward:
		return "ump"
	default:
		return "hrmp"
	}
}

// KindFor returns the kind of channel that connects sender to recipient.
func KindFor(sender, recipient ChainID) (ChannelKind, error) {
	switch {
	case !sender.Valid() || !recipient.Valid():
		return 0, errors.BadRequest.WithFormat("invalid endpoints %v→%v", sender, recipient)
	case sender == recipient:
		return 0, errors.BadRequest.WithFormat("%v cannot send messages to itself", sender)
	case sender.IsRelay():
		return Downward, nil
	case recipient.IsRelay():
		return Upward, nil
	default:
		return Horizontal, nil
	}
}

// MarshalText implements [encoding.TextMarshaler].
func (k ChannelKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Hash is a Keccak-256 message hash.
type Hash [32]byte

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// Short returns the first four bytes of the hash as hex.
func (h Hash) Short() string { return hex.EncodeToString(h[:4]) }

// MarshalText implements [encoding.TextMarshaler].
func (h Hash) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

// Envelope is a unit of cross-chain payload with routing metadata.
type Envelope struct {
	Kind      ChannelKind
	Sender    ChainID
	Recipient ChainID
	Sequence  uint64
	Payload   []byte

	// Round is the round in which the envelope was enqueued.
	Round uint64
}

type envelopeHeader struct {
	Kind      ChannelKind
	Sender    ChainID
	Recipient ChainID
	Sequence  uint64
	Payload   []byte
}

// Hash returns the Keccak-256 hash of the routing header and payload. The
// enqueue round is not part of the hash.
func (e *Envelope) Hash() Hash {
	b, err := rlp.EncodeToBytes(&envelopeHeader{e.Kind, e.Sender, e.Recipient, e.Sequence, e.Payload})
	if err != nil {
		// Every field is RLP-encodable
		panic(fmt.Errorf("encode envelope: %w", err))
	}
	var h Hash
	copy(h[:], crypto.Keccak256(b))
	return h
}

func (e *Envelope) Copy() *Envelope {
	f := *e
	f.Payload = append([]byte(nil), e.Payload...)
	return &f
}

func (e *Envelope) String() string {
	return fmt.Sprintf("%v %v→%v #%d (%s)", e.Kind, e.Sender, e.Recipient, e.Sequence, e.Hash().Short())
}
