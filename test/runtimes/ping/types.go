// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package ping

import "gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"

// Send sends a single ping.
type Send struct {
	To      messaging.ChainID
	Payload []byte
}

// Start adds a target that is pinged every round.
type Start struct {
	To      messaging.ChainID
	Payload []byte
}

// StartMany adds a target Count times.
type StartMany struct {
	To      messaging.ChainID
	Payload []byte
	Count   uint32
}

// Stop removes the first target for the chain.
type Stop struct {
	To messaging.ChainID
}

// StopAll removes every target.
type StopAll struct{}

type PingSent struct {
	To      messaging.ChainID
	Seq     uint64
	Payload []byte
	Hash    messaging.Hash
}

type Pinged struct {
	From    messaging.ChainID
	Seq     uint64
	Payload []byte
}

type PongSent struct {
	To      messaging.ChainID
	Seq     uint64
	Payload []byte
	Hash    messaging.Hash
}

type Ponged struct {
	From    messaging.ChainID
	Seq     uint64
	Payload []byte

	// Rounds is the number of rounds between the ping and the pong.
	Rounds uint64
}

type ErrorSendingPing struct {
	To      messaging.ChainID
	Seq     uint64
	Payload []byte
	Error   string
}

type ErrorSendingPong struct {
	To      messaging.ChainID
	Seq     uint64
	Payload []byte
	Error   string
}

type UnknownPong struct {
	From    messaging.ChainID
	Seq     uint64
	Payload []byte
}

func (*Send) Module() string             { return ModuleName }
func (*Start) Module() string            { return ModuleName }
func (*StartMany) Module() string        { return ModuleName }
func (*Stop) Module() string             { return ModuleName }
func (*StopAll) Module() string          { return ModuleName }
func (*PingSent) Module() string         { return ModuleName }
func (*Pinged) Module() string           { return ModuleName }
func (*PongSent) Module() string         { return ModuleName }
func (*Ponged) Module() string           { return ModuleName }
func (*ErrorSendingPing) Module() string { return ModuleName }
func (*ErrorSendingPong) Module() string { return ModuleName }
func (*UnknownPong) Module() string      { return ModuleName }
