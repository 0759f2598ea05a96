// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package frame

import (
	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
	"gitlab.com/accumulatenetwork/chainsim/test/simulator"
)

var (
	// CodeKey stores the runtime code artifact.
	CodeKey = keyvalue.NewKey("System", "Code")

	// NumberKey stores the number of the current block.
	NumberKey = keyvalue.NewKey("System", "Number")
)

// System tracks the block number and records dropped and failed messages.
type System struct{}

type Remark struct {
	Data []byte
}

type Remarked struct {
	Sender messaging.Origin
	Data   []byte
}

type MessageDropped struct {
	From     messaging.ChainID
	Sequence uint64
	Reason   string
}

type MessageFailed struct {
	From     messaging.ChainID
	Sequence uint64
	Method   string
	Error    string
}

func (*Remark) Module() string         { return "system" }
func (*Remarked) Module() string       { return "system" }
func (*MessageDropped) Module() string { return "system" }
func (*MessageFailed) Module() string  { return "system" }

func (System) Name() string { return "system" }

func (System) OnRoundStart(ctx *simulator.Context) error {
	return Store(ctx.Store(), NumberKey, ctx.Round())
}

func (System) Execute(ctx *simulator.Context, origin messaging.Origin, call messaging.Call) error {
	switch call := call.(type) {
	case *Remark:
		ctx.Emit(&Remarked{Sender: origin, Data: call.Data})
		return nil
	default:
		return errors.BadRequest.WithFormat("unknown call %s", messaging.NameOf(call))
	}
}

// BlockNumber returns the chain's current block number.
func BlockNumber(s keyvalue.Store) (uint64, error) {
	var n uint64
	_, err := Load(s, NumberKey, &n)
	return n, err
}
