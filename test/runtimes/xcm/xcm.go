// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

// Package xcm sends opaque messages between chains.
package xcm

import (
	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
	"gitlab.com/accumulatenetwork/chainsim/test/runtimes/frame"
	"gitlab.com/accumulatenetwork/chainsim/test/simulator"
)

const ModuleName = "xcm"

// SafeVersionKey stores the message format version the chain is known to
// accept.
var SafeVersionKey = keyvalue.NewKey("Xcm", "SafeVersion")

// CurrentVersion is the version of the message format.
const CurrentVersion uint32 = 3

type Module struct{}

// Send sends a message to another chain. It requires root.
type Send struct {
	Dest    messaging.ChainID
	Message []byte
}

type Sent struct {
	Dest     messaging.ChainID
	Sequence uint64
	Hash     messaging.Hash
}

type Processed struct {
	From     messaging.ChainID
	Kind     messaging.ChannelKind
	Sequence uint64
	Hash     messaging.Hash
	Message  []byte
}

type transact struct {
	Version uint32
	Message []byte
}

func (*Send) Module() string      { return ModuleName }
func (*Sent) Module() string      { return ModuleName }
func (*Processed) Module() string { return ModuleName }

func (Module) Name() string { return ModuleName }

func (Module) Execute(ctx *simulator.Context, origin messaging.Origin, call messaging.Call) error {
	c, ok := call.(*Send)
	if !ok {
		return errors.BadRequest.WithFormat("unknown call %s", messaging.NameOf(call))
	}
	err := frame.EnsureRoot(origin)
	if err != nil {
		return err
	}

	payload, err := frame.Encode(ModuleName, "transact", &transact{Version: CurrentVersion, Message: c.Message})
	if err != nil {
		return err
	}
	env, err := ctx.Send(c.Dest, payload)
	if err != nil {
		return err
	}

	ctx.Logger(ModuleName).Trace("Sent", "dest", c.Dest, "envelope", env.String())
	ctx.Emit(&Sent{Dest: c.Dest, Sequence: env.Sequence, Hash: env.Hash()})
	return nil
}

func (Module) HandleMessage(ctx *simulator.Context, env *messaging.Envelope, msg *frame.Message) error {
	if msg.Method != "transact" {
		return errors.BadRequest.WithFormat("unknown method %v", msg)
	}

	var t transact
	err := msg.DecodeBody(&t)
	if err != nil {
		return err
	}

	var safe uint32
	ok, err := frame.Load(ctx.Store(), SafeVersionKey, &safe)
	if err != nil {
		return err
	}
	if ok && t.Version > safe {
		return errors.BadRequest.WithFormat("version %d is not supported (safe version is %d)", t.Version, safe)
	}

	ctx.Logger(ModuleName).Trace("Processed", "envelope", env.String())
	ctx.Emit(&Processed{From: env.Sender, Kind: env.Kind, Sequence: env.Sequence, Hash: env.Hash(), Message: t.Message})
	return nil
}

// Genesis returns the genesis entries for the module.
func Genesis(safeVersion uint32) ([]keyvalue.Entry, error) {
	e, err := frame.Entry(SafeVersionKey, safeVersion)
	if err != nil {
		return nil, err
	}
	return []keyvalue.Entry{e}, nil
}
