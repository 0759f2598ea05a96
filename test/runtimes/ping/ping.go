// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

// Package ping sends pings to other chains and answers theirs with pongs.
package ping

import (
	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
	"gitlab.com/accumulatenetwork/chainsim/test/runtimes/frame"
	"gitlab.com/accumulatenetwork/chainsim/test/simulator"
)

const ModuleName = "ping"

var (
	// PingCountKey stores the sequence number of the last ping.
	PingCountKey = keyvalue.NewKey("Ping", "PingCount")

	// PingsKey is the prefix of the pings awaiting a pong, by sequence
	// number. Each stores the round the ping was sent in.
	PingsKey = keyvalue.NewKey("Ping", "Pings")

	// TargetsKey stores the targets pinged every round.
	TargetsKey = keyvalue.NewKey("Ping", "Targets")
)

// Module is the ping module.
type Module struct{}

// Target is a chain that is pinged at the start of every round.
type Target struct {
	To      messaging.ChainID
	Payload []byte
}

type body struct {
	Seq     uint64
	Payload []byte
}

func (Module) Name() string { return ModuleName }

func (m Module) Execute(ctx *simulator.Context, origin messaging.Origin, call messaging.Call) error {
	err := frame.EnsureRoot(origin)
	if err != nil {
		return err
	}

	switch call := call.(type) {
	case *Send:
		return m.ping(ctx, call.To, call.Payload)

	case *Start:
		return m.addTargets(ctx, call.To, call.Payload, 1)

	case *StartMany:
		return m.addTargets(ctx, call.To, call.Payload, call.Count)

	case *Stop:
		targets, err := Targets(ctx.Store())
		if err != nil {
			return err
		}
		for i, t := range targets {
			if t.To == call.To {
				return frame.Store(ctx.Store(), TargetsKey, append(targets[:i], targets[i+1:]...))
			}
		}
		return errors.NotFound.WithFormat("%v is not a target", call.To)

	case *StopAll:
		return frame.Store(ctx.Store(), TargetsKey, []Target{})

	default:
		return errors.BadRequest.WithFormat("unknown call %s", messaging.NameOf(call))
	}
}

// OnRoundStart pings every target.
func (m Module) OnRoundStart(ctx *simulator.Context) error {
	targets, err := Targets(ctx.Store())
	if err != nil {
		return err
	}
	for _, t := range targets {
		err = m.ping(ctx, t.To, t.Payload)
		if err != nil {
			return err
		}
	}
	return nil
}

func (m Module) HandleMessage(ctx *simulator.Context, env *messaging.Envelope, msg *frame.Message) error {
	var b body
	err := msg.DecodeBody(&b)
	if err != nil {
		return err
	}

	log := ctx.Logger(ModuleName)
	switch msg.Method {
	case "ping":
		log.Trace("Pinged", "from", env.Sender, "seq", b.Seq)
		ctx.Emit(&Pinged{From: env.Sender, Seq: b.Seq, Payload: b.Payload})

		sent, ok, err := send(ctx, env.Sender, "pong", &b)
		switch {
		case err != nil:
			return err
		case !ok:
			ctx.Emit(&ErrorSendingPong{To: env.Sender, Seq: b.Seq, Payload: b.Payload, Error: sent.err.Error()})
		default:
			ctx.Emit(&PongSent{To: env.Sender, Seq: b.Seq, Payload: b.Payload, Hash: sent.env.Hash()})
		}
		return nil

	case "pong":
		key := PingsKey.Append(b.Seq)
		var at uint64
		ok, err := frame.Load(ctx.Store(), key, &at)
		if err != nil {
			return err
		}
		if !ok {
			log.Info("Unknown pong", "from", env.Sender, "seq", b.Seq)
			ctx.Emit(&UnknownPong{From: env.Sender, Seq: b.Seq, Payload: b.Payload})
			return nil
		}

		err = ctx.Store().Delete(key)
		if err != nil {
			return err
		}
		log.Trace("Ponged", "from", env.Sender, "seq", b.Seq, "rounds", ctx.Round()-at)
		ctx.Emit(&Ponged{From: env.Sender, Seq: b.Seq, Payload: b.Payload, Rounds: ctx.Round() - at})
		return nil

	default:
		return errors.BadRequest.WithFormat("unknown method %v", msg)
	}
}

func (m Module) ping(ctx *simulator.Context, to messaging.ChainID, payload []byte) error {
	var seq uint64
	_, err := frame.Load(ctx.Store(), PingCountKey, &seq)
	if err != nil {
		return err
	}
	seq++
	err = frame.Store(ctx.Store(), PingCountKey, seq)
	if err != nil {
		return err
	}

	b := &body{Seq: seq, Payload: payload}
	sent, ok, err := send(ctx, to, "ping", b)
	switch {
	case err != nil:
		return err
	case !ok:
		ctx.Emit(&ErrorSendingPing{To: to, Seq: seq, Payload: payload, Error: sent.err.Error()})
		return nil
	}

	err = frame.Store(ctx.Store(), PingsKey.Append(seq), ctx.Round())
	if err != nil {
		return err
	}
	ctx.Logger(ModuleName).Trace("Ping sent", "to", to, "seq", seq)
	ctx.Emit(&PingSent{To: to, Seq: seq, Payload: payload, Hash: sent.env.Hash()})
	return nil
}

func (m Module) addTargets(ctx *simulator.Context, to messaging.ChainID, payload []byte, count uint32) error {
	targets, err := Targets(ctx.Store())
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		targets = append(targets, Target{To: to, Payload: payload})
	}
	return frame.Store(ctx.Store(), TargetsKey, targets)
}

type sendResult struct {
	env *messaging.Envelope
	err error
}

// send returns false if the channel is closed or full. Those are reported as
// events instead of failing the invocation.
func send(ctx *simulator.Context, to messaging.ChainID, method string, b *body) (sendResult, bool, error) {
	payload, err := frame.Encode(ModuleName, method, b)
	if err != nil {
		return sendResult{}, false, err
	}

	env, err := ctx.Send(to, payload)
	switch {
	case err == nil:
		return sendResult{env: env}, true, nil
	case errors.Is(err, errors.ChannelClosed), errors.Is(err, errors.ChannelFull):
		return sendResult{err: err}, false, nil
	default:
		return sendResult{}, false, err
	}
}

// Targets returns the chains pinged every round.
func Targets(s keyvalue.Store) ([]Target, error) {
	var targets []Target
	_, err := frame.Load(s, TargetsKey, &targets)
	return targets, err
}

// PendingPings returns the number of pings awaiting a pong.
func PendingPings(s keyvalue.Store) (int, error) {
	return frame.Count(s, PingsKey)
}

// PingCount returns the sequence number of the last ping.
func PingCount(s keyvalue.Store) (uint64, error) {
	var n uint64
	_, err := frame.Load(s, PingCountKey, &n)
	return n, err
}
