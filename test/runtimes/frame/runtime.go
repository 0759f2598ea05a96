// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

// Package frame is a small module-based chain runtime. Calls are dispatched
// to modules by name, and inbound envelopes carry a [Message] addressed to a
// module.
package frame

import (
	"gitlab.com/accumulatenetwork/chainsim/config"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
	"gitlab.com/accumulatenetwork/chainsim/test/simulator"
)

// A Module is a named unit of runtime logic.
type Module interface {
	Name() string
}

// A CallHandler executes the module's calls.
type CallHandler interface {
	Module
	Execute(ctx *simulator.Context, origin messaging.Origin, call messaging.Call) error
}

// A RoundHook runs at the start of every round.
type RoundHook interface {
	Module
	OnRoundStart(ctx *simulator.Context) error
}

// A MessageHandler handles messages addressed to the module.
type MessageHandler interface {
	Module
	HandleMessage(ctx *simulator.Context, env *messaging.Envelope, msg *Message) error
}

// Runtime dispatches to its modules. The system module is always present and
// runs first.
type Runtime struct {
	modules map[string]Module
	order   []Module
}

var _ simulator.ChainRuntime = (*Runtime)(nil)

// New returns a runtime composed of the system module and the given modules.
func New(modules ...Module) (*Runtime, error) {
	r := new(Runtime)
	r.modules = map[string]Module{}
	for _, m := range append([]Module{System{}}, modules...) {
		if _, ok := r.modules[m.Name()]; ok {
			return nil, errors.BadRequest.WithFormat("duplicate module %q", m.Name())
		}
		r.modules[m.Name()] = m
		r.order = append(r.order, m)
	}
	return r, nil
}

// Func returns a [simulator.RuntimeFunc] that builds a runtime from the
// modules returned by fn.
func Func(fn func(messaging.ChainID) []Module) simulator.RuntimeFunc {
	return func(chain messaging.ChainID, _ *config.Network) (simulator.ChainRuntime, error) {
		return New(fn(chain)...)
	}
}

// Module returns the named module.
func (r *Runtime) Module(name string) (Module, bool) {
	m, ok := r.modules[name]
	return m, ok
}

func (r *Runtime) Execute(ctx *simulator.Context, origin messaging.Origin, call messaging.Call) error {
	m, ok := r.modules[call.Module()].(CallHandler)
	if !ok {
		return errors.NotFound.WithFormat("no module can execute %s", messaging.NameOf(call))
	}
	return m.Execute(ctx, origin, call)
}

func (r *Runtime) OnRoundStart(ctx *simulator.Context) error {
	for _, m := range r.order {
		h, ok := m.(RoundHook)
		if !ok {
			continue
		}
		err := h.OnRoundStart(ctx)
		if err != nil {
			return errors.UnknownError.WithFormat("%s: %w", m.Name(), err)
		}
	}
	return nil
}

// DeliverInbound handles each envelope in its own nested context. A message
// that cannot be decoded or routed is dropped, and a message whose handler
// fails is discarded along with everything the handler did. Either way the
// system module records what happened and delivery continues.
func (r *Runtime) DeliverInbound(ctx *simulator.Context, envelopes []*messaging.Envelope) error {
	log := ctx.Logger("xcm")
	for _, env := range envelopes {
		msg, err := Decode(env.Payload)
		if err != nil {
			log.Debug("Dropped undecodable message", "envelope", env.String(), "error", err)
			ctx.Emit(&MessageDropped{From: env.Sender, Sequence: env.Sequence, Reason: err.Error()})
			continue
		}

		h, ok := r.modules[msg.Module].(MessageHandler)
		if !ok {
			log.Debug("Dropped unroutable message", "envelope", env.String(), "module", msg.Module)
			ctx.Emit(&MessageDropped{From: env.Sender, Sequence: env.Sequence, Reason: "no handler for " + msg.Module})
			continue
		}

		err = ctx.Nested(func(ctx *simulator.Context) error {
			return h.HandleMessage(ctx, env, msg)
		})
		if err != nil {
			log.Info("Message failed", "envelope", env.String(), "method", msg.String(), "error", err)
			ctx.Emit(&MessageFailed{From: env.Sender, Sequence: env.Sequence, Method: msg.String(), Error: err.Error()})
			continue
		}
		log.Trace("Processed message", "envelope", env.String(), "method", msg.String())
	}
	return nil
}
