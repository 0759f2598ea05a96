// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package simulator

import (
	"io"

	"gitlab.com/accumulatenetwork/chainsim/internal/core/events"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
	"gopkg.in/yaml.v3"
)

// RecordedRound is the YAML document written for each round.
type RecordedRound struct {
	Round  uint64              `yaml:"round"`
	Calls  []*RecordedCall     `yaml:"calls,omitempty"`
	Sent   []*RecordedEnvelope `yaml:"sent,omitempty"`
	Routed []*RecordedRoute    `yaml:"routed,omitempty"`
	Events []*RecordedEvent    `yaml:"events,omitempty"`
	State  map[string]string   `yaml:"state"`
}

type RecordedCall struct {
	Chain  messaging.ChainID `yaml:"chain"`
	Origin string            `yaml:"origin"`
	Call   string            `yaml:"call"`
	Error  string            `yaml:"error,omitempty"`
}

type RecordedEnvelope struct {
	Kind      string            `yaml:"kind"`
	Sender    messaging.ChainID `yaml:"sender"`
	Recipient messaging.ChainID `yaml:"recipient"`
	Sequence  uint64            `yaml:"sequence"`
	Hash      string            `yaml:"hash"`
}

type RecordedRoute struct {
	Recipient messaging.ChainID `yaml:"recipient"`
	Forwarded bool              `yaml:"forwarded,omitempty"`
	Envelopes []string          `yaml:"envelopes"`
}

type RecordedEvent struct {
	Chain  messaging.ChainID `yaml:"chain"`
	Index  int               `yaml:"index"`
	Name   string            `yaml:"name"`
	Fields interface{}       `yaml:"fields,omitempty"`
}

type recorder struct {
	net     *Network
	enc     *yaml.Encoder
	cursors map[messaging.ChainID]int
	current *RecordedRound
	err     error
}

func newRecorder(n *Network, w io.Writer) *recorder {
	r := new(recorder)
	r.net = n
	r.enc = yaml.NewEncoder(w)
	r.enc.SetIndent(2)
	r.cursors = map[messaging.ChainID]int{}
	return r
}

func (r *recorder) subscribe(bus *events.Bus) {
	events.SubscribeSync(bus, r.willBeginRound)
	events.SubscribeSync(bus, r.didExecuteCall)
	events.SubscribeSync(bus, r.didSendEnvelopes)
	events.SubscribeSync(bus, r.didRouteEnvelopes)
	events.SubscribeSync(bus, r.didCommitRound)
}

func (r *recorder) willBeginRound(e events.WillBeginRound) {
	r.current = &RecordedRound{Round: e.Round}
}

func (r *recorder) didExecuteCall(e events.DidExecuteCall) {
	c := &RecordedCall{Chain: e.Chain, Origin: e.Origin.String(), Call: e.Call}
	if e.Err != nil {
		c.Error = e.Err.Error()
	}
	r.current.Calls = append(r.current.Calls, c)
}

func (r *recorder) didSendEnvelopes(e events.DidSendEnvelopes) {
	for _, env := range e.Envelopes {
		r.current.Sent = append(r.current.Sent, &RecordedEnvelope{
			Kind:      env.Kind.String(),
			Sender:    env.Sender,
			Recipient: env.Recipient,
			Sequence:  env.Sequence,
			Hash:      env.Hash().String(),
		})
	}
}

func (r *recorder) didRouteEnvelopes(e events.DidRouteEnvelopes) {
	route := &RecordedRoute{Recipient: e.Recipient, Forwarded: e.Forwarded}
	for _, env := range e.Envelopes {
		route.Envelopes = append(route.Envelopes, env.Hash().String())
	}
	r.current.Routed = append(r.current.Routed, route)
}

func (r *recorder) didCommitRound(e events.DidCommitRound) {
	if r.err != nil {
		return
	}

	r.current.State = map[string]string{}
	for _, id := range r.net.chainIDs {
		node := r.net.nodes[id]
		entries, cursor := node.EventsSince(r.cursors[id])
		r.cursors[id] = cursor
		for _, entry := range entries {
			r.current.Events = append(r.current.Events, &RecordedEvent{
				Chain:  entry.Chain,
				Index:  entry.Index,
				Name:   messaging.NameOf(entry.Event),
				Fields: entry.Event,
			})
		}

		h, err := node.StateHash()
		if err != nil {
			r.err = err
			return
		}
		r.current.State[id.String()] = h.String()
	}

	err := r.enc.Encode(r.current)
	if err != nil {
		r.err = errors.EncodingError.WithFormat("encode round %d: %w", e.Round, err)
	}
}

// ReadRecording decodes every round of a recording.
func ReadRecording(rd io.Reader) ([]*RecordedRound, error) {
	dec := yaml.NewDecoder(rd)
	var rounds []*RecordedRound
	for {
		r := new(RecordedRound)
		err := dec.Decode(r)
		switch {
		case err == nil:
			rounds = append(rounds, r)
		case errors.Is(err, io.EOF):
			return rounds, nil
		default:
			return nil, errors.EncodingError.WithFormat("decode round %d: %w", len(rounds)+1, err)
		}
	}
}
