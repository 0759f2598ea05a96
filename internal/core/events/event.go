package events

import (
	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
)

type Event interface {
	isEvent()
}

func (WillBeginRound) isEvent()    {}
func (DidExecuteCall) isEvent()    {}
func (DidSendEnvelopes) isEvent()  {}
func (DidRouteEnvelopes) isEvent() {}
func (DidCommitRound) isEvent()    {}

type WillBeginRound struct {
	Round uint64
}

// DidExecuteCall is published after a call is dispatched to a chain. Err is
// set if the call failed and its effects were discarded.
type DidExecuteCall struct {
	Round  uint64
	Chain  messaging.ChainID
	Origin messaging.Origin
	Call   string
	Err    error
}

// DidSendEnvelopes is published when a chain's outbound envelopes are
// enqueued.
type DidSendEnvelopes struct {
	Round     uint64
	Chain     messaging.ChainID
	Envelopes []*messaging.Envelope
}

// DidRouteEnvelopes is published when envelopes are delivered to a recipient
// or forwarded through the relay chain.
type DidRouteEnvelopes struct {
	Round     uint64
	Recipient messaging.ChainID
	Envelopes []*messaging.Envelope
	Forwarded bool
}

type DidCommitRound struct {
	Round     uint64
	Delivered int
	Pending   int
}
