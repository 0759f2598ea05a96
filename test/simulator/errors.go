// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package simulator

import (
	"fmt"
	"strings"

	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
)

// CallError is returned when a runtime rejects an invocation. The chain's
// state, event log, and channels are left as they were.
type CallError struct {
	Chain  messaging.ChainID
	Round  uint64
	Call   string
	Reason string

	// Cause is the error returned by the runtime.
	Cause error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s on %v failed in round %d: %s", e.Call, e.Chain, e.Round, e.Reason)
}

// Unwrap returns [errors.CallFailed].
func (e *CallError) Unwrap() error { return errors.CallFailed }

// RoutingError is returned when the routing phase of a round is halted.
// Recipients listed in Delivered received their envelopes; everything else
// remains queued.
type RoutingError struct {
	Round     uint64
	Recipient messaging.ChainID
	Delivered []messaging.ChainID
	Cause     error
}

func (e *RoutingError) Error() string {
	var delivered []string
	for _, id := range e.Delivered {
		delivered = append(delivered, id.String())
	}
	return fmt.Sprintf("routing to %v failed in round %d (delivered to [%s]): %v",
		e.Recipient, e.Round, strings.Join(delivered, ", "), e.Cause)
}

// Unwrap returns [errors.RoutingFailed] and the cause.
func (e *RoutingError) Unwrap() []error { return []error{errors.RoutingFailed, e.Cause} }
