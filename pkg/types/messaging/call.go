// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package messaging

import "reflect"

// A Call is a request that a chain runtime executes. Each runtime module
// defines its own call types.
type Call interface {
	// Module is the name of the module that executes the call.
	Module() string
}

// An Event is emitted by a chain runtime. Each runtime module defines its own
// event types.
type Event interface {
	// Module is the name of the module that emitted the event.
	Module() string
}

// NameOf returns the qualified name of a call or event, for example
// "ping.PingSent".
func NameOf(v interface{ Module() string }) string {
	typ := reflect.TypeOf(v)
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	return v.Module() + "." + typ.Name()
}
