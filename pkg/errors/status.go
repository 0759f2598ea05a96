// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package errors

import "fmt"

// Status is a request status code.
type Status uint64

const (
	// OK means the request completed successfully.
	OK Status = 200

	// BadRequest means the request was malformed or invalid.
	BadRequest Status = 400

	// Unauthorized means the origin of a call is not allowed to make it.
	Unauthorized Status = 401

	// NotFound means a record could not be found.
	NotFound Status = 404

	// CallFailed means a chain runtime rejected a call.
	CallFailed Status = 420

	// ChannelClosed means a message channel does not exist or has been torn
	// down.
	ChannelClosed Status = 421

	// ChannelFull means a bounded message channel is at capacity.
	ChannelFull Status = 422

	// AssertionFailed means an expected event sequence was not observed.
	AssertionFailed Status = 423

	// InternalError means an internal error occurred.
	InternalError Status = 500

	// UnknownError means an unknown error occurred.
	UnknownError Status = 501

	// EncodingError means encoding or decoding failed.
	EncodingError Status = 502

	// SetupFailed means a network could not be constructed.
	SetupFailed Status = 503

	// RoutingFailed means the routing phase of a round could not complete.
	RoutingFailed Status = 504
)

var statusNames = map[Status]string{
	OK:              "ok",
	BadRequest:      "bad request",
	Unauthorized:    "unauthorized",
	NotFound:        "not found",
	CallFailed:      "call failed",
	ChannelClosed:   "channel closed",
	ChannelFull:     "channel full",
	AssertionFailed: "assertion failed",
	InternalError:   "internal error",
	UnknownError:    "unknown error",
	EncodingError:   "encoding error",
	SetupFailed:     "setup failed",
	RoutingFailed:   "routing failed",
}

// String returns the name of the status.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status %d", uint64(s))
}

// Success returns true if the status represents success.
func (s Status) Success() bool { return s < 300 }

// IsKnownError returns true if the status is non-zero and not UnknownError.
func (s Status) IsKnownError() bool { return s != 0 && s != UnknownError }

// IsClientError returns true if the status is a client error.
func (s Status) IsClientError() bool { return s >= 400 && s < 500 }

// IsServerError returns true if the status is a server error.
func (s Status) IsServerError() bool { return s >= 500 }

// Error implements error.
func (s Status) Error() string { return s.String() }

// Skip skips N frames when locating the call site.
func (s Status) Skip(n int) Factory {
	return Factory{Skip: n, Code: s}
}

func (s Status) Wrap(err error) error {
	return s.Skip(1).Wrap(err)
}

func (s Status) With(v ...interface{}) *Error {
	return s.Skip(1).With(v...)
}

func (s Status) WithFormat(format string, args ...interface{}) *Error {
	return s.Skip(1).WithFormat(format, args...)
}

func (s Status) WithCauseAndFormat(cause error, format string, args ...interface{}) *Error {
	return s.Skip(1).WithCauseAndFormat(cause, format, args...)
}
