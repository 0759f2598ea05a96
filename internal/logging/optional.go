// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package logging

// OptionalLogger is a Logger that does nothing if L is nil.
type OptionalLogger struct {
	L Logger
}

func (l OptionalLogger) Trace(msg string, keyVals ...interface{}) {
	if l.L == nil {
		return
	}
	l.L.Trace(msg, keyVals...)
}

func (l OptionalLogger) Debug(msg string, keyVals ...interface{}) {
	if l.L == nil {
		return
	}
	l.L.Debug(msg, keyVals...)
}

func (l OptionalLogger) Info(msg string, keyVals ...interface{}) {
	if l.L == nil {
		return
	}
	l.L.Info(msg, keyVals...)
}

func (l OptionalLogger) Error(msg string, keyVals ...interface{}) {
	if l.L == nil {
		return
	}
	l.L.Error(msg, keyVals...)
}

func (l OptionalLogger) With(keyVals ...interface{}) Logger {
	if l.L == nil {
		return l
	}
	return OptionalLogger{l.L.With(keyVals...)}
}

func (l *OptionalLogger) Set(ll Logger, keyVals ...interface{}) {
	if ll == nil {
		return
	}
	l.L = ll.With(keyVals...)
}
