// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package logging

import (
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// TestLogger writes log lines to a test's log.
type TestLogger struct {
	Test testing.TB
}

var _ io.Writer = (*TestLogger)(nil)

func (l *TestLogger) Write(b []byte) (int, error) {
	s := string(b)
	if strings.HasSuffix(s, "\n") {
		s = s[:len(s)-1]
	}
	l.Test.Log(s)
	return len(b), nil
}

// NewTestLogger returns a logger that writes to the test's log, filtered by
// the given log level string.
func NewTestLogger(t testing.TB, format, levels string, trace bool) Logger {
	var w io.Writer = &TestLogger{Test: t}
	switch strings.ToLower(format) {
	case LogFormatPlain, LogFormatText:
		cw := newConsoleWriter(w)
		cw.NoColor = true
		w = cw

	case LogFormatJSON:

	default:
		t.Fatalf("Unsupported log format: %s", format)
	}

	level, w, err := ParseLogLevel(levels, w)
	if err != nil {
		t.Fatalf("Invalid log levels %q: %v", levels, err)
	}

	logger, err := NewLogger(zerolog.New(w), level, trace)
	if err != nil {
		t.Fatalf("Create logger: %v", err)
	}
	return logger
}
