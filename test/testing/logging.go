// Copyright 2023 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package testing

import (
	"io"
	"os"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gitlab.com/accumulatenetwork/chainsim/config"
	"gitlab.com/accumulatenetwork/chainsim/internal/logging"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
)

// LogEnv is the environment variable that overrides the log levels of tests,
// for example CHAINSIM_LOG="error;hrmp=trace".
const LogEnv = "CHAINSIM_LOG"

var DefaultLogLevels = config.LogLevel{}.
	Parse(config.TraceLogLevels).
	// SetModule("sim", "debug").
	// SetModule("badger", "info").
	String()

var tracing struct {
	once   sync.Once
	levels string
	err    error
}

// InitTracing resolves the log levels used by tests, from [LogEnv] or
// [DefaultLogLevels]. Only the first call reads the environment.
func InitTracing() (string, error) {
	tracing.once.Do(func() {
		s, ok := os.LookupEnv(LogEnv)
		if !ok || s == "" {
			s = DefaultLogLevels
		}
		tracing.levels, tracing.err = checkLevels(s)
	})
	return tracing.levels, tracing.err
}

func checkLevels(s string) (string, error) {
	level, _, err := logging.ParseLogLevel(s, io.Discard)
	if err != nil {
		return "", errors.BadRequest.WithFormat("invalid %s: %w", LogEnv, err)
	}
	_, err = zerolog.ParseLevel(level)
	if err != nil {
		return "", errors.BadRequest.WithFormat("invalid %s: %w", LogEnv, err)
	}
	return s, nil
}

// NewTestLogger returns a logger that writes to the test's log, with the log
// levels chosen by [InitTracing].
func NewTestLogger(t testing.TB) logging.Logger {
	t.Helper()
	levels, err := InitTracing()
	require.NoError(t, err)
	return logging.NewTestLogger(t, "plain", levels, false)
}
