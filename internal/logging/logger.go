// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package logging

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Logger is a key/value structured logger.
type Logger interface {
	Trace(msg string, keyVals ...interface{})
	Debug(msg string, keyVals ...interface{})
	Info(msg string, keyVals ...interface{})
	Error(msg string, keyVals ...interface{})
	With(keyVals ...interface{}) Logger
}

// ZeroLogger is a Logger implementation that passes messages to a Zerolog
// logger.
type ZeroLogger struct {
	Zerolog    zerolog.Logger
	StackTrace bool
}

// NewLogger is the default logger implementation. Level is the lowest level
// that will be logged, as returned by ParseLogLevel.
func NewLogger(zl zerolog.Logger, level string, trace bool) (Logger, error) {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %v", err)
	}

	zl = zl.Level(logLevel).With().Timestamp().Logger()
	return &ZeroLogger{zl, trace}, nil
}

func (l *ZeroLogger) Trace(msg string, keyVals ...interface{}) {
	l.Zerolog.Trace().Fields(getLogFields(keyVals...)).Msg(msg)
}

func (l *ZeroLogger) Debug(msg string, keyVals ...interface{}) {
	l.Zerolog.Debug().Fields(getLogFields(keyVals...)).Msg(msg)
}

func (l *ZeroLogger) Info(msg string, keyVals ...interface{}) {
	l.Zerolog.Info().Fields(getLogFields(keyVals...)).Msg(msg)
}

func (l *ZeroLogger) Error(msg string, keyVals ...interface{}) {
	e := l.Zerolog.Error()
	if l.StackTrace {
		e = e.Stack()
	}

	e.Fields(getLogFields(keyVals...)).Msg(msg)
}

func (l *ZeroLogger) With(keyVals ...interface{}) Logger {
	return &ZeroLogger{
		Zerolog:    l.Zerolog.With().Fields(getLogFields(keyVals...)).Logger(),
		StackTrace: l.StackTrace,
	}
}

func getLogFields(keyVals ...interface{}) map[string]interface{} {
	if len(keyVals)%2 != 0 {
		return nil
	}

	fields := make(map[string]interface{}, len(keyVals))
	for i := 0; i < len(keyVals); i += 2 {
		fields[fmt.Sprint(keyVals[i])] = keyVals[i+1]
	}

	return fields
}
