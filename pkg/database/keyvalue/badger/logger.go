// Copyright 2025 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package badger

import (
	"fmt"
	"strings"

	"gitlab.com/accumulatenetwork/chainsim/internal/logging"
)

type logger struct {
	l *logging.OptionalLogger
}

func (l logger) format(format string, args ...interface{}) string {
	s := fmt.Sprintf(format, args...)
	return strings.TrimRight(s, "\n")
}

func (l logger) Errorf(format string, args ...interface{}) {
	l.l.Error(l.format(format, args...))
}

// Badger's warnings are logged at info.
func (l logger) Warningf(format string, args ...interface{}) {
	l.l.Info(l.format(format, args...))
}

func (l logger) Infof(format string, args ...interface{}) {
	l.l.Debug(l.format(format, args...))
}

func (l logger) Debugf(format string, args ...interface{}) {
	l.l.Trace(l.format(format, args...))
}
