// Copyright 2025 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package cmdutil

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

func Fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func Check(err error) {
	if err != nil {
		Fatalf("%v", err)
	}
}

func Checkf(err error, format string, otherArgs ...interface{}) {
	if err != nil {
		Fatalf(format+": %v", append(otherArgs, err)...)
	}
}

// Warnf prints a warning to stderr, in red unless color is disabled.
func Warnf(format string, args ...interface{}) {
	_, _ = color.New(color.FgRed).Fprintf(os.Stderr, "WARNING: "+format+"\n", args...)
}
