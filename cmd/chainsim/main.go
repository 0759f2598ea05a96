// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/accumulatenetwork/chainsim/config"
	"gitlab.com/accumulatenetwork/chainsim/internal/logging"
	. "gitlab.com/accumulatenetwork/chainsim/internal/util/cmd"
	"gitlab.com/accumulatenetwork/chainsim/test/networks"
)

func main() {
	_ = cmd.Execute()
}

var cmd = &cobra.Command{
	Use:   "chainsim",
	Short: "Deterministic relay chain and parachain emulator",
}

var flag = struct {
	LogLevel  string
	LogFormat string
}{}

func init() {
	cmd.PersistentFlags().StringVar(&flag.LogLevel, "log-level", "", "Log levels, for example error;xcm=debug (default from the network or "+config.DefaultLogLevels+")")
	cmd.PersistentFlags().StringVar(&flag.LogFormat, "log-format", "plain", "Log format (plain, json)")
}

// loadNetwork resolves the argument as a preset name or a declaration file.
func loadNetwork(arg string) *config.Network {
	net, err := networks.Preset(arg)
	if err == nil {
		return net
	}

	_, statErr := os.Stat(arg)
	if statErr != nil {
		Fatalf("%q is neither a preset (%v) nor a network file", arg, networks.Presets())
	}

	net, err = config.Load(arg)
	Checkf(err, "load network")
	return net
}

func newLogger(net *config.Network) logging.Logger {
	levels := flag.LogLevel
	if levels == "" {
		levels = net.Simulation.LogLevel
	}
	if levels == "" {
		levels = config.DefaultLogLevels
	}

	w, err := logging.NewConsoleWriter(flag.LogFormat)
	Checkf(err, "log writer")
	level, w, err := logging.ParseLogLevel(levels, w)
	Checkf(err, "log level")
	logger, err := logging.NewLogger(zerolog.New(w), level, false)
	Checkf(err, "logger")
	return logger
}
