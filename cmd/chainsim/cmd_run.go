// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gitlab.com/accumulatenetwork/chainsim/config"
	. "gitlab.com/accumulatenetwork/chainsim/internal/util/cmd"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
	"gitlab.com/accumulatenetwork/chainsim/test/networks"
	"gitlab.com/accumulatenetwork/chainsim/test/runtimes/ping"
	"gitlab.com/accumulatenetwork/chainsim/test/simulator"
)

var cmdRun = &cobra.Command{
	Use:   "run [preset or file]",
	Short: "Run a network for a number of rounds",
	Args:  cobra.ExactArgs(1),
	Run:   run,
}

var flagRun = struct {
	Rounds      int
	Ping        ChainPairSliceFlag
	Record      string
	Storage     config.StorageType
	MaxDelivery int
	Drain       bool
	Verbose     bool
}{}

func init() {
	cmd.AddCommand(cmdRun)
	cmdRun.Flags().IntVarP(&flagRun.Rounds, "rounds", "n", 10, "Number of rounds to run")
	cmdRun.Flags().Var(&flagRun.Ping, "ping", "Ping the second chain from the first every round, for example ParaA:ParaB (repeatable)")
	cmdRun.Flags().StringVar(&flagRun.Record, "record", "", "Write a YAML recording of every round to a file")
	cmdRun.Flags().Var(StorageFlag{&flagRun.Storage}, "storage", "Storage engine (memory, badger, leveldb, bolt)")
	cmdRun.Flags().IntVar(&flagRun.MaxDelivery, "max-delivery", -1, "Maximum envelopes delivered per channel per round, zero for unlimited (default from the network)")
	cmdRun.Flags().BoolVar(&flagRun.Drain, "drain", false, "Keep running until every channel is empty")
	cmdRun.Flags().BoolVarP(&flagRun.Verbose, "verbose", "v", false, "Print every event")
}

func run(_ *cobra.Command, args []string) {
	cfg := loadNetwork(args[0])
	if flagRun.Storage != "" {
		cfg.Simulation.Storage = flagRun.Storage
	}
	if flagRun.MaxDelivery >= 0 {
		cfg.Simulation.MaxDeliveryPerRound = flagRun.MaxDelivery
	}

	opts := []simulator.Option{simulator.WithLogger(newLogger(cfg))}
	if flagRun.Record != "" {
		f, err := os.Create(flagRun.Record)
		Checkf(err, "create recording")
		defer func() { Check(f.Close()) }()
		opts = append(opts, simulator.WithRecording(f))
	}

	net, err := networks.New(cfg, opts...)
	Check(err)
	defer func() { Check(net.Close()) }()

	for _, p := range flagRun.Ping {
		from, to, err := p.Resolve(cfg)
		Checkf(err, "ping %v", p)
		report(net.Execute(from, messaging.Root(), &ping.Start{To: to}))
	}

	for net.Round() < uint64(flagRun.Rounds) {
		report(net.Step())
	}

	if flagRun.Drain {
		// Pings scheduled every round keep the channels busy forever
		if len(flagRun.Ping) > 0 {
			Warnf("--drain with --ping will stop after %d additional rounds", flagRun.Rounds)
		}
		for i := 0; i < flagRun.Rounds && net.Pending() > 0; i++ {
			report(net.Step())
		}
	}

	if flagRun.Verbose {
		printEvents(net)
	}
	printChains(net)
	printChannels(net)
}

// report prints a failed call and exits on any other error.
func report(err error) {
	var callErr *simulator.CallError
	switch {
	case err == nil:
	case errors.As(err, &callErr):
		color.Red("✗ %v\n", callErr)
	default:
		Check(err)
	}
}

func printEvents(net *simulator.Network) {
	for _, id := range net.Chains() {
		node, err := net.Node(id)
		Check(err)
		entries, _ := node.EventsSince(0)
		for _, e := range entries {
			fmt.Printf("%s %s\n", color.CyanString("[%d] %s", e.Round, node.Name()), e.String())
		}
	}
	fmt.Println()
}

func printChains(net *simulator.Network) {
	hashes, err := net.StateHashes()
	Check(err)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Chain", "ID", "Runtime", "Events", "State"})
	cfg := net.Config()
	for _, id := range net.Chains() {
		node, err := net.Node(id)
		Check(err)
		runtime, err := cfg.RuntimeOf(id)
		Check(err)
		table.Append([]string{
			node.Name(),
			id.String(),
			runtime,
			humanize.Comma(int64(node.Checkpoint())),
			hashes[id].Short(),
		})
	}
	table.SetFooter([]string{"", "", "", "Round", humanize.Comma(int64(net.Round()))})
	table.Render()
}

func printChannels(net *simulator.Network) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Channel", "Route", "Sent", "Delivered", "Queued"})
	for _, ch := range net.Channels() {
		if ch.Enqueued() == 0 {
			continue
		}
		route := ch.Route()
		if route == "" {
			route = config.DirectRoute
		}
		table.Append([]string{
			ch.ID().String(),
			string(route),
			humanize.Comma(int64(ch.Enqueued())),
			humanize.Comma(int64(ch.Drained())),
			humanize.Comma(int64(ch.Len())),
		})
	}
	table.Render()
}
