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
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	. "gitlab.com/accumulatenetwork/chainsim/internal/util/cmd"
	"gitlab.com/accumulatenetwork/chainsim/test/networks"
	"gitlab.com/accumulatenetwork/chainsim/test/runtimes/genesis"
)

var cmdGenesis = &cobra.Command{
	Use:   "genesis [preset or file] [chain]",
	Short: "Print the genesis state of a chain",
	Args:  cobra.ExactArgs(2),
	Run:   printGenesis,
}

func init() {
	cmd.AddCommand(cmdGenesis)
}

func printGenesis(_ *cobra.Command, args []string) {
	net := loadNetwork(args[0])
	id, err := net.Resolve(args[1])
	Check(err)
	runtime, err := net.RuntimeOf(id)
	Check(err)

	code := networks.Code()[runtime]
	var cfg *genesis.Config
	if id.IsRelay() {
		cfg = genesis.Relay(code)
	} else {
		cfg = genesis.Para(id.Para, code)
	}

	entries, err := cfg.Build()
	Checkf(err, "build genesis of %v", id)

	fmt.Printf("%s (%v) runs %s\n\n", net.NameOf(id), id, runtime)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Account", "ID", "Free"})
	for _, name := range genesis.WellKnownAccounts {
		acct := genesis.Account(name)
		table.Append([]string{name, acct.String(), humanize.Comma(int64(cfg.Balances.Balances[acct]))})
	}
	table.Render()

	var size int
	for _, e := range entries {
		size += len(e.Key) + len(e.Value)
	}
	fmt.Printf("\n%d entries, %s\n", len(entries), humanize.Bytes(uint64(size)))
}
