// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gitlab.com/accumulatenetwork/chainsim/config"
	. "gitlab.com/accumulatenetwork/chainsim/internal/util/cmd"
	"gitlab.com/accumulatenetwork/chainsim/test/networks"
)

var cmdNetworks = &cobra.Command{
	Use:   "networks",
	Short: "List the preset networks",
	Args:  cobra.NoArgs,
	Run:   listNetworks,
}

var cmdInit = &cobra.Command{
	Use:   "init [preset] [file]",
	Short: "Write a preset network declaration to a file",
	Args:  cobra.ExactArgs(2),
	Run:   initNetwork,
}

func init() {
	cmd.AddCommand(cmdNetworks, cmdInit)
}

func listNetworks(*cobra.Command, []string) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Preset", "Relay", "Parachains", "Channels"})
	table.SetAutoWrapText(false)

	for _, name := range networks.Presets() {
		net, err := networks.Preset(name)
		Check(err)
		table.Append([]string{
			name,
			fmt.Sprintf("%s (%s)", net.Relay.Name, net.Relay.Runtime),
			describeParachains(net),
			describeChannels(net),
		})
	}
	table.Render()
}

func describeParachains(net *config.Network) string {
	var s []string
	for _, p := range net.Parachains {
		s = append(s, fmt.Sprintf("%s #%d (%s)", p.Name, p.ID, p.Runtime))
	}
	return strings.Join(s, ", ")
}

func describeChannels(net *config.Network) string {
	var s []string
	for _, c := range net.Channels {
		str := c.From + "→" + c.To
		if c.Route == config.RelayRoute {
			str += " via relay"
		}
		s = append(s, str)
	}
	return strings.Join(s, ", ")
}

func initNetwork(_ *cobra.Command, args []string) {
	net, err := networks.Preset(args[0])
	Check(err)
	Checkf(config.Store(args[1], net), "store network")
	fmt.Printf("Wrote %s to %s\n", net.Name, args[1])
}
