// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

// Package networks declares preset networks built from the reference
// runtimes.
package networks

import (
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"gitlab.com/accumulatenetwork/chainsim/config"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
	"gitlab.com/accumulatenetwork/chainsim/test/runtimes/balances"
	"gitlab.com/accumulatenetwork/chainsim/test/runtimes/frame"
	"gitlab.com/accumulatenetwork/chainsim/test/runtimes/genesis"
	"gitlab.com/accumulatenetwork/chainsim/test/runtimes/ping"
	"gitlab.com/accumulatenetwork/chainsim/test/runtimes/xcm"
	"gitlab.com/accumulatenetwork/chainsim/test/simulator"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	ParaA messaging.ParaID = 2000
	ParaB messaging.ParaID = 2001
)

var runtimes = map[string]func(messaging.ChainID) []frame.Module{
	"polkadot": relayModules,
	"kusama":   relayModules,
	"rococo":   relayModules,
	"para-a":   paraModules,
	"para-b":   paraModules,
}

func relayModules(messaging.ChainID) []frame.Module {
	return []frame.Module{balances.Module{}, xcm.Module{}}
}

func paraModules(messaging.ChainID) []frame.Module {
	return []frame.Module{balances.Module{}, xcm.Module{}, ping.Module{}}
}

// Runtimes returns the names of the reference runtimes.
func Runtimes() []string {
	names := maps.Keys(runtimes)
	slices.Sort(names)
	return names
}

// Code returns a stand-in code artifact for every reference runtime.
func Code() map[string][]byte {
	code := map[string][]byte{}
	for name := range runtimes {
		code[name] = crypto.Keccak256([]byte("runtime:" + name))
	}
	return code
}

// Options returns the options needed to simulate the network with the
// reference runtimes and genesis.
func Options(net *config.Network) []simulator.Option {
	opts := []simulator.Option{
		simulator.WithNetwork(net),
		simulator.WithSnapshot(genesis.Snapshot(Code())),
	}
	for _, name := range Runtimes() {
		opts = append(opts, simulator.WithRuntime(name, frame.Func(runtimes[name])))
	}
	return opts
}

// New simulates the network with the reference runtimes.
func New(net *config.Network, opts ...simulator.Option) (*simulator.Network, error) {
	return simulator.New(append(Options(net), opts...)...)
}

// PolkadotMockNet is a Polkadot relay chain with two parachains connected in
// both directions.
func PolkadotMockNet() *config.Network {
	return &config.Network{
		Name:  "PolkadotMockNet",
		Relay: config.Relay{Name: "Polkadot", Runtime: "polkadot"},
		Parachains: []config.Parachain{
			{Name: "ParaA", ID: uint32(ParaA), Runtime: "para-a"},
			{Name: "ParaB", ID: uint32(ParaB), Runtime: "para-b"},
		},
		Channels: []config.Channel{
			{From: "ParaA", To: "ParaB"},
			{From: "ParaB", To: "ParaA"},
		},
	}
}

// KusamaMockNet is a Kusama relay chain with no parachains.
func KusamaMockNet() *config.Network {
	return &config.Network{
		Name:  "KusamaMockNet",
		Relay: config.Relay{Name: "Kusama", Runtime: "kusama"},
	}
}

// RococoMockNet is a Rococo relay chain with no parachains.
func RococoMockNet() *config.Network {
	return &config.Network{
		Name:  "RococoMockNet",
		Relay: config.Relay{Name: "Rococo", Runtime: "rococo"},
	}
}

var presets = map[string]func() *config.Network{
	"polkadot": PolkadotMockNet,
	"kusama":   KusamaMockNet,
	"rococo":   RococoMockNet,
}

// Presets returns the names of the preset networks.
func Presets() []string {
	names := maps.Keys(presets)
	slices.Sort(names)
	return names
}

// Preset returns the named preset network. Names are case-insensitive and
// may include the MockNet suffix.
func Preset(name string) (*config.Network, error) {
	name = strings.TrimSuffix(strings.ToLower(name), "mocknet")
	fn, ok := presets[name]
	if !ok {
		return nil, errors.NotFound.WithFormat("no preset network named %q", name)
	}
	return fn(), nil
}
