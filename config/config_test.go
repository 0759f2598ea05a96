package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
)

func testNetwork() *Network {
	return &Network{
		Name:  "polkadot-mock",
		Relay: Relay{Name: "Polkadot", Runtime: "polkadot"},
		Parachains: []Parachain{
			{Name: "ParaA", ID: 2000, Runtime: "ping"},
			{Name: "ParaB", ID: 2001, Runtime: "ping"},
		},
		Channels: []Channel{
			{From: "ParaA", To: "ParaB"},
			{From: "2001", To: "para(2000)", Route: RelayRoute, Capacity: 10},
		},
		Simulation: Simulation{MaxDeliveryPerRound: 5, Storage: BadgerStorage},
	}
}

func TestPersistence(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config", "network.toml")

	// Store
	cfg := testNetwork()
	require.NoError(t, Store(file, cfg))

	// Load
	lcfg, err := Load(file)
	require.NoError(t, err)

	// Should be equal
	require.Equal(t, cfg, lcfg)
}

func TestLoadYAML(t *testing.T) {
	file := filepath.Join(t.TempDir(), "network.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
name: kusama-mock
relay:
  name: Kusama
  runtime: kusama
`), 0600))

	cfg, err := Load(file)
	require.NoError(t, err)
	require.Equal(t, "Kusama", cfg.Relay.Name)
	require.Empty(t, cfg.Parachains)
}

func TestValidate(t *testing.T) {
	require.NoError(t, testNetwork().Validate())

	cases := map[string]func(n *Network){
		"missing name":      func(n *Network) { n.Name = "" },
		"missing runtime":   func(n *Network) { n.Parachains[0].Runtime = "" },
		"duplicate id":      func(n *Network) { n.Parachains[1].ID = 2000 },
		"duplicate name":    func(n *Network) { n.Parachains[1].Name = "polkadot" },
		"undeclared chain":  func(n *Network) { n.Channels[0].To = "2002" },
		"self channel":      func(n *Network) { n.Channels[0].To = "ParaA" },
		"relay channel":     func(n *Network) { n.Channels[0].To = "relay" },
		"duplicate channel": func(n *Network) { n.Channels[1] = n.Channels[0] },
		"bad route":         func(n *Network) { n.Channels[0].Route = "teleport" },
		"bad storage":       func(n *Network) { n.Simulation.Storage = "etcd" },
	}
	for name, modify := range cases {
		t.Run(name, func(t *testing.T) {
			n := testNetwork()
			modify(n)
			require.ErrorIs(t, n.Validate(), errors.BadRequest)
		})
	}
}

func TestResolve(t *testing.T) {
	n := testNetwork()
	for s, expect := range map[string]messaging.ChainID{
		"polkadot":   messaging.Relay(),
		"relay":      messaging.Relay(),
		"paraB":      messaging.Para(2001),
		"2000":       messaging.Para(2000),
		"para(2001)": messaging.Para(2001),
	} {
		id, err := n.Resolve(s)
		require.NoError(t, err, s)
		require.Equal(t, expect, id, s)
	}

	_, err := n.Resolve("3000")
	require.ErrorIs(t, err, errors.NotFound)
	require.Equal(t, "ParaB", n.NameOf(messaging.Para(2001)))
}

func TestLogLevel(t *testing.T) {
	l := LogLevel{}.Parse("error;xcm=trace")
	require.Equal(t, "error", l.Default)
	require.Equal(t, [][2]string{{"xcm", "trace"}}, l.Modules)
	require.Equal(t, "error;xcm=trace;hrmp=debug", l.SetModule("hrmp", "debug").String())
}
