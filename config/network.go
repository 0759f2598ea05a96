package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
)

type RouteKind string

const (
	// DirectRoute delivers a horizontal message straight to the recipient.
	DirectRoute RouteKind = "direct"

	// RelayRoute forwards a horizontal message through the relay chain,
	// which costs an extra round.
	RelayRoute RouteKind = "relay"
)

// Network declares the topology of a simulated network.
type Network struct {
	Name       string      `json:"name" toml:"name" mapstructure:"name" validate:"required"`
	Relay      Relay       `json:"relay" toml:"relay" mapstructure:"relay"`
	Parachains []Parachain `json:"parachains" toml:"parachains" mapstructure:"parachains" validate:"dive"`
	Channels   []Channel   `json:"channels" toml:"channels" mapstructure:"channels" validate:"dive"`
	Simulation Simulation  `json:"simulation" toml:"simulation" mapstructure:"simulation"`
}

type Relay struct {
	Name    string `json:"name" toml:"name" mapstructure:"name" validate:"required"`
	Runtime string `json:"runtime" toml:"runtime" mapstructure:"runtime" validate:"required"`
}

type Parachain struct {
	Name    string `json:"name" toml:"name" mapstructure:"name" validate:"required"`
	ID      uint32 `json:"id" toml:"id" mapstructure:"id" validate:"required"`
	Runtime string `json:"runtime" toml:"runtime" mapstructure:"runtime" validate:"required"`
}

// Channel declares a horizontal channel between two parachains. Downward and
// upward channels are implied for every parachain.
type Channel struct {
	From     string    `json:"from" toml:"from" mapstructure:"from" validate:"required"`
	To       string    `json:"to" toml:"to" mapstructure:"to" validate:"required"`
	Route    RouteKind `json:"route,omitempty" toml:"route,omitempty" mapstructure:"route" validate:"omitempty,oneof=direct relay"`
	Capacity int       `json:"capacity,omitempty" toml:"capacity,omitempty" mapstructure:"capacity" validate:"gte=0"`
}

type Simulation struct {
	// MaxDeliveryPerRound limits the number of envelopes delivered from a
	// single channel per round. Zero means unlimited.
	MaxDeliveryPerRound int         `json:"max-delivery-per-round,omitempty" toml:"max-delivery-per-round,omitempty" mapstructure:"max-delivery-per-round" validate:"gte=0"`
	Storage             StorageType `json:"storage,omitempty" toml:"storage,omitempty" mapstructure:"storage" validate:"omitempty,oneof=memory badger leveldb bolt"`
	LogLevel            string      `json:"log-level,omitempty" toml:"log-level,omitempty" mapstructure:"log-level"`
}

var validate = validator.New()

// Validate checks the declaration for structural errors, duplicate chains,
// and channels that reference undeclared chains.
func (n *Network) Validate() error {
	err := validate.Struct(n)
	if err != nil {
		return errors.BadRequest.WithFormat("invalid network %q: %w", n.Name, err)
	}

	names := map[string]bool{strings.ToLower(n.Relay.Name): true}
	ids := map[uint32]bool{}
	for _, p := range n.Parachains {
		name := strings.ToLower(p.Name)
		if names[name] {
			return errors.BadRequest.WithFormat("invalid network %q: duplicate chain name %q", n.Name, p.Name)
		}
		if ids[p.ID] {
			return errors.BadRequest.WithFormat("invalid network %q: duplicate parachain ID %d", n.Name, p.ID)
		}
		names[name] = true
		ids[p.ID] = true
	}

	type pair struct{ from, to messaging.ChainID }
	seen := map[pair]bool{}
	for _, c := range n.Channels {
		from, err := n.Resolve(c.From)
		if err != nil {
			return errors.BadRequest.WithFormat("invalid channel %s→%s: %w", c.From, c.To, err)
		}
		to, err := n.Resolve(c.To)
		if err != nil {
			return errors.BadRequest.WithFormat("invalid channel %s→%s: %w", c.From, c.To, err)
		}
		if !from.IsPara() || !to.IsPara() || from == to {
			return errors.BadRequest.WithFormat("invalid channel %s→%s: horizontal channels must connect two different parachains", c.From, c.To)
		}
		if seen[pair{from, to}] {
			return errors.BadRequest.WithFormat("invalid channel %s→%s: declared more than once", c.From, c.To)
		}
		seen[pair{from, to}] = true
	}
	return nil
}

// Resolve resolves a chain reference, which may be the name of the relay or
// of a parachain, or anything accepted by [messaging.ParseChainID]. Resolve
// fails if the chain is not declared.
func (n *Network) Resolve(s string) (messaging.ChainID, error) {
	if strings.EqualFold(s, n.Relay.Name) {
		return messaging.Relay(), nil
	}
	for _, p := range n.Parachains {
		if strings.EqualFold(s, p.Name) {
			return messaging.Para(messaging.ParaID(p.ID)), nil
		}
	}

	id, err := messaging.ParseChainID(s)
	if err != nil {
		return messaging.ChainID{}, errors.NotFound.WithFormat("chain %q is not declared", s)
	}
	if id.IsRelay() {
		return id, nil
	}
	for _, p := range n.Parachains {
		if messaging.ParaID(p.ID) == id.Para {
			return id, nil
		}
	}
	return messaging.ChainID{}, errors.NotFound.WithFormat("%v is not declared", id)
}

// NameOf returns the declared name of a chain.
func (n *Network) NameOf(id messaging.ChainID) string {
	if id.IsRelay() {
		return n.Relay.Name
	}
	for _, p := range n.Parachains {
		if messaging.ParaID(p.ID) == id.Para {
			return p.Name
		}
	}
	return id.String()
}

// RuntimeOf returns the name of the runtime a chain runs.
func (n *Network) RuntimeOf(id messaging.ChainID) (string, error) {
	if id.IsRelay() {
		return n.Relay.Runtime, nil
	}
	for _, p := range n.Parachains {
		if messaging.ParaID(p.ID) == id.Para {
			return p.Runtime, nil
		}
	}
	return "", errors.NotFound.WithFormat("%v is not declared", id)
}

func (n *Network) Copy() *Network {
	u := new(Network)
	*u = *n
	u.Parachains = append([]Parachain(nil), n.Parachains...)
	u.Channels = append([]Channel(nil), n.Channels...)
	return u
}
