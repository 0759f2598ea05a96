// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"gitlab.com/accumulatenetwork/chainsim/config"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
)

// ChainPair is an unresolved sender:recipient pair of chain references.
type ChainPair struct {
	From, To string
}

func (p ChainPair) String() string { return p.From + ":" + p.To }

// Resolve resolves both ends of the pair against the network.
func (p ChainPair) Resolve(net *config.Network) (from, to messaging.ChainID, err error) {
	from, err = net.Resolve(p.From)
	if err != nil {
		return from, to, err
	}
	to, err = net.Resolve(p.To)
	return from, to, err
}

type ChainPairSliceFlag []ChainPair

var _ pflag.Value = (*ChainPairSliceFlag)(nil)

func (f ChainPairSliceFlag) Type() string { return "from:to" }

func (f ChainPairSliceFlag) String() string {
	var s []string
	for _, p := range f {
		s = append(s, p.String())
	}
	return strings.Join(s, ",")
}

func (f *ChainPairSliceFlag) Set(s string) error {
	for _, s := range strings.Split(s, ",") {
		parts := strings.Split(s, ":")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return errors.BadRequest.WithFormat("invalid chain pair %q, expected from:to", s)
		}
		*f = append(*f, ChainPair{parts[0], parts[1]})
	}
	return nil
}

type StorageFlag struct {
	Value *config.StorageType
}

var _ pflag.Value = StorageFlag{}

func (f StorageFlag) Type() string { return "storage" }

func (f StorageFlag) String() string {
	if f.Value == nil {
		return ""
	}
	return string(*f.Value)
}

func (f StorageFlag) Set(s string) error {
	switch v := config.StorageType(strings.ToLower(s)); v {
	case config.MemoryStorage, config.BadgerStorage, config.LevelDBStorage, config.BoltStorage:
		*f.Value = v
		return nil
	default:
		return fmt.Errorf("unknown storage %q", s)
	}
}
