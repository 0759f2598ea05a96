// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

// Package genesis builds the initial state of the reference runtimes.
package genesis

import (
	"crypto/ed25519"
	"encoding/hex"

	"gitlab.com/accumulatenetwork/chainsim/config"
	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
	"gitlab.com/accumulatenetwork/chainsim/test/runtimes/balances"
	"gitlab.com/accumulatenetwork/chainsim/test/runtimes/frame"
	"gitlab.com/accumulatenetwork/chainsim/test/runtimes/xcm"
	"gitlab.com/accumulatenetwork/chainsim/test/simulator"
	acctesting "gitlab.com/accumulatenetwork/chainsim/test/testing"
)

const (
	// RelayExistentialDeposit is the existential deposit of the relay chain.
	RelayExistentialDeposit uint64 = 10_000_000_000

	// ParaExistentialDeposit is the existential deposit of a parachain.
	ParaExistentialDeposit uint64 = 1_000_000_000
)

var (
	ParaIDKey       = keyvalue.NewKey("ParachainInfo", "ParachainId")
	InvulnerableKey = keyvalue.NewKey("CollatorSelection", "Invulnerables")
	BondKey         = keyvalue.NewKey("CollatorSelection", "CandidacyBond")
	SessionKeysKey  = keyvalue.NewKey("Session", "NextKeys")
)

// Config is the genesis configuration of a chain.
type Config struct {
	System            System
	Balances          Balances
	ParachainInfo     *ParachainInfo
	CollatorSelection *CollatorSelection
	Session           *Session
	Xcm               Xcm
}

type System struct {
	// Code is the runtime code artifact. It is required.
	Code []byte
}

type Balances struct {
	Balances map[messaging.AccountID]uint64
}

type ParachainInfo struct {
	ParachainID messaging.ParaID
}

type CollatorSelection struct {
	Invulnerables []messaging.AccountID
	CandidacyBond uint64
}

type Session struct {
	Keys []SessionKeys
}

// SessionKeys are the keys a validator uses during a session.
type SessionKeys struct {
	Account   messaging.AccountID
	Validator messaging.AccountID
	Aura      []byte
}

type Xcm struct {
	SafeVersion uint32
}

// Build returns the genesis entries of the configuration. A missing code
// artifact is a [errors.SetupFailed] error.
func (c *Config) Build() ([]keyvalue.Entry, error) {
	if len(c.System.Code) == 0 {
		return nil, errors.SetupFailed.With("runtime code artifact is missing")
	}

	var entries []keyvalue.Entry
	add := func(key keyvalue.Key, v interface{}) error {
		e, err := frame.Entry(key, v)
		if err != nil {
			return err
		}
		entries = append(entries, e)
		return nil
	}

	err := add(frame.CodeKey, c.System.Code)
	if err != nil {
		return nil, err
	}

	b, err := balances.Genesis(c.Balances.Balances)
	if err != nil {
		return nil, errors.UnknownError.WithFormat("balances: %w", err)
	}
	entries = append(entries, b...)

	if c.ParachainInfo != nil {
		err = add(ParaIDKey, uint32(c.ParachainInfo.ParachainID))
		if err != nil {
			return nil, err
		}
	}

	if c.CollatorSelection != nil {
		err = add(InvulnerableKey, c.CollatorSelection.Invulnerables)
		if err != nil {
			return nil, err
		}
		err = add(BondKey, c.CollatorSelection.CandidacyBond)
		if err != nil {
			return nil, err
		}
	}

	if c.Session != nil {
		for _, k := range c.Session.Keys {
			err = add(SessionKeysKey.Append(hex.EncodeToString(k.Account[:])), &k)
			if err != nil {
				return nil, err
			}
		}
	}

	x, err := xcm.Genesis(c.Xcm.SafeVersion)
	if err != nil {
		return nil, err
	}
	return append(entries, x...), nil
}

// WellKnownAccounts are the names of the accounts endowed at genesis.
var WellKnownAccounts = []string{"Alice", "Bob", "Charlie", "Dave", "Eve", "Ferdie"}

// Account returns the ID of a well-known account.
func Account(name string) messaging.AccountID {
	return acctesting.GenerateAccount(name)
}

// Invulnerables returns the collators and their aura keys.
func Invulnerables() []SessionKeys {
	var keys []SessionKeys
	for _, name := range []string{"Alice", "Bob"} {
		aura := acctesting.GenerateKey(name, "aura").Public().(ed25519.PublicKey)
		keys = append(keys, SessionKeys{Account: Account(name), Validator: Account(name), Aura: aura})
	}
	return keys
}

// InitBalances endows every well-known account with ed * 4096.
func InitBalances(ed uint64) map[messaging.AccountID]uint64 {
	b := map[messaging.AccountID]uint64{}
	for _, name := range WellKnownAccounts {
		b[Account(name)] = ed * 4096
	}
	return b
}

// Relay returns the genesis configuration of a relay chain.
func Relay(code []byte) *Config {
	return &Config{
		System:   System{Code: code},
		Balances: Balances{Balances: InitBalances(RelayExistentialDeposit)},
		Session:  &Session{Keys: Invulnerables()},
		Xcm:      Xcm{SafeVersion: xcm.CurrentVersion},
	}
}

// Para returns the genesis configuration of a parachain.
func Para(id messaging.ParaID, code []byte) *Config {
	keys := Invulnerables()
	invulnerables := make([]messaging.AccountID, len(keys))
	for i, k := range keys {
		invulnerables[i] = k.Account
	}

	return &Config{
		System:        System{Code: code},
		Balances:      Balances{Balances: InitBalances(ParaExistentialDeposit)},
		ParachainInfo: &ParachainInfo{ParachainID: id},
		CollatorSelection: &CollatorSelection{
			Invulnerables: invulnerables,
			CandidacyBond: ParaExistentialDeposit * 16,
		},
		Session: &Session{Keys: keys},
		Xcm:     Xcm{SafeVersion: xcm.CurrentVersion},
	}
}

// Snapshot returns a snapshot function that builds the genesis of each chain
// from the code artifact of its runtime.
func Snapshot(code map[string][]byte) simulator.SnapshotFunc {
	return func(chain messaging.ChainID, net *config.Network) ([]keyvalue.Entry, error) {
		runtime, err := net.RuntimeOf(chain)
		if err != nil {
			return nil, err
		}

		var cfg *Config
		if chain.IsRelay() {
			cfg = Relay(code[runtime])
		} else {
			cfg = Para(chain.Para, code[runtime])
		}

		entries, err := cfg.Build()
		if err != nil {
			return nil, errors.SetupFailed.WithFormat("%s runtime: %w", runtime, err)
		}
		return entries, nil
	}
}
