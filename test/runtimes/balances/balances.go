// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package balances

import (
	"bytes"
	"encoding/hex"

	"gitlab.com/accumulatenetwork/chainsim/pkg/database/keyvalue"
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
	"gitlab.com/accumulatenetwork/chainsim/test/runtimes/frame"
	"gitlab.com/accumulatenetwork/chainsim/test/simulator"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const ModuleName = "balances"

// TotalIssuanceKey stores the sum of every balance.
var TotalIssuanceKey = keyvalue.NewKey("Balances", "TotalIssuance")

// AccountKey returns the key of an account's free balance.
func AccountKey(who messaging.AccountID) keyvalue.Key {
	return keyvalue.NewKey("Balances", "Account", hex.EncodeToString(who[:]))
}

// Module holds account balances.
type Module struct{}

// Transfer moves funds from the signer to another account.
type Transfer struct {
	To     messaging.AccountID
	Amount uint64
}

// ForceSetBalance sets the free balance of an account. It requires root.
type ForceSetBalance struct {
	Who  messaging.AccountID
	Free uint64
}

type Transferred struct {
	From   messaging.AccountID
	To     messaging.AccountID
	Amount uint64
}

type BalanceSet struct {
	Who  messaging.AccountID
	Free uint64
}

func (*Transfer) Module() string        { return ModuleName }
func (*ForceSetBalance) Module() string { return ModuleName }
func (*Transferred) Module() string     { return ModuleName }
func (*BalanceSet) Module() string      { return ModuleName }

func (Module) Name() string { return ModuleName }

func (Module) Execute(ctx *simulator.Context, origin messaging.Origin, call messaging.Call) error {
	switch call := call.(type) {
	case *Transfer:
		from, err := frame.EnsureSigned(origin)
		if err != nil {
			return err
		}
		return transfer(ctx, from, call.To, call.Amount)

	case *ForceSetBalance:
		err := frame.EnsureRoot(origin)
		if err != nil {
			return err
		}
		return setBalance(ctx, call.Who, call.Free)

	default:
		return errors.BadRequest.WithFormat("unknown call %s", messaging.NameOf(call))
	}
}

// Free returns the free balance of an account.
func Free(s keyvalue.Store, who messaging.AccountID) (uint64, error) {
	var v uint64
	_, err := frame.Load(s, AccountKey(who), &v)
	return v, err
}

// TotalIssuance returns the sum of every balance.
func TotalIssuance(s keyvalue.Store) (uint64, error) {
	var v uint64
	_, err := frame.Load(s, TotalIssuanceKey, &v)
	return v, err
}

func transfer(ctx *simulator.Context, from, to messaging.AccountID, amount uint64) error {
	s := ctx.Store()
	a, err := Free(s, from)
	if err != nil {
		return err
	}
	if a < amount {
		return errors.BadRequest.WithFormat("insufficient balance: %v has %d, needs %d", from, a, amount)
	}
	if from == to {
		ctx.Emit(&Transferred{From: from, To: to, Amount: amount})
		return nil
	}

	b, err := Free(s, to)
	if err != nil {
		return err
	}
	if b+amount < b {
		return errors.BadRequest.WithFormat("balance of %v would overflow", to)
	}

	err = frame.Store(s, AccountKey(from), a-amount)
	if err != nil {
		return err
	}
	err = frame.Store(s, AccountKey(to), b+amount)
	if err != nil {
		return err
	}

	ctx.Logger(ModuleName).Debug("Transfer", "from", from, "to", to, "amount", amount)
	ctx.Emit(&Transferred{From: from, To: to, Amount: amount})
	return nil
}

func setBalance(ctx *simulator.Context, who messaging.AccountID, free uint64) error {
	s := ctx.Store()
	old, err := Free(s, who)
	if err != nil {
		return err
	}
	total, err := TotalIssuance(s)
	if err != nil {
		return err
	}

	total = total - old + free
	err = frame.Store(s, TotalIssuanceKey, total)
	if err != nil {
		return err
	}
	err = frame.Store(s, AccountKey(who), free)
	if err != nil {
		return err
	}

	ctx.Emit(&BalanceSet{Who: who, Free: free})
	return nil
}

// Genesis returns the genesis entries for the given balances.
func Genesis(balances map[messaging.AccountID]uint64) ([]keyvalue.Entry, error) {
	accounts := maps.Keys(balances)
	slices.SortFunc(accounts, func(a, b messaging.AccountID) int { return bytes.Compare(a[:], b[:]) })

	var total uint64
	var entries []keyvalue.Entry
	for _, who := range accounts {
		amount := balances[who]
		if total+amount < total {
			return nil, errors.BadRequest.With("total issuance overflows")
		}
		total += amount
		e, err := frame.Entry(AccountKey(who), amount)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	e, err := frame.Entry(TotalIssuanceKey, total)
	if err != nil {
		return nil, err
	}
	return append(entries, e), nil
}
