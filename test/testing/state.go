// Copyright 2023 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package testing

import (
	"crypto/ed25519"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
)

// GenerateKey deterministically generates a key from the seed.
func GenerateKey(seed ...interface{}) ed25519.PrivateKey {
	h := crypto.Keccak256([]byte(fmt.Sprint(seed...)))
	return ed25519.NewKeyFromSeed(h)
}

// AccountFor returns the account ID of a key.
func AccountFor(key ed25519.PrivateKey) messaging.AccountID {
	var id messaging.AccountID
	copy(id[:], key.Public().(ed25519.PublicKey))
	return id
}

// GenerateAccount deterministically generates an account ID from the seed.
func GenerateAccount(seed ...interface{}) messaging.AccountID {
	return AccountFor(GenerateKey(seed...))
}
