// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package frame

import (
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
	"gitlab.com/accumulatenetwork/chainsim/pkg/types/messaging"
)

func EnsureRoot(origin messaging.Origin) error {
	if !origin.Root {
		return errors.Unauthorized.WithFormat("%v is not root", origin)
	}
	return nil
}

func EnsureSigned(origin messaging.Origin) (messaging.AccountID, error) {
	if origin.Root {
		return messaging.AccountID{}, errors.Unauthorized.With("root is not a signed origin")
	}
	return origin.Signer, nil
}
