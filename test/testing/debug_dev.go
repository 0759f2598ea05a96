// Copyright 2022 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

//go:build !production
// +build !production

package testing

import (
	"gitlab.com/accumulatenetwork/chainsim/pkg/errors"
)

func EnableDebugFeatures() {
	errors.TrackLocation(true)
}

func DisableDebugFeatures() {
	errors.TrackLocation(false)
}
