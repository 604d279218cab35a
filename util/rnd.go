// This file is part of ratnet, a decentralised overlay router.
//
// SPDX-License-Identifier: AGPL3.0-or-later

package util

import "crypto/rand"

// RndArray fills b with cryptographically random bytes, backing
// RandomIdentity.
func RndArray(b []byte) {
	if _, err := rand.Read(b); err != nil {
		// crypto/rand.Read only fails if the OS entropy source is
		// broken; there is nothing a caller could do to recover, so
		// this mirrors rand.Read's own documented panic-on-failure
		// behaviour rather than returning a half-filled buffer.
		panic(err)
	}
}
