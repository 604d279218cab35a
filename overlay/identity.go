// This file is part of ratnet, a decentralised overlay router.
//
// ratnet is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License,
// or (at your option) any later version.
//
// ratnet is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.
//
// SPDX-License-Identifier: AGPL3.0-or-later

// Package overlay holds the wire-level data model shared by every
// subsystem of the router: identities, frames, sequences and messages.
package overlay

import (
	"encoding/hex"

	"ratnet/util"
)

// IdentitySize is the width of an Identity in bytes (256 bits).
const IdentitySize = 32

// Identity is an opaque 256-bit value used uniformly for node addresses,
// message ids and sequence ids. Equality is raw-byte comparison.
type Identity [IdentitySize]byte

// ZeroIdentity is the all-zero identity, never assigned to a real node
// or message and used as a "no value" sentinel.
var ZeroIdentity Identity

// RandomIdentity returns a new, uniformly random identity.
func RandomIdentity() (id Identity) {
	util.RndArray(id[:])
	return
}

// IdentityFromBytes copies (and left-pads/truncates, see util.CopyBlock)
// a byte slice into an Identity.
func IdentityFromBytes(b []byte) (id Identity) {
	util.CopyBlock(id[:], b)
	return
}

// Bytes returns the raw byte representation of the identity.
func (id Identity) Bytes() []byte {
	return id[:]
}

// IsZero reports whether the identity is the zero value.
func (id Identity) IsZero() bool {
	return util.IsNull(id[:])
}

// Equal performs raw-byte comparison of two identities.
func (id Identity) Equal(other Identity) bool {
	return id == other
}

// String returns a Crockford base32 encoding of the identity, a
// human-readable notation convenient for logs and peer identities.
func (id Identity) String() string {
	return util.EncodeBinaryToString(id[:])
}

// IdentityFromString parses the base32 notation produced by String,
// the inverse used when an identity is typed in rather than read off
// the wire (admin tooling, config files).
func IdentityFromString(s string) (Identity, error) {
	var id Identity
	raw, err := util.DecodeStringToBinary(s, IdentitySize)
	if err != nil {
		return id, err
	}
	copy(id[:], raw)
	return id, nil
}

// Hex returns the lower-case hex encoding of the identity, used as the
// canonical key for journal/store lookups where base32's padding
// behaviour is inconvenient.
func (id Identity) Hex() string {
	return hex.EncodeToString(id[:])
}
