// This file is part of gnunet-go, a GNUnet-implementation in Golang.
// Copyright (C) 2019-2022 Bernd Fix  >Y<
//
// gnunet-go is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License,
// or (at your option) any later version.
//
// gnunet-go is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.
//
// SPDX-License-Identifier: AGPL3.0-or-later

package crypto

import (
	"github.com/adnl-go/adnl/util"
)

// SharedSecret computes the raw 32-byte Diffie-Hellman secret S between
// an ephemeral private key and the peer's ephemeral public key. Unlike
// the GNUnet SharedSecret (which hashes the DH point through SHA-512 for
// a 64-byte HashCode), a channel secret is used directly as AES key
// material and must stay 32 bytes.
func SharedSecret(prv *PrivateKey, pub *PublicKey) []byte {
	return pub.Mult(prv.D()).Bytes()
}

// ReverseSecret returns S with its byte order reversed (R), the second
// of the two 32-byte values a channel derives its two AES keys from.
func ReverseSecret(s []byte) []byte {
	return util.Reverse(s)
}
