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
	"fmt"

	"github.com/adnl-go/adnl/util"
)

// Signature is a raw Ed25519 signature (64 bytes).
type Signature struct {
	Data []byte `size:"64"`
}

// NewSignatureFromBytes wraps a raw signature. Panics if the size is
// wrong, matching NewPublicKey's treatment of malformed fixed-size data.
func NewSignatureFromBytes(data []byte) *Signature {
	if l := len(data); l != 64 {
		panic(fmt.Sprintf("NewSignatureFromBytes: invalid size (%d)", l))
	}
	return &Signature{Data: util.Clone(data)}
}

// Bytes returns the raw signature bytes.
func (s *Signature) Bytes() []byte {
	return s.Data
}

// Signable is implemented by non-channel packet contents: the part that
// gets signed (reinit_date and dst_reinit_date) plus a way to
// attach the resulting signature once computed.
type Signable interface {
	// SignedData returns the byte array to be signed
	SignedData() []byte

	// SetSignature attaches the computed signature to the object
	SetSignature(*Signature) error
}

// Signer instance for creating signatures
type Signer interface {
	Sign(Signable) error
}
