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

package util

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/bfix/gospel/crypto/ed25519"
)

//----------------------------------------------------------------------
// Node identity
//----------------------------------------------------------------------

// ShortNodeId is the 32-byte hash of a node's public key, the value
// carried as a wire prefix on non-channel packets and used to order a
// peer pair (the smaller short id decrypts with S, encrypts with R).
type ShortNodeId struct {
	Key []byte `size:"32"`
}

// NewShortNodeId wraps a 32-byte hash. Left-pads/truncates like the
// other fixed-size wire types if given the wrong length, rather than
// panicking on data read off the network.
func NewShortNodeId(data []byte) *ShortNodeId {
	id := &ShortNodeId{Key: make([]byte, 32)}
	if data != nil {
		CopyBlock(id.Key, data)
	}
	return id
}

// Bytes returns the raw 32-byte short id.
func (id *ShortNodeId) Bytes() []byte {
	return id.Key
}

// Equals reports whether two short ids refer to the same node.
func (id *ShortNodeId) Equals(other *ShortNodeId) bool {
	if other == nil {
		return false
	}
	return bytes.Equal(id.Key, other.Key)
}

// Compare orders two short ids lexicographically. A channel's two AES
// keys (decrypt = S, encrypt = R, or swapped) are assigned by which
// side's short id compares lower — see FullNodeId.Compare.
func (id *ShortNodeId) Compare(other *ShortNodeId) int {
	return bytes.Compare(id.Key, other.Key)
}

// String returns the human-readable (base32) form of a short id.
func (id *ShortNodeId) String() string {
	return EncodeBinaryToString(id.Key)
}

// FullNodeId is a node's Ed25519 public key, i.e. its long-term identity.
// Every node also has a ShortNodeId, the hash of this key's canonical
// (raw 32-byte) serialisation.
type FullNodeId struct {
	pub ed25519.PublicKey
}

// NewFullNodeId wraps a 32-byte Ed25519 public key.
func NewFullNodeId(data []byte) (*FullNodeId, error) {
	if l := len(data); l != ed25519.PublicKeySize {
		return nil, fmt.Errorf("NewFullNodeId: invalid key size (%d)", l)
	}
	return &FullNodeId{pub: Clone(data)}, nil
}

// Bytes returns the raw public key.
func (id *FullNodeId) Bytes() []byte {
	return []byte(id.pub)
}

// PublicKey returns the underlying Ed25519 public key.
func (id *FullNodeId) PublicKey() ed25519.PublicKey {
	return id.pub
}

// Short derives this node's ShortNodeId: SHA-256 of the raw public key.
func (id *FullNodeId) Short() *ShortNodeId {
	h := sha256.Sum256(id.Bytes())
	return NewShortNodeId(h[:])
}

// Equals reports whether two full ids are the same public key.
func (id *FullNodeId) Equals(other *FullNodeId) bool {
	if other == nil {
		return false
	}
	return bytes.Equal(id.Bytes(), other.Bytes())
}

// Compare orders two full ids by their derived short ids, resolving
// channel-role symmetry without a protocol round (see spec's channel
// key derivation: the side whose short id compares lower decrypts with
// S, the other with R; equal ids use S both ways, the loopback case).
func (id *FullNodeId) Compare(other *FullNodeId) int {
	return id.Short().Compare(other.Short())
}

// String returns the human-readable (base32) form of the short id.
func (id *FullNodeId) String() string {
	return id.Short().String()
}

// Verify checks a raw Ed25519 signature over msg.
func (id *FullNodeId) Verify(msg, sig []byte) bool {
	return ed25519.Verify(id.pub, msg, sig)
}
