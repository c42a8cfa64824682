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
	"crypto"
	"crypto/rand"
	"crypto/sha512"
	"fmt"
	"math/big"

	"github.com/bfix/gospel/crypto/ed25519"

	"github.com/adnl-go/adnl/util"
)

// Error codes
var (
	ErrInvalidPrivateKeyData = fmt.Errorf("invalid private key data")
)

//----------------------------------------------------------------------
// Public key
//----------------------------------------------------------------------

// PublicKey is an Ed25519 public key; it doubles as the canonical
// serialisation of a node's FullNodeId.
type PublicKey struct {
	key ed25519.PublicKey
}

// NewPublicKey sets the binary representation of a public key.
// The value is not checked for validity!
func NewPublicKey(data []byte) *PublicKey {
	if l := len(data); l != ed25519.PublicKeySize {
		panic(fmt.Sprintf("NewPublicKey: invalid key size (%d)", l))
	}
	return &PublicKey{
		key: util.Clone(data),
	}
}

// Bytes returns the binary representation of a public key.
func (pub *PublicKey) Bytes() []byte {
	return []byte(pub.key)
}

// Verify checks a signature of a message.
func (pub *PublicKey) Verify(msg []byte, sig *Signature) bool {
	hv := sha512.Sum512(msg)
	return ed25519.Verify(pub.key, hv[:], sig.Bytes())
}

// Mult computes p = d*Q on the Ed25519 curve. It is the Diffie-Hellman
// primitive a node uses to turn its ephemeral scalar and the peer's
// ephemeral public key into a shared channel secret.
func (pub *PublicKey) Mult(d *big.Int) *PublicKey {
	var (
		Q          ed25519.ExtendedGroupElement
		pge        ed25519.ProjectiveGroupElement
		a, b, zero [32]byte
	)
	// compute point Q from public key data
	copy(a[:], pub.Bytes())
	if !Q.FromBytes(&a) {
		return nil
	}
	// compute scalar product
	copy(b[:], util.Reverse(d.Bytes()))
	ed25519.GeDoubleScalarMultVartime(&pge, &b, &Q, &zero)

	// convert to public key
	pge.ToBytes(&a)
	return NewPublicKey(a[:])
}

//----------------------------------------------------------------------
// Private Key
//----------------------------------------------------------------------

// PrivateKey is an Ed25519 private key, together with the "real" scalar
// 'd' backing it (Ed25519 seeds are hashed-and-clamped before use as a
// scalar; Mult needs that scalar directly, not the seed).
type PrivateKey struct {
	key ed25519.PrivateKey // private key data (seed||public_key)
	d   *big.Int           // the "real" private scalar
}

// PrivateKeyFromSeed returns a private key for a given seed.
func PrivateKeyFromSeed(seed []byte) *PrivateKey {
	k := &PrivateKey{
		key: ed25519.NewKeyFromSeed(seed),
	}
	md := sha512.Sum512(seed)
	d := util.Reverse(md[:32])
	d[0] = (d[0] & 0x3f) | 0x40
	d[31] &= 0xf8
	k.d = new(big.Int).SetBytes(d)
	return k
}

// D returns the "real" private scalar.
func (prv *PrivateKey) D() *big.Int {
	return prv.d
}

// Public returns the public key for a private key.
func (prv *PrivateKey) Public() *PublicKey {
	return &PublicKey{
		key: util.Clone(prv.key[ed25519.PublicKeySize:]),
	}
}

// Sign creates a signature for a message.
func (prv *PrivateKey) Sign(msg []byte) (*Signature, error) {
	hv := sha512.Sum512(msg)
	sig, err := prv.key.Sign(rand.Reader, hv[:], crypto.Hash(0))
	return NewSignatureFromBytes(sig), err
}

// NewKeypair creates a new Ed25519 key pair.
func NewKeypair() (*PublicKey, *PrivateKey) {
	seed := make([]byte, 32)
	util.RndArray(seed)
	prv := PrivateKeyFromSeed(seed)
	pub := prv.Public()
	return pub, prv
}
