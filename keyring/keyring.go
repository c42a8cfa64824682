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

// Package keyring holds a local node identity's long-term private key: it
// produces signatures over outgoing packets and decrypts inbound
// ciphertext addressed to the corresponding public-key hash. This is
// split out from core.LocalId (which owns the higher-level epoch/address
// list/subscription state) because the spec treats key custody as its
// own small, independently-testable component.
package keyring

import (
	"github.com/bfix/gospel/logger"

	"github.com/adnl-go/adnl/crypto"
	"github.com/adnl-go/adnl/util"
)

// Keyring holds one local identity's long-term Ed25519 keypair.
type Keyring struct {
	prv *crypto.PrivateKey
	id  *util.FullNodeId
}

// New derives a Keyring from a long-term private key.
func New(prv *crypto.PrivateKey) *Keyring {
	id, err := util.NewFullNodeId(prv.Public().Bytes())
	if err != nil {
		// a 32-byte Ed25519 public key always round-trips; a failure here
		// means the key material itself is malformed.
		logger.Printf(logger.ERROR, "[keyring] malformed identity key: %s", err.Error())
		panic(err)
	}
	return &Keyring{prv: prv, id: id}
}

// ID returns the long-term node id this keyring speaks for.
func (k *Keyring) ID() *util.FullNodeId {
	return k.id
}

// Sign signs obj's SignedData with the long-term key.
func (k *Keyring) Sign(obj crypto.Signable) error {
	sig, err := k.prv.Sign(obj.SignedData())
	if err != nil {
		return err
	}
	return obj.SetSignature(sig)
}

// Decrypt opens ciphertext sealed to this keyring's public key. ADNL's
// non-channel wire format seals packetContents with a shared secret
// derived from the sender's ephemeral key embedded in the packet — the
// same DH primitive a Channel uses for its symmetric keys.
func (k *Keyring) Decrypt(senderEph *crypto.PublicKey, ciphertext []byte) ([]byte, error) {
	secret := crypto.SharedSecret(k.prv, senderEph)
	key, err := crypto.NewChannelKey(secret)
	if err != nil {
		return nil, err
	}
	// Direct packets have no separate channel-id prefix to strip; the AES
	// stream is keyed directly off the shared secret.
	return crypto.ChannelDecrypt(make([]byte, 32), ciphertext, key)
}

// Encrypt seals plaintext to peerPub using a fresh ephemeral key, for
// sending a non-channel packet. Returns the ephemeral public key to embed
// alongside the ciphertext so the peer can reconstruct the shared secret.
func (k *Keyring) Encrypt(peerPub *crypto.PublicKey, plaintext []byte) (ephPub *crypto.PublicKey, ciphertext []byte, err error) {
	ephPub, ephPrv := crypto.NewKeypair()
	secret := crypto.SharedSecret(ephPrv, peerPub)
	key, err := crypto.NewChannelKey(secret)
	if err != nil {
		return nil, nil, err
	}
	ct, err := crypto.ChannelEncrypt(make([]byte, 32), plaintext, key)
	if err != nil {
		return nil, nil, err
	}
	// strip the helper's leading 32-byte zero channel-id; direct packets
	// carry their own destination prefix instead.
	return ephPub, ct[32:], nil
}
