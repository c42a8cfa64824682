// This file is part of gnunet-go, a GNUnet-implementation in Golang.
// Copyright (C) 2019, 2020 Bernd Fix  >Y<
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
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// A channel's traffic is protected by a single AES key stream, not the
// two-layer AES+Twofish CFB chain GNUnet's own symmetric transport uses
// (SymmetricEncrypt/SymmetricDecrypt in older revisions of this tree):
// once a channel is confirmed both sides already agree on the key via
// the Diffie-Hellman exchange in key_exchange.go, so there is no need
// for belt-and-suspenders double encryption on top of it.

// ChannelKey is the AES-256 key one direction of a channel encrypts with.
type ChannelKey struct {
	Key []byte `size:"32"`
}

// NewChannelKey wraps a 32-byte key derived from a channel's shared secret.
func NewChannelKey(key []byte) (*ChannelKey, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("channel key must be 32 bytes, got %d", len(key))
	}
	return &ChannelKey{Key: key}, nil
}

// ChannelEncrypt returns channelOutID || AES-keystream(data), the wire
// layout a channel packet uses once a symmetric key is in place. The
// nonce is derived from the channel id so a single key never repeats it
// across two independently-seeded channels.
func ChannelEncrypt(channelOutID, data []byte, key *ChannelKey) ([]byte, error) {
	stream, err := channelStream(key, channelOutID)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(channelOutID)+len(data))
	copy(out, channelOutID)
	stream.XORKeyStream(out[len(channelOutID):], data)
	return out, nil
}

// ChannelDecrypt reverses ChannelEncrypt given the channel id the packet
// carried and the matching decrypt key.
func ChannelDecrypt(channelID, data []byte, key *ChannelKey) ([]byte, error) {
	stream, err := channelStream(key, channelID)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	stream.XORKeyStream(out, data)
	return out, nil
}

// channelStream builds the AES-CTR keystream for one direction. The
// first 16 bytes of the channel id serve as the counter-mode nonce;
// channel ids are themselves derived from a fresh DH secret per
// handshake, so reuse across channels does not happen.
func channelStream(key *ChannelKey, channelID []byte) (cipher.Stream, error) {
	block, err := aes.NewCipher(key.Key)
	if err != nil {
		return nil, err
	}
	iv := make([]byte, aes.BlockSize)
	copy(iv, channelID)
	return cipher.NewCTR(block, iv), nil
}
