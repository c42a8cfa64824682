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

package core

import (
	"bytes"
	"time"

	"github.com/adnl-go/adnl/crypto"
	"github.com/adnl-go/adnl/message"
	"github.com/adnl-go/adnl/util"
)

// UnregisterStaleChannelOnPromote resolves the source's ambiguity around
// a CreateChannel/ConfirmChannel carrying an old, already-superseded peer
// key (the original only VLOG(ADNL_DEBUG)s this case, leaving it unclear
// whether the now-stale registration should be cleaned up). True
// re-asserts our channel_in_id registration when a stale key is observed;
// false only logs it, matching the original's silent behavior. See
// DESIGN.md for the reasoning.
var UnregisterStaleChannelOnPromote = true

// ChannelState is a Channel's position in the handshake state machine
// described by the CreateChannel/ConfirmChannel exchange.
type ChannelState int

const (
	// ChanNone: no ephemeral key negotiated yet.
	ChanNone ChannelState = iota
	// ChanInited: we have an ephemeral key, but haven't seen the peer's
	// matching ConfirmChannel (or we've only just learned theirs).
	ChanInited
	// ChanReady: both sides confirmed; the channel can carry traffic.
	ChanReady
)

// Channel is the established (or negotiating) symmetric encryption
// context between two node identities. Every datagram it emits is
// tagged by its 32-byte out_id; every datagram registered under its
// in_id is routed here for decryption.
type Channel struct {
	state ChannelState

	localPrv  *crypto.PrivateKey
	localPub  *crypto.PublicKey
	localDate int32

	peerPub  *crypto.PublicKey
	peerDate int32

	inID  []byte // hash(localPub): the prefix peers use to reach us
	outID []byte // hash(peerPub): the prefix we use to reach them

	encKey *crypto.ChannelKey
	decKey *crypto.ChannelKey
}

// NewChannel starts a fresh, uninited channel for a PeerPair.
func NewChannel() *Channel {
	return &Channel{state: ChanNone}
}

// Ready reports whether the channel can currently encrypt traffic.
func (c *Channel) Ready() bool {
	return c.state == ChanReady
}

// InID returns the prefix this channel listens on once negotiated.
func (c *Channel) InID() []byte {
	return c.inID
}

// CreateChannelMsg generates (or re-uses) our ephemeral key and returns
// the CreateChannel message to send, initiating or re-asserting the
// handshake.
func (c *Channel) CreateChannelMsg() *message.CreateChannelMsg {
	if c.state == ChanNone {
		c.localPub, c.localPrv = crypto.NewKeypair()
		c.localDate = int32(time.Now().Unix())
		c.state = ChanInited
	}
	return &message.CreateChannelMsg{
		Key:  c.localPub.Bytes(),
		Date: c.localDate,
	}
}

// HandleCreate applies the key-selection rule to an incoming
// CreateChannel from the peer and returns the ConfirmChannel reply, or
// nil if the message was a no-op (stale or already-known key).
func (c *Channel) HandleCreate(localID, peerID *util.FullNodeId, peerPub []byte, date int32) (confirm *message.ConfirmChannelMsg, staleKey bool, err error) {
	accepted, stale := c.acceptPeerKey(peerPub, date)
	if !accepted {
		return nil, stale, nil
	}
	if c.state == ChanNone {
		c.localPub, c.localPrv = crypto.NewKeypair()
		c.localDate = int32(time.Now().Unix())
	}
	c.state = ChanInited
	if err := c.deriveKeys(localID, peerID); err != nil {
		return nil, false, err
	}
	return &message.ConfirmChannelMsg{
		Key:     c.localPub.Bytes(),
		PeerKey: peerPub,
		Date:    c.localDate,
	}, false, nil
}

// HandleConfirm applies the key-selection rule to an incoming
// ConfirmChannel. ourPubEcho must equal our currently advertised
// ephemeral key, or the message is a forgery/stale reply and is
// dropped.
func (c *Channel) HandleConfirm(localID, peerID *util.FullNodeId, peerPub, ourPubEcho []byte, date int32) (promoted, staleKey bool, err error) {
	if c.localPub == nil || !bytes.Equal(c.localPub.Bytes(), ourPubEcho) {
		return false, false, nil
	}
	accepted, stale := c.acceptPeerKey(peerPub, date)
	if !accepted {
		if !stale && c.encKey != nil && c.state != ChanReady {
			// the peer's key is already known from its CreateChannel and
			// the keys are derived; this confirm completes the handshake.
			c.state = ChanReady
			return true, false, nil
		}
		return c.state == ChanReady, stale, nil
	}
	if err := c.deriveKeys(localID, peerID); err != nil {
		return false, false, err
	}
	c.state = ChanReady
	return true, false, nil
}

// acceptPeerKey applies the §4.3 key-selection rule and records the new
// peer key/date if it supersedes what we have. accepted is false for a
// no-op (same key, or an older/equal date); stale additionally reports
// whether the rejected key was an old one the peer has already moved
// past (date <= c.peerDate), the "confirmChannel with old key" case the
// source only logs — see UnregisterStaleChannelOnPromote.
func (c *Channel) acceptPeerKey(peerPub []byte, date int32) (accepted, stale bool) {
	if c.peerPub != nil {
		if bytes.Equal(c.peerPub.Bytes(), peerPub) {
			return false, false
		}
		if date <= c.peerDate {
			return false, true
		}
		// superseding key (newer date): recorded below. inID is derived
		// from our own ephemeral key only, so its PeerTable registration
		// is unaffected.
	}
	c.peerPub = crypto.NewPublicKey(peerPub)
	c.peerDate = date
	return true, false
}

// deriveKeys computes the shared secret and assigns encrypt/decrypt
// roles by comparing the two nodes' short ids, breaking the symmetry a
// DH secret alone can't resolve.
func (c *Channel) deriveKeys(localID, peerID *util.FullNodeId) error {
	secret := crypto.SharedSecret(c.localPrv, c.peerPub)
	reversed := crypto.ReverseSecret(secret)

	var encBytes, decBytes []byte
	switch {
	case localID.Compare(peerID) < 0:
		decBytes, encBytes = secret, reversed
	case peerID.Compare(localID) < 0:
		decBytes, encBytes = reversed, secret
	default:
		decBytes, encBytes = secret, secret
	}
	var err error
	if c.decKey, err = crypto.NewChannelKey(decBytes); err != nil {
		return err
	}
	if c.encKey, err = crypto.NewChannelKey(encBytes); err != nil {
		return err
	}
	c.inID = crypto.Hash(c.localPub.Bytes()).Bits
	c.outID = crypto.Hash(c.peerPub.Bytes()).Bits
	return nil
}

// Encrypt seals plaintext for transmission: channel_out_id || AES(plaintext).
func (c *Channel) Encrypt(plaintext []byte) ([]byte, error) {
	return crypto.ChannelEncrypt(c.outID, plaintext, c.encKey)
}

// Decrypt opens a datagram whose leading 32 bytes were this channel's
// in_id (already stripped by the caller) and the remainder is ciphertext.
func (c *Channel) Decrypt(ciphertext []byte) ([]byte, error) {
	return crypto.ChannelDecrypt(c.inID, ciphertext, c.decKey)
}

// Drop resets the channel to ChanNone, as required on peer reinit or a
// superseding key: the caller is responsible for unregistering inID
// from the PeerTable first.
func (c *Channel) Drop() {
	*c = Channel{state: ChanNone}
}
