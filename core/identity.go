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
	"errors"
	"sync"
	"time"

	"github.com/adnl-go/adnl/adnlerr"
	"github.com/adnl-go/adnl/crypto"
	"github.com/adnl-go/adnl/keyring"
	"github.com/adnl-go/adnl/message"
	"github.com/adnl-go/adnl/util"
)

// Handler is a subscribed prefix callback: it receives a peer's short id,
// the custom payload and (for queries) must return an answer.
type Handler func(peer *util.ShortNodeId, data []byte) ([]byte, error)

// subscription is one entry in a LocalId's prefix-dispatch table.
type subscription struct {
	prefix []byte
	fn     Handler
}

// LocalId is one local node identity: it owns an address list, signs
// outgoing packets and decrypts inbound ones, and dispatches delivered
// Custom/Query payloads to whichever subscribed prefix matches. Mirrors
// the long-term-identity half of the old Peer type, split out because
// ADNL gives a single node several independent local ids at once.
type LocalId struct {
	mtx sync.RWMutex

	keys *keyring.Keyring

	reinitDate int32 // our own epoch; bumped on restart/reset
	startTime  int32 // adnl_start_time, fixed for process lifetime

	addrList *message.AddressList
	subs     []subscription
}

// NewLocalId creates a local identity from a long-term private key.
func NewLocalId(prv *crypto.PrivateKey) *LocalId {
	now := int32(time.Now().Unix())
	return &LocalId{
		keys:       keyring.New(prv),
		reinitDate: now,
		startTime:  now,
	}
}

// ID returns this identity's long-term node id.
func (l *LocalId) ID() *util.FullNodeId {
	return l.keys.ID()
}

// Short returns this identity's short id, the wire destination prefix.
func (l *LocalId) Short() *util.ShortNodeId {
	return l.keys.ID().Short()
}

// ReinitDate returns our current announced epoch.
func (l *LocalId) ReinitDate() int32 {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	return l.reinitDate
}

// StartTime returns adnl_start_time, fixed for the process lifetime.
func (l *LocalId) StartTime() int32 {
	return l.startTime
}

// Reinit bumps our own epoch (used on an operator-triggered reset, not
// on incoming-peer reinit, which is PeerPair.reinit instead).
func (l *LocalId) Reinit() {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.reinitDate = int32(time.Now().Unix())
}

// SetAddressList installs the address list this id advertises.
func (l *LocalId) SetAddressList(al *message.AddressList) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.addrList = al
}

// AddressList returns the currently advertised address list.
func (l *LocalId) AddressList() *message.AddressList {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	return l.addrList
}

// Sign signs obj's SignedData with this identity's long-term key.
func (l *LocalId) Sign(obj crypto.Signable) error {
	return l.keys.Sign(obj)
}

// Decrypt opens ciphertext sealed to this identity's public key, via the
// Keyring holding the long-term key.
func (l *LocalId) Decrypt(senderEph *crypto.PublicKey, ciphertext []byte) ([]byte, error) {
	return l.keys.Decrypt(senderEph, ciphertext)
}

// Encrypt seals plaintext to peerPub using a fresh ephemeral key, for
// sending a non-channel packet. Returns the ephemeral public key to
// embed alongside the ciphertext so the peer can reconstruct the
// shared secret.
func (l *LocalId) Encrypt(peerPub *crypto.PublicKey, plaintext []byte) (ephPub *crypto.PublicKey, ciphertext []byte, err error) {
	return l.keys.Encrypt(peerPub, plaintext)
}

//----------------------------------------------------------------------
// Prefix dispatch
//----------------------------------------------------------------------

// Subscribe registers a handler for every Custom/Query payload whose
// bytes begin with prefix. Rejects overlap: no two live subscriptions
// may be a prefix of one another, so dispatch always has at most one
// candidate.
func (l *LocalId) Subscribe(prefix []byte, fn Handler) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	for _, s := range l.subs {
		if isPrefixOf(s.prefix, prefix) || isPrefixOf(prefix, s.prefix) {
			return adnlerr.Wrap(adnlerr.ProtocolViolation, errSubscriptionOverlap)
		}
	}
	l.subs = append(l.subs, subscription{prefix: prefix, fn: fn})
	return nil
}

// Dispatch finds the one subscription whose prefix matches data and
// invokes it. Returns (nil, NoHandler) if nothing matches.
func (l *LocalId) Dispatch(peer *util.ShortNodeId, data []byte) ([]byte, error) {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	for _, s := range l.subs {
		if isPrefixOf(s.prefix, data) {
			return s.fn(peer, data)
		}
	}
	return nil, adnlerr.NoHandler
}

var errSubscriptionOverlap = errors.New("core: subscription prefix overlaps an existing one")

func isPrefixOf(prefix, data []byte) bool {
	if len(prefix) > len(data) {
		return false
	}
	for i, b := range prefix {
		if data[i] != b {
			return false
		}
	}
	return true
}
