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

// Package core implements the ADNL node: LocalId key management, the
// per-peer Channel/PeerPair state machines, and PeerTable, the registry
// that routes an inbound Datagram to whichever of the two (channel or
// direct) decrypts it.
package core

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/bfix/gospel/logger"

	"github.com/adnl-go/adnl/adnlerr"
	"github.com/adnl-go/adnl/crypto"
	"github.com/adnl-go/adnl/dht"
	"github.com/adnl-go/adnl/message"
	"github.com/adnl-go/adnl/persistence"
	"github.com/adnl-go/adnl/transport"
	"github.com/adnl-go/adnl/util"
)

type channelEntry struct {
	pair *PeerPair
	cat  transport.Category
}

// PeerTable is the top-level ADNL registry (§4.5): it owns every LocalId
// this process speaks as, every Peer it has ever exchanged packets
// with, and the global channel_in_id -> PeerPair index datagrams are
// routed through.
type PeerTable struct {
	mtx sync.RWMutex

	net     *transport.Transport
	persist *persistence.Store // nil if no persistence.Config was set
	dht     dht.Client         // nil if no DHT collaborator was configured

	localIds map[string]*LocalId
	peers    map[string]*Peer
	channels map[string]*channelEntry

	notify func(*Event)
}

// NewPeerTable creates an empty registry bound to a transport.
func NewPeerTable(net *transport.Transport) *PeerTable {
	return &PeerTable{
		net:      net,
		localIds: make(map[string]*LocalId),
		peers:    make(map[string]*Peer),
		channels: make(map[string]*channelEntry),
	}
}

// SetPersistence installs the store PeerPairs save their address lists
// and reinit dates to, and load a prior session's from on first contact.
// A nil store (the default) makes every persistence call a silent no-op.
func (t *PeerTable) SetPersistence(store *persistence.Store) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	t.persist = store
}

// persistPeer saves a peer's current address lists and epoch, if a store
// is configured. Failures are logged and otherwise ignored: persistence
// is an optimization (skip rediscovery on restart), never load-bearing
// for correctness.
func (t *PeerTable) persistPeer(short *util.ShortNodeId, rec *persistence.PeerRecord) {
	t.mtx.RLock()
	store := t.persist
	t.mtx.RUnlock()
	if store == nil {
		return
	}
	if err := store.SavePeer(short, rec); err != nil {
		logger.Printf(logger.DBG, "[peertable] persist %s failed: %s", short, err.Error())
	}
}

// loadPersistedPeer retrieves a prior session's record for short, if a
// store is configured and one exists.
func (t *PeerTable) loadPersistedPeer(short *util.ShortNodeId) *persistence.PeerRecord {
	t.mtx.RLock()
	store := t.persist
	t.mtx.RUnlock()
	if store == nil {
		return nil
	}
	rec, err := store.LoadPeer(short)
	if err != nil {
		return nil
	}
	return rec
}

// SetDHTClient installs the collaborator PeerPairs use for address-list
// rediscovery and reverse-ping requests once get_conn finds nothing
// sendable. A nil client (the default) makes both a quiet no-op.
func (t *PeerTable) SetDHTClient(client dht.Client) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	t.dht = client
}

// discoverViaDHT looks peer up under its published address-list key,
// verifies the signature against its long-term key, and parses the
// result, mirroring publish.go's PublishAddressList wire format.
func (t *PeerTable) discoverViaDHT(ctx context.Context, peer *util.FullNodeId) (*message.AddressList, error) {
	t.mtx.RLock()
	client := t.dht
	t.mtx.RUnlock()
	if client == nil {
		return nil, dht.ErrNotFound
	}
	value, err := client.GetValue(ctx, dht.Key{PeerHash: peer.Short(), Kind: dht.AddressKind})
	if err != nil {
		return nil, err
	}
	if len(value) < 4 {
		return nil, adnlerr.ProtocolViolation
	}
	sigLen := int(binary.BigEndian.Uint32(value[:4]))
	if sigLen <= 0 || 4+sigLen > len(value) {
		return nil, adnlerr.ProtocolViolation
	}
	sig, raw := value[4:4+sigLen], value[4+sigLen:]
	pub := crypto.NewPublicKey(peer.Bytes())
	if !pub.Verify(raw, crypto.NewSignatureFromBytes(sig)) {
		return nil, adnlerr.ProtocolViolation
	}
	return message.ParseAddressList(raw)
}

// requestReversePing asks the DHT to relay a reverse-ping to peer, for
// the has_reverse address-list case (§4.4.5).
func (t *PeerTable) requestReversePing(ctx context.Context, peer *util.FullNodeId) error {
	t.mtx.RLock()
	client := t.dht
	t.mtx.RUnlock()
	if client == nil {
		return dht.ErrNotFound
	}
	return client.RegisterReverseConnection(ctx, peer)
}

// SetNotify installs the callback PeerPairs use to report connect,
// disconnect and delivered-message events up to Core's listeners.
func (t *PeerTable) SetNotify(fn func(*Event)) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	t.notify = fn
}

// Notify reports an event, if a sink has been installed.
func (t *PeerTable) Notify(ev *Event) {
	t.mtx.RLock()
	fn := t.notify
	t.mtx.RUnlock()
	if fn != nil {
		fn(ev)
	}
}

// AddLocalId registers a local identity this table will accept direct
// packets addressed to.
func (t *PeerTable) AddLocalId(id *LocalId) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	t.localIds[string(id.Short().Bytes())] = id
}

// LocalId looks up a registered local identity by its short id.
func (t *PeerTable) LocalId(short *util.ShortNodeId) (*LocalId, bool) {
	t.mtx.RLock()
	defer t.mtx.RUnlock()
	id, ok := t.localIds[string(short.Bytes())]
	return id, ok
}

// getOrCreatePeer returns the Peer grouping every PeerPair with id,
// creating it on first contact.
func (t *PeerTable) getOrCreatePeer(id *util.FullNodeId) *Peer {
	key := string(id.Short().Bytes())
	t.mtx.Lock()
	defer t.mtx.Unlock()
	p, ok := t.peers[key]
	if !ok {
		p = newPeer(t, id)
		t.peers[key] = p
	}
	return p
}

// PairWith returns (creating if needed) the PeerPair between local and
// the remote identity id; the entry point core.go uses to start talking
// to a freshly-learned peer. A freshly created pair is primed from any
// persisted record, so a restarted node can send to a peer it already
// knew about without waiting on rediscovery.
func (t *PeerTable) PairWith(local *LocalId, id *util.FullNodeId) *PeerPair {
	pair, created := t.getOrCreatePeer(id).pairWith(local)
	if created {
		if rec := t.loadPersistedPeer(id.Short()); rec != nil {
			pair.primeFromPersisted(rec)
		}
	}
	return pair
}

// RegisterChannel indexes a confirmed channel's in_id so inbound
// datagrams carrying it route straight to pair, bypassing the
// direct-packet decrypt path. Registering an id that is already present
// logs a warning and replaces the existing entry; it does not abort.
// PeerPair registers the same id again when the handshake completes and
// when it re-asserts a registration after a stale channel key.
func (t *PeerTable) RegisterChannel(inID []byte, pair *PeerPair, cat transport.Category) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	key := string(inID)
	if _, exists := t.channels[key]; exists {
		logger.Printf(logger.WARN, "[peertable] channel id already registered, replacing")
	}
	t.channels[key] = &channelEntry{pair: pair, cat: cat}
}

// UnregisterChannel removes a channel's in_id from the index, e.g. on
// reinit or when a superseding CreateChannel replaces it.
func (t *PeerTable) UnregisterChannel(inID []byte) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	delete(t.channels, string(inID))
}

//----------------------------------------------------------------------
// Inbound routing
//----------------------------------------------------------------------

// Route is the entry point for every Datagram the transport layer
// delivers: the leading 32 bytes select either a registered channel (in
// which case the remainder is AES-keystream ciphertext) or a local id
// (in which case the next 32 bytes are the sender's ephemeral DH key
// and the remainder is sealed with it).
func (t *PeerTable) Route(ctx context.Context, dg *transport.Datagram) error {
	if len(dg.Raw) < 32 {
		return adnlerr.ProtocolViolation
	}
	prefix := dg.Raw[:32]

	t.mtx.RLock()
	entry, isChannel := t.channels[string(prefix)]
	t.mtx.RUnlock()
	if isChannel {
		body, err := entry.pair.channel.Decrypt(dg.Raw[32:])
		if err != nil {
			return err
		}
		pkt, err := message.ParsePacketContents(body)
		if err != nil {
			return err
		}
		return entry.pair.ReceivePacket(ctx, pkt, entry.pair.peer)
	}

	t.mtx.RLock()
	local, isLocal := t.localIds[string(prefix)]
	t.mtx.RUnlock()
	if !isLocal {
		return adnlerr.UnknownDestination
	}
	if len(dg.Raw) < 64 {
		return adnlerr.ProtocolViolation
	}
	ephPub := crypto.NewPublicKey(dg.Raw[32:64])
	body, err := local.Decrypt(ephPub, dg.Raw[64:])
	if err != nil {
		return err
	}
	pkt, err := message.ParsePacketContents(body)
	if err != nil {
		return err
	}
	if pkt.From == nil {
		return adnlerr.ProtocolViolation
	}
	pair := t.PairWith(local, pkt.From)
	return pair.ReceivePacket(ctx, pkt, pkt.From)
}
