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
	"context"
	"crypto/sha256"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/bfix/gospel/logger"

	"github.com/adnl-go/adnl/adnlerr"
	"github.com/adnl-go/adnl/crypto"
	"github.com/adnl-go/adnl/message"
	"github.com/adnl-go/adnl/persistence"
	"github.com/adnl-go/adnl/transport"
	"github.com/adnl-go/adnl/util"
)

const (
	seqWindow       = 64
	queueTTL        = 10 * time.Second
	handshakeIdle   = 5 * time.Second
	tryReinitDelay  = 10 * time.Second
	inactivityLimit = 9 * time.Minute
	dropGrace       = time.Minute
	maxHugeMessage  = 1 << 20 // 1 MiB

	noChannelRetryDelay   = 9 * time.Second  // retry_send_at, on get_conn failure
	reversePingDebounce   = 15 * time.Second // request_reverse_ping_after
	dhtQueryBasePeriod    = 90 * time.Second // next_dht_query_at, jittered +/-1/3
	respondWithNopMinWait = 1 * time.Second
	respondWithNopJitter  = 1 * time.Second // respond_with_nop_after = now + [1s, 2s)

	rateLimiterCapacity     = 50.0  // no-channel token bucket size
	rateLimiterRefillPerSec = 100.0 // tokens/s refill rate
)

// discoveryInterval jitters a 60-120s-class recheck so many peers
// rediscovering at once don't all hit the DHT/persistence store in
// lockstep (mirrors publish.go's publishBasePeriod jitter).
func discoveryInterval() time.Duration {
	return dhtQueryBasePeriod*2/3 + time.Duration(rand.Int63n(int64(dhtQueryBasePeriod*2/3)))
}

// outboundEntry is one queued message awaiting a send burst.
type outboundEntry struct {
	msg      message.Message
	deadline time.Time
}

// queryHandle tracks one in-flight Query, resolved by its Answer or a
// timeout.
type queryHandle struct {
	reply chan []byte
	err   chan error
}

// reassembly holds the single in-flight huge message a PeerPair may be
// reconstructing from Part fragments.
type reassembly struct {
	hash     []byte
	total    int32
	offset   int32
	buf      []byte
	active   bool
}

// tokenBucket rate-limits non-channel (ECIES-sealed) sends: a 50-token
// bucket refilling at 100 tokens/s, so a peer with no channel yet can't
// be flooded with huge-header packets before the handshake lands (§3).
type tokenBucket struct {
	tokens float64
	last   time.Time
}

func newTokenBucket() *tokenBucket {
	return &tokenBucket{tokens: rateLimiterCapacity, last: time.Now()}
}

func (b *tokenBucket) refill(now time.Time) {
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens += elapsed * rateLimiterRefillPerSec
		if b.tokens > rateLimiterCapacity {
			b.tokens = rateLimiterCapacity
		}
		b.last = now
	}
}

// take consumes one token, reporting whether one was available.
func (b *tokenBucket) take(now time.Time) bool {
	b.refill(now)
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// readyAt reports when the bucket will next have a token available.
func (b *tokenBucket) readyAt(now time.Time) time.Time {
	b.refill(now)
	if b.tokens >= 1 {
		return now
	}
	wait := time.Duration((1 - b.tokens) / rateLimiterRefillPerSec * float64(time.Second))
	return now.Add(wait)
}

// conn is one candidate destination address parsed out of an address
// list, tracked across address-list replacements: a replacement address
// that hashes the same as the one it displaced at the same position is
// a no-op, not churn (§4.4.5 last paragraph).
type conn struct {
	addr   net.Addr
	hash   [32]byte
	direct bool // false for a relayed (tunnel) address
	ready  bool // false for a candidate this node cannot actually send to
}

// newConn builds a connection candidate for one parsed address entry.
func newConn(a message.Address, hash [32]byte) *conn {
	c := &conn{hash: hash}
	switch u := a.(type) {
	case *message.AddressUDP:
		c.addr = udpNetAddr(u.IP, u.Port)
		c.direct, c.ready = true, true
	case *message.AddressUDP6:
		c.addr = &net.UDPAddr{IP: append(net.IP(nil), u.IP...), Port: int(u.Port)}
		c.direct, c.ready = true, true
	case *message.AddressTunnel:
		// relayed through a third party; no tunnel transport is wired up
		// in this tree, so this candidate is carried for completeness but
		// never becomes sendable.
		c.direct, c.ready = false, false
	}
	return c
}

// buildConnsLocked rebuilds a connection list against a freshly learned
// address list, reusing the previous entry at the same position when its
// address hash is unchanged.
func buildConnsLocked(old []*conn, al *message.AddressList) []*conn {
	if al == nil {
		return nil
	}
	out := make([]*conn, len(al.Addrs))
	for i, a := range al.Addrs {
		raw, err := a.Bytes()
		if err != nil {
			continue
		}
		h := sha256.Sum256(raw)
		if i < len(old) && old[i] != nil && old[i].hash == h {
			out[i] = old[i]
			continue
		}
		out[i] = newConn(a, h)
	}
	return out
}

// PeerPair is the central ADNL state machine: one instance per ordered
// (local_id, peer_id) pair. It owns seqnos, the channel handshake, the
// outbound queue, fragmentation state and the query table.
type PeerPair struct {
	mtx sync.Mutex

	local *LocalId
	peer  *util.FullNodeId // may be learned lazily from an inbound packet

	table *PeerTable

	reinitDate int32 // last observed peer epoch
	inSeqno    uint64
	outSeqno   uint64
	ackSeqno   uint64
	recvMask   uint64

	channel *Channel

	addrList         *message.AddressList
	priorityAddrList *message.AddressList
	conns            []*conn // built from addrList, positionally hash-tracked
	priorityConns    []*conn // built from priorityAddrList

	queue []outboundEntry

	outQueries map[string]*queryHandle

	noChannelLimiter *tokenBucket

	huge reassembly

	lastReceived            time.Time
	tryReinitAt             time.Time
	dropAddrAt              time.Time
	handshakeSent           time.Time
	retrySendAt             time.Time // get_conn failed; don't retry before this
	nextDhtQueryAt          time.Time // debounce for DHT rediscovery
	nextDbUpdateAt          time.Time // debounce for persisted-cache reload
	respondWithNopAfter     time.Time // a Custom arrived; owe the peer a Nop
	requestReversePingAfter time.Time // debounce for request_reverse_ping
}

// NewPeerPair creates a lazily-populated state machine for (local, peer).
// peer may be nil if not yet known (the first inbound packet fills it in).
func NewPeerPair(table *PeerTable, local *LocalId, peer *util.FullNodeId) *PeerPair {
	return &PeerPair{
		local:            local,
		peer:             peer,
		table:            table,
		channel:          NewChannel(),
		outQueries:       make(map[string]*queryHandle),
		noChannelLimiter: newTokenBucket(),
	}
}

// primeFromPersisted seeds a freshly-created pair's address lists and
// epoch from a prior session's persisted record, skipping rediscovery.
func (pp *PeerPair) primeFromPersisted(rec *persistence.PeerRecord) {
	pp.mtx.Lock()
	defer pp.mtx.Unlock()
	pp.primeFromPersistedLocked(rec)
}

// primeFromPersistedLocked is primeFromPersisted for a caller already
// holding pp.mtx (the §4.4.7 DB-cache-refresh path reloads the same way
// on a debounced recheck, not just on first contact).
func (pp *PeerPair) primeFromPersistedLocked(rec *persistence.PeerRecord) {
	al, err := persistence.LoadAddrList(rec.AddrList)
	if err != nil {
		logger.Printf(logger.DBG, "[peerpair] discarding corrupt persisted address list: %s", err.Error())
		al = nil
	}
	prio, err := persistence.LoadAddrList(rec.PriorityAddrList)
	if err != nil {
		logger.Printf(logger.DBG, "[peerpair] discarding corrupt persisted priority address list: %s", err.Error())
		prio = nil
	}
	pp.reinitDate = rec.ReinitDate
	if al != nil {
		pp.setAddrListLocked(al, false)
	}
	if prio != nil {
		pp.setAddrListLocked(prio, true)
	}
}

// setAddrListLocked installs a freshly learned address list (ordinary or
// priority) and rebuilds the matching connection-candidate list from it.
func (pp *PeerPair) setAddrListLocked(al *message.AddressList, priority bool) {
	if priority {
		pp.priorityConns = buildConnsLocked(pp.priorityConns, al)
		pp.priorityAddrList = al
	} else {
		pp.conns = buildConnsLocked(pp.conns, al)
		pp.addrList = al
	}
}

// persistLocked saves the pair's current address lists and epoch, if the
// table has a persistence.Store configured. Called with pp.mtx held.
func (pp *PeerPair) persistLocked() {
	if pp.peer == nil {
		return
	}
	addrBytes, err := persistence.SaveAddrList(pp.addrList)
	if err != nil {
		return
	}
	prioBytes, err := persistence.SaveAddrList(pp.priorityAddrList)
	if err != nil {
		return
	}
	pp.table.persistPeer(pp.peer.Short(), &persistence.PeerRecord{
		ReinitDate:       pp.reinitDate,
		AddrList:         addrBytes,
		PriorityAddrList: prioBytes,
	})
}

//----------------------------------------------------------------------
// Sliding receive window (§4.4.1)
//----------------------------------------------------------------------

func (pp *PeerPair) receivedPacket(s uint64) bool {
	if s+seqWindow <= pp.inSeqno {
		return true
	}
	if s > pp.inSeqno {
		return false
	}
	bit := pp.inSeqno - s
	return pp.recvMask&(1<<bit) != 0
}

func (pp *PeerPair) addReceivedPacket(s uint64) {
	if s > pp.inSeqno {
		shift := s - pp.inSeqno
		if shift >= seqWindow {
			pp.recvMask = 0
		} else {
			pp.recvMask <<= shift
		}
		pp.inSeqno = s
	}
	pp.recvMask |= 1
}

//----------------------------------------------------------------------
// reinit (§4.4.1 step 3)
//----------------------------------------------------------------------

// reinit zeroes seqnos, drops the channel and clears reassembly state on
// observing a newer peer epoch.
func (pp *PeerPair) reinit(date int32) {
	logger.Printf(logger.INFO, "[peerpair] reinit to epoch %d", date)
	if pp.channel.Ready() || pp.channel.state != ChanNone {
		if len(pp.channel.InID()) > 0 {
			pp.table.UnregisterChannel(pp.channel.InID())
		}
		pp.channel.Drop()
	}
	pp.reinitDate = date
	pp.inSeqno, pp.outSeqno, pp.ackSeqno, pp.recvMask = 0, 0, 0, 0
	pp.huge = reassembly{}
	pp.persistLocked()
	if pp.peer != nil {
		pp.table.Notify(&Event{ID: EvDisconnect, Peer: pp.peer.Short()})
	}
}

// handleStaleChannelKey implements the UnregisterStaleChannelOnPromote
// resolution: a CreateChannel/ConfirmChannel carrying a peer key the
// peer has already moved past arrived. When the flag is set, we
// re-assert our own channel_in_id registration defensively (a cheap,
// idempotent no-op if nothing actually drifted); when clear, this is
// purely informational, matching the original's VLOG(ADNL_DEBUG)-only
// treatment of the same case.
func (pp *PeerPair) handleStaleChannelKey() {
	if !UnregisterStaleChannelOnPromote {
		logger.Printf(logger.DBG, "[peerpair] stale channel key observed, ignoring")
		return
	}
	if pp.channel.Ready() && len(pp.channel.InID()) > 0 {
		logger.Printf(logger.INFO, "[peerpair] stale channel key observed, re-asserting channel registration")
		pp.table.UnregisterChannel(pp.channel.InID())
		pp.table.RegisterChannel(pp.channel.InID(), pp, transport.CategoryOrdinary)
	}
}

//----------------------------------------------------------------------
// Receive pipeline (§4.4.1)
//----------------------------------------------------------------------

// ReceivePacket runs the checked-acceptance pipeline on a decrypted
// packet and, if accepted, dispatches its messages.
func (pp *PeerPair) ReceivePacket(ctx context.Context, pkt *message.PacketContents, src *util.FullNodeId) error {
	pp.mtx.Lock()
	defer pp.mtx.Unlock()

	if pp.peer == nil && src != nil {
		pp.peer = src
	}
	now := int32(time.Now().Unix())

	// 1. time-travel check: the peer claims we've reinited further into
	// the future than our own start time allows.
	if pkt.DstReinitDate > 0 && pkt.DstReinitDate > pp.local.StartTime() {
		return adnlerr.ProtocolViolation
	}
	// 2. clock skew
	if pkt.ReinitDate > now+60 {
		return adnlerr.Stale
	}
	// 3/4. peer epoch tracking
	if pkt.ReinitDate > pp.reinitDate {
		pp.reinit(pkt.ReinitDate)
	} else if pkt.ReinitDate > 0 && pkt.ReinitDate < pp.reinitDate {
		return adnlerr.Stale
	}
	// 5. peer thinks we're stale
	if pkt.DstReinitDate > 0 && pkt.DstReinitDate < pp.local.StartTime() {
		if pkt.AddrList != nil {
			pp.setAddrListLocked(pkt.AddrList, false)
		}
		if pkt.PrioAddr != nil {
			pp.setAddrListLocked(pkt.PrioAddr, true)
		}
		_ = pp.enqueueLocked(&message.ReinitMsg{Date: pp.local.StartTime()})
		pp.flushQueueLocked(ctx)
		return adnlerr.Stale
	}
	// 6. replay / duplicate
	if pkt.Flags&message.FlagSeqno != 0 && pkt.Seqno > 0 {
		if pp.receivedPacket(pkt.Seqno) {
			return adnlerr.Duplicate
		}
	}
	// 7. bogus ack
	if pkt.Flags&message.FlagConfirmSeqno != 0 && pkt.ConfirmSeq > 0 {
		if pkt.ConfirmSeq > pp.outSeqno {
			return adnlerr.ProtocolViolation
		}
	}

	if pkt.Flags&message.FlagSeqno != 0 && pkt.Seqno > 0 {
		pp.addReceivedPacket(pkt.Seqno)
	}
	if pkt.ConfirmSeq > pp.ackSeqno {
		pp.ackSeqno = pkt.ConfirmSeq
	}
	if pkt.AddrList != nil {
		pp.setAddrListLocked(pkt.AddrList, false)
		pp.persistLocked()
	}
	if pkt.PrioAddr != nil {
		pp.setAddrListLocked(pkt.PrioAddr, true)
		pp.persistLocked()
	}
	pp.lastReceived = time.Now()

	for _, m := range pkt.Messages {
		if err := pp.dispatchLocked(ctx, m); err != nil {
			logger.Printf(logger.DBG, "[peerpair] message dispatch failed: %s", err.Error())
		}
	}
	pp.flushQueueLocked(ctx)
	return nil
}

//----------------------------------------------------------------------
// Message handlers (§4.4.2)
//----------------------------------------------------------------------

func (pp *PeerPair) dispatchLocked(ctx context.Context, m message.Message) error {
	switch msg := m.(type) {
	case *message.CreateChannelMsg:
		localID, peerID := pp.local.ID(), pp.peer
		confirm, stale, err := pp.channel.HandleCreate(localID, peerID, msg.Key, msg.Date)
		if err != nil {
			return err
		}
		if stale {
			pp.handleStaleChannelKey()
		}
		if confirm != nil {
			if len(pp.channel.InID()) > 0 {
				pp.table.RegisterChannel(pp.channel.InID(), pp, transport.CategoryOrdinary)
			}
			return pp.enqueueLocked(confirm)
		}
		return nil

	case *message.ConfirmChannelMsg:
		localID, peerID := pp.local.ID(), pp.peer
		promoted, stale, err := pp.channel.HandleConfirm(localID, peerID, msg.Key, msg.PeerKey, msg.Date)
		if err != nil {
			return err
		}
		if stale {
			pp.handleStaleChannelKey()
		}
		if promoted {
			pp.table.RegisterChannel(pp.channel.InID(), pp, transport.CategoryOrdinary)
			pp.flushQueueLocked(ctx)
			pp.table.Notify(&Event{ID: EvConnect, Peer: peerID.Short()})
		}
		return nil

	case *message.CustomMsg:
		if pp.peer != nil {
			peerShort := pp.peer.Short()
			go pp.local.Dispatch(peerShort, msg.Data)
			pp.table.Notify(&Event{ID: EvMessage, Peer: peerShort, Msg: msg})
		}
		// the peer gets some packet back carrying our ack even if nothing
		// else is queued to it within the next couple of seconds.
		if pp.respondWithNopAfter.IsZero() {
			pp.respondWithNopAfter = time.Now().Add(respondWithNopMinWait + time.Duration(rand.Int63n(int64(respondWithNopJitter))))
		}
		return nil

	case *message.NopMsg:
		return nil

	case *message.ReinitMsg:
		pp.reinit(msg.Date)
		return nil

	case *message.QueryMsg:
		if pp.peer == nil {
			return adnlerr.UnknownDestination
		}
		peerShort := pp.peer.Short()
		go func() {
			answer, err := pp.local.Dispatch(peerShort, msg.Query)
			if err != nil || len(answer) > maxHugeMessage {
				return
			}
			pp.mtx.Lock()
			_ = pp.enqueueLocked(&message.AnswerMsg{QueryID: msg.QueryID, Answer: answer})
			pp.flushQueueLocked(ctx)
			pp.mtx.Unlock()
		}()
		return nil

	case *message.AnswerMsg:
		key := string(msg.QueryID)
		h, ok := pp.outQueries[key]
		if !ok {
			return adnlerr.UnknownDestination
		}
		delete(pp.outQueries, key)
		if len(msg.Answer) > maxHugeMessage {
			h.err <- adnlerr.TooBig
			return nil
		}
		h.reply <- msg.Answer
		return nil

	case *message.PartMsg:
		return pp.reassembleLocked(ctx, msg)

	default:
		return nil
	}
}

// reassembleLocked implements §4.4.2's single in-flight huge message
// buffer.
func (pp *PeerPair) reassembleLocked(ctx context.Context, part *message.PartMsg) error {
	h := &pp.huge
	if !h.active || !bytes.Equal(h.hash, part.Hash) {
		if part.Offset != 0 {
			return adnlerr.ProtocolViolation
		}
		if part.TotalSize <= 0 || int(part.TotalSize) > maxHugeMessage {
			return adnlerr.TooBig
		}
		h.hash = append([]byte(nil), part.Hash...)
		h.total = part.TotalSize
		h.offset = 0
		h.buf = make([]byte, part.TotalSize)
		h.active = true
	}
	if part.Offset != h.offset || int(part.Offset)+len(part.Data) > int(h.total) {
		return adnlerr.ProtocolViolation
	}
	copy(h.buf[part.Offset:], part.Data)
	h.offset += int32(len(part.Data))

	if h.offset == h.total {
		sum := sha256.Sum256(h.buf)
		ok := bytes.Equal(sum[:], h.hash)
		buf, hash := h.buf, h.hash
		*h = reassembly{}
		if !ok {
			return adnlerr.ProtocolViolation
		}
		inner, err := message.ParseMessage(buf)
		if err != nil {
			return err
		}
		_ = hash
		return pp.dispatchLocked(ctx, inner)
	}
	return nil
}

//----------------------------------------------------------------------
// Send pipeline (§4.4.3)
//----------------------------------------------------------------------

// SendMessages fragments oversized messages and enqueues everything for
// the next send burst.
func (pp *PeerPair) SendMessages(ctx context.Context, msgs []message.Message) error {
	pp.mtx.Lock()
	defer pp.mtx.Unlock()
	for _, m := range msgs {
		tagged, err := message.WriteMessage(m)
		if err != nil {
			return err
		}
		if len(tagged) <= message.MaxPartSize {
			if err := pp.enqueueLocked(m); err != nil {
				return err
			}
			continue
		}
		if len(tagged) > maxHugeMessage {
			return adnlerr.TooBig
		}
		body := tagged
		sum := sha256.Sum256(body)
		for off := 0; off < len(body); off += message.MaxPartSize {
			end := off + message.MaxPartSize
			if end > len(body) {
				end = len(body)
			}
			part := &message.PartMsg{
				Hash:      sum[:],
				TotalSize: int32(len(body)),
				Offset:    int32(off),
				Data:      body[off:end],
			}
			if err := pp.enqueueLocked(part); err != nil {
				return err
			}
		}
	}
	pp.flushQueueLocked(ctx)
	return nil
}

// SendQuery implements send_query (§4.4.6): it enqueues a fresh Query
// carrying body, and returns channels that resolve with either the
// matching Answer or adnlerr.Timeout once timeout elapses with no reply.
// name labels the query for logging only; it plays no part in matching
// the reply (that's QueryID's job).
func (pp *PeerPair) SendQuery(ctx context.Context, name string, timeout time.Duration, body []byte) (<-chan []byte, <-chan error) {
	qid := util.NewRndArray(32)
	h := &queryHandle{reply: make(chan []byte, 1), err: make(chan error, 1)}

	pp.mtx.Lock()
	pp.outQueries[string(qid)] = h
	_ = pp.enqueueLocked(&message.QueryMsg{QueryID: qid, Query: body})
	pp.flushQueueLocked(ctx)
	pp.mtx.Unlock()

	time.AfterFunc(timeout, func() {
		pp.mtx.Lock()
		defer pp.mtx.Unlock()
		if _, ok := pp.outQueries[string(qid)]; !ok {
			return // already resolved by an Answer
		}
		delete(pp.outQueries, string(qid))
		peerTag := "unknown"
		if pp.peer != nil {
			peerTag = pp.peer.Short().String()
		}
		logger.Printf(logger.DBG, "[peerpair] query %q to %s timed out", name, peerTag)
		h.err <- adnlerr.Timeout
	})
	return h.reply, h.err
}

func (pp *PeerPair) enqueueLocked(m message.Message) error {
	pp.queue = append(pp.queue, outboundEntry{msg: m, deadline: time.Now().Add(queueTTL)})
	return nil
}

// flushQueueLocked assembles and sends one datagram carrying as many
// queued messages as fit in it; messages that do not fit stay queued
// for the next flush. Nothing is sent when no connection is available.
func (pp *PeerPair) flushQueueLocked(ctx context.Context) {
	now := time.Now()
	if !pp.respondWithNopAfter.IsZero() && now.After(pp.respondWithNopAfter) {
		pp.respondWithNopAfter = time.Time{}
		_ = pp.enqueueLocked(&message.NopMsg{})
	}

	kept := pp.queue[:0]
	for _, e := range pp.queue {
		if e.deadline.Before(now) {
			continue
		}
		kept = append(kept, e)
	}
	pp.queue = kept
	if len(pp.queue) == 0 {
		return
	}

	addr, ok := pp.pickAddrLocked(ctx)
	if !ok {
		pp.retrySendAt = now.Add(noChannelRetryDelay)
		pp.armDiscoveryLocked(ctx)
		return // NotReady: rediscovery will retry and call flush again
	}

	reinitDue := !pp.tryReinitAt.IsZero() && now.After(pp.tryReinitAt)
	viaChannel := pp.channel.Ready() && !reinitDue

	if !viaChannel {
		if !pp.noChannelLimiter.take(now) {
			logger.Printf(logger.DBG, "[peerpair] no-channel rate limit hit, deferring send (ready at %s)",
				pp.noChannelLimiter.readyAt(now).Format(time.RFC3339))
			return
		}
	}

	budget := 1440
	if viaChannel {
		budget -= message.ChannelHeaderReserve
	} else {
		budget -= message.NonChannelHeaderReserve + message.NonChannelSignatureReserve
	}

	pkt := message.NewPacketContents()
	pkt.Flags |= message.FlagSeqno | message.FlagConfirmSeqno
	pp.outSeqno++
	pkt.Seqno = pp.outSeqno
	pkt.ConfirmSeq = pp.inSeqno

	if !pp.channel.Ready() {
		if pp.channel.state == ChanNone {
			pkt.Messages = append(pkt.Messages, pp.channel.CreateChannelMsg())
			pp.handshakeSent = now
		} else if pp.channel.state == ChanInited {
			pkt.Messages = append(pkt.Messages, pp.channel.CreateChannelMsg())
		}
	} else if reinitDue {
		pkt.Messages = append(pkt.Messages, pp.channel.CreateChannelMsg())
	}

	var i int
	for i = 0; i < len(pp.queue); i++ {
		mb, err := pp.queue[i].msg.Bytes()
		if err != nil {
			continue
		}
		if len(mb)+8 > budget {
			break
		}
		budget -= len(mb) + 8
		pkt.Messages = append(pkt.Messages, pp.queue[i].msg)
	}
	pp.queue = pp.queue[i:]
	if len(pkt.Messages) > 0 {
		pkt.Flags |= message.FlagMessages
	}

	if !viaChannel {
		pkt.Flags |= message.FlagFrom | message.FlagReinitDate | message.FlagDstReinitDate
		pkt.From = pp.local.ID()
		pkt.ReinitDate = pp.local.ReinitDate()
		pkt.DstReinitDate = pp.reinitDate
		if err := pp.local.Sign(pkt); err != nil {
			logger.Printf(logger.ERROR, "[peerpair] signing failed: %s", err.Error())
			return
		}
	}

	body, err := pkt.Bytes()
	if err != nil {
		logger.Printf(logger.ERROR, "[peerpair] packet encode failed: %s", err.Error())
		return
	}

	var datagram []byte
	if viaChannel {
		datagram, err = pp.channel.Encrypt(body)
	} else {
		var ephPub *crypto.PublicKey
		var ct []byte
		ephPub, ct, err = pp.local.Encrypt(pp.peerLongPub(), body)
		if err == nil {
			dst := pp.peer.Short().Bytes()
			datagram = make([]byte, 0, 32+32+len(ct))
			datagram = append(datagram, dst...)
			datagram = append(datagram, ephPub.Bytes()...)
			datagram = append(datagram, ct...)
		}
	}
	if err != nil {
		logger.Printf(logger.ERROR, "[peerpair] seal failed: %s", err.Error())
		return
	}
	if err := pp.table.net.Send(ctx, transport.CategoryOrdinary, addr, datagram); err != nil {
		logger.Printf(logger.DBG, "[peerpair] send failed: %s", err.Error())
	}
}

func (pp *PeerPair) peerLongPub() *crypto.PublicKey {
	return crypto.NewPublicKey(pp.peer.Bytes())
}

// pickAddrLocked is get_conn (§4.4.5): two passes over priorityConns then
// conns, direct-only first and then any connection, so a relayed address
// is only used once nothing direct is reachable. If nothing is sendable
// at all and either address list asks for a reverse ping, it requests
// one (debounced) and reports NotReady either way.
func (pp *PeerPair) pickAddrLocked(ctx context.Context) (net.Addr, bool) {
	search := func(directOnly bool) (net.Addr, bool) {
		for _, list := range [][]*conn{pp.priorityConns, pp.conns} {
			for _, c := range list {
				if c == nil || !c.ready {
					continue
				}
				if directOnly && !c.direct {
					continue
				}
				return c.addr, true
			}
		}
		return nil, false
	}
	if addr, ok := search(true); ok {
		return addr, true
	}
	if addr, ok := search(false); ok {
		return addr, true
	}
	if (pp.addrList != nil && pp.addrList.HasReverse) || (pp.priorityAddrList != nil && pp.priorityAddrList.HasReverse) {
		pp.requestReversePingLocked(ctx)
	}
	return nil, false
}

// requestReversePingLocked asks the DHT to relay a reverse-ping to this
// pair's peer, debounced to at most once every 15s.
func (pp *PeerPair) requestReversePingLocked(ctx context.Context) {
	now := time.Now()
	if !pp.requestReversePingAfter.IsZero() && now.Before(pp.requestReversePingAfter) {
		return
	}
	pp.requestReversePingAfter = now.Add(reversePingDebounce)
	if pp.peer == nil {
		return
	}
	peer := pp.peer
	go func() {
		if err := pp.table.requestReversePing(ctx, peer); err != nil {
			logger.Printf(logger.DBG, "[peerpair] reverse ping request for %s failed: %s", peer.Short(), err.Error())
		}
	}()
}

// armDiscoveryLocked is the rediscovery half of step 3's connection-
// selection failure: a debounced DHT lookup for a fresher address list,
// plus a debounced reload from the persisted cache, so a send that finds
// nothing to address doesn't just give up silently (§4.4.7).
func (pp *PeerPair) armDiscoveryLocked(ctx context.Context) {
	if pp.peer == nil {
		return
	}
	now := time.Now()
	peer := pp.peer

	if pp.nextDhtQueryAt.IsZero() || now.After(pp.nextDhtQueryAt) {
		pp.nextDhtQueryAt = now.Add(discoveryInterval())
		go func() {
			al, err := pp.table.discoverViaDHT(ctx, peer)
			if err != nil {
				logger.Printf(logger.DBG, "[peerpair] DHT lookup for %s found nothing: %s", peer.Short(), err.Error())
				return
			}
			pp.mtx.Lock()
			pp.setAddrListLocked(al, al.Priority != 0)
			pp.persistLocked()
			pp.flushQueueLocked(ctx)
			pp.mtx.Unlock()
		}()
	}

	if pp.nextDbUpdateAt.IsZero() || now.After(pp.nextDbUpdateAt) {
		pp.nextDbUpdateAt = now.Add(discoveryInterval())
		if rec := pp.table.loadPersistedPeer(peer.Short()); rec != nil {
			pp.primeFromPersistedLocked(rec)
		}
	}
}

// udpNetAddr turns a wire-encoded IPv4 (big-endian uint32) and port into
// a dialable net.Addr.
func udpNetAddr(ip uint32, port int32) *net.UDPAddr {
	b := []byte{byte(ip >> 24), byte(ip >> 16), byte(ip >> 8), byte(ip)}
	return &net.UDPAddr{IP: net.IP(b), Port: int(port)}
}
