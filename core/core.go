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
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/bfix/gospel/logger"

	"github.com/adnl-go/adnl/crypto"
	"github.com/adnl-go/adnl/dht"
	"github.com/adnl-go/adnl/message"
	"github.com/adnl-go/adnl/persistence"
	"github.com/adnl-go/adnl/transport"
	"github.com/adnl-go/adnl/util"
)

// Core-related error codes.
var (
	ErrCoreUnknownLocalId = errors.New("core: no such local id")
)

// Core is the ADNL node: it runs the message pump reading Datagrams off
// the transport and routing them through a PeerTable, and is the handle
// a process-level caller (cmd/adnl-node) uses to add identities, send
// messages and subscribe to events.
type Core struct {
	trans *transport.Transport
	table *PeerTable

	incoming chan *transport.Datagram

	mtx       sync.Mutex
	listeners map[string]*Listener
}

// NewCore starts a node's transport and message pump; Listen must still
// be called for each Category the node will receive on.
func NewCore(ctx context.Context, tag string) *Core {
	incoming := make(chan *transport.Datagram, 64)
	trans := transport.NewTransport(ctx, tag, incoming)
	table := NewPeerTable(trans)
	c := &Core{
		trans:     trans,
		table:     table,
		incoming:  incoming,
		listeners: make(map[string]*Listener),
	}
	table.SetNotify(c.dispatch)
	go c.pump(ctx)
	return c
}

// pump drains inbound Datagrams into the PeerTable's routing pipeline.
func (c *Core) pump(ctx context.Context) {
	for {
		select {
		case dg := <-c.incoming:
			if err := c.table.Route(ctx, dg); err != nil {
				logger.Printf(logger.DBG, "[core] dropped datagram from %s: %s", dg.Src, err.Error())
			}
		case <-ctx.Done():
			return
		}
	}
}

// Shutdown releases the transport's sockets and UPnP mappings.
func (c *Core) Shutdown() {
	c.trans.Shutdown()
}

//----------------------------------------------------------------------
// Identities and listening
//----------------------------------------------------------------------

// AddLocalId generates a LocalId from a long-term key and registers it
// with the node's PeerTable.
func (c *Core) AddLocalId(prv *crypto.PrivateKey) *LocalId {
	id := NewLocalId(prv)
	c.table.AddLocalId(id)
	logger.Printf(logger.INFO, "[core] local id %s ready", id.Short())
	return id
}

// Listen opens a UDP endpoint for the given category.
func (c *Core) Listen(ctx context.Context, cat transport.Category, addr net.Addr) error {
	_, err := c.trans.Listen(ctx, cat, addr)
	return err
}

//----------------------------------------------------------------------
// Sending
//----------------------------------------------------------------------

// Send enqueues msgs on the PeerPair between local and peer, creating
// the pair (and its handshake) on first contact.
func (c *Core) Send(ctx context.Context, local *LocalId, peer *util.FullNodeId, msgs ...message.Message) error {
	pair := c.table.PairWith(local, peer)
	return pair.SendMessages(ctx, msgs)
}

// Learn merges a newly-discovered address list for a peer into its
// PeerPair, so the next send burst has somewhere to go.
func (c *Core) Learn(local *LocalId, peer *util.FullNodeId, al *message.AddressList) {
	pair := c.table.PairWith(local, peer)
	pair.mtx.Lock()
	pair.setAddrListLocked(al, al.Priority != 0)
	pair.persistLocked()
	pair.mtx.Unlock()
}

// SendQuery enqueues a Query on the PeerPair between local and peer and
// returns channels that resolve with either its Answer or a timeout
// error (§4.4.6); name labels the query for logging only.
func (c *Core) SendQuery(ctx context.Context, local *LocalId, peer *util.FullNodeId, name string, timeout time.Duration, body []byte) (<-chan []byte, <-chan error) {
	pair := c.table.PairWith(local, peer)
	return pair.SendQuery(ctx, name, timeout, body)
}

// UsePersistence installs a peer address/epoch store so PeerPairs survive
// a restart instead of rediscovering every peer from scratch.
func (c *Core) UsePersistence(store *persistence.Store) {
	c.table.SetPersistence(store)
}

// UseDHT installs the collaborator PeerPairs use to rediscover an
// address list or request a reverse ping once a direct address stops
// working (§4.4.7).
func (c *Core) UseDHT(client dht.Client) {
	c.table.SetDHTClient(client)
}

//----------------------------------------------------------------------
// Event listener and event dispatch
//----------------------------------------------------------------------

// Register a named event listener.
func (c *Core) Register(name string, l *Listener) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.listeners[name] = l
}

// Unregister a named event listener.
func (c *Core) Unregister(name string) *Listener {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if l, ok := c.listeners[name]; ok {
		delete(c.listeners, name)
		return l
	}
	return nil
}

// dispatch fans an event out to every listener whose filter accepts it.
func (c *Core) dispatch(ev *Event) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	for _, l := range c.listeners {
		if !l.filter.CheckEvent(ev.ID) {
			continue
		}
		if ev.ID == EvMessage && ev.Msg != nil && !l.filter.CheckMsgType(ev.Msg.MsgTag()) {
			continue
		}
		go func(l *Listener, ev *Event) { l.ch <- ev }(l, ev)
	}
}
