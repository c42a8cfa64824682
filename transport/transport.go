// This file is part of gnunet-go, a GNUnet-implementation in Golang.
// Copyright (C) 2022 Bernd Fix  >Y<
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

// Package transport is the NetworkManager: it owns the UDP sockets ADNL
// speaks on and moves raw, still-encrypted datagrams between the wire
// and core. It never parses a packetContents or touches a key; that is
// core's job once a Datagram reaches it.
package transport

import (
	"context"
	"errors"
	"net"

	"github.com/bfix/gospel/network"

	"github.com/adnl-go/adnl/util"
)

// Transport layer error codes
var (
	ErrTransNoEndpoint = errors.New("no matching endpoint found")
	ErrTransNoUPNP     = errors.New("no UPnP available")
)

//======================================================================
// Datagram-oriented transport implementation
//======================================================================

// Category distinguishes the logical UDP sockets a node listens on: the
// spec allows a node to advertise several addr_list entries (ordinary
// traffic and a higher-priority lane for time-sensitive messages) that
// may or may not share a socket. One Category is one PaketEndpoint.
type Category int

const (
	// CategoryOrdinary is the default, always-present listening socket.
	CategoryOrdinary Category = iota
	// CategoryPriority is the priority_addr_list lane, when distinct.
	CategoryPriority
)

// Datagram is one inbound UDP packet, still fully encrypted: the
// 32-byte channel-id or short-id prefix and everything after it,
// untouched. core.PeerPair decides what the prefix means.
type Datagram struct {
	// Cat is the socket the datagram arrived on.
	Cat Category

	// Src is the address it came from.
	Src net.Addr

	// Raw is the undecrypted packet body.
	Raw []byte

	// Label for log messages during message processing
	Label string
}

// NewDatagram wraps a read buffer; buf is copied since PaketEndpoint
// reuses its read buffer across calls.
func NewDatagram(cat Category, src net.Addr, buf []byte) *Datagram {
	return &Datagram{
		Cat: cat,
		Src: src,
		Raw: util.Clone(buf),
	}
}

//----------------------------------------------------------------------

// Transport enables UDP datagram exchange on one or more Category
// sockets, fanning every arriving Datagram into a single channel.
type Transport struct {
	incoming  chan *Datagram               // datagrams as received from the network
	endpoints *util.Map[Category, *PaketEndpoint] // one endpoint per category
	upnp      *network.PortMapper          // UPnP mapper (optional)
}

// NewTransport creates a transport layer ready to accept Listen calls.
func NewTransport(ctx context.Context, tag string, ch chan *Datagram) (t *Transport) {
	mngr, err := network.NewPortMapper(tag)
	if err != nil {
		mngr = nil
	}
	return &Transport{
		incoming:  ch,
		endpoints: util.NewMap[Category, *PaketEndpoint](),
		upnp:      mngr,
	}
}

// Shutdown transport-related processes
func (t *Transport) Shutdown() {
	if t.upnp != nil {
		t.upnp.Close()
	}
}

// Send a datagram to addr over the named category's socket.
func (t *Transport) Send(ctx context.Context, cat Category, addr net.Addr, payload []byte) (err error) {
	ep, ok := t.endpoints.Get(cat, 0)
	if !ok {
		return ErrTransNoEndpoint
	}
	return ep.Send(ctx, addr, payload)
}

//----------------------------------------------------------------------
// Endpoint handling
//----------------------------------------------------------------------

// Listen instantiates and runs a new UDP endpoint for cat on addr (must
// map to a local network interface).
func (t *Transport) Listen(ctx context.Context, cat Category, addr net.Addr) (ep *PaketEndpoint, err error) {
	if addr == nil {
		err = ErrEndpNoAddress
		return
	}
	if _, exists := t.endpoints.Get(cat, 0); exists {
		err = ErrEndpExists
		return
	}
	if ep, err = newPaketEndpoint(addr); err != nil {
		return
	}
	t.endpoints.Put(cat, ep, 0)
	if err = ep.Run(ctx, cat, t.incoming); err != nil {
		return
	}
	return
}

// LocalAddr returns the address a category is bound to, for building
// this node's own addr_list.
func (t *Transport) LocalAddr(cat Category) (net.Addr, bool) {
	ep, ok := t.endpoints.Get(cat, 0)
	if !ok {
		return nil, false
	}
	return ep.Address(), true
}

//----------------------------------------------------------------------
// UPnP handling
//----------------------------------------------------------------------

// ForwardOpen returns a local address for listening that will receive
// traffic from a port forward handled by UPnP on the router.
func (t *Transport) ForwardOpen(protocol, param string, port int) (id, local, remote string, err error) {
	if t.upnp == nil {
		err = ErrTransNoUPNP
		return
	}
	return t.upnp.Assign(protocol, port)
}

// ForwardClose closes a specific port forwarding
func (t *Transport) ForwardClose(id string) error {
	if t.upnp == nil {
		return ErrTransNoUPNP
	}
	return t.upnp.Unassign(id)
}
