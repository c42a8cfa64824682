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

package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/bfix/gospel/logger"

	"github.com/adnl-go/adnl/util"
)

var (
	ErrEndpNotAvailable     = errors.New("no endpoint for address available")
	ErrEndpProtocolMismatch = errors.New("transport protocol mismatch")
	ErrEndpProtocolUnknown  = errors.New("unknown transport protocol")
	ErrEndpExists           = errors.New("endpoint exists")
	ErrEndpNoAddress        = errors.New("no address for endpoint")
	ErrEndpWriteShort       = errors.New("write too short")
)

//----------------------------------------------------------------------
// Packet-oriented endpoint
//
// ADNL only ever needs a UDP (packet) endpoint here: the lite-query TCP
// surface (tcp.ping/tcp.pong/tcp.authentificationNonce) is a separate
// per-connection protocol handled by the extserver package, not a
// datagram fan-in like this one, so the old StreamEndpoint has no
// equivalent in this package.
//----------------------------------------------------------------------

// PaketEndpoint is a single UDP socket, read by one goroutine that
// forwards every packet it sees as a Datagram.
type PaketEndpoint struct {
	id   int            // endpoint identifier
	addr net.Addr       // endpoint address
	conn net.PacketConn // packet connection
	buf  []byte         // buffer for read operations
	mtx  sync.Mutex     // mutex for send operations
}

// Run the endpoint: bind the socket and forward received packets.
func (ep *PaketEndpoint) Run(ctx context.Context, cat Category, hdlr chan *Datagram) (err error) {
	var lc net.ListenConfig
	netw := EpProtocol(ep.addr.Network())
	if ep.conn, err = lc.ListenPacket(ctx, netw, ep.addr.String()); err != nil {
		return
	}
	ep.addr = ep.conn.LocalAddr()

	go func() {
		<-ctx.Done()
		ep.conn.Close()
	}()
	go func() {
		for {
			dg, err := ep.read(cat)
			if err != nil {
				logger.Println(logger.DBG, "[pkt_ep] read failed: "+err.Error())
				break
			}
			dg.Label = ep.addr.String()
			go func() { hdlr <- dg }()
		}
		ep.conn.Close()
	}()
	return
}

// read one raw datagram off the socket. ADNL does no message framing at
// this layer: the whole packet (channel/short-id prefix plus sealed or
// AES-encrypted body) is handed upward untouched.
func (ep *PaketEndpoint) read(cat Category) (dg *Datagram, err error) {
	n, src, err := ep.conn.ReadFrom(ep.buf)
	if err != nil {
		return
	}
	return NewDatagram(cat, src, ep.buf[:n]), nil
}

// Send writes a raw payload to addr.
func (ep *PaketEndpoint) Send(ctx context.Context, addr net.Addr, payload []byte) (err error) {
	ep.mtx.Lock()
	defer ep.mtx.Unlock()

	if ep.conn == nil {
		return ErrEndpNotAvailable
	}
	var a *net.UDPAddr
	if a, err = net.ResolveUDPAddr(EpProtocol(addr.Network()), addr.String()); err != nil {
		return
	}
	if err = ep.conn.SetWriteDeadline(time.Now().Add(time.Second)); err != nil {
		logger.Println(logger.DBG, "[pkt_ep] SetWriteDeadline failed: "+err.Error())
		return
	}
	var n int
	if n, err = ep.conn.WriteTo(payload, a); err != nil {
		return
	}
	if n != len(payload) {
		return ErrEndpWriteShort
	}
	return nil
}

// Address returns the actual listening address.
func (ep *PaketEndpoint) Address() net.Addr {
	return ep.addr
}

// CanSendTo returns true if the endpoint's protocol matches addr's.
func (ep *PaketEndpoint) CanSendTo(addr net.Addr) bool {
	return EpProtocol(addr.Network()) == EpProtocol(ep.addr.Network())
}

// ID returns the endpoint identifier.
func (ep *PaketEndpoint) ID() int {
	return ep.id
}

// newPaketEndpoint creates a new UDP endpoint for addr.
func newPaketEndpoint(addr net.Addr) (ep *PaketEndpoint, err error) {
	if EpProtocol(addr.Network()) != "udp" {
		err = ErrEndpProtocolMismatch
		return
	}
	ep = &PaketEndpoint{
		id:   util.NextID(),
		addr: addr,
		buf:  make([]byte, 65536),
	}
	return
}

//----------------------------------------------------------------------
// derive the base transport protocol from a net.Addr.Network() string
//----------------------------------------------------------------------

// EpProtocol returns the base transport protocol for a network string
// that may carry extra, non-Go-stdlib qualifiers.
func EpProtocol(netw string) string {
	switch netw {
	case "udp", "udp4", "udp6":
		return "udp"
	}
	return ""
}
