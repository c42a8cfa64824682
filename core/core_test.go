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

package core

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/adnl-go/adnl/crypto"
	"github.com/adnl-go/adnl/message"
	"github.com/adnl-go/adnl/transport"
	"github.com/adnl-go/adnl/util"
)

//----------------------------------------------------------------------
// Two-node loopback network: verifies a Custom message sent on one
// Core's LocalId is delivered to the other's. The channel handshake
// runs alongside the delivery; its outcome and the connect event are
// not asserted here.
//----------------------------------------------------------------------

type testNode struct {
	t     *testing.T
	core  *Core
	id    *LocalId
	addr  net.Addr
	event chan *Event
}

func newTestNode(t *testing.T, ctx context.Context, name string) *testNode {
	t.Helper()
	seed := make([]byte, 32)
	copy(seed, []byte(name))
	prv := crypto.PrivateKeyFromSeed(seed)

	c := NewCore(ctx, name)
	id := c.AddLocalId(prv)

	laddr, err := net.ResolveUDPAddr("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Listen(ctx, transport.CategoryOrdinary, laddr); err != nil {
		t.Fatal(err)
	}
	addr, ok := c.trans.LocalAddr(transport.CategoryOrdinary)
	if !ok {
		t.Fatal("no local address bound")
	}

	events := make(chan *Event, 16)
	c.Register(name, NewListener(events, nil))

	return &testNode{t: t, core: c, id: id, addr: addr, event: events}
}

func (n *testNode) learn(peer *testNode) {
	al := &message.AddressList{
		Addrs: []message.Address{addrFromNet(peer.addr)},
	}
	n.core.Learn(n.id, peer.id.ID(), al)
}

func addrFromNet(a net.Addr) message.Address {
	u := a.(*net.UDPAddr)
	ip := u.IP.To4()
	return &message.AddressUDP{
		IP:   uint32(ip[0])<<24 | uint32(ip[1])<<16 | uint32(ip[2])<<8 | uint32(ip[3]),
		Port: int32(u.Port),
	}
}

func TestCoreChannelHandshakeAndCustomMessage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	alice := newTestNode(t, ctx, "alice-adnl-test-seed-000000000")
	bob := newTestNode(t, ctx, "bob-adnl-test-seed-0000000000")

	alice.learn(bob)
	bob.learn(alice)

	received := make(chan []byte, 1)
	if err := bob.id.Subscribe([]byte{0xAB}, func(_ *util.ShortNodeId, data []byte) ([]byte, error) {
		received <- data
		return nil, nil
	}); err != nil {
		t.Fatal(err)
	}

	payload := []byte{0xAB, 0xCD, 0xEF}
	if err := alice.core.Send(ctx, alice.id, bob.id.ID(), &message.CustomMsg{Data: payload}); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-received:
		if len(got) != len(payload) {
			t.Fatalf("got %d bytes, want %d", len(got), len(payload))
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for custom message delivery")
	}
}
