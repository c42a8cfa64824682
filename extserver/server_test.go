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

package extserver

import (
	"fmt"
	"testing"
	"time"

	"github.com/adnl-go/adnl/crypto"
	"github.com/adnl-go/adnl/message"
)

func startServer(t *testing.T) *Server {
	t.Helper()
	srv := NewServer()
	if err := srv.Listen("tcp+127.0.0.1:0"); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { srv.Close() })
	// Listen binds synchronously, so Address is usable once it returns.
	return srv
}

func dial(t *testing.T, srv *Server) *Client {
	t.Helper()
	addr := srv.Address()
	if addr == nil {
		t.Fatal("server has no bound address")
	}
	cl, err := Dial(fmt.Sprintf("tcp+%s", addr.String()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { cl.Close() })
	return cl
}

func TestPingPong(t *testing.T) {
	srv := startServer(t)
	cl := dial(t, srv)

	if err := cl.Ping(0x1234); err != nil {
		t.Fatalf("ping failed: %s", err.Error())
	}
}

func TestAuthenticateRoundTrip(t *testing.T) {
	srv := startServer(t)
	srv.RequireAuth = true

	_, prv := crypto.NewKeypair()

	authDone := make(chan error, 1)
	cl := dial(t, srv)
	go func() { authDone <- cl.Authenticate(prv) }()

	select {
	case err := <-authDone:
		if err != nil {
			t.Fatalf("client authentication failed: %s", err.Error())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("authentication round timed out")
	}

	// the connection is authenticated now; ordinary lite queries proceed.
	if err := cl.Ping(42); err != nil {
		t.Fatalf("ping after auth failed: %s", err.Error())
	}
}

func TestAuthenticateRejectsBadSignature(t *testing.T) {
	srv := startServer(t)
	srv.RequireAuth = true

	_, signer := crypto.NewKeypair()
	_, impostor := crypto.NewKeypair()

	cl := dial(t, srv)

	// receive the nonce ourselves and reply signed by the wrong key, so the
	// server's Verify fails and it closes the connection without serving
	// any further query.
	done := make(chan struct{})
	go func() {
		defer close(done)
		msg, err := cl.mc.Receive(cl.sig)
		if err != nil {
			return
		}
		challenge, ok := msg.(*message.TCPAuthNonceMsg)
		if !ok {
			return
		}
		sig, err := impostor.Sign(challenge.Nonce)
		if err != nil {
			return
		}
		// the frame claims signer's identity but carries impostor's
		// signature; the handshake has no reply leg, so sending is all
		// the client side can do here.
		_ = cl.mc.Send(&message.TCPAuthSignedMsg{Key: signer.Public().Bytes(), Signature: sig.Bytes()}, cl.sig)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("authentication round timed out")
	}

	// the server must have dropped the connection instead of serving a
	// query on an unverified identity.
	if err := cl.Ping(1); err == nil {
		t.Fatal("expected ping to fail on an unauthenticated connection")
	}
}
