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

// Package extserver is ADNL's TCP lite-query surface: a plain
// request/response endpoint (tcp.ping/tcp.pong, plus an optional
// nonce-signature handshake) that does not go through the UDP
// PeerPair/Channel machinery at all. Framing is transport.MsgChannel's
// 4-byte-length-prefixed tagged record, the same wire shape
// transport/channel.go already defines for this purpose.
package extserver

import (
	"errors"
	"net"
	"sync"

	"github.com/bfix/gospel/concurrent"
	"github.com/bfix/gospel/logger"

	"github.com/adnl-go/adnl/message"
	"github.com/adnl-go/adnl/transport"
	"github.com/adnl-go/adnl/util"
)

// NonceSize is the length of the random challenge a server sends in a
// TCPAuthNonceMsg.
const NonceSize = 32

var (
	errNotListening  = errors.New("extserver: not listening")
	errUnexpectedMsg = errors.New("extserver: unexpected message on lite-query connection")
)

// Server accepts TCP connections and answers tcp.ping / performs the
// optional nonce-authentication round on each one, handing off any
// other lite query to QueryHandler.
type Server struct {
	mtx     sync.Mutex
	srv     transport.ChannelServer
	hdlr    chan transport.Channel
	running bool

	// RequireAuth, when true, makes every new connection run the
	// nonce-challenge round before any other message is accepted.
	RequireAuth bool

	// QueryHandler answers any message that isn't tcp.ping/tcp.auth*;
	// nil means such a message is logged and the connection is closed.
	QueryHandler func(peer *util.FullNodeId, req message.Message) (message.Message, error)
}

// NewServer returns an idle Server; call Listen to start accepting.
func NewServer() *Server {
	return &Server{}
}

// Listen starts accepting TCP connections at spec (a transport.Channel
// spec string, e.g. "tcp+127.0.0.1:4924").
func (s *Server) Listen(spec string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	hdlr := make(chan transport.Channel)
	srv, err := transport.NewChannelServer(spec, hdlr)
	if err != nil {
		return err
	}
	s.srv, s.hdlr, s.running = srv, hdlr, true
	go s.acceptLoop()
	return nil
}

// Address returns the bound listen address, or nil if not (yet) listening.
// Useful for tests and for a caller that binds an ephemeral ":0" port.
func (s *Server) Address() net.Addr {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.srv == nil {
		return nil
	}
	return s.srv.Address()
}

// Close stops accepting connections.
func (s *Server) Close() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if !s.running {
		return errNotListening
	}
	s.running = false
	return s.srv.Close()
}

func (s *Server) acceptLoop() {
	sig := concurrent.NewSignaller()
	for {
		ch := <-s.hdlr
		if ch == nil {
			return
		}
		go s.handleConn(ch, sig)
	}
}

func (s *Server) handleConn(ch transport.Channel, sig *concurrent.Signaller) {
	mc := transport.NewMsgChannel(ch)
	defer mc.Close()

	var peer *util.FullNodeId
	if s.RequireAuth {
		id, err := authenticate(mc, sig)
		if err != nil {
			logger.Printf(logger.WARN, "[extserver] authentication failed: %s", err.Error())
			return
		}
		peer = id
	}

	for {
		msg, err := mc.Receive(sig)
		if err != nil {
			return
		}
		if err := s.dispatch(mc, sig, peer, msg); err != nil {
			logger.Printf(logger.DBG, "[extserver] dispatch failed: %s", err.Error())
			return
		}
	}
}

func (s *Server) dispatch(mc *transport.MsgChannel, sig *concurrent.Signaller, peer *util.FullNodeId, msg message.Message) error {
	switch m := msg.(type) {
	case *message.TCPPingMsg:
		return mc.Send(&message.TCPPongMsg{RandomID: m.RandomID}, sig)
	case *message.TCPAuthNonceMsg, *message.TCPAuthSignedMsg:
		return errUnexpectedMsg
	default:
		if s.QueryHandler == nil {
			return errUnexpectedMsg
		}
		reply, err := s.QueryHandler(peer, msg)
		if err != nil {
			return err
		}
		if reply == nil {
			return nil
		}
		return mc.Send(reply, sig)
	}
}

// authenticate runs the server side of the nonce-challenge round:
// challenge the client with a fresh random nonce, expect a signed reply,
// and verify it against the embedded public key.
func authenticate(mc *transport.MsgChannel, sig *concurrent.Signaller) (*util.FullNodeId, error) {
	nonce := util.NewRndArray(NonceSize)
	if err := mc.Send(&message.TCPAuthNonceMsg{Nonce: nonce}, sig); err != nil {
		return nil, err
	}
	msg, err := mc.Receive(sig)
	if err != nil {
		return nil, err
	}
	reply, ok := msg.(*message.TCPAuthSignedMsg)
	if !ok {
		return nil, errUnexpectedMsg
	}
	id, err := util.NewFullNodeId(reply.Key)
	if err != nil {
		return nil, err
	}
	if !id.Verify(nonce, reply.Signature) {
		return nil, errors.New("extserver: nonce signature does not verify")
	}
	return id, nil
}
