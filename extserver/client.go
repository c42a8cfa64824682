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
	"errors"

	"github.com/bfix/gospel/concurrent"

	"github.com/adnl-go/adnl/crypto"
	"github.com/adnl-go/adnl/message"
	"github.com/adnl-go/adnl/transport"
	"github.com/adnl-go/adnl/util"
)

// Client is a lite-query connection to one extserver.Server.
type Client struct {
	ch  transport.Channel
	mc  *transport.MsgChannel
	sig *concurrent.Signaller
}

// Dial opens a lite-query connection to spec (e.g. "tcp+1.2.3.4:4924").
func Dial(spec string) (*Client, error) {
	ch, err := transport.NewChannel(spec)
	if err != nil {
		return nil, err
	}
	return &Client{ch: ch, mc: transport.NewMsgChannel(ch), sig: concurrent.NewSignaller()}, nil
}

// Close ends the connection.
func (c *Client) Close() error {
	return c.mc.Close()
}

// Ping sends a tcp.ping and waits for the matching tcp.pong.
func (c *Client) Ping(randomID int64) error {
	if err := c.mc.Send(&message.TCPPingMsg{RandomID: randomID}, c.sig); err != nil {
		return err
	}
	msg, err := c.mc.Receive(c.sig)
	if err != nil {
		return err
	}
	pong, ok := msg.(*message.TCPPongMsg)
	if !ok {
		return errUnexpectedMsg
	}
	if pong.RandomID != randomID {
		return errors.New("extserver: pong random_id mismatch")
	}
	return nil
}

// Authenticate answers a server's nonce challenge by signing it with
// prv, proving control of the corresponding identity.
func (c *Client) Authenticate(prv *crypto.PrivateKey) error {
	msg, err := c.mc.Receive(c.sig)
	if err != nil {
		return err
	}
	challenge, ok := msg.(*message.TCPAuthNonceMsg)
	if !ok {
		return errUnexpectedMsg
	}
	sig, err := prv.Sign(challenge.Nonce)
	if err != nil {
		return err
	}
	id, err := util.NewFullNodeId(prv.Public().Bytes())
	if err != nil {
		return err
	}
	return c.mc.Send(&message.TCPAuthSignedMsg{Key: id.Bytes(), Signature: sig.Bytes()}, c.sig)
}
