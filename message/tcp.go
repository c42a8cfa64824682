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

package message

import (
	"github.com/bfix/gospel/data"
)

// TCPPingMsg is tcp.ping { random_id:long }, the lite-query keepalive a
// client sends over the extserver TCP surface.
type TCPPingMsg struct {
	RandomID int64 `order:"big"`
}

func (m *TCPPingMsg) MsgTag() Tag            { return TagTCPPing }
func (m *TCPPingMsg) Bytes() ([]byte, error) { return data.Marshal(m) }

// ParseTCPPingMsg unmarshals a tcp.ping body.
func ParseTCPPingMsg(b []byte) (*TCPPingMsg, error) {
	m := new(TCPPingMsg)
	if err := data.Unmarshal(m, b); err != nil {
		return nil, err
	}
	return m, nil
}

// TCPPongMsg is tcp.pong { random_id:long }: echoes the ping it answers.
type TCPPongMsg struct {
	RandomID int64 `order:"big"`
}

func (m *TCPPongMsg) MsgTag() Tag            { return TagTCPPong }
func (m *TCPPongMsg) Bytes() ([]byte, error) { return data.Marshal(m) }

// ParseTCPPongMsg unmarshals a tcp.pong body.
func ParseTCPPongMsg(b []byte) (*TCPPongMsg, error) {
	m := new(TCPPongMsg)
	if err := data.Unmarshal(m, b); err != nil {
		return nil, err
	}
	return m, nil
}

// TCPAuthNonceMsg is tcp.authentificationNonce { nonce:bytes }, the first
// leg of the optional auth round: the server challenges a connecting
// client to sign a server-chosen nonce before serving lite queries.
type TCPAuthNonceMsg struct {
	Nonce []byte `size:"*"`
}

func (m *TCPAuthNonceMsg) MsgTag() Tag            { return TagTCPAuthentificateNonce }
func (m *TCPAuthNonceMsg) Bytes() ([]byte, error) { return data.Marshal(m) }

// ParseTCPAuthNonceMsg unmarshals a tcp.authentificationNonce body. It
// carries no fixed-size header field, so this is a plain copy rather
// than a struct-tag decode (same shape as ParseCustomMsg).
func ParseTCPAuthNonceMsg(b []byte) (*TCPAuthNonceMsg, error) {
	return &TCPAuthNonceMsg{Nonce: append([]byte(nil), b...)}, nil
}

// TCPAuthSignedMsg is the client's reply to a nonce challenge: its
// long-term public key plus a signature over the nonce, letting the
// server verify it is talking to the key it expects.
type TCPAuthSignedMsg struct {
	Key       []byte `size:"32"`
	Signature []byte `size:"64"`
}

func (m *TCPAuthSignedMsg) MsgTag() Tag            { return TagTCPAuthentificateSigned }
func (m *TCPAuthSignedMsg) Bytes() ([]byte, error) { return data.Marshal(m) }

// ParseTCPAuthSignedMsg unmarshals a signed-nonce reply body.
func ParseTCPAuthSignedMsg(b []byte) (*TCPAuthSignedMsg, error) {
	m := new(TCPAuthSignedMsg)
	if err := data.Unmarshal(m, b); err != nil {
		return nil, err
	}
	return m, nil
}
