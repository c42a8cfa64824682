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

// CreateChannelMsg is adnl.message.createChannel { key:int256 date:int32 }:
// the first side to notice an idle channel slot proposes its fresh
// ephemeral key and the date it was generated.
type CreateChannelMsg struct {
	Key  []byte `size:"32"`
	Date int32  `order:"big"`
}

func (m *CreateChannelMsg) MsgTag() Tag { return TagCreateChannel }
func (m *CreateChannelMsg) Bytes() ([]byte, error) {
	return data.Marshal(m)
}

// ParseCreateChannelMsg unmarshals a createChannel body.
func ParseCreateChannelMsg(b []byte) (*CreateChannelMsg, error) {
	m := new(CreateChannelMsg)
	if err := data.Unmarshal(m, b); err != nil {
		return nil, err
	}
	return m, nil
}

// ConfirmChannelMsg is adnl.message.confirmChannel
// { key:int256 peer_key:int256 date:int32 }: the responding side echoes
// the peer's ephemeral key alongside its own, confirming the pairing
// used to derive the channel's shared secret.
type ConfirmChannelMsg struct {
	Key     []byte `size:"32"`
	PeerKey []byte `size:"32"`
	Date    int32  `order:"big"`
}

func (m *ConfirmChannelMsg) MsgTag() Tag { return TagConfirmChannel }
func (m *ConfirmChannelMsg) Bytes() ([]byte, error) {
	return data.Marshal(m)
}

// ParseConfirmChannelMsg unmarshals a confirmChannel body.
func ParseConfirmChannelMsg(b []byte) (*ConfirmChannelMsg, error) {
	m := new(ConfirmChannelMsg)
	if err := data.Unmarshal(m, b); err != nil {
		return nil, err
	}
	return m, nil
}
