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

// CustomMsg is adnl.message.custom { data:bytes }: an arbitrary
// application payload, delivered to whichever handler subscribed to
// its leading bytes.
type CustomMsg struct {
	Data []byte `size:"*"`
}

func (m *CustomMsg) MsgTag() Tag           { return TagCustom }
func (m *CustomMsg) Bytes() ([]byte, error) { return data.Marshal(m) }

// ParseCustomMsg unmarshals a custom body (which is just the raw
// payload, so this is a plain copy rather than a struct-tag decode).
func ParseCustomMsg(b []byte) (*CustomMsg, error) {
	return &CustomMsg{Data: append([]byte(nil), b...)}, nil
}

// NopMsg is adnl.message.nop {}: carries no payload of its own: it
// exists purely so a packet can be sent (and its seqno/ack fields
// observed) without an application message attached.
type NopMsg struct{}

func (m *NopMsg) MsgTag() Tag            { return TagNop }
func (m *NopMsg) Bytes() ([]byte, error) { return nil, nil }

// ReinitMsg is adnl.message.reinit { date:int32 }: announces (or
// echoes) the sender's reinit_date after a restart.
type ReinitMsg struct {
	Date int32 `order:"big"`
}

func (m *ReinitMsg) MsgTag() Tag            { return TagReinit }
func (m *ReinitMsg) Bytes() ([]byte, error) { return data.Marshal(m) }

// ParseReinitMsg unmarshals a reinit body.
func ParseReinitMsg(b []byte) (*ReinitMsg, error) {
	m := new(ReinitMsg)
	if err := data.Unmarshal(m, b); err != nil {
		return nil, err
	}
	return m, nil
}

// QueryMsg is adnl.message.query { query_id:int256 query:bytes }.
type QueryMsg struct {
	QueryID []byte `size:"32"`
	Query   []byte `size:"*"`
}

func (m *QueryMsg) MsgTag() Tag            { return TagQuery }
func (m *QueryMsg) Bytes() ([]byte, error) { return data.Marshal(m) }

// ParseQueryMsg unmarshals a query body.
func ParseQueryMsg(b []byte) (*QueryMsg, error) {
	m := new(QueryMsg)
	if err := data.Unmarshal(m, b); err != nil {
		return nil, err
	}
	return m, nil
}

// AnswerMsg is adnl.message.answer { query_id:int256 answer:bytes }.
type AnswerMsg struct {
	QueryID []byte `size:"32"`
	Answer  []byte `size:"*"`
}

func (m *AnswerMsg) MsgTag() Tag            { return TagAnswer }
func (m *AnswerMsg) Bytes() ([]byte, error) { return data.Marshal(m) }

// ParseAnswerMsg unmarshals an answer body.
func ParseAnswerMsg(b []byte) (*AnswerMsg, error) {
	m := new(AnswerMsg)
	if err := data.Unmarshal(m, b); err != nil {
		return nil, err
	}
	return m, nil
}

// PartMsg is adnl.message.part { hash:int256 total_size:int32
// offset:int32 data:bytes }: one fragment of a message too large to
// fit a single datagram (see Part reassembly in the core package).
type PartMsg struct {
	Hash      []byte `size:"32"`
	TotalSize int32  `order:"big"`
	Offset    int32  `order:"big"`
	Data      []byte `size:"*"`
}

func (m *PartMsg) MsgTag() Tag            { return TagPart }
func (m *PartMsg) Bytes() ([]byte, error) { return data.Marshal(m) }

// ParsePartMsg unmarshals a part body.
func ParsePartMsg(b []byte) (*PartMsg, error) {
	m := new(PartMsg)
	if err := data.Unmarshal(m, b); err != nil {
		return nil, err
	}
	return m, nil
}
