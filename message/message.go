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

// Package message implements the TL-tagged records carried inside an
// ADNL packetContents: the handshake messages (createChannel/
// confirmChannel), the payload messages (custom/nop/reinit/query/
// answer/part), and the address-list records a LocalId publishes.
//
// Fixed-shape records are (de)serialised with struct tags via
// github.com/bfix/gospel/data, following the teacher's convention for
// wire records (`order:"big"`, `size:"..."`). Each record is prefixed
// on the wire by a 4-byte big-endian tag standing in for a TL
// constructor id, so a receiver can dispatch on the tag the way
// GetMsgHeader let the old message set learn a type before parsing its
// type-specific body.
package message

import (
	"errors"
)

// Error codes
var (
	ErrMsgHeaderTooSmall = errors.New("message header too small")
	ErrMsgUnknownTag     = errors.New("message: unknown tag")
)

// Tag identifies the wire type of a message record (stands in for a TL
// constructor id; fixed for the lifetime of the protocol).
type Tag uint32

const (
	TagAddressUDP     Tag = 0x01000001
	TagAddressUDP6    Tag = 0x01000002
	TagAddressTunnel  Tag = 0x01000003
	TagAddressList    Tag = 0x01000010
	TagCreateChannel  Tag = 0x02000001
	TagConfirmChannel Tag = 0x02000002
	TagCustom         Tag = 0x03000001
	TagNop            Tag = 0x03000002
	TagReinit         Tag = 0x03000003
	TagQuery          Tag = 0x03000004
	TagAnswer         Tag = 0x03000005
	TagPart           Tag = 0x03000006

	// tcp.* records are carried over the lite-query TCP surface
	// (extserver), not inside a UDP packetContents; they share the
	// same tag+body framing via MsgChannel.
	TagTCPPing                 Tag = 0x04000001
	TagTCPPong                 Tag = 0x04000002
	TagTCPAuthentificateNonce  Tag = 0x04000003
	TagTCPAuthentificateSigned Tag = 0x04000004
)

// Message is any record that can appear in packetContents.messages.
type Message interface {
	// MsgTag returns this message's wire type.
	MsgTag() Tag
	// Bytes serialises the message body (without the leading tag).
	Bytes() ([]byte, error)
}

// MessageHeader is the 4-byte tag every on-wire message record starts
// with; GetMsgHeader reads just enough to decide which concrete type
// to unmarshal next.
type MessageHeader struct {
	MsgTag Tag `order:"big"`
}

// GetMsgHeader returns the tag at the front of a byte array.
func GetMsgHeader(b []byte) (*MessageHeader, error) {
	if len(b) < 4 {
		return nil, ErrMsgHeaderTooSmall
	}
	t := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	return &MessageHeader{MsgTag: Tag(t)}, nil
}

// PutHeader prepends a tag to a serialised body.
func PutHeader(tag Tag, body []byte) []byte {
	out := make([]byte, 4+len(body))
	out[0] = byte(tag >> 24)
	out[1] = byte(tag >> 16)
	out[2] = byte(tag >> 8)
	out[3] = byte(tag)
	copy(out[4:], body)
	return out
}
