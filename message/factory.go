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

// ParseMessage reads a tagged message record (tag + body) and returns
// the concrete Message it decodes to. Mirrors the old NewEmptyMessage
// switch-on-constant factory, narrowed to ADNL's own small message set.
func ParseMessage(b []byte) (Message, error) {
	hdr, err := GetMsgHeader(b)
	if err != nil {
		return nil, err
	}
	body := b[4:]
	switch hdr.MsgTag {
	case TagCreateChannel:
		return ParseCreateChannelMsg(body)
	case TagConfirmChannel:
		return ParseConfirmChannelMsg(body)
	case TagCustom:
		return ParseCustomMsg(body)
	case TagNop:
		return &NopMsg{}, nil
	case TagReinit:
		return ParseReinitMsg(body)
	case TagQuery:
		return ParseQueryMsg(body)
	case TagAnswer:
		return ParseAnswerMsg(body)
	case TagPart:
		return ParsePartMsg(body)
	case TagTCPPing:
		return ParseTCPPingMsg(body)
	case TagTCPPong:
		return ParseTCPPongMsg(body)
	case TagTCPAuthentificateNonce:
		return ParseTCPAuthNonceMsg(body)
	case TagTCPAuthentificateSigned:
		return ParseTCPAuthSignedMsg(body)
	default:
		return nil, ErrMsgUnknownTag
	}
}

// WriteMessage serialises a Message with its leading tag.
func WriteMessage(m Message) ([]byte, error) {
	body, err := m.Bytes()
	if err != nil {
		return nil, err
	}
	return PutHeader(m.MsgTag(), body), nil
}
