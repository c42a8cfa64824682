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
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"errors"

	"github.com/adnl-go/adnl/crypto"
	"github.com/adnl-go/adnl/util"
)

// ErrPacketTruncated is returned when a packetContents buffer runs out
// of bytes before every flagged field has been read.
var ErrPacketTruncated = errors.New("message: packetContents truncated")

// Optional-field bitflags for adnl.packetContents. Unlike the fixed
// records above, packetContents is a single flags-prefixed record: the
// flags word says which of the following fields are present, and
// present fields follow in this fixed order. This is the same
// presence-bitmask idea the old HelloMsg used for its variable-length
// trailing address list, generalised to a whole record.
const (
	FlagFrom = 1 << iota
	FlagFromShort
	FlagMessages
	FlagAddrList
	FlagPriorityAddrList
	FlagSeqno
	FlagConfirmSeqno
	FlagRecvAddrListVersion
	FlagRecvPriorityAddrListVersion
	FlagReinitDate
	FlagDstReinitDate
	FlagSignature
)

// PacketContents is the unframed payload of every ADNL datagram, direct
// or channel. Every field a flag declares present follows the flags
// word, in declaration order; SignedData/SetSignature make it
// a crypto.Signable so a non-channel packet's (reinit_date,
// dst_reinit_date,...) tuple can be signed in place.
type PacketContents struct {
	Flags uint32

	From       *util.FullNodeId
	FromShort  *util.ShortNodeId
	Messages   []Message
	AddrList   *AddressList
	PrioAddr   *AddressList
	Seqno      uint64
	ConfirmSeq uint64
	RecvAddrListVersion     int32
	RecvPrioAddrListVersion int32
	ReinitDate    int32
	DstReinitDate int32
	Signature     *crypto.Signature

	// RandomBytes pads every packet (7 or 15 bytes, to keep payload
	// lengths from leaking exact content size on the wire).
	RandomBytes []byte
}

// NewPacketContents returns an empty record with fresh random padding.
func NewPacketContents() *PacketContents {
	pc := &PacketContents{RandomBytes: make([]byte, 15)}
	_, _ = rand.Read(pc.RandomBytes)
	return pc
}

// SignedData returns the bytes a non-channel packet's signature covers:
// the reinit_date/dst_reinit_date pair, matching the spec's minimal
// signed tuple (the rest of the packet is authenticated by virtue of
// being sealed to the peer's long-term key, not by this signature).
func (pc *PacketContents) SignedData() []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], uint32(pc.ReinitDate))
	binary.BigEndian.PutUint32(buf[4:8], uint32(pc.DstReinitDate))
	return buf
}

// SetSignature attaches a computed signature and raises FlagSignature.
func (pc *PacketContents) SetSignature(sig *crypto.Signature) error {
	pc.Signature = sig
	pc.Flags |= FlagSignature
	return nil
}

// Bytes serialises the record: flags word, then each present field in
// declaration order, then the random padding.
func (pc *PacketContents) Bytes() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.BigEndian, pc.Flags); err != nil {
		return nil, err
	}
	if pc.Flags&FlagFrom != 0 {
		buf.Write(pc.From.Bytes())
	}
	if pc.Flags&FlagFromShort != 0 {
		buf.Write(pc.FromShort.Bytes())
	}
	if pc.Flags&FlagMessages != 0 {
		if err := binary.Write(buf, binary.BigEndian, uint32(len(pc.Messages))); err != nil {
			return nil, err
		}
		for _, m := range pc.Messages {
			mb, err := WriteMessage(m)
			if err != nil {
				return nil, err
			}
			if err := binary.Write(buf, binary.BigEndian, uint32(len(mb))); err != nil {
				return nil, err
			}
			buf.Write(mb)
		}
	}
	if pc.Flags&FlagAddrList != 0 {
		ab, err := pc.AddrList.Bytes()
		if err != nil {
			return nil, err
		}
		buf.Write(ab)
	}
	if pc.Flags&FlagPriorityAddrList != 0 {
		ab, err := pc.PrioAddr.Bytes()
		if err != nil {
			return nil, err
		}
		buf.Write(ab)
	}
	if pc.Flags&FlagSeqno != 0 {
		if err := binary.Write(buf, binary.BigEndian, pc.Seqno); err != nil {
			return nil, err
		}
	}
	if pc.Flags&FlagConfirmSeqno != 0 {
		if err := binary.Write(buf, binary.BigEndian, pc.ConfirmSeq); err != nil {
			return nil, err
		}
	}
	if pc.Flags&FlagRecvAddrListVersion != 0 {
		if err := binary.Write(buf, binary.BigEndian, pc.RecvAddrListVersion); err != nil {
			return nil, err
		}
	}
	if pc.Flags&FlagRecvPriorityAddrListVersion != 0 {
		if err := binary.Write(buf, binary.BigEndian, pc.RecvPrioAddrListVersion); err != nil {
			return nil, err
		}
	}
	if pc.Flags&FlagReinitDate != 0 {
		if err := binary.Write(buf, binary.BigEndian, pc.ReinitDate); err != nil {
			return nil, err
		}
	}
	if pc.Flags&FlagDstReinitDate != 0 {
		if err := binary.Write(buf, binary.BigEndian, pc.DstReinitDate); err != nil {
			return nil, err
		}
	}
	if pc.Flags&FlagSignature != 0 {
		buf.Write(pc.Signature.Bytes())
	}
	buf.Write(pc.RandomBytes)
	return buf.Bytes(), nil
}

// ParsePacketContents reverses Bytes.
func ParsePacketContents(data []byte) (*PacketContents, error) {
	if len(data) < 4 {
		return nil, ErrPacketTruncated
	}
	pc := &PacketContents{}
	pc.Flags = binary.BigEndian.Uint32(data[0:4])
	r := bytes.NewReader(data[4:])

	need := func(n int) ([]byte, error) {
		b := make([]byte, n)
		if _, err := r.Read(b); err != nil {
			return nil, ErrPacketTruncated
		}
		return b, nil
	}
	readU32 := func() (uint32, error) {
		var v uint32
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return 0, ErrPacketTruncated
		}
		return v, nil
	}
	readI32 := func() (int32, error) {
		var v int32
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return 0, ErrPacketTruncated
		}
		return v, nil
	}
	readU64 := func() (uint64, error) {
		var v uint64
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return 0, ErrPacketTruncated
		}
		return v, nil
	}

	if pc.Flags&FlagFrom != 0 {
		b, err := need(32)
		if err != nil {
			return nil, err
		}
		id, err := util.NewFullNodeId(b)
		if err != nil {
			return nil, err
		}
		pc.From = id
	}
	if pc.Flags&FlagFromShort != 0 {
		b, err := need(32)
		if err != nil {
			return nil, err
		}
		pc.FromShort = util.NewShortNodeId(b)
	}
	if pc.Flags&FlagMessages != 0 {
		count, err := readU32()
		if err != nil {
			return nil, err
		}
		for i := uint32(0); i < count; i++ {
			mlen, err := readU32()
			if err != nil {
				return nil, err
			}
			mb, err := need(int(mlen))
			if err != nil {
				return nil, err
			}
			m, err := ParseMessage(mb)
			if err != nil {
				return nil, err
			}
			pc.Messages = append(pc.Messages, m)
		}
	}
	if pc.Flags&FlagAddrList != 0 {
		rest := make([]byte, r.Len())
		copy(rest, data[len(data)-r.Len():])
		al, err := ParseAddressList(rest)
		if err != nil {
			return nil, err
		}
		pc.AddrList = al
		consumed, _ := al.Bytes()
		if _, err := r.Read(make([]byte, len(consumed))); err != nil {
			return nil, ErrPacketTruncated
		}
	}
	if pc.Flags&FlagPriorityAddrList != 0 {
		rest := make([]byte, r.Len())
		copy(rest, data[len(data)-r.Len():])
		al, err := ParseAddressList(rest)
		if err != nil {
			return nil, err
		}
		pc.PrioAddr = al
		consumed, _ := al.Bytes()
		if _, err := r.Read(make([]byte, len(consumed))); err != nil {
			return nil, ErrPacketTruncated
		}
	}
	if pc.Flags&FlagSeqno != 0 {
		v, err := readU64()
		if err != nil {
			return nil, err
		}
		pc.Seqno = v
	}
	if pc.Flags&FlagConfirmSeqno != 0 {
		v, err := readU64()
		if err != nil {
			return nil, err
		}
		pc.ConfirmSeq = v
	}
	if pc.Flags&FlagRecvAddrListVersion != 0 {
		v, err := readI32()
		if err != nil {
			return nil, err
		}
		pc.RecvAddrListVersion = v
	}
	if pc.Flags&FlagRecvPriorityAddrListVersion != 0 {
		v, err := readI32()
		if err != nil {
			return nil, err
		}
		pc.RecvPrioAddrListVersion = v
	}
	if pc.Flags&FlagReinitDate != 0 {
		v, err := readI32()
		if err != nil {
			return nil, err
		}
		pc.ReinitDate = v
	}
	if pc.Flags&FlagDstReinitDate != 0 {
		v, err := readI32()
		if err != nil {
			return nil, err
		}
		pc.DstReinitDate = v
	}
	if pc.Flags&FlagSignature != 0 {
		b, err := need(64)
		if err != nil {
			return nil, err
		}
		pc.Signature = crypto.NewSignatureFromBytes(b)
	}
	pc.RandomBytes = make([]byte, r.Len())
	_, _ = r.Read(pc.RandomBytes)
	return pc, nil
}
