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
	"errors"

	"github.com/bfix/gospel/data"
)

// ErrAddrUnknownTag is returned when an address-list entry carries a
// tag this implementation does not know how to parse.
var ErrAddrUnknownTag = errors.New("message: unknown address tag")

// Address is one reachable endpoint for a node identity: a UDPv4/UDPv6
// socket or a tunnel relay (see adnl.address.* in the wire record list:
// the same shape this package uses for every tagged message). A request
// for a DHT-mediated reverse ping is not an Address; it is an
// AddressList with no entries (HasReverse).
type Address interface {
	AddrTag() Tag
	Bytes() ([]byte, error)
}

// AddressUDP is adnl.address.udp { ip:int32 port:int32 }.
type AddressUDP struct {
	IP   uint32 `order:"big"`
	Port int32  `order:"big"`
}

func (a *AddressUDP) AddrTag() Tag { return TagAddressUDP }
func (a *AddressUDP) Bytes() ([]byte, error) {
	body, err := data.Marshal(a)
	if err != nil {
		return nil, err
	}
	return PutHeader(TagAddressUDP, body), nil
}

// AddressUDP6 is adnl.address.udp6 { ip:int128 port:int32 }.
type AddressUDP6 struct {
	IP   []byte `size:"16"`
	Port int32  `order:"big"`
}

func (a *AddressUDP6) AddrTag() Tag { return TagAddressUDP6 }
func (a *AddressUDP6) Bytes() ([]byte, error) {
	body, err := data.Marshal(a)
	if err != nil {
		return nil, err
	}
	return PutHeader(TagAddressUDP6, body), nil
}

// AddressTunnel is adnl.address.tunnel { to:int256 pubkey:PublicKey }.
type AddressTunnel struct {
	To     []byte `size:"32"`
	Pubkey []byte `size:"32"`
}

func (a *AddressTunnel) AddrTag() Tag { return TagAddressTunnel }
func (a *AddressTunnel) Bytes() ([]byte, error) {
	body, err := data.Marshal(a)
	if err != nil {
		return nil, err
	}
	return PutHeader(TagAddressTunnel, body), nil
}

// ParseAddress reads one tagged address-list entry from the front of b,
// returning the parsed Address and the remaining bytes.
func ParseAddress(b []byte) (Address, []byte, error) {
	hdr, err := GetMsgHeader(b)
	if err != nil {
		return nil, nil, err
	}
	rest := b[4:]
	switch hdr.MsgTag {
	case TagAddressUDP:
		a := new(AddressUDP)
		if err := data.Unmarshal(a, rest); err != nil {
			return nil, nil, err
		}
		return a, rest[8:], nil
	case TagAddressUDP6:
		a := new(AddressUDP6)
		if err := data.Unmarshal(a, rest); err != nil {
			return nil, nil, err
		}
		return a, rest[20:], nil
	case TagAddressTunnel:
		a := new(AddressTunnel)
		if err := data.Unmarshal(a, rest); err != nil {
			return nil, nil, err
		}
		return a, rest[64:], nil
	default:
		return nil, nil, ErrAddrUnknownTag
	}
}

// AddressList is adnl.addressList: a LocalId's versioned, expiring set
// of reachable endpoints. Addrs may be empty only when HasReverse is
// set (a node reachable only via DHT-mediated reverse connection).
type AddressList struct {
	Addrs      []Address
	Version    int32
	ReinitDate int32
	Priority   int32
	ExpireAt   int32
	HasReverse bool
}

// Bytes serialises the address list: vector count, each tagged address,
// then the four trailing int32 fields, big-endian throughout.
func (al *AddressList) Bytes() ([]byte, error) {
	buf := new(bytes.Buffer)
	hdr := struct {
		Count int32 `order:"big"`
	}{int32(len(al.Addrs))}
	b, err := data.Marshal(&hdr)
	if err != nil {
		return nil, err
	}
	buf.Write(b)
	for _, a := range al.Addrs {
		ab, err := a.Bytes()
		if err != nil {
			return nil, err
		}
		buf.Write(ab)
	}
	tail := struct {
		Version    int32 `order:"big"`
		ReinitDate int32 `order:"big"`
		Priority   int32 `order:"big"`
		ExpireAt   int32 `order:"big"`
	}{al.Version, al.ReinitDate, al.Priority, al.ExpireAt}
	b, err = data.Marshal(&tail)
	if err != nil {
		return nil, err
	}
	buf.Write(b)
	return buf.Bytes(), nil
}

// ParseAddressList reverses Bytes.
func ParseAddressList(data []byte) (*AddressList, error) {
	if len(data) < 4 {
		return nil, ErrMsgHeaderTooSmall
	}
	count := int(uint32(data[0])<<24 | uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3]))
	rest := data[4:]
	al := &AddressList{}
	for i := 0; i < count; i++ {
		a, tail, err := ParseAddress(rest)
		if err != nil {
			return nil, err
		}
		al.Addrs = append(al.Addrs, a)
		rest = tail
	}
	if len(rest) < 16 {
		return nil, ErrMsgHeaderTooSmall
	}
	be32 := func(b []byte) int32 {
		return int32(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
	}
	al.Version = be32(rest[0:4])
	al.ReinitDate = be32(rest[4:8])
	al.Priority = be32(rest[8:12])
	al.ExpireAt = be32(rest[12:16])
	al.HasReverse = len(al.Addrs) == 0
	return al, nil
}
