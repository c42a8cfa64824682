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

package core

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/adnl-go/adnl/crypto"
	"github.com/adnl-go/adnl/dht"
	"github.com/adnl-go/adnl/message"
)

func TestPublishAddressListWithoutOneFails(t *testing.T) {
	id := NewLocalId(crypto.PrivateKeyFromSeed(make([]byte, 32)))
	if err := id.PublishAddressList(context.Background(), dht.NewMemory()); !errors.Is(err, errNoAddressList) {
		t.Fatalf("expected errNoAddressList, got %v", err)
	}
}

func TestPublishAddressListSignsAndStores(t *testing.T) {
	id := NewLocalId(crypto.PrivateKeyFromSeed(make([]byte, 32)))
	al := &message.AddressList{
		Addrs: []message.Address{&message.AddressUDP{IP: 0x7f000001, Port: 4242}},
	}
	id.SetAddressList(al)

	client := dht.NewMemory()
	if err := id.PublishAddressList(context.Background(), client); err != nil {
		t.Fatal(err)
	}

	key := dht.Key{PeerHash: id.Short(), Kind: dht.AddressKind}
	value, err := client.GetValue(context.Background(), key)
	if err != nil {
		t.Fatal(err)
	}
	if len(value) < 4 {
		t.Fatalf("published value too short: %d bytes", len(value))
	}
	sigLen := binary.BigEndian.Uint32(value[:4])
	if int(sigLen) != 64 {
		t.Fatalf("expected a 64-byte Ed25519 signature, got length %d", sigLen)
	}
	sig := value[4 : 4+sigLen]
	raw := value[4+sigLen:]
	rawBytes, err := al.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != string(rawBytes) {
		t.Fatalf("stored address-list bytes do not match the signed payload")
	}
	if !id.ID().Verify(rawBytes, sig) {
		t.Fatal("signature does not verify against the published address-list bytes")
	}
}

func TestPublishAddressListRegistersReverseConnection(t *testing.T) {
	id := NewLocalId(crypto.PrivateKeyFromSeed(make([]byte, 32)))
	id.SetAddressList(&message.AddressList{HasReverse: true})

	client := dht.NewMemory()
	if err := id.PublishAddressList(context.Background(), client); err != nil {
		t.Fatal(err)
	}
	rev := client.Reversals()
	if len(rev) != 1 || !rev[0].Equals(id.ID()) {
		t.Fatalf("expected a reverse-connection registration for %s, got %+v", id.Short(), rev)
	}
}
