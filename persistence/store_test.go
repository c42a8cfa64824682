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

package persistence

import (
	"testing"

	"github.com/adnl-go/adnl/message"
)

func TestAddrListRoundTrip(t *testing.T) {
	al := &message.AddressList{
		Addrs:   []message.Address{&message.AddressUDP{IP: 0x7f000001, Port: 30303}},
		Version: 1,
	}
	data, err := SaveAddrList(al)
	if err != nil {
		t.Fatal(err)
	}
	got, err := LoadAddrList(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Addrs) != 1 {
		t.Fatalf("got %d addrs, want 1", len(got.Addrs))
	}
	u, ok := got.Addrs[0].(*message.AddressUDP)
	if !ok || u.IP != 0x7f000001 || u.Port != 30303 {
		t.Fatalf("round-tripped address mismatch: %+v", got.Addrs[0])
	}
}

func TestLoadAddrListEmpty(t *testing.T) {
	al, err := LoadAddrList(nil)
	if err != nil {
		t.Fatal(err)
	}
	if al != nil {
		t.Fatalf("expected nil for empty input, got %+v", al)
	}
}
