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

package dht

import (
	"context"
	"crypto/ed25519"
	"errors"
	"testing"

	"github.com/adnl-go/adnl/util"
)

func TestMemoryGetSetRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	key := Key{PeerHash: util.NewShortNodeId(make([]byte, 32)), Kind: AddressKind}

	if _, err := m.GetValue(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before first SetValue, got %v", err)
	}
	if err := m.SetValue(ctx, key, []byte("address-list-bytes")); err != nil {
		t.Fatal(err)
	}
	got, err := m.GetValue(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "address-list-bytes" {
		t.Fatalf("got %q, want %q", got, "address-list-bytes")
	}
}

func TestMemoryRegisterReverseConnection(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	id, err := util.NewFullNodeId(pub)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.RegisterReverseConnection(ctx, id); err != nil {
		t.Fatal(err)
	}
	rev := m.Reversals()
	if len(rev) != 1 || !rev[0].Equals(id) {
		t.Fatalf("expected one reversal for %s, got %+v", id.Short(), rev)
	}
}

// Compile-time assertion that Memory satisfies Client.
var _ Client = (*Memory)(nil)
