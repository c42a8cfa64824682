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
	"testing"

	"github.com/adnl-go/adnl/crypto"
)

func TestChannelCreateThenStaleKeyIsFlagged(t *testing.T) {
	local := NewLocalId(crypto.PrivateKeyFromSeed(bytesOf('A')))
	peer := NewLocalId(crypto.PrivateKeyFromSeed(bytesOf('B')))

	c := NewChannel()
	firstKey, _ := crypto.NewKeypair()
	confirm, stale, err := c.HandleCreate(local.ID(), peer.ID(), firstKey.Bytes(), 1000)
	if err != nil {
		t.Fatal(err)
	}
	if confirm == nil || stale {
		t.Fatalf("expected a fresh confirm with stale=false, got confirm=%v stale=%v", confirm, stale)
	}

	secondKey, _ := crypto.NewKeypair()
	confirm2, stale2, err := c.HandleCreate(local.ID(), peer.ID(), secondKey.Bytes(), 500)
	if err != nil {
		t.Fatal(err)
	}
	if confirm2 != nil || !stale2 {
		t.Fatalf("expected an old-dated key to be flagged stale with no confirm, got confirm=%v stale=%v", confirm2, stale2)
	}

	// The same (now-current) key again is a plain no-op, not stale.
	confirm3, stale3, err := c.HandleCreate(local.ID(), peer.ID(), firstKey.Bytes(), 1000)
	if err != nil {
		t.Fatal(err)
	}
	if confirm3 != nil || stale3 {
		t.Fatalf("expected a repeated known key to be a silent no-op, got confirm=%v stale=%v", confirm3, stale3)
	}
}

func bytesOf(b byte) []byte {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = b
	}
	return seed
}
