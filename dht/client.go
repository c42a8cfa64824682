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

// Package dht is the collaborator interface LocalId uses to publish and
// look up address lists. It is deliberately narrow: the interior
// routing/replication algorithm of a DHT is out of scope here (ADNL
// treats it as an opaque, already-running service it calls into), so
// this package only describes the calls a LocalId makes and the key
// shape it makes them under.
package dht

import (
	"context"
	"errors"
	"fmt"

	"github.com/adnl-go/adnl/util"
)

// Key identifies a value stored under the DHT's generic key-value
// contract. ADNL publishes address lists under Key{pubkey_hash,
// "address", 0}, mirroring how the teacher's DHT blocks are addressed
// by a query derived from a hash plus a type tag (service/dht/module.go's
// blocks.Query, narrowed here to the one shape ADNL needs).
type Key struct {
	PeerHash *util.ShortNodeId
	Kind     string
	Idx      uint32
}

// Bytes renders the key as the flat byte string a Client keys its store by.
func (k Key) Bytes() []byte {
	return []byte(fmt.Sprintf("%s/%s/%d", k.PeerHash, k.Kind, k.Idx))
}

// AddressKind is the Kind used for a LocalId's published address list.
const AddressKind = "address"

// Client is what a LocalId needs from a DHT: publish its own signed
// address list, look a peer's up, and ask the network to relay a
// reverse-ping to a peer it cannot reach directly. Nothing here
// prescribes how a concrete implementation stores, replicates or routes
// values — that is entirely the backing service's business.
type Client interface {
	// GetValue looks up a previously-published value by key. Returns
	// ErrNotFound if no value is currently known for key.
	GetValue(ctx context.Context, key Key) ([]byte, error)

	// SetValue publishes or refreshes a value under key; it overwrites
	// whatever GetValue would have returned for the same key.
	SetValue(ctx context.Context, key Key, value []byte) error

	// RegisterReverseConnection asks the DHT to relay a reverse-ping
	// request to id, for peers that published an address list with
	// has_reverse set and no usable direct address.
	RegisterReverseConnection(ctx context.Context, id *util.FullNodeId) error
}

// ErrNotFound is returned by GetValue when key has no known value.
var ErrNotFound = errors.New("dht: value not found")
