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
	"sync"

	"github.com/adnl-go/adnl/util"
)

// Peer groups every PeerPair this node has with one remote identity: a
// node with several LocalIds may be talking to the same remote over
// more than one of them at once, each with its own independent seqno
// space and channel.
type Peer struct {
	mtx   sync.Mutex
	id    *util.FullNodeId
	table *PeerTable
	pairs map[string]*PeerPair // keyed by the local id's short id
}

func newPeer(table *PeerTable, id *util.FullNodeId) *Peer {
	return &Peer{
		id:    id,
		table: table,
		pairs: make(map[string]*PeerPair),
	}
}

// ID returns this peer's long-term node id.
func (p *Peer) ID() *util.FullNodeId {
	return p.id
}

// PairWith returns the PeerPair for (local, p), creating it on first use.
func (p *Peer) PairWith(local *LocalId) *PeerPair {
	pp, _ := p.pairWith(local)
	return pp
}

// pairWith is PairWith plus whether this call created the pair, so a
// caller can prime a fresh pair from persisted state exactly once.
func (p *Peer) pairWith(local *LocalId) (pp *PeerPair, created bool) {
	key := string(local.Short().Bytes())
	p.mtx.Lock()
	defer p.mtx.Unlock()
	pp, ok := p.pairs[key]
	if !ok {
		pp = NewPeerPair(p.table, local, p.id)
		p.pairs[key] = pp
		created = true
	}
	return pp, created
}

// Pairs returns a snapshot of every PeerPair currently open with this peer.
func (p *Peer) Pairs() []*PeerPair {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	out := make([]*PeerPair, 0, len(p.pairs))
	for _, pp := range p.pairs {
		out = append(out, pp)
	}
	return out
}
