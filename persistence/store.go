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

// Package persistence gives a PeerPair's last-known address list and a
// peer's reinit date somewhere to survive a process restart, so a node
// doesn't have to rediscover every peer it already knew about through
// the DHT or static nodes again. It is a thin, typed layer over
// util.KeyValueStore: the same "<driver>+<dsn>..." spec string selects a
// sqlite3/mysql/redis backend, following the teacher's convention in
// util/key_value_store.go (now standardized on '+'-separated specs
// end-to-end, matching util.ConnectSQLDatabase).
package persistence

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/adnl-go/adnl/message"
	"github.com/adnl-go/adnl/util"
)

// PeerRecord is everything about a peer worth remembering across
// restarts: its last confirmed epoch and the address lists learned for
// it, so a fresh PeerPair can skip straight to sending instead of
// waiting on discovery.
type PeerRecord struct {
	ReinitDate       int32  `json:"reinit_date"`
	AddrList         []byte `json:"addr_list,omitempty"`          // message.AddressList.Bytes()
	PriorityAddrList []byte `json:"priority_addr_list,omitempty"` // message.AddressList.Bytes()
}

// Store persists PeerRecords keyed by a peer's short id.
type Store struct {
	kv util.KeyValueStore
}

// Open connects to the backend named by spec (see util.OpenKVStore).
func Open(spec string) (*Store, error) {
	kv, err := util.OpenKVStore(spec)
	if err != nil {
		return nil, err
	}
	return &Store{kv: kv}, nil
}

// key turns a short id into the string key used in the underlying store.
func key(short *util.ShortNodeId) string {
	return hex.EncodeToString(short.Bytes())
}

// SavePeer persists rec under short's key, overwriting any prior record.
func (s *Store) SavePeer(short *util.ShortNodeId, rec *PeerRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.kv.Put(key(short), string(data))
}

// LoadPeer retrieves a previously-saved record, if any.
func (s *Store) LoadPeer(short *util.ShortNodeId) (*PeerRecord, error) {
	raw, err := s.kv.Get(key(short))
	if err != nil {
		return nil, err
	}
	rec := new(PeerRecord)
	if err := json.Unmarshal([]byte(raw), rec); err != nil {
		return nil, fmt.Errorf("persistence: corrupt record for %s: %w", short, err)
	}
	return rec, nil
}

// SaveAddrList encodes an AddressList for storage in a PeerRecord.
func SaveAddrList(al *message.AddressList) ([]byte, error) {
	if al == nil {
		return nil, nil
	}
	return al.Bytes()
}

// LoadAddrList decodes a PeerRecord's stored address list bytes, if any.
func LoadAddrList(data []byte) (*message.AddressList, error) {
	if len(data) == 0 {
		return nil, nil
	}
	return message.ParseAddressList(data)
}
