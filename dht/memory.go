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
	"sync"

	"github.com/bfix/gospel/logger"

	"github.com/adnl-go/adnl/util"
)

// Memory is an in-process Client backed by util.Map, the same
// reentrant-lock container transport.Transport uses for its endpoint
// table. It never talks to a network, so it is only suitable for tests
// and single-process demos, never a production bootstrap peer.
type Memory struct {
	values *util.Map[string, []byte]

	mtx       sync.Mutex
	reversals []*util.FullNodeId
}

// NewMemory returns an empty in-memory DHT fake.
func NewMemory() *Memory {
	return &Memory{values: util.NewMap[string, []byte]()}
}

// GetValue implements Client.
func (m *Memory) GetValue(ctx context.Context, key Key) ([]byte, error) {
	v, ok := m.values.Get(string(key.Bytes()), 0)
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

// SetValue implements Client.
func (m *Memory) SetValue(ctx context.Context, key Key, value []byte) error {
	m.values.Put(string(key.Bytes()), value, 0)
	return nil
}

// RegisterReverseConnection implements Client, recording the request so
// a test can assert it happened; no actual reverse-ping is performed.
func (m *Memory) RegisterReverseConnection(ctx context.Context, id *util.FullNodeId) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.reversals = append(m.reversals, id)
	logger.Printf(logger.DBG, "[dht] reverse connection requested for %s", id.Short())
	return nil
}

// Reversals returns every peer RegisterReverseConnection was called for,
// in call order.
func (m *Memory) Reversals() []*util.FullNodeId {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	out := make([]*util.FullNodeId, len(m.reversals))
	copy(out, m.reversals)
	return out
}
