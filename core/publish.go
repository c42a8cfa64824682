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
	"math/rand"
	"time"

	"github.com/bfix/gospel/logger"

	"github.com/adnl-go/adnl/crypto"
	"github.com/adnl-go/adnl/dht"
)

// publishBasePeriod and its jitter bounds mirror the teacher's
// spread-out-timer style (transport.go's UPnP lease renewal): refresh
// every 60-120s rather than on a fixed tick, so many LocalIds started
// at once don't all republish in lockstep.
const publishBasePeriod = 90 * time.Second

var errNoAddressList = errors.New("core: local id has no address list to publish")

// signedBlob is the minimal crypto.Signable wrapper used to sign a
// plain byte string (the serialised address list) rather than a wire
// message struct.
type signedBlob struct {
	data []byte
	sig  *crypto.Signature
}

func (b *signedBlob) SignedData() []byte { return b.data }

func (b *signedBlob) SetSignature(sig *crypto.Signature) error {
	b.sig = sig
	return nil
}

// PublishAddressList signs this id's current address list and stores it
// in client under Key{pubkey_hash, "address", 0}, then (if the address
// list has HasReverse set) asks the DHT to relay a reverse connection
// request on this id's behalf.
func (l *LocalId) PublishAddressList(ctx context.Context, client dht.Client) error {
	al := l.AddressList()
	if al == nil {
		return errNoAddressList
	}
	raw, err := al.Bytes()
	if err != nil {
		return err
	}
	blob := &signedBlob{data: raw}
	if err := l.Sign(blob); err != nil {
		return err
	}
	sig := blob.sig.Bytes()
	value := make([]byte, 0, 4+len(sig)+len(raw))
	value = binary.BigEndian.AppendUint32(value, uint32(len(sig)))
	value = append(value, sig...)
	value = append(value, raw...)

	key := dht.Key{PeerHash: l.Short(), Kind: dht.AddressKind}
	if err := client.SetValue(ctx, key, value); err != nil {
		return err
	}
	if al.HasReverse {
		if err := client.RegisterReverseConnection(ctx, l.ID()); err != nil {
			logger.Printf(logger.WARN, "[core] reverse connection registration failed for %s: %s", l.Short(), err.Error())
		}
	}
	return nil
}

// PublishLoop republishes l's address list to client every 60-120s
// (jittered, per spec §4.2's next_dht_query_at) until ctx is cancelled.
func (l *LocalId) PublishLoop(ctx context.Context, client dht.Client) {
	for {
		if err := l.PublishAddressList(ctx, client); err != nil && !errors.Is(err, errNoAddressList) {
			logger.Printf(logger.WARN, "[core] DHT publish failed for %s: %s", l.Short(), err.Error())
		}
		jitter := publishBasePeriod*2/3 + time.Duration(rand.Int63n(int64(publishBasePeriod*2/3)))
		select {
		case <-time.After(jitter):
		case <-ctx.Done():
			return
		}
	}
}
