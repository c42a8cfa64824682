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

import "time"

// Wire-level limits and timers, per the packet construction and peer
// reinit rules a PeerPair enforces.
const (
	// MaxPartSize is the largest chunk a single Part message may carry;
	// larger payloads are split across several parts (see core's PeerPair.SendMessages).
	MaxPartSize = 1312

	// MaxAddressListSize is the largest a serialised AddressList may be.
	MaxAddressListSize = 128

	// ChannelHeaderReserve is the header budget a channel packet reserves.
	ChannelHeaderReserve = 128

	// NonChannelHeaderReserve is the header budget a direct (non-channel)
	// packet reserves, not counting the signature.
	NonChannelHeaderReserve = 272

	// NonChannelSignatureReserve is the separate budget the original
	// implementation holds for the signature field on non-channel
	// packets, accounted for apart from NonChannelHeaderReserve.
	NonChannelSignatureReserve = 64

	// ReinitDateSkew is the maximum amount of clock skew a peer's
	// announced reinit_date may have ahead of local time before a
	// packet is dropped.
	ReinitDateSkew = 60 * time.Second
)
