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
	"github.com/adnl-go/adnl/message"
	"github.com/adnl-go/adnl/util"
)

//----------------------------------------------------------------------
// Core events and listeners
//----------------------------------------------------------------------

// Event types
const (
	EvConnect    = iota // peer pair's channel came up
	EvDisconnect        // peer pair went stale/reinited
	EvMessage           // a Custom message was delivered to a subscriber
)

// EventFilter is a filter for events a listener is interested in.
// The filter works on event types; if EvMessage is set, messages
// can be filtered by message tag also.
type EventFilter struct {
	evTypes  map[int]bool
	msgTypes map[message.Tag]bool
}

// NewEventFilter creates a new empty filter instance.
func NewEventFilter() *EventFilter {
	return &EventFilter{
		evTypes:  make(map[int]bool),
		msgTypes: make(map[message.Tag]bool),
	}
}

// AddEvent adds an event id to filter.
func (f *EventFilter) AddEvent(ev int) {
	f.evTypes[ev] = true
}

// AddMsgType adds a message tag to filter.
func (f *EventFilter) AddMsgType(tag message.Tag) {
	f.evTypes[EvMessage] = true
	f.msgTypes[tag] = true
}

// CheckEvent returns true if an event id is matched
// by the filter or the filter is empty.
func (f *EventFilter) CheckEvent(ev int) bool {
	if len(f.evTypes) == 0 {
		return true
	}
	_, ok := f.evTypes[ev]
	return ok
}

// CheckMsgType returns true if a message tag is matched
// by the filter or the filter is empty.
func (f *EventFilter) CheckMsgType(tag message.Tag) bool {
	if len(f.msgTypes) == 0 {
		return true
	}
	_, ok := f.msgTypes[tag]
	return ok
}

// Event sent to listeners. Resp was a transport.Responder in the old
// message-oriented core; a PeerPair answers queries itself (see
// dispatchLocked's QueryMsg case), so a listener only ever observes
// delivered Custom payloads, not a reply handle.
type Event struct {
	ID   int                 // event type
	Peer *util.ShortNodeId   // remote peer this event concerns
	Msg  message.Message     // delivered message (nil for connect/disconnect)
}

//----------------------------------------------------------------------

// Listener for network events.
type Listener struct {
	ch     chan *Event
	filter *EventFilter
}

// NewListener for given filter and receiving channel.
func NewListener(ch chan *Event, f *EventFilter) *Listener {
	if f == nil {
		f = NewEventFilter()
	}
	return &Listener{
		ch:     ch,
		filter: f,
	}
}
