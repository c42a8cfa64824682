// This file is part of gnunet-go, a GNUnet-implementation in Golang.
// Copyright (C) 2019, 2020 Bernd Fix  >Y<
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

package transport

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"path"
	"strings"

	"github.com/adnl-go/adnl/message"
	"github.com/adnl-go/adnl/util"

	"github.com/bfix/gospel/concurrent"
	"github.com/bfix/gospel/logger"
)

// Error codes
var (
	ErrChannelNotImplemented = fmt.Errorf("Protocol not implemented")
	ErrChannelNotOpened      = fmt.Errorf("Channel not opened")
	ErrChannelInterrupted    = fmt.Errorf("Channel interrupted")
)

////////////////////////////////////////////////////////////////////////
// CHANNEL

// Channel is an abstraction for exchanging arbitrary data over various
// transport protocols and mechanisms. They are created by clients via
// 'NewChannel()' or by services run via 'NewChannelServer()'.
// A string specifies the end-point of the channel:
//     "unix+/tmp/test.sock" -- for UDS channels
//     "tcp+1.2.3.4:5"       -- for TCP channels
//     "udp+1.2.3.4:5"       -- for UDP channels
type Channel interface {
	Open(spec string) error                           // open channel (for read/write)
	Close() error                                     // close open channel
	IsOpen() bool                                     // check if channel is open
	Read([]byte, *concurrent.Signaller) (int, error)  // read from channel
	Write([]byte, *concurrent.Signaller) (int, error) // write to channel
}

// ChannelFactory instantiates specific Channel imülementations.
type ChannelFactory func() Channel

// Known channel implementations.
var channelImpl = map[string]ChannelFactory{
	"unix": NewSocketChannel,
	"tcp":  NewTCPChannel,
	"udp":  NewUDPChannel,
}

// NewChannel creates a new channel to the specified endpoint.
// Called by a client to connect to a service.
func NewChannel(spec string) (Channel, error) {
	parts := strings.Split(spec, "+")
	if fac, ok := channelImpl[parts[0]]; ok {
		inst := fac()
		err := inst.Open(spec)
		return inst, err
	}
	return nil, ErrChannelNotImplemented
}

////////////////////////////////////////////////////////////////////////
// CHANNEL SERVER

// ChannelServer creates a listener for the specified endpoint.
// The specification string has the same format as for Channel; for a
// server, the address part is the local address to listen on.
type ChannelServer interface {
	Open(spec string, hdlr chan<- Channel) error
	Close() error
	Address() net.Addr // bound listen address, or nil if not (yet) listening
}

// ChannelServerFactory instantiates specific ChannelServer imülementations.
type ChannelServerFactory func() ChannelServer

// Known channel server implementations.
var channelServerImpl = map[string]ChannelServerFactory{
	"unix": NewSocketChannelServer,
	"tcp":  NewTCPChannelServer,
	"udp":  NewUDPChannelServer,
}

// NewChannelServer
func NewChannelServer(spec string, hdlr chan<- Channel) (cs ChannelServer, err error) {
	parts := strings.Split(spec, "+")

	if fac, ok := channelServerImpl[parts[0]]; ok {
		// check if the basedir for the spec exists...
		if err = util.EnforceDirExists(path.Dir(parts[1])); err != nil {
			return
		}
		// instantiate server implementation
		cs = fac()
		// create the domain socket and listen to it.
		err = cs.Open(spec, hdlr)
		return
	}
	return nil, ErrChannelNotImplemented
}

////////////////////////////////////////////////////////////////////////
// MESSAGE CHANNEL

// MsgChannel is a wrapper around a generic Channel for exchanging tagged
// ADNL messages over a stream or datagram connection (used by extserver's
// lite-query TCP surface). Tagged records carry no size field of their
// own, so the wire framing here is a 4-byte big-endian length prefix
// ahead of the tag+body WriteMessage already produces.
type MsgChannel struct {
	ch  Channel
	buf []byte
}

// NewMsgChannel wraps a plain Channel for tagged message exchange.
func NewMsgChannel(ch Channel) *MsgChannel {
	return &MsgChannel{
		ch:  ch,
		buf: make([]byte, 65536),
	}
}

// Close a MsgChannel by closing the wrapped plain Channel.
func (c *MsgChannel) Close() error {
	return c.ch.Close()
}

// Send a tagged message over a channel.
func (c *MsgChannel) Send(msg message.Message, sig *concurrent.Signaller) error {
	body, err := message.WriteMessage(msg)
	if err != nil {
		return err
	}
	frame := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(frame[:4], uint32(len(body)))
	copy(frame[4:], body)
	logger.Printf(logger.DBG, "==> %v\n", msg)
	logger.Printf(logger.DBG, "    [%s]\n", hex.EncodeToString(frame))

	n, err := c.ch.Write(frame, sig)
	if err != nil {
		return err
	}
	if n != len(frame) {
		return errors.New("incomplete send")
	}
	return nil
}

// Receive a tagged message over a plain Channel.
func (c *MsgChannel) Receive(sig *concurrent.Signaller) (message.Message, error) {
	get := func(pos, count int) error {
		n, err := c.ch.Read(c.buf[pos:pos+count], sig)
		if err != nil {
			return err
		}
		if n != count {
			return errors.New("not enough bytes on network")
		}
		return nil
	}

	if err := get(0, 4); err != nil {
		return nil, err
	}
	size := int(binary.BigEndian.Uint32(c.buf[:4]))
	if size <= 0 || size > len(c.buf) {
		return nil, fmt.Errorf("message: invalid frame size (%d)", size)
	}
	if err := get(4, size); err != nil {
		return nil, err
	}
	msg, err := message.ParseMessage(c.buf[:size])
	if err != nil {
		return nil, err
	}
	logger.Printf(logger.DBG, "<== %v\n", msg)
	logger.Printf(logger.DBG, "    [%s]\n", hex.EncodeToString(c.buf[:size]))
	return msg, nil
}
