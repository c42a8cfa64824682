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
	"encoding/base64"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/bfix/gospel/logger"
	"github.com/miekg/dns"

	"github.com/adnl-go/adnl/config"
	"github.com/adnl-go/adnl/message"
	"github.com/adnl-go/adnl/util"
)

// dnsServer is the resolver used for StaticNodeConfig entries given as
// hostnames rather than literal IPs. The teacher's gns/dns.go defaults to
// a public resolver the same way when none is configured locally.
var dnsServer = net.IPv4(8, 8, 8, 8)

// StaticNode is one statically-known bootstrap peer, resolved to a
// concrete node id and address list a PeerTable can dial without first
// needing the DHT.
type StaticNode struct {
	ID   *util.FullNodeId
	Addr *message.AddressList
}

// StaticNodes is a node's bootstrap directory (spec §2 item 8): an
// in-memory, read-mostly address book seeded at startup from
// config.Config.StaticNodes and handed to a Core through Seed. Later
// rediscovery (PeerPair.armDiscoveryLocked) does not consult it; it uses
// only the DHT and the persisted address cache.
type StaticNodes struct {
	mtx   sync.RWMutex
	nodes map[string]*StaticNode // keyed by short id bytes
}

// NewStaticNodes returns an empty bootstrap directory.
func NewStaticNodes() *StaticNodes {
	return &StaticNodes{nodes: make(map[string]*StaticNode)}
}

// LoadStaticNodes parses a config-supplied static node list, resolving
// any hostname entries via DNS, per original_source/adnl-static-nodes.cpp.
// Malformed individual entries are logged and skipped rather than
// failing the whole load, since a bad bootstrap line shouldn't prevent a
// node from starting with whatever else is valid.
func LoadStaticNodes(cfgs []config.StaticNodeConfig) (*StaticNodes, error) {
	sn := NewStaticNodes()
	for _, c := range cfgs {
		key, err := base64.StdEncoding.DecodeString(c.PubKey)
		if err != nil {
			logger.Printf(logger.WARN, "[staticnodes] bad pubkey %q: %s", c.PubKey, err.Error())
			continue
		}
		id, err := util.NewFullNodeId(key)
		if err != nil {
			logger.Printf(logger.WARN, "[staticnodes] bad node id %q: %s", c.PubKey, err.Error())
			continue
		}
		al := &message.AddressList{}
		for _, a := range c.Addrs {
			addr, err := resolveAddr(a)
			if err != nil {
				logger.Printf(logger.WARN, "[staticnodes] %s: %s", a, err.Error())
				continue
			}
			al.Addrs = append(al.Addrs, addr)
		}
		if len(al.Addrs) == 0 {
			continue
		}
		sn.Add(&StaticNode{ID: id, Addr: al})
	}
	return sn, nil
}

// resolveAddr turns a "host:port" config entry into a wire Address,
// resolving the host via DNS if it isn't already a literal IP.
func resolveAddr(hostport string) (message.Address, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("bad port %q: %w", portStr, err)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		ip, err = resolveHostname(host)
		if err != nil {
			return nil, err
		}
	}
	if v4 := ip.To4(); v4 != nil {
		return &message.AddressUDP{
			IP:   uint32(v4[0])<<24 | uint32(v4[1])<<16 | uint32(v4[2])<<8 | uint32(v4[3]),
			Port: int32(port),
		}, nil
	}
	return &message.AddressUDP6{IP: append([]byte(nil), ip.To16()...), Port: int32(port)}, nil
}

// resolveHostname queries dnsServer for an A record, matching the
// teacher's gns/dns.go's retry-loop shape but narrowed to a single
// address lookup.
func resolveHostname(host string) (net.IP, error) {
	m := &dns.Msg{
		MsgHdr:   dns.MsgHdr{RecursionDesired: true, Opcode: dns.OpcodeQuery},
		Question: make([]dns.Question, 1),
	}
	m.Question[0] = dns.Question{Name: dns.Fqdn(host), Qtype: dns.TypeA, Qclass: dns.ClassINET}

	var lastErr error
	for retry := 0; retry < 3; retry++ {
		m.Id = dns.Id()
		in, err := dns.Exchange(m, net.JoinHostPort(dnsServer.String(), "53"))
		if err != nil {
			lastErr = err
			if strings.HasSuffix(err.Error(), "i/o timeout") {
				continue
			}
			return nil, err
		}
		for _, rr := range in.Answer {
			if a, ok := rr.(*dns.A); ok {
				return a.A, nil
			}
		}
		return nil, fmt.Errorf("no A record for %s", host)
	}
	return nil, fmt.Errorf("DNS lookup for %s failed: %w", host, lastErr)
}

// Add registers or replaces a bootstrap node.
func (sn *StaticNodes) Add(n *StaticNode) {
	sn.mtx.Lock()
	defer sn.mtx.Unlock()
	sn.nodes[string(n.ID.Short().Bytes())] = n
}

// Get looks up a bootstrap node by short id.
func (sn *StaticNodes) Get(short *util.ShortNodeId) (*StaticNode, bool) {
	sn.mtx.RLock()
	defer sn.mtx.RUnlock()
	n, ok := sn.nodes[string(short.Bytes())]
	return n, ok
}

// All returns a snapshot of every bootstrap node, e.g. for an initial
// discovery sweep that learns every static node's address into its
// PeerPair before the DHT is consulted.
func (sn *StaticNodes) All() []*StaticNode {
	sn.mtx.RLock()
	defer sn.mtx.RUnlock()
	out := make([]*StaticNode, 0, len(sn.nodes))
	for _, n := range sn.nodes {
		out = append(out, n)
	}
	return out
}

// Seed learns every bootstrap node's address into the given Core so its
// PeerTable has somewhere to send a first packet for each, without
// waiting on DHT discovery.
func (sn *StaticNodes) Seed(c *Core, local *LocalId) {
	for _, n := range sn.All() {
		c.Learn(local, n.ID, n.Addr)
	}
}
