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

package config

import (
	"encoding/json"
	"io/ioutil"
	"reflect"
	"regexp"
	"strings"

	"github.com/bfix/gospel/logger"
)

///////////////////////////////////////////////////////////////////////
// Listen / proxy configuration

// ListenPortConfig opens one UDP socket for a Category of traffic.
type ListenPortConfig struct {
	Category string `json:"category"` // "ordinary" or "priority"
	Addr     string `json:"addr"`     // "0.0.0.0:30303"
	UPnP     bool   `json:"upnp"`     // parsed only; no UPnP forwarding is requested for Addr's port
}

// ProxyConfig describes an outbound SOCKS/HTTP proxy (carried over from
// the teacher's transport configuration). It is parsed only: no component
// in this tree routes traffic through a proxy.
type ProxyConfig struct {
	Kind string `json:"kind"` // "socks5", "http"
	Addr string `json:"addr"`
}

///////////////////////////////////////////////////////////////////////
// Static bootstrap nodes

// StaticNodeConfig is one statically-known peer to seed a fresh node's
// address book with at startup, before DHT/persistence discovery has
// anything cached.
type StaticNodeConfig struct {
	PubKey string   `json:"pubkey"` // base64 Ed25519 public key (32 bytes)
	Addrs  []string `json:"addrs"`  // "host:port" or "ip:port"; hostnames resolved via discovery
}

///////////////////////////////////////////////////////////////////////
// Local identities

// LocalIDConfig is one local node identity this process speaks as.
type LocalIDConfig struct {
	Seed     string `json:"seed"`     // base64 Ed25519 private seed; generated if empty
	Category int    `json:"category"` // parsed only; every id's traffic uses the ordinary socket
}

///////////////////////////////////////////////////////////////////////
// Persistence configuration

// PersistenceConfig selects a key/value backend for the peer address
// cache and reinit-date ledger, using the same "<driver>+<dsn>..." spec
// string convention as util.OpenKVStore.
type PersistenceConfig struct {
	Spec string `json:"spec"` // e.g. "sqlite3+./adnl.db", "redis+127.0.0.1:6379+++0"
}

///////////////////////////////////////////////////////////////////////
// DHT configuration

// DHTConfig points at the external DHT collaborator used for address
// discovery; ADNL only ever consumes it through the narrow dht.Client
// interface, never implements DHT routing itself.
type DHTConfig struct {
	Endpoint string `json:"endpoint"` // end-point of the DHT service
}

///////////////////////////////////////////////////////////////////////
// RPC / diagnostics configuration

// RPCConfig, when Addr is set, starts an extserver lite-query TCP
// endpoint (tcp.ping and the optional nonce authentication) alongside
// the node.
type RPCConfig struct {
	Addr string `json:"addr"` // "127.0.0.1:8081"; empty disables RPC
}

///////////////////////////////////////////////////////////////////////

// Environ holds substitution variables used by ${VAR} references
// anywhere else in the configuration.
type Environ map[string]string

// Config is the aggregated configuration for an ADNL node.
type Config struct {
	Env         Environ            `json:"environ"`
	DBRoot      string             `json:"db_root"`
	ListenPorts []ListenPortConfig `json:"listen_ports"`
	Proxies     []ProxyConfig      `json:"proxies"`
	StaticNodes []StaticNodeConfig `json:"static_nodes"`
	LocalIDs    []LocalIDConfig    `json:"local_ids"`
	Persistence *PersistenceConfig `json:"persistence"`
	DHT         *DHTConfig         `json:"dht"`
	RPC         *RPCConfig         `json:"rpc"`
}

var (
	// Cfg is the global configuration
	Cfg *Config
)

// ParseConfig reads a JSON-encoded configuration file and maps it to the
// Config data structure.
func ParseConfig(fileName string) (err error) {
	file, err := ioutil.ReadFile(fileName)
	if err != nil {
		return
	}
	return ParseConfigBytes(file, true)
}

// ParseConfigBytes unmarshals an in-memory JSON configuration. When subst
// is true, ${VAR} references are resolved against Cfg.Env after parsing;
// tests that only want to check unmarshaling can pass false.
func ParseConfigBytes(data []byte, subst bool) (err error) {
	Cfg = new(Config)
	if err = json.Unmarshal(data, Cfg); err != nil {
		return
	}
	if subst {
		applySubstitutions(Cfg, Cfg.Env)
	}
	return
}

var (
	rx = regexp.MustCompile(`\$\{([^\}]*)\}`)
)

// substString is a helper function to substitute environment variables
// with actual values.
func substString(s string, env map[string]string) string {
	matches := rx.FindAllStringSubmatch(s, -1)
	for _, m := range matches {
		if len(m[1]) != 0 {
			subst, ok := env[m[1]]
			if !ok {
				continue
			}
			s = strings.Replace(s, "${"+m[1]+"}", subst, -1)
		}
	}
	return s
}

// applySubstitutions traverses the configuration data structure
// and applies string substitutions to all string values.
func applySubstitutions(x interface{}, env map[string]string) {

	var process func(v reflect.Value)
	process = func(v reflect.Value) {
		for i := 0; i < v.NumField(); i++ {
			fld := v.Field(i)
			if fld.CanSet() {
				switch fld.Kind() {
				case reflect.String:
					// check for substitution
					s := fld.Interface().(string)
					for {
						s1 := substString(s, env)
						if s1 == s {
							break
						}
						logger.Printf(logger.DBG, "[config] %s --> %s\n", s, s1)
						fld.SetString(s1)
						s = s1
					}

				case reflect.Struct:
					// handle nested struct
					process(fld)

				case reflect.Ptr:
					// handle pointer
					e := fld.Elem()
					if e.IsValid() {
						process(fld.Elem())
					} else {
						logger.Printf(logger.ERROR, "[config] 'nil' pointer encountered")
					}

				case reflect.Slice:
					// handle slice of structs (e.g. StaticNodes, ListenPorts)
					for j := 0; j < fld.Len(); j++ {
						e := fld.Index(j)
						if e.Kind() == reflect.Struct && e.CanSet() {
							process(e)
						}
					}
				}
			}
		}
	}
	// start processing at the top-level structure
	v := reflect.ValueOf(x)
	switch v.Kind() {
	case reflect.Ptr:
		// indirect top-level
		e := v.Elem()
		if e.IsValid() {
			process(e)
		} else {
			logger.Printf(logger.ERROR, "[config] 'nil' pointer encountered")
		}
	case reflect.Struct:
		// direct top-level
		process(v)
	}
}
