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

package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bfix/gospel/logger"

	"github.com/adnl-go/adnl/config"
	"github.com/adnl-go/adnl/core"
	"github.com/adnl-go/adnl/crypto"
	"github.com/adnl-go/adnl/dht"
	"github.com/adnl-go/adnl/extserver"
	"github.com/adnl-go/adnl/persistence"
	"github.com/adnl-go/adnl/transport"
	"github.com/adnl-go/adnl/util"
)

func main() {
	defer func() {
		logger.Println(logger.INFO, "[adnl] Bye.")
		logger.Flush()
	}()
	logger.Println(logger.INFO, "[adnl] Starting node...")

	var (
		cfgFile  string
		logLevel int
	)
	flag.StringVar(&cfgFile, "c", "adnl-config.json", "ADNL node configuration file")
	flag.IntVar(&logLevel, "L", logger.INFO, "log level (default: INFO)")
	flag.Parse()

	if err := config.ParseConfig(cfgFile); err != nil {
		logger.Printf(logger.ERROR, "[adnl] invalid configuration file: %s\n", err.Error())
		return
	}
	logger.SetLogLevel(logLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := core.NewCore(ctx, "adnl-node")
	defer c.Shutdown()

	// optional persistence: a peer's last-known address list and epoch
	// survive a restart instead of being rediscovered from scratch.
	if pc := config.Cfg.Persistence; pc != nil && len(pc.Spec) > 0 {
		store, err := persistence.Open(pc.Spec)
		if err != nil {
			logger.Printf(logger.ERROR, "[adnl] persistence: %s\n", err.Error())
			return
		}
		c.UsePersistence(store)
		logger.Printf(logger.INFO, "[adnl] persistence backend: %s\n", pc.Spec)
	}

	// bootstrap directory: static nodes seed a PeerPair with somewhere to
	// send a first packet before DHT discovery has anything cached.
	staticNodes, err := core.LoadStaticNodes(config.Cfg.StaticNodes)
	if err != nil {
		logger.Printf(logger.ERROR, "[adnl] static nodes: %s\n", err.Error())
		return
	}

	// open the listening sockets named in the configuration.
	for _, lp := range config.Cfg.ListenPorts {
		cat := transport.CategoryOrdinary
		if lp.Category == "priority" {
			cat = transport.CategoryPriority
		}
		addr, err := net.ResolveUDPAddr("udp", lp.Addr)
		if err != nil {
			logger.Printf(logger.ERROR, "[adnl] bad listen address %q: %s\n", lp.Addr, err.Error())
			return
		}
		if err := c.Listen(ctx, cat, addr); err != nil {
			logger.Printf(logger.ERROR, "[adnl] listen %s failed: %s\n", lp.Addr, err.Error())
			return
		}
		logger.Printf(logger.INFO, "[adnl] listening on %s (%s)\n", lp.Addr, lp.Category)
	}

	// the DHT is consulted only through the narrow dht.Client interface
	// (interior routing/replication is someone else's problem); until a
	// real network client is wired up here, fall back to an in-memory
	// stand-in so address publication and the lite-query surface below
	// still have something to exercise.
	var dhtClient dht.Client = dht.NewMemory()
	if dc := config.Cfg.DHT; dc != nil && len(dc.Endpoint) > 0 {
		logger.Printf(logger.INFO, "[adnl] DHT endpoint %s configured but no network client is wired up yet; using an in-memory stand-in\n", dc.Endpoint)
	}
	c.UseDHT(dhtClient)

	// bring up every configured local identity.
	locals := make([]*core.LocalId, 0, len(config.Cfg.LocalIDs))
	for i, lc := range config.Cfg.LocalIDs {
		prv, err := resolveLocalSeed(lc.Seed)
		if err != nil {
			logger.Printf(logger.ERROR, "[adnl] local id #%d: %s\n", i, err.Error())
			return
		}
		id := c.AddLocalId(prv)
		locals = append(locals, id)
		staticNodes.Seed(c, id)
		go id.PublishLoop(ctx, dhtClient)
	}

	// the lite-query TCP surface (tcp.ping / optional nonce auth) doubles
	// as this node's diagnostics endpoint; RPCConfig.Addr names where it
	// listens, replacing the teacher's JSON-RPC introspection service
	// with ADNL's own narrower wire protocol.
	var liteSrv *extserver.Server
	if rc := config.Cfg.RPC; rc != nil && len(rc.Addr) > 0 {
		liteSrv = extserver.NewServer()
		if err := liteSrv.Listen("tcp+" + rc.Addr); err != nil {
			logger.Printf(logger.ERROR, "[adnl] lite-query endpoint %s failed: %s\n", rc.Addr, err.Error())
			return
		}
		logger.Printf(logger.INFO, "[adnl] lite-query endpoint listening on %s\n", rc.Addr)
		defer liteSrv.Close()
	}

	sigCh := make(chan os.Signal, 5)
	signal.Notify(sigCh)
	tick := time.NewTicker(5 * time.Minute)
	defer tick.Stop()

loop:
	for {
		select {
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGKILL, syscall.SIGINT, syscall.SIGTERM:
				logger.Printf(logger.INFO, "[adnl] terminating on signal '%s'\n", sig)
				break loop
			case syscall.SIGHUP:
				logger.Println(logger.INFO, "[adnl] SIGHUP")
			default:
				logger.Println(logger.INFO, "[adnl] unhandled signal: "+sig.String())
			}
		case now := <-tick.C:
			logger.Println(logger.INFO, "[adnl] heart beat at "+now.String())
		}
	}
}

// resolveLocalSeed decodes a base64 Ed25519 seed from configuration, or
// generates (and logs, so an operator can pin it down for the next run)
// a fresh one when the configuration leaves it blank.
func resolveLocalSeed(seedB64 string) (*crypto.PrivateKey, error) {
	if len(seedB64) == 0 {
		seed := util.NewRndArray(32)
		logger.Printf(logger.WARN, "[adnl] generated a new local identity seed: %s\n", base64.StdEncoding.EncodeToString(seed))
		return crypto.PrivateKeyFromSeed(seed), nil
	}
	seed, err := base64.StdEncoding.DecodeString(seedB64)
	if err != nil {
		return nil, fmt.Errorf("bad seed: %w", err)
	}
	if len(seed) != 32 {
		return nil, fmt.Errorf("seed must be 32 bytes, got %d", len(seed))
	}
	return crypto.PrivateKeyFromSeed(seed), nil
}
