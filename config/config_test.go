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
	"testing"

	"github.com/bfix/gospel/logger"
)

func TestConfigRead(t *testing.T) {
	logger.SetLogLevel(logger.WARN)

	data, err := ioutil.ReadFile("./adnl-config.json")
	if err != nil {
		t.Fatal(err)
	}
	if err := ParseConfigBytes(data, false); err != nil {
		t.Fatal(err)
	}
	if _, err = json.Marshal(Cfg); err != nil {
		t.Fatal(err)
	}
	if len(Cfg.StaticNodes) != 1 {
		t.Fatalf("got %d static nodes, want 1", len(Cfg.StaticNodes))
	}
	if len(Cfg.ListenPorts) != 1 {
		t.Fatalf("got %d listen ports, want 1", len(Cfg.ListenPorts))
	}
}

func TestConfigSubstitution(t *testing.T) {
	raw := `{
		"environ": {"DB_ROOT": "/var/lib/adnl"},
		"db_root": "${DB_ROOT}/node1",
		"persistence": {"spec": "sqlite3+${DB_ROOT}/node1/peers.db"}
	}`
	if err := ParseConfigBytes([]byte(raw), true); err != nil {
		t.Fatal(err)
	}
	if Cfg.DBRoot != "/var/lib/adnl/node1" {
		t.Fatalf("db_root substitution failed: %q", Cfg.DBRoot)
	}
	if Cfg.Persistence.Spec != "sqlite3+/var/lib/adnl/node1/peers.db" {
		t.Fatalf("nested substitution failed: %q", Cfg.Persistence.Spec)
	}
}
