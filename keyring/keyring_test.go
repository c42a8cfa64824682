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

package keyring

import (
	"bytes"
	"testing"

	"github.com/adnl-go/adnl/crypto"
)

func seedKeyring(b byte) *Keyring {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = b
	}
	return New(crypto.PrivateKeyFromSeed(seed))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	alice := seedKeyring(1)
	bob := seedKeyring(2)

	plaintext := []byte("packetContents bytes go here")
	ephPub, ct, err := alice.Encrypt(bob.ID().PublicKey(), plaintext)
	if err != nil {
		t.Fatal(err)
	}

	got, err := bob.Decrypt(ephPub, ct)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("got %q, want %q", got, plaintext)
	}
}

type fakeSignable struct {
	data []byte
	sig  *crypto.Signature
}

func (f *fakeSignable) SignedData() []byte { return f.data }
func (f *fakeSignable) SetSignature(sig *crypto.Signature) error {
	f.sig = sig
	return nil
}

func TestSignProducesVerifiableSignature(t *testing.T) {
	k := seedKeyring(3)
	obj := &fakeSignable{data: []byte("reinit_date||dst_reinit_date")}
	if err := k.Sign(obj); err != nil {
		t.Fatal(err)
	}
	if obj.sig == nil {
		t.Fatal("expected a signature to be set")
	}
	if !k.ID().Verify(obj.data, obj.sig.Bytes()) {
		t.Fatal("signature does not verify against the signer's own id")
	}
}
