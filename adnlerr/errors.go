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

// Package adnlerr defines the error-kind taxonomy shared by the ADNL
// packages. Every package still keeps its own sentinel errors (following
// the convention in transport.go/endpoint.go); this package only groups
// them into the kinds that callers need to switch on.
package adnlerr

import "errors"

// Kind classifies an error without forcing callers to match error strings.
type Kind struct {
	err error
}

// Is implements errors.Is support so wrapped sentinels compare by kind.
func (k *Kind) Is(target error) bool {
	return errors.Is(k.err, target)
}

func (k *Kind) Error() string {
	return k.err.Error()
}

// Unwrap exposes the underlying sentinel for errors.As/errors.Is chains.
func (k *Kind) Unwrap() error {
	return k.err
}

// Kinds named directly from the error handling design: malformed bytes or
// bad signatures, a component not ready to send, a timed-out operation, an
// unresolvable destination, a cancelled wait, a duplicate or stale seqno,
// an unmatched subscription prefix, and an oversized object.
var (
	ProtocolViolation   = &Kind{errors.New("adnl: protocol violation")}
	NotReady            = &Kind{errors.New("adnl: not ready")}
	Timeout             = &Kind{errors.New("adnl: timeout")}
	UnknownDestination  = &Kind{errors.New("adnl: unknown destination")}
	Cancelled           = &Kind{errors.New("adnl: cancelled")}
	Duplicate           = &Kind{errors.New("adnl: duplicate")}
	Stale               = &Kind{errors.New("adnl: stale")}
	NoHandler           = &Kind{errors.New("adnl: no handler")}
	TooBig              = &Kind{errors.New("adnl: too big")}
)

// Wrap annotates err with a kind so errors.Is(wrapped, adnlerr.Timeout)
// succeeds while the original error text and %w chain are preserved.
func Wrap(kind *Kind, err error) error {
	if err == nil {
		return nil
	}
	return &wrapped{kind: kind, err: err}
}

type wrapped struct {
	kind *Kind
	err  error
}

func (w *wrapped) Error() string { return w.err.Error() }
func (w *wrapped) Unwrap() error { return w.err }
func (w *wrapped) Is(target error) bool {
	if k, ok := target.(*Kind); ok {
		return k == w.kind
	}
	return errors.Is(w.err, target)
}
