// Virtual Media Daemon
// Copyright (c) 2026 Virtual Media Daemon Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of the Virtual Media Daemon.
//
// The Virtual Media Daemon is free software: you can redistribute it
// and/or modify it under the terms of the GNU General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// The Virtual Media Daemon is distributed in the hope that it will be
// useful, but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with the Virtual Media Daemon.  If not, see
// <http://www.gnu.org/licenses/>.

package dbusbus

import (
	"sync/atomic"

	"github.com/godbus/dbus/v5"
	"github.com/openbmc-project/virtual-media/internal/vmedia"
	"github.com/rs/zerolog/log"
)

// Linux errno values the Completion signal carries. The daemon only
// ever runs against a real gadget/NBD stack on Linux, so the wire
// format is pinned to Linux's numbering regardless of what platform a
// development build of this package happens to compile on.
const (
	errnoEPERM       = 1
	errnoEIO         = 5
	errnoEBUSY       = 16
	errnoEINVAL      = 22
	errnoEOPNOTSUPP  = 95
	errnoECONNREFUSED = 111
	errnoECANCELED   = 125
)

// completionNotifier emits the Completion signal spec.md §6 describes:
// an errno carried on the mount point's own interface once an
// asynchronous activation reaches a terminal state. It only fires if
// armed since its last firing, the same suppress-unless-armed shape as
// the original engine's notification wrapper, so a Tick-driven idle
// timeout doesn't emit a signal nobody asked about.
type completionNotifier struct {
	conn  *dbus.Conn
	path  dbus.ObjectPath
	iface string
	armed atomic.Bool
}

func newCompletionNotifier(conn *dbus.Conn, path dbus.ObjectPath, iface string) *completionNotifier {
	return &completionNotifier{conn: conn, path: path, iface: iface}
}

// Arm marks the next Notify call as significant. Called immediately
// before an RPC method hands its event to the machine.
func (n *completionNotifier) Arm() {
	n.armed.Store(true)
}

// Notify emits Completion with errno if Arm was called since the last
// Notify, then disarms. A Notify with no matching Arm is a silent no-op.
func (n *completionNotifier) Notify(errno int) {
	if !n.armed.CompareAndSwap(true, false) {
		return
	}
	if err := n.conn.Emit(n.path, n.iface+".Completion", int32(errno)); err != nil {
		log.Warn().Err(err).Str("path", string(n.path)).Msg("failed to emit completion signal")
	}
}

// errnoFor maps a Mount/Unmount outcome onto the errno the Completion
// signal carries: zero for success, otherwise the errno matching the
// vmedia.ErrKind, mirroring the bus error name table in errors.go but
// as a signal payload rather than a method error reply.
func errnoFor(err error) int {
	if err == nil {
		return 0
	}
	verr, ok := err.(*vmedia.Error) //nolint:errorlint // exact-type dispatch by design
	if !ok {
		return errnoEIO
	}
	switch verr.Kind {
	case vmedia.ErrInvalidArgument:
		return errnoEINVAL
	case vmedia.ErrOperationCanceled:
		return errnoECANCELED
	case vmedia.ErrIOError:
		return errnoEIO
	case vmedia.ErrConnectionRefused:
		return errnoECONNREFUSED
	case vmedia.ErrNotPermitted:
		return errnoEPERM
	case vmedia.ErrNotSupported:
		return errnoEOPNOTSUPP
	case vmedia.ErrBusy:
		return errnoEBUSY
	default:
		return errnoEIO
	}
}
