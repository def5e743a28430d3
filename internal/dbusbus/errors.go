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

// Package dbusbus is the only part of the daemon that knows about D-Bus:
// it exports each mount point's MountPoint/Process/{Legacy,Proxy}
// interfaces, translates method calls into vmedia.Event values, and
// maps vmedia.Error back into bus error names. Nothing in
// internal/vmedia imports this package.
package dbusbus

import (
	"github.com/godbus/dbus/v5"
	"github.com/openbmc-project/virtual-media/internal/vmedia"
)

// busErrorNames follows spec.md §7's error taxonomy table exactly: one
// bus error name per vmedia.ErrKind.
var busErrorNames = map[vmedia.ErrKind]string{
	vmedia.ErrInvalidArgument:    "org.freedesktop.DBus.Error.InvalidArgs",
	vmedia.ErrOperationCanceled:  "xyz.openbmc_project.Common.Error.OperationCanceled",
	vmedia.ErrIOError:            "xyz.openbmc_project.Common.Error.IOError",
	vmedia.ErrConnectionRefused:  "xyz.openbmc_project.Common.Error.ConnectionRefused",
	vmedia.ErrNotPermitted:       "xyz.openbmc_project.Common.Error.NotPermitted",
	vmedia.ErrNotSupported:       "xyz.openbmc_project.Common.Error.NotSupported",
	vmedia.ErrBusy:               "xyz.openbmc_project.Common.Error.Busy",
}

// toDBusError maps a vmedia.Error onto the bus error name a D-Bus
// method handler must return for the client to see the right errno.
// Any other error (a context cancellation, a bug) becomes a generic
// failure rather than leaking Go error text verbatim onto the bus.
func toDBusError(err error) *dbus.Error {
	if err == nil {
		return nil
	}
	verr, ok := err.(*vmedia.Error) //nolint:errorlint // exact-type dispatch by design
	if !ok {
		return dbus.MakeFailedError(err)
	}
	name, ok := busErrorNames[verr.Kind]
	if !ok {
		name = "org.freedesktop.DBus.Error.Failed"
	}
	return dbus.NewError(name, []interface{}{verr.Message})
}
