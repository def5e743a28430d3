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

// Package gadget configures the USB mass-storage gadget function that
// exposes a mount point's backing NBD device to the host as a USB
// drive. The sysfs/configfs manipulation is treated as an external,
// mockable concern the way the teacher treats device topology lookups
// in pkg/helpers/usb_linux.go: resolve paths, write attributes, and
// leave the kernel to do the rest.
package gadget

// Stats reports a gadget function's basic activity counters. The active
// state's idle check compares successive samples; they are not exported
// on D-Bus.
type Stats struct {
	BytesRead    uint64
	BytesWritten uint64
}

// Controller configures and tears down one mount point's gadget
// function. Implementations are not required to be safe for concurrent
// use; each mount point's state machine goroutine owns exactly one.
type Controller interface {
	// Configure attaches the backing block device (identified by udc
	// and lunFile, e.g. an /dev/nbdN path) to a mass-storage gadget
	// function named after the mount point, then enables the function.
	Configure(udc, name, lunFile string, readOnly bool) error
	// Teardown disables and removes the gadget function. It must be
	// safe to call even if Configure never completed.
	Teardown(name string) error
	// Stats reads current activity counters for the named function.
	Stats(name string) (Stats, error)
}
