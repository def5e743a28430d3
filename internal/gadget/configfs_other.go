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

//go:build !linux

package gadget

import "fmt"

// UnsupportedController is a non-Linux development stand-in: USB
// gadget configfs is a Linux kernel concept, so there is nothing to
// shim the way cifsmount shims a real mount with an SMB2 client copy.
type UnsupportedController struct{}

var _ Controller = (*UnsupportedController)(nil)

// NewDefault returns the development-platform Controller.
func NewDefault(string, string) Controller { return &UnsupportedController{} }

// Configure always fails: there is no gadget subsystem to configure.
func (*UnsupportedController) Configure(_, name, _ string, _ bool) error {
	return fmt.Errorf("usb gadget functions are not supported on this platform (function %s)", name)
}

// Teardown is a no-op since Configure never succeeds.
func (*UnsupportedController) Teardown(string) error { return nil }

// Stats always returns zero counters.
func (*UnsupportedController) Stats(string) (Stats, error) { return Stats{}, nil }
