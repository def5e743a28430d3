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

package nbddevice

import "context"

// NewDefault returns a FakeMonitor on non-Linux platforms: NBD block
// devices and their uevents are a Linux kernel concept with no
// analogue to shim, unlike cifsmount's SMB2 client fallback. It exists
// only so cmd/virtualmediad builds for development off Linux.
func NewDefault(ctx context.Context) (Monitor, error) {
	m := NewFakeMonitor()
	if err := m.Start(ctx); err != nil {
		return nil, err
	}
	return m, nil
}
