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

//go:build linux

package nbddevice

import (
	"context"

	"github.com/rs/zerolog/log"
)

// NewDefault returns a NetlinkMonitor, falling back to a
// FallbackMonitor if the netlink socket cannot be opened (missing
// CAP_NET_ADMIN, a locked-down container), the same primary/fallback
// selection shape as the teacher's externaldrive reader picking
// between its D-Bus and poll-based detectors.
func NewDefault(ctx context.Context) (Monitor, error) {
	primary := NewNetlinkMonitor()
	if err := primary.Start(ctx); err == nil {
		return primary, nil
	}
	log.Warn().Msg("uevent netlink unavailable, falling back to sysfs watch")

	fallback := NewFallbackMonitor()
	if err := fallback.Start(ctx); err != nil {
		return nil, err
	}
	return fallback, nil
}
