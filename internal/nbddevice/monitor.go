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

// Package nbddevice watches the kernel's NBD block devices for
// attach/detach and fans the observations out to every mount point's
// state machine, filtered by which device each one owns. It is the one
// process-wide component the spec calls out explicitly: a single
// monitor, many subscribers.
//
// The dual-strategy shape - a primary path backed by a kernel
// notification channel plus an fsnotify watch on sysfs as the fallback
// if that channel is unavailable - follows the teacher's
// pkg/readers/externaldrive/mount_detector_linux.go, which pairs a
// UDisks2/D-Bus watcher with an inotify/poll-based one.
package nbddevice

import "context"

// Change reports an observed attach/detach of one named NBD device
// (e.g. "nbd0", matching the tail of /dev/nbd0).
type Change struct {
	Device   string
	Inserted bool
}

// Monitor watches all NBD devices on the host and publishes Changes on
// its channel until Stop is called or ctx is canceled.
type Monitor interface {
	// Start begins watching. It must be called at most once.
	Start(ctx context.Context) error
	// Changes returns the channel Change events are delivered on. Safe
	// to call before or after Start.
	Changes() <-chan Change
	// Stop releases any OS resources the monitor holds. Safe to call
	// more than once.
	Stop()
}
