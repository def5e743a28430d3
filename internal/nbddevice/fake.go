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

package nbddevice

import "context"

// FakeMonitor is a hand-written test double for Monitor: tests push
// Change values directly onto it instead of touching real devices.
type FakeMonitor struct {
	changes chan Change
	started bool
	stopped bool
}

var _ Monitor = (*FakeMonitor)(nil)

// NewFakeMonitor returns a ready-to-use FakeMonitor.
func NewFakeMonitor() *FakeMonitor {
	return &FakeMonitor{changes: make(chan Change, 16)}
}

// Start records that the monitor was started; it does nothing else.
func (f *FakeMonitor) Start(context.Context) error {
	f.started = true
	return nil
}

// Changes implements Monitor.
func (f *FakeMonitor) Changes() <-chan Change { return f.changes }

// Push injects a Change as if it had been observed on the host.
func (f *FakeMonitor) Push(c Change) { f.changes <- c }

// Stop records that the monitor was stopped.
func (f *FakeMonitor) Stop() { f.stopped = true }
