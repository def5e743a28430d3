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

package vmedia

// EventName identifies the concrete Event type without a type switch at
// every call site that only wants to log or route by name.
type EventName string

const (
	EventRegisterDbus      EventName = "RegisterDbusEvent"
	EventMount             EventName = "MountEvent"
	EventUnmount           EventName = "UnmountEvent"
	EventUdevStateChange   EventName = "UdevStateChangeEvent"
	EventSubprocessStopped EventName = "SubprocessStoppedEvent"
)

// Event is anything the state machine can react to. States type-switch
// on the concrete type; EventName exists for logging.
type Event interface {
	Name() EventName
}

// RegisterDbusEvent fires once, right after the machine's D-Bus objects
// have been exported, driving Initial -> Ready.
type RegisterDbusEvent struct{}

// Name implements Event.
func (RegisterDbusEvent) Name() EventName { return EventRegisterDbus }

// MountEvent requests activation of the given target. RW applies to
// every target; Credentials are only used by legacy-mode SMB and HTTPS
// targets.
type MountEvent struct {
	ImageURL    string
	RW          bool
	Credentials *Credentials
}

// Name implements Event.
func (MountEvent) Name() EventName { return EventMount }

// UnmountEvent requests deactivation of the current target.
type UnmountEvent struct{}

// Name implements Event.
func (UnmountEvent) Name() EventName { return EventUnmount }

// DeviceState is the udev-observed attach/detach state of the backing
// NBD device.
type DeviceState int

const (
	DeviceUnknown DeviceState = iota
	DeviceInserted
	DeviceRemoved
)

// String renders the state for log lines.
func (s DeviceState) String() string {
	switch s {
	case DeviceInserted:
		return "inserted"
	case DeviceRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// UdevStateChangeEvent reports the NBD device monitor's observation of
// the kernel block device this mount point's gadget is backed by.
type UdevStateChangeEvent struct {
	State DeviceState
}

// Name implements Event.
func (UdevStateChangeEvent) Name() EventName { return EventUdevStateChange }

// SubprocessStoppedEvent reports that the supervised nbd-client/nbdkit
// subprocess has exited, whether requested or not.
type SubprocessStoppedEvent struct {
	ExitCode int
}

// Name implements Event.
func (SubprocessStoppedEvent) Name() EventName { return EventSubprocessStopped }
