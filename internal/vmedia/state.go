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

import "time"

// State is one node of the mount point's state machine. Only the
// machine's own goroutine ever calls these methods, so implementations
// are free to keep mutable fields without locking.
type State interface {
	// Name identifies the state for logs and the published Snapshot.
	Name() string
	// OnEnter runs once, right after this state is installed. It may
	// perform side effects (spawning a process, mounting a share) and
	// return a further state to transition to immediately, the same
	// way changeState recurses on onEnter in the original engine. Most
	// states return nil to simply remain installed.
	OnEnter(m *Machine) State
	// Handle reacts to an event delivered while this state is current.
	// A non-nil returned state transitions; a non-nil error rejects the
	// event without transitioning (the state stays put) and is
	// reported back to a synchronous caller, if any.
	Handle(m *Machine, ev Event) (State, error)
	// Tick runs on every machine heartbeat regardless of current state;
	// only ActiveState acts on it, running the idle timeout check.
	Tick(m *Machine, now time.Time) State
	// Abort releases any resources this state still owns, called when
	// the machine is shut down while this state is current rather than
	// through the normal Deactivating path.
	Abort(m *Machine)
}

// noopState gives states with no periodic behavior and nothing to clean
// up on abort a default to embed, instead of repeating empty bodies.
type noopState struct{}

func (noopState) Tick(*Machine, time.Time) State { return nil }
func (noopState) Abort(*Machine)                 {}

// isTerminal reports whether a state name is one an RPC caller can stop
// polling at: Ready (activation failed or nothing mounted) or Active
// (activation succeeded). Initial, Activating, and Deactivating are all
// transient.
func isTerminal(name string) bool {
	return name == stateNameReady || name == stateNameActive
}

const (
	stateNameInitial     = "Initial"
	stateNameReady       = "Ready"
	stateNameActivating  = "Activating"
	stateNameActive      = "Active"
	stateNameDeactivating = "Deactivating"
)

// inactivityTimeout is the fixed idle window ActiveState enforces
// before posting its own UnmountEvent.
const inactivityTimeout = 30 * time.Minute

// idleCheckPeriod is how often ActiveState re-samples gadget activity.
const idleCheckPeriod = 1 * time.Second
