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

// DeactivatingState performs one deterministic teardown pass and always
// transitions straight to ReadyState from OnEnter: there is nothing to
// wait for, since every resource's Close is either synchronous or
// (Process) fire-and-forget.
type DeactivatingState struct {
	noopState

	process               *Process
	gadgetR               *Gadget
	mount                 *Mount
	volatileFile          *VolatileFile
	processAlreadyStopped bool
	exitCode              *int32
	err                   *Error
}

func newDeactivatingState(process *Process, g *Gadget, mount *Mount, volatileFile *VolatileFile, processAlreadyStopped bool, exitCode *int32, err *Error) *DeactivatingState {
	return &DeactivatingState{
		process:               process,
		gadgetR:               g,
		mount:                 mount,
		volatileFile:          volatileFile,
		processAlreadyStopped: processAlreadyStopped,
		exitCode:              exitCode,
		err:                   err,
	}
}

// Name implements State.
func (*DeactivatingState) Name() string { return stateNameDeactivating }

// OnEnter publishes the subprocess exit code if this teardown was
// triggered by one, releases Gadget, then Process, then Mount and
// VolatileFile, in that order, then hands off to ReadyState carrying
// whatever error this teardown was triggered by.
func (s *DeactivatingState) OnEnter(m *Machine) State {
	if s.exitCode != nil {
		code := *s.exitCode
		m.updateSnapshot(func(snap *Snapshot) { snap.ExitCode = code })
	}
	if s.gadgetR != nil {
		s.gadgetR.Close()
	}
	if s.process != nil && !s.processAlreadyStopped {
		s.process.Close()
	}
	if s.mount != nil {
		s.mount.Close()
	}
	if s.volatileFile != nil {
		s.volatileFile.Close()
	}
	return NewReadyState(s.err)
}

// Handle is never reached in practice: OnEnter always transitions away
// synchronously before another event can be dispatched. It exists to
// satisfy State and to fail safe if that ever changes.
func (s *DeactivatingState) Handle(*Machine, Event) (State, error) {
	return nil, NewError(ErrNotPermitted, "event not valid in Deactivating state")
}
