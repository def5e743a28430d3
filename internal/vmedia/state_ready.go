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

import "github.com/rs/zerolog/log"

// ReadyState is the idle terminal state: nothing mounted, ready to
// accept a Mount request. It may carry the error from the last failed
// activation attempt, which the RPC adapter surfaces to whichever
// caller is polling for a terminal state.
type ReadyState struct {
	noopState
	err *Error
}

// NewReadyState returns a ReadyState carrying the given error, if any.
func NewReadyState(err *Error) *ReadyState { return &ReadyState{err: err} }

// Name implements State.
func (*ReadyState) Name() string { return stateNameReady }

// Err returns the error left by the last failed activation, or nil.
func (s *ReadyState) Err() *Error { return s.err }

// OnEnter clears the target and the published idle countdown, and
// publishes the carried error, if any, as Snapshot.LastError for the
// RPC adapter to read.
func (s *ReadyState) OnEnter(m *Machine) State {
	m.updateSnapshot(func(snap *Snapshot) {
		snap.ImageURL = ""
		snap.RW = false
		snap.RemainingInactivityTimeout = 0
		snap.LastError = s.err
	})
	return nil
}

// Handle accepts MountEvent, which adopts the requested target and
// begins activation. UnmountEvent is illegal here: there is nothing to
// unmount. Anything else is logged and ignored.
func (s *ReadyState) Handle(m *Machine, ev Event) (State, error) {
	switch e := ev.(type) {
	case MountEvent:
		return newActivatingState(e.ImageURL, e.RW, e.Credentials), nil
	case UnmountEvent:
		return nil, NewError(ErrNotPermitted, "no target mounted")
	default:
		log.Warn().Str("state", s.Name()).Str("event", string(ev.Name())).
			Msg("ignoring event not valid in Ready state")
		return nil, nil
	}
}
