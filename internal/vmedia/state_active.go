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

import (
	"time"

	"github.com/openbmc-project/virtual-media/internal/gadget"
	"github.com/rs/zerolog/log"
)

// ActiveState owns the Process and Gadget that make up a live mount.
// It runs the idle timer via Tick rather than its own goroutine, so the
// check always executes on the machine's single goroutine alongside
// every other state transition.
type ActiveState struct {
	process      *Process
	gadgetR      *Gadget
	mount        *Mount        // nil for proxy and legacy-https targets
	volatileFile *VolatileFile // non-nil only for legacy-https targets mounted with credentials

	lastAccess  time.Time
	lastStats   gadget.Stats
	idleExpired bool
}

func newActiveState(process *Process, g *Gadget, mount *Mount, volatileFile *VolatileFile) *ActiveState {
	return &ActiveState{process: process, gadgetR: g, mount: mount, volatileFile: volatileFile}
}

// Name implements State.
func (*ActiveState) Name() string { return stateNameActive }

// OnEnter arms the idle window starting now.
func (s *ActiveState) OnEnter(m *Machine) State {
	s.lastAccess = m.deps.Clock.Now()
	if stats, err := s.gadgetR.Stats(); err == nil {
		s.lastStats = stats
	}
	m.updateSnapshot(func(snap *Snapshot) { snap.RemainingInactivityTimeout = inactivityTimeout })
	return nil
}

// Tick samples gadget activity once a second. Any observed change to
// the counters resets the idle window; otherwise the countdown is
// published and, once it reaches zero, an UnmountEvent is posted onto
// the machine's own event channel so the actual transition still goes
// through the ordinary dispatch path.
func (s *ActiveState) Tick(m *Machine, now time.Time) State {
	if s.idleExpired {
		return nil
	}
	if stats, err := s.gadgetR.Stats(); err == nil {
		if stats != s.lastStats {
			s.lastStats = stats
			s.lastAccess = now
		}
	}

	elapsed := now.Sub(s.lastAccess)
	if elapsed >= inactivityTimeout {
		s.idleExpired = true
		// Tick runs on the goroutine that receives from the event
		// channel, so the post has to come from another goroutine.
		go m.Post(UnmountEvent{})
		return nil
	}
	m.updateSnapshot(func(snap *Snapshot) {
		snap.RemainingInactivityTimeout = inactivityTimeout - elapsed
	})
	return nil
}

// Handle reacts to unmount requests and to any sign the underlying
// device or subprocess has gone away: all three route to
// DeactivatingState for an orderly teardown. MountEvent is illegal
// while already active.
func (s *ActiveState) Handle(m *Machine, ev Event) (State, error) {
	switch e := ev.(type) {
	case UnmountEvent:
		return newDeactivatingState(s.process, s.gadgetR, s.mount, s.volatileFile, false, nil, nil), nil
	case UdevStateChangeEvent:
		return newDeactivatingState(s.process, s.gadgetR, s.mount, s.volatileFile, false, nil, nil), nil
	case SubprocessStoppedEvent:
		code := int32(e.ExitCode)
		return newDeactivatingState(s.process, s.gadgetR, s.mount, s.volatileFile, true, &code, nil), nil
	case MountEvent:
		return nil, NewError(ErrNotPermitted, "already active")
	default:
		log.Warn().Str("state", s.Name()).Str("event", string(ev.Name())).
			Msg("event not supported in Active state")
		return nil, NewError(ErrNotSupported, "event not supported in Active state")
	}
}

// Abort releases everything in strict reverse-acquisition order if the
// daemon shuts down while a mount point is active.
func (s *ActiveState) Abort(*Machine) {
	if s.gadgetR != nil {
		s.gadgetR.Close()
	}
	if s.process != nil {
		s.process.Close()
	}
	if s.mount != nil {
		s.mount.Close()
	}
	if s.volatileFile != nil {
		s.volatileFile.Close()
	}
}
