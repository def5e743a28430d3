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
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// InitialState is where every machine starts. It accepts exactly one
// event, RegisterDbusEvent, which the service layer posts once the
// mount point's D-Bus objects are exported.
type InitialState struct {
	noopState
}

// NewInitialState returns a fresh InitialState.
func NewInitialState() *InitialState { return &InitialState{} }

// Name implements State.
func (*InitialState) Name() string { return stateNameInitial }

// OnEnter never fires in practice: the machine installs InitialState
// directly rather than transitioning into it, so nothing calls this.
// It exists to satisfy State.
func (*InitialState) OnEnter(*Machine) State { return nil }

// Handle accepts RegisterDbusEvent, sent once the mount point's D-Bus
// surface has been exported, and, in legacy mode, cleans up anything
// left behind by an unclean prior shutdown before declaring the mount
// point Ready.
func (s *InitialState) Handle(m *Machine, ev Event) (State, error) {
	if _, ok := ev.(RegisterDbusEvent); !ok {
		log.Warn().Str("state", s.Name()).Str("event", string(ev.Name())).
			Msg("ignoring event not valid in Initial state")
		return nil, nil
	}

	if m.cfg.Mode == ModeLegacy {
		s.cleanupStale(m)
	}
	return NewReadyState(nil), nil
}

// cleanupStale idempotently removes a gadget function and mount
// directory left behind by a process that died before reaching
// DeactivatingState. It is an ordinary Mounter.Unmount (not a forced
// unmount) followed by a directory removal; both steps tolerate
// "already gone".
func (s *InitialState) cleanupStale(m *Machine) {
	if err := m.deps.Gadget.Teardown(m.cfg.Name); err != nil {
		log.Debug().Err(err).Str("mount_point", m.cfg.Name).
			Msg("no stale gadget function to clean up")
	}

	stalePath := filepath.Join(m.deps.TempRoot, m.cfg.Name)
	if err := m.deps.CIFS.Unmount(stalePath); err != nil {
		log.Debug().Err(err).Str("path", stalePath).
			Msg("no stale mount to clean up")
	}
	if err := os.Remove(stalePath); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", stalePath).
			Msg("failed to remove stale mount directory")
	}
}
