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
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/openbmc-project/virtual-media/internal/cifsmount"
	"github.com/openbmc-project/virtual-media/internal/gadget"
	"github.com/openbmc-project/virtual-media/internal/procsup"
	"github.com/openbmc-project/virtual-media/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

// Dependencies are the collaborators a Machine needs to actually touch
// the outside world. Tests supply fakes; internal/service wires the
// real implementations.
type Dependencies struct {
	Executor      procsup.Executor
	Gadget        gadget.Controller
	CIFS          cifsmount.Mounter
	Clock         clockwork.Clock
	TempRoot      string
	NBDClientPath string
	NBDKitPath    string
}

// Snapshot is the read-only view of a mount point published for
// cross-goroutine readers: the D-Bus property getters and the RPC
// adapter's polling loop. It is copied out from behind a lock, never
// shared by pointer.
type Snapshot struct {
	State                      string
	Terminal                   bool
	ImageURL                   string
	RW                         bool
	RemainingInactivityTimeout time.Duration
	ExitCode                   int32
	LastError                  *Error
}

// Machine runs one mount point's state machine on a single goroutine.
// Every field below OnEnter/Handle/Tick may touch is owned by that
// goroutine; everything else in this struct is safe for concurrent use.
type Machine struct {
	name string
	cfg  Config
	deps Dependencies

	events chan job
	done   chan struct{}

	state State

	snapshotMu syncutil.RWMutex
	snapshot   Snapshot
}

type job struct {
	event Event
	reply chan error
}

// NewMachine constructs a Machine in InitialState. Run must be called
// to actually start processing events.
func NewMachine(cfg Config, deps Dependencies) *Machine {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	m := &Machine{
		name:   cfg.Name,
		cfg:    cfg,
		deps:   deps,
		events: make(chan job),
		done:   make(chan struct{}),
		state:  NewInitialState(),
	}
	m.snapshot = Snapshot{State: stateNameInitial, ExitCode: -1}
	return m
}

// Name returns the mount point's name.
func (m *Machine) Name() string { return m.name }

// Config returns the mount point's static configuration.
func (m *Machine) Config() Config { return m.cfg }

// Snapshot returns a copy of the currently published state.
func (m *Machine) Snapshot() Snapshot {
	m.snapshotMu.RLock()
	defer m.snapshotMu.RUnlock()
	return m.snapshot
}

func (m *Machine) updateSnapshot(fn func(*Snapshot)) {
	m.snapshotMu.Lock()
	defer m.snapshotMu.Unlock()
	fn(&m.snapshot)
}

func (m *Machine) publishState() {
	name := m.state.Name()
	m.updateSnapshot(func(snap *Snapshot) {
		snap.State = name
		snap.Terminal = isTerminal(name)
	})
}

// Emit hands ev to the machine's goroutine and blocks until it has been
// dispatched, returning any error the current state raised in response
// (used by the RPC adapter to reject illegal Mount/Unmount calls
// immediately rather than waiting out the poll timeout). It does not
// wait for the resulting state to become terminal; callers that need
// that use WaitForTerminal afterward.
func (m *Machine) Emit(ctx context.Context, ev Event) error {
	reply := make(chan error, 1)
	select {
	case m.events <- job{event: ev, reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return NewError(ErrOperationCanceled, "machine stopped")
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Post hands ev to the machine's goroutine without waiting for it to be
// dispatched. Used by resources (Process exit, the NBD device monitor)
// that have no caller to report an error back to.
func (m *Machine) Post(ev Event) {
	select {
	case m.events <- job{event: ev}:
	case <-m.done:
	}
}

// WaitForTerminal polls the published snapshot until it reports a
// terminal state or the configured timeout elapses, implementing the
// blocking half of the Mount/Unmount D-Bus methods described in the
// external interface: waitCnt = (timeout + 5s) / 100ms.
func (m *Machine) WaitForTerminal(ctx context.Context) (Snapshot, error) {
	if snap := m.Snapshot(); snap.Terminal {
		return snap, nil
	}
	ticker := m.deps.Clock.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for i := 0; i < m.cfg.WaitTicks(); i++ {
		select {
		case <-ticker.Chan():
			if snap := m.Snapshot(); snap.Terminal {
				return snap, nil
			}
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		case <-m.done:
			return Snapshot{}, NewError(ErrOperationCanceled, "machine stopped")
		}
	}
	return m.Snapshot(), NewError(ErrBusy, "timed out waiting for mount point to settle")
}

// Run drives the machine's event loop until ctx is canceled. It must be
// called exactly once, typically from internal/service in its own
// goroutine per mount point.
func (m *Machine) Run(ctx context.Context) {
	defer close(m.done)
	m.publishState()

	ticker := m.deps.Clock.NewTicker(idleCheckPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.state.Abort(m)
			return
		case now := <-ticker.Chan():
			m.dispatchTick(now)
		case j := <-m.events:
			err := m.dispatch(j.event)
			if j.reply != nil {
				j.reply <- err
			}
		}
	}
}

func (m *Machine) dispatch(ev Event) error {
	log.Debug().Str("mount_point", m.name).Str("state", m.state.Name()).
		Str("event", string(ev.Name())).Msg("dispatching event")

	next, err := m.state.Handle(m, ev)
	if err != nil {
		return err
	}
	if next != nil {
		m.transitionTo(next)
	}
	return nil
}

func (m *Machine) dispatchTick(now time.Time) {
	if next := m.state.Tick(m, now); next != nil {
		m.transitionTo(next)
	}
}

// transitionTo installs next and recursively follows any chained
// OnEnter transitions, matching the original engine's changeState
// recursion.
func (m *Machine) transitionTo(next State) {
	for next != nil {
		m.state = next
		m.publishState()
		log.Info().Str("mount_point", m.name).Str("state", m.state.Name()).Msg("state transition")
		next = m.state.OnEnter(m)
	}
}
