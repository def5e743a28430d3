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

package gadget

import "sync"

// FakeController is a hand-written test double for Controller.
type FakeController struct {
	mu           sync.Mutex
	Configured   map[string]bool
	ConfigureErr error
	TeardownErr  error
	StatsFn      func(name string) (Stats, error)
}

var _ Controller = (*FakeController)(nil)

// NewFakeController returns a ready-to-use FakeController.
func NewFakeController() *FakeController {
	return &FakeController{Configured: make(map[string]bool)}
}

// Configure records the function as configured unless ConfigureErr is set.
func (f *FakeController) Configure(_, name, _ string, _ bool) error {
	if f.ConfigureErr != nil {
		return f.ConfigureErr
	}
	f.mu.Lock()
	f.Configured[name] = true
	f.mu.Unlock()
	return nil
}

// Teardown clears the function's configured flag unless TeardownErr is set.
func (f *FakeController) Teardown(name string) error {
	f.mu.Lock()
	f.Configured[name] = false
	f.mu.Unlock()
	return f.TeardownErr
}

// Stats delegates to StatsFn, or returns a zero value if unset.
func (f *FakeController) Stats(name string) (Stats, error) {
	if f.StatsFn != nil {
		return f.StatsFn(name)
	}
	return Stats{}, nil
}

// IsConfigured reports whether Configure has been called for name more
// recently than Teardown.
func (f *FakeController) IsConfigured(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Configured[name]
}
