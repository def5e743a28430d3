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

package cifsmount

import "sync"

// FakeMounter is a hand-written test double for Mounter.
type FakeMounter struct {
	mu         sync.Mutex
	Mounted    map[string]Remote
	Passwords  map[string]string
	MountErr   error
	UnmountErr error
}

var _ Mounter = (*FakeMounter)(nil)

// NewFakeMounter returns a ready-to-use FakeMounter.
func NewFakeMounter() *FakeMounter {
	return &FakeMounter{Mounted: make(map[string]Remote), Passwords: make(map[string]string)}
}

// Mount records the mount, and the password it was called with, unless
// MountErr is set. Tests read Passwords back to confirm what reached
// the mount call without needing the caller's Credentials to still be
// live afterward.
func (f *FakeMounter) Mount(localDir string, remote Remote, _ bool, _, password string) error {
	if f.MountErr != nil {
		return f.MountErr
	}
	f.mu.Lock()
	f.Mounted[localDir] = remote
	f.Passwords[localDir] = password
	f.mu.Unlock()
	return nil
}

// Unmount clears the recorded mount unless UnmountErr is set.
func (f *FakeMounter) Unmount(localDir string) error {
	f.mu.Lock()
	delete(f.Mounted, localDir)
	f.mu.Unlock()
	return f.UnmountErr
}

// IsMounted reports whether localDir is currently recorded as mounted.
func (f *FakeMounter) IsMounted(localDir string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.Mounted[localDir]
	return ok
}
