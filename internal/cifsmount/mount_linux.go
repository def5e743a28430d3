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

//go:build linux

package cifsmount

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// KernelMounter mounts CIFS shares through the kernel's cifs.ko
// filesystem driver via mount(2), retrying across SMB dialects.
type KernelMounter struct{}

var _ Mounter = (*KernelMounter)(nil)

// NewDefault returns the production Mounter for this platform.
func NewDefault() Mounter { return KernelMounter{} }

// Mount tries each protocol version in versionFallbackOrder until one
// succeeds, returning the last error if none do.
func (KernelMounter) Mount(localDir string, remote Remote, rw bool, user, password string) error {
	var lastErr error
	for _, vers := range versionFallbackOrder {
		opts := buildOptions(rw, user, password, vers)
		err := unix.Mount(remote.UNC(), localDir, "cifs", 0, opts)
		if err == nil {
			return nil
		}
		log.Warn().Err(err).Str("dialect", vers).Str("share", remote.UNC()).
			Msg("cifs mount attempt failed, trying next dialect")
		lastErr = err
	}
	return fmt.Errorf("failed to mount %s at %s: %w", remote.UNC(), localDir, lastErr)
}

// Unmount detaches the filesystem mounted at localDir.
func (KernelMounter) Unmount(localDir string) error {
	if err := unix.Unmount(localDir, 0); err != nil {
		return fmt.Errorf("failed to unmount %s: %w", localDir, err)
	}
	return nil
}
