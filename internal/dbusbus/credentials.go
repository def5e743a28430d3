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

package dbusbus

import (
	"bytes"
	"os"

	"github.com/openbmc-project/virtual-media/internal/vmedia"
)

// secretLimit bounds how many bytes are read off a Mount fd before
// giving up: a well-behaved caller sends a handful of bytes, and a
// misbehaving one should not be able to make the daemon buffer
// unbounded data from an untrusted descriptor.
const secretLimit = 1024

// readCredentialsFD reads at most secretLimit bytes from fd and parses
// them as "user\0password\0" per spec.md §6's secret pipe format:
// exactly two NUL delimiters, nothing else. The file backing fd is
// always closed before returning, and the read buffer is zeroed
// afterward regardless of outcome.
func readCredentialsFD(fd int) (*vmedia.Credentials, error) {
	f := os.NewFile(uintptr(fd), "vmedia-secret-fd")
	defer f.Close()

	buf := make([]byte, secretLimit+1)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return nil, vmedia.WrapError(vmedia.ErrInvalidArgument, "failed to read credentials fd", err)
	}
	data := buf[:n]
	defer zero(buf)

	if n > secretLimit {
		return nil, vmedia.NewError(vmedia.ErrInvalidArgument, "credentials payload exceeds secret limit")
	}
	if bytes.Count(data, []byte{0}) != 2 {
		return nil, vmedia.NewError(vmedia.ErrInvalidArgument, "malformed credentials framing")
	}
	if data[len(data)-1] != 0 {
		return nil, vmedia.NewError(vmedia.ErrInvalidArgument, "malformed credentials framing")
	}

	parts := bytes.SplitN(data[:len(data)-1], []byte{0}, 2)
	if len(parts) != 2 {
		return nil, vmedia.NewError(vmedia.ErrInvalidArgument, "malformed credentials framing")
	}
	user, password := string(parts[0]), string(parts[1])
	if err := vmedia.ValidateUsername(user); err != nil {
		return nil, err
	}
	return vmedia.NewCredentials(user, password), nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
