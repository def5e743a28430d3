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
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// VolatileFile is a temp file created to hand a secret to a subprocess
// through a filesystem path (nbdkit's curl plugin reads its password
// from a file, not an argv entry that would show up in ps). Its
// contents are overwritten with filler before the file is unlinked.
type VolatileFile struct {
	path string
	size int
}

// NewVolatileFile writes contents to a new file with a random name
// under dir and zeroes the caller's copy of contents before returning,
// so the secret exists in exactly one place: the file on disk.
func NewVolatileFile(dir string, contents []byte) (*VolatileFile, error) {
	name := filepath.Join(dir, "vmedia-"+uuid.NewString())
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, WrapError(ErrIOError, "failed to create volatile file", err)
	}
	defer f.Close()

	if _, err := f.Write(contents); err != nil {
		os.Remove(name)
		return nil, WrapError(ErrIOError, "failed to write volatile file", err)
	}
	size := len(contents)
	secureZero(contents)

	return &VolatileFile{path: name, size: size}, nil
}

// Path returns the file's path on disk.
func (v *VolatileFile) Path() string { return v.path }

// Close overwrites the file with filler bytes, then unlinks it.
func (v *VolatileFile) Close() error {
	if v.path == "" {
		return nil
	}
	filler := make([]byte, v.size)
	for i := range filler {
		filler[i] = '*'
	}
	if err := os.WriteFile(v.path, filler, 0o600); err != nil {
		return fmt.Errorf("failed to purge volatile file %s: %w", v.path, err)
	}
	err := os.Remove(v.path)
	v.path = ""
	if err != nil {
		return fmt.Errorf("failed to remove volatile file: %w", err)
	}
	return nil
}
