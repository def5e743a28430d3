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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePipe(t *testing.T, data []byte) int {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	go func() {
		w.Write(data)
		w.Close()
	}()
	return int(r.Fd())
}

func TestReadCredentialsFDValid(t *testing.T) {
	fd := writePipe(t, []byte("alice\x00hunter2\x00"))
	creds, err := readCredentialsFD(fd)
	require.NoError(t, err)
	assert.Equal(t, "alice", creds.User())
	assert.Equal(t, "hunter2", creds.Password())
}

func TestReadCredentialsFDRejectsWrongNULCount(t *testing.T) {
	for _, data := range [][]byte{
		[]byte("aliceandpassword"),          // zero NULs
		[]byte("alice\x00hunter2"),          // one NUL
		[]byte("a\x00l\x00i\x00ce\x00"),     // three-plus NULs
	} {
		fd := writePipe(t, data)
		_, err := readCredentialsFD(fd)
		require.Error(t, err)
	}
}

func TestReadCredentialsFDRejectsOversizedPayload(t *testing.T) {
	huge := bytes.Repeat([]byte("a"), secretLimit+10)
	huge = append(huge, 0, 0)
	fd := writePipe(t, huge)
	_, err := readCredentialsFD(fd)
	require.Error(t, err)
}
