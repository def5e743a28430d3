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

package vmedia_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/openbmc-project/virtual-media/internal/vmedia"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeCommasIsIdempotent(t *testing.T) {
	t.Parallel()
	c := vmedia.NewCredentials("alice", "p,a,ss")

	c.EscapeCommas()
	assert.Equal(t, "p,,a,,ss", c.Password())

	c.EscapeCommas()
	assert.Equal(t, "p,,a,,ss", c.Password(), "second call must not double-escape")
}

func TestEscapeCommasNoOpWithoutCommas(t *testing.T) {
	t.Parallel()
	c := vmedia.NewCredentials("alice", "swordfish")
	c.EscapeCommas()
	assert.Equal(t, "swordfish", c.Password())
}

func TestValidateUsernameRejectsComma(t *testing.T) {
	t.Parallel()
	err := vmedia.ValidateUsername("ali,ce")
	require.Error(t, err)

	require.NoError(t, vmedia.ValidateUsername("alice"))
}

func TestCredentialsZeroClearsBuffers(t *testing.T) {
	t.Parallel()
	c := vmedia.NewCredentials("alice", "secret")
	c.Zero()
	assert.Empty(t, c.User())
	assert.Empty(t, c.Password())
}

func TestVolatileFilePurgesOnClose(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	secret := []byte("hunter2")

	vf, err := vmedia.NewVolatileFile(dir, secret)
	require.NoError(t, err)

	data, err := os.ReadFile(vf.Path())
	require.NoError(t, err)
	assert.Equal(t, "hunter2", string(data))
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0}, secret, "caller's buffer must be zeroed after write")

	path := vf.Path()
	require.NoError(t, vf.Close())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestNewDirectoryUniqueName(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	d, err := vmedia.NewDirectory(root, "vm0")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "vm0"), d.Path())

	_, err = vmedia.NewDirectory(root, "vm0")
	assert.Error(t, err, "creating the same directory twice must fail")

	require.NoError(t, d.Close())
	_, err = os.Stat(filepath.Join(root, "vm0"))
	assert.True(t, os.IsNotExist(err))
}
