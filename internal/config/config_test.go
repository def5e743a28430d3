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

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/openbmc-project/virtual-media/internal/config"
	"github.com/openbmc-project/virtual-media/internal/vmedia"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultValues() config.Values {
	return config.Values{
		ConfigSchema: config.SchemaVersion,
		TempRoot:     "/run/virtual-media",
		MountPoints: []config.MountPointValues{
			{Name: "vm0", Mode: "proxy", NBDDevice: "/dev/nbd0", EndpointID: "vm0", UDC: "musb-hdrc"},
		},
	}
}

func TestNewConfigWritesDefaultsWhenMissing(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "virtual-media.toml")

	inst, err := config.NewConfig(path, defaultValues())
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Len(t, inst.Values().MountPoints, 1)
}

func TestLoadRejectsMismatchedSchema(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "virtual-media.toml")
	require.NoError(t, os.WriteFile(path, []byte("config_schema = 99\n"), 0o644))

	_, err := config.NewConfig(path, defaultValues())
	require.Error(t, err)
}

func TestMountPointValuesToVMediaConfig(t *testing.T) {
	t.Parallel()
	v := config.MountPointValues{Name: "vm0", Mode: "legacy", NBDDevice: "/dev/nbd0", TimeoutSecond: 10}
	cfg, err := v.ToVMediaConfig(true)
	require.NoError(t, err)
	assert.Equal(t, vmedia.ModeLegacy, cfg.Mode)
	assert.Equal(t, "vm0", cfg.Name)
	assert.True(t, cfg.VerboseNbdkit)

	_, err = config.MountPointValues{Name: "bad", Mode: "nonsense"}.ToVMediaConfig(false)
	assert.Error(t, err)
}
