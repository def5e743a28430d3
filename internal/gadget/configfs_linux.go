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

package gadget

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"
)

// ConfigfsController manages a mass-storage gadget function under a
// legacy configfs gadget tree, e.g.
// /sys/kernel/config/usb_gadget/<gadget>/functions/mass_storage.<name>.
type ConfigfsController struct {
	GadgetRoot string // e.g. /sys/kernel/config/usb_gadget/vmedia
	ConfigName string // e.g. c.1, the config the function is linked into
}

var _ Controller = (*ConfigfsController)(nil)

// NewDefault returns the production Controller for this platform.
func NewDefault(gadgetRoot, configName string) Controller {
	return &ConfigfsController{GadgetRoot: gadgetRoot, ConfigName: configName}
}

func (c *ConfigfsController) funcDir(name string) string {
	return filepath.Join(c.GadgetRoot, "functions", "mass_storage."+name)
}

func (c *ConfigfsController) linkPath(name string) string {
	return filepath.Join(c.GadgetRoot, "configs", c.ConfigName, "mass_storage."+name)
}

// Configure creates the function directory, sets lun.0/ro, points its
// lun.0/file at lunFile, then links it into the active configuration so the
// UDC picks it up on its next bind. udc is accepted for interface
// symmetry but unused here: the UDC bind happens once at gadget level,
// not per function.
func (c *ConfigfsController) Configure(udc, name, lunFile string, readOnly bool) error {
	_ = udc
	dir := c.funcDir(name)
	if err := os.MkdirAll(filepath.Join(dir, "lun.0"), 0o755); err != nil {
		return fmt.Errorf("failed to create gadget function %s: %w", name, err)
	}

	roVal := "0"
	if readOnly {
		roVal = "1"
	}
	if err := os.WriteFile(filepath.Join(dir, "lun.0", "ro"), []byte(roVal), 0o644); err != nil {
		return fmt.Errorf("failed to set ro for gadget function %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "lun.0", "file"), []byte(lunFile), 0o644); err != nil {
		return fmt.Errorf("failed to bind lun file for gadget function %s: %w", name, err)
	}

	if err := os.Symlink(dir, c.linkPath(name)); err != nil && !os.IsExist(err) {
		return fmt.Errorf("failed to link gadget function %s into config: %w", name, err)
	}

	log.Info().Str("gadget_function", name).Str("lun_file", lunFile).Bool("read_only", readOnly).
		Msg("gadget function configured")
	return nil
}

// Teardown unlinks the function from its config and removes its
// directory. Both steps are best-effort against a partially configured
// or already-torn-down function.
func (c *ConfigfsController) Teardown(name string) error {
	var firstErr error
	if err := os.Remove(c.linkPath(name)); err != nil && !os.IsNotExist(err) {
		firstErr = fmt.Errorf("failed to unlink gadget function %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(c.funcDir(name), "lun.0", "file"), []byte(""), 0o644); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("gadget_function", name).Msg("failed to clear lun file before removal")
	}
	if err := os.Remove(filepath.Join(c.funcDir(name), "lun.0")); err != nil && !os.IsNotExist(err) && firstErr == nil {
		firstErr = fmt.Errorf("failed to remove lun.0 for gadget function %s: %w", name, err)
	}
	if err := os.Remove(c.funcDir(name)); err != nil && !os.IsNotExist(err) && firstErr == nil {
		firstErr = fmt.Errorf("failed to remove gadget function %s: %w", name, err)
	}
	return firstErr
}

// Stats reads lun.0's forced_eject/cdrom counters are not exposed by
// the kernel mass_storage gadget, so this reports the backing file's
// current size as a proxy for read/write activity is unavailable;
// implementations that need real throughput would parse
// /sys/class/block/<dev>/stat for the backing NBD device instead.
func (c *ConfigfsController) Stats(name string) (Stats, error) {
	data, err := os.ReadFile(filepath.Join(c.funcDir(name), "lun.0", "file"))
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read gadget function %s: %w", name, err)
	}
	fi, err := os.Stat(string(data))
	if err != nil {
		return Stats{}, nil //nolint:nilerr // no backing file yet is not an error
	}
	size, err := strconv.ParseUint(strconv.FormatInt(fi.Size(), 10), 10, 64)
	if err != nil {
		return Stats{}, nil //nolint:nilerr
	}
	return Stats{BytesRead: size, BytesWritten: 0}, nil
}
