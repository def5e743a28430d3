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

// Package service assembles the daemon's process-wide pieces: one
// Machine per configured mount point, the single shared NBD device
// monitor fanning udev observations out to the right machine, and the
// D-Bus connection every mount point is exported on.
package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonboulle/clockwork"
	"github.com/openbmc-project/virtual-media/internal/cifsmount"
	"github.com/openbmc-project/virtual-media/internal/config"
	"github.com/openbmc-project/virtual-media/internal/dbusbus"
	"github.com/openbmc-project/virtual-media/internal/gadget"
	"github.com/openbmc-project/virtual-media/internal/nbddevice"
	"github.com/openbmc-project/virtual-media/internal/procsup"
	"github.com/openbmc-project/virtual-media/internal/vmedia"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// gadgetRoot is the configfs USB gadget tree every mount point's
// ConfigfsController links its mass-storage function into. Fixed for
// now; multiple independently-configured gadgets are out of scope.
const gadgetRoot = "/sys/kernel/config/usb_gadget/vmedia"

// gadgetConfigName is the gadget configuration every mass-storage
// function is linked into so the UDC picks it up on bind.
const gadgetConfigName = "c.1"

// Service owns every mount point's Machine, keyed by the short NBD
// device name (e.g. "nbd0") the shared device monitor reports changes
// against.
type Service struct {
	bus      *dbusbus.Server
	monitor  nbddevice.Monitor
	machines map[string]*vmedia.Machine
}

// New wires one Machine per configured mount point against the real,
// non-fake collaborators: subprocess supervision, CIFS mounts, and USB
// gadget functions. Tests exercise vmedia.Machine directly with fakes;
// this constructor is only reached from cmd/virtualmediad.
func New(cfg *config.Instance, bus *dbusbus.Server, monitor nbddevice.Monitor) (*Service, error) {
	vals := cfg.Values()
	if err := os.MkdirAll(vals.TempRoot, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create temp root %s: %w", vals.TempRoot, err)
	}

	s := &Service{bus: bus, monitor: monitor, machines: make(map[string]*vmedia.Machine)}
	for _, mpv := range vals.MountPoints {
		mcfg, err := mpv.ToVMediaConfig(vals.Log.VerboseNbdkit)
		if err != nil {
			return nil, err
		}
		device := filepath.Base(mcfg.NBDDevice)
		if _, exists := s.machines[device]; exists {
			return nil, fmt.Errorf("mount point %q: nbd device %s already claimed", mcfg.Name, mcfg.NBDDevice)
		}
		s.machines[device] = vmedia.NewMachine(mcfg, vmedia.Dependencies{
			Executor:      &procsup.RealExecutor{},
			Gadget:        gadget.NewDefault(gadgetRoot, gadgetConfigName),
			CIFS:          cifsmount.NewDefault(),
			Clock:         clockwork.NewRealClock(),
			TempRoot:      vals.TempRoot,
			NBDClientPath: "/usr/sbin/nbd-client",
			NBDKitPath:    "/usr/sbin/nbdkit",
		})
	}
	return s, nil
}

// Run starts every machine's event loop, the device monitor fan-out,
// and registers each mount point on the bus. It blocks until ctx is
// canceled or a component returns an error.
func (s *Service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for device, m := range s.machines {
		m := m
		device := device
		g.Go(func() error {
			log.Debug().Str("nbd_device", device).Str("mount_point", m.Name()).Msg("machine started")
			m.Run(ctx)
			return nil
		})
	}

	for _, m := range s.machines {
		if err := s.bus.RegisterMountPoint(ctx, m.Config(), m); err != nil {
			return err
		}
	}

	g.Go(func() error {
		return s.watchDevices(ctx)
	})

	return g.Wait()
}

// watchDevices fans out the shared monitor's Changes to whichever
// machine owns the reported device, ignoring devices no configured
// mount point claims.
func (s *Service) watchDevices(ctx context.Context) error {
	changes := s.monitor.Changes()
	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			m, found := s.machines[change.Device]
			if !found {
				continue
			}
			state := vmedia.DeviceRemoved
			if change.Inserted {
				state = vmedia.DeviceInserted
			}
			m.Post(vmedia.UdevStateChangeEvent{State: state})
		}
	}
}

// Close releases the D-Bus connection and device monitor. Call after
// Run returns.
func (s *Service) Close() error {
	s.monitor.Stop()
	return s.bus.Close()
}
