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
	"context"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
	"github.com/openbmc-project/virtual-media/internal/vmedia"
	"github.com/rs/zerolog/log"
)

const (
	ifaceMountPoint = "xyz.openbmc_project.VirtualMedia.MountPoint"
	ifaceProcess    = "xyz.openbmc_project.VirtualMedia.Process"
	ifaceLegacy     = "xyz.openbmc_project.VirtualMedia.Legacy"
	ifaceProxy      = "xyz.openbmc_project.VirtualMedia.Proxy"
)

// Server owns the system bus connection and exports one object per
// configured mount point onto it.
type Server struct {
	conn *dbus.Conn
}

// Connect dials the system bus and requests the daemon's well-known name.
func Connect(busName string) (*Server, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}
	reply, err := conn.RequestName(busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to request bus name %s: %w", busName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, fmt.Errorf("bus name %s already owned", busName)
	}
	return &Server{conn: conn}, nil
}

// Close releases the bus connection.
func (s *Server) Close() error {
	return s.conn.Close()
}

// objectPath renders the path a mount point is exported under, per
// spec.md §6: /xyz/openbmc_project/VirtualMedia/{Proxy|Legacy}/<name>.
func objectPath(cfg vmedia.Config) dbus.ObjectPath {
	kind := "Proxy"
	if cfg.Mode == vmedia.ModeLegacy {
		kind = "Legacy"
	}
	return dbus.ObjectPath(fmt.Sprintf("/xyz/openbmc_project/VirtualMedia/%s/%s", kind, cfg.Name))
}

// RegisterMountPoint exports a mount point's full D-Bus surface
// (MountPoint and Process properties, the mode-specific Mount/Unmount
// methods) and delivers RegisterDbusEvent to its machine, exactly the
// transition InitialState is waiting for.
func (s *Server) RegisterMountPoint(ctx context.Context, cfg vmedia.Config, m *vmedia.Machine) error {
	path := objectPath(cfg)
	ifaceName := ifaceProxy
	if cfg.Mode == vmedia.ModeLegacy {
		ifaceName = ifaceLegacy
	}
	common := mountPointCommon{
		machine:    m,
		cfg:        cfg,
		completion: newCompletionNotifier(s.conn, path, ifaceName),
	}

	var exported interface{} = &proxyRPC{common}
	if cfg.Mode == vmedia.ModeLegacy {
		exported = &legacyRPC{common}
	}
	if err := s.conn.Export(exported, path, ifaceName); err != nil {
		return fmt.Errorf("failed to export %s on %s: %w", ifaceName, path, err)
	}

	if _, err := s.exportProperties(ctx, cfg, m, path); err != nil {
		return err
	}

	node := &introspect.Node{
		Name: string(path),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			introspectInterface(ifaceName, cfg),
		},
	}
	if err := s.conn.Export(introspect.NewIntrospectable(node), path, "org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspection for %s: %w", path, err)
	}

	if err := m.Emit(ctx, vmedia.RegisterDbusEvent{}); err != nil {
		return fmt.Errorf("failed to register mount point %s: %w", cfg.Name, err)
	}
	log.Info().Str("mount_point", cfg.Name).Str("path", string(path)).Msg("mount point registered on d-bus")
	return nil
}

func (s *Server) exportProperties(ctx context.Context, cfg vmedia.Config, m *vmedia.Machine, path dbus.ObjectPath) (*prop.Properties, error) {
	readOnlyPropErr := func(*prop.Change) *dbus.Error {
		return toDBusError(vmedia.NewError(vmedia.ErrNotPermitted, "property is read-only"))
	}

	propsSpec := prop.Map{
		ifaceMountPoint: {
			"Device":     {Value: cfg.NBDDevice, Writable: false, Emit: prop.EmitFalse},
			"EndpointId": {Value: cfg.EndpointID, Writable: false, Emit: prop.EmitFalse},
			"Socket":     {Value: cfg.UnixSocket, Writable: false, Emit: prop.EmitFalse},
			"ImageURL": {
				Value: "", Writable: false, Emit: prop.EmitTrue,
				Callback: func(*prop.Change) *dbus.Error { return nil },
			},
			"WriteProtected": {Value: true, Writable: false, Emit: prop.EmitTrue},
			"Timeout": {
				Value: int32(cfg.Timeout.Seconds()), Writable: true, Emit: prop.EmitTrue,
				Callback: readOnlyPropErr,
			},
			"RemainingInactivityTimeout": {
				Value: int32(0), Writable: false, Emit: prop.EmitTrue,
				Callback: readOnlyPropErr,
			},
		},
		ifaceProcess: {
			"Active":   {Value: false, Writable: false, Emit: prop.EmitTrue},
			"ExitCode": {Value: int32(-1), Writable: false, Emit: prop.EmitTrue},
		},
	}

	props, err := prop.Export(s.conn, path, propsSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to export properties for %s: %w", path, err)
	}
	go refreshProperties(ctx, m, props)
	return props, nil
}

// refreshProperties polls the machine's published Snapshot and mirrors
// it onto the exported D-Bus properties until ctx is canceled. Polling,
// not a push callback, mirrors the RPC adapter's own polling
// relationship to the machine: this goroutine is a reader of Snapshot,
// never a writer of machine state.
func refreshProperties(ctx context.Context, m *vmedia.Machine, props *prop.Properties) {
	last := vmedia.Snapshot{}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		snap := m.Snapshot()
		if snap != last {
			props.SetMust(ifaceMountPoint, "ImageURL", snap.ImageURL)
			props.SetMust(ifaceMountPoint, "WriteProtected", !snap.RW)
			props.SetMust(ifaceMountPoint, "RemainingInactivityTimeout", int32(snap.RemainingInactivityTimeout.Seconds()))
			props.SetMust(ifaceProcess, "Active", snap.State == "Active")
			props.SetMust(ifaceProcess, "ExitCode", snap.ExitCode)
			last = snap
		}
		time.Sleep(100 * time.Millisecond)
	}
}
