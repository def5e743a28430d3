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
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/openbmc-project/virtual-media/internal/vmedia"
	"github.com/rs/zerolog/log"
)

// mountPointCommon carries the state every mount point RPC object needs
// regardless of mode, and implements the mode-independent half of the
// {Legacy,Proxy} interfaces (Unmount is identical in both).
type mountPointCommon struct {
	machine    *vmedia.Machine
	cfg        vmedia.Config
	completion *completionNotifier
}

// waitForCompletion blocks on ev reaching a terminal state, emits the
// Completion signal with the outcome's errno, and turns the outcome
// into the *dbus.Error a method handler must return.
func (r *mountPointCommon) waitForCompletion(ev vmedia.Event) *dbus.Error {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout+5*time.Second)
	defer cancel()

	r.completion.Arm()

	if err := r.machine.Emit(ctx, ev); err != nil {
		r.completion.Notify(errnoFor(err))
		return toDBusError(err)
	}
	snap, err := r.machine.WaitForTerminal(ctx)
	if err != nil {
		r.completion.Notify(errnoFor(err))
		return toDBusError(err)
	}
	if snap.LastError != nil {
		r.completion.Notify(errnoFor(snap.LastError))
		return toDBusError(snap.LastError)
	}
	r.completion.Notify(0)
	log.Info().Str("mount_point", r.cfg.Name).Str("state", snap.State).Msg("request completed")
	return nil
}

// Unmount deactivates the mount point, blocking until it is idle again.
func (r *mountPointCommon) Unmount() *dbus.Error {
	return r.waitForCompletion(vmedia.UnmountEvent{})
}

// proxyRPC implements xyz.openbmc_project.VirtualMedia.Proxy: nbd-client
// attaches directly to a remote NBD export, so Mount takes only an
// image URL.
type proxyRPC struct {
	mountPointCommon
}

// Mount activates the mount point against a remote NBD export. The
// nbd-client arguments come from the mount point's configuration alone;
// imageURL is only published as the ImageURL property.
func (r *proxyRPC) Mount(imageURL string) *dbus.Error {
	return r.waitForCompletion(vmedia.MountEvent{ImageURL: imageURL})
}

// legacyRPC implements xyz.openbmc_project.VirtualMedia.Legacy: the
// daemon fetches or mounts the image itself, so Mount additionally
// takes the read-write flag and an optional credentials pipe fd.
type legacyRPC struct {
	mountPointCommon
}

// Mount activates the mount point against imageURL. credentialsFd is a
// pipe read end framed as "user\0password\0" per spec.md §6, or -1 for
// an anonymous target.
func (r *legacyRPC) Mount(imageURL string, rw bool, credentialsFd dbus.UnixFD) *dbus.Error {
	ev := vmedia.MountEvent{ImageURL: imageURL, RW: rw}
	if credentialsFd >= 0 {
		creds, err := readCredentialsFD(int(credentialsFd))
		if err != nil {
			return toDBusError(err)
		}
		ev.Credentials = creds
	}
	return r.waitForCompletion(ev)
}

// introspectInterface describes the mode-specific methods exported at
// ifaceName so generic D-Bus introspection tools show real signatures
// instead of the empty interface reflection would otherwise produce.
func introspectInterface(ifaceName string, cfg vmedia.Config) introspect.Interface {
	mountArgs := []introspect.Arg{
		{Name: "imageUrl", Type: "s", Direction: "in"},
	}
	if cfg.Mode == vmedia.ModeLegacy {
		mountArgs = append(mountArgs,
			introspect.Arg{Name: "rw", Type: "b", Direction: "in"},
			introspect.Arg{Name: "credentialsFd", Type: "h", Direction: "in"},
		)
	}
	return introspect.Interface{
		Name: ifaceName,
		Methods: []introspect.Method{
			{Name: "Mount", Args: mountArgs},
			{Name: "Unmount"},
		},
	}
}
