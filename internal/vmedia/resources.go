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
	"os"
	"path/filepath"

	"github.com/openbmc-project/virtual-media/internal/cifsmount"
	"github.com/openbmc-project/virtual-media/internal/gadget"
	"github.com/openbmc-project/virtual-media/internal/procsup"
	"github.com/rs/zerolog/log"
)

// Directory is a freshly created empty directory under a temp root,
// named after the owning mount point so its identity is stable and
// unique across the machines running in one process. Closing it removes
// the directory; it must already be empty (whatever was mounted onto
// it must have been unmounted first).
type Directory struct {
	path string
}

// NewDirectory creates root/name, failing if it already exists: a
// leftover directory from an unclean shutdown is a bug to surface, not
// paper over by reusing it.
func NewDirectory(root, name string) (*Directory, error) {
	path := filepath.Join(root, name)
	if err := os.Mkdir(path, 0o700); err != nil {
		return nil, WrapError(ErrIOError, "failed to create mount directory", err)
	}
	return &Directory{path: path}, nil
}

// Path returns the directory's filesystem path.
func (d *Directory) Path() string { return d.path }

// Close removes the directory.
func (d *Directory) Close() error {
	if d.path == "" {
		return nil
	}
	if err := os.Remove(d.path); err != nil {
		log.Error().Err(err).Str("path", d.path).Msg("failed to remove mount directory")
		return WrapError(ErrIOError, "failed to remove mount directory", err)
	}
	d.path = ""
	return nil
}

// Mount is a CIFS share attached at a Directory. Closing it detaches
// the share, then removes the directory it was attached to, mirroring
// the reverse-acquisition order of the resources it composes.
type Mount struct {
	dir     *Directory
	mounter cifsmount.Mounter
}

// NewMount creates a fresh Directory and mounts remote onto it. On
// mount failure the directory is removed before the error is returned,
// so a failed acquisition never leaves an orphaned empty directory
// behind for the next attempt to trip over.
func NewMount(root, name string, mounter cifsmount.Mounter, remote cifsmount.Remote, rw bool, user, password string) (*Mount, error) {
	dir, err := NewDirectory(root, name)
	if err != nil {
		return nil, err
	}
	if err := mounter.Mount(dir.Path(), remote, rw, user, password); err != nil {
		dir.Close()
		return nil, WrapError(ErrIOError, "failed to mount cifs share", err)
	}
	return &Mount{dir: dir, mounter: mounter}, nil
}

// Path returns the local directory the share is mounted at.
func (m *Mount) Path() string { return m.dir.Path() }

// Close unmounts the share and removes its directory.
func (m *Mount) Close() error {
	if m.dir == nil {
		return nil
	}
	if err := m.mounter.Unmount(m.dir.Path()); err != nil {
		log.Error().Err(err).Str("path", m.dir.Path()).Msg("failed to unmount cifs share")
	}
	err := m.dir.Close()
	m.dir = nil
	return err
}

// Process is a supervised nbd-client or nbdkit subprocess. Its
// SubprocessStoppedEvent is delivered by the caller-supplied poster
// regardless of whether the exit was requested via Close or happened
// on its own, the same way the original's spawn() completion handler
// fired unconditionally.
type Process struct {
	handle procsup.Handle
}

// NewProcess wraps an already-started procsup.Handle and arranges for
// exit to be reported through poster, called from a dedicated goroutine
// so the state machine's own goroutine is never blocked waiting on a
// subprocess.
func NewProcess(handle procsup.Handle, poster func(SubprocessStoppedEvent)) *Process {
	p := &Process{handle: handle}
	go func() {
		code, _ := handle.Wait()
		poster(SubprocessStoppedEvent{ExitCode: code})
	}()
	return p
}

// Pid returns the subprocess's process id.
func (p *Process) Pid() int { return p.handle.Pid() }

// Close asks the subprocess to stop. It does not block for exit: the
// SubprocessStoppedEvent posted by NewProcess's goroutine is how the
// state machine learns the process is actually gone.
func (p *Process) Close() error {
	p.handle.Stop()
	return nil
}

// Gadget is a configured USB mass-storage gadget function backing one
// mount point's NBD device. Teardown failures are logged, never
// propagated: by the time a Gadget is being closed the daemon has
// already committed to tearing everything else down too, and a stuck
// gadget function should not block that.
type Gadget struct {
	controller gadget.Controller
	name       string
}

// NewGadget configures a gadget function named after the mount point,
// backed by lunFile (typically the NBD device path).
func NewGadget(controller gadget.Controller, udc, name, lunFile string, readOnly bool) (*Gadget, error) {
	if err := controller.Configure(udc, name, lunFile, readOnly); err != nil {
		return nil, WrapError(ErrIOError, "failed to configure gadget function", err)
	}
	return &Gadget{controller: controller, name: name}, nil
}

// Stats reports the gadget function's activity counters.
func (g *Gadget) Stats() (gadget.Stats, error) {
	return g.controller.Stats(g.name)
}

// Close tears down the gadget function.
func (g *Gadget) Close() error {
	if err := g.controller.Teardown(g.name); err != nil {
		log.Error().Err(err).Str("gadget_function", g.name).Msg("failed to tear down gadget function")
	}
	return nil
}
