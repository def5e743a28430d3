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

	"github.com/openbmc-project/virtual-media/internal/cifsmount"
)

// ActivatingState spawns whatever subprocess and resources config.Mode
// requires and waits for the backing NBD device to show up. Every code
// path here either returns a further state from OnEnter (activation
// failed synchronously) or leaves the machine here to wait on
// UdevStateChangeEvent / SubprocessStoppedEvent.
type ActivatingState struct {
	noopState

	imageURL    string
	rw          bool
	credentials *Credentials

	process      *Process
	mount        *Mount
	volatileFile *VolatileFile
}

func newActivatingState(imageURL string, rw bool, creds *Credentials) *ActivatingState {
	return &ActivatingState{imageURL: imageURL, rw: rw, credentials: creds}
}

// Name implements State.
func (*ActivatingState) Name() string { return stateNameActivating }

// OnEnter dispatches on config.Mode, spawning the subprocess (and, in
// legacy mode, acquiring whatever local resource backs it) needed to
// bring the NBD device up. Credentials are only ever needed to build
// that one subprocess invocation, so they are wiped unconditionally
// once dispatch returns, regardless of whether activation succeeded.
func (s *ActivatingState) OnEnter(m *Machine) State {
	next := s.dispatch(m)
	s.zeroCredentials()
	return next
}

func (s *ActivatingState) dispatch(m *Machine) State {
	switch m.cfg.Mode {
	case ModeProxy:
		return s.activateProxy(m)
	case ModeLegacy:
		return s.activateLegacy(m)
	default:
		return NewReadyState(NewError(ErrNotSupported, fmt.Sprintf("unknown mode %q", m.cfg.Mode)))
	}
}

func (s *ActivatingState) zeroCredentials() {
	if s.credentials != nil {
		s.credentials.Zero()
		s.credentials = nil
	}
}

func (s *ActivatingState) activateProxy(m *Machine) State {
	handle, err := m.deps.Executor.StartSupervised(m.deps.NBDClientPath, m.cfg.NBDClientArgs()...)
	if err != nil {
		return NewReadyState(WrapError(ErrOperationCanceled, "failed to spawn process", err))
	}
	s.process = NewProcess(handle, func(ev SubprocessStoppedEvent) { m.Post(ev) })
	return nil
}

func (s *ActivatingState) activateLegacy(m *Machine) State {
	socketDir := filepath.Dir(m.cfg.UnixSocket)
	if err := os.MkdirAll(socketDir, 0o700); err != nil {
		return NewReadyState(WrapError(ErrIOError, "failed to create socket directory", err))
	}
	// unixSocket is shared across successive activations; nbdkit refuses
	// to bind if a stale socket file from a prior run is still there.
	if err := os.Remove(m.cfg.UnixSocket); err != nil && !os.IsNotExist(err) {
		return NewReadyState(WrapError(ErrIOError, "failed to remove stale socket", err))
	}

	src, err := parseImageURL(s.imageURL)
	if err != nil {
		verr, _ := err.(*Error) //nolint:errorlint // parseImageURL always returns *Error or nil
		return NewReadyState(verr)
	}

	switch src.Scheme {
	case SchemeSMB:
		return s.activateSMB(m, src.Remote)
	case SchemeHTTPS:
		return s.activateHTTPS(m, src.URL)
	default:
		return NewReadyState(NewError(ErrInvalidArgument, "URL not recognized"))
	}
}

func (s *ActivatingState) activateSMB(m *Machine, remote cifsmount.Remote) State {
	user, password := "", ""
	if s.credentials != nil {
		s.credentials.EscapeCommas()
		user, password = s.credentials.User(), s.credentials.Password()
	}

	mount, err := NewMount(m.deps.TempRoot, m.cfg.Name, m.deps.CIFS, remote, s.rw, user, password)
	if err != nil {
		return NewReadyState(WrapError(ErrIOError, "failed to mount smb share", err))
	}
	s.mount = mount

	args := s.nbdkitArgs(m, "file", "file="+filepath.Join(mount.Path(), filepath.FromSlash(remote.Path)))
	handle, err := m.deps.Executor.StartSupervised(m.deps.NBDKitPath, args...)
	if err != nil {
		mount.Close()
		s.mount = nil
		return NewReadyState(WrapError(ErrOperationCanceled, "failed to spawn process", err))
	}
	s.process = NewProcess(handle, func(ev SubprocessStoppedEvent) { m.Post(ev) })
	return nil
}

// curlPluginArgs are nbdkit's curl plugin options, fixed per spec.md
// §6 rather than derived from anything caller-supplied: the daemon
// pins its own TLS posture regardless of what the target negotiates.
var curlPluginArgs = []string{
	"cainfo=",
	"capath=/etc/ssl/certs/authority",
	"ssl-version=tlsv1.2",
	"followlocation=false",
	"ssl-cipher-list=ECDHE-RSA-AES256-GCM-SHA384:ECDHE-ECDSA-AES256-GCM-SHA384",
	"tls13-ciphers=TLS_AES_256_GCM_SHA384",
}

func (s *ActivatingState) activateHTTPS(m *Machine, url string) State {
	pluginArgs := append([]string{"curl", "url=" + url}, curlPluginArgs...)

	if s.credentials != nil {
		vf, err := NewVolatileFile(m.deps.TempRoot, []byte(s.credentials.Password()))
		if err != nil {
			return NewReadyState(WrapError(ErrIOError, "failed to stage credentials", err))
		}
		s.volatileFile = vf
		pluginArgs = append(pluginArgs, "user="+s.credentials.User(), "password=+"+vf.Path())
	}

	args := s.nbdkitArgs(m, pluginArgs...)
	handle, err := m.deps.Executor.StartSupervised(m.deps.NBDKitPath, args...)
	if err != nil {
		if s.volatileFile != nil {
			s.volatileFile.Close()
			s.volatileFile = nil
		}
		return NewReadyState(WrapError(ErrOperationCanceled, "failed to spawn process", err))
	}
	s.process = NewProcess(handle, func(ev SubprocessStoppedEvent) { m.Post(ev) })
	return nil
}

// nbdkitArgs assembles nbdkit's argv per spec.md §6:
// [--verbose] --unix <unixSocket> --run "<nbd-client …>" [--readonly] <plugin-args>.
func (s *ActivatingState) nbdkitArgs(m *Machine, pluginArgs ...string) []string {
	args := make([]string, 0, len(pluginArgs)+6)
	if m.cfg.VerboseNbdkit {
		args = append(args, "--verbose")
	}
	args = append(args, "--unix", m.cfg.UnixSocket, "--run",
		m.deps.NBDClientPath+" "+joinArgs(m.cfg.NBDClientArgs()))
	if !s.rw {
		args = append(args, "--readonly")
	}
	return append(args, pluginArgs...)
}

// Handle waits for the NBD device to attach or the subprocess to die
// first. Any other udev observation (removal, or an unexpected
// transient) is treated as a reason to unwind everything acquired so
// far.
func (s *ActivatingState) Handle(m *Machine, ev Event) (State, error) {
	switch e := ev.(type) {
	case UdevStateChangeEvent:
		if e.State == DeviceInserted {
			g, err := NewGadget(m.deps.Gadget, m.cfg.UDC, m.cfg.Name, m.cfg.NBDDevice, !s.rw)
			if err != nil {
				return newDeactivatingState(s.process, nil, s.mount, s.volatileFile, false, nil,
					WrapError(ErrIOError, "failed to configure gadget", err)), nil
			}
			m.updateSnapshot(func(snap *Snapshot) { snap.ImageURL = s.imageURL; snap.RW = s.rw })
			return newActiveState(s.process, g, s.mount, s.volatileFile), nil
		}
		return newDeactivatingState(s.process, nil, s.mount, s.volatileFile, false, nil, nil), nil
	case SubprocessStoppedEvent:
		code := int32(e.ExitCode)
		m.updateSnapshot(func(snap *Snapshot) { snap.ExitCode = code })
		s.releaseAll()
		return NewReadyState(NewError(ErrConnectionRefused, "Process ended prematurely")), nil
	default:
		return nil, NewError(ErrNotPermitted, "event not valid in Activating state")
	}
}

// Abort unwinds whatever this state had acquired if the daemon shuts
// down mid-activation.
func (s *ActivatingState) Abort(*Machine) {
	s.releaseAll()
}

func (s *ActivatingState) releaseAll() {
	if s.process != nil {
		s.process.Close()
		s.process = nil
	}
	if s.mount != nil {
		s.mount.Close()
		s.mount = nil
	}
	if s.volatileFile != nil {
		s.volatileFile.Close()
		s.volatileFile = nil
	}
	s.zeroCredentials()
}

func joinArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		out += a
	}
	return out
}
