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
	"context"
	"os"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/openbmc-project/virtual-media/internal/cifsmount"
	"github.com/openbmc-project/virtual-media/internal/gadget"
	"github.com/openbmc-project/virtual-media/internal/procsup"
	"github.com/openbmc-project/virtual-media/internal/vmedia"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMachine(t *testing.T, mode vmedia.Mode) (*vmedia.Machine, *procsup.FakeExecutor, *gadget.FakeController, *cifsmount.FakeMounter, *clockwork.FakeClock) {
	t.Helper()
	exec := &procsup.FakeExecutor{}
	gc := gadget.NewFakeController()
	cifs := cifsmount.NewFakeMounter()
	clock := clockwork.NewFakeClock()

	cfg := vmedia.Config{
		Name:       "vm0",
		Mode:       mode,
		NBDDevice:  "/dev/nbd0",
		EndpointID: "vm0",
		UnixSocket: t.TempDir() + "/vm0.sock",
		UDC:        "musb-hdrc",
		Timeout:    5 * time.Second,
	}
	deps := vmedia.Dependencies{
		Executor:      exec,
		Gadget:        gc,
		CIFS:          cifs,
		Clock:         clock,
		TempRoot:      t.TempDir(),
		NBDClientPath: "/usr/sbin/nbd-client",
		NBDKitPath:    "/usr/sbin/nbdkit",
	}
	m := vmedia.NewMachine(cfg, deps)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go m.Run(ctx)

	require.NoError(t, m.Emit(context.Background(), vmedia.RegisterDbusEvent{}))
	require.Equal(t, "Ready", m.Snapshot().State)

	return m, exec, gc, cifs, clock
}

func TestProxyHappyPath(t *testing.T) {
	t.Parallel()
	m, exec, gc, _, _ := newTestMachine(t, vmedia.ModeProxy)

	handle := procsup.NewFakeHandle()
	exec.NextFn = func(string, ...string) (*procsup.FakeHandle, error) { return handle, nil }

	require.NoError(t, m.Emit(context.Background(), vmedia.MountEvent{}))
	require.Equal(t, "Activating", m.Snapshot().State)

	require.NoError(t, m.Emit(context.Background(), vmedia.UdevStateChangeEvent{State: vmedia.DeviceInserted}))
	snap := m.Snapshot()
	require.Equal(t, "Active", snap.State)
	assert.True(t, gc.IsConfigured("vm0"))

	require.NoError(t, m.Emit(context.Background(), vmedia.UnmountEvent{}))
	snap = m.Snapshot()
	assert.Equal(t, "Ready", snap.State)
	assert.Nil(t, snap.LastError)
	assert.False(t, gc.IsConfigured("vm0"))
	assert.True(t, handle.Stopped())
}

func TestLegacySMBHappyPathEscapesCommaInPassword(t *testing.T) {
	t.Parallel()
	m, exec, _, cifs, _ := newTestMachine(t, vmedia.ModeLegacy)

	handle := procsup.NewFakeHandle()
	exec.NextFn = func(string, ...string) (*procsup.FakeHandle, error) { return handle, nil }

	creds := vmedia.NewCredentials("alice", "pa,ss")
	require.NoError(t, m.Emit(context.Background(), vmedia.MountEvent{
		ImageURL: "smb://host/share/image.iso", RW: true, Credentials: creds,
	}))
	require.Equal(t, "Activating", m.Snapshot().State)

	require.NoError(t, m.Emit(context.Background(), vmedia.UdevStateChangeEvent{State: vmedia.DeviceInserted}))
	require.Equal(t, "Active", m.Snapshot().State)

	require.Len(t, exec.Started, 1)
	args := exec.Started[0].Args
	assert.Contains(t, args, "--unix")
	assert.NotContains(t, args, "--readonly", "rw=true mount must not be spawned read-only")
	found := false
	for _, a := range args {
		if a == "file=" || (len(a) > len("file=") && a[:len("file=")] == "file=") {
			found = true
		}
	}
	assert.True(t, found, "expected a file=<path> plugin arg, got %v", args)

	var mountedTo string
	for dir := range cifs.Mounted {
		mountedTo = dir
	}
	assert.NotEmpty(t, mountedTo)
	assert.Equal(t, "pa,,ss", cifs.Passwords[mountedTo], "cifs mount must see the comma-escaped password")

	assert.Empty(t, creds.Password(), "credentials must be zeroed once activation has consumed them")
	assert.Empty(t, creds.User(), "credentials must be zeroed once activation has consumed them")
}

func TestLegacyHTTPSWithCredentialsWritesVolatileFile(t *testing.T) {
	t.Parallel()
	m, exec, _, _, _ := newTestMachine(t, vmedia.ModeLegacy)

	handle := procsup.NewFakeHandle()
	exec.NextFn = func(string, ...string) (*procsup.FakeHandle, error) { return handle, nil }

	creds := vmedia.NewCredentials("u", "p")
	require.NoError(t, m.Emit(context.Background(), vmedia.MountEvent{
		ImageURL: "https://host/img", RW: false, Credentials: creds,
	}))
	require.Equal(t, "Activating", m.Snapshot().State)

	require.Len(t, exec.Started, 1)
	args := exec.Started[0].Args
	assert.Contains(t, args, "--unix")
	assert.Contains(t, args, "--readonly", "rw=false mount must be spawned read-only")
	assert.Contains(t, args, "curl")
	assert.Contains(t, args, "url=https://host/img")
	assert.Contains(t, args, "cainfo=")
	assert.Contains(t, args, "capath=/etc/ssl/certs/authority")
	assert.Contains(t, args, "ssl-version=tlsv1.2")
	assert.Contains(t, args, "followlocation=false")
	assert.Contains(t, args, "ssl-cipher-list=ECDHE-RSA-AES256-GCM-SHA384:ECDHE-ECDSA-AES256-GCM-SHA384")
	assert.Contains(t, args, "tls13-ciphers=TLS_AES_256_GCM_SHA384")
	assert.Contains(t, args, "user=u")
	var secretPath string
	for _, a := range args {
		if len(a) > len("password=+") && a[:len("password=+")] == "password=+" {
			secretPath = a[len("password=+"):]
		}
	}
	require.NotEmpty(t, secretPath, "expected a password=+<path> arg, got %v", args)
	assert.FileExists(t, secretPath, "volatile file must exist while the mount is active")

	assert.Empty(t, creds.Password(), "credentials must be zeroed once activation has consumed them")

	require.NoError(t, m.Emit(context.Background(), vmedia.UdevStateChangeEvent{State: vmedia.DeviceInserted}))
	require.Equal(t, "Active", m.Snapshot().State)
	assert.FileExists(t, secretPath, "volatile file must survive the transition into Active")

	require.NoError(t, m.Emit(context.Background(), vmedia.UnmountEvent{}))
	require.Equal(t, "Ready", m.Snapshot().State)
	_, err := os.Stat(secretPath)
	assert.True(t, os.IsNotExist(err), "volatile file must be wiped and unlinked once the mount point is torn down")
}

func TestVerboseNbdkitFlagGatedByConfig(t *testing.T) {
	t.Parallel()
	m, exec, _, _, _ := newTestMachine(t, vmedia.ModeLegacy)

	handle := procsup.NewFakeHandle()
	exec.NextFn = func(string, ...string) (*procsup.FakeHandle, error) { return handle, nil }

	require.NoError(t, m.Emit(context.Background(), vmedia.MountEvent{ImageURL: "https://host/img"}))
	require.Len(t, exec.Started, 1)
	assert.NotContains(t, exec.Started[0].Args, "--verbose")
}

func TestVerboseNbdkitFlagSetWhenConfigured(t *testing.T) {
	t.Parallel()
	exec := &procsup.FakeExecutor{}
	cfg := vmedia.Config{
		Name: "vm0", Mode: vmedia.ModeLegacy, NBDDevice: "/dev/nbd0",
		EndpointID: "vm0", UnixSocket: t.TempDir() + "/vm0.sock", UDC: "musb-hdrc",
		Timeout: 5 * time.Second, VerboseNbdkit: true,
	}
	deps := vmedia.Dependencies{
		Executor: exec, Gadget: gadget.NewFakeController(), CIFS: cifsmount.NewFakeMounter(),
		Clock: clockwork.NewFakeClock(), TempRoot: t.TempDir(),
		NBDClientPath: "/usr/sbin/nbd-client", NBDKitPath: "/usr/sbin/nbdkit",
	}
	m := vmedia.NewMachine(cfg, deps)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go m.Run(ctx)
	require.NoError(t, m.Emit(context.Background(), vmedia.RegisterDbusEvent{}))

	handle := procsup.NewFakeHandle()
	exec.NextFn = func(string, ...string) (*procsup.FakeHandle, error) { return handle, nil }

	require.NoError(t, m.Emit(context.Background(), vmedia.MountEvent{ImageURL: "https://host/img"}))
	require.Len(t, exec.Started, 1)
	assert.Contains(t, exec.Started[0].Args, "--verbose")
}

func TestActiveSnapshotReportsWriteProtection(t *testing.T) {
	t.Parallel()
	m, exec, _, _, _ := newTestMachine(t, vmedia.ModeProxy)

	handle := procsup.NewFakeHandle()
	exec.NextFn = func(string, ...string) (*procsup.FakeHandle, error) { return handle, nil }

	require.NoError(t, m.Emit(context.Background(), vmedia.MountEvent{RW: true}))
	require.NoError(t, m.Emit(context.Background(), vmedia.UdevStateChangeEvent{State: vmedia.DeviceInserted}))
	assert.True(t, m.Snapshot().RW)

	require.NoError(t, m.Emit(context.Background(), vmedia.UnmountEvent{}))
	assert.False(t, m.Snapshot().RW, "write-protection resets once the mount point goes idle")
}

func TestBadURLRejectedImmediately(t *testing.T) {
	t.Parallel()
	m, _, _, _, _ := newTestMachine(t, vmedia.ModeLegacy)

	require.NoError(t, m.Emit(context.Background(), vmedia.MountEvent{ImageURL: "ftp://host/img"}))
	snap := m.Snapshot()
	require.Equal(t, "Ready", snap.State)
	require.NotNil(t, snap.LastError)
	assert.Equal(t, vmedia.ErrInvalidArgument, snap.LastError.Kind)
}

func TestSubprocessDiesDuringActivating(t *testing.T) {
	t.Parallel()
	m, exec, _, _, _ := newTestMachine(t, vmedia.ModeProxy)

	handle := procsup.NewFakeHandle()
	exec.NextFn = func(string, ...string) (*procsup.FakeHandle, error) { return handle, nil }

	require.NoError(t, m.Emit(context.Background(), vmedia.MountEvent{}))
	require.Equal(t, "Activating", m.Snapshot().State)

	handle.Exit(1)

	require.Eventually(t, func() bool {
		return m.Snapshot().State == "Ready"
	}, time.Second, time.Millisecond)

	snap := m.Snapshot()
	require.NotNil(t, snap.LastError)
	assert.Equal(t, vmedia.ErrConnectionRefused, snap.LastError.Kind)
	assert.Equal(t, int32(1), snap.ExitCode)
}

func TestActiveSubprocessExitPublishesExitCode(t *testing.T) {
	t.Parallel()
	m, exec, _, _, _ := newTestMachine(t, vmedia.ModeProxy)
	assert.Equal(t, int32(-1), m.Snapshot().ExitCode, "no subprocess has exited yet")

	handle := procsup.NewFakeHandle()
	exec.NextFn = func(string, ...string) (*procsup.FakeHandle, error) { return handle, nil }

	require.NoError(t, m.Emit(context.Background(), vmedia.MountEvent{}))
	require.NoError(t, m.Emit(context.Background(), vmedia.UdevStateChangeEvent{State: vmedia.DeviceInserted}))
	require.Equal(t, "Active", m.Snapshot().State)

	handle.Exit(7)

	require.Eventually(t, func() bool {
		return m.Snapshot().State == "Ready"
	}, time.Second, time.Millisecond)

	assert.Equal(t, int32(7), m.Snapshot().ExitCode, "last subprocess exit code must survive into Ready")
}

func TestIdleTimeoutUnmountsAutomatically(t *testing.T) {
	t.Parallel()
	m, exec, gc, _, clock := newTestMachine(t, vmedia.ModeProxy)

	handle := procsup.NewFakeHandle()
	exec.NextFn = func(string, ...string) (*procsup.FakeHandle, error) { return handle, nil }
	gc.StatsFn = func(string) (gadget.Stats, error) { return gadget.Stats{}, nil }

	require.NoError(t, m.Emit(context.Background(), vmedia.MountEvent{}))
	require.NoError(t, m.Emit(context.Background(), vmedia.UdevStateChangeEvent{State: vmedia.DeviceInserted}))
	require.Equal(t, "Active", m.Snapshot().State)

	for i := 0; i < 31; i++ {
		clock.BlockUntil(1)
		clock.Advance(time.Minute)
	}

	require.Eventually(t, func() bool {
		return m.Snapshot().State == "Ready"
	}, time.Second, time.Millisecond)
}

func TestIllegalEventsRejected(t *testing.T) {
	t.Parallel()
	m, exec, _, _, _ := newTestMachine(t, vmedia.ModeProxy)

	err := m.Emit(context.Background(), vmedia.UnmountEvent{})
	require.Error(t, err)
	verr, ok := asVMediaError(err)
	require.True(t, ok)
	assert.Equal(t, vmedia.ErrNotPermitted, verr.Kind)

	handle := procsup.NewFakeHandle()
	exec.NextFn = func(string, ...string) (*procsup.FakeHandle, error) { return handle, nil }
	require.NoError(t, m.Emit(context.Background(), vmedia.MountEvent{}))
	require.NoError(t, m.Emit(context.Background(), vmedia.UdevStateChangeEvent{State: vmedia.DeviceInserted}))
	require.Equal(t, "Active", m.Snapshot().State)

	err = m.Emit(context.Background(), vmedia.MountEvent{})
	require.Error(t, err)
	verr, ok = asVMediaError(err)
	require.True(t, ok)
	assert.Equal(t, vmedia.ErrNotPermitted, verr.Kind)
}

func asVMediaError(err error) (*vmedia.Error, bool) {
	verr, ok := err.(*vmedia.Error) //nolint:errorlint // test-only exact-type check
	return verr, ok
}
