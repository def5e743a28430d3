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

package procsup_test

import (
	"testing"
	"time"

	"github.com/openbmc-project/virtual-media/internal/procsup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeExecutorRecordsCall(t *testing.T) {
	t.Parallel()

	exec := &procsup.FakeExecutor{}
	h, err := exec.StartSupervised("/usr/sbin/nbd-client", "-N", "share", "/dev/nbd0")
	require.NoError(t, err)
	require.NotNil(t, h)

	require.Len(t, exec.Started, 1)
	assert.Equal(t, "/usr/sbin/nbd-client", exec.Started[0].Name)
	assert.Equal(t, []string{"-N", "share", "/dev/nbd0"}, exec.Started[0].Args)
}

func TestFakeHandleWaitBlocksUntilExit(t *testing.T) {
	t.Parallel()

	h := procsup.NewFakeHandle()
	result := make(chan int, 1)
	go func() {
		code, _ := h.Wait()
		result <- code
	}()

	select {
	case <-result:
		t.Fatal("Wait returned before Exit was called")
	case <-time.After(20 * time.Millisecond):
	}

	h.Exit(7)
	assert.Equal(t, 7, <-result)
}

func TestFakeHandleStopIsRecorded(t *testing.T) {
	t.Parallel()

	h := procsup.NewFakeHandle()
	assert.False(t, h.Stopped())
	h.Stop()
	assert.True(t, h.Stopped())
}
