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

package nbddevice_test

import (
	"context"
	"testing"

	"github.com/openbmc-project/virtual-media/internal/nbddevice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeMonitorDeliversPushedChanges(t *testing.T) {
	t.Parallel()
	m := nbddevice.NewFakeMonitor()
	require.NoError(t, m.Start(context.Background()))

	m.Push(nbddevice.Change{Device: "nbd0", Inserted: true})

	select {
	case c := <-m.Changes():
		assert.Equal(t, "nbd0", c.Device)
		assert.True(t, c.Inserted)
	default:
		t.Fatal("expected a change to be available")
	}
}
