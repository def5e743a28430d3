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

package nbddevice

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/openbmc-project/virtual-media/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// NetlinkMonitor listens on the kernel's uevent netlink multicast group
// for block device add/remove events and filters them down to NBD
// devices, mirroring how the teacher's linuxMountDetector listens on
// UDisks2's D-Bus signals for the equivalent block-device lifecycle.
type NetlinkMonitor struct {
	fd       int
	changes  chan Change
	stopOnce sync.Once
	stopped  chan struct{}

	mu    syncutil.Mutex
	known map[string]bool
}

var _ Monitor = (*NetlinkMonitor)(nil)

// NewNetlinkMonitor returns an unstarted NetlinkMonitor.
func NewNetlinkMonitor() *NetlinkMonitor {
	return &NetlinkMonitor{
		changes: make(chan Change, 16),
		stopped: make(chan struct{}),
		known:   make(map[string]bool),
	}
}

// Changes implements Monitor.
func (m *NetlinkMonitor) Changes() <-chan Change { return m.changes }

// Start opens a NETLINK_KOBJECT_UEVENT socket bound to the kernel
// multicast group and begins reading uevent packets in a background
// goroutine.
func (m *NetlinkMonitor) Start(ctx context.Context) error {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW, unix.NETLINK_KOBJECT_UEVENT)
	if err != nil {
		return fmt.Errorf("failed to open uevent netlink socket: %w", err)
	}
	addr := &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: 1}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return fmt.Errorf("failed to bind uevent netlink socket: %w", err)
	}
	m.fd = fd

	go m.readLoop(ctx)
	go func() {
		<-ctx.Done()
		m.Stop()
	}()
	return nil
}

func (m *NetlinkMonitor) readLoop(ctx context.Context) {
	buf := make([]byte, 8192)
	for {
		n, _, err := unix.Recvfrom(m.fd, buf, 0)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			case <-m.stopped:
				return
			default:
				log.Warn().Err(err).Msg("uevent netlink read failed")
				return
			}
		}
		m.handlePacket(buf[:n])
	}
}

// handlePacket parses a raw uevent packet ("ACTION@DEVPATH\0KEY=VAL\0...")
// and, for NBD block devices, translates ADD/REMOVE into a Change.
func (m *NetlinkMonitor) handlePacket(data []byte) {
	fields := bytes.Split(data, []byte{0})
	if len(fields) == 0 {
		return
	}
	header := string(fields[0])
	at := strings.IndexByte(header, '@')
	if at < 0 {
		return
	}
	action, devpath := header[:at], header[at+1:]

	if !strings.Contains(devpath, "/block/nbd") {
		return
	}
	device := devpath[strings.LastIndexByte(devpath, '/')+1:]
	// Only whole-device nodes (nbd0), not partitions (nbd0p1), have
	// gadget functions attached to them.
	if strings.ContainsAny(device[len("nbd"):], "p") {
		return
	}

	switch action {
	case "add":
		m.emit(device, true)
	case "remove":
		m.emit(device, false)
	}
}

func (m *NetlinkMonitor) emit(device string, inserted bool) {
	m.mu.Lock()
	if m.known[device] == inserted {
		m.mu.Unlock()
		return
	}
	m.known[device] = inserted
	m.mu.Unlock()

	select {
	case m.changes <- Change{Device: device, Inserted: inserted}:
	case <-m.stopped:
	}
}

// Stop closes the netlink socket, ending the read loop.
func (m *NetlinkMonitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopped)
		if m.fd != 0 {
			unix.Close(m.fd)
		}
	})
}
