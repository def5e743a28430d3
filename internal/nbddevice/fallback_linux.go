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
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/openbmc-project/virtual-media/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

// sysClassBlock is where the kernel exposes one directory per block
// device; a Watcher on it sees Create/Remove events as NBD devices
// attach and detach, standing in for uevent netlink access the daemon
// might not have (a restrictive container, a namespace without
// CAP_NET_ADMIN).
const sysClassBlock = "/sys/class/block"

// FallbackMonitor watches sysClassBlock with fsnotify instead of a
// netlink uevent socket, the same relationship the teacher's
// linuxMountDetectorFallback has to its D-Bus-based primary: a
// filesystem-event-driven watch that degrades gracefully to polling
// semantics the kernel already exposes for free via inotify.
type FallbackMonitor struct {
	watcher  *fsnotify.Watcher
	changes  chan Change
	stopOnce sync.Once
	stopped  chan struct{}

	mu    syncutil.Mutex
	known map[string]bool
}

var _ Monitor = (*FallbackMonitor)(nil)

// NewFallbackMonitor returns an unstarted FallbackMonitor.
func NewFallbackMonitor() *FallbackMonitor {
	return &FallbackMonitor{
		changes: make(chan Change, 16),
		stopped: make(chan struct{}),
		known:   make(map[string]bool),
	}
}

// Changes implements Monitor.
func (m *FallbackMonitor) Changes() <-chan Change { return m.changes }

// Start scans sysClassBlock for devices already present, then begins
// watching it for further additions and removals.
func (m *FallbackMonitor) Start(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := w.Add(sysClassBlock); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch %s: %w", sysClassBlock, err)
	}
	m.watcher = w

	m.scanExisting()
	go m.watchLoop(ctx)
	go func() {
		<-ctx.Done()
		m.Stop()
	}()
	return nil
}

func (m *FallbackMonitor) scanExisting() {
	entries, err := os.ReadDir(sysClassBlock)
	if err != nil {
		log.Warn().Err(err).Str("path", sysClassBlock).Msg("failed to list existing block devices")
		return
	}
	for _, e := range entries {
		if isNBDWholeDevice(e.Name()) {
			m.emit(e.Name(), true)
		}
	}
}

func (m *FallbackMonitor) watchLoop(ctx context.Context) {
	for {
		select {
		case ev, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			m.handleEvent(ev)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("fsnotify error watching block devices")
		case <-ctx.Done():
			return
		case <-m.stopped:
			return
		}
	}
}

func (m *FallbackMonitor) handleEvent(ev fsnotify.Event) {
	name := ev.Name[strings.LastIndexByte(ev.Name, '/')+1:]
	if !isNBDWholeDevice(name) {
		return
	}
	switch {
	case ev.Op&fsnotify.Create != 0:
		m.emit(name, true)
	case ev.Op&fsnotify.Remove != 0:
		m.emit(name, false)
	}
}

func isNBDWholeDevice(name string) bool {
	if !strings.HasPrefix(name, "nbd") {
		return false
	}
	return !strings.ContainsAny(name[len("nbd"):], "p")
}

func (m *FallbackMonitor) emit(device string, inserted bool) {
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

// Stop closes the underlying fsnotify watcher.
func (m *FallbackMonitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopped)
		if m.watcher != nil {
			m.watcher.Close()
		}
	})
}
