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

package procsup

import (
	"context"
	"sync"
)

// FakeExecutor is a hand-written test double for Executor. Callers
// arrange handles up front and drive them directly instead of spawning
// real processes.
type FakeExecutor struct {
	mu       sync.Mutex
	Started  []FakeCall
	OutputFn func(ctx context.Context, name string, args ...string) ([]byte, error)
	NextFn   func(name string, args ...string) (*FakeHandle, error)
}

// FakeCall records a StartSupervised invocation.
type FakeCall struct {
	Name string
	Args []string
}

// Output delegates to OutputFn, or returns nil, nil if unset.
func (f *FakeExecutor) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	if f.OutputFn != nil {
		return f.OutputFn(ctx, name, args...)
	}
	return nil, nil
}

// StartSupervised delegates to NextFn to obtain the handle to return,
// recording the call for later assertions.
func (f *FakeExecutor) StartSupervised(name string, args ...string) (Handle, error) {
	f.mu.Lock()
	f.Started = append(f.Started, FakeCall{Name: name, Args: args})
	f.mu.Unlock()
	if f.NextFn == nil {
		return NewFakeHandle(), nil
	}
	return f.NextFn(name, args...)
}

// FakeHandle is a controllable Handle for tests: the test decides when
// the "process" exits by calling Exit.
type FakeHandle struct {
	pid      int
	done     chan struct{}
	once     sync.Once
	exitCode int
	exitErr  error
	stopped  bool
	mu       sync.Mutex
}

// NewFakeHandle returns a FakeHandle that blocks in Wait until Exit is called.
func NewFakeHandle() *FakeHandle {
	return &FakeHandle{done: make(chan struct{})}
}

// Exit unblocks Wait with the given exit code.
func (h *FakeHandle) Exit(code int) {
	h.once.Do(func() {
		h.exitCode = code
		close(h.done)
	})
}

// Wait blocks until Exit is called.
func (h *FakeHandle) Wait() (int, error) {
	<-h.done
	return h.exitCode, h.exitErr
}

// Stop records that a stop was requested; it does not itself unblock Wait,
// so tests can assert on ordering before calling Exit.
func (h *FakeHandle) Stop() {
	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()
}

// Stopped reports whether Stop has been called.
func (h *FakeHandle) Stopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped
}

// Pid returns a fixed placeholder pid.
func (h *FakeHandle) Pid() int { return h.pid }
