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

// Package procsup supervises the long-lived nbd-client/nbdkit
// subprocesses a mount point owns while active. It generalizes the
// teacher's pkg/helpers/command.Executor abstraction with an
// asynchronous completion handle, since the resource layer needs to
// learn about process exit without blocking the state machine goroutine.
package procsup

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
)

// Handle represents a supervised, already-started subprocess.
type Handle interface {
	// Wait blocks until the process exits and returns its exit code.
	// Safe to call from exactly one goroutine; repeated calls return the
	// cached result.
	Wait() (exitCode int, err error)
	// Stop asks the process to terminate. It does not block for exit;
	// the goroutine that called Wait observes the resulting exit.
	Stop()
	// Pid returns the process id.
	Pid() int
}

// Executor starts subprocesses for testability, mirroring the teacher's
// command.Executor interface.
type Executor interface {
	// Output runs a short-lived command and returns its standard output.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
	// StartSupervised starts a long-lived subprocess without waiting for
	// it to complete, returning a Handle to observe and stop it.
	StartSupervised(name string, args ...string) (Handle, error)
}

// RealExecutor uses os/exec to run system commands.
type RealExecutor struct{}

// Output runs a command and returns its standard output.
//
//nolint:wrapcheck // wrapping exec errors loses important context
func (*RealExecutor) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// StartSupervised starts a subprocess and returns a handle to it.
func (*RealExecutor) StartSupervised(name string, args ...string) (Handle, error) {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}
	return &realHandle{cmd: cmd, done: make(chan struct{})}, nil
}

type realHandle struct {
	cmd      *exec.Cmd
	done     chan struct{}
	waitOnce sync.Once
	exitCode int
	waitErr  error
}

func (h *realHandle) Wait() (int, error) {
	h.waitOnce.Do(func() {
		err := h.cmd.Wait()
		h.exitCode = exitCodeFromError(h.cmd, err)
		h.waitErr = err
		close(h.done)
	})
	<-h.done
	return h.exitCode, h.waitErr
}

func (h *realHandle) Pid() int {
	if h.cmd.Process == nil {
		return -1
	}
	return h.cmd.Process.Pid
}

func exitCodeFromError(cmd *exec.Cmd, err error) int {
	if err == nil {
		if cmd.ProcessState != nil {
			return cmd.ProcessState.ExitCode()
		}
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
