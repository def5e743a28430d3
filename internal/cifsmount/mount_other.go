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

//go:build !linux

package cifsmount

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/cloudsoda/go-smb2"
)

// SMB2Mounter is a non-Linux development stand-in for KernelMounter.
// The production daemon only ever runs on Linux with cifs.ko available;
// this exists so the rest of the tree builds and can be exercised on a
// developer's workstation. Rather than a true mount it copies the
// remote image into localDir once, and re-uploads on Unmount if the
// share was mounted read-write, the same shape as the teacher's
// installer/smb.go client-side copy.
type SMB2Mounter struct {
	mu       sync.Mutex
	sessions map[string]*mountedShare
}

type mountedShare struct {
	conn   net.Conn
	sess   *smb2.Session
	share  *smb2.Share
	remote Remote
	local  string
	rw     bool
}

var _ Mounter = (*SMB2Mounter)(nil)

// NewSMB2Mounter returns a ready-to-use SMB2Mounter.
func NewSMB2Mounter() *SMB2Mounter {
	return &SMB2Mounter{sessions: make(map[string]*mountedShare)}
}

// NewDefault returns the development-platform Mounter.
func NewDefault() Mounter { return NewSMB2Mounter() }

// Mount dials remote.Host over SMB2, opens remote.Share, and copies the
// file at remote.Path down to localDir/image.
func (m *SMB2Mounter) Mount(localDir string, remote Remote, rw bool, user, password string) error {
	conn, err := net.Dial("tcp", remote.Host+":445")
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", remote.Host, err)
	}

	initiator := &smb2.NTLMInitiator{User: user, Password: password}
	if user == "" {
		initiator.User = "OpenBmc"
	}
	d := &smb2.Dialer{Initiator: initiator}
	sess, err := d.DialContext(context.Background(), conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to negotiate smb2 session with %s: %w", remote.Host, err)
	}

	share, err := sess.Mount(remote.Share)
	if err != nil {
		sess.Logoff()
		conn.Close()
		return fmt.Errorf("failed to mount share %s: %w", remote.Share, err)
	}

	if err := copyFromShare(share, remote.Path, localDir); err != nil {
		share.Umount()
		sess.Logoff()
		conn.Close()
		return err
	}

	m.mu.Lock()
	m.sessions[localDir] = &mountedShare{conn: conn, sess: sess, share: share, remote: remote, local: localDir, rw: rw}
	m.mu.Unlock()
	return nil
}

func copyFromShare(share *smb2.Share, remotePath, localDir string) error {
	rf, err := share.Open(remotePath)
	if err != nil {
		return fmt.Errorf("failed to open %s on share: %w", remotePath, err)
	}
	defer rf.Close()

	lf, err := os.Create(filepath.Join(localDir, "image"))
	if err != nil {
		return fmt.Errorf("failed to create local copy: %w", err)
	}
	defer lf.Close()

	if _, err := io.Copy(lf, rf); err != nil {
		return fmt.Errorf("failed to copy image from share: %w", err)
	}
	return nil
}

// Unmount uploads the local copy back to the share if it was mounted
// read-write, then closes the session.
func (m *SMB2Mounter) Unmount(localDir string) error {
	m.mu.Lock()
	ms, ok := m.sessions[localDir]
	delete(m.sessions, localDir)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("nothing mounted at %s", localDir)
	}
	defer ms.conn.Close()
	defer ms.sess.Logoff()
	defer ms.share.Umount()

	if ms.rw {
		if err := copyToShare(ms.share, filepath.Join(localDir, "image"), ms.remote.Path); err != nil {
			return err
		}
	}
	return nil
}

func copyToShare(share *smb2.Share, localPath, remotePath string) error {
	lf, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local copy: %w", err)
	}
	defer lf.Close()

	rf, err := share.Create(remotePath)
	if err != nil {
		return fmt.Errorf("failed to create %s on share: %w", remotePath, err)
	}
	defer rf.Close()

	if _, err := io.Copy(rf, lf); err != nil {
		return fmt.Errorf("failed to write back image to share: %w", err)
	}
	return nil
}
