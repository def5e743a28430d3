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

import "strings"

// secureZero overwrites b in place. Go gives no guarantee against the
// runtime having copied the backing array during a prior append or
// string conversion, so this is best-effort the same way the original
// explicit_bzero call was best-effort against swap and core dumps: it
// closes the window on the one buffer we still hold a reference to.
func secureZero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Credentials holds a username/password pair for a legacy-mode SMB
// mount. Zero wipes both buffers; EscapeCommas wipes the unescaped
// password buffer it replaces.
type Credentials struct {
	user          []byte
	password      []byte
	commasEscaped bool
}

// NewCredentials copies user and password into owned buffers. Callers
// should not retain the input strings if they care about the copies
// being the only surviving instance of the secret.
func NewCredentials(user, password string) *Credentials {
	return &Credentials{
		user:     []byte(user),
		password: []byte(password),
	}
}

// User returns the username.
func (c *Credentials) User() string { return string(c.user) }

// Password returns the password in its current form (escaped or not).
func (c *Credentials) Password() string { return string(c.password) }

// EscapeCommas doubles every comma in the password so it survives being
// embedded in a comma-separated CIFS mount option string. Idempotent:
// calling it twice does not re-escape an already-escaped password.
func (c *Credentials) EscapeCommas() {
	if c.commasEscaped {
		return
	}
	escaped := []byte(strings.ReplaceAll(string(c.password), ",", ",,"))
	secureZero(c.password)
	c.password = escaped
	c.commasEscaped = true
}

// Zero destroys the buffers. Safe to call more than once.
func (c *Credentials) Zero() {
	secureZero(c.user)
	secureZero(c.password)
	c.user = nil
	c.password = nil
}

// ValidateUsername rejects usernames that cannot appear in a CIFS mount
// option string at all: unlike the password, the username is never
// escaped, so a literal comma would be misparsed as an option separator.
func ValidateUsername(user string) error {
	if strings.Contains(user, ",") {
		return NewError(ErrInvalidArgument, "username must not contain a comma")
	}
	return nil
}
