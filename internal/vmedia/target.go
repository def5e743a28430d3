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
	"net/url"
	"strings"

	"github.com/openbmc-project/virtual-media/internal/cifsmount"
)

// Scheme identifies how a legacy-mode image URL is fetched.
type Scheme int

const (
	SchemeSMB Scheme = iota
	SchemeHTTPS
)

// ImageSource is a parsed, validated legacy-mode target: what to fetch
// and, for SMB, where from.
type ImageSource struct {
	Scheme Scheme
	Remote cifsmount.Remote // populated for SchemeSMB
	URL    string           // full URL, used as-is for SchemeHTTPS
}

// parseImageURL validates and splits imageURL, the same job the
// original getImagePath did for smb:// targets before handing off to
// mountSmbShare or mountHttpsShare.
//
// Unlike the original, an unrecognized or malformed scheme is rejected
// here immediately rather than silently falling through with an empty
// path: activateLegacy never gets a chance to spawn nbdkit against
// nothing.
func parseImageURL(imageURL string) (ImageSource, error) {
	u, err := url.Parse(imageURL)
	if err != nil {
		return ImageSource{}, WrapError(ErrInvalidArgument, "malformed image url", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "smb":
		return parseSMBURL(u)
	case "https":
		return ImageSource{Scheme: SchemeHTTPS, URL: imageURL}, nil
	default:
		return ImageSource{}, NewError(ErrInvalidArgument,
			fmt.Sprintf("unsupported image url scheme %q", u.Scheme))
	}
}

// parseSMBURL splits smb://host/share/path/to/image.iso into the host,
// share, and in-share path mount(2)'s source string and nbdkit's file
// plugin both need.
func parseSMBURL(u *url.URL) (ImageSource, error) {
	if u.Host == "" {
		return ImageSource{}, NewError(ErrInvalidArgument, "smb url missing host")
	}
	parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)
	if len(parts) == 0 || parts[0] == "" {
		return ImageSource{}, NewError(ErrInvalidArgument, "smb url missing share name")
	}

	remote := cifsmount.Remote{Host: u.Host, Share: parts[0]}
	if len(parts) == 2 {
		remote.Path = parts[1]
	}
	return ImageSource{Scheme: SchemeSMB, Remote: remote}, nil
}
