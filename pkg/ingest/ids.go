// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"path/filepath"

	"github.com/google/uuid"
)

// PointID derives the deterministic vector point id mandated by the spec:
// a UUIDv5 seeded by the chunk's content hash, so re-ingesting identical
// content always resolves to the same point and overwrites in place rather
// than duplicating. Namespaced under uuid.NameSpaceOID, the same namespace
// choice Go's stdlib-adjacent tooling typically reaches for when deriving a
// UUID from an opaque identifier string rather than a URL or DNS name.
func PointID(chunkHash string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkHash))
}

// normalizePath normalizes a file path for consistent hashing and display:
// forward slashes, no leading "./", no leading "/".
func normalizePath(path string) string {
	path = filepath.ToSlash(filepath.Clean(path))
	if len(path) >= 2 && path[0:2] == "./" {
		path = path[2:]
	}
	if len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	return path
}
