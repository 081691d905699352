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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPointIDIsDeterministic(t *testing.T) {
	hash := ChunkHash("go", "a.go", "function", "Foo", "func Foo() {}")
	id1 := PointID(hash)
	id2 := PointID(hash)
	assert.Equal(t, id1, id2)
}

func TestPointIDDiffersForDifferentContent(t *testing.T) {
	id1 := PointID(ChunkHash("go", "a.go", "function", "Foo", "body one"))
	id2 := PointID(ChunkHash("go", "a.go", "function", "Foo", "body two"))
	assert.NotEqual(t, id1, id2)
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"./src/main.go": "src/main.go",
		"/src/main.go":  "src/main.go",
		"src/./main.go": "src/main.go",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizePath(in), "input %q", in)
	}
}
