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
	"github.com/stretchr/testify/require"
)

const rustFixture = `use std::collections::HashMap;

pub fn add(a: i32, b: i32) -> i32 {
    a + b
}

struct Point {
    x: i32,
    y: i32,
}

#[test]
fn test_add() {
    assert_eq!(add(1, 2), 3);
}
`

func TestRustParserSingleFunctionRoundTrip(t *testing.T) {
	p := NewRustParser()
	result := p.Parse("/repo/src/lib.rs", "src/lib.rs", []byte(rustFixture), "repo1")

	require.True(t, result.Success)
	require.NotEmpty(t, result.Chunks)

	var fn *Chunk
	for i := range result.Chunks {
		if result.Chunks[i].ItemName == "add" {
			fn = &result.Chunks[i]
		}
	}
	require.NotNil(t, fn, "expected a chunk for function 'add'")

	assert.Equal(t, "function", fn.ItemType)
	assert.Equal(t, "rust", fn.Language)
	assert.Equal(t, "src/lib.rs", fn.FilePath)
	assert.Equal(t, "repo1", fn.RepoID)
	assert.Contains(t, fn.Content, "a + b")
	assert.Equal(t, "public", fn.Metadata["visibility"])
	assert.NotEmpty(t, fn.ChunkHash)

	// Re-parsing identical content yields an identical hash (idempotency, S5).
	again := p.Parse("/repo/src/lib.rs", "src/lib.rs", []byte(rustFixture), "repo1")
	require.NotEmpty(t, again.Chunks)
	assert.Equal(t, fn.ChunkHash, findChunk(again.Chunks, "add").ChunkHash)
}

func TestRustParserDetectsTestFunctions(t *testing.T) {
	p := NewRustParser()
	result := p.Parse("/repo/src/lib.rs", "src/lib.rs", []byte(rustFixture), "repo1")
	require.True(t, result.Success)

	testFn := findChunk(result.Chunks, "test_add")
	require.NotNil(t, testFn)
	assert.Equal(t, true, testFn.Metadata["is_test"])
}

func TestRustParserCapturesStructChunk(t *testing.T) {
	p := NewRustParser()
	result := p.Parse("/repo/src/lib.rs", "src/lib.rs", []byte(rustFixture), "repo1")
	require.True(t, result.Success)

	st := findChunk(result.Chunks, "Point")
	require.NotNil(t, st)
	assert.Equal(t, "struct", st.ItemType)
	assert.Contains(t, st.Content, "x: i32")
}

func TestRustParserEmptyFileProducesNoChunks(t *testing.T) {
	p := NewRustParser()
	result := p.Parse("/repo/src/empty.rs", "src/empty.rs", []byte("   \n\n"), "repo1")
	assert.True(t, result.Success)
	assert.Empty(t, result.Chunks)
}

func findChunk(chunks []Chunk, name string) *Chunk {
	for i := range chunks {
		if chunks[i].ItemName == name {
			return &chunks[i]
		}
	}
	return nil
}
