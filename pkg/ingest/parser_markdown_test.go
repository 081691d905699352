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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// markdownFixture is S2's literal fixture (spec.md "docs chunking" scenario).
const markdownFixture = `# Title
## Auth
text A
## Deployment
text B
`

func TestMarkdownParserSplitsOnLevelTwoHeadings(t *testing.T) {
	// S2: content above the first level-2 heading is discarded metadata —
	// exactly two chunks come out, never a preamble chunk for "# Title".
	p := NewMarkdownParser()
	result := p.Parse("/repo/docs/ARCH.md", "docs/ARCH.md", []byte(markdownFixture), "repo1")

	require.True(t, result.Success)
	require.Len(t, result.Chunks, 2)

	assert.Equal(t, "Auth", result.Chunks[0].ItemName)
	assert.True(t, strings.HasPrefix(result.Chunks[0].Content, "## Auth"))
	assert.Contains(t, result.Chunks[0].Content, "text A")
	assert.NotContains(t, result.Chunks[0].Content, "## Deployment")

	assert.Equal(t, "Deployment", result.Chunks[1].ItemName)
	assert.Contains(t, result.Chunks[1].Content, "text B")
}

func TestMarkdownParserClassifiesDocTypeFromPath(t *testing.T) {
	// S2: docs/ARCH.md is classified "architecture" because its path
	// contains the substring "arch", not the full word "architecture".
	p := NewMarkdownParser()

	result := p.Parse("/repo/docs/ARCH.md", "docs/ARCH.md", []byte(markdownFixture), "repo1")
	require.True(t, result.Success)
	require.NotEmpty(t, result.Chunks)
	assert.Equal(t, "architecture", result.Chunks[0].ItemType)
}

func TestMarkdownParserEmptyFileProducesNoChunks(t *testing.T) {
	p := NewMarkdownParser()
	result := p.Parse("/repo/docs/empty.md", "docs/empty.md", []byte("\n\n  \n"), "repo1")
	assert.True(t, result.Success)
	assert.Empty(t, result.Chunks)
}

func TestMarkdownParserWithNoHeadingsDiscardsWholeFileAsPreamble(t *testing.T) {
	p := NewMarkdownParser()
	result := p.Parse("/repo/docs/notes.md", "docs/notes.md", []byte("Just some notes.\nNo headings here.\n"), "repo1")
	require.True(t, result.Success)
	assert.Empty(t, result.Chunks)
}
