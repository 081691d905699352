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

import "strings"

// MarkdownParser splits documentation into chunks at level-2 (##) headings.
// Content above the first level-2 heading is discarded metadata: it supplies
// the document title but never becomes a chunk of its own.
type MarkdownParser struct{}

// NewMarkdownParser constructs a MarkdownParser. Stateless; safe to share.
func NewMarkdownParser() *MarkdownParser { return &MarkdownParser{} }

// Parse implements Parser.
func (p *MarkdownParser) Parse(filePath, relativePath string, content []byte, repoID string) ParseResult {
	text := decodeLossy(content)
	if strings.TrimSpace(text) == "" {
		return ParseResult{Success: true, Chunks: nil, TotalLines: 0}
	}

	lines := strings.Split(text, "\n")
	docType := classifyDocType(relativePath)
	title := firstTitleLine(lines)

	var chunks []Chunk
	sectionStart := -1
	sectionName := ""

	flush := func(start, end int, name string) {
		if start < 0 {
			return
		}
		body := strings.Join(lines[start:end+1], "\n")
		if strings.TrimSpace(body) == "" {
			return
		}
		chunks = append(chunks, Chunk{
			Content:       body,
			Language:      "documentation",
			ItemType:      docType,
			ItemName:      name,
			FilePath:      relativePath,
			StartLine:     start + 1,
			EndLine:       end + 1,
			RepoID:        repoID,
			RepoComponent: RepoComponentFor(relativePath),
			Metadata: map[string]any{
				"section_level": 2,
				"title":         title,
			},
		})
	}

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "## ") {
			flush(sectionStart, i-1, sectionName)
			sectionStart = i
			sectionName = strings.TrimSpace(strings.TrimPrefix(trimmed, "## "))
		}
	}
	flush(sectionStart, len(lines)-1, sectionName)

	for idx := range chunks {
		chunks[idx].BusinessDomain = ClassifyBusinessDomain(chunks[idx].FilePath, chunks[idx].Content, DefaultDomainPatterns)
		chunks[idx].Finalize()
	}

	return ParseResult{Success: true, Chunks: chunks, TotalLines: len(lines)}
}

// firstTitleLine returns the first non-blank line above the first level-2
// heading, with a leading "# " removed, as the document's title; a level-1
// heading is not preferred over earlier text. It never contributes a chunk
// of its own.
func firstTitleLine(lines []string) string {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "## ") {
			break
		}
		return strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
	}
	return ""
}

// classifyDocType picks an item_type for a documentation chunk from path
// keywords, falling back to the generic "documentation" tag.
func classifyDocType(relativePath string) string {
	pathLower := strings.ToLower(relativePath)
	switch {
	case strings.Contains(pathLower, "arch"):
		return "architecture"
	case strings.Contains(pathLower, "api"):
		return "api"
	case strings.Contains(pathLower, "auth"):
		return "authentication"
	case strings.Contains(pathLower, "deploy"):
		return "deployment"
	case strings.Contains(pathLower, "develop"):
		return "development"
	case strings.Contains(pathLower, "integrat"):
		return "integration"
	default:
		return "documentation"
	}
}
