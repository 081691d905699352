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

	"gopkg.in/yaml.v3"
)

// YAMLParser splits a YAML document into one chunk per top-level mapping
// key, using a real structural parse (yaml.v3's Node tree) rather than an
// indentation heuristic. CI/CD workflow files (detected by path) are tagged
// "cicd"; everything else is tagged "infrastructure".
type YAMLParser struct{}

// NewYAMLParser constructs a YAMLParser. Stateless; safe to share.
func NewYAMLParser() *YAMLParser { return &YAMLParser{} }

// Parse implements Parser.
func (p *YAMLParser) Parse(filePath, relativePath string, content []byte, repoID string) ParseResult {
	text := decodeLossy(content)
	if strings.TrimSpace(text) == "" {
		return ParseResult{Success: true, Chunks: nil, TotalLines: 0}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return ParseResult{Success: false, Error: "yaml parse: " + err.Error()}
	}

	lines := strings.Split(text, "\n")
	itemType := "infrastructure"
	if strings.Contains(relativePath, ".github/workflows") || strings.Contains(relativePath, ".gitlab-ci") {
		itemType = "cicd"
	}

	var chunks []Chunk
	if len(doc.Content) == 0 {
		return ParseResult{Success: true, Chunks: nil, TotalLines: len(lines)}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		chunks = append(chunks, Chunk{
			Content:       text,
			Language:      "yaml",
			ItemType:      itemType,
			ItemName:      "document",
			FilePath:      relativePath,
			StartLine:     1,
			EndLine:       len(lines),
			RepoID:        repoID,
			RepoComponent: RepoComponentFor(relativePath),
			Metadata:      map[string]any{},
		})
	} else {
		for i := 0; i+1 < len(root.Content); i += 2 {
			keyNode := root.Content[i]
			valNode := root.Content[i+1]
			start := keyNode.Line - 1
			end := blockEndLine(valNode, len(lines)) - 1
			if end < start {
				end = start
			}
			chunks = append(chunks, Chunk{
				Content:       strings.Join(lines[start:end+1], "\n"),
				Language:      "yaml",
				ItemType:      itemType,
				ItemName:      keyNode.Value,
				FilePath:      relativePath,
				StartLine:     start + 1,
				EndLine:       end + 1,
				RepoID:        repoID,
				RepoComponent: RepoComponentFor(relativePath),
				Metadata:      map[string]any{},
			})
		}
	}

	for idx := range chunks {
		chunks[idx].BusinessDomain = ClassifyBusinessDomain(chunks[idx].FilePath, chunks[idx].Content, DefaultDomainPatterns)
		chunks[idx].Finalize()
	}

	return ParseResult{Success: true, Chunks: chunks, TotalLines: len(lines)}
}

// blockEndLine returns the 1-based number of the last line on which node or
// one of its descendants starts, or fallback when node carries no position.
func blockEndLine(node *yaml.Node, fallback int) int {
	maxLine := node.Line
	var walk func(n *yaml.Node)
	walk = func(n *yaml.Node) {
		if n.Line > maxLine {
			maxLine = n.Line
		}
		for _, c := range n.Content {
			walk(c)
		}
	}
	walk(node)
	if maxLine <= 0 {
		return fallback
	}
	return maxLine
}

// TerraformParser splits HCL source into one chunk per top-level block
// (resource/module/variable/output/provider/data/...). No HCL parsing
// library appears anywhere in the example corpus, so this uses the same
// brace-balance structural scan as the Rust/Solidity parsers rather than a
// regex pass.
type TerraformParser struct{}

// NewTerraformParser constructs a TerraformParser. Stateless; safe to share.
func NewTerraformParser() *TerraformParser { return &TerraformParser{} }

var terraformBlockKeywords = map[string]struct{}{
	"resource": {}, "module": {}, "variable": {}, "output": {},
	"provider": {}, "data": {}, "locals": {}, "terraform": {},
}

// Parse implements Parser.
func (p *TerraformParser) Parse(filePath, relativePath string, content []byte, repoID string) ParseResult {
	text := decodeLossy(content)
	if strings.TrimSpace(text) == "" {
		return ParseResult{Success: true, Chunks: nil, TotalLines: 0}
	}

	lines := strings.Split(text, "\n")
	var chunks []Chunk

	i := 0
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])
		fields := strings.Fields(trimmed)
		if len(fields) == 0 || !strings.Contains(trimmed, "{") {
			i++
			continue
		}
		kw := fields[0]
		if _, ok := terraformBlockKeywords[kw]; !ok {
			i++
			continue
		}

		name := strings.Join(fields[1:], " ")
		name = strings.TrimSuffix(strings.TrimSpace(name), "{")
		name = strings.Trim(strings.TrimSpace(name), "\"")
		if name == "" {
			name = kw
		}

		endLine := findBraceBlockEnd(lines, i)
		chunks = append(chunks, Chunk{
			Content:       strings.Join(lines[i:endLine+1], "\n"),
			Language:      "terraform",
			ItemType:      kw,
			ItemName:      name,
			FilePath:      relativePath,
			StartLine:     i + 1,
			EndLine:       endLine + 1,
			RepoID:        repoID,
			RepoComponent: RepoComponentFor(relativePath),
			Metadata:      map[string]any{},
		})
		i = endLine + 1
	}

	for idx := range chunks {
		chunks[idx].BusinessDomain = ClassifyBusinessDomain(chunks[idx].FilePath, chunks[idx].Content, DefaultDomainPatterns)
		chunks[idx].Finalize()
	}

	return ParseResult{Success: true, Chunks: chunks, TotalLines: len(lines)}
}
