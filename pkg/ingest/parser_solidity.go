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

// SolidityParser extracts chunks from smart-contract source. Like
// RustParser, no vendored tree-sitter grammar for this language exists in
// the corpus, so this is a structural brace-scanner over declaration
// keywords rather than a regex scan. A contract, interface or library
// becomes one chunk spanning its whole body, and the declarations inside it
// get chunks of their own. If the source has neither a pragma nor any
// declaration keyword it reports failure rather than guessing at a
// structural model.
type SolidityParser struct{}

// NewSolidityParser constructs a SolidityParser. Stateless; safe to share.
func NewSolidityParser() *SolidityParser { return &SolidityParser{} }

var solidityDeclKeywords = map[string]string{
	"contract":  "contract",
	"interface": "interface",
	"library":   "library",
	"function":  "function",
	"modifier":  "modifier",
	"event":     "event",
	"struct":    "struct",
	"enum":      "enum",
	"error":     "error",
}

// Parse implements Parser.
func (p *SolidityParser) Parse(filePath, relativePath string, content []byte, repoID string) ParseResult {
	text := decodeLossy(content)
	if strings.TrimSpace(text) == "" {
		return ParseResult{Success: true, Chunks: nil, TotalLines: 0}
	}
	if !strings.Contains(text, "pragma solidity") && !containsAnySolidityKeyword(text) {
		return ParseResult{Success: false, Error: "no recognizable solidity declarations found"}
	}

	lines := strings.Split(text, "\n")
	var chunks []Chunk
	var stateVars []string

	i := 0
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])
		kw, itemType, ok := matchSolidityDecl(trimmed)
		if !ok {
			if sv := extractSolidityStateVar(trimmed); sv != "" {
				stateVars = append(stateVars, sv)
			}
			i++
			continue
		}

		name := extractIdentifierAfter(trimmed, kw)
		if name == "" {
			if kw == "constructor" {
				name = "constructor"
			} else {
				name = SynthesizeAnonymousName(i + 1)
			}
		}

		visibility := "internal"
		for _, v := range []string{"public", "external", "private", "internal"} {
			if strings.Contains(trimmed, v) {
				visibility = v
				break
			}
		}
		mutability := ""
		for _, m := range []string{"view", "pure", "payable"} {
			if strings.Contains(trimmed, m) {
				mutability = m
				break
			}
		}

		var endLine int
		if !strings.Contains(trimmed, "{") {
			endLine = findStatementEnd(lines, i)
		} else {
			endLine = findBraceBlockEnd(lines, i)
		}

		chunks = append(chunks, Chunk{
			Content:       strings.Join(lines[i:endLine+1], "\n"),
			Language:      "solidity",
			ItemType:      itemType,
			ItemName:      name,
			FilePath:      relativePath,
			StartLine:     i + 1,
			EndLine:       endLine + 1,
			RepoID:        repoID,
			RepoComponent: RepoComponentFor(relativePath),
			Metadata: map[string]any{
				"visibility":       visibility,
				"state_mutability": mutability,
			},
		})

		if itemType == "contract" || itemType == "interface" || itemType == "library" {
			// Continue inside the container so its members are chunked too.
			i++
			continue
		}
		i = endLine + 1
	}

	if len(stateVars) > 0 {
		for idx := range chunks {
			if chunks[idx].ItemType == "contract" || chunks[idx].ItemType == "library" {
				chunks[idx].Metadata["state_variables"] = stateVars
			}
		}
	}

	for idx := range chunks {
		chunks[idx].BusinessDomain = ClassifyBusinessDomain(chunks[idx].FilePath, chunks[idx].Content, DefaultDomainPatterns)
		chunks[idx].Finalize()
	}

	return ParseResult{Success: true, Chunks: chunks, TotalLines: len(lines)}
}

func containsAnySolidityKeyword(text string) bool {
	for kw := range solidityDeclKeywords {
		if strings.Contains(text, kw+" ") {
			return true
		}
	}
	return strings.Contains(text, "constructor(")
}

func matchSolidityDecl(trimmed string) (keyword, itemType string, ok bool) {
	if strings.HasPrefix(trimmed, "constructor") || strings.Contains(trimmed, " constructor(") {
		return "constructor", "constructor", true
	}
	fields := strings.Fields(trimmed)
	for i, f := range fields {
		f = strings.TrimSuffix(f, "(")
		if it, known := solidityDeclKeywords[f]; known {
			if i > 3 {
				continue
			}
			return f, it, true
		}
	}
	return "", "", false
}

// extractSolidityStateVar recognizes a simple top-level state variable
// declaration line (type name visibility? = ...;) outside any function body
// scope is not tracked here, so this intentionally only looks for the
// common "Type public name;" / "Type private name =" shapes to avoid false
// positives inside function bodies.
func extractSolidityStateVar(trimmed string) string {
	if trimmed == "" || strings.HasSuffix(trimmed, "{") || strings.HasSuffix(trimmed, "}") {
		return ""
	}
	if !strings.HasSuffix(trimmed, ";") {
		return ""
	}
	for _, vis := range []string{" public ", " private ", " internal "} {
		idx := strings.Index(trimmed, vis)
		if idx < 0 {
			continue
		}
		rest := strings.TrimSpace(trimmed[idx+len(vis):])
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			return ""
		}
		name := fields[0]
		name = strings.TrimSuffix(name, ";")
		name = strings.TrimSuffix(name, "=")
		return strings.TrimSpace(name)
	}
	return ""
}
