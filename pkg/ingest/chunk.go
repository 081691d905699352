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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Chunk is the unit of embedding: a syntactically coherent span of source
// text produced by a language parser.
type Chunk struct {
	Content  string
	Language string
	ItemType string
	ItemName string

	FilePath  string
	StartLine int
	EndLine   int

	RepoID         string
	RepoComponent  string
	BusinessDomain string

	ComplexityScore float64
	ChunkHash       string

	// Metadata carries language-specific extras (visibility, async-ness,
	// is_react_component, doc_type, section_level, imports, exports,
	// service_type, architectural_layer, api_endpoints, ...). Keys are
	// additive; a parser that cannot produce one simply omits it.
	Metadata map[string]any
}

// Finalize computes the fields that depend on the chunk's final content:
// chunk_hash and complexity_score. Callers populate everything else first.
func (c *Chunk) Finalize() {
	c.ComplexityScore = ComplexityScore(c.Content)
	c.ChunkHash = ChunkHash(c.Language, c.FilePath, c.ItemType, c.ItemName, c.Content)
}

// ChunkHash computes the spec's canonical identity fingerprint: SHA-256 over
// "language|file_path|item_type|item_name|content", lowercase hex. This is
// the identity used for dedup and as the seed for the vector point id
// (see ids.go) — for both code and documentation chunks alike.
func ChunkHash(language, filePath, itemType, itemName, content string) string {
	canonical := strings.Join([]string{language, filePath, itemType, itemName, content}, "|")
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// ComplexityScore computes the spec's unified [0,1] complexity heuristic:
// 0.4·normalized_lines + 0.3·normalized_max_indent + 0.3·normalized_branch_count,
// with lines/200, indent_levels/5, branch_keywords/10, each clamped to 1.
func ComplexityScore(content string) float64 {
	if content == "" {
		return 0
	}

	lines := strings.Split(content, "\n")
	maxIndent := 0
	branchCount := 0

	for _, line := range lines {
		indent := indentLevel(line)
		if indent > maxIndent {
			maxIndent = indent
		}
		branchCount += countBranchKeywords(line)
	}

	normLines := clamp01(float64(len(lines)) / 200.0)
	normIndent := clamp01(float64(maxIndent) / 5.0)
	normBranch := clamp01(float64(branchCount) / 10.0)

	return 0.4*normLines + 0.3*normIndent + 0.3*normBranch
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// indentLevel estimates nesting depth of a line by counting leading
// indentation units (a tab, or every two spaces, counts as one level).
func indentLevel(line string) int {
	spaces := 0
	for _, r := range line {
		switch r {
		case '\t':
			spaces += 2
		case ' ':
			spaces++
		default:
			return spaces / 2
		}
	}
	return 0
}

var branchKeywords = []string{
	"if ", "if(", "else", "for ", "for(", "while ", "while(",
	"switch ", "switch(", "case ", "match ", "catch", "elif ",
	"&&", "||",
}

func countBranchKeywords(line string) int {
	lower := strings.ToLower(line)
	n := 0
	for _, kw := range branchKeywords {
		n += strings.Count(lower, kw)
	}
	return n
}

// DomainPattern is one ordered (tag, keywords) entry in the business-domain
// classification table; first match over the ordered list wins.
type DomainPattern struct {
	Tag      string
	Keywords []string
}

// DefaultDomainPatterns is the exact default keyword table ported from the
// Python source's config.py, in its original fixed iteration order.
var DefaultDomainPatterns = []DomainPattern{
	{Tag: "finance", Keywords: []string{"balance", "transaction", "payment", "credit", "loan", "pool", "financial"}},
	{Tag: "auth", Keywords: []string{"auth", "login", "session", "magic_link", "token", "verification"}},
	{Tag: "ui", Keywords: []string{"component", "modal", "form", "button", "layout", "page", "view"}},
	{Tag: "contracts", Keywords: []string{"contract", "solidity", "ethereum", "blockchain", "verifier"}},
	{Tag: "trading", Keywords: []string{"trading", "marketplace", "deal", "investment", "portfolio"}},
	{Tag: "kyc", Keywords: []string{"kyc", "identity", "verification", "compliance", "investor"}},
	{Tag: "notifications", Keywords: []string{"notification", "email", "alert", "message"}},
}

// ClassifyBusinessDomain assigns a single domain tag by first-match keyword
// search over the path, then over the content, then falls back to a
// path-based heuristic, then "general". Deterministic for a given
// (filePath, content, patterns) triple.
func ClassifyBusinessDomain(filePath, content string, patterns []DomainPattern) string {
	pathLower := strings.ToLower(filePath)
	contentLower := strings.ToLower(content)
	for _, text := range []string{pathLower, contentLower} {
		for _, p := range patterns {
			for _, kw := range p.Keywords {
				if strings.Contains(text, kw) {
					return p.Tag
				}
			}
		}
	}

	switch {
	case strings.Contains(pathLower, "auth"):
		return "auth"
	case strings.Contains(pathLower, "contract"):
		return "contracts"
	case strings.Contains(pathLower, "ui"), strings.Contains(pathLower, "component"):
		return "ui"
	default:
		return "general"
	}
}

// SynthesizeAnonymousName builds the stable placeholder name used when a
// parser cannot recover a declared identifier for a chunk.
func SynthesizeAnonymousName(startLine int) string {
	return fmt.Sprintf("<anonymous:%d>", startLine)
}

// monorepoComponents maps a path substring to its component tag, checked
// before the standard component table below. Order matters: the first match
// in this slice wins.
var monorepoComponents = []struct {
	substr string
	tag    string
}{
	{"apps/platform", "platform"},
	{"/platform/src", "platform"},
	{"apps/credit-app", "credit-app"},
	{"apps/idr", "idr"},
	{"packages/ui", "shared-ui"},
	{"packages/", "shared-packages"},
}

// standardComponents is checked after monorepoComponents, same first-match rule.
var standardComponents = []struct {
	substr string
	tag    string
}{
	{"api", "api"},
	{"contracts", "contracts"},
	{"cli", "cli"},
	{"docs", "documentation"},
	{"documentation", "documentation"},
	{"frontend", "frontend"},
	{"backend", "backend"},
}

// RepoComponentFor infers the monorepo/service component a file belongs to
// from its path alone, in the same two-pass (monorepo markers, then
// standard component names) order as the classifier this was ported from.
// Falls back to "core" when nothing matches.
func RepoComponentFor(relativePath string) string {
	pathLower := strings.ToLower(relativePath)

	for _, m := range monorepoComponents {
		if strings.Contains(pathLower, m.substr) {
			return m.tag
		}
	}
	for _, m := range standardComponents {
		if strings.Contains(pathLower, m.substr) {
			return m.tag
		}
	}
	return "core"
}
