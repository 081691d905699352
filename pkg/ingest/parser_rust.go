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
	"unicode"
)

// RustParser extracts chunks from a systems language with modules and
// traits (a Rust analog). go-tree-sitter's vendored grammar set in this
// corpus does not include one for this language family, so this parser is a
// structural declaration scanner: it recognizes declaration keywords at
// statement boundaries and finds their balanced-brace bodies by
// character-level depth tracking, rather than falling back to regex over
// content.
type RustParser struct{}

// NewRustParser constructs a RustParser. Stateless; safe to share.
func NewRustParser() *RustParser { return &RustParser{} }

var rustDeclKeywords = map[string]string{
	"fn":     "function",
	"struct": "struct",
	"enum":   "enum",
	"impl":   "impl",
	"trait":  "trait",
	"mod":    "module",
	"const":  "const",
	"static": "static",
	"type":   "type_alias",
}

// Parse implements Parser.
func (p *RustParser) Parse(filePath, relativePath string, content []byte, repoID string) ParseResult {
	text := decodeLossy(content)
	if strings.TrimSpace(text) == "" {
		return ParseResult{Success: true, Chunks: nil, TotalLines: 0}
	}

	lines := strings.Split(text, "\n")
	imports := extractRustImports(lines)

	var chunks []Chunk
	i := 0
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])
		kw, itemType, ok := matchRustDecl(trimmed)
		if !ok {
			i++
			continue
		}

		name := extractIdentifierAfter(trimmed, kw)
		if name == "" {
			name = SynthesizeAnonymousName(i + 1)
		}

		isTest := i > 0 && strings.Contains(strings.TrimSpace(lines[i-1]), "#[test]")
		isAsync := strings.Contains(trimmed, "async fn")
		isPublic := strings.HasPrefix(trimmed, "pub") || strings.Contains(trimmed, " pub ")

		var endLine int
		if itemType == "module" && !strings.Contains(trimmed, "{") {
			// mod foo; — header-only, no body.
			endLine = i
		} else if itemType == "const" || itemType == "static" || itemType == "type_alias" {
			endLine = findStatementEnd(lines, i)
		} else {
			endLine = findBraceBlockEnd(lines, i)
			if itemType == "module" {
				// Module declarations are header-only chunks; nested items
				// are chunked independently as the scan continues through
				// the body lines.
				endLine = i
			}
		}

		chunkContent := strings.Join(lines[i:endLine+1], "\n")
		meta := map[string]any{
			"visibility": visibilityOf(isPublic),
			"is_async":   isAsync,
			"is_test":    isTest,
		}
		if len(imports) > 0 {
			meta["imports"] = imports
		}

		chunks = append(chunks, Chunk{
			Content:       chunkContent,
			Language:      "rust",
			ItemType:      itemType,
			ItemName:      name,
			FilePath:      relativePath,
			StartLine:     i + 1,
			EndLine:       endLine + 1,
			RepoID:        repoID,
			RepoComponent: RepoComponentFor(relativePath),
			Metadata:      meta,
		})

		i = endLine + 1
	}

	for idx := range chunks {
		chunks[idx].BusinessDomain = ClassifyBusinessDomain(chunks[idx].FilePath, chunks[idx].Content, DefaultDomainPatterns)
		chunks[idx].Finalize()
	}

	return ParseResult{Success: true, Chunks: chunks, TotalLines: len(lines)}
}

func visibilityOf(isPublic bool) string {
	if isPublic {
		return "public"
	}
	return "private"
}

func matchRustDecl(trimmed string) (keyword, itemType string, ok bool) {
	fields := strings.Fields(trimmed)
	for i, f := range fields {
		f = strings.TrimSuffix(f, "(")
		if it, known := rustDeclKeywords[f]; known {
			// Skip false positives like "type" used as a field/param name deep in a line.
			if i > 2 {
				continue
			}
			return f, it, true
		}
	}
	return "", "", false
}

// extractIdentifierAfter returns the identifier that follows keyword in line.
func extractIdentifierAfter(line, keyword string) string {
	idx := strings.Index(line, keyword)
	if idx < 0 {
		return ""
	}
	rest := strings.TrimSpace(line[idx+len(keyword):])
	var b strings.Builder
	for _, r := range rest {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
			continue
		}
		break
	}
	return b.String()
}

// findBraceBlockEnd scans from startIdx forward for the line whose closing
// brace brings the depth back to zero, skipping double-quoted string
// literals and // comments so braces inside them are not counted. Character
// literals such as '{' are not recognized and are counted.
func findBraceBlockEnd(lines []string, startIdx int) int {
	depth := 0
	seenOpen := false
	for i := startIdx; i < len(lines); i++ {
		for _, r := range stripRustStringsAndComments(lines[i]) {
			switch r {
			case '{':
				depth++
				seenOpen = true
			case '}':
				depth--
			}
		}
		if seenOpen && depth <= 0 {
			return i
		}
	}
	return len(lines) - 1
}

// findStatementEnd scans forward for a top-level ';' (not inside brackets).
func findStatementEnd(lines []string, startIdx int) int {
	depth := 0
	for i := startIdx; i < len(lines); i++ {
		clean := stripRustStringsAndComments(lines[i])
		for _, r := range clean {
			switch r {
			case '(', '[', '{':
				depth++
			case ')', ']', '}':
				depth--
			case ';':
				if depth <= 0 {
					return i
				}
			}
		}
	}
	return len(lines) - 1
}

// stripRustStringsAndComments removes the contents of "..." string literals
// and "//" line comments so brace/semicolon scanning ignores them.
func stripRustStringsAndComments(line string) string {
	var b strings.Builder
	inString := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		if inString {
			if c == '"' && (i == 0 || line[i-1] != '\\') {
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			continue
		}
		if c == '/' && i+1 < len(line) && line[i+1] == '/' {
			break
		}
		b.WriteByte(c)
	}
	return b.String()
}

func extractRustImports(lines []string) []string {
	var imports []string
	for _, l := range lines {
		t := strings.TrimSpace(l)
		if strings.HasPrefix(t, "use ") {
			imports = append(imports, strings.TrimSuffix(strings.TrimPrefix(t, "use "), ";"))
		}
	}
	return imports
}

// decodeLossy accepts malformed UTF-8 by lossy decode rather than failing
// the file; Go strings already tolerate invalid byte sequences (each
// renders as U+FFFD on rune iteration), so this is a pass-through kept as a
// named seam for clarity at every parser's entry point.
func decodeLossy(content []byte) string {
	return string(content)
}
