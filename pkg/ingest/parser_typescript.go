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
	"context"
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// hookIdentifierPattern matches React's hook-naming convention: an
// identifier starting with "use" followed by an uppercase letter
// (useState, useEffect, useMyCustomHook, ...).
var hookIdentifierPattern = regexp.MustCompile(`\buse[A-Z]\w*`)

// TypeScriptParser extracts chunks from the TypeScript/JavaScript family
// using go-tree-sitter's vendored grammars — the one language family this
// implementation builds a real AST for, rather than a structural scanner,
// since the grammar bindings are actually present in the corpus.
type TypeScriptParser struct {
	tsParser  *sitter.Parser
	tsxParser *sitter.Parser
	jsParser  *sitter.Parser
}

// NewTypeScriptParser builds a TypeScriptParser with one configured
// *sitter.Parser per grammar variant. Not safe for concurrent Parse calls on
// the same instance; NewDefaultRegistry registers one instance under all four
// TypeScript/JavaScript tags, so callers processing files concurrently should guard with their own
// synchronization or construct one parser per worker.
func NewTypeScriptParser() *TypeScriptParser {
	ts := sitter.NewParser()
	ts.SetLanguage(typescript.GetLanguage())

	tsxP := sitter.NewParser()
	tsxP.SetLanguage(tsx.GetLanguage())

	js := sitter.NewParser()
	js.SetLanguage(javascript.GetLanguage())

	return &TypeScriptParser{tsParser: ts, tsxParser: tsxP, jsParser: js}
}

func (p *TypeScriptParser) parserFor(relativePath string) *sitter.Parser {
	switch {
	case strings.HasSuffix(relativePath, ".tsx"), strings.HasSuffix(relativePath, ".jsx"):
		return p.tsxParser
	case strings.HasSuffix(relativePath, ".ts"):
		return p.tsParser
	default:
		return p.jsParser
	}
}

// Parse implements Parser.
func (p *TypeScriptParser) Parse(filePath, relativePath string, content []byte, repoID string) ParseResult {
	if strings.TrimSpace(string(content)) == "" {
		return ParseResult{Success: true, Chunks: nil, TotalLines: 0}
	}

	parser := p.parserFor(relativePath)
	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return ParseResult{Success: false, Error: fmt.Sprintf("tree-sitter parse: %v", err)}
	}
	defer tree.Close()

	root := tree.RootNode()
	isTSX := strings.HasSuffix(relativePath, ".tsx") || strings.HasSuffix(relativePath, ".jsx")
	lang := "javascript"
	if strings.HasSuffix(relativePath, ".tsx") {
		lang = "tsx"
	} else if strings.HasSuffix(relativePath, ".ts") {
		lang = "typescript"
	} else if strings.HasSuffix(relativePath, ".jsx") {
		lang = "jsx"
	}

	var chunks []Chunk
	for i := 0; i < int(root.NamedChildCount()); i++ {
		node := root.NamedChild(i)
		collectTSDecls(node, content, &chunks)
	}

	for idx := range chunks {
		chunks[idx].FilePath = relativePath
		chunks[idx].Language = lang
		chunks[idx].RepoID = repoID
		chunks[idx].RepoComponent = RepoComponentFor(relativePath)
		if isTSX {
			if meta, ok := chunks[idx].Metadata["is_react_component"]; !ok || meta == false {
				content := chunks[idx].Content
				chunks[idx].Metadata["is_react_component"] = isReactComponentName(chunks[idx].ItemName) &&
					(strings.Contains(content, "<") || hookIdentifierPattern.MatchString(content))
			}
		}
		chunks[idx].BusinessDomain = ClassifyBusinessDomain(chunks[idx].FilePath, chunks[idx].Content, DefaultDomainPatterns)
		chunks[idx].Finalize()
	}

	return ParseResult{Success: true, Chunks: chunks, TotalLines: int(root.EndPoint().Row) + 1}
}

// collectTSDecls walks one top-level statement (descending through an
// export_statement wrapper) and appends a Chunk for each recognized
// declaration shape.
func collectTSDecls(node *sitter.Node, source []byte, chunks *[]Chunk) {
	if node == nil {
		return
	}

	isExported := false
	target := node
	if node.Type() == "export_statement" {
		isExported = true
		if node.NamedChildCount() == 0 {
			return
		}
		target = node.NamedChild(0)
	}

	switch target.Type() {
	case "function_declaration", "generator_function_declaration":
		name := fieldText(target, "name", source)
		if name == "" {
			name = SynthesizeAnonymousName(int(target.StartPoint().Row) + 1)
		}
		*chunks = append(*chunks, newTSChunk(target, source, "function", name, isExported, isAsyncTS(target)))

	case "class_declaration":
		name := fieldText(target, "name", source)
		if name == "" {
			name = SynthesizeAnonymousName(int(target.StartPoint().Row) + 1)
		}
		*chunks = append(*chunks, newTSChunk(target, source, "class", name, isExported, false))

	case "interface_declaration":
		name := fieldText(target, "name", source)
		*chunks = append(*chunks, newTSChunk(target, source, "interface", name, isExported, false))

	case "type_alias_declaration":
		name := fieldText(target, "name", source)
		*chunks = append(*chunks, newTSChunk(target, source, "type_alias", name, isExported, false))

	case "lexical_declaration", "variable_declaration":
		for i := 0; i < int(target.NamedChildCount()); i++ {
			declarator := target.NamedChild(i)
			if declarator.Type() != "variable_declarator" {
				continue
			}
			name := fieldText(declarator, "name", source)
			value := declarator.ChildByFieldName("value")
			if value != nil && (value.Type() == "arrow_function" || value.Type() == "function" || value.Type() == "function_expression") {
				if name == "" {
					name = SynthesizeAnonymousName(int(target.StartPoint().Row) + 1)
				}
				*chunks = append(*chunks, newTSChunk(target, source, "function", name, isExported, isAsyncTS(value)))
			} else if name != "" {
				*chunks = append(*chunks, newTSChunk(target, source, "const", name, isExported, false))
			}
		}
	}
}

func newTSChunk(node *sitter.Node, source []byte, itemType, name string, isExported, isAsync bool) Chunk {
	return Chunk{
		Content:   node.Content(source),
		ItemType:  itemType,
		ItemName:  name,
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
		Metadata: map[string]any{
			"is_exported": isExported,
			"is_async":    isAsync,
		},
	}
}

func fieldText(node *sitter.Node, field string, source []byte) string {
	child := node.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return child.Content(source)
}

func isAsyncTS(node *sitter.Node) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		if c.Type() == "async" {
			return true
		}
	}
	return false
}

func isReactComponentName(name string) bool {
	if name == "" {
		return false
	}
	r := name[0]
	return r >= 'A' && r <= 'Z'
}
