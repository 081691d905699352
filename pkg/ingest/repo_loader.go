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
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// FileEntry is one file discovered by a repo walk.
type FileEntry struct {
	Path     string // relative to repo root, slash-normalized
	FullPath string // absolute, on-disk
	Size     int64
	Language string
}

// WalkResult is the outcome of walking one repository root.
type WalkResult struct {
	Files       []FileEntry
	Languages   map[string]int
	SkipReasons map[string]int
}

// WalkRepository walks rootPath, classifying every regular file by
// extension and filtering out configured skip directories and oversize
// files. This is grounded on the teacher's RepoLoader.walkRepository, minus
// git-clone support: this package only ever consumes paths already on disk.
func WalkRepository(rootPath string, cfg *Config) (*WalkResult, error) {
	result := &WalkResult{
		Languages:   make(map[string]int),
		SkipReasons: make(map[string]int),
	}

	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			result.SkipReasons["walk_error"]++
			return nil
		}

		relPath, relErr := filepath.Rel(rootPath, path)
		if relErr != nil {
			return nil
		}
		relPath = normalizePath(relPath)

		if d.IsDir() {
			if relPath != "." && cfg.IsSkipDir(d.Name()) {
				result.SkipReasons["excluded_dir"]++
				return filepath.SkipDir
			}
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			result.SkipReasons["stat_error"]++
			return nil
		}
		if cfg.MaxFileSize > 0 && info.Size() > cfg.MaxFileSize {
			result.SkipReasons["too_large"]++
			return nil
		}

		language, ok := languageForPath(relPath, cfg.ExtensionLanguage)
		if !ok {
			result.SkipReasons["unsupported_language"]++
			return nil
		}

		result.Files = append(result.Files, FileEntry{
			Path:     relPath,
			FullPath: path,
			Size:     info.Size(),
			Language: language,
		})
		result.Languages[language]++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk repository: %w", err)
	}

	return result, nil
}

// languageForPath resolves a file's language tag from its extension.
func languageForPath(relPath string, extensionLanguage map[string]string) (string, bool) {
	ext := filepath.Ext(relPath)
	lang, ok := extensionLanguage[ext]
	return lang, ok
}

// ChunkEvent is one item in the lazy chunk stream produced by StreamChunks:
// either a successfully parsed chunk, or a file-level parse failure that the
// caller should count but not treat as fatal.
type ChunkEvent struct {
	Chunk     Chunk
	FilePath  string // set on both chunks and failures
	Language  string
	ParseFail string // non-empty on a parse-level failure for this file
}

// StreamChunks walks repoRoot and emits one ChunkEvent per chunk (or
// per-file parse failure), grouped by language in cfg.LanguageOrder, files
// within a language group in sorted-path order, chunks within a file in
// parser order — the ordering the checkpoint scheme depends on. Files
// already processed in a prior run (lexically <= resumeAfter, scoped to
// resumeLanguage) are skipped, implementing S4's resume semantics.
//
// The returned channel is closed once the walk completes or ctx is
// cancelled. Callers must drain it to avoid leaking the producer goroutine.
func StreamChunks(ctx context.Context, repoRoot, repoID string, cfg *Config, registry *ParserRegistry, resumeLanguage, resumeAfter string, logger *slog.Logger) (<-chan ChunkEvent, error) {
	walked, err := WalkRepository(repoRoot, cfg)
	if err != nil {
		return nil, err
	}

	byLanguage := make(map[string][]FileEntry, len(walked.Languages))
	for _, f := range walked.Files {
		byLanguage[f.Language] = append(byLanguage[f.Language], f)
	}
	for lang := range byLanguage {
		sort.Slice(byLanguage[lang], func(i, j int) bool {
			return byLanguage[lang][i].Path < byLanguage[lang][j].Path
		})
	}

	order := cfg.LanguageOrder
	seen := make(map[string]struct{}, len(order))
	orderedLanguages := make([]string, 0, len(byLanguage))
	for _, lang := range order {
		if _, ok := byLanguage[lang]; ok {
			orderedLanguages = append(orderedLanguages, lang)
			seen[lang] = struct{}{}
		}
	}
	// Any language present on disk but absent from LanguageOrder still gets
	// walked, appended in stable alphabetical order, so nothing is silently dropped.
	var leftover []string
	for lang := range byLanguage {
		if _, ok := seen[lang]; !ok {
			leftover = append(leftover, lang)
		}
	}
	sort.Strings(leftover)
	orderedLanguages = append(orderedLanguages, leftover...)

	out := make(chan ChunkEvent)

	go func() {
		defer close(out)

		for _, lang := range orderedLanguages {
			parser := registry.For(lang)
			for _, f := range byLanguage[lang] {
				if lang == resumeLanguage && resumeAfter != "" && f.Path <= resumeAfter {
					continue
				}

				select {
				case <-ctx.Done():
					return
				default:
				}

				content, readErr := os.ReadFile(f.FullPath)
				if readErr != nil {
					logger.Warn("ingest.file.read_error", "path", f.Path, "err", readErr)
					select {
					case out <- ChunkEvent{FilePath: f.Path, Language: lang, ParseFail: readErr.Error()}:
					case <-ctx.Done():
						return
					}
					continue
				}

				res := parser.Parse(f.FullPath, f.Path, content, repoID)
				if !res.Success {
					logger.Warn("ingest.file.parse_error", "path", f.Path, "language", lang, "err", res.Error)
					select {
					case out <- ChunkEvent{FilePath: f.Path, Language: lang, ParseFail: res.Error}:
					case <-ctx.Done():
						return
					}
					continue
				}

				for _, c := range res.Chunks {
					select {
					case out <- ChunkEvent{Chunk: c, FilePath: f.Path, Language: lang}:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return out, nil
}
