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
	"fmt"
	"time"
)

// VectorBackendKind selects which concrete C6 implementation a Config resolves to.
type VectorBackendKind string

const (
	BackendManaged VectorBackendKind = "managed" // Qdrant-like remote store
	BackendLocal   VectorBackendKind = "local"    // SurrealDB-like local/self-hosted store
)

// RepoDescriptor identifies one repository to ingest. Immutable for the
// duration of a run.
type RepoDescriptor struct {
	RepoID       string
	Path         string // on-disk root
	RepoType     string // frontend|backend|middleware|infrastructure|tool|documentation
	Languages    []string
	Components   []string
	Priority     string // high|medium|low
	Dependencies []string
}

// DefaultSkipDirs is the directory-name denylist applied at any depth during
// the repo walk.
var DefaultSkipDirs = []string{
	"target", ".git", "node_modules", "__pycache__", ".pytest_cache", "dist", "build", "public",
}

// DefaultExtensionLanguage maps a file extension to its language tag.
var DefaultExtensionLanguage = map[string]string{
	".rs":       "rust",
	".ts":       "typescript",
	".tsx":      "tsx",
	".js":       "javascript",
	".jsx":      "jsx",
	".sol":      "solidity",
	".md":       "documentation",
	".markdown": "documentation",
	".yaml":     "yaml",
	".yml":      "yaml",
	".tf":       "terraform",
	".tfvars":   "terraform",
	".py":       "python",
	".sql":      "sql",
	".proto":    "protobuf",
}

// DefaultLanguageOrder fixes the deterministic order repo walks group
// chunks by language (spec: "language groups in config order").
var DefaultLanguageOrder = []string{
	"rust", "typescript", "tsx", "javascript", "jsx", "solidity",
	"documentation", "yaml", "terraform", "python", "sql", "protobuf",
}

// DefaultLanguageCollections maps a language tag to its collection suffix.
// typescript/tsx/javascript/jsx all land in the single "typescript" collection.
var DefaultLanguageCollections = map[string]string{
	"rust":          "rust",
	"typescript":    "typescript",
	"tsx":           "typescript",
	"javascript":    "typescript",
	"jsx":           "typescript",
	"python":        "python",
	"solidity":      "solidity",
	"documentation": "documentation",
	"yaml":          "yaml",
	"terraform":     "terraform",
	"infrastructure": "infrastructure",
	"cicd":          "cicd",
}

// Config is the single immutable value supplied to every component.
// Construct via NewConfig, which applies defaults and validates.
type Config struct {
	ReposBaseDir string

	VectorBackend VectorBackendKind

	QdrantURL      string
	QdrantAPIKey   string
	SurrealURL     string
	SurrealNS      string
	SurrealDB      string
	SurrealUser    string
	SurrealPass    string

	EmbeddingBaseURL string
	EmbeddingAPIKey  string
	EmbeddingModel   string
	EmbeddingDim     int

	BatchSize       int
	RateLimit       int // concurrency cap: max in-flight embedding calls / batches
	RequestTimeout  time.Duration
	MaxRetries      int
	MaxBatchRetries int

	MaxFileSize int64
	SkipDirs    map[string]struct{}

	ExtensionLanguage   map[string]string
	LanguageCollections map[string]string
	LanguageOrder       []string
	CollectionPrefix    string

	DomainPatterns []DomainPattern

	// CheckpointFrequency maps a language tag to "write a checkpoint every N
	// files of that language"; languages absent from the map use DefaultCheckpointFrequency.
	CheckpointFrequency map[string]int
	CheckpointPath      string
}

// DefaultCheckpointFrequency is the fallback "write a checkpoint every N files" cadence.
const DefaultCheckpointFrequency = 10

// DefaultBatchSize, DefaultRateLimit, DefaultMaxRetries, DefaultMaxBatchRetries,
// DefaultMaxFileSize, DefaultEmbeddingDim, DefaultRequestTimeout are the
// spec-named defaults for C1.
const (
	DefaultBatchSize       = 25
	DefaultRateLimit       = 4
	DefaultMaxRetries      = 3
	DefaultMaxBatchRetries = 2
	DefaultMaxFileSize     = 500_000
	DefaultEmbeddingDim    = 4096
	DefaultRequestTimeout  = 120 * time.Second
	DefaultCheckpointPath  = "./ingestion_checkpoint.json"
)

// NewConfig resolves a Config from caller-supplied overrides, filling in
// defaults, then validates it. Missing required credentials for the selected
// backend fail fast naming the missing field.
func NewConfig(overrides Config) (*Config, error) {
	cfg := overrides

	if cfg.VectorBackend == "" {
		cfg.VectorBackend = BackendManaged
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.MaxBatchRetries <= 0 {
		cfg.MaxBatchRetries = DefaultMaxBatchRetries
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.EmbeddingDim <= 0 {
		cfg.EmbeddingDim = DefaultEmbeddingDim
	}
	if cfg.CheckpointPath == "" {
		cfg.CheckpointPath = DefaultCheckpointPath
	}
	if cfg.SkipDirs == nil {
		cfg.SkipDirs = make(map[string]struct{}, len(DefaultSkipDirs))
		for _, d := range DefaultSkipDirs {
			cfg.SkipDirs[d] = struct{}{}
		}
	}
	if cfg.ExtensionLanguage == nil {
		cfg.ExtensionLanguage = DefaultExtensionLanguage
	}
	if cfg.LanguageCollections == nil {
		cfg.LanguageCollections = DefaultLanguageCollections
	}
	if cfg.LanguageOrder == nil {
		cfg.LanguageOrder = DefaultLanguageOrder
	}
	if cfg.DomainPatterns == nil {
		cfg.DomainPatterns = DefaultDomainPatterns
	}
	if cfg.CheckpointFrequency == nil {
		cfg.CheckpointFrequency = map[string]int{}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.ReposBaseDir == "" {
		return fmt.Errorf("config: repos_base_dir is required")
	}

	switch c.VectorBackend {
	case BackendManaged:
		if c.QdrantURL == "" {
			return fmt.Errorf("config: QDRANT_URL is required for the managed vector backend")
		}
		if c.QdrantAPIKey == "" {
			return fmt.Errorf("config: QDRANT_API_KEY is required for the managed vector backend")
		}
	case BackendLocal:
		if c.SurrealURL == "" {
			return fmt.Errorf("config: SURREALDB_URL is required for the local vector backend")
		}
		if c.SurrealNS == "" {
			return fmt.Errorf("config: SURREALDB_NS is required for the local vector backend")
		}
		if c.SurrealDB == "" {
			return fmt.Errorf("config: SURREALDB_DB is required for the local vector backend")
		}
	default:
		return fmt.Errorf("config: unknown vector backend %q (must be %q or %q)", c.VectorBackend, BackendManaged, BackendLocal)
	}

	if c.EmbeddingBaseURL == "" {
		return fmt.Errorf("config: embedding base URL is required")
	}
	if c.EmbeddingModel == "" {
		return fmt.Errorf("config: embedding model is required")
	}

	return nil
}

// CollectionFor resolves the full collection name for a language tag,
// applying the configured prefix: "{prefix}_{suffix}" when a prefix is set,
// else just the suffix. Unknown languages resolve to false.
func (c *Config) CollectionFor(language string) (string, bool) {
	suffix, ok := c.LanguageCollections[language]
	if !ok {
		return "", false
	}
	if c.CollectionPrefix == "" {
		return suffix, true
	}
	return c.CollectionPrefix + "_" + suffix, true
}

// CheckpointFrequencyFor returns the configured files-per-checkpoint cadence
// for a language, defaulting to DefaultCheckpointFrequency.
func (c *Config) CheckpointFrequencyFor(language string) int {
	if n, ok := c.CheckpointFrequency[language]; ok && n > 0 {
		return n
	}
	return DefaultCheckpointFrequency
}

// IsSkipDir reports whether dirName is one of the configured skip directories.
func (c *Config) IsSkipDir(dirName string) bool {
	_, ok := c.SkipDirs[dirName]
	return ok
}
