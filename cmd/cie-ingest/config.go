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

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/ingestord/pkg/ingest"
)

// Config is the on-disk project.yaml shape: everything a human would want to
// hand-edit, a thin layer over ingest.Config's machine defaults.
type Config struct {
	ProjectID string `yaml:"project_id"`
	ReposDir  string `yaml:"repos_dir"`

	VectorBackend struct {
		Kind       string `yaml:"kind"` // managed|local
		QdrantURL  string `yaml:"qdrant_url,omitempty"`
		SurrealURL string `yaml:"surreal_url,omitempty"`
		SurrealNS  string `yaml:"surreal_ns,omitempty"`
		SurrealDB  string `yaml:"surreal_db,omitempty"`
	} `yaml:"vector_backend"`

	Embedding struct {
		BaseURL string `yaml:"base_url"`
		Model   string `yaml:"model"`
		Dim     int    `yaml:"dim"`
	} `yaml:"embedding"`

	Indexing struct {
		BatchSize   int      `yaml:"batch_size"`
		RateLimit   int      `yaml:"rate_limit"`
		MaxFileSize int64    `yaml:"max_file_size"`
		Exclude     []string `yaml:"exclude,omitempty"`
	} `yaml:"indexing"`
}

// DefaultConfig returns a Config populated with the spec's defaults for a
// freshly initialized project.
func DefaultConfig(projectID string) *Config {
	cfg := &Config{ProjectID: projectID, ReposDir: "."}
	cfg.VectorBackend.Kind = "local"
	cfg.VectorBackend.SurrealURL = "http://localhost:8000"
	cfg.VectorBackend.SurrealNS = "ingestord"
	cfg.VectorBackend.SurrealDB = projectID
	cfg.Embedding.BaseURL = "http://localhost:11434/v1"
	cfg.Embedding.Model = "nomic-embed-text"
	cfg.Embedding.Dim = ingest.DefaultEmbeddingDim
	cfg.Indexing.BatchSize = ingest.DefaultBatchSize
	cfg.Indexing.RateLimit = ingest.DefaultRateLimit
	cfg.Indexing.MaxFileSize = ingest.DefaultMaxFileSize
	return cfg
}

// ConfigDir returns the .cie-ingest directory under repoRoot.
func ConfigDir(repoRoot string) string {
	return filepath.Join(repoRoot, ".cie-ingest")
}

// ConfigPath returns the project.yaml path under repoRoot.
func ConfigPath(repoRoot string) string {
	return filepath.Join(ConfigDir(repoRoot), "project.yaml")
}

// LoadConfig reads and parses project.yaml. If path is empty, it resolves
// to ConfigPath(cwd).
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get current directory: %w", err)
		}
		path = ConfigPath(cwd)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w (run 'cie-ingest init' first)", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// SaveConfig writes cfg to path as YAML.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ToIngestConfig resolves the project.yaml shape into an ingest.Config,
// applying env-var overrides for secrets the yaml file should never hold.
func (c *Config) ToIngestConfig(checkpointPath string) (*ingest.Config, error) {
	overrides := ingest.Config{
		ReposBaseDir:     c.ReposDir,
		EmbeddingBaseURL: c.Embedding.BaseURL,
		EmbeddingAPIKey:  os.Getenv("EMBEDDING_API_KEY"),
		EmbeddingModel:   c.Embedding.Model,
		EmbeddingDim:     c.Embedding.Dim,
		BatchSize:        c.Indexing.BatchSize,
		RateLimit:        c.Indexing.RateLimit,
		MaxFileSize:      c.Indexing.MaxFileSize,
		CheckpointPath:   checkpointPath,
	}

	switch c.VectorBackend.Kind {
	case "managed":
		overrides.VectorBackend = ingest.BackendManaged
		overrides.QdrantURL = c.VectorBackend.QdrantURL
		overrides.QdrantAPIKey = os.Getenv("QDRANT_API_KEY")
	default:
		overrides.VectorBackend = ingest.BackendLocal
		overrides.SurrealURL = c.VectorBackend.SurrealURL
		overrides.SurrealNS = c.VectorBackend.SurrealNS
		overrides.SurrealDB = c.VectorBackend.SurrealDB
		overrides.SurrealUser = os.Getenv("SURREALDB_USER")
		overrides.SurrealPass = os.Getenv("SURREALDB_PASS")
	}

	if len(c.Indexing.Exclude) > 0 {
		overrides.SkipDirs = make(map[string]struct{}, len(ingest.DefaultSkipDirs)+len(c.Indexing.Exclude))
		for _, d := range ingest.DefaultSkipDirs {
			overrides.SkipDirs[d] = struct{}{}
		}
		for _, d := range c.Indexing.Exclude {
			overrides.SkipDirs[d] = struct{}{}
		}
	}

	return ingest.NewConfig(overrides)
}
