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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseOverrides() Config {
	return Config{
		ReposBaseDir:     "/repos",
		VectorBackend:    BackendLocal,
		SurrealURL:       "http://localhost:8000",
		SurrealNS:        "ns",
		SurrealDB:        "db",
		EmbeddingBaseURL: "http://localhost:11434/v1",
		EmbeddingModel:   "nomic-embed-text",
	}
}

func TestNewConfigAppliesDefaults(t *testing.T) {
	cfg, err := NewConfig(baseOverrides())
	require.NoError(t, err)

	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, DefaultRateLimit, cfg.RateLimit)
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, DefaultMaxBatchRetries, cfg.MaxBatchRetries)
	assert.Equal(t, int64(DefaultMaxFileSize), cfg.MaxFileSize)
	assert.Equal(t, DefaultEmbeddingDim, cfg.EmbeddingDim)
	assert.Equal(t, DefaultCheckpointPath, cfg.CheckpointPath)
	assert.True(t, cfg.IsSkipDir("node_modules"))
}

func TestNewConfigRejectsMissingReposBaseDir(t *testing.T) {
	overrides := baseOverrides()
	overrides.ReposBaseDir = ""
	_, err := NewConfig(overrides)
	assert.Error(t, err)
}

func TestNewConfigManagedBackendRequiresQdrantCredentials(t *testing.T) {
	overrides := baseOverrides()
	overrides.VectorBackend = BackendManaged
	overrides.SurrealURL, overrides.SurrealNS, overrides.SurrealDB = "", "", ""
	_, err := NewConfig(overrides)
	assert.Error(t, err)

	overrides.QdrantURL = "http://localhost:6333"
	overrides.QdrantAPIKey = "key"
	_, err = NewConfig(overrides)
	assert.NoError(t, err)
}

func TestNewConfigLocalBackendRequiresSurrealFields(t *testing.T) {
	overrides := baseOverrides()
	overrides.SurrealNS = ""
	_, err := NewConfig(overrides)
	assert.Error(t, err)
}

func TestNewConfigRejectsUnknownBackend(t *testing.T) {
	overrides := baseOverrides()
	overrides.VectorBackend = "bogus"
	_, err := NewConfig(overrides)
	assert.Error(t, err)
}

func TestCollectionForAppliesPrefix(t *testing.T) {
	cfg, err := NewConfig(baseOverrides())
	require.NoError(t, err)

	name, ok := cfg.CollectionFor("rust")
	require.True(t, ok)
	assert.Equal(t, "rust", name)

	cfg.CollectionPrefix = "proj"
	name, ok = cfg.CollectionFor("rust")
	require.True(t, ok)
	assert.Equal(t, "proj_rust", name)

	_, ok = cfg.CollectionFor("not-a-real-language")
	assert.False(t, ok)
}

func TestCheckpointFrequencyForDefaultsWhenUnset(t *testing.T) {
	cfg, err := NewConfig(baseOverrides())
	require.NoError(t, err)
	assert.Equal(t, DefaultCheckpointFrequency, cfg.CheckpointFrequencyFor("rust"))

	cfg.CheckpointFrequency = map[string]int{"rust": 5}
	assert.Equal(t, 5, cfg.CheckpointFrequencyFor("rust"))
	assert.Equal(t, DefaultCheckpointFrequency, cfg.CheckpointFrequencyFor("typescript"))
}

func TestNewConfigDefaultsLanguageOrder(t *testing.T) {
	cfg, err := NewConfig(baseOverrides())
	require.NoError(t, err)
	assert.Equal(t, DefaultLanguageOrder, cfg.LanguageOrder)
}
