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

// Package storage resolves on-disk locations and engine modes for the
// local/self-hosted vector backend variant.
//
// The local backend (pkg/ingest's SurrealDB-like client) always talks HTTP,
// but when it is pointed at an embedded SurrealDB process the operator still
// picks a storage engine for that process: in-memory for tests, a single
// file for small projects, or an embedded RocksDB tree for anything larger.
// This package only resolves the directory/engine pair; it holds no network
// code itself.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// Engine identifies the storage engine backing a local vector store process.
type Engine string

const (
	// EngineMemory keeps all data in-process; lost on restart. Used for tests.
	EngineMemory Engine = "mem"

	// EngineFile persists to a single file via the store's embedded file engine.
	EngineFile Engine = "file"

	// EngineRocksDB persists via an embedded RocksDB tree; the default for
	// anything meant to survive across runs.
	EngineRocksDB Engine = "rocksdb"
)

// Config resolves the data directory and engine for a project's local store.
type Config struct {
	// ProjectID namespaces the data directory.
	ProjectID string

	// DataDir is the directory the engine should use. Defaults to
	// ~/.cie-ingest/data/<project_id> when empty.
	DataDir string

	// Engine selects the storage engine. Defaults to EngineRocksDB.
	Engine Engine
}

// Resolve fills in defaults and ensures the data directory exists.
func Resolve(config Config) (Config, error) {
	if config.Engine == "" {
		config.Engine = EngineRocksDB
	}
	if config.DataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return config, fmt.Errorf("get home dir: %w", err)
		}
		config.DataDir = filepath.Join(homeDir, ".cie-ingest", "data")
		if config.ProjectID != "" {
			config.DataDir = filepath.Join(config.DataDir, config.ProjectID)
		}
	}

	if config.Engine != EngineMemory {
		if err := os.MkdirAll(config.DataDir, 0755); err != nil {
			return config, fmt.Errorf("create data dir: %w", err)
		}
	}

	return config, nil
}

// EngineURI builds the embedded-engine connection string a local SurrealDB-like
// process expects for its own storage backend (as opposed to the HTTP address
// clients use to reach it), e.g. "rocksdb:/home/user/.cie-ingest/data/proj".
func EngineURI(config Config) string {
	if config.Engine == EngineMemory {
		return "memory"
	}
	return fmt.Sprintf("%s:%s", config.Engine, config.DataDir)
}
