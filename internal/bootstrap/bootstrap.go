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

package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kraklabs/ingestord/pkg/ingest"
	"github.com/kraklabs/ingestord/pkg/storage"
)

// ProjectConfig holds configuration for initializing a project's on-disk state.
type ProjectConfig struct {
	// ProjectID is the logical project identifier.
	ProjectID string

	// DataDir is the directory used for the checkpoint file and any
	// embedded-mode local store data. Defaults to ~/.cie-ingest/data/<project_id>.
	DataDir string

	// Engine selects the local store's storage engine when running embedded.
	Engine storage.Engine
}

// ProjectInfo holds information about an initialized project.
type ProjectInfo struct {
	ProjectID      string
	DataDir        string
	CheckpointPath string
	Engine         storage.Engine
}

// InitProject prepares the on-disk state for a new ingestion project and,
// given a configured vector backend, warms it up so that collections exist
// before bulk ingestion begins. This function is idempotent: calling it
// multiple times is safe.
//
// The function:
//  1. Creates the data directory if it doesn't exist.
//  2. Resolves the checkpoint file path within it.
//  3. If backend is non-nil, calls Warmup and EnsureCollection for each
//     configured language collection.
func InitProject(ctx context.Context, config ProjectConfig, backend ingest.VectorBackend, collections map[string]int, logger *slog.Logger) (*ProjectInfo, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if config.ProjectID == "" {
		return nil, fmt.Errorf("project_id is required")
	}

	resolved, err := storage.Resolve(storage.Config{
		ProjectID: config.ProjectID,
		DataDir:   config.DataDir,
		Engine:    config.Engine,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}

	logger.Info("bootstrap.project.init.start",
		"project_id", config.ProjectID,
		"data_dir", resolved.DataDir,
		"engine", resolved.Engine,
	)

	if backend != nil {
		if err := backend.Warmup(ctx); err != nil {
			return nil, fmt.Errorf("warm up vector backend: %w", err)
		}
		for collection, dim := range collections {
			if err := backend.EnsureCollection(ctx, collection, dim, ingest.DistanceCosine); err != nil {
				return nil, fmt.Errorf("ensure collection %q: %w", collection, err)
			}
		}
	}

	info := &ProjectInfo{
		ProjectID:      config.ProjectID,
		DataDir:        resolved.DataDir,
		CheckpointPath: filepath.Join(resolved.DataDir, "checkpoint.json"),
		Engine:         resolved.Engine,
	}

	logger.Info("bootstrap.project.init.success",
		"project_id", config.ProjectID,
		"data_dir", info.DataDir,
	)

	return info, nil
}

// ListProjects returns a list of project IDs in the default data directory.
func ListProjects() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}

	dataDir := filepath.Join(homeDir, ".cie-ingest", "data")
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var projects []string
	for _, entry := range entries {
		if entry.IsDir() {
			projects = append(projects, entry.Name())
		}
	}

	return projects, nil
}
