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
	"context"
	"fmt"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/ingestord/internal/bootstrap"
	"github.com/kraklabs/ingestord/internal/errors"
	"github.com/kraklabs/ingestord/internal/ui"
	"github.com/kraklabs/ingestord/pkg/storage"
)

// initFlags holds parsed flags for the init command.
type initFlags struct {
	force            bool
	projectID        string
	vectorBackend    string
	qdrantURL        string
	surrealURL       string
	embeddingBaseURL string
	embeddingModel   string
	engine           string
}

func runInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	var f initFlags
	fs.BoolVar(&f.force, "force", false, "Overwrite existing configuration")
	fs.StringVar(&f.projectID, "project-id", "", "Project identifier (default: directory name)")
	fs.StringVar(&f.vectorBackend, "vector-backend", "local", "Vector backend: managed (Qdrant-like) or local (SurrealDB-like)")
	fs.StringVar(&f.qdrantURL, "qdrant-url", "", "Managed backend URL")
	fs.StringVar(&f.surrealURL, "surreal-url", "", "Local backend URL")
	fs.StringVar(&f.embeddingBaseURL, "embedding-url", "", "Embedding endpoint base URL")
	fs.StringVar(&f.embeddingModel, "embedding-model", "", "Embedding model name")
	fs.StringVar(&f.engine, "engine", string(storage.EngineRocksDB), "Local-store engine when using an embedded backend: mem, file, or rocksdb")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cie-ingest init [options]

Creates .cie-ingest/project.yaml configuration file.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cwd, err := os.Getwd()
	if err != nil {
		errors.FatalError(errors.NewInternalError("cannot determine current directory", err.Error(), "run from a valid working directory", err), false)
	}

	configPath := ConfigPath(cwd)
	if _, err := os.Stat(configPath); err == nil && !f.force {
		errors.FatalError(errors.NewInputError(
			fmt.Sprintf("%s already exists", configPath),
			"init refuses to overwrite an existing project without --force",
			"re-run with --force to overwrite",
		), false)
	}

	projectID := f.projectID
	if projectID == "" {
		projectID = filepath.Base(cwd)
	}

	cfg := DefaultConfig(projectID)
	if f.vectorBackend != "" {
		cfg.VectorBackend.Kind = f.vectorBackend
	}
	if f.qdrantURL != "" {
		cfg.VectorBackend.QdrantURL = f.qdrantURL
	}
	if f.surrealURL != "" {
		cfg.VectorBackend.SurrealURL = f.surrealURL
	}
	if f.embeddingBaseURL != "" {
		cfg.Embedding.BaseURL = f.embeddingBaseURL
	}
	if f.embeddingModel != "" {
		cfg.Embedding.Model = f.embeddingModel
	}

	if err := os.MkdirAll(ConfigDir(cwd), 0750); err != nil {
		errors.FatalError(errors.NewPermissionError("cannot create .cie-ingest directory", err.Error(), "check directory permissions", err), false)
	}
	if err := SaveConfig(cfg, configPath); err != nil {
		errors.FatalError(errors.NewInternalError("cannot save configuration", err.Error(), "check disk space and permissions", err), false)
	}

	info, err := bootstrap.InitProject(context.Background(), bootstrap.ProjectConfig{
		ProjectID: projectID,
		Engine:    storage.Engine(f.engine),
	}, nil, nil, nil)
	if err != nil {
		errors.FatalError(errors.NewInternalError("cannot initialize project data directory", err.Error(), "check disk space and permissions", err), false)
	}

	ui.Success(fmt.Sprintf("Created %s", configPath))
	fmt.Printf("Data directory: %s (engine: %s)\n", info.DataDir, info.Engine)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Review and edit .cie-ingest/project.yaml if needed")
	fmt.Println("  2. Run: cie-ingest index")
}
