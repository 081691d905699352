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

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/ingestord/internal/bootstrap"
	"github.com/kraklabs/ingestord/internal/errors"
	"github.com/kraklabs/ingestord/internal/output"
	"github.com/kraklabs/ingestord/internal/ui"
	"github.com/kraklabs/ingestord/pkg/ingest"
)

// statusResult is the --json shape for the status command.
type statusResult struct {
	ProjectID      string   `json:"project_id"`
	CheckpointPath string   `json:"checkpoint_path"`
	HasCheckpoint  bool     `json:"has_checkpoint"`
	CompletedRepos int      `json:"completed_repos"`
	OtherProjects  []string `json:"other_projects,omitempty"`
}

func runStatus(args []string, configPath string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	jsonOut := fs.Bool("json", false, "Output as JSON")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cie-ingest status [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		errors.FatalError(errors.NewConfigError("cannot load project configuration", err.Error(), "run 'cie-ingest init' first", err), *jsonOut)
	}

	cwd, err := os.Getwd()
	if err != nil {
		errors.FatalError(errors.NewInternalError("cannot determine current directory", err.Error(), "run from a valid working directory", err), *jsonOut)
	}

	checkpointPath := filepath.Join(ConfigDir(cwd), "checkpoint.json")
	store := ingest.NewCheckpointStore(checkpointPath)
	cp, err := store.Load()
	if err != nil {
		errors.FatalError(errors.NewInternalError("cannot read checkpoint", err.Error(), "the checkpoint file may be corrupted; remove it to start over", err), *jsonOut)
	}

	result := statusResult{ProjectID: cfg.ProjectID, CheckpointPath: checkpointPath}
	if cp != nil {
		result.HasCheckpoint = true
		result.CompletedRepos = len(cp.CompletedRepos)
	}
	if others, err := bootstrap.ListProjects(); err == nil {
		result.OtherProjects = others
	}

	if *jsonOut {
		if err := output.JSON(result); err != nil {
			errors.FatalError(err, true)
		}
		return
	}

	ui.Header("Project Status")
	fmt.Printf("%s %s\n", ui.Label("Project ID:"), result.ProjectID)
	fmt.Printf("%s %s\n", ui.Label("Checkpoint:"), ui.DimText(result.CheckpointPath))
	if result.HasCheckpoint {
		fmt.Printf("%s %s\n", ui.Label("Completed repos:"), ui.CountText(result.CompletedRepos))
	} else {
		fmt.Println("No checkpoint found — nothing has been ingested yet.")
	}
	if len(result.OtherProjects) > 0 {
		fmt.Println()
		ui.SubHeader("Other known projects:")
		for _, p := range result.OtherProjects {
			fmt.Printf("  - %s\n", p)
		}
	}
}
