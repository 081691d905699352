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

// Package bootstrap handles ingestion project initialization and setup.
//
// This internal package resolves a project's on-disk layout (checkpoint
// file location, local-store data directory) and, given a configured
// vector backend, warms it up and ensures its collections exist before
// bulk ingestion begins.
//
// # Initialization Workflow
//
//	info, err := bootstrap.InitProject(ctx, bootstrap.ProjectConfig{
//	    ProjectID: "myproject",
//	}, backend, collections, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Checkpoint at: %s\n", info.CheckpointPath)
//
// # Idempotency
//
// InitProject is idempotent: calling it multiple times on the same project
// is safe. EnsureCollection on the vector backend is itself idempotent
// per its contract (create if missing, validate if present).
//
// # Project Discovery
//
//	projects, err := bootstrap.ListProjects()
//	for _, id := range projects {
//	    fmt.Println(id)
//	}
package bootstrap
