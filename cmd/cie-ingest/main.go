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

// Package main implements the cie-ingest CLI for walking, parsing, embedding,
// and storing a repository's source into a vector backend.
//
// Usage:
//
//	cie-ingest init [options]    Create .cie-ingest/project.yaml configuration
//	cie-ingest index [options]   Ingest the configured repository
//	cie-ingest status            Show the last checkpoint and registered projects
package main

import (
	"flag"
	"fmt"
	"os"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version and exit")
		configPath  = flag.String("config", "", "Path to .cie-ingest/project.yaml (default: ./.cie-ingest/project.yaml)")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `cie-ingest - repository ingestion engine

Walks a repository tree, parses files into syntactically coherent chunks,
embeds them, and stores the resulting vectors in a pluggable backend.

Usage:
  cie-ingest <command> [options]

Commands:
  init      Create .cie-ingest/project.yaml configuration
  index     Ingest the configured repository
  status    Show the last checkpoint and registered projects

Global Options:
  --config   Path to .cie-ingest/project.yaml
  --version  Show version and exit

Examples:
  cie-ingest init                   Create configuration from flags
  cie-ingest index                  Ingest the current repository
  cie-ingest index --resume         Resume from the last checkpoint
  cie-ingest status                 Show registered projects

For detailed command help: cie-ingest <command> --help

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("cie-ingest version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "init":
		runInit(cmdArgs)
	case "index":
		runIndex(cmdArgs, *configPath)
	case "status":
		runStatus(cmdArgs, *configPath)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
