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
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/kraklabs/ingestord/internal/errors"
	"github.com/kraklabs/ingestord/internal/ui"
	"github.com/kraklabs/ingestord/pkg/ingest"
)

// runIndex executes the 'index' command: walk, parse, embed, and store the
// single repository that project.yaml's repos_dir points at.
//
// Flags:
//   - --resume: resume from the last checkpoint instead of starting fresh
//   - --debug: enable debug logging
//   - --metrics-addr: HTTP listen address for Prometheus metrics
func runIndex(args []string, configPath string) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	resume := fs.Bool("resume", false, "Resume from the last checkpoint")
	debug := fs.Bool("debug", false, "Enable debug logging")
	metricsAddr := fs.String("metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cie-ingest index [options]

Ingests the repository configured in .cie-ingest/project.yaml.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		errors.FatalError(errors.NewConfigError("cannot load project configuration", err.Error(), "run 'cie-ingest init' first", err), false)
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	metrics := ingest.NewMetrics()
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: *metricsAddr, Handler: mux}
			logger.Info("metrics.http.start", "addr", *metricsAddr, "path", "/metrics")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics.http.error", "err", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("shutdown.signal", "signal", sig.String())
		cancel()
	}()

	cwd, err := os.Getwd()
	if err != nil {
		errors.FatalError(errors.NewInternalError("cannot determine current directory", err.Error(), "run from a valid working directory", err), false)
	}

	checkpointPath := filepath.Join(ConfigDir(cwd), "checkpoint.json")
	ingestCfg, err := cfg.ToIngestConfig(checkpointPath)
	if err != nil {
		errors.FatalError(errors.NewConfigError("invalid configuration", err.Error(), "check .cie-ingest/project.yaml", err), false)
	}

	embedder := ingest.NewOpenAICompatibleEmbedder(ingestCfg, logger, metrics)
	backend := ingest.NewVectorBackend(ingestCfg)
	registry := ingest.NewDefaultRegistry()
	pipeline := ingest.NewPipeline(ingestCfg, registry, embedder, backend, logger, metrics)

	repoRoot := cfg.ReposDir
	if !filepath.IsAbs(repoRoot) {
		repoRoot = filepath.Join(cwd, repoRoot)
	}
	repos := []ingest.RepoDescriptor{{RepoID: cfg.ProjectID, Path: repoRoot, RepoType: "backend"}}

	logger.Info("ingest.starting", "project_id", cfg.ProjectID, "repo_path", repoRoot, "resume", *resume)

	stats, err := pipeline.Ingest(ctx, repos, *resume)
	if err != nil {
		errors.FatalError(errors.NewNetworkError("ingestion failed", err.Error(), "check embedding/vector backend connectivity and retry with --resume", err), false)
	}

	printStats(stats)
}

func printStats(stats *ingest.Stats) {
	fmt.Println()
	ui.Header("Ingestion Complete")
	for _, r := range stats.Repos {
		fmt.Printf("  %s: %s\n", r.RepoID, r.State)
		if r.Batch != nil {
			fmt.Printf("    files=%d chunks_stored=%d batches_ok=%d batches_failed=%d parse_errors=%d\n",
				r.Batch.FilesProcessed, r.Batch.ChunksStored, r.Batch.BatchesOK, r.Batch.BatchesFailed, r.Batch.ParseErrors)
		}
		if r.Err != "" {
			ui.Errorf("    error: %s", r.Err)
		}
	}
	fmt.Printf("\nTotal duration: %s\n", stats.Duration)
}
