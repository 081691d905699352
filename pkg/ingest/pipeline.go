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
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RepoState is a repository's position in the per-repository state machine:
// PENDING -> RUNNING -> (COMPLETED | FAILED).
type RepoState string

const (
	RepoPending   RepoState = "pending"
	RepoRunning   RepoState = "running"
	RepoCompleted RepoState = "completed"
	RepoFailed    RepoState = "failed"
)

// RepoStats is one repository's contribution to a run's Stats.
type RepoStats struct {
	RepoID string
	State  RepoState
	Batch  *BatchStats
	Err    string
}

// Stats is the aggregate result of one Pipeline.Ingest call.
type Stats struct {
	Repos    []RepoStats
	Duration time.Duration
}

// Pipeline is the C9 orchestrator: it is the only component aware of
// repositories as a sequence. Every other component operates per chunk or
// per batch.
type Pipeline struct {
	cfg        *Config
	registry   *ParserRegistry
	embedder   Embedder
	backend    VectorBackend
	storage    *StorageManager
	checkpoint *CheckpointStore
	metrics    *Metrics
	logger     *slog.Logger
}

// NewPipeline wires the full C1-C8 stack into an orchestrator.
func NewPipeline(cfg *Config, registry *ParserRegistry, embedder Embedder, backend VectorBackend, logger *slog.Logger, metrics *Metrics) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Pipeline{
		cfg:        cfg,
		registry:   registry,
		embedder:   embedder,
		backend:    backend,
		storage:    NewStorageManager(backend, cfg, logger),
		checkpoint: NewCheckpointStore(cfg.CheckpointPath),
		metrics:    metrics,
		logger:     logger,
	}
}

// Ingest implements §4.9's ingest(repositories, resume) -> stats.
func (p *Pipeline) Ingest(ctx context.Context, repos []RepoDescriptor, resume bool) (*Stats, error) {
	start := time.Now()

	if err := p.cfg.validate(); err != nil {
		return nil, fmt.Errorf("pipeline: invalid config: %w", err)
	}

	if err := p.embedder.Warmup(ctx); err != nil {
		return nil, fmt.Errorf("pipeline: embedding warmup failed: %w", err)
	}
	if err := p.backend.Warmup(ctx); err != nil {
		return nil, fmt.Errorf("pipeline: vector backend warmup failed: %w", err)
	}
	for _, lang := range p.cfg.LanguageOrder {
		collection, ok := p.cfg.CollectionFor(lang)
		if !ok {
			continue
		}
		if err := p.backend.EnsureCollection(ctx, collection, p.cfg.EmbeddingDim, DistanceCosine); err != nil {
			return nil, fmt.Errorf("pipeline: ensure collection %q: %w", collection, err)
		}
	}

	var cp *Checkpoint
	if resume {
		loaded, err := p.checkpoint.Load()
		if err != nil {
			return nil, fmt.Errorf("pipeline: load checkpoint: %w", err)
		}
		cp = loaded
	}

	stats := &Stats{}

	for _, repo := range repos {
		if cp != nil && cp.IsRepoCompleted(repo.RepoID) {
			p.logger.Info("ingest.repo.skip_completed", "repo_id", repo.RepoID)
			stats.Repos = append(stats.Repos, RepoStats{RepoID: repo.RepoID, State: RepoCompleted})
			continue
		}

		resumeLanguage, resumeAfter := "", ""
		if cp != nil && cp.RepoID == repo.RepoID {
			resumeLanguage = cp.Language
			resumeAfter = cp.LastProcessedFile
		}

		repoStats, err := p.ingestOne(ctx, repo, resumeLanguage, resumeAfter, cp)
		if err != nil {
			p.logger.Error("ingest.repo.failed", "repo_id", repo.RepoID, "err", err)
			stats.Repos = append(stats.Repos, RepoStats{RepoID: repo.RepoID, State: RepoFailed, Batch: repoStats, Err: err.Error()})
			continue
		}

		stats.Repos = append(stats.Repos, RepoStats{RepoID: repo.RepoID, State: RepoCompleted, Batch: repoStats})

		completed, loadErr := p.checkpoint.Load()
		if loadErr != nil {
			completed = &Checkpoint{}
		}
		if completed == nil {
			completed = &Checkpoint{}
		}
		completed.CompletedRepos = append(completed.CompletedRepos, repo.RepoID)
		if err := p.checkpoint.Save(completed); err != nil {
			p.logger.Warn("ingest.checkpoint.save_error", "repo_id", repo.RepoID, "err", err)
		}
		cp = completed
	}

	if allRepoStatesTerminal(stats.Repos, RepoCompleted) {
		if err := p.checkpoint.Clear(); err != nil {
			p.logger.Warn("ingest.checkpoint.clear_error", "err", err)
		}
	}

	stats.Duration = time.Since(start)
	p.metrics.ObserveTotalDuration(stats.Duration.Seconds())
	return stats, nil
}

// ingestOne drives one repository through C4 (StreamChunks) and C8
// (BatchProcessor.Run), writing a checkpoint once every
// CheckpointFrequencyFor(language) file boundaries.
func (p *Pipeline) ingestOne(ctx context.Context, repo RepoDescriptor, resumeLanguage, resumeAfter string, priorCheckpoint *Checkpoint) (*BatchStats, error) {
	p.logger.Info("ingest.repo.start", "repo_id", repo.RepoID, "path", repo.Path)

	events, err := StreamChunks(ctx, repo.Path, repo.RepoID, p.cfg, p.registry, resumeLanguage, resumeAfter, p.logger)
	if err != nil {
		return nil, fmt.Errorf("stream chunks: %w", err)
	}

	processor := NewBatchProcessor(p.cfg, p.embedder, p.storage, p.logger, p.metrics)

	filesSinceCheckpoint := 0

	onCheckpoint := func(lastFilePath, language string, filesProcessed, chunksProcessed int) {
		filesSinceCheckpoint++
		freq := p.cfg.CheckpointFrequencyFor(language)
		if filesSinceCheckpoint < freq {
			return
		}
		filesSinceCheckpoint = 0

		completed := priorCheckpoint.cloneCompletedRepos()
		cp := &Checkpoint{
			RepoID:            repo.RepoID,
			Language:          language,
			LastProcessedFile: lastFilePath,
			FilesProcessed:    filesProcessed,
			ChunksProcessed:   chunksProcessed,
			CompletedRepos:    completed,
		}
		if err := p.checkpoint.Save(cp); err != nil {
			p.logger.Warn("ingest.checkpoint.save_error", "repo_id", repo.RepoID, "err", err)
		}
	}

	stats := processor.Run(ctx, events, repo, onCheckpoint)
	p.logger.Info("ingest.repo.done",
		"repo_id", repo.RepoID,
		"files_processed", stats.FilesProcessed,
		"chunks_stored", stats.ChunksStored,
		"batches_ok", stats.BatchesOK,
		"batches_failed", stats.BatchesFailed,
	)
	return stats, nil
}

func (cp *Checkpoint) cloneCompletedRepos() []string {
	if cp == nil || len(cp.CompletedRepos) == 0 {
		return nil
	}
	out := make([]string, len(cp.CompletedRepos))
	copy(out, cp.CompletedRepos)
	return out
}

func allRepoStatesTerminal(repos []RepoStats, want RepoState) bool {
	if len(repos) == 0 {
		return false
	}
	for _, r := range repos {
		if r.State != want {
			return false
		}
	}
	return true
}
