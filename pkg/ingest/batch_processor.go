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
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/kraklabs/ingestord/internal/contract"
)

// BatchStats accumulates the counters a run reports for one repository.
type BatchStats struct {
	FilesProcessed  int64
	ChunksSeen      int64
	ChunksExcluded  int64 // oversize, dropped before embedding
	ChunksStored    int64
	BatchesOK       int64
	BatchesFailed   int64
	ParseErrors     int64
}

// BatchProcessor drives C5 (embedding) and C7 (storage) over a chunk
// stream: accumulate into batches, embed, store, repeat. Implements
// stream_chunks_to_storage (§4.8).
type BatchProcessor struct {
	cfg      *Config
	embedder Embedder
	storage  *StorageManager
	logger   *slog.Logger
	metrics  *Metrics
}

// NewBatchProcessor builds a BatchProcessor.
func NewBatchProcessor(cfg *Config, embedder Embedder, storage *StorageManager, logger *slog.Logger, metrics *Metrics) *BatchProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchProcessor{cfg: cfg, embedder: embedder, storage: storage, logger: logger, metrics: metrics}
}

// batchCheckpointCallback is invoked after each file boundary (finishing a
// batch does not invoke it), so the caller (the pipeline orchestrator) can decide whether
// this is a checkpoint-writing moment per its own cadence logic. language is
// the language of the file that just finished, reported directly from the
// event stream rather than through a variable shared with any other
// goroutine.
type batchCheckpointCallback func(lastFilePath, language string, filesProcessed, chunksProcessed int)

// Run consumes events from a ChunkEvent stream, batches chunks by
// cfg.BatchSize, and drives embedding+storage for each batch with up to
// cfg.RateLimit batches in flight concurrently. Returns aggregated stats.
func (p *BatchProcessor) Run(ctx context.Context, events <-chan ChunkEvent, repo RepoDescriptor, onCheckpoint batchCheckpointCallback) *BatchStats {
	stats := &BatchStats{}
	maxChunkChars := contract.MaxChunkChars()

	var (
		batch          []Chunk
		lastFile       string
		lastLanguage   string
		filesProcessed int
		wg             sync.WaitGroup
		sem            = make(chan struct{}, p.cfg.RateLimit)
	)

	flush := func(b []Chunk) {
		if len(b) == 0 {
			return
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(b []Chunk) {
			defer wg.Done()
			defer func() { <-sem }()
			p.processBatch(ctx, b, repo, stats)
		}(b)
	}

	for event := range events {
		if event.FilePath != lastFile {
			if lastFile != "" {
				filesProcessed++
				if onCheckpoint != nil {
					onCheckpoint(lastFile, lastLanguage, filesProcessed, int(atomic.LoadInt64(&stats.ChunksSeen)))
				}
			}
			lastFile = event.FilePath
		}
		lastLanguage = event.Language

		if event.ParseFail != "" {
			atomic.AddInt64(&stats.ParseErrors, 1)
			continue
		}

		atomic.AddInt64(&stats.ChunksSeen, 1)
		if len(event.Chunk.Content) > maxChunkChars {
			atomic.AddInt64(&stats.ChunksExcluded, 1)
			p.logger.Warn("ingest.chunk.excluded_oversize", "file_path", event.FilePath, "chars", len(event.Chunk.Content), "limit", maxChunkChars)
			if p.metrics != nil {
				p.metrics.RecordChunkExcluded()
			}
			continue
		}

		batch = append(batch, event.Chunk)
		if len(batch) >= p.cfg.BatchSize {
			flush(batch)
			batch = nil
		}
	}
	flush(batch)

	if lastFile != "" {
		filesProcessed++
		if onCheckpoint != nil {
			onCheckpoint(lastFile, lastLanguage, filesProcessed, int(atomic.LoadInt64(&stats.ChunksSeen)))
		}
	}

	wg.Wait()
	stats.FilesProcessed = int64(filesProcessed)
	return stats
}

// processBatch embeds and stores one batch, retrying the whole batch up to
// cfg.MaxBatchRetries rounds on failure. A batch that never succeeds
// contributes zero stored chunks — the critical all-or-nothing invariant.
func (p *BatchProcessor) processBatch(ctx context.Context, chunks []Chunk, repo RepoDescriptor, stats *BatchStats) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	if v := contract.ValidateBatch(texts); !v.OK {
		p.logger.Error("ingest.batch.oversize", "reason", v.Message, "chunks", len(chunks))
		atomic.AddInt64(&stats.BatchesFailed, 1)
		return
	}

	var lastErr error
	for round := 0; round <= p.cfg.MaxBatchRetries; round++ {
		if round > 0 {
			p.logger.Warn("ingest.batch.retry_round", "round", round, "chunks", len(chunks), "prev_err", lastErr)
		}

		vectors, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			lastErr = err
			continue
		}
		if len(vectors) != len(chunks) {
			lastErr = errMismatch
			continue
		}

		result, storeErr := p.storage.Store(ctx, chunks, vectors, repo)
		if storeErr != nil {
			lastErr = storeErr
			continue
		}

		var stored int
		for _, n := range result.StoredByCollection {
			stored += n
		}
		atomic.AddInt64(&stats.ChunksStored, int64(stored))
		atomic.AddInt64(&stats.BatchesOK, 1)
		if p.metrics != nil {
			p.metrics.RecordBatch(len(chunks), stored)
		}
		return
	}

	p.logger.Error("ingest.batch.failed", "chunks", len(chunks), "err", lastErr)
	atomic.AddInt64(&stats.BatchesFailed, 1)
	if p.metrics != nil {
		p.metrics.RecordBatchFailure()
	}
}

var errMismatch = &batchError{"embedding vector count does not match chunk count"}

type batchError struct{ msg string }

func (e *batchError) Error() string { return e.msg }
