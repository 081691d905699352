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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Checkpoint is the durable record of ingestion progress used to resume a
// killed or cancelled run.
type Checkpoint struct {
	RepoID            string `json:"repo_id"`
	Language          string `json:"language"`
	LastProcessedFile string `json:"last_processed_file"`
	FilesProcessed    int    `json:"files_processed"`
	ChunksProcessed   int    `json:"chunks_processed"`
	Timestamp         string `json:"timestamp"`

	// CompletedRepos lists repo_ids that reached COMPLETED in this or a
	// prior run; the orchestrator skips them entirely on resume.
	CompletedRepos []string `json:"completed_repos,omitempty"`
}

// CheckpointStore persists and restores a single Checkpoint to a durable
// file. At most one writer at a time; the pipeline serializes saves through
// this store's mutex.
type CheckpointStore struct {
	path string
	mu   sync.Mutex
}

// NewCheckpointStore creates a store backed by the given file path.
func NewCheckpointStore(path string) *CheckpointStore {
	return &CheckpointStore{path: path}
}

// Load returns the last persisted checkpoint, or nil if none exists.
func (s *CheckpointStore) Load() (*Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("parse checkpoint: %w", err)
	}
	return &cp, nil
}

// Save writes the checkpoint atomically: temp file + rename.
func (s *CheckpointStore) Save(cp *Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp.Timestamp = time.Now().UTC().Format(time.RFC3339)

	dir := filepath.Dir(s.path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write checkpoint temp: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}

// Clear removes the checkpoint file. Called on clean completion of all
// repositories.
func (s *CheckpointStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove checkpoint: %w", err)
	}
	return nil
}

// CheckpointInfo is a lightweight summary for reporting.
type CheckpointInfo struct {
	Exists          bool
	RepoID          string
	Language        string
	FilesProcessed  int
	ChunksProcessed int
}

// GetInfo reads the checkpoint and returns a reporting summary without
// exposing the full record.
func (s *CheckpointStore) GetInfo() (CheckpointInfo, error) {
	cp, err := s.Load()
	if err != nil {
		return CheckpointInfo{}, err
	}
	if cp == nil {
		return CheckpointInfo{}, nil
	}
	return CheckpointInfo{
		Exists:          true,
		RepoID:          cp.RepoID,
		Language:        cp.Language,
		FilesProcessed:  cp.FilesProcessed,
		ChunksProcessed: cp.ChunksProcessed,
	}, nil
}

// IsRepoCompleted reports whether repoID appears in the checkpoint's
// completed-repos list.
func (cp *Checkpoint) IsRepoCompleted(repoID string) bool {
	if cp == nil {
		return false
	}
	for _, id := range cp.CompletedRepos {
		if id == repoID {
			return true
		}
	}
	return false
}
