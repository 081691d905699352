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
	"math"
	"strings"
)

// StorageManager turns (chunk, vector) pairs into vector-backend points and
// upserts them, grouped by target collection.
type StorageManager struct {
	backend VectorBackend
	cfg     *Config
	logger  *slog.Logger
}

// NewStorageManager builds a StorageManager.
func NewStorageManager(backend VectorBackend, cfg *Config, logger *slog.Logger) *StorageManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &StorageManager{backend: backend, cfg: cfg, logger: logger}
}

// StoreResult reports per-collection upsert counts for one call to Store.
type StoreResult struct {
	StoredByCollection map[string]int
	Dropped            []DroppedPoint
}

// DroppedPoint records a chunk excluded from storage by vector validation.
type DroppedPoint struct {
	ChunkHash string
	Reason    string
}

// Store validates each (chunk, vector) pair, builds its point, groups points
// by target collection — primary language collection plus any optional
// enrichment collections — and upserts each group. A validation failure
// drops only that point; it never aborts the call (§4.7).
func (m *StorageManager) Store(ctx context.Context, chunks []Chunk, vectors [][]float32, repo RepoDescriptor) (StoreResult, error) {
	if len(chunks) != len(vectors) {
		return StoreResult{}, fmt.Errorf("storage manager: chunk/vector length mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}

	byCollection := make(map[string][]Point)
	result := StoreResult{StoredByCollection: make(map[string]int)}

	for i, chunk := range chunks {
		vec := vectors[i]
		if err := validateVector(vec, m.cfg.EmbeddingDim); err != nil {
			result.Dropped = append(result.Dropped, DroppedPoint{ChunkHash: chunk.ChunkHash, Reason: err.Error()})
			m.logger.Warn("storage.point.dropped", "chunk_hash", chunk.ChunkHash, "err", err)
			continue
		}

		point := Point{
			ID:      PointID(chunk.ChunkHash),
			Vector:  vec,
			Payload: chunkPayload(chunk),
		}

		for _, collection := range m.targetCollections(chunk, repo) {
			byCollection[collection] = append(byCollection[collection], point)
		}
	}

	for collection, points := range byCollection {
		if err := m.backend.Upsert(ctx, collection, points); err != nil {
			return result, fmt.Errorf("upsert collection %q: %w", collection, err)
		}
		result.StoredByCollection[collection] += len(points)
	}

	return result, nil
}

// targetCollections resolves every collection a chunk should land in: the
// required language collection, plus optional service-type and concern
// collections (additive, never a substitute for the required one).
func (m *StorageManager) targetCollections(chunk Chunk, repo RepoDescriptor) []string {
	var collections []string

	if c, ok := m.cfg.CollectionFor(chunk.Language); ok {
		collections = append(collections, c)
	} else if c, ok := m.cfg.CollectionFor("mixed"); ok {
		collections = append(collections, c)
	}

	if repo.RepoType != "" {
		if c, ok := m.cfg.CollectionFor("service_" + repo.RepoType); ok {
			collections = append(collections, c)
		}
	}

	for _, concern := range concernCollectionsFor(chunk) {
		if c, ok := m.cfg.CollectionFor(concern); ok {
			collections = append(collections, c)
		}
	}

	return collections
}

// concernCollectionsFor implements the optional cross-cutting concern
// routing ported from the Python source's collection_assignment.py:
// path/content heuristics for API contracts, DB schemas, config, and
// deployment manifests.
func concernCollectionsFor(chunk Chunk) []string {
	var concerns []string
	pathLower := strings.ToLower(chunk.FilePath)
	contentLower := strings.ToLower(chunk.Content)

	if strings.Contains(pathLower, "contract") || chunk.ItemType == "interface" {
		concerns = append(concerns, "concern_api_contracts")
	}
	if strings.Contains(pathLower, "schema") || strings.Contains(pathLower, "migration") {
		concerns = append(concerns, "concern_database_schemas")
	}
	if chunk.Language == "yaml" || chunk.Language == "terraform" {
		concerns = append(concerns, "concern_config")
	}
	if strings.Contains(pathLower, "deploy") || strings.Contains(contentLower, "kubernetes") || strings.Contains(contentLower, "dockerfile") {
		concerns = append(concerns, "concern_deployment")
	}

	return concerns
}

// validateVector checks a vector's dimension and numeric well-formedness
// before it is ever handed to a backend.
func validateVector(vec []float32, expectedDim int) error {
	if expectedDim > 0 && len(vec) != expectedDim {
		return fmt.Errorf("wrong dimension: got %d, want %d", len(vec), expectedDim)
	}
	for _, v := range vec {
		f := float64(v)
		if math.IsNaN(f) {
			return fmt.Errorf("vector contains NaN")
		}
		if math.IsInf(f, 0) {
			return fmt.Errorf("vector contains infinity")
		}
	}
	return nil
}

// chunkPayload flattens a Chunk into the backend payload map, merging its
// language-specific Metadata extras alongside the core fields.
func chunkPayload(chunk Chunk) map[string]any {
	payload := map[string]any{
		"content":          chunk.Content,
		"language":         chunk.Language,
		"item_type":        chunk.ItemType,
		"item_name":        chunk.ItemName,
		"file_path":        chunk.FilePath,
		"start_line":       chunk.StartLine,
		"end_line":         chunk.EndLine,
		"repo_id":          chunk.RepoID,
		"repo_component":   chunk.RepoComponent,
		"business_domain":  chunk.BusinessDomain,
		"complexity_score": chunk.ComplexityScore,
		"chunk_hash":       chunk.ChunkHash,
	}
	for k, v := range chunk.Metadata {
		payload[k] = v
	}
	return payload
}
