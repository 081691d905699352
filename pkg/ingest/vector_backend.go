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

	"github.com/google/uuid"
)

// Distance names a vector similarity metric a collection is created with.
type Distance string

const (
	DistanceCosine    Distance = "cosine"
	DistanceDot       Distance = "dot"
	DistanceEuclidean Distance = "euclidean"
)

// Point is one vector + payload to upsert.
type Point struct {
	ID      uuid.UUID
	Vector  []float32
	Payload map[string]any
}

// ScoredPoint is one search result.
type ScoredPoint struct {
	ID      uuid.UUID
	Score   float64
	Payload map[string]any
}

// CollectionStats summarizes one collection.
type CollectionStats struct {
	Name        string
	PointCount  int64
	VectorDim   int
	DistanceFn  Distance
}

// VectorBackend is the C6 capability every concrete store (managed/Qdrant-like,
// local/SurrealDB-like) implements identically, so the rest of the pipeline
// never branches on which backend is configured.
type VectorBackend interface {
	// Warmup verifies connectivity/auth before bulk work begins.
	Warmup(ctx context.Context) error

	// EnsureCollection creates the named collection with the given vector
	// dimension and distance metric if it doesn't already exist. Idempotent.
	EnsureCollection(ctx context.Context, name string, dim int, distance Distance) error

	// Upsert writes points to a collection, overwriting any existing point
	// with the same ID. All-or-nothing: a partial failure returns an error
	// and the caller must assume none of the batch was durably written.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search returns the topK nearest points to query in collection.
	Search(ctx context.Context, collection string, query []float32, topK int) ([]ScoredPoint, error)

	// CollectionStats reports point count and configuration for one collection.
	CollectionStats(ctx context.Context, collection string) (CollectionStats, error)

	// ListCollections enumerates every collection the backend currently holds.
	ListCollections(ctx context.Context) ([]string, error)
}

// NewVectorBackend builds the concrete VectorBackend cfg.VectorBackend selects.
func NewVectorBackend(cfg *Config) VectorBackend {
	if cfg.VectorBackend == BackendLocal {
		return NewLocalVectorBackend(cfg)
	}
	return NewManagedVectorBackend(cfg)
}
