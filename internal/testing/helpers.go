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

package testing

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/kraklabs/ingestord/pkg/ingest"
)

// MemoryVectorBackend is an in-process ingest.VectorBackend for tests. It
// holds collections in memory and never touches the network, so pipeline
// and storage-manager tests can exercise the full C6 contract without a
// live Qdrant/SurrealDB instance.
type MemoryVectorBackend struct {
	mu          sync.Mutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	dim      int
	distance ingest.Distance
	points   map[uuid.UUID]ingest.Point
}

// NewMemoryVectorBackend builds an empty MemoryVectorBackend.
func NewMemoryVectorBackend() *MemoryVectorBackend {
	return &MemoryVectorBackend{collections: make(map[string]*memoryCollection)}
}

func (b *MemoryVectorBackend) Warmup(ctx context.Context) error { return nil }

func (b *MemoryVectorBackend) EnsureCollection(ctx context.Context, name string, dim int, distance ingest.Distance) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.collections[name]; ok {
		return nil
	}
	b.collections[name] = &memoryCollection{dim: dim, distance: distance, points: make(map[uuid.UUID]ingest.Point)}
	return nil
}

func (b *MemoryVectorBackend) Upsert(ctx context.Context, collection string, points []ingest.Point) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.collections[collection]
	if !ok {
		c = &memoryCollection{points: make(map[uuid.UUID]ingest.Point)}
		b.collections[collection] = c
	}
	for _, p := range points {
		c.points[p.ID] = p
	}
	return nil
}

func (b *MemoryVectorBackend) Search(ctx context.Context, collection string, query []float32, topK int) ([]ingest.ScoredPoint, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.collections[collection]
	if !ok {
		return nil, fmt.Errorf("memory backend: unknown collection %q", collection)
	}

	hits := make([]ingest.ScoredPoint, 0, len(c.points))
	for _, p := range c.points {
		hits = append(hits, ingest.ScoredPoint{ID: p.ID, Score: cosineSimilarity(query, p.Vector), Payload: p.Payload})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (b *MemoryVectorBackend) CollectionStats(ctx context.Context, collection string) (ingest.CollectionStats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.collections[collection]
	if !ok {
		return ingest.CollectionStats{}, fmt.Errorf("memory backend: unknown collection %q", collection)
	}
	return ingest.CollectionStats{Name: collection, PointCount: int64(len(c.points)), VectorDim: c.dim, DistanceFn: c.distance}, nil
}

func (b *MemoryVectorBackend) ListCollections(ctx context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.collections))
	for name := range b.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Points returns every point currently stored in collection, for test
// assertions. Returns nil if the collection doesn't exist.
func (b *MemoryVectorBackend) Points(collection string) []ingest.Point {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.collections[collection]
	if !ok {
		return nil
	}
	out := make([]ingest.Point, 0, len(c.points))
	for _, p := range c.points {
		out = append(out, p)
	}
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// StubEmbedder is an ingest.Embedder that returns deterministic vectors
// without calling out to a real embedding endpoint. Each text maps to a
// fixed-dimension vector derived from its byte sum, so identical
// input always produces an identical vector.
type StubEmbedder struct {
	Dim int

	mu       sync.Mutex
	failNext int // number of remaining Embed calls to fail before succeeding
}

// NewStubEmbedder builds a StubEmbedder producing vectors of the given dimension.
func NewStubEmbedder(dim int) *StubEmbedder {
	return &StubEmbedder{Dim: dim}
}

// FailNextCalls makes the next n calls to Embed return an error, simulating
// a transient embedding-provider outage.
func (e *StubEmbedder) FailNextCalls(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failNext = n
}

func (e *StubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	if e.failNext > 0 {
		e.failNext--
		e.mu.Unlock()
		return nil, fmt.Errorf("stub embedder: simulated failure")
	}
	e.mu.Unlock()

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = deterministicVector(text, e.Dim)
	}
	return vectors, nil
}

func (e *StubEmbedder) Warmup(ctx context.Context) error {
	_, err := e.Embed(ctx, []string{"warmup"})
	return err
}

func deterministicVector(text string, dim int) []float32 {
	var sum int
	for _, b := range []byte(text) {
		sum += int(b)
	}
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = float32((sum+i)%97) / 97.0
	}
	return vec
}

// NewTestChunk builds a minimal, finalized Chunk for parser/storage tests,
// filling chunk_hash and complexity_score via Chunk.Finalize.
func NewTestChunk(t *testing.T, language, itemType, itemName, content string) ingest.Chunk {
	t.Helper()
	c := ingest.Chunk{
		Content:        content,
		Language:       language,
		ItemType:       itemType,
		ItemName:       itemName,
		FilePath:       "test/" + itemName,
		RepoID:         "test-repo",
		RepoComponent:  "core",
		BusinessDomain: "general",
	}
	c.Finalize()
	return c
}

// NewTestRepoDescriptor builds a RepoDescriptor rooted at dir, the shape
// ingest.StreamChunks and ingest.Pipeline.Ingest expect.
func NewTestRepoDescriptor(repoID, dir string) ingest.RepoDescriptor {
	return ingest.RepoDescriptor{
		RepoID:   repoID,
		Path:     dir,
		RepoType: "backend",
	}
}
