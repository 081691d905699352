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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeQdrant is a minimal in-memory stand-in for Qdrant's REST API, just
// enough surface to exercise ManagedVectorBackend's request/response shapes.
type fakeQdrant struct {
	collections map[string]bool
	points      map[string][]qdrantPoint
	vectors     map[string]qdrantVectorParams
}

func newFakeQdrant() *fakeQdrant {
	return &fakeQdrant{
		collections: map[string]bool{},
		points:      map[string][]qdrantPoint{},
		vectors:     map[string]qdrantVectorParams{},
	}
}

func (f *fakeQdrant) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/collections":
			type entry struct {
				Name string `json:"name"`
			}
			var names []entry
			for name := range f.collections {
				names = append(names, entry{Name: name})
			}
			json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"collections": names}})

		case r.Method == http.MethodGet && len(r.URL.Path) > len("/collections/"):
			name := r.URL.Path[len("/collections/"):]
			if !f.collections[name] {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			vectors := f.vectors[name]
			json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{
				"status":       "green",
				"points_count": len(f.points[name]),
				"config":       map[string]any{"params": map[string]any{"vectors": map[string]any{"size": vectors.Size, "distance": vectors.Distance}}},
			}})

		case r.Method == http.MethodPut && len(r.URL.Path) > len("/collections/") && r.URL.Path[len(r.URL.Path)-len("/points"):] != "/points":
			name := r.URL.Path[len("/collections/"):]
			var body struct {
				Vectors qdrantVectorParams `json:"vectors"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			f.collections[name] = true
			f.vectors[name] = body.Vectors
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]any{"result": true})

		case r.Method == http.MethodPut:
			// /collections/{name}/points?wait=true
			path := r.URL.Path
			name := path[len("/collections/") : len(path)-len("/points")]
			var body struct {
				Points []qdrantPoint `json:"points"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			f.points[name] = append(f.points[name], body.Points...)
			json.NewEncoder(w).Encode(map[string]any{"result": true})

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func TestNewVectorBackendDispatchesOnConfiguredBackend(t *testing.T) {
	managed, err := NewConfig(Config{
		ReposBaseDir: "/repos", VectorBackend: BackendManaged,
		QdrantURL: "http://unused", QdrantAPIKey: "key",
		EmbeddingBaseURL: "http://unused", EmbeddingModel: "m",
	})
	require.NoError(t, err)
	assert.IsType(t, &ManagedVectorBackend{}, NewVectorBackend(managed))

	local, err := NewConfig(Config{
		ReposBaseDir: "/repos", VectorBackend: BackendLocal,
		SurrealURL: "http://unused", SurrealNS: "ns", SurrealDB: "db",
		EmbeddingBaseURL: "http://unused", EmbeddingModel: "m",
	})
	require.NoError(t, err)
	assert.IsType(t, &LocalVectorBackend{}, NewVectorBackend(local))
}

func TestManagedVectorBackendEnsureCollectionIsIdempotent(t *testing.T) {
	f := newFakeQdrant()
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	cfg, err := NewConfig(Config{
		ReposBaseDir: "/repos", VectorBackend: BackendManaged,
		QdrantURL: srv.URL, QdrantAPIKey: "key",
		EmbeddingBaseURL: "http://unused", EmbeddingModel: "m",
		RequestTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	b := NewManagedVectorBackend(cfg)

	require.NoError(t, b.EnsureCollection(context.Background(), "rust", 4, DistanceCosine))
	assert.True(t, f.collections["rust"])

	// Calling again on an already-present collection must not error.
	require.NoError(t, b.EnsureCollection(context.Background(), "rust", 4, DistanceCosine))
}

func TestManagedVectorBackendEnsureCollectionRejectsDimensionMismatch(t *testing.T) {
	f := newFakeQdrant()
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	cfg, err := NewConfig(Config{
		ReposBaseDir: "/repos", VectorBackend: BackendManaged,
		QdrantURL: srv.URL, QdrantAPIKey: "key",
		EmbeddingBaseURL: "http://unused", EmbeddingModel: "m",
		RequestTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	b := NewManagedVectorBackend(cfg)

	require.NoError(t, b.EnsureCollection(context.Background(), "rust", 4, DistanceCosine))
	assert.Error(t, b.EnsureCollection(context.Background(), "rust", 8, DistanceCosine))
	assert.Error(t, b.EnsureCollection(context.Background(), "rust", 4, DistanceDot))
}

func TestManagedVectorBackendUpsertThenStats(t *testing.T) {
	f := newFakeQdrant()
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	cfg, err := NewConfig(Config{
		ReposBaseDir: "/repos", VectorBackend: BackendManaged,
		QdrantURL: srv.URL, QdrantAPIKey: "key",
		EmbeddingBaseURL: "http://unused", EmbeddingModel: "m",
		RequestTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	b := NewManagedVectorBackend(cfg)

	require.NoError(t, b.EnsureCollection(context.Background(), "rust", 4, DistanceCosine))

	id := uuid.New()
	err = b.Upsert(context.Background(), "rust", []Point{
		{ID: id, Vector: []float32{1, 2, 3, 4}, Payload: map[string]any{"item_name": "add"}},
	})
	require.NoError(t, err)

	stats, err := b.CollectionStats(context.Background(), "rust")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.PointCount)
}

func TestManagedVectorBackendUpsertEmptyIsNoop(t *testing.T) {
	f := newFakeQdrant()
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	cfg, err := NewConfig(Config{
		ReposBaseDir: "/repos", VectorBackend: BackendManaged,
		QdrantURL: srv.URL, QdrantAPIKey: "key",
		EmbeddingBaseURL: "http://unused", EmbeddingModel: "m",
		RequestTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	b := NewManagedVectorBackend(cfg)

	require.NoError(t, b.Upsert(context.Background(), "rust", nil))
}
