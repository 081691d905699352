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
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeTableName(t *testing.T) {
	assert.Equal(t, "rust", sanitizeTableName("rust"))
	assert.Equal(t, "my_collection", sanitizeTableName("my-collection"))
	assert.Equal(t, "_123abc", sanitizeTableName("123abc"))
	assert.Equal(t, "proj_rust", sanitizeTableName("proj_rust"))
}

// fakeSurreal replies "OK" to every statement in a query and, for SELECT
// queries, returns canned rows matching the test fixtures below — just
// enough of SurrealDB's /sql envelope shape to exercise LocalVectorBackend.
type fakeSurreal struct {
	searchRows []surrealSearchRow
	count      int64
	indexes    map[string]string // table -> idx_vector's DEFINE INDEX statement
}

var defineIndexPattern = regexp.MustCompile(`DEFINE INDEX IF NOT EXISTS idx_vector ON (\w+)`)

func (f *fakeSurreal) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if f.indexes == nil {
			f.indexes = map[string]string{}
		}
		body, _ := io.ReadAll(r.Body)
		sql := string(body)
		statements := strings.Split(strings.TrimSpace(sql), ";")

		var envelopes []map[string]any
		for _, stmt := range statements {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			switch {
			case strings.Contains(stmt, "SELECT id"):
				envelopes = append(envelopes, map[string]any{"status": "OK", "result": f.searchRows})
			case strings.Contains(stmt, "SELECT count()"):
				envelopes = append(envelopes, map[string]any{"status": "OK", "result": []map[string]any{{"count": f.count}}})
			case strings.Contains(stmt, "INFO FOR DB"):
				envelopes = append(envelopes, map[string]any{"status": "OK", "result": map[string]any{"tables": map[string]string{"rust": ""}}})
			case strings.Contains(stmt, "INFO FOR TABLE"):
				parts := strings.Fields(stmt)
				table := strings.TrimSuffix(parts[len(parts)-1], ";")
				idx, ok := f.indexes[table]
				if !ok {
					envelopes = append(envelopes, map[string]any{"status": "ERR", "detail": "table not found"})
					continue
				}
				envelopes = append(envelopes, map[string]any{"status": "OK", "result": map[string]any{"indexes": map[string]string{"idx_vector": idx}}})
			case strings.Contains(stmt, "DEFINE INDEX IF NOT EXISTS idx_vector"):
				if m := defineIndexPattern.FindStringSubmatch(stmt); m != nil {
					f.indexes[m[1]] = stmt
				}
				envelopes = append(envelopes, map[string]any{"status": "OK", "result": true})
			default:
				envelopes = append(envelopes, map[string]any{"status": "OK", "result": true})
			}
		}
		json.NewEncoder(w).Encode(envelopes)
	}
}

func localBackendConfig(t *testing.T, baseURL string) *Config {
	t.Helper()
	cfg, err := NewConfig(Config{
		ReposBaseDir: "/repos", VectorBackend: BackendLocal,
		SurrealURL: baseURL, SurrealNS: "ns", SurrealDB: "db",
		EmbeddingBaseURL: "http://unused", EmbeddingModel: "m",
		RequestTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return cfg
}

func TestLocalVectorBackendWarmup(t *testing.T) {
	f := &fakeSurreal{}
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	b := NewLocalVectorBackend(localBackendConfig(t, srv.URL))
	require.NoError(t, b.Warmup(context.Background()))
}

func TestLocalVectorBackendEnsureCollectionAndUpsert(t *testing.T) {
	f := &fakeSurreal{}
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	b := NewLocalVectorBackend(localBackendConfig(t, srv.URL))
	require.NoError(t, b.EnsureCollection(context.Background(), "rust", 4, DistanceCosine))

	id := uuid.New()
	err := b.Upsert(context.Background(), "rust", []Point{
		{ID: id, Vector: []float32{1, 2, 3, 4}, Payload: map[string]any{"item_name": "add"}},
	})
	require.NoError(t, err)
}

func TestLocalVectorBackendEnsureCollectionRejectsDimensionMismatch(t *testing.T) {
	f := &fakeSurreal{}
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	b := NewLocalVectorBackend(localBackendConfig(t, srv.URL))
	require.NoError(t, b.EnsureCollection(context.Background(), "rust", 4, DistanceCosine))
	assert.Error(t, b.EnsureCollection(context.Background(), "rust", 8, DistanceCosine))
	assert.Error(t, b.EnsureCollection(context.Background(), "rust", 4, DistanceDot))
}

func TestLocalVectorBackendSearchDecodesRows(t *testing.T) {
	id := uuid.New()
	f := &fakeSurreal{searchRows: []surrealSearchRow{
		{ID: "rust:" + id.String(), Score: 0.97, Payload: map[string]any{"item_name": "add"}},
	}}
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	b := NewLocalVectorBackend(localBackendConfig(t, srv.URL))
	results, err := b.Search(context.Background(), "rust", []float32{1, 2, 3, 4}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].ID)
	assert.Equal(t, 0.97, results[0].Score)
}

func TestLocalVectorBackendCollectionStats(t *testing.T) {
	f := &fakeSurreal{count: 3}
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	b := NewLocalVectorBackend(localBackendConfig(t, srv.URL))
	stats, err := b.CollectionStats(context.Background(), "rust")
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.PointCount)
}

func TestLocalVectorBackendListCollections(t *testing.T) {
	f := &fakeSurreal{}
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	b := NewLocalVectorBackend(localBackendConfig(t, srv.URL))
	names, err := b.ListCollections(context.Background())
	require.NoError(t, err)
	assert.Contains(t, names, "rust")
}
