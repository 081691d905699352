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
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embedderConfig(baseURL string) *Config {
	cfg, _ := NewConfig(Config{
		ReposBaseDir:     "/repos",
		VectorBackend:    BackendLocal,
		SurrealURL:       "http://localhost:8000",
		SurrealNS:        "ns",
		SurrealDB:        "db",
		EmbeddingBaseURL: baseURL,
		EmbeddingModel:   "nomic-embed-text",
		EmbeddingDim:     4,
		RateLimit:        2,
		MaxRetries:       2,
		RequestTimeout:   5 * time.Second,
	})
	return cfg
}

func TestOpenAICompatibleEmbedderEmbedReturnsOrderedVectors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := embeddingResponse{}
		for i := range req.Input {
			// Reverse index order in the response to verify the client
			// reassembles vectors by the response's index field, not by
			// response array position.
			idx := len(req.Input) - 1 - i
			resp.Data = append(resp.Data, embeddingDatum{Index: idx, Embedding: []float32{float32(idx)}})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := NewOpenAICompatibleEmbedder(embedderConfig(srv.URL), nil, nil)
	vectors, err := e.Embed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, []float32{0}, vectors[0])
	assert.Equal(t, []float32{1}, vectors[1])
	assert.Equal(t, []float32{2}, vectors[2])
}

func TestOpenAICompatibleEmbedderRetriesOnRetryableStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(embeddingResponse{Data: []embeddingDatum{{Index: 0, Embedding: []float32{1, 2}}}})
	}))
	defer srv.Close()

	cfg := embedderConfig(srv.URL)
	cfg.MaxRetries = 3
	e := NewOpenAICompatibleEmbedder(cfg, nil, nil)

	vectors, err := e.Embed(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, vectors[0])
	assert.Equal(t, int32(3), calls.Load())
}

func TestOpenAICompatibleEmbedderDoesNotRetryNonRetryableStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	e := NewOpenAICompatibleEmbedder(embedderConfig(srv.URL), nil, nil)
	_, err := e.Embed(context.Background(), []string{"x"})
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAICompatibleEmbedderRejectsEmptyBatch(t *testing.T) {
	e := NewOpenAICompatibleEmbedder(embedderConfig("http://unused"), nil, nil)
	_, err := e.Embed(context.Background(), nil)
	assert.Error(t, err)
}

func TestOpenAICompatibleEmbedderWarmupFailsOnAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	e := NewOpenAICompatibleEmbedder(embedderConfig(srv.URL), nil, nil)
	err := e.Warmup(context.Background())
	assert.Error(t, err)
}

func TestIsRetryableEmbeddingError(t *testing.T) {
	assert.True(t, isRetryableEmbeddingError(errContains("status 503: service unavailable")))
	assert.True(t, isRetryableEmbeddingError(errContains("status 429: too many requests")))
	assert.False(t, isRetryableEmbeddingError(errContains("status 401: unauthorized")))
	assert.False(t, isRetryableEmbeddingError(nil))
}

type errString string

func (e errString) Error() string { return string(e) }

func errContains(s string) error { return errString(s) }
