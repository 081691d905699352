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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// ManagedVectorBackend talks to a Qdrant-like managed vector store over its
// REST API. No official Qdrant Go client appears anywhere in this corpus, so
// this is a hand-rolled net/http+JSON client in the same idiom the teacher
// uses for its embedding providers.
type ManagedVectorBackend struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewManagedVectorBackend builds a ManagedVectorBackend from a resolved Config.
func NewManagedVectorBackend(cfg *Config) *ManagedVectorBackend {
	return &ManagedVectorBackend{
		baseURL:    strings.TrimSuffix(cfg.QdrantURL, "/"),
		apiKey:     cfg.QdrantAPIKey,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

func (b *ManagedVectorBackend) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("api-key", b.apiKey)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s failed: status %d: %s", method, path, resp.StatusCode, truncateForLog(respBody))
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}

// Warmup implements VectorBackend.
func (b *ManagedVectorBackend) Warmup(ctx context.Context) error {
	return b.do(ctx, http.MethodGet, "/collections", nil, nil)
}

type qdrantVectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

func qdrantDistanceName(d Distance) string {
	switch d {
	case DistanceDot:
		return "Dot"
	case DistanceEuclidean:
		return "Euclid"
	default:
		return "Cosine"
	}
}

// EnsureCollection implements VectorBackend. If the collection already
// exists, its configured dimension and distance metric must match dim and
// distance exactly; a mismatch is an error rather than a silent no-op.
func (b *ManagedVectorBackend) EnsureCollection(ctx context.Context, name string, dim int, distance Distance) error {
	var existing struct {
		Result struct {
			Status string `json:"status"`
			Config struct {
				Params struct {
					Vectors qdrantVectorParams `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	if err := b.do(ctx, http.MethodGet, "/collections/"+name, nil, &existing); err == nil {
		wantDistance := qdrantDistanceName(distance)
		got := existing.Result.Config.Params.Vectors
		if got.Size != dim || got.Distance != wantDistance {
			return fmt.Errorf("collection %q exists with dim=%d distance=%s, want dim=%d distance=%s",
				name, got.Size, got.Distance, dim, wantDistance)
		}
		return nil
	}

	body := map[string]any{
		"vectors": qdrantVectorParams{Size: dim, Distance: qdrantDistanceName(distance)},
	}
	return b.do(ctx, http.MethodPut, "/collections/"+name, body, nil)
}

type qdrantPoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Upsert implements VectorBackend.
func (b *ManagedVectorBackend) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	payload := make([]qdrantPoint, len(points))
	for i, p := range points {
		payload[i] = qdrantPoint{ID: p.ID.String(), Vector: p.Vector, Payload: p.Payload}
	}

	body := map[string]any{"points": payload}
	return b.do(ctx, http.MethodPut, "/collections/"+collection+"/points?wait=true", body, nil)
}

type qdrantSearchHit struct {
	ID      string         `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

// Search implements VectorBackend.
func (b *ManagedVectorBackend) Search(ctx context.Context, collection string, query []float32, topK int) ([]ScoredPoint, error) {
	body := map[string]any{
		"vector":       query,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []qdrantSearchHit `json:"result"`
	}
	if err := b.do(ctx, http.MethodPost, "/collections/"+collection+"/points/search", body, &resp); err != nil {
		return nil, err
	}

	results := make([]ScoredPoint, 0, len(resp.Result))
	for _, hit := range resp.Result {
		id, err := uuid.Parse(hit.ID)
		if err != nil {
			continue
		}
		results = append(results, ScoredPoint{ID: id, Score: hit.Score, Payload: hit.Payload})
	}
	return results, nil
}

// CollectionStats implements VectorBackend.
func (b *ManagedVectorBackend) CollectionStats(ctx context.Context, collection string) (CollectionStats, error) {
	var resp struct {
		Result struct {
			PointsCount int64 `json:"points_count"`
			Config      struct {
				Params struct {
					Vectors qdrantVectorParams `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	if err := b.do(ctx, http.MethodGet, "/collections/"+collection, nil, &resp); err != nil {
		return CollectionStats{}, err
	}

	return CollectionStats{
		Name:       collection,
		PointCount: resp.Result.PointsCount,
		VectorDim:  resp.Result.Config.Params.Vectors.Size,
	}, nil
}

// ListCollections implements VectorBackend.
func (b *ManagedVectorBackend) ListCollections(ctx context.Context) ([]string, error) {
	var resp struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := b.do(ctx, http.MethodGet, "/collections", nil, &resp); err != nil {
		return nil, err
	}

	names := make([]string, len(resp.Result.Collections))
	for i, c := range resp.Result.Collections {
		names[i] = c.Name
	}
	return names, nil
}
