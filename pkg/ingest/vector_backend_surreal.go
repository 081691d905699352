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
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// LocalVectorBackend talks to a SurrealDB-like local/self-hosted vector
// store over its HTTP /sql endpoint. No SurrealDB Go SDK appears anywhere
// in this corpus, so queries are built as SurrealQL text and posted
// directly, the same hand-rolled net/http+JSON idiom as ManagedVectorBackend
// and the teacher's embedding providers. Each "collection" maps one-to-one
// to a SurrealDB table.
type LocalVectorBackend struct {
	baseURL    string
	namespace  string
	database   string
	username   string
	password   string
	httpClient *http.Client
}

// NewLocalVectorBackend builds a LocalVectorBackend from a resolved Config.
func NewLocalVectorBackend(cfg *Config) *LocalVectorBackend {
	return &LocalVectorBackend{
		baseURL:    strings.TrimSuffix(cfg.SurrealURL, "/"),
		namespace:  cfg.SurrealNS,
		database:   cfg.SurrealDB,
		username:   cfg.SurrealUser,
		password:   cfg.SurrealPass,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

var invalidTableChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// sanitizeTableName mirrors the Python source's _sanitize_table_name:
// non-alphanumeric characters become underscores, and a leading digit gets
// an underscore prefix so the result is always a valid SurrealDB identifier.
func sanitizeTableName(collection string) string {
	sanitized := invalidTableChars.ReplaceAllString(collection, "_")
	if sanitized != "" && sanitized[0] >= '0' && sanitized[0] <= '9' {
		sanitized = "_" + sanitized
	}
	return sanitized
}

func (b *LocalVectorBackend) query(ctx context.Context, sql string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/sql", strings.NewReader(sql))
	if err != nil {
		return nil, fmt.Errorf("build sql request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("NS", b.namespace)
	req.Header.Set("DB", b.database)
	if b.username != "" {
		req.SetBasicAuth(b.username, b.password)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sql request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read sql response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("sql request failed: status %d: %s", resp.StatusCode, truncateForLog(body))
	}
	return body, nil
}

type surrealResultEnvelope struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result"`
	Detail string          `json:"detail"`
}

func (b *LocalVectorBackend) queryDecode(ctx context.Context, sql string, out any) error {
	raw, err := b.query(ctx, sql)
	if err != nil {
		return err
	}
	var envelopes []surrealResultEnvelope
	if err := json.Unmarshal(raw, &envelopes); err != nil {
		return fmt.Errorf("parse sql response: %w", err)
	}
	for _, e := range envelopes {
		if e.Status != "OK" {
			return fmt.Errorf("surrealdb query error: %s", e.Detail)
		}
	}
	if out == nil || len(envelopes) == 0 {
		return nil
	}
	last := envelopes[len(envelopes)-1]
	if err := json.Unmarshal(last.Result, out); err != nil {
		return fmt.Errorf("parse sql result: %w", err)
	}
	return nil
}

// Warmup implements VectorBackend.
func (b *LocalVectorBackend) Warmup(ctx context.Context) error {
	return b.queryDecode(ctx, "RETURN 1;", nil)
}

// EnsureCollection implements VectorBackend. If the collection's idx_vector
// index already exists, its DIMENSION/DIST clause must match dim and
// distance exactly; a mismatch is an error rather than a silent no-op.
func (b *LocalVectorBackend) EnsureCollection(ctx context.Context, name string, dim int, distance Distance) error {
	table := sanitizeTableName(name)
	wantClause := fmt.Sprintf("DIMENSION %d DIST %s", dim, surrealDistanceName(distance))

	var info struct {
		Indexes map[string]string `json:"indexes"`
	}
	if err := b.queryDecode(ctx, fmt.Sprintf("INFO FOR TABLE %s;", table), &info); err == nil {
		if existing, ok := info.Indexes["idx_vector"]; ok && !strings.Contains(existing, wantClause) {
			return fmt.Errorf("collection %q exists with index definition %q, want clause %q", name, existing, wantClause)
		}
	}

	sql := fmt.Sprintf(
		"DEFINE TABLE IF NOT EXISTS %s SCHEMALESS; "+
			"DEFINE FIELD IF NOT EXISTS vector ON %s TYPE array<float>; "+
			"DEFINE INDEX IF NOT EXISTS idx_vector ON %s FIELDS vector MTREE DIMENSION %d DIST %s;",
		table, table, table, dim, surrealDistanceName(distance),
	)
	return b.queryDecode(ctx, sql, nil)
}

func surrealDistanceName(d Distance) string {
	switch d {
	case DistanceDot:
		return "DOT"
	case DistanceEuclidean:
		return "EUCLIDEAN"
	default:
		return "COSINE"
	}
}

// Upsert implements VectorBackend.
func (b *LocalVectorBackend) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	table := sanitizeTableName(collection)

	var sb strings.Builder
	for _, p := range points {
		payloadJSON, err := json.Marshal(p.Payload)
		if err != nil {
			return fmt.Errorf("marshal payload for point %s: %w", p.ID, err)
		}
		vectorJSON, err := json.Marshal(p.Vector)
		if err != nil {
			return fmt.Errorf("marshal vector for point %s: %w", p.ID, err)
		}
		recordID := surrealRecordID(p.ID)
		fmt.Fprintf(&sb, "UPSERT %s:%s MERGE {\"vector\": %s, \"payload\": %s};\n", table, recordID, vectorJSON, payloadJSON)
	}

	return b.queryDecode(ctx, sb.String(), nil)
}

// surrealRecordID encodes a UUID as a SurrealDB record-id-safe token
// (hyphens are not valid in a bare identifier, so it is quoted).
func surrealRecordID(id uuid.UUID) string {
	return "`" + id.String() + "`"
}

type surrealSearchRow struct {
	ID      string         `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

// Search implements VectorBackend.
func (b *LocalVectorBackend) Search(ctx context.Context, collection string, query []float32, topK int) ([]ScoredPoint, error) {
	table := sanitizeTableName(collection)
	vectorJSON, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("marshal query vector: %w", err)
	}

	sql := fmt.Sprintf(
		"SELECT id, payload, vector::similarity::cosine(vector, %s) AS score FROM %s ORDER BY score DESC LIMIT %d;",
		vectorJSON, table, topK,
	)

	var rows []surrealSearchRow
	if err := b.queryDecode(ctx, sql, &rows); err != nil {
		return nil, err
	}

	results := make([]ScoredPoint, 0, len(rows))
	for _, row := range rows {
		id, err := uuid.Parse(strings.TrimPrefix(row.ID, table+":"))
		if err != nil {
			continue
		}
		results = append(results, ScoredPoint{ID: id, Score: row.Score, Payload: row.Payload})
	}
	return results, nil
}

// CollectionStats implements VectorBackend.
func (b *LocalVectorBackend) CollectionStats(ctx context.Context, collection string) (CollectionStats, error) {
	table := sanitizeTableName(collection)
	var rows []struct {
		Count int64 `json:"count"`
	}
	if err := b.queryDecode(ctx, fmt.Sprintf("SELECT count() FROM %s GROUP ALL;", table), &rows); err != nil {
		return CollectionStats{}, err
	}
	var count int64
	if len(rows) > 0 {
		count = rows[0].Count
	}
	return CollectionStats{Name: collection, PointCount: count}, nil
}

// ListCollections implements VectorBackend.
func (b *LocalVectorBackend) ListCollections(ctx context.Context) ([]string, error) {
	var info struct {
		Tables map[string]string `json:"tables"`
	}
	if err := b.queryDecode(ctx, "INFO FOR DB;", &info); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(info.Tables))
	for name := range info.Tables {
		names = append(names, name)
	}
	return names, nil
}
