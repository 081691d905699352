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
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

// Embedder is the C5 capability: turn a batch of texts into dense vectors,
// one per input, in order.
type Embedder interface {
	// Embed embeds a batch of 1..N texts. On success len(result) == len(texts).
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Warmup makes one minimal call to surface auth/connectivity problems
	// before bulk work begins.
	Warmup(ctx context.Context) error
}

// backoffBase, backoffMultiplier, backoffCap, and jitterFraction are the
// spec-mandated retry schedule for transient embedding failures.
const (
	backoffBase       = 1 * time.Second
	backoffMultiplier = 2.0
	backoffCap        = 30 * time.Second
	jitterFraction    = 0.2
)

// OpenAICompatibleEmbedder calls a single OpenAI-compatible /embeddings
// endpoint. This is a hand-rolled net/http+JSON client in the same idiom as
// the teacher's own embedding providers (NomicEmbeddingProvider,
// OllamaEmbeddingProvider, OpenAIEmbeddingProvider, ...) — collapsed here
// into one implementation because the spec only asks for one endpoint
// shape, with the provider distinction left to deployment configuration
// (base URL + API key), not to separate Go types.
type OpenAICompatibleEmbedder struct {
	baseURL    string
	apiKey     string
	model      string
	dim        int
	httpClient *http.Client
	sem        chan struct{} // rate_limit semaphore, shared across all Embed calls
	maxRetries int
	logger     *slog.Logger
	metrics    *Metrics
}

// NewOpenAICompatibleEmbedder builds an Embedder from a resolved Config.
// metrics may be nil, in which case embedding retries/errors are logged but
// not counted.
func NewOpenAICompatibleEmbedder(cfg *Config, logger *slog.Logger, metrics *Metrics) *OpenAICompatibleEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAICompatibleEmbedder{
		baseURL:    strings.TrimSuffix(cfg.EmbeddingBaseURL, "/"),
		apiKey:     cfg.EmbeddingAPIKey,
		model:      cfg.EmbeddingModel,
		dim:        cfg.EmbeddingDim,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		sem:        make(chan struct{}, cfg.RateLimit),
		maxRetries: cfg.MaxRetries,
		logger:     logger,
		metrics:    metrics,
	}
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingDatum struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type embeddingResponse struct {
	Data []embeddingDatum `json:"data"`
}

// Embed implements Embedder.
func (e *OpenAICompatibleEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("embed: empty batch")
	}

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-e.sem }()

	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			sleep := backoffWithJitter(attempt - 1)
			e.logger.Warn("embedding.retry", "attempt", attempt, "sleep_ms", sleep.Milliseconds(), "err", lastErr)
			if e.metrics != nil {
				e.metrics.RecordEmbedRetry()
			}
			select {
			case <-time.After(sleep):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		vectors, err := e.doEmbed(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		if !isRetryableEmbeddingError(err) {
			return nil, err
		}
	}

	if e.metrics != nil {
		e.metrics.RecordEmbedError()
	}
	return nil, fmt.Errorf("embed: exhausted %d retries: %w", e.maxRetries, lastErr)
}

func (e *OpenAICompatibleEmbedder) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingRequest{Input: texts, Model: e.model})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding request failed: status %d: %s", resp.StatusCode, truncateForLog(respBody))
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("parse embedding response: %w", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response length mismatch: got %d, want %d", len(parsed.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding response index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("embedding response missing vector for index %d", i)
		}
	}
	return vectors, nil
}

// Warmup implements Embedder: one minimal embed call to surface
// auth/connectivity problems before bulk work begins.
func (e *OpenAICompatibleEmbedder) Warmup(ctx context.Context) error {
	_, err := e.Embed(ctx, []string{"warmup"})
	return err
}

// isRetryableEmbeddingError classifies transport and status-code errors:
// timeouts, connection errors, 429, and 5xx are retryable; everything else
// (4xx other than 429) is not. Grounded on the teacher's own
// isRetryableEmbeddingError, which also classifies by error-text substring
// rather than typed sentinel errors, since the failure surfaces through a
// wrapped net/http error or a formatted status-code error either way.
func isRetryableEmbeddingError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	retryableSubstrings := []string{
		"timeout", "temporarily unavailable", "connection refused",
		"connection reset", "deadline exceeded", "eof",
		"status 429", "status 500", "status 502", "status 503", "status 504",
	}
	for _, s := range retryableSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// backoffWithJitter returns the sleep duration before retry attempt
// (0-indexed), per the spec's exponential-backoff-with-jitter schedule:
// base * multiplier^attempt, capped, then scaled by a factor in
// [1-jitterFraction, 1+jitterFraction].
func backoffWithJitter(attempt int) time.Duration {
	exp := float64(backoffBase)
	for i := 0; i < attempt; i++ {
		exp *= backoffMultiplier
	}
	d := time.Duration(exp)
	if d > backoffCap {
		d = backoffCap
	}
	jitter := 1 + (rand.Float64()*2-1)*jitterFraction
	return time.Duration(float64(d) * jitter)
}

func truncateForLog(body []byte) string {
	const max = 500
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
