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
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments for one ingest run. Built via
// NewMetrics, which registers them with the default registry right away.
type Metrics struct {
	once sync.Once

	chunksSeen     prometheus.Counter
	chunksExcluded prometheus.Counter
	chunksStored   prometheus.Counter

	batchesSent   prometheus.Counter
	batchesFailed prometheus.Counter

	embedRetries prometheus.Counter
	embedErrors  prometheus.Counter

	parseDuration prometheus.Histogram
	embedDuration prometheus.Histogram
	writeDuration prometheus.Histogram
	totalDuration prometheus.Histogram
}

// NewMetrics builds and registers a Metrics instance. Every call registers
// collectors under the same metric names with the default registry, so a
// second call in one process panics; build one Metrics per process and
// share it.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.init()
	return m
}

func (m *Metrics) init() {
	m.once.Do(func() {
		m.chunksSeen = prometheus.NewCounter(prometheus.CounterOpts{Name: "ingestord_chunks_seen_total", Help: "Chunks vistos por el pipeline de ingesta"})
		m.chunksExcluded = prometheus.NewCounter(prometheus.CounterOpts{Name: "ingestord_chunks_excluded_total", Help: "Chunks excluidos por exceder el límite de caracteres"})
		m.chunksStored = prometheus.NewCounter(prometheus.CounterOpts{Name: "ingestord_chunks_stored_total", Help: "Chunks almacenados exitosamente"})

		m.batchesSent = prometheus.NewCounter(prometheus.CounterOpts{Name: "ingestord_batches_sent_total", Help: "Batches enviados al backend de vectores"})
		m.batchesFailed = prometheus.NewCounter(prometheus.CounterOpts{Name: "ingestord_batches_failed_total", Help: "Batches que fallaron tras agotar los reintentos"})

		m.embedRetries = prometheus.NewCounter(prometheus.CounterOpts{Name: "ingestord_embedding_retries_total", Help: "Reintentos de llamadas de embedding"})
		m.embedErrors = prometheus.NewCounter(prometheus.CounterOpts{Name: "ingestord_embedding_errors_total", Help: "Errores del proveedor de embeddings"})

		buckets := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
		m.parseDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "ingestord_parse_seconds", Help: "Duración de parseo por archivo", Buckets: buckets})
		m.embedDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "ingestord_embed_seconds", Help: "Duración de llamadas de embedding", Buckets: buckets})
		m.writeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "ingestord_write_seconds", Help: "Duración de upserts al backend de vectores", Buckets: buckets})
		m.totalDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "ingestord_total_seconds", Help: "Duración total de la ejecución de ingesta", Buckets: buckets})

		prometheus.MustRegister(
			m.chunksSeen, m.chunksExcluded, m.chunksStored,
			m.batchesSent, m.batchesFailed,
			m.embedRetries, m.embedErrors,
			m.parseDuration, m.embedDuration, m.writeDuration, m.totalDuration,
		)
	})
}

// RecordBatch records one successful batch: its chunk count and how many
// of those chunks were actually stored (after validation drops).
func (m *Metrics) RecordBatch(chunkCount, storedCount int) {
	m.batchesSent.Inc()
	m.chunksSeen.Add(float64(chunkCount))
	m.chunksStored.Add(float64(storedCount))
}

// RecordBatchFailure records a batch that exhausted all retry rounds.
func (m *Metrics) RecordBatchFailure() {
	m.batchesFailed.Inc()
}

// RecordEmbedRetry records one retried embedding call.
func (m *Metrics) RecordEmbedRetry() {
	m.embedRetries.Inc()
}

// RecordEmbedError records one embedding call that failed after retries.
func (m *Metrics) RecordEmbedError() {
	m.embedErrors.Inc()
}

// RecordChunkExcluded records one chunk dropped for exceeding the
// per-chunk character limit.
func (m *Metrics) RecordChunkExcluded() {
	m.chunksExcluded.Inc()
}

// ObserveParseDuration records one file's parse wall-clock time, in seconds.
func (m *Metrics) ObserveParseDuration(seconds float64) { m.parseDuration.Observe(seconds) }

// ObserveEmbedDuration records one embedding call's wall-clock time, in seconds.
func (m *Metrics) ObserveEmbedDuration(seconds float64) { m.embedDuration.Observe(seconds) }

// ObserveWriteDuration records one upsert's wall-clock time, in seconds.
func (m *Metrics) ObserveWriteDuration(seconds float64) { m.writeDuration.Observe(seconds) }

// ObserveTotalDuration records one run's total wall-clock time, in seconds.
func (m *Metrics) ObserveTotalDuration(seconds float64) { m.totalDuration.Observe(seconds) }
