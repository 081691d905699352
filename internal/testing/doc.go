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

// Package testing provides test doubles and seeding helpers for ingestord's
// integration tests.
//
// # Quick Start
//
// MemoryVectorBackend stands in for a live Qdrant/SurrealDB instance and
// StubEmbedder stands in for a live embedding endpoint, so pipeline tests
// can run without any network dependency:
//
//	func TestPipeline(t *testing.T) {
//	    backend := testing.NewMemoryVectorBackend()
//	    embedder := testing.NewStubEmbedder(8)
//	    cfg, _ := ingest.NewConfig(ingest.Config{EmbeddingDim: 8})
//
//	    p := ingest.NewPipeline(cfg, ingest.NewDefaultRegistry(), embedder, backend, nil, nil)
//	    stats, err := p.Ingest(context.Background(), []ingest.RepoDescriptor{
//	        testing.NewTestRepoDescriptor("repo1", t.TempDir()),
//	    }, false)
//	    require.NoError(t, err)
//	    require.Len(t, stats.Repos, 1)
//	}
//
// # Building Chunks
//
// NewTestChunk builds a finalized Chunk (chunk_hash and complexity_score
// already computed) for parser- and storage-manager-level tests that don't
// need a full repository on disk.
//
// # Simulating Failure
//
// StubEmbedder.FailNextCalls(n) makes the next n Embed calls return an
// error, for exercising the batch processor's all-or-nothing retry
// behavior without a real outage.
package testing
