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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointStoreLoadMissingReturnsNil(t *testing.T) {
	store := NewCheckpointStore(filepath.Join(t.TempDir(), "checkpoint.json"))
	cp, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, cp)
}

func TestCheckpointStoreSaveThenLoadRoundTrips(t *testing.T) {
	store := NewCheckpointStore(filepath.Join(t.TempDir(), "nested", "checkpoint.json"))

	err := store.Save(&Checkpoint{
		RepoID:            "repo1",
		Language:          "rust",
		LastProcessedFile: "src/lib.rs",
		FilesProcessed:    12,
		ChunksProcessed:   48,
	})
	require.NoError(t, err)

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "repo1", loaded.RepoID)
	assert.Equal(t, "rust", loaded.Language)
	assert.Equal(t, "src/lib.rs", loaded.LastProcessedFile)
	assert.Equal(t, 12, loaded.FilesProcessed)
	assert.NotEmpty(t, loaded.Timestamp)
}

func TestCheckpointStoreClearRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	store := NewCheckpointStore(path)
	require.NoError(t, store.Save(&Checkpoint{RepoID: "repo1"}))

	require.NoError(t, store.Clear())

	cp, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, cp)

	// Clearing an already-absent checkpoint is not an error.
	require.NoError(t, store.Clear())
}

func TestIsRepoCompleted(t *testing.T) {
	var nilCheckpoint *Checkpoint
	assert.False(t, nilCheckpoint.IsRepoCompleted("repo1"))

	cp := &Checkpoint{CompletedRepos: []string{"repo1", "repo2"}}
	assert.True(t, cp.IsRepoCompleted("repo1"))
	assert.False(t, cp.IsRepoCompleted("repo3"))
}

func TestCheckpointStoreGetInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	store := NewCheckpointStore(path)

	info, err := store.GetInfo()
	require.NoError(t, err)
	assert.False(t, info.Exists)

	require.NoError(t, store.Save(&Checkpoint{RepoID: "repo1", Language: "go", FilesProcessed: 3}))

	info, err = store.GetInfo()
	require.NoError(t, err)
	assert.True(t, info.Exists)
	assert.Equal(t, "repo1", info.RepoID)
	assert.Equal(t, 3, info.FilesProcessed)
}
