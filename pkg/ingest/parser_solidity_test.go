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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const solidityFixture = `pragma solidity ^0.8.0;

contract Token {
    mapping(address => uint256) private balances;

    function transfer(address to, uint256 amount) public returns (bool) {
        balances[to] += amount;
        return true;
    }
}
`

func TestSolidityParserExtractsContractAndFunction(t *testing.T) {
	p := NewSolidityParser()
	result := p.Parse("/repo/Token.sol", "Token.sol", []byte(solidityFixture), "repo1")

	require.True(t, result.Success)
	require.NotEmpty(t, result.Chunks)

	contract := findChunk(result.Chunks, "Token")
	require.NotNil(t, contract)
	assert.Equal(t, "contract", contract.ItemType)

	fn := findChunk(result.Chunks, "transfer")
	require.NotNil(t, fn)
	assert.Equal(t, "function", fn.ItemType)
	assert.Equal(t, "public", fn.Metadata["visibility"])
}

func TestSolidityParserFailsWithoutRecognizableDeclarations(t *testing.T) {
	p := NewSolidityParser()
	result := p.Parse("/repo/notes.sol", "notes.sol", []byte("// just a comment, no pragma or declarations\n"), "repo1")
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestSolidityParserEmptyFileProducesNoChunks(t *testing.T) {
	p := NewSolidityParser()
	result := p.Parse("/repo/empty.sol", "empty.sol", []byte("   \n"), "repo1")
	assert.True(t, result.Success)
	assert.Empty(t, result.Chunks)
}
