// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package delegator

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/slp/lvldb"
	"github.com/vechain/slp/policy"
	"github.com/vechain/slp/slp"
)

const dot = slp.Currency("DOT")

func newAllocator(t *testing.T, maxDelegators uint16) *Allocator {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	policies := policy.NewStore(db)
	require.NoError(t, policies.SetMinimumsMaximums(dot, &policy.MinimumsMaximums{
		UnbondRecordMaximum:           32,
		ValidatorsBackMaximum:         16,
		DelegatorActiveStakingMaximum: *uint256.NewInt(1_000_000),
		DelegatorsMaximum:             maxDelegators,
		ValidatorsMaximum:             16,
	}))

	a := NewAllocator(db, policies)
	a.SetDeriver(dot, SubstrateDeriver{Parent: slp.BytesToAddress([]byte("parent"))})
	return a
}

func TestDerive(t *testing.T) {
	parent := slp.BytesToAddress([]byte("parent"))
	sub := SubstrateDeriver{parent}
	assert.Equal(t, sub.Derive(1), sub.Derive(1), "derivation is pure")
	assert.NotEqual(t, sub.Derive(0), sub.Derive(1))

	eth := EthereumDeriver{parent}
	addr := eth.Derive(0)
	assert.Equal(t, make([]byte, 12), addr[:12], "20 bytes accounts are extended from the left")
	assert.NotEqual(t, sub.Derive(0), addr)
}

func TestAllocate(t *testing.T) {
	a := newAllocator(t, 3)
	deriver := SubstrateDeriver{Parent: slp.BytesToAddress([]byte("parent"))}

	for i := range 3 {
		index, addr, err := a.Allocate(dot)
		require.NoError(t, err)
		assert.Equal(t, uint16(i), index)
		assert.Equal(t, deriver.Derive(uint16(i)), addr)

		got, err := a.AddressOf(dot, index)
		require.NoError(t, err)
		assert.Equal(t, addr, got)

		back, err := a.IndexOf(dot, addr)
		require.NoError(t, err)
		assert.Equal(t, index, back)
	}

	_, _, err := a.Allocate(dot)
	assert.True(t, slp.IsKind(err, slp.CapacityExceeded))

	// a freed index is reused and derives the same address again
	addr1, err := a.AddressOf(dot, 1)
	require.NoError(t, err)
	require.NoError(t, a.Remove(dot, addr1))

	_, err = a.AddressOf(dot, 1)
	assert.True(t, slp.IsKind(err, slp.NotFound))
	_, err = a.IndexOf(dot, addr1)
	assert.True(t, slp.IsKind(err, slp.NotFound))

	index, addr, err := a.Allocate(dot)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), index)
	assert.Equal(t, addr1, addr)

	list, err := a.List(dot)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, uint16(2), list[2].Index)
}

func TestAllocateWithoutSetup(t *testing.T) {
	a := newAllocator(t, 3)

	_, _, err := a.Allocate("KSM")
	assert.True(t, slp.IsKind(err, slp.NotFound), "no deriver")

	a.SetDeriver("KSM", SubstrateDeriver{})
	_, _, err = a.Allocate("KSM")
	assert.True(t, slp.IsKind(err, slp.NotFound), "no policy")
}

func TestRegister(t *testing.T) {
	a := newAllocator(t, 2)
	ext := slp.BytesToAddress([]byte("external"))

	require.NoError(t, a.Register(dot, 7, ext))

	err := a.Register(dot, 7, slp.BytesToAddress([]byte("other")))
	assert.True(t, slp.IsKind(err, slp.PolicyViolation), "index taken")

	err = a.Register(dot, 8, ext)
	assert.True(t, slp.IsKind(err, slp.PolicyViolation), "address taken")

	err = a.Register(dot, 9, slp.Address{})
	assert.True(t, slp.IsKind(err, slp.PolicyViolation))

	ok, err := a.Contains(dot, ext)
	require.NoError(t, err)
	assert.True(t, ok)

	index, _, err := a.Allocate(dot)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), index)

	err = a.Register(dot, 9, slp.BytesToAddress([]byte("third")))
	assert.True(t, slp.IsKind(err, slp.CapacityExceeded))

	n, err := a.Count(dot)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
