// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package validators

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/slp/lvldb"
	"github.com/vechain/slp/policy"
	"github.com/vechain/slp/slp"
)

const ksm = slp.Currency("KSM")

func newStore(t *testing.T) *Store {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	policies := policy.NewStore(db)
	require.NoError(t, policies.SetMinimumsMaximums(ksm, &policy.MinimumsMaximums{
		UnbondRecordMaximum:           32,
		ValidatorsBackMaximum:         2,
		DelegatorActiveStakingMaximum: *uint256.NewInt(1_000_000),
		DelegatorsMaximum:             8,
		ValidatorsMaximum:             3,
	}))
	return NewStore(db, policies)
}

func addr(s string) slp.Address { return slp.BytesToAddress([]byte(s)) }

func TestNormalize(t *testing.T) {
	in := []slp.Address{addr("c"), addr("a"), addr("b"), addr("a")}
	out := Normalize(in)
	require.Len(t, out, 3)
	for i := 1; i < len(out); i++ {
		assert.Equal(t, -1, slp.Blake2b(out[i-1].Bytes()).Cmp(slp.Blake2b(out[i].Bytes())))
	}
	assert.Equal(t, addr("c"), in[0], "input untouched")
}

func TestWhitelist(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.Add(ksm, addr("v1")))
	require.NoError(t, s.Add(ksm, addr("v2")))

	err := s.Add(ksm, addr("v1"))
	assert.True(t, slp.IsKind(err, slp.PolicyViolation))

	require.NoError(t, s.Add(ksm, addr("v3")))
	err = s.Add(ksm, addr("v4"))
	assert.True(t, slp.IsKind(err, slp.CapacityExceeded))

	ok, err := s.Contains(ksm, addr("v2"))
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.CheckWhitelisted(ksm, addr("v1"), addr("v3")))
	assert.True(t, slp.IsKind(s.CheckWhitelisted(ksm, addr("v1"), addr("v9")), slp.PolicyViolation))

	require.NoError(t, s.Remove(ksm, addr("v2")))
	assert.True(t, slp.IsKind(s.Remove(ksm, addr("v2")), slp.NotFound))

	list, err := s.Whitelist(ksm)
	require.NoError(t, err)
	assert.ElementsMatch(t, []slp.Address{addr("v1"), addr("v3")}, list)

	err = s.Add("DOT", addr("v1"))
	assert.True(t, slp.IsKind(err, slp.NotFound), "policy of DOT not set")
}

func TestByDelegator(t *testing.T) {
	s := newStore(t)
	d := addr("delegator")

	list, err := s.ByDelegator(ksm, d)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, s.SetByDelegator(ksm, d, []slp.Address{addr("v2"), addr("v1"), addr("v2")}))
	list, err = s.ByDelegator(ksm, d)
	require.NoError(t, err)
	assert.ElementsMatch(t, []slp.Address{addr("v1"), addr("v2")}, list)

	require.NoError(t, s.SetByDelegator(ksm, d, nil))
	list, err = s.ByDelegator(ksm, d)
	require.NoError(t, err)
	assert.Empty(t, list)
}
