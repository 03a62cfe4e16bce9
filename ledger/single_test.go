// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/slp/slp"
	"github.com/vechain/slp/timeunit"
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

func chunk(v uint64, t timeunit.TimeUnit) UnlockChunk {
	return UnlockChunk{Value: *u(v), UnlockTime: t}
}

var account = slp.BytesToAddress([]byte("delegator"))

func TestSingleValidatorUnbondThenLiquidize(t *testing.T) {
	l := NewSingleValidator(account)
	require.NoError(t, l.Bond(u(100)))
	require.NoError(t, l.Check())
	assert.Equal(t, uint64(100), l.Active.Uint64())
	assert.Equal(t, uint64(100), l.Total.Uint64())

	require.NoError(t, l.Unlock(u(50), timeunit.NewEra(10)))
	require.NoError(t, l.Check())
	assert.Equal(t, uint64(50), l.Active.Uint64())
	assert.Equal(t, uint64(100), l.Total.Uint64())
	assert.Equal(t, []UnlockChunk{chunk(50, timeunit.NewEra(10))}, l.Unlocking)

	freed, err := l.Liquidize(timeunit.NewEra(9))
	require.NoError(t, err)
	assert.True(t, freed.IsZero())
	assert.Len(t, l.Unlocking, 1)

	freed, err = l.Liquidize(timeunit.NewEra(11))
	require.NoError(t, err)
	assert.Equal(t, uint64(50), freed.Uint64())
	assert.Equal(t, uint64(50), l.Active.Uint64())
	assert.Equal(t, uint64(50), l.Total.Uint64())
	assert.Empty(t, l.Unlocking)
	require.NoError(t, l.Check())
}

func TestSingleValidatorRebond(t *testing.T) {
	l := NewSingleValidator(account)
	require.NoError(t, l.Bond(u(100)))
	require.NoError(t, l.Unlock(u(30), timeunit.NewEra(10)))
	require.NoError(t, l.Unlock(u(20), timeunit.NewEra(11)))

	require.NoError(t, l.Rebond(u(25)))
	assert.Equal(t, []UnlockChunk{chunk(25, timeunit.NewEra(10))}, l.Unlocking)
	assert.Equal(t, uint64(75), l.Active.Uint64())
	require.NoError(t, l.Check())

	err := l.Rebond(u(30))
	assert.True(t, slp.IsKind(err, slp.InvariantViolation))
	assert.Equal(t, []UnlockChunk{chunk(25, timeunit.NewEra(10))}, l.Unlocking, "failed rebond must not touch chunks")
	assert.Equal(t, uint64(25), l.UnlockingTotal().Uint64())
}

func TestSingleValidatorErrors(t *testing.T) {
	l := NewSingleValidator(account)
	require.NoError(t, l.Bond(u(10)))

	assert.True(t, slp.IsKind(l.Unlock(u(11), timeunit.NewEra(1)), slp.InvariantViolation))
	assert.True(t, slp.IsKind(l.Unlock(u(0), timeunit.NewEra(1)), slp.InvariantViolation))

	require.NoError(t, l.Unlock(u(5), timeunit.NewEra(3)))
	_, err := l.Liquidize(timeunit.NewRound(4))
	assert.ErrorIs(t, err, timeunit.ErrIncomparable)
	assert.True(t, slp.IsKind(err, slp.InvariantViolation))

	l.Total = *u(11)
	assert.True(t, slp.IsKind(l.Check(), slp.InvariantViolation))
}

func TestSingleValidatorClone(t *testing.T) {
	l := NewSingleValidator(account)
	require.NoError(t, l.Bond(u(10)))
	require.NoError(t, l.Unlock(u(5), timeunit.NewEra(3)))

	c := l.Clone().(*SingleValidator)
	require.NoError(t, c.Rebond(u(2)))
	require.NoError(t, c.Bond(u(1)))

	assert.Equal(t, uint64(5), l.Active.Uint64())
	assert.Equal(t, []UnlockChunk{chunk(5, timeunit.NewEra(3))}, l.Unlocking)
	assert.False(t, l.IsEmpty())
	assert.True(t, NewSingleValidator(account).IsEmpty())
}

func TestSingleValidatorUnlockOutOfOrder(t *testing.T) {
	l := NewSingleValidator(account)
	require.NoError(t, l.Bond(u(100)))
	require.NoError(t, l.Unlock(u(20), timeunit.NewEra(15)))
	require.NoError(t, l.Unlock(u(10), timeunit.NewEra(10)))
	require.NoError(t, l.Unlock(u(5), timeunit.NewEra(15)))
	require.NoError(t, l.Check())
	assert.Equal(t, []UnlockChunk{
		chunk(10, timeunit.NewEra(10)),
		chunk(20, timeunit.NewEra(15)),
		chunk(5, timeunit.NewEra(15)),
	}, l.Unlocking)

	// the latest chunk goes first on rebond
	require.NoError(t, l.Rebond(u(5)))
	assert.Equal(t, []UnlockChunk{chunk(10, timeunit.NewEra(10)), chunk(20, timeunit.NewEra(15))}, l.Unlocking)

	freed, err := l.Liquidize(timeunit.NewEra(12))
	require.NoError(t, err)
	assert.Equal(t, uint64(10), freed.Uint64())
	assert.Equal(t, []UnlockChunk{chunk(20, timeunit.NewEra(15))}, l.Unlocking)

	err = l.Unlock(u(1), timeunit.NewRound(1))
	assert.True(t, slp.IsKind(err, slp.InvariantViolation))
	assert.Equal(t, uint64(75), l.Active.Uint64(), "refused unlock must not touch the active stake")
}
