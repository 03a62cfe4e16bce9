// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package agent_test

import (
	"context"
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/slp/agent"
	"github.com/vechain/slp/balance"
	"github.com/vechain/slp/ledger"
	"github.com/vechain/slp/policy"
	"github.com/vechain/slp/slp"
	"github.com/vechain/slp/timeunit"
	"github.com/vechain/slp/validators"
)

func newSingle(t *testing.T) *fixture {
	return newFixture(t, ledger.KindSingleValidator, "KSM", &policy.Delays{UnlockDelay: timeunit.NewEra(10)}, timeunit.NewEra(0))
}

func (f *fixture) single(t *testing.T) *ledger.SingleValidator {
	t.Helper()
	l, ok, err := f.backend.Ledgers.Get(f.currency, f.delegator)
	require.NoError(t, err)
	require.True(t, ok)
	return l.(*ledger.SingleValidator)
}

func (f *fixture) bonded(t *testing.T, amount uint64) {
	t.Helper()
	id, err := f.agent.Bond(context.Background(), f.delegator, u(amount), nil)
	require.NoError(t, err)
	f.confirm(t, id)
}

func TestSingleBond(t *testing.T) {
	ctx := context.Background()
	f := newSingle(t)

	_, err := f.agent.Bond(ctx, f.delegator, u(5), nil)
	isKind(t, err, slp.PolicyViolation)

	id, err := f.agent.Bond(ctx, f.delegator, u(100), nil)
	require.NoError(t, err)
	assert.Equal(t, submission{[]byte(agent.MethodBond.String()), id}, f.transport.last())

	// nothing is mirrored before confirmation
	_, ok, err := f.backend.Ledgers.Get(f.currency, f.delegator)
	require.NoError(t, err)
	assert.False(t, ok)

	f.confirm(t, id)
	l := f.single(t)
	assert.Equal(t, uint64(100), l.Total.Uint64())
	assert.Equal(t, uint64(100), l.Active.Uint64())
	assert.Empty(t, l.Unlocking)

	_, err = f.agent.Bond(ctx, f.delegator, u(100), nil)
	isKind(t, err, slp.PolicyViolation)

	_, err = f.agent.BondExtra(ctx, f.delegator, u(1), nil)
	isKind(t, err, slp.PolicyViolation)
	_, err = f.agent.BondExtra(ctx, f.delegator, u(901), nil)
	isKind(t, err, slp.PolicyViolation)

	id, err = f.agent.BondExtra(ctx, f.delegator, u(20), nil)
	require.NoError(t, err)
	f.confirm(t, id)
	assert.Equal(t, uint64(120), f.single(t).Active.Uint64())
}

func TestSingleUnbondAndLiquidize(t *testing.T) {
	ctx := context.Background()
	f := newSingle(t)
	f.bonded(t, 100)

	id, err := f.agent.Unbond(ctx, f.delegator, u(50), nil)
	require.NoError(t, err)
	e, ok, err := f.backend.Queue.Get(id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, timeunit.NewEra(10), *e.Ledger.UnlockTime)

	f.confirm(t, id)
	l := f.single(t)
	assert.Equal(t, uint64(100), l.Total.Uint64())
	assert.Equal(t, uint64(50), l.Active.Uint64())
	require.Len(t, l.Unlocking, 1)
	assert.Equal(t, uint64(50), l.Unlocking[0].Value.Uint64())
	assert.Equal(t, timeunit.NewEra(10), l.Unlocking[0].UnlockTime)

	// nothing has matured yet
	id, err = f.agent.Liquidize(ctx, f.delegator, nil)
	require.NoError(t, err)
	f.confirm(t, id)
	assert.Equal(t, uint64(100), f.single(t).Total.Uint64())
	assert.Equal(t, uint64(0), f.balance(t, f.delegator))

	f.advance(t, timeunit.NewEra(11))
	id, err = f.agent.Liquidize(ctx, f.delegator, nil)
	require.NoError(t, err)
	f.confirm(t, id)
	l = f.single(t)
	assert.Equal(t, uint64(50), l.Total.Uint64())
	assert.Equal(t, uint64(50), l.Active.Uint64())
	assert.Empty(t, l.Unlocking)
	assert.Equal(t, uint64(50), f.balance(t, f.delegator))

	_, err = f.agent.Liquidize(ctx, f.delegator, nil)
	isKind(t, err, slp.PolicyViolation)
}

func TestSingleUnbondRejected(t *testing.T) {
	ctx := context.Background()
	f := newSingle(t)
	f.bonded(t, 100)
	id, err := f.agent.Unbond(ctx, f.delegator, u(50), nil)
	require.NoError(t, err)
	f.confirm(t, id)
	before := f.single(t)

	_, err = f.agent.Unbond(ctx, f.delegator, u(60), nil)
	isKind(t, err, slp.PolicyViolation)
	assert.Equal(t, before, f.single(t))
	assert.Equal(t, 0, f.pendingLen(t))
}

func TestSingleOneInFlight(t *testing.T) {
	ctx := context.Background()
	f := newSingle(t)

	id, err := f.agent.Bond(ctx, f.delegator, u(10), nil)
	require.NoError(t, err)

	_, err = f.agent.Bond(ctx, f.delegator, u(10), nil)
	isKind(t, err, slp.OperationInFlight)
	assert.Equal(t, 1, f.pendingLen(t))

	f.confirm(t, id)
	_, err = f.agent.BondExtra(ctx, f.delegator, u(5), nil)
	require.NoError(t, err)
}

func TestSingleConcurrentUnlocks(t *testing.T) {
	ctx := context.Background()
	f := newSingle(t)
	f.bonded(t, 100)

	first, err := f.agent.Unbond(ctx, f.delegator, u(20), nil)
	require.NoError(t, err)
	second, err := f.agent.Unbond(ctx, f.delegator, u(30), nil)
	require.NoError(t, err)

	// 50 is left once both land, 45 more would leave 5
	_, err = f.agent.Unbond(ctx, f.delegator, u(45), nil)
	isKind(t, err, slp.PolicyViolation)
	// other operations still wait
	_, err = f.agent.BondExtra(ctx, f.delegator, u(5), nil)
	isKind(t, err, slp.OperationInFlight)

	f.confirm(t, second)
	f.confirm(t, first)
	l := f.single(t)
	assert.Equal(t, uint64(100), l.Total.Uint64())
	assert.Equal(t, uint64(50), l.Active.Uint64())
	assert.Len(t, l.Unlocking, 2)
	require.NoError(t, l.Check())

	id, err := f.agent.UnbondAll(ctx, f.delegator)
	require.NoError(t, err)
	f.confirm(t, id)
	assert.True(t, f.single(t).Active.IsZero())
}

func TestSingleRebond(t *testing.T) {
	ctx := context.Background()
	f := newSingle(t)
	f.bonded(t, 100)
	id, err := f.agent.Unbond(ctx, f.delegator, u(40), nil)
	require.NoError(t, err)
	f.confirm(t, id)

	_, err = f.agent.Rebond(ctx, f.delegator, u(3), nil)
	isKind(t, err, slp.PolicyViolation)
	_, err = f.agent.Rebond(ctx, f.delegator, u(41), nil)
	isKind(t, err, slp.PolicyViolation)

	id, err = f.agent.Rebond(ctx, f.delegator, u(15), nil)
	require.NoError(t, err)
	f.confirm(t, id)
	l := f.single(t)
	assert.Equal(t, uint64(75), l.Active.Uint64())
	assert.Equal(t, uint64(25), l.UnlockingTotal().Uint64())
	require.NoError(t, l.Check())
}

func TestSingleNominations(t *testing.T) {
	ctx := context.Background()
	f := newSingle(t)

	_, err := f.agent.Delegate(ctx, f.delegator, []slp.Address{v1})
	isKind(t, err, slp.NotFound)

	f.bonded(t, 100)
	_, err = f.agent.Delegate(ctx, f.delegator, []slp.Address{slp.BytesToAddress([]byte("rogue"))})
	isKind(t, err, slp.PolicyViolation)
	_, err = f.agent.Delegate(ctx, f.delegator, []slp.Address{v1, v2, v3})
	isKind(t, err, slp.PolicyViolation)

	id, err := f.agent.Delegate(ctx, f.delegator, []slp.Address{v2, v1, v2})
	require.NoError(t, err)
	f.confirm(t, id)
	got, err := f.backend.Validators.ByDelegator(f.currency, f.delegator)
	require.NoError(t, err)
	assert.Equal(t, validators.Normalize([]slp.Address{v1, v2}), got)

	_, err = f.agent.Undelegate(ctx, f.delegator, []slp.Address{v1, v2})
	isKind(t, err, slp.PolicyViolation)

	id, err = f.agent.Undelegate(ctx, f.delegator, []slp.Address{v1})
	require.NoError(t, err)
	f.confirm(t, id)
	got, err = f.backend.Validators.ByDelegator(f.currency, f.delegator)
	require.NoError(t, err)
	assert.Equal(t, []slp.Address{v2}, got)

	id, err = f.agent.Redelegate(ctx, f.delegator, []slp.Address{v3})
	require.NoError(t, err)
	f.confirm(t, id)
	got, err = f.backend.Validators.ByDelegator(f.currency, f.delegator)
	require.NoError(t, err)
	assert.Equal(t, []slp.Address{v3}, got)
}

func TestSingleFireAndForget(t *testing.T) {
	ctx := context.Background()
	f := newSingle(t)
	f.bonded(t, 100)

	require.NoError(t, f.agent.Payout(ctx, f.delegator, v1, timeunit.NewEra(3)))
	assert.Equal(t, uint64(0), f.transport.last().id)
	require.NoError(t, f.agent.Chill(ctx, f.delegator))
	assert.Equal(t, submission{[]byte(agent.MethodChill.String()), 0}, f.transport.last())
	assert.Equal(t, 0, f.pendingLen(t))

	err := f.agent.Payout(ctx, f.delegator, v1, timeunit.TimeUnit{})
	isKind(t, err, slp.PolicyViolation)
}

func TestSingleApplyRefused(t *testing.T) {
	ctx := context.Background()
	f := newSingle(t)
	f.bonded(t, 100)
	id, err := f.agent.Unbond(ctx, f.delegator, u(40), nil)
	require.NoError(t, err)
	f.confirm(t, id)

	id, err = f.agent.Rebond(ctx, f.delegator, u(40), nil)
	require.NoError(t, err)
	e, _, err := f.backend.Queue.Get(id)
	require.NoError(t, err)

	// a rebond beyond what is unlocking cannot be mirrored
	e.Ledger.Amount = *u(41)
	before := f.single(t)
	isKind(t, f.agent.Apply(e), slp.InvariantViolation)
	assert.Equal(t, before, f.single(t))
}

func TestSingleUnbondsConfirmedOutOfOrder(t *testing.T) {
	ctx := context.Background()
	f := newSingle(t)
	f.bonded(t, 100)

	first, err := f.agent.Unbond(ctx, f.delegator, u(10), nil)
	require.NoError(t, err)
	f.advance(t, timeunit.NewEra(5))
	second, err := f.agent.Unbond(ctx, f.delegator, u(20), nil)
	require.NoError(t, err)

	f.confirm(t, second)
	f.confirm(t, first)
	l := f.single(t)
	require.NoError(t, l.Check())
	assert.Equal(t, uint64(70), l.Active.Uint64())
	assert.Equal(t, []ledger.UnlockChunk{
		{Value: *u(10), UnlockTime: timeunit.NewEra(10)},
		{Value: *u(20), UnlockTime: timeunit.NewEra(15)},
	}, l.Unlocking)
}

// refusingBook fails every credit.
type refusingBook struct{ *balance.Book }

func (refusingBook) Credit(slp.Currency, slp.Address, *uint256.Int) error {
	return errors.New("disk full")
}

func TestSingleLiquidizeCreditFailure(t *testing.T) {
	ctx := context.Background()
	f := newSingle(t)
	f.bonded(t, 100)
	id, err := f.agent.Unbond(ctx, f.delegator, u(40), nil)
	require.NoError(t, err)
	f.confirm(t, id)

	f.advance(t, timeunit.NewEra(10))
	id, err = f.agent.Liquidize(ctx, f.delegator, nil)
	require.NoError(t, err)
	e, ok, err := f.backend.Queue.Get(id)
	require.NoError(t, err)
	require.True(t, ok)

	f.backend.Currency = refusingBook{f.book}
	assert.Error(t, f.agent.Apply(e))
	l := f.single(t)
	assert.Equal(t, uint64(60), l.Total.Uint64(), "ledger follows the chain")
	assert.Empty(t, l.Unlocking)

	// applying again frees nothing, so no credit can be doubled
	f.backend.Currency = f.book
	require.NoError(t, f.agent.Apply(e))
	assert.Equal(t, uint64(0), f.balance(t, f.delegator))
}
