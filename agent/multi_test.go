// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package agent_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/slp/agent"
	"github.com/vechain/slp/ledger"
	"github.com/vechain/slp/policy"
	"github.com/vechain/slp/slp"
	"github.com/vechain/slp/timeunit"
)

func newMulti(t *testing.T) *fixture {
	return newFixture(t, ledger.KindMultiValidator, "MOVR", &policy.Delays{
		UnlockDelay:          timeunit.NewRound(2),
		LeaveDelegatorsDelay: timeunit.NewRound(3),
	}, timeunit.NewRound(1))
}

func (f *fixture) multi(t *testing.T) *ledger.MultiValidator {
	t.Helper()
	l, ok, err := f.backend.Ledgers.Get(f.currency, f.delegator)
	require.NoError(t, err)
	require.True(t, ok)
	return l.(*ledger.MultiValidator)
}

func delegated(t *testing.T, l *ledger.MultiValidator, v slp.Address) uint64 {
	amount, ok := l.Delegation(v)
	if !ok {
		return 0
	}
	return amount.Uint64()
}

func TestMultiDelegations(t *testing.T) {
	ctx := context.Background()
	f := newMulti(t)

	_, err := f.agent.Bond(ctx, f.delegator, u(60), nil)
	isKind(t, err, slp.PolicyViolation)
	rogue := slp.BytesToAddress([]byte("rogue"))
	_, err = f.agent.Bond(ctx, f.delegator, u(60), &rogue)
	isKind(t, err, slp.PolicyViolation)

	id, err := f.agent.Bond(ctx, f.delegator, u(60), &v1)
	require.NoError(t, err)
	assert.Equal(t, submission{[]byte(agent.MethodDelegate.String()), id}, f.transport.last())
	f.confirm(t, id)
	id, err = f.agent.Bond(ctx, f.delegator, u(40), &v2)
	require.NoError(t, err)
	f.confirm(t, id)

	_, err = f.agent.Bond(ctx, f.delegator, u(10), &v1)
	isKind(t, err, slp.PolicyViolation)
	_, err = f.agent.Bond(ctx, f.delegator, u(10), &v3)
	isKind(t, err, slp.PolicyViolation)
	_, err = f.agent.BondExtra(ctx, f.delegator, u(10), &v3)
	isKind(t, err, slp.PolicyViolation)

	id, err = f.agent.BondExtra(ctx, f.delegator, u(10), &v1)
	require.NoError(t, err)
	f.confirm(t, id)

	l := f.multi(t)
	assert.Equal(t, uint64(110), l.Total.Uint64())
	assert.Equal(t, uint64(70), delegated(t, l, v1))
	assert.Equal(t, uint64(40), delegated(t, l, v2))
	require.NoError(t, l.Check())

	assert.True(t, slp.IsKind(f.agent.Chill(ctx, f.delegator), slp.UnsupportedOperation))
	_, err = f.agent.Delegate(ctx, f.delegator, []slp.Address{v1})
	isKind(t, err, slp.UnsupportedOperation)
}

func TestMultiRequests(t *testing.T) {
	ctx := context.Background()
	f := newMulti(t)
	for _, d := range []struct {
		v      slp.Address
		amount uint64
	}{{v1, 70}, {v2, 40}} {
		id, err := f.agent.Bond(ctx, f.delegator, u(d.amount), &d.v)
		require.NoError(t, err)
		f.confirm(t, id)
	}

	_, err := f.agent.Unbond(ctx, f.delegator, u(70), &v1)
	isKind(t, err, slp.PolicyViolation)
	_, err = f.agent.Unbond(ctx, f.delegator, u(67), &v1)
	isKind(t, err, slp.PolicyViolation)

	id, err := f.agent.Unbond(ctx, f.delegator, u(30), &v1)
	require.NoError(t, err)
	f.confirm(t, id)

	l := f.multi(t)
	assert.Equal(t, uint64(110), l.Total.Uint64())
	assert.Equal(t, uint64(30), l.LessTotal.Uint64())
	assert.Equal(t, uint64(40), delegated(t, l, v1))
	r, ok := l.Request(v1)
	require.True(t, ok)
	assert.Equal(t, ledger.ActionDecrease, r.Action)
	assert.Equal(t, timeunit.NewRound(3), r.WhenExecutable)

	_, err = f.agent.Unbond(ctx, f.delegator, u(5), &v1)
	isKind(t, err, slp.PolicyViolation)

	// not executable before round 3
	_, err = f.agent.Liquidize(ctx, f.delegator, &v1)
	isKind(t, err, slp.PolicyViolation)
	f.advance(t, timeunit.NewRound(3))
	id, err = f.agent.Liquidize(ctx, f.delegator, &v1)
	require.NoError(t, err)
	f.confirm(t, id)

	l = f.multi(t)
	assert.Equal(t, uint64(80), l.Total.Uint64())
	assert.True(t, l.LessTotal.IsZero())
	assert.Equal(t, uint64(30), f.balance(t, f.delegator))

	id, err = f.agent.Undelegate(ctx, f.delegator, []slp.Address{v2})
	require.NoError(t, err)
	f.confirm(t, id)
	l = f.multi(t)
	assert.Equal(t, uint64(0), delegated(t, l, v2))
	assert.Equal(t, uint64(40), l.LessTotal.Uint64())
	require.NoError(t, l.Check())

	_, err = f.agent.Rebond(ctx, f.delegator, nil, nil)
	isKind(t, err, slp.PolicyViolation)
	id, err = f.agent.Rebond(ctx, f.delegator, nil, &v2)
	require.NoError(t, err)
	f.confirm(t, id)
	l = f.multi(t)
	assert.Equal(t, uint64(40), delegated(t, l, v2))
	assert.True(t, l.LessTotal.IsZero())
	assert.Empty(t, l.Requests)
}

func TestMultiLeave(t *testing.T) {
	ctx := context.Background()
	f := newMulti(t)
	for _, v := range []slp.Address{v1, v2} {
		id, err := f.agent.Bond(ctx, f.delegator, u(40), &v)
		require.NoError(t, err)
		f.confirm(t, id)
	}

	id, err := f.agent.UnbondAll(ctx, f.delegator)
	require.NoError(t, err)
	f.confirm(t, id)

	l := f.multi(t)
	assert.True(t, l.IsLeaving())
	assert.Equal(t, timeunit.NewRound(4), *l.LeavingAt)
	assert.Equal(t, l.Total, l.LessTotal)
	assert.Empty(t, l.Delegations)

	_, err = f.agent.Bond(ctx, f.delegator, u(10), &v3)
	isKind(t, err, slp.PolicyViolation)
	_, err = f.agent.BondExtra(ctx, f.delegator, u(10), &v1)
	isKind(t, err, slp.PolicyViolation)
	_, err = f.agent.Liquidize(ctx, f.delegator, nil)
	isKind(t, err, slp.PolicyViolation)

	id, err = f.agent.Redelegate(ctx, f.delegator, nil)
	require.NoError(t, err)
	f.confirm(t, id)
	l = f.multi(t)
	assert.False(t, l.IsLeaving())
	assert.Equal(t, uint64(40), delegated(t, l, v1))
	assert.Equal(t, uint64(40), delegated(t, l, v2))

	_, err = f.agent.Redelegate(ctx, f.delegator, nil)
	isKind(t, err, slp.PolicyViolation)

	id, err = f.agent.UnbondAll(ctx, f.delegator)
	require.NoError(t, err)
	f.confirm(t, id)
	f.advance(t, timeunit.NewRound(4))
	id, err = f.agent.Liquidize(ctx, f.delegator, nil)
	require.NoError(t, err)
	f.confirm(t, id)

	assert.Equal(t, uint64(80), f.balance(t, f.delegator))
	_, ok, err := f.backend.Ledgers.Get(f.currency, f.delegator)
	require.NoError(t, err)
	assert.False(t, ok, "an emptied ledger is dropped")
}

func TestMultiPayout(t *testing.T) {
	f := newMulti(t)
	require.NoError(t, f.agent.Payout(context.Background(), f.delegator, v1, timeunit.NewRound(1)))
	assert.Equal(t, uint64(0), f.transport.last().id)
	assert.Equal(t, 0, f.pendingLen(t))
}
