// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reconciler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/slp/agent"
	"github.com/vechain/slp/auditlog"
	"github.com/vechain/slp/balance"
	"github.com/vechain/slp/delegator"
	"github.com/vechain/slp/encoder"
	"github.com/vechain/slp/health"
	"github.com/vechain/slp/ledger"
	"github.com/vechain/slp/lvldb"
	"github.com/vechain/slp/pending"
	"github.com/vechain/slp/policy"
	"github.com/vechain/slp/registry"
	"github.com/vechain/slp/slp"
	"github.com/vechain/slp/timeunit"
	"github.com/vechain/slp/transport"
	"github.com/vechain/slp/validators"
)

type fakeSettler struct {
	mu      sync.Mutex
	confirm func(transport.Confirmation) (*registry.Settlement, error)
	sweeps  int
}

func (f *fakeSettler) Confirm(c transport.Confirmation) (*registry.Settlement, error) {
	return f.confirm(c)
}

func (f *fakeSettler) Sweep(time.Time, time.Duration, int) ([]*registry.Settlement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweeps++
	return nil, nil
}

func TestRunHaltsOnInvariantViolation(t *testing.T) {
	audit, err := auditlog.NewMem()
	require.NoError(t, err)
	defer audit.Close()

	settler := &fakeSettler{confirm: func(c transport.Confirmation) (*registry.Settlement, error) {
		switch c.ID {
		case 1:
			return &registry.Settlement{ID: 1, Result: registry.Stale}, slp.NewError(slp.StaleConfirmation, "gone")
		case 2:
			return nil, slp.NewError(slp.NotFound, "no agent")
		}
		return nil, slp.NewError(slp.InvariantViolation, "broken")
	}}
	ch := make(chan transport.Confirmation, 3)
	ch <- transport.Confirmation{ID: 1, Outcome: transport.Success}
	ch <- transport.Confirmation{ID: 2, Outcome: transport.Success}
	ch <- transport.Confirmation{ID: 3, Outcome: transport.Success}

	h := &health.Health{}
	r := New(settler, audit, ch, Options{Timeout: time.Minute, SweepInterval: time.Hour, Health: h})
	err = r.Run(context.Background())
	assert.True(t, slp.IsKind(err, slp.InvariantViolation))

	status := h.Status()
	assert.False(t, status.Healthy)
	assert.NotEmpty(t, status.HaltedBy)
	assert.Equal(t, uint64(1), status.Reconciliation.LastSettled)

	records, err := audit.Filter(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "stale", records[0].Result)
	assert.Equal(t, uint64(1), records[0].ID)
}

func TestRunStops(t *testing.T) {
	settler := &fakeSettler{}

	ch := make(chan transport.Confirmation)
	close(ch)
	assert.NoError(t, New(settler, nil, ch, Options{}).Run(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- New(settler, nil, make(chan transport.Confirmation), Options{Timeout: time.Minute, SweepInterval: time.Millisecond}).Run(ctx)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	assert.NoError(t, <-done)

	settler.mu.Lock()
	assert.NotZero(t, settler.sweeps)
	settler.sweeps = 0
	settler.mu.Unlock()

	// without a timeout nothing is swept
	ctx, cancel = context.WithCancel(context.Background())
	go func() {
		done <- New(settler, nil, make(chan transport.Confirmation), Options{SweepInterval: time.Millisecond}).Run(ctx)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	assert.NoError(t, <-done)

	settler.mu.Lock()
	defer settler.mu.Unlock()
	assert.Zero(t, settler.sweeps)
}

const ksm = slp.Currency("KSM")

func newSystem(t *testing.T, clock func() time.Time, delay time.Duration) (*registry.Registry, *transport.Loopback, slp.Address) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	loopback := transport.NewLoopback(delay)
	t.Cleanup(loopback.Close)

	policies := policy.NewStore(db)
	ledgers, err := ledger.NewStore(db, 16)
	require.NoError(t, err)
	queue, err := pending.NewQueue(db)
	require.NoError(t, err)
	backend := &agent.Backend{
		Ledgers:    ledgers,
		Queue:      queue,
		Policies:   policies,
		Delegators: delegator.NewAllocator(db, policies),
		Validators: validators.NewStore(db, policies),
		Transport:  loopback,
		Currency:   balance.NewBook(db),
		Clock:      clock,
	}
	backend.Delegators.SetDeriver(ksm, delegator.SubstrateDeriver{Parent: slp.BytesToAddress([]byte("parent"))})

	reg := registry.New(backend)
	a, err := agent.New(ledger.KindSingleValidator, ksm, encoder.New(encoder.Kusama), backend)
	require.NoError(t, err)
	require.NoError(t, reg.Register(a))
	require.NoError(t, reg.SetMinimumsMaximums(ksm, &policy.MinimumsMaximums{
		DelegatorBondedMinimum:        *uint256.NewInt(10),
		UnbondRecordMaximum:           4,
		ValidatorsBackMaximum:         4,
		DelegatorActiveStakingMaximum: *uint256.NewInt(1000),
		DelegatorsMaximum:             4,
		ValidatorsMaximum:             4,
	}))
	require.NoError(t, reg.SetDelays(ksm, &policy.Delays{UnlockDelay: timeunit.NewEra(10)}))
	require.NoError(t, reg.UpdateOngoingTimeUnit(ksm, timeunit.NewEra(0)))
	_, d, err := reg.InitializeDelegator(ksm)
	require.NoError(t, err)
	return reg, loopback, d
}

func TestReconcile(t *testing.T) {
	reg, loopback, d := newSystem(t, nil, 0)
	audit, err := auditlog.NewMem()
	require.NoError(t, err)
	defer audit.Close()

	ch := make(chan transport.Confirmation, 8)
	sub := loopback.SubscribeConfirmations(ch)
	defer sub.Unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- New(reg, audit, ch, Options{Timeout: time.Hour, SweepInterval: time.Hour}).Run(ctx)
	}()

	id, err := reg.Dispatch(ctx, &registry.Request{Operation: registry.OpBond, Currency: ksm, Delegator: d, Amount: uint256.NewInt(100)})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		l, err := reg.Ledger(ksm, d)
		return err == nil && l.(*ledger.SingleValidator).Active.Uint64() == 100
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		records, err := audit.Filter(context.Background(), &auditlog.Filter{ID: &id})
		return err == nil && len(records) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	records, err := audit.Filter(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "applied", records[0].Result)
	assert.Equal(t, "bond", records[0].Operation)
	assert.Equal(t, "100", records[0].Amount)
	assert.Equal(t, d, records[0].Delegator)
}

func TestTimeoutThenLateConfirmation(t *testing.T) {
	// entries are created long before the sweeps run
	created := time.Unix(1_700_000_000, 0)
	reg, _, d := newSystem(t, func() time.Time { return created }, time.Hour)
	audit, err := auditlog.NewMem()
	require.NoError(t, err)
	defer audit.Close()

	id, err := reg.Dispatch(context.Background(), &registry.Request{Operation: registry.OpBond, Currency: ksm, Delegator: d, Amount: uint256.NewInt(100)})
	require.NoError(t, err)

	ch := make(chan transport.Confirmation)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- New(reg, audit, ch, Options{Timeout: time.Minute, SweepInterval: 5 * time.Millisecond, MaxSweep: 10}).Run(ctx)
	}()

	results := func() []string {
		records, err := audit.Filter(context.Background(), &auditlog.Filter{ID: &id})
		if err != nil {
			return nil
		}
		var list []string
		for _, r := range records {
			list = append(list, r.Result)
		}
		return list
	}
	require.Eventually(t, func() bool { return len(results()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"timed_out"}, results())

	ch <- transport.Confirmation{ID: id, Outcome: transport.Success}
	require.Eventually(t, func() bool { return len(results()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"timed_out", "stale"}, results())

	cancel()
	require.NoError(t, <-done)

	_, err = reg.Ledger(ksm, d)
	assert.True(t, slp.IsKind(err, slp.NotFound), "a late confirmation changes nothing")
}
