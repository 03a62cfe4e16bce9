// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package agent

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/vechain/slp/ledger"
	"github.com/vechain/slp/pending"
	"github.com/vechain/slp/slp"
	"github.com/vechain/slp/timeunit"
)

// LockAgent drives lock then stake positions, as dApp staking does.
// Bond locks, Unbond unlocks, Rebond relocks and Liquidize claims what unlocked.
type LockAgent struct {
	base
}

var _ StakingAgent = (*LockAgent)(nil)

func NewLockAgent(currency slp.Currency, encoder Encoder, backend *Backend) *LockAgent {
	return &LockAgent{base{
		Backend:  backend,
		currency: currency,
		kind:     ledger.KindLock,
		encoder:  encoder,
	}}
}

func (a *LockAgent) ledger(delegator slp.Address) (*ledger.Lock, error) {
	return mustGet[*ledger.Lock](&a.base, delegator)
}

func (a *LockAgent) Bond(ctx context.Context, delegator slp.Address, amount *uint256.Int, _ *slp.Address) (uint64, error) {
	return a.lock(ctx, delegator, amount)
}

func (a *LockAgent) BondExtra(ctx context.Context, delegator slp.Address, amount *uint256.Int, _ *slp.Address) (uint64, error) {
	return a.lock(ctx, delegator, amount)
}

func (a *LockAgent) lock(ctx context.Context, delegator slp.Address, amount *uint256.Int) (uint64, error) {
	mm, _, err := a.policy()
	if err != nil {
		return 0, err
	}
	locked := new(uint256.Int)
	if l, ok, err := get[*ledger.Lock](&a.base, delegator); err != nil {
		return 0, err
	} else if ok {
		locked = &l.Locked
	}
	if err := mm.CheckBond(amount, locked); err != nil {
		return 0, err
	}
	return a.dispatch(ctx,
		&Call{Method: MethodLock, Delegator: delegator, Amount: amount},
		a.ledgerEntry(delegator, pending.OpBond, amount))
}

func (a *LockAgent) Unbond(ctx context.Context, delegator slp.Address, amount *uint256.Int, _ *slp.Address) (uint64, error) {
	return a.unlock(ctx, delegator, amount, false)
}

func (a *LockAgent) UnbondAll(ctx context.Context, delegator slp.Address) (uint64, error) {
	return a.unlock(ctx, delegator, nil, true)
}

// unlock starts unlocking. The unlock time never precedes the latest chunk,
// recorded or in flight, so chunks stay ordered even if the delay shrinks.
func (a *LockAgent) unlock(ctx context.Context, delegator slp.Address, amount *uint256.Int, all bool) (uint64, error) {
	mm, delays, err := a.policy()
	if err != nil {
		return 0, err
	}
	l, err := a.ledger(delegator)
	if err != nil {
		return 0, err
	}
	inflight, n, latest, err := a.inflightUnlocks(delegator)
	if err != nil {
		return 0, err
	}
	locked, err := effective(&l.Locked, inflight)
	if err != nil {
		return 0, err
	}
	if all {
		if locked.IsZero() {
			return 0, violation("delegator %v has nothing locked", delegator)
		}
		amount = locked
	}
	if err := mm.CheckUnbond(amount, locked); err != nil {
		return 0, err
	}
	if err := mm.CheckUnlockRecords(len(l.Unlocking) + n); err != nil {
		return 0, err
	}
	at, err := a.unlockTime(delays.UnlockDelay)
	if err != nil {
		return 0, err
	}
	if len(l.Unlocking) > 0 {
		at = later(at, l.Unlocking[len(l.Unlocking)-1].UnlockTime)
	}
	if latest != nil {
		at = later(at, *latest)
	}

	entry := a.ledgerEntry(delegator, pending.OpUnlock, amount)
	entry.Ledger.UnlockTime = &at
	return a.dispatch(ctx, &Call{Method: MethodUnlock, Delegator: delegator, Amount: amount}, entry)
}

func later(a, b timeunit.TimeUnit) timeunit.TimeUnit {
	if c, err := a.Cmp(b); err == nil && c < 0 {
		return b
	}
	return a
}

func (a *LockAgent) Rebond(ctx context.Context, delegator slp.Address, amount *uint256.Int, _ *slp.Address) (uint64, error) {
	mm, _, err := a.policy()
	if err != nil {
		return 0, err
	}
	l, err := a.ledger(delegator)
	if err != nil {
		return 0, err
	}
	if err := mm.CheckRebond(amount, l.UnlockingTotal()); err != nil {
		return 0, err
	}
	if err := mm.CheckActiveCeiling(amount, &l.Locked); err != nil {
		return 0, err
	}
	return a.dispatch(ctx,
		&Call{Method: MethodRelock, Delegator: delegator, Amount: amount},
		a.ledgerEntry(delegator, pending.OpRebond, amount))
}

func (a *LockAgent) Liquidize(ctx context.Context, delegator slp.Address, _ *slp.Address) (uint64, error) {
	l, err := a.ledger(delegator)
	if err != nil {
		return 0, err
	}
	if len(l.Unlocking) == 0 {
		return 0, violation("delegator %v has nothing unlocking", delegator)
	}
	return a.dispatch(ctx,
		&Call{Method: MethodClaimUnlocked, Delegator: delegator},
		a.ledgerEntry(delegator, pending.OpLiquidize, nil))
}

func (a *LockAgent) Delegate(context.Context, slp.Address, []slp.Address) (uint64, error) {
	return 0, unsupported(a.kind, "delegate")
}

func (a *LockAgent) Undelegate(context.Context, slp.Address, []slp.Address) (uint64, error) {
	return 0, unsupported(a.kind, "undelegate")
}

func (a *LockAgent) Redelegate(context.Context, slp.Address, []slp.Address) (uint64, error) {
	return 0, unsupported(a.kind, "redelegate")
}

func (a *LockAgent) Payout(context.Context, slp.Address, slp.Address, timeunit.TimeUnit) error {
	return unsupported(a.kind, "payout")
}

func (a *LockAgent) Chill(context.Context, slp.Address) error {
	return unsupported(a.kind, "chill")
}

func (a *LockAgent) Apply(entry *pending.Entry) error {
	if done, err := a.applyCommon(entry); done || err != nil {
		return err
	}
	u := entry.Ledger

	var create func() *ledger.Lock
	if u.Operation == pending.OpBond {
		create = func() *ledger.Lock { return ledger.NewLock(u.Delegator) }
	}
	l, err := load(&a.base, u.Delegator, create)
	if err != nil {
		return err
	}

	var freed *uint256.Int
	switch u.Operation {
	case pending.OpBond:
		err = l.Lock(&u.Amount)
	case pending.OpUnlock:
		var at timeunit.TimeUnit
		if at, err = unlockTimeOf(u); err == nil {
			err = l.Unlock(&u.Amount, at)
		}
	case pending.OpRebond:
		err = l.Relock(&u.Amount)
	case pending.OpLiquidize:
		var now timeunit.TimeUnit
		if now, err = a.ongoing(); err == nil {
			freed, err = l.ClaimUnlocked(now)
		}
	default:
		return broken("%s entry on a lock ledger", pending.OperationName(u.Operation))
	}
	if err != nil {
		return err
	}
	return a.commit(u, l, freed)
}
