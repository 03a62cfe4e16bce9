// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package agent

import (
	"context"
	"slices"

	"github.com/holiman/uint256"

	"github.com/vechain/slp/ledger"
	"github.com/vechain/slp/pending"
	"github.com/vechain/slp/slp"
	"github.com/vechain/slp/timeunit"
	"github.com/vechain/slp/validators"
)

// SingleValidatorAgent drives bonded ledgers nominating a validator set,
// as relay chains do.
type SingleValidatorAgent struct {
	base
}

var _ StakingAgent = (*SingleValidatorAgent)(nil)

func NewSingleValidatorAgent(currency slp.Currency, encoder Encoder, backend *Backend) *SingleValidatorAgent {
	return &SingleValidatorAgent{base{
		Backend:  backend,
		currency: currency,
		kind:     ledger.KindSingleValidator,
		encoder:  encoder,
	}}
}

func (a *SingleValidatorAgent) ledger(delegator slp.Address) (*ledger.SingleValidator, error) {
	return mustGet[*ledger.SingleValidator](&a.base, delegator)
}

// Bond opens the position of delegator.
func (a *SingleValidatorAgent) Bond(ctx context.Context, delegator slp.Address, amount *uint256.Int, _ *slp.Address) (uint64, error) {
	mm, _, err := a.policy()
	if err != nil {
		return 0, err
	}
	if _, ok, err := get[*ledger.SingleValidator](&a.base, delegator); err != nil {
		return 0, err
	} else if ok {
		return 0, violation("delegator %v is bonded already, bond extra instead", delegator)
	}
	if err := mm.CheckBond(amount, new(uint256.Int)); err != nil {
		return 0, err
	}
	return a.dispatch(ctx,
		&Call{Method: MethodBond, Delegator: delegator, Amount: amount},
		a.ledgerEntry(delegator, pending.OpBond, amount))
}

func (a *SingleValidatorAgent) BondExtra(ctx context.Context, delegator slp.Address, amount *uint256.Int, _ *slp.Address) (uint64, error) {
	mm, _, err := a.policy()
	if err != nil {
		return 0, err
	}
	l, err := a.ledger(delegator)
	if err != nil {
		return 0, err
	}
	if err := mm.CheckBond(amount, &l.Active); err != nil {
		return 0, err
	}
	return a.dispatch(ctx,
		&Call{Method: MethodBondExtra, Delegator: delegator, Amount: amount},
		a.ledgerEntry(delegator, pending.OpBond, amount))
}

// Unbond starts unlocking amount of the active stake. Unlocks may be in flight
// together, each one is checked against the stake the others leave.
func (a *SingleValidatorAgent) Unbond(ctx context.Context, delegator slp.Address, amount *uint256.Int, _ *slp.Address) (uint64, error) {
	return a.unbond(ctx, delegator, amount, false)
}

func (a *SingleValidatorAgent) UnbondAll(ctx context.Context, delegator slp.Address) (uint64, error) {
	return a.unbond(ctx, delegator, nil, true)
}

func (a *SingleValidatorAgent) unbond(ctx context.Context, delegator slp.Address, amount *uint256.Int, all bool) (uint64, error) {
	mm, delays, err := a.policy()
	if err != nil {
		return 0, err
	}
	l, err := a.ledger(delegator)
	if err != nil {
		return 0, err
	}
	inflight, n, _, err := a.inflightUnlocks(delegator)
	if err != nil {
		return 0, err
	}
	active, err := effective(&l.Active, inflight)
	if err != nil {
		return 0, err
	}
	if all {
		if active.IsZero() {
			return 0, violation("delegator %v has nothing active to unbond", delegator)
		}
		amount = active
	}
	if err := mm.CheckUnbond(amount, active); err != nil {
		return 0, err
	}
	if err := mm.CheckUnlockRecords(len(l.Unlocking) + n); err != nil {
		return 0, err
	}
	at, err := a.unlockTime(delays.UnlockDelay)
	if err != nil {
		return 0, err
	}

	entry := a.ledgerEntry(delegator, pending.OpUnlock, amount)
	entry.Ledger.UnlockTime = &at
	return a.dispatch(ctx, &Call{Method: MethodUnbond, Delegator: delegator, Amount: amount}, entry)
}

// Rebond returns amount of the unlocking stake to the active stake.
func (a *SingleValidatorAgent) Rebond(ctx context.Context, delegator slp.Address, amount *uint256.Int, _ *slp.Address) (uint64, error) {
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
	if err := mm.CheckActiveCeiling(amount, &l.Active); err != nil {
		return 0, err
	}
	return a.dispatch(ctx,
		&Call{Method: MethodRebond, Delegator: delegator, Amount: amount},
		a.ledgerEntry(delegator, pending.OpRebond, amount))
}

// Delegate nominates targets, replacing the current nominations.
func (a *SingleValidatorAgent) Delegate(ctx context.Context, delegator slp.Address, targets []slp.Address) (uint64, error) {
	if _, err := a.ledger(delegator); err != nil {
		return 0, err
	}
	return a.nominate(ctx, delegator, validators.Normalize(targets))
}

// Undelegate drops targets from the current nominations. At least one nomination must remain.
func (a *SingleValidatorAgent) Undelegate(ctx context.Context, delegator slp.Address, targets []slp.Address) (uint64, error) {
	if len(targets) == 0 {
		return 0, violation("no validator given")
	}
	if _, err := a.ledger(delegator); err != nil {
		return 0, err
	}
	current, err := a.Validators.ByDelegator(a.currency, delegator)
	if err != nil {
		return 0, err
	}
	if len(current) == 0 {
		return 0, slp.NewError(slp.NotFound, "delegator %v nominates no validator", delegator)
	}
	remaining := slices.DeleteFunc(slices.Clone(current), func(v slp.Address) bool {
		return slices.Contains(targets, v)
	})
	if len(remaining) == 0 {
		return 0, violation("undelegating would leave no validator, chill instead")
	}
	return a.nominate(ctx, delegator, remaining)
}

// Redelegate nominates a new validator set.
func (a *SingleValidatorAgent) Redelegate(ctx context.Context, delegator slp.Address, targets []slp.Address) (uint64, error) {
	return a.Delegate(ctx, delegator, targets)
}

func (a *SingleValidatorAgent) nominate(ctx context.Context, delegator slp.Address, set []slp.Address) (uint64, error) {
	mm, _, err := a.policy()
	if err != nil {
		return 0, err
	}
	if err := mm.CheckValidatorsBack(len(set)); err != nil {
		return 0, err
	}
	if err := a.Validators.CheckWhitelisted(a.currency, set...); err != nil {
		return 0, err
	}
	entry := &pending.Entry{Validators: &pending.ValidatorsByDelegatorUpdateEntry{
		Currency:   a.currency,
		Delegator:  delegator,
		Validators: set,
	}}
	return a.dispatch(ctx, &Call{Method: MethodNominate, Delegator: delegator, Validators: set}, entry)
}

// Liquidize withdraws the unlocking chunks matured by the time the call is confirmed.
func (a *SingleValidatorAgent) Liquidize(ctx context.Context, delegator slp.Address, _ *slp.Address) (uint64, error) {
	l, err := a.ledger(delegator)
	if err != nil {
		return 0, err
	}
	if len(l.Unlocking) == 0 {
		return 0, violation("delegator %v has nothing unlocking", delegator)
	}
	return a.dispatch(ctx,
		&Call{Method: MethodWithdrawUnbonded, Delegator: delegator},
		a.ledgerEntry(delegator, pending.OpLiquidize, nil))
}

func (a *SingleValidatorAgent) Payout(ctx context.Context, delegator, validator slp.Address, when timeunit.TimeUnit) error {
	return a.payout(ctx, delegator, validator, when)
}

// Chill stops nominating. The bonded stake is untouched.
func (a *SingleValidatorAgent) Chill(ctx context.Context, delegator slp.Address) error {
	if _, err := a.ledger(delegator); err != nil {
		return err
	}
	_, err := a.dispatch(ctx, &Call{Method: MethodChill, Delegator: delegator}, nil)
	return err
}

func (a *SingleValidatorAgent) Apply(entry *pending.Entry) error {
	if done, err := a.applyCommon(entry); done || err != nil {
		return err
	}
	u := entry.Ledger

	var create func() *ledger.SingleValidator
	if u.Operation == pending.OpBond {
		create = func() *ledger.SingleValidator { return ledger.NewSingleValidator(u.Delegator) }
	}
	l, err := load(&a.base, u.Delegator, create)
	if err != nil {
		return err
	}

	var freed *uint256.Int
	switch u.Operation {
	case pending.OpBond:
		err = l.Bond(&u.Amount)
	case pending.OpUnlock:
		var at timeunit.TimeUnit
		if at, err = unlockTimeOf(u); err == nil {
			err = l.Unlock(&u.Amount, at)
		}
	case pending.OpRebond:
		err = l.Rebond(&u.Amount)
	case pending.OpLiquidize:
		var now timeunit.TimeUnit
		if now, err = a.ongoing(); err == nil {
			freed, err = l.Liquidize(now)
		}
	default:
		return broken("%s entry on a single validator ledger", pending.OperationName(u.Operation))
	}
	if err != nil {
		return err
	}
	return a.commit(u, l, freed)
}
