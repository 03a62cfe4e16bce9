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

// MultiValidatorAgent drives delegators spreading stake over several
// validators with scheduled decrease and revoke requests, as parachain
// staking does.
//
// The generic operations map onto the model as follows: Unbond schedules a
// bond-less request, Undelegate revokes the first target, Rebond cancels the
// request against a validator, UnbondAll leaves the delegator set, Redelegate
// cancels leaving, and Liquidize executes either the leave or the request
// against the given validator.
type MultiValidatorAgent struct {
	base
}

var _ StakingAgent = (*MultiValidatorAgent)(nil)

func NewMultiValidatorAgent(currency slp.Currency, encoder Encoder, backend *Backend) *MultiValidatorAgent {
	return &MultiValidatorAgent{base{
		Backend:  backend,
		currency: currency,
		kind:     ledger.KindMultiValidator,
		encoder:  encoder,
	}}
}

func (a *MultiValidatorAgent) ledger(delegator slp.Address) (*ledger.MultiValidator, error) {
	return mustGet[*ledger.MultiValidator](&a.base, delegator)
}

func (a *MultiValidatorAgent) active(delegator slp.Address) (*ledger.MultiValidator, error) {
	l, err := a.ledger(delegator)
	if err != nil {
		return nil, err
	}
	if l.IsLeaving() {
		return nil, violation("delegator %v is leaving", delegator)
	}
	return l, nil
}

func activeStake(l *ledger.MultiValidator) *uint256.Int {
	return new(uint256.Int).Sub(&l.Total, &l.LessTotal)
}

// Bond delegates amount to a validator the delegator does not back yet.
func (a *MultiValidatorAgent) Bond(ctx context.Context, delegator slp.Address, amount *uint256.Int, validator *slp.Address) (uint64, error) {
	v, err := requireValidator(validator)
	if err != nil {
		return 0, err
	}
	mm, _, err := a.policy()
	if err != nil {
		return 0, err
	}
	if err := a.Validators.CheckWhitelisted(a.currency, v); err != nil {
		return 0, err
	}

	var (
		active = new(uint256.Int)
		backed int
	)
	l, ok, err := get[*ledger.MultiValidator](&a.base, delegator)
	if err != nil {
		return 0, err
	}
	if ok {
		if l.IsLeaving() {
			return 0, violation("delegator %v is leaving", delegator)
		}
		if _, has := l.Delegation(v); has {
			return 0, violation("delegator %v backs %v already, bond extra instead", delegator, v)
		}
		active = activeStake(l)
		backed = len(l.Delegations)
	}
	if err := mm.CheckValidatorsBack(backed + 1); err != nil {
		return 0, err
	}
	if err := mm.CheckDelegation(amount); err != nil {
		return 0, err
	}
	if err := mm.CheckBond(amount, active); err != nil {
		return 0, err
	}

	entry := a.ledgerEntry(delegator, pending.OpBond, amount)
	entry.Ledger.Validator = &v
	return a.dispatch(ctx, &Call{Method: MethodDelegate, Delegator: delegator, Validators: []slp.Address{v}, Amount: amount}, entry)
}

// BondExtra adds amount to an existing delegation.
func (a *MultiValidatorAgent) BondExtra(ctx context.Context, delegator slp.Address, amount *uint256.Int, validator *slp.Address) (uint64, error) {
	v, err := requireValidator(validator)
	if err != nil {
		return 0, err
	}
	mm, _, err := a.policy()
	if err != nil {
		return 0, err
	}
	l, err := a.active(delegator)
	if err != nil {
		return 0, err
	}
	if _, has := l.Delegation(v); !has {
		return 0, violation("delegator %v does not back %v", delegator, v)
	}
	if err := mm.CheckBond(amount, activeStake(l)); err != nil {
		return 0, err
	}

	entry := a.ledgerEntry(delegator, pending.OpBond, amount)
	entry.Ledger.Validator = &v
	return a.dispatch(ctx, &Call{Method: MethodDelegatorBondMore, Delegator: delegator, Validators: []slp.Address{v}, Amount: amount}, entry)
}

// Unbond schedules a decrease of the delegation with validator.
func (a *MultiValidatorAgent) Unbond(ctx context.Context, delegator slp.Address, amount *uint256.Int, validator *slp.Address) (uint64, error) {
	v, err := requireValidator(validator)
	if err != nil {
		return 0, err
	}
	return a.BondLess(ctx, delegator, v, amount)
}

// BondLess schedules a decrease of amount of the delegation with v. The
// delegation must stay above the delegation minimum, a whole delegation is revoked instead.
func (a *MultiValidatorAgent) BondLess(ctx context.Context, delegator, v slp.Address, amount *uint256.Int) (uint64, error) {
	mm, delays, err := a.policy()
	if err != nil {
		return 0, err
	}
	l, err := a.active(delegator)
	if err != nil {
		return 0, err
	}
	delegated, has := l.Delegation(v)
	if !has {
		return 0, violation("delegator %v does not back %v", delegator, v)
	}
	if _, requested := l.Request(v); requested {
		return 0, violation("a request against %v is scheduled already", v)
	}
	if !amount.Lt(delegated) {
		return 0, violation("bond less %v would empty the delegation of %v, revoke instead", amount, delegated)
	}
	if err := mm.CheckUnbond(amount, activeStake(l)); err != nil {
		return 0, err
	}
	if err := mm.CheckDelegation(new(uint256.Int).Sub(delegated, amount)); err != nil {
		return 0, err
	}
	at, err := a.unlockTime(delays.UnlockDelay)
	if err != nil {
		return 0, err
	}

	entry := a.ledgerEntry(delegator, pending.OpBondLess, amount)
	entry.Ledger.Validator = &v
	entry.Ledger.UnlockTime = &at
	return a.dispatch(ctx, &Call{Method: MethodScheduleBondLess, Delegator: delegator, Validators: []slp.Address{v}, Amount: amount}, entry)
}

// Undelegate revokes the delegation with the first target.
func (a *MultiValidatorAgent) Undelegate(ctx context.Context, delegator slp.Address, targets []slp.Address) (uint64, error) {
	if len(targets) == 0 {
		return 0, violation("no validator given")
	}
	return a.Revoke(ctx, delegator, targets[0])
}

// Revoke schedules the removal of the whole delegation with v.
func (a *MultiValidatorAgent) Revoke(ctx context.Context, delegator, v slp.Address) (uint64, error) {
	mm, delays, err := a.policy()
	if err != nil {
		return 0, err
	}
	l, err := a.active(delegator)
	if err != nil {
		return 0, err
	}
	delegated, has := l.Delegation(v)
	if !has {
		return 0, violation("delegator %v does not back %v", delegator, v)
	}
	if _, requested := l.Request(v); requested {
		return 0, violation("a request against %v is scheduled already", v)
	}
	if err := mm.CheckUnbond(delegated, activeStake(l)); err != nil {
		return 0, err
	}
	at, err := a.unlockTime(delays.UnlockDelay)
	if err != nil {
		return 0, err
	}

	entry := a.ledgerEntry(delegator, pending.OpRevoke, delegated)
	entry.Ledger.Validator = &v
	entry.Ledger.UnlockTime = &at
	return a.dispatch(ctx, &Call{Method: MethodScheduleRevoke, Delegator: delegator, Validators: []slp.Address{v}}, entry)
}

// Rebond cancels the request scheduled against validator. The amount is the one of the request.
func (a *MultiValidatorAgent) Rebond(ctx context.Context, delegator slp.Address, _ *uint256.Int, validator *slp.Address) (uint64, error) {
	v, err := requireValidator(validator)
	if err != nil {
		return 0, err
	}
	return a.CancelRequest(ctx, delegator, v)
}

// CancelRequest cancels the request scheduled against v.
func (a *MultiValidatorAgent) CancelRequest(ctx context.Context, delegator, v slp.Address) (uint64, error) {
	l, err := a.active(delegator)
	if err != nil {
		return 0, err
	}
	r, ok := l.Request(v)
	if !ok {
		return 0, violation("no request against %v is scheduled", v)
	}

	entry := a.ledgerEntry(delegator, pending.OpCancelRequest, &r.Amount)
	entry.Ledger.Validator = &v
	return a.dispatch(ctx, &Call{Method: MethodCancelRequest, Delegator: delegator, Validators: []slp.Address{v}}, entry)
}

func (a *MultiValidatorAgent) UnbondAll(ctx context.Context, delegator slp.Address) (uint64, error) {
	return a.LeaveDelegator(ctx, delegator)
}

// LeaveDelegator schedules the revoke of every delegation.
func (a *MultiValidatorAgent) LeaveDelegator(ctx context.Context, delegator slp.Address) (uint64, error) {
	_, delays, err := a.policy()
	if err != nil {
		return 0, err
	}
	l, err := a.active(delegator)
	if err != nil {
		return 0, err
	}
	if len(l.Delegations) == 0 {
		return 0, violation("delegator %v has no delegation", delegator)
	}
	delay := delays.LeaveDelegatorsDelay
	if delay.IsZero() {
		delay = delays.UnlockDelay
	}
	at, err := a.unlockTime(delay)
	if err != nil {
		return 0, err
	}

	entry := a.ledgerEntry(delegator, pending.OpLeaveDelegator, activeStake(l))
	entry.Ledger.UnlockTime = &at
	return a.dispatch(ctx, &Call{Method: MethodScheduleLeave, Delegator: delegator}, entry)
}

func (a *MultiValidatorAgent) Redelegate(ctx context.Context, delegator slp.Address, _ []slp.Address) (uint64, error) {
	return a.CancelLeave(ctx, delegator)
}

// CancelLeave cancels leaving the delegator set.
func (a *MultiValidatorAgent) CancelLeave(ctx context.Context, delegator slp.Address) (uint64, error) {
	l, err := a.ledger(delegator)
	if err != nil {
		return 0, err
	}
	if !l.IsLeaving() {
		return 0, violation("delegator %v is not leaving", delegator)
	}
	return a.dispatch(ctx,
		&Call{Method: MethodCancelLeave, Delegator: delegator},
		a.ledgerEntry(delegator, pending.OpCancelLeave, nil))
}

// Liquidize executes the due leave of delegator, or the due request against validator.
func (a *MultiValidatorAgent) Liquidize(ctx context.Context, delegator slp.Address, validator *slp.Address) (uint64, error) {
	l, err := a.ledger(delegator)
	if err != nil {
		return 0, err
	}
	if l.IsLeaving() {
		return a.ExecuteLeave(ctx, delegator)
	}
	v, err := requireValidator(validator)
	if err != nil {
		return 0, err
	}
	return a.ExecuteRequest(ctx, delegator, v)
}

func (a *MultiValidatorAgent) due(at timeunit.TimeUnit) error {
	now, err := a.ongoing()
	if err != nil {
		return err
	}
	reached, err := at.Reached(now)
	if err != nil {
		return slp.WrapError(slp.PolicyViolation, err, "due time")
	}
	if !reached {
		return violation("executable at %v, now %v", at, now)
	}
	return nil
}

// ExecuteLeave releases everything of a delegator whose leave is due.
func (a *MultiValidatorAgent) ExecuteLeave(ctx context.Context, delegator slp.Address) (uint64, error) {
	l, err := a.ledger(delegator)
	if err != nil {
		return 0, err
	}
	if !l.IsLeaving() {
		return 0, violation("delegator %v is not leaving", delegator)
	}
	if err := a.due(*l.LeavingAt); err != nil {
		return 0, err
	}
	return a.dispatch(ctx,
		&Call{Method: MethodExecuteLeave, Delegator: delegator},
		a.ledgerEntry(delegator, pending.OpExecuteLeave, &l.LessTotal))
}

// ExecuteRequest releases the due request against v.
func (a *MultiValidatorAgent) ExecuteRequest(ctx context.Context, delegator, v slp.Address) (uint64, error) {
	l, err := a.ledger(delegator)
	if err != nil {
		return 0, err
	}
	r, ok := l.Request(v)
	if !ok {
		return 0, violation("no request against %v is scheduled", v)
	}
	if err := a.due(r.WhenExecutable); err != nil {
		return 0, err
	}

	entry := a.ledgerEntry(delegator, pending.OpExecuteRequest, &r.Amount)
	entry.Ledger.Validator = &v
	return a.dispatch(ctx, &Call{Method: MethodExecuteRequest, Delegator: delegator, Validators: []slp.Address{v}}, entry)
}

func (a *MultiValidatorAgent) Delegate(context.Context, slp.Address, []slp.Address) (uint64, error) {
	return 0, unsupported(a.kind, "delegating a validator set")
}

func (a *MultiValidatorAgent) Payout(ctx context.Context, delegator, validator slp.Address, when timeunit.TimeUnit) error {
	return a.payout(ctx, delegator, validator, when)
}

func (a *MultiValidatorAgent) Chill(context.Context, slp.Address) error {
	return unsupported(a.kind, "chill")
}

func (a *MultiValidatorAgent) Apply(entry *pending.Entry) error {
	if done, err := a.applyCommon(entry); done || err != nil {
		return err
	}
	u := entry.Ledger

	var create func() *ledger.MultiValidator
	if u.Operation == pending.OpBond {
		create = func() *ledger.MultiValidator { return ledger.NewMultiValidator(u.Delegator) }
	}
	l, err := load(&a.base, u.Delegator, create)
	if err != nil {
		return err
	}

	var (
		freed *uint256.Int
		v     slp.Address
		at    timeunit.TimeUnit
		now   timeunit.TimeUnit
	)
	switch u.Operation {
	case pending.OpBond:
		if v, err = validatorOf(u); err == nil {
			err = l.Bond(v, &u.Amount)
		}
	case pending.OpBondLess:
		if v, err = validatorOf(u); err == nil {
			if at, err = unlockTimeOf(u); err == nil {
				err = l.BondLess(v, &u.Amount, at)
			}
		}
	case pending.OpRevoke:
		if v, err = validatorOf(u); err == nil {
			if at, err = unlockTimeOf(u); err == nil {
				err = l.Revoke(v, at)
			}
		}
	case pending.OpCancelRequest:
		if v, err = validatorOf(u); err == nil {
			err = l.CancelRequest(v)
		}
	case pending.OpLeaveDelegator:
		if at, err = unlockTimeOf(u); err == nil {
			err = l.LeaveDelegator(at)
		}
	case pending.OpCancelLeave:
		err = l.CancelLeave()
	case pending.OpExecuteLeave:
		if now, err = a.ongoing(); err == nil {
			freed, err = l.ExecuteLeave(now)
		}
	case pending.OpExecuteRequest:
		if v, err = validatorOf(u); err == nil {
			if now, err = a.ongoing(); err == nil {
				freed, err = l.ExecuteRequest(v, now)
			}
		}
	default:
		return broken("%s entry on a multi validator ledger", pending.OperationName(u.Operation))
	}
	if err != nil {
		return err
	}
	return a.commit(u, l, freed)
}
