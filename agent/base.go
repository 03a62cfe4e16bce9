// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package agent

import (
	"context"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/slp/ledger"
	"github.com/vechain/slp/log"
	"github.com/vechain/slp/metrics"
	"github.com/vechain/slp/pending"
	"github.com/vechain/slp/policy"
	"github.com/vechain/slp/slp"
	"github.com/vechain/slp/timeunit"
)

var (
	logger = log.WithContext("pkg", "agent")

	metricDispatches = metrics.LazyLoadCounterVec("agent_dispatches_count", []string{"currency", "method", "result"})
	metricApplied    = metrics.LazyLoadCounterVec("agent_applied_count", []string{"currency", "operation"})
)

func violation(format string, args ...any) error {
	return slp.NewError(slp.PolicyViolation, format, args...)
}

func unsupported(kind ledger.Kind, op string) error {
	return slp.NewError(slp.UnsupportedOperation, "%s is not supported by %s agents", op, ledger.KindName(kind))
}

func broken(format string, args ...any) error {
	return slp.NewError(slp.InvariantViolation, format, args...)
}

// base holds what the three agents share: dispatch and the model independent
// part of reconciliation.
type base struct {
	*Backend
	currency slp.Currency
	kind     ledger.Kind
	encoder  Encoder
}

func (a *base) Currency() slp.Currency { return a.currency }
func (a *base) Kind() ledger.Kind      { return a.kind }

func (a *base) policy() (*policy.MinimumsMaximums, *policy.Delays, error) {
	return a.Policies.Policy(a.currency)
}

func (a *base) unlockTime(delay timeunit.TimeUnit) (timeunit.TimeUnit, error) {
	return a.Policies.UnlockTime(a.currency, delay)
}

func (a *base) ongoing() (timeunit.TimeUnit, error) {
	return a.Policies.OngoingTimeUnit(a.currency)
}

// get returns the ledger of delegator as L. A ledger of another kind is an invariant violation.
func get[L ledger.Ledger](a *base, delegator slp.Address) (L, bool, error) {
	var zero L
	l, ok, err := a.Ledgers.Get(a.currency, delegator)
	if err != nil || !ok {
		return zero, false, err
	}
	typed, is := l.(L)
	if !is {
		return zero, false, broken("ledger of %v is %s, %s agent expected", delegator, ledger.KindName(l.Kind()), ledger.KindName(a.kind))
	}
	return typed, true, nil
}

// mustGet is get failing with NotFound when delegator has no ledger.
func mustGet[L ledger.Ledger](a *base, delegator slp.Address) (L, error) {
	l, ok, err := get[L](a, delegator)
	if err != nil {
		return l, err
	}
	if !ok {
		return l, slp.NewError(slp.NotFound, "delegator %v of %v has no ledger", delegator, a.currency)
	}
	return l, nil
}

// load returns the ledger an entry applies to, or a fresh one from create when
// the entry may open the position.
func load[L ledger.Ledger](a *base, delegator slp.Address, create func() L) (L, error) {
	l, ok, err := get[L](a, delegator)
	if err != nil || ok {
		return l, err
	}
	if create == nil {
		return l, broken("no ledger of %v to apply to", delegator)
	}
	return create(), nil
}

// inflightUnlocks sums the unlocks of delegator waiting for confirmation and
// returns the latest unlock time among them.
func (a *base) inflightUnlocks(delegator slp.Address) (*uint256.Int, int, *timeunit.TimeUnit, error) {
	entries, err := a.Queue.ByDelegator(a.currency, delegator)
	if err != nil {
		return nil, 0, nil, err
	}
	sum := new(uint256.Int)
	var (
		n      int
		latest *timeunit.TimeUnit
	)
	for _, e := range entries {
		if e.Operation() != pending.OpUnlock {
			continue
		}
		sum.Add(sum, &e.Ledger.Amount)
		n++
		if t := e.Ledger.UnlockTime; t != nil {
			if latest == nil {
				latest = t
			} else if c, err := t.Cmp(*latest); err == nil && c > 0 {
				latest = t
			}
		}
	}
	return sum, n, latest, nil
}

// effective returns amount less what unlocks in flight already take from it.
func effective(amount, inflight *uint256.Int) (*uint256.Int, error) {
	rest, underflow := new(uint256.Int).SubOverflow(amount, inflight)
	if underflow {
		return nil, broken("unlocks in flight %v exceed %v", inflight, amount)
	}
	return rest, nil
}

func (a *base) ledgerEntry(delegator slp.Address, op pending.Operation, amount *uint256.Int) *pending.Entry {
	u := &pending.LedgerUpdateEntry{
		Currency:  a.currency,
		Delegator: delegator,
		Operation: op,
	}
	if amount != nil {
		u.Amount = *amount
	}
	return &pending.Entry{Ledger: u}
}

func (a *base) count(method Method, result string) {
	metricDispatches().AddWithLabel(1, map[string]string{
		"currency": a.currency.String(),
		"method":   method.String(),
		"result":   result,
	})
}

// dispatch admits, records and submits call. A nil entry submits under id 0
// and expects no outcome.
func (a *base) dispatch(ctx context.Context, call *Call, entry *pending.Entry) (uint64, error) {
	index, err := a.Delegators.IndexOf(a.currency, call.Delegator)
	if err != nil {
		return 0, err
	}
	call.Currency = a.currency
	call.Index = index

	if entry != nil {
		if err := a.Queue.CheckAdmit(a.currency, call.Delegator, entry.Operation()); err != nil {
			a.count(call.Method, "in_flight")
			return 0, err
		}
	}

	payload, err := a.encoder.Encode(call)
	if err != nil {
		return 0, err
	}

	var id uint64
	if entry != nil {
		if id, err = a.Queue.NextID(); err != nil {
			return 0, err
		}
		entry.ID = id
		entry.CreatedAt = uint64(a.now().UnixMilli())
		if err := a.Queue.Insert(entry); err != nil {
			return 0, err
		}
	}

	if err := a.Transport.Submit(ctx, payload, id); err != nil {
		if entry != nil {
			if _, _, rerr := a.Queue.Remove(id); rerr != nil {
				logger.Error("failed to drop entry of rejected call", "id", id, "err", rerr)
			}
		}
		a.count(call.Method, "rejected")
		return 0, slp.WrapError(slp.DispatchError, err, "submit "+call.Method.String())
	}

	a.count(call.Method, "submitted")
	logger.Debug("call dispatched", "currency", a.currency, "method", call.Method, "delegator", call.Delegator, "id", id)
	return id, nil
}

func (a *base) payout(ctx context.Context, delegator, validator slp.Address, when timeunit.TimeUnit) error {
	if !when.Valid() {
		return violation("payout time %v is invalid", when)
	}
	if validator.IsZero() {
		return violation("no validator given")
	}
	_, err := a.dispatch(ctx, &Call{
		Method:     MethodPayoutStakers,
		Delegator:  delegator,
		Validators: []slp.Address{validator},
		When:       &when,
	}, nil)
	return err
}

// TransferBack moves amount from the delegator back to the local account to.
func (a *base) TransferBack(ctx context.Context, delegator, to slp.Address, amount *uint256.Int) (uint64, error) {
	if amount.IsZero() {
		return 0, violation("amount must be positive")
	}
	if to.IsZero() {
		return 0, violation("no receiver given")
	}
	entry := a.ledgerEntry(delegator, pending.OpTransferBack, amount)
	entry.Ledger.Target = &to
	return a.dispatch(ctx, &Call{Method: MethodTransferBack, Delegator: delegator, Amount: amount, Target: &to}, entry)
}

// TransferTo funds the delegator with amount from the local account from.
func (a *base) TransferTo(ctx context.Context, from, delegator slp.Address, amount *uint256.Int) (uint64, error) {
	if amount.IsZero() {
		return 0, violation("amount must be positive")
	}
	bal, err := a.Backend.Currency.Balance(a.currency, from)
	if err != nil {
		return 0, err
	}
	reserved, err := a.inflightTransfersFrom(from)
	if err != nil {
		return 0, err
	}
	need, overflow := new(uint256.Int).AddOverflow(reserved, amount)
	if overflow || bal.Lt(need) {
		return 0, violation("balance %v of %v is short of %v with %v in flight", bal.Dec(), from, amount.Dec(), reserved.Dec())
	}
	entry := a.ledgerEntry(delegator, pending.OpTransferTo, amount)
	entry.Ledger.Target = &from
	return a.dispatch(ctx, &Call{Method: MethodTransferTo, Delegator: delegator, Amount: amount, Target: &from}, entry)
}

// inflightTransfersFrom sums the transfers to any delegator still waiting to
// be debited from the local account from.
func (a *base) inflightTransfersFrom(from slp.Address) (*uint256.Int, error) {
	entries, err := a.Queue.List(0)
	if err != nil {
		return nil, err
	}
	sum := new(uint256.Int)
	for _, e := range entries {
		u := e.Ledger
		if u == nil || u.Currency != a.currency || u.Operation != pending.OpTransferTo || u.Target == nil || *u.Target != from {
			continue
		}
		sum.Add(sum, &u.Amount)
	}
	return sum, nil
}

// applyCommon reconciles the entries every model handles the same way.
// It reports false when the entry is left to the agent.
func (a *base) applyCommon(entry *pending.Entry) (bool, error) {
	if entry.Currency() != a.currency {
		return true, broken("entry %d of %v applied by %v agent", entry.ID, entry.Currency(), a.currency)
	}
	if v := entry.Validators; v != nil {
		if err := a.Validators.SetByDelegator(v.Currency, v.Delegator, v.Validators); err != nil {
			return true, err
		}
		a.applied("validators")
		return true, nil
	}

	u := entry.Ledger
	switch u.Operation {
	case pending.OpTransferBack, pending.OpTransferTo:
		if u.Target == nil {
			return true, broken("transfer entry %d has no counterparty", entry.ID)
		}
		var err error
		if u.Operation == pending.OpTransferBack {
			err = a.Backend.Currency.Credit(a.currency, *u.Target, &u.Amount)
		} else {
			err = a.Backend.Currency.Debit(a.currency, *u.Target, &u.Amount)
		}
		if err != nil {
			return true, errors.WithMessagef(err, "apply %s", pending.OperationName(u.Operation))
		}
		a.applied(pending.OperationName(u.Operation))
		return true, nil
	}
	return false, nil
}

// commit writes l back after an applied entry, then credits freed to the
// delegator. A ledger left empty is dropped. The ledger is written first so a
// failed write leaves no credit behind, and applying the entry again frees nothing.
func (a *base) commit(u *pending.LedgerUpdateEntry, l ledger.Ledger, freed *uint256.Int) error {
	if err := l.Check(); err != nil {
		return err
	}
	if err := a.Ledgers.Upsert(a.currency, u.Delegator, l); err != nil {
		return err
	}
	if _, err := a.Ledgers.RemoveIfEmpty(a.currency, u.Delegator); err != nil {
		return err
	}
	if freed != nil && !freed.IsZero() {
		if err := a.Backend.Currency.Credit(a.currency, u.Delegator, freed); err != nil {
			return errors.WithMessage(err, "credit freed amount")
		}
	}
	a.applied(pending.OperationName(u.Operation))
	logger.Debug("entry applied", "currency", a.currency, "delegator", u.Delegator, "op", pending.OperationName(u.Operation))
	return nil
}

func (a *base) applied(op string) {
	metricApplied().AddWithLabel(1, map[string]string{"currency": a.currency.String(), "operation": op})
}

func validatorOf(u *pending.LedgerUpdateEntry) (slp.Address, error) {
	if u.Validator == nil {
		return slp.Address{}, broken("%s entry has no validator", pending.OperationName(u.Operation))
	}
	return *u.Validator, nil
}

func unlockTimeOf(u *pending.LedgerUpdateEntry) (timeunit.TimeUnit, error) {
	if u.UnlockTime == nil {
		return timeunit.TimeUnit{}, broken("%s entry has no unlock time", pending.OperationName(u.Operation))
	}
	return *u.UnlockTime, nil
}

func requireValidator(v *slp.Address) (slp.Address, error) {
	if v == nil || v.IsZero() {
		return slp.Address{}, violation("no validator given")
	}
	return *v, nil
}
