// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"bytes"
	"sort"

	"github.com/holiman/uint256"

	"github.com/vechain/slp/slp"
	"github.com/vechain/slp/timeunit"
)

type Status = uint8

const (
	StatusActive = Status(iota)
	StatusLeaving
)

type Action = uint8

const (
	ActionRevoke = Action(iota + 1)
	ActionDecrease
)

// Delegation is the stake placed with one validator.
type Delegation struct {
	Validator slp.Address
	Amount    uint256.Int
}

// ScheduledRequest is a pending decrease or revoke against one validator.
type ScheduledRequest struct {
	Validator      slp.Address
	WhenExecutable timeunit.TimeUnit
	Action         Action
	Amount         uint256.Int
}

// RequestBrief indexes a scheduled request by validator.
type RequestBrief struct {
	Validator      slp.Address
	WhenExecutable timeunit.TimeUnit
	Amount         uint256.Int
}

// MultiValidator mirrors a delegator spreading stake over several validators.
//
// Total minus LessTotal always equals the sum of Delegations. LessTotal is the
// amount scheduled to leave through Requests, and every request has exactly one
// brief with the same validator, time and amount.
type MultiValidator struct {
	Account       slp.Address
	Delegations   []Delegation // sorted by validator
	Total         uint256.Int
	LessTotal     uint256.Int
	Requests      []ScheduledRequest
	RequestBriefs []RequestBrief // sorted by validator
	Status        Status
	LeavingAt     *timeunit.TimeUnit `rlp:"nil"` // set while Status is StatusLeaving
}

var _ Ledger = (*MultiValidator)(nil)

func NewMultiValidator(account slp.Address) *MultiValidator {
	return &MultiValidator{Account: account}
}

func (l *MultiValidator) Kind() Kind         { return KindMultiValidator }
func (l *MultiValidator) Owner() slp.Address { return l.Account }
func (l *MultiValidator) IsLeaving() bool    { return l.Status == StatusLeaving }

func (l *MultiValidator) IsEmpty() bool {
	return l.Total.IsZero() &&
		l.LessTotal.IsZero() &&
		len(l.Delegations) == 0 &&
		len(l.Requests) == 0 &&
		l.Status == StatusActive
}

func (l *MultiValidator) Clone() Ledger {
	cpy := *l
	cpy.Delegations = append([]Delegation(nil), l.Delegations...)
	cpy.Requests = append([]ScheduledRequest(nil), l.Requests...)
	cpy.RequestBriefs = append([]RequestBrief(nil), l.RequestBriefs...)
	if l.LeavingAt != nil {
		at := *l.LeavingAt
		cpy.LeavingAt = &at
	}
	return &cpy
}

// Delegation returns the amount delegated to validator.
func (l *MultiValidator) Delegation(validator slp.Address) (*uint256.Int, bool) {
	if i, ok := l.findDelegation(validator); ok {
		return l.Delegations[i].Amount.Clone(), true
	}
	return new(uint256.Int), false
}

// Request returns the scheduled request against validator.
func (l *MultiValidator) Request(validator slp.Address) (ScheduledRequest, bool) {
	for _, r := range l.Requests {
		if r.Validator == validator {
			return r, true
		}
	}
	return ScheduledRequest{}, false
}

func (l *MultiValidator) Check() error {
	sum := new(uint256.Int)
	for i := range l.Delegations {
		d := &l.Delegations[i]
		if d.Amount.IsZero() {
			return violation("delegation to %v is zero", d.Validator)
		}
		if i > 0 && bytes.Compare(l.Delegations[i-1].Validator[:], d.Validator[:]) >= 0 {
			return violation("delegations are not sorted or not unique")
		}
		var err error
		if sum, err = add(sum, &d.Amount); err != nil {
			return err
		}
	}
	active, err := sub(&l.Total, &l.LessTotal)
	if err != nil {
		return err
	}
	if !active.Eq(sum) {
		return violation("total %v - less total %v != delegations %v", &l.Total, &l.LessTotal, sum)
	}

	if len(l.Requests) != len(l.RequestBriefs) {
		return violation("%d requests but %d briefs", len(l.Requests), len(l.RequestBriefs))
	}
	requested := new(uint256.Int)
	seen := make(map[slp.Address]struct{}, len(l.Requests))
	for _, r := range l.Requests {
		if _, dup := seen[r.Validator]; dup {
			return violation("more than one request for %v", r.Validator)
		}
		seen[r.Validator] = struct{}{}
		if r.Action != ActionRevoke && r.Action != ActionDecrease {
			return violation("request for %v has unknown action %d", r.Validator, r.Action)
		}
		b, ok := l.findBrief(r.Validator)
		if !ok {
			return violation("request for %v has no brief", r.Validator)
		}
		brief := &l.RequestBriefs[b]
		if brief.WhenExecutable != r.WhenExecutable || !brief.Amount.Eq(&r.Amount) {
			return violation("brief for %v does not match its request", r.Validator)
		}
		if requested, err = add(requested, &r.Amount); err != nil {
			return err
		}
	}
	if !requested.Eq(&l.LessTotal) {
		return violation("less total %v != requested %v", &l.LessTotal, requested)
	}

	switch l.Status {
	case StatusActive:
		if l.LeavingAt != nil {
			return violation("active delegator has a leave time")
		}
	case StatusLeaving:
		if l.LeavingAt == nil {
			return violation("leaving delegator has no leave time")
		}
	default:
		return violation("unknown status %d", l.Status)
	}
	return nil
}

// Bond adds amount to the delegation with validator.
func (l *MultiValidator) Bond(validator slp.Address, amount *uint256.Int) error {
	if l.IsLeaving() {
		return violation("bond while leaving")
	}
	total, err := add(&l.Total, amount)
	if err != nil {
		return err
	}
	if err := l.credit(validator, amount); err != nil {
		return err
	}
	l.Total = *total
	return nil
}

// BondLess schedules a decrease of the delegation with validator, executable at when.
func (l *MultiValidator) BondLess(validator slp.Address, amount *uint256.Int, when timeunit.TimeUnit) error {
	if _, ok := l.Request(validator); ok {
		return violation("request for %v already scheduled", validator)
	}
	if err := l.debit(validator, amount); err != nil {
		return err
	}
	return l.schedule(validator, ActionDecrease, amount, when)
}

// Revoke schedules the removal of the whole delegation with validator.
func (l *MultiValidator) Revoke(validator slp.Address, when timeunit.TimeUnit) error {
	if _, ok := l.Request(validator); ok {
		return violation("request for %v already scheduled", validator)
	}
	amount, ok := l.Delegation(validator)
	if !ok {
		return violation("no delegation to %v", validator)
	}
	if err := l.debit(validator, amount); err != nil {
		return err
	}
	return l.schedule(validator, ActionRevoke, amount, when)
}

// CancelRequest drops the request against validator and restores its amount.
func (l *MultiValidator) CancelRequest(validator slp.Address) error {
	r, ok := l.Request(validator)
	if !ok {
		return violation("no request for %v", validator)
	}
	less, err := sub(&l.LessTotal, &r.Amount)
	if err != nil {
		return err
	}
	if err := l.credit(validator, &r.Amount); err != nil {
		return err
	}
	l.LessTotal = *less
	l.unschedule(validator)
	return nil
}

// LeaveDelegator schedules a revoke of every delegation, executable at when.
// A pending decrease against a validator is folded into its revoke.
func (l *MultiValidator) LeaveDelegator(when timeunit.TimeUnit) error {
	if l.IsLeaving() {
		return violation("already leaving")
	}
	for _, d := range l.Delegations {
		amount := d.Amount.Clone()
		if r, ok := l.Request(d.Validator); ok {
			var err error
			if amount, err = add(amount, &r.Amount); err != nil {
				return err
			}
			l.unschedule(d.Validator)
		}
		l.Requests = append(l.Requests, ScheduledRequest{
			Validator:      d.Validator,
			WhenExecutable: when,
			Action:         ActionRevoke,
			Amount:         *amount,
		})
		l.insertBrief(RequestBrief{Validator: d.Validator, WhenExecutable: when, Amount: *amount})
	}
	l.Delegations = nil
	l.LessTotal = l.Total
	l.Status = StatusLeaving
	l.LeavingAt = &when
	return nil
}

// CancelLeave restores every scheduled amount to its delegation.
func (l *MultiValidator) CancelLeave() error {
	if !l.IsLeaving() {
		return violation("not leaving")
	}
	for _, r := range l.Requests {
		if err := l.credit(r.Validator, &r.Amount); err != nil {
			return err
		}
	}
	l.Requests = nil
	l.RequestBriefs = nil
	l.LessTotal.Clear()
	l.Status = StatusActive
	l.LeavingAt = nil
	return nil
}

// ExecuteLeave releases everything scheduled by LeaveDelegator and returns the freed amount.
func (l *MultiValidator) ExecuteLeave(now timeunit.TimeUnit) (*uint256.Int, error) {
	if !l.IsLeaving() {
		return nil, violation("not leaving")
	}
	reached, err := l.LeavingAt.Reached(now)
	if err != nil {
		return nil, slp.WrapError(slp.InvariantViolation, err, "cannot execute leave")
	}
	if !reached {
		return nil, violation("leave executable at %v, now %v", l.LeavingAt, now)
	}
	freed := l.LessTotal.Clone()
	total, err := sub(&l.Total, freed)
	if err != nil {
		return nil, err
	}
	l.Total = *total
	l.LessTotal.Clear()
	l.Requests = nil
	l.RequestBriefs = nil
	if len(l.Delegations) == 0 {
		l.Status = StatusActive
		l.LeavingAt = nil
	}
	return freed, nil
}

// ExecuteRequest releases the matured request against validator and returns the freed amount.
func (l *MultiValidator) ExecuteRequest(validator slp.Address, now timeunit.TimeUnit) (*uint256.Int, error) {
	r, ok := l.Request(validator)
	if !ok {
		return nil, violation("no request for %v", validator)
	}
	reached, err := r.WhenExecutable.Reached(now)
	if err != nil {
		return nil, slp.WrapError(slp.InvariantViolation, err, "cannot execute request")
	}
	if !reached {
		return nil, violation("request for %v executable at %v, now %v", validator, r.WhenExecutable, now)
	}
	total, err := sub(&l.Total, &r.Amount)
	if err != nil {
		return nil, err
	}
	less, err := sub(&l.LessTotal, &r.Amount)
	if err != nil {
		return nil, err
	}
	l.Total, l.LessTotal = *total, *less
	l.unschedule(validator)
	return r.Amount.Clone(), nil
}

func (l *MultiValidator) findDelegation(validator slp.Address) (int, bool) {
	i := sort.Search(len(l.Delegations), func(i int) bool {
		return bytes.Compare(l.Delegations[i].Validator[:], validator[:]) >= 0
	})
	return i, i < len(l.Delegations) && l.Delegations[i].Validator == validator
}

func (l *MultiValidator) findBrief(validator slp.Address) (int, bool) {
	i := sort.Search(len(l.RequestBriefs), func(i int) bool {
		return bytes.Compare(l.RequestBriefs[i].Validator[:], validator[:]) >= 0
	})
	return i, i < len(l.RequestBriefs) && l.RequestBriefs[i].Validator == validator
}

// credit adds amount to the delegation with validator, creating it when absent.
func (l *MultiValidator) credit(validator slp.Address, amount *uint256.Int) error {
	i, ok := l.findDelegation(validator)
	if ok {
		sum, err := add(&l.Delegations[i].Amount, amount)
		if err != nil {
			return err
		}
		l.Delegations[i].Amount = *sum
		return nil
	}
	l.Delegations = append(l.Delegations, Delegation{})
	copy(l.Delegations[i+1:], l.Delegations[i:])
	l.Delegations[i] = Delegation{Validator: validator, Amount: *amount}
	return nil
}

// debit subtracts amount from the delegation with validator, dropping it once zero.
func (l *MultiValidator) debit(validator slp.Address, amount *uint256.Int) error {
	i, ok := l.findDelegation(validator)
	if !ok {
		return violation("no delegation to %v", validator)
	}
	rest, err := sub(&l.Delegations[i].Amount, amount)
	if err != nil {
		return err
	}
	if rest.IsZero() {
		l.Delegations = append(l.Delegations[:i], l.Delegations[i+1:]...)
		return nil
	}
	l.Delegations[i].Amount = *rest
	return nil
}

func (l *MultiValidator) schedule(validator slp.Address, action Action, amount *uint256.Int, when timeunit.TimeUnit) error {
	less, err := add(&l.LessTotal, amount)
	if err != nil {
		return err
	}
	l.LessTotal = *less
	l.Requests = append(l.Requests, ScheduledRequest{
		Validator:      validator,
		WhenExecutable: when,
		Action:         action,
		Amount:         *amount,
	})
	l.insertBrief(RequestBrief{Validator: validator, WhenExecutable: when, Amount: *amount})
	return nil
}

func (l *MultiValidator) unschedule(validator slp.Address) {
	for i, r := range l.Requests {
		if r.Validator == validator {
			l.Requests = append(l.Requests[:i], l.Requests[i+1:]...)
			break
		}
	}
	if i, ok := l.findBrief(validator); ok {
		l.RequestBriefs = append(l.RequestBriefs[:i], l.RequestBriefs[i+1:]...)
	}
}

func (l *MultiValidator) insertBrief(b RequestBrief) {
	i, ok := l.findBrief(b.Validator)
	if ok {
		l.RequestBriefs[i] = b
		return
	}
	l.RequestBriefs = append(l.RequestBriefs, RequestBrief{})
	copy(l.RequestBriefs[i+1:], l.RequestBriefs[i:])
	l.RequestBriefs[i] = b
}
