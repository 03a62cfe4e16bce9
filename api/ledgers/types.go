// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledgers

import (
	"bytes"
	"slices"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/slp/delegator"
	"github.com/vechain/slp/ledger"
	"github.com/vechain/slp/slp"
	"github.com/vechain/slp/timeunit"
)

type UnlockChunk struct {
	Value      *uint256.Int      `json:"value"`
	UnlockTime timeunit.TimeUnit `json:"unlockTime"`
}

type Delegation struct {
	Validator slp.Address  `json:"validator"`
	Amount    *uint256.Int `json:"amount"`
}

type Request struct {
	Validator      slp.Address       `json:"validator"`
	WhenExecutable timeunit.TimeUnit `json:"whenExecutable"`
	Action         string            `json:"action"`
	Amount         *uint256.Int      `json:"amount"`
}

// Ledger is the union of the ledger kinds, fields of other kinds are omitted.
type Ledger struct {
	Kind      string        `json:"kind"`
	Delegator slp.Address   `json:"delegator"`
	Total     *uint256.Int  `json:"total"`
	Active    *uint256.Int  `json:"active,omitempty"`
	Unlocking []UnlockChunk `json:"unlocking,omitempty"`

	LessTotal   *uint256.Int       `json:"lessTotal,omitempty"`
	Delegations []Delegation       `json:"delegations,omitempty"`
	Requests    []Request          `json:"requests,omitempty"`
	Status      string             `json:"status,omitempty"`
	LeavingAt   *timeunit.TimeUnit `json:"leavingAt,omitempty"`
}

func chunks(cs []ledger.UnlockChunk) []UnlockChunk {
	out := make([]UnlockChunk, 0, len(cs))
	for _, c := range cs {
		out = append(out, UnlockChunk{Value: new(uint256.Int).Set(&c.Value), UnlockTime: c.UnlockTime})
	}
	return out
}

func convertLedger(delegator slp.Address, l ledger.Ledger) *Ledger {
	out := &Ledger{
		Kind:      ledger.KindName(l.Kind()),
		Delegator: delegator,
	}
	switch l := l.(type) {
	case *ledger.SingleValidator:
		out.Total = new(uint256.Int).Set(&l.Total)
		out.Active = new(uint256.Int).Set(&l.Active)
		out.Unlocking = chunks(l.Unlocking)
	case *ledger.Lock:
		out.Total = new(uint256.Int).Add(&l.Locked, l.UnlockingTotal())
		out.Active = new(uint256.Int).Set(&l.Locked)
		out.Unlocking = chunks(l.Unlocking)
	case *ledger.MultiValidator:
		out.Total = new(uint256.Int).Set(&l.Total)
		out.LessTotal = new(uint256.Int).Set(&l.LessTotal)
		for _, d := range l.Delegations {
			out.Delegations = append(out.Delegations, Delegation{d.Validator, new(uint256.Int).Set(&d.Amount)})
		}
		for _, r := range l.Requests {
			action := "decrease"
			if r.Action == ledger.ActionRevoke {
				action = "revoke"
			}
			out.Requests = append(out.Requests, Request{
				Validator:      r.Validator,
				WhenExecutable: r.WhenExecutable,
				Action:         action,
				Amount:         new(uint256.Int).Set(&r.Amount),
			})
		}
		out.Status = "active"
		if l.IsLeaving() {
			out.Status = "leaving"
			out.LeavingAt = l.LeavingAt
		}
	}
	return out
}

type Delegator struct {
	Index   uint16      `json:"index"`
	Address slp.Address `json:"address"`
}

func convertDelegators(ds []delegator.Delegator) []Delegator {
	out := make([]Delegator, 0, len(ds))
	for _, d := range ds {
		out = append(out, Delegator{d.Index, d.Address})
	}
	return out
}

// ToLedger converts l back into a ledger of its kind.
func (l *Ledger) ToLedger() (ledger.Ledger, error) {
	zero := func(v *uint256.Int) uint256.Int {
		if v == nil {
			return uint256.Int{}
		}
		return *v
	}
	unlocking := func() []ledger.UnlockChunk {
		var out []ledger.UnlockChunk
		for _, c := range l.Unlocking {
			out = append(out, ledger.UnlockChunk{Value: zero(c.Value), UnlockTime: c.UnlockTime})
		}
		return out
	}

	switch l.Kind {
	case ledger.KindName(ledger.KindSingleValidator):
		return &ledger.SingleValidator{
			Account:   l.Delegator,
			Total:     zero(l.Total),
			Active:    zero(l.Active),
			Unlocking: unlocking(),
		}, nil
	case ledger.KindName(ledger.KindLock):
		return &ledger.Lock{
			Account:   l.Delegator,
			Locked:    zero(l.Active),
			Unlocking: unlocking(),
		}, nil
	case ledger.KindName(ledger.KindMultiValidator):
		out := &ledger.MultiValidator{
			Account:   l.Delegator,
			Total:     zero(l.Total),
			LessTotal: zero(l.LessTotal),
			LeavingAt: l.LeavingAt,
		}
		switch l.Status {
		case "", "active":
			out.Status = ledger.StatusActive
		case "leaving":
			out.Status = ledger.StatusLeaving
		default:
			return nil, errors.Errorf("unknown status %q", l.Status)
		}
		for _, d := range l.Delegations {
			out.Delegations = append(out.Delegations, ledger.Delegation{Validator: d.Validator, Amount: zero(d.Amount)})
		}
		for _, r := range l.Requests {
			var action ledger.Action
			switch r.Action {
			case "revoke":
				action = ledger.ActionRevoke
			case "decrease":
				action = ledger.ActionDecrease
			default:
				return nil, errors.Errorf("unknown action %q", r.Action)
			}
			out.Requests = append(out.Requests, ledger.ScheduledRequest{
				Validator:      r.Validator,
				WhenExecutable: r.WhenExecutable,
				Action:         action,
				Amount:         zero(r.Amount),
			})
			out.RequestBriefs = append(out.RequestBriefs, ledger.RequestBrief{
				Validator:      r.Validator,
				WhenExecutable: r.WhenExecutable,
				Amount:         zero(r.Amount),
			})
		}
		slices.SortFunc(out.Delegations, func(a, b ledger.Delegation) int { return bytes.Compare(a.Validator[:], b.Validator[:]) })
		slices.SortFunc(out.RequestBriefs, func(a, b ledger.RequestBrief) int { return bytes.Compare(a.Validator[:], b.Validator[:]) })
		return out, nil
	}
	return nil, errors.Errorf("unknown ledger kind %q", l.Kind)
}

// ConvertLedger converts a stored ledger of delegator.
func ConvertLedger(delegator slp.Address, l ledger.Ledger) *Ledger {
	return convertLedger(delegator, l)
}
