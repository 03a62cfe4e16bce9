// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package operations

import (
	"github.com/holiman/uint256"

	"github.com/vechain/slp/auditlog"
	"github.com/vechain/slp/registry"
	"github.com/vechain/slp/slp"
	"github.com/vechain/slp/timeunit"
)

// Request is a staking operation to dispatch.
type Request struct {
	Operation    string             `json:"operation"`
	Currency     string             `json:"currency"`
	Delegator    slp.Address        `json:"delegator"`
	Amount       *uint256.Int       `json:"amount,omitempty"`
	Validator    *slp.Address       `json:"validator,omitempty"`
	Validators   []slp.Address      `json:"validators,omitempty"`
	Counterparty *slp.Address       `json:"counterparty,omitempty"`
	When         *timeunit.TimeUnit `json:"when,omitempty"`
}

func (r *Request) convert() (*registry.Request, error) {
	currency, err := slp.ParseCurrency(r.Currency)
	if err != nil {
		return nil, err
	}
	return &registry.Request{
		Operation:    r.Operation,
		Currency:     currency,
		Delegator:    r.Delegator,
		Amount:       r.Amount,
		Validator:    r.Validator,
		Validators:   r.Validators,
		Counterparty: r.Counterparty,
		When:         r.When,
	}, nil
}

// Dispatched reports a dispatched operation. An operation without confirmation has no id.
type Dispatched struct {
	ID      uint64 `json:"id"`
	Pending bool   `json:"pending"`
}

type Settlement struct {
	Seq        uint64       `json:"seq"`
	ID         uint64       `json:"id"`
	Result     string       `json:"result"`
	Currency   slp.Currency `json:"currency,omitempty"`
	Delegator  *slp.Address `json:"delegator,omitempty"`
	Operation  string       `json:"operation,omitempty"`
	Amount     string       `json:"amount"`
	Reason     string       `json:"reason,omitempty"`
	RecordedAt uint64       `json:"recordedAt"`
}

func convertRecords(records []*auditlog.Record) []*Settlement {
	out := make([]*Settlement, 0, len(records))
	for _, r := range records {
		s := &Settlement{
			Seq:        r.Seq,
			ID:         r.ID,
			Result:     r.Result,
			Currency:   r.Currency,
			Operation:  r.Operation,
			Amount:     r.Amount,
			Reason:     r.Reason,
			RecordedAt: r.RecordedAt,
		}
		if !r.Delegator.IsZero() {
			d := r.Delegator
			s.Delegator = &d
		}
		out = append(out, s)
	}
	return out
}

type Balance struct {
	Currency slp.Currency `json:"currency"`
	Account  slp.Address  `json:"account"`
	Balance  *uint256.Int `json:"balance"`
}
