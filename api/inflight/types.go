// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package inflight

import (
	"github.com/holiman/uint256"

	"github.com/vechain/slp/pending"
	"github.com/vechain/slp/slp"
	"github.com/vechain/slp/timeunit"
)

// Entry is an in-flight operation.
type Entry struct {
	ID         uint64             `json:"id"`
	CreatedAt  uint64             `json:"createdAt"`
	Currency   slp.Currency       `json:"currency"`
	Delegator  slp.Address        `json:"delegator"`
	Operation  string             `json:"operation"`
	Validator  *slp.Address       `json:"validator,omitempty"`
	Validators []slp.Address      `json:"validators,omitempty"`
	Amount     *uint256.Int       `json:"amount,omitempty"`
	UnlockTime *timeunit.TimeUnit `json:"unlockTime,omitempty"`
	Target     *slp.Address       `json:"target,omitempty"`
}

func convertEntries(entries []*pending.Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		p := Entry{
			ID:        e.ID,
			CreatedAt: e.CreatedAt,
			Currency:  e.Currency(),
			Delegator: e.Delegator(),
			Operation: e.Describe(),
		}
		if l := e.Ledger; l != nil {
			p.Validator = l.Validator
			p.Amount = new(uint256.Int).Set(&l.Amount)
			p.UnlockTime = l.UnlockTime
			p.Target = l.Target
		} else {
			p.Validators = e.Validators.Validators
		}
		out = append(out, p)
	}
	return out
}
