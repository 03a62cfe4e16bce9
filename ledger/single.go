// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"github.com/holiman/uint256"

	"github.com/vechain/slp/slp"
	"github.com/vechain/slp/timeunit"
)

// SingleValidator mirrors a bonded position nominating a validator set.
// Total always equals Active plus the sum of Unlocking.
type SingleValidator struct {
	Account   slp.Address
	Total     uint256.Int
	Active    uint256.Int
	Unlocking []UnlockChunk
}

var _ Ledger = (*SingleValidator)(nil)

func NewSingleValidator(account slp.Address) *SingleValidator {
	return &SingleValidator{Account: account}
}

func (l *SingleValidator) Kind() Kind         { return KindSingleValidator }
func (l *SingleValidator) Owner() slp.Address { return l.Account }

func (l *SingleValidator) IsEmpty() bool {
	return l.Total.IsZero() && l.Active.IsZero() && len(l.Unlocking) == 0
}

func (l *SingleValidator) Clone() Ledger {
	cpy := *l
	cpy.Unlocking = append([]UnlockChunk(nil), l.Unlocking...)
	return &cpy
}

// UnlockingTotal returns the sum of all unlocking chunks.
func (l *SingleValidator) UnlockingTotal() *uint256.Int {
	sum, err := sumChunks(l.Unlocking)
	if err != nil {
		return new(uint256.Int).SetAllOne()
	}
	return sum
}

func (l *SingleValidator) Check() error {
	if err := checkChunks(l.Unlocking); err != nil {
		return err
	}
	unlocking, err := sumChunks(l.Unlocking)
	if err != nil {
		return err
	}
	expected, err := add(&l.Active, unlocking)
	if err != nil {
		return err
	}
	if !expected.Eq(&l.Total) {
		return violation("total %v != active %v + unlocking %v", &l.Total, &l.Active, unlocking)
	}
	return nil
}

// Bond adds amount to both the active and the total stake.
func (l *SingleValidator) Bond(amount *uint256.Int) error {
	active, err := add(&l.Active, amount)
	if err != nil {
		return err
	}
	total, err := add(&l.Total, amount)
	if err != nil {
		return err
	}
	l.Active, l.Total = *active, *total
	return nil
}

// Unlock moves amount from the active stake into a chunk maturing at unlockTime.
func (l *SingleValidator) Unlock(amount *uint256.Int, unlockTime timeunit.TimeUnit) error {
	if amount.IsZero() {
		return violation("unlock of zero amount")
	}
	active, err := sub(&l.Active, amount)
	if err != nil {
		return err
	}
	chunks, err := insertChunk(l.Unlocking, UnlockChunk{Value: *amount, UnlockTime: unlockTime})
	if err != nil {
		return err
	}
	l.Active = *active
	l.Unlocking = chunks
	return nil
}

// Rebond moves amount from the most recent unlocking chunks back to the active stake.
func (l *SingleValidator) Rebond(amount *uint256.Int) error {
	active, err := add(&l.Active, amount)
	if err != nil {
		return err
	}
	chunks, err := withdrawChunks(l.Unlocking, amount)
	if err != nil {
		return err
	}
	l.Active = *active
	l.Unlocking = chunks
	return nil
}

// Liquidize drops the chunks matured at now and returns the freed amount.
func (l *SingleValidator) Liquidize(now timeunit.TimeUnit) (*uint256.Int, error) {
	chunks, freed, err := releaseChunks(l.Unlocking, now)
	if err != nil {
		return nil, err
	}
	total, err := sub(&l.Total, freed)
	if err != nil {
		return nil, err
	}
	l.Total = *total
	l.Unlocking = chunks
	return freed, nil
}
