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

// Lock mirrors a lock then stake position.
type Lock struct {
	Account   slp.Address
	Locked    uint256.Int
	Unlocking []UnlockChunk
}

var _ Ledger = (*Lock)(nil)

func NewLock(account slp.Address) *Lock {
	return &Lock{Account: account}
}

func (l *Lock) Kind() Kind         { return KindLock }
func (l *Lock) Owner() slp.Address { return l.Account }
func (l *Lock) IsEmpty() bool      { return l.Locked.IsZero() && len(l.Unlocking) == 0 }

func (l *Lock) Clone() Ledger {
	cpy := *l
	cpy.Unlocking = append([]UnlockChunk(nil), l.Unlocking...)
	return &cpy
}

// UnlockingTotal returns the sum of all unlocking chunks.
func (l *Lock) UnlockingTotal() *uint256.Int {
	sum, err := sumChunks(l.Unlocking)
	if err != nil {
		return new(uint256.Int).SetAllOne()
	}
	return sum
}

func (l *Lock) Check() error {
	if err := checkChunks(l.Unlocking); err != nil {
		return err
	}
	for i := 1; i < len(l.Unlocking); i++ {
		c, err := l.Unlocking[i-1].UnlockTime.Cmp(l.Unlocking[i].UnlockTime)
		if err != nil {
			return slp.WrapError(slp.InvariantViolation, err, "unlocking chunks")
		}
		if c > 0 {
			return violation("unlocking chunk %d unlocks before chunk %d", i, i-1)
		}
	}
	if _, err := sumChunks(l.Unlocking); err != nil {
		return err
	}
	return nil
}

// Lock adds amount to the locked balance.
func (l *Lock) Lock(amount *uint256.Int) error {
	locked, err := add(&l.Locked, amount)
	if err != nil {
		return err
	}
	l.Locked = *locked
	return nil
}

// Unlock moves amount from the locked balance into a chunk maturing at unlockTime.
func (l *Lock) Unlock(amount *uint256.Int, unlockTime timeunit.TimeUnit) error {
	if amount.IsZero() {
		return violation("unlock of zero amount")
	}
	locked, err := sub(&l.Locked, amount)
	if err != nil {
		return err
	}
	chunks, err := insertChunk(l.Unlocking, UnlockChunk{Value: *amount, UnlockTime: unlockTime})
	if err != nil {
		return err
	}
	l.Locked = *locked
	l.Unlocking = chunks
	return nil
}

// Relock moves amount from the most recent unlocking chunks back to the locked balance.
func (l *Lock) Relock(amount *uint256.Int) error {
	locked, err := add(&l.Locked, amount)
	if err != nil {
		return err
	}
	chunks, err := withdrawChunks(l.Unlocking, amount)
	if err != nil {
		return err
	}
	l.Locked = *locked
	l.Unlocking = chunks
	return nil
}

// ClaimUnlocked drops the chunks matured at now and returns the freed amount.
func (l *Lock) ClaimUnlocked(now timeunit.TimeUnit) (*uint256.Int, error) {
	chunks, freed, err := releaseChunks(l.Unlocking, now)
	if err != nil {
		return nil, err
	}
	l.Unlocking = chunks
	return freed, nil
}
