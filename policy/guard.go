// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package policy

import (
	"github.com/holiman/uint256"

	"github.com/vechain/slp/slp"
)

// The checks below are pure comparisons against the bounds. They never read a
// ledger or the pending queue; callers pass the relevant current values.

func violation(format string, args ...any) error {
	return slp.NewError(slp.PolicyViolation, format, args...)
}

// CheckBond checks a bond of amount onto a position with the given active amount.
// The first bond must reach the bonded minimum, later ones the bond extra minimum.
func (m *MinimumsMaximums) CheckBond(amount, active *uint256.Int) error {
	if amount.IsZero() {
		return violation("amount must be positive")
	}
	if active.IsZero() {
		if amount.Lt(&m.DelegatorBondedMinimum) {
			return violation("bond %v is below bonded minimum %v", amount, &m.DelegatorBondedMinimum)
		}
	} else if amount.Lt(&m.BondExtraMinimum) {
		return violation("bond extra %v is below minimum %v", amount, &m.BondExtraMinimum)
	}
	return m.CheckActiveCeiling(amount, active)
}

// CheckActiveCeiling checks active plus amount stays within the active staking maximum.
func (m *MinimumsMaximums) CheckActiveCeiling(amount, active *uint256.Int) error {
	total, overflow := new(uint256.Int).AddOverflow(active, amount)
	if overflow || total.Gt(&m.DelegatorActiveStakingMaximum) {
		return violation("active staking would exceed maximum %v", &m.DelegatorActiveStakingMaximum)
	}
	return nil
}

// CheckUnbond checks an unbond of amount from the given active amount. The
// remaining active must stay at or above the bonded minimum unless it is zero.
func (m *MinimumsMaximums) CheckUnbond(amount, active *uint256.Int) error {
	if amount.IsZero() {
		return violation("amount must be positive")
	}
	if amount.Gt(active) {
		return violation("unbond %v exceeds active %v", amount, active)
	}
	remaining := new(uint256.Int).Sub(active, amount)
	if remaining.IsZero() {
		return nil
	}
	if amount.Lt(&m.UnbondMinimum) {
		return violation("unbond %v is below minimum %v", amount, &m.UnbondMinimum)
	}
	if remaining.Lt(&m.DelegatorBondedMinimum) {
		return violation("remaining active %v would be below bonded minimum %v", remaining, &m.DelegatorBondedMinimum)
	}
	return nil
}

// CheckRebond checks a rebond of amount out of the given unlocking amount.
func (m *MinimumsMaximums) CheckRebond(amount, unlocking *uint256.Int) error {
	if amount.IsZero() {
		return violation("amount must be positive")
	}
	if amount.Lt(&m.RebondMinimum) {
		return violation("rebond %v is below minimum %v", amount, &m.RebondMinimum)
	}
	if amount.Gt(unlocking) {
		return violation("rebond %v exceeds unlocking %v", amount, unlocking)
	}
	return nil
}

// CheckUnlockRecords checks one more unlocking record can be added to count.
func (m *MinimumsMaximums) CheckUnlockRecords(count int) error {
	if count >= int(m.UnbondRecordMaximum) {
		return violation("unlocking records %d reached maximum %d", count, m.UnbondRecordMaximum)
	}
	return nil
}

// CheckValidatorsBack checks a delegator may back count validators.
func (m *MinimumsMaximums) CheckValidatorsBack(count int) error {
	if count == 0 {
		return violation("no validator given")
	}
	if count > int(m.ValidatorsBackMaximum) {
		return violation("backing %d validators exceeds maximum %d", count, m.ValidatorsBackMaximum)
	}
	return nil
}

// CheckDelegation checks the amount delegated to a single validator.
func (m *MinimumsMaximums) CheckDelegation(amount *uint256.Int) error {
	if amount.Lt(&m.DelegationAmountMinimum) {
		return violation("delegation %v is below minimum %v", amount, &m.DelegationAmountMinimum)
	}
	return nil
}

// CheckDelegatorCount checks one more delegator fits next to count.
func (m *MinimumsMaximums) CheckDelegatorCount(count int) error {
	if count >= int(m.DelegatorsMaximum) {
		return slp.NewError(slp.CapacityExceeded, "delegators reached maximum %d", m.DelegatorsMaximum)
	}
	return nil
}

// CheckValidatorCount checks one more whitelisted validator fits next to count.
func (m *MinimumsMaximums) CheckValidatorCount(count int) error {
	if count >= int(m.ValidatorsMaximum) {
		return slp.NewError(slp.CapacityExceeded, "validators reached maximum %d", m.ValidatorsMaximum)
	}
	return nil
}
