// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package policy

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/slp/timeunit"
)

// MinimumsMaximums holds the bounds every operation of a currency is checked against.
type MinimumsMaximums struct {
	// DelegatorBondedMinimum is the least active amount a delegator may keep, unless it fully exits.
	DelegatorBondedMinimum uint256.Int
	BondExtraMinimum       uint256.Int
	UnbondMinimum          uint256.Int
	RebondMinimum          uint256.Int
	// UnbondRecordMaximum caps the outstanding unlocking records of a ledger.
	UnbondRecordMaximum uint32
	// ValidatorsBackMaximum caps the validators a delegator backs.
	ValidatorsBackMaximum         uint32
	DelegatorActiveStakingMaximum uint256.Int
	ValidatorsRewardMaximum       uint32
	DelegationAmountMinimum       uint256.Int
	DelegatorsMaximum             uint16
	ValidatorsMaximum             uint16
}

// Validate checks the bounds are usable.
func (m *MinimumsMaximums) Validate() error {
	switch {
	case m.UnbondRecordMaximum == 0:
		return errors.New("unbond record maximum must be positive")
	case m.ValidatorsBackMaximum == 0:
		return errors.New("validators back maximum must be positive")
	case m.DelegatorsMaximum == 0:
		return errors.New("delegators maximum must be positive")
	case m.ValidatorsMaximum == 0:
		return errors.New("validators maximum must be positive")
	case m.DelegatorActiveStakingMaximum.IsZero():
		return errors.New("delegator active staking maximum must be positive")
	case m.DelegatorActiveStakingMaximum.Lt(&m.DelegatorBondedMinimum):
		return errors.New("delegator active staking maximum is below bonded minimum")
	case uint32(m.ValidatorsBackMaximum) > uint32(m.ValidatorsMaximum):
		return errors.New("validators back maximum exceeds validators maximum")
	}
	return nil
}

// Delays holds the scheduling delays of a currency.
type Delays struct {
	UnlockDelay timeunit.TimeUnit
	// LeaveDelegatorsDelay is used by multi-validator protocols, zero otherwise.
	LeaveDelegatorsDelay timeunit.TimeUnit
}

// Validate checks the delays are expressed in known domains.
func (d *Delays) Validate() error {
	if !d.UnlockDelay.Valid() {
		return errors.New("unlock delay must be set")
	}
	if !d.LeaveDelegatorsDelay.IsZero() && d.LeaveDelegatorsDelay.Domain != d.UnlockDelay.Domain {
		return errors.New("leave delegators delay must share the unlock delay domain")
	}
	return nil
}
