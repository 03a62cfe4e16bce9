// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package policies

import (
	"github.com/holiman/uint256"

	"github.com/vechain/slp/policy"
	"github.com/vechain/slp/slp"
	"github.com/vechain/slp/timeunit"
)

type Bounds struct {
	DelegatorBondedMinimum        *uint256.Int `json:"delegatorBondedMinimum"`
	BondExtraMinimum              *uint256.Int `json:"bondExtraMinimum"`
	UnbondMinimum                 *uint256.Int `json:"unbondMinimum"`
	RebondMinimum                 *uint256.Int `json:"rebondMinimum"`
	UnbondRecordMaximum           uint32       `json:"unbondRecordMaximum"`
	ValidatorsBackMaximum         uint32       `json:"validatorsBackMaximum"`
	DelegatorActiveStakingMaximum *uint256.Int `json:"delegatorActiveStakingMaximum"`
	ValidatorsRewardMaximum       uint32       `json:"validatorsRewardMaximum"`
	DelegationAmountMinimum       *uint256.Int `json:"delegationAmountMinimum"`
	DelegatorsMaximum             uint16       `json:"delegatorsMaximum"`
	ValidatorsMaximum             uint16       `json:"validatorsMaximum"`
}

func clone(v *uint256.Int) *uint256.Int { return new(uint256.Int).Set(v) }

func value(v *uint256.Int) uint256.Int {
	if v == nil {
		return uint256.Int{}
	}
	return *v
}

func convertBounds(mm *policy.MinimumsMaximums) *Bounds {
	return &Bounds{
		DelegatorBondedMinimum:        clone(&mm.DelegatorBondedMinimum),
		BondExtraMinimum:              clone(&mm.BondExtraMinimum),
		UnbondMinimum:                 clone(&mm.UnbondMinimum),
		RebondMinimum:                 clone(&mm.RebondMinimum),
		UnbondRecordMaximum:           mm.UnbondRecordMaximum,
		ValidatorsBackMaximum:         mm.ValidatorsBackMaximum,
		DelegatorActiveStakingMaximum: clone(&mm.DelegatorActiveStakingMaximum),
		ValidatorsRewardMaximum:       mm.ValidatorsRewardMaximum,
		DelegationAmountMinimum:       clone(&mm.DelegationAmountMinimum),
		DelegatorsMaximum:             mm.DelegatorsMaximum,
		ValidatorsMaximum:             mm.ValidatorsMaximum,
	}
}

func (b *Bounds) convert() *policy.MinimumsMaximums {
	return &policy.MinimumsMaximums{
		DelegatorBondedMinimum:        value(b.DelegatorBondedMinimum),
		BondExtraMinimum:              value(b.BondExtraMinimum),
		UnbondMinimum:                 value(b.UnbondMinimum),
		RebondMinimum:                 value(b.RebondMinimum),
		UnbondRecordMaximum:           b.UnbondRecordMaximum,
		ValidatorsBackMaximum:         b.ValidatorsBackMaximum,
		DelegatorActiveStakingMaximum: value(b.DelegatorActiveStakingMaximum),
		ValidatorsRewardMaximum:       b.ValidatorsRewardMaximum,
		DelegationAmountMinimum:       value(b.DelegationAmountMinimum),
		DelegatorsMaximum:             b.DelegatorsMaximum,
		ValidatorsMaximum:             b.ValidatorsMaximum,
	}
}

type Delays struct {
	UnlockDelay          timeunit.TimeUnit `json:"unlockDelay"`
	LeaveDelegatorsDelay timeunit.TimeUnit `json:"leaveDelegatorsDelay"`
}

// Policy is the configuration of a currency.
type Policy struct {
	Currency  slp.Currency      `json:"currency"`
	Bounds    *Bounds           `json:"bounds"`
	Delays    *Delays           `json:"delays"`
	Ongoing   timeunit.TimeUnit `json:"ongoing"`
	Whitelist []slp.Address     `json:"whitelist"`
}

type OngoingRequest struct {
	TimeUnit timeunit.TimeUnit `json:"timeUnit"`
}

type ValidatorRequest struct {
	Validator slp.Address `json:"validator"`
}
