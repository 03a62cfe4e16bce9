// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package agent

import (
	"github.com/holiman/uint256"

	"github.com/vechain/slp/slp"
	"github.com/vechain/slp/timeunit"
)

// Method is a remote staking call, independent of how a protocol encodes it.
type Method uint8

const (
	MethodUnknown Method = iota

	// bonded ledger
	MethodBond
	MethodBondExtra
	MethodUnbond
	MethodRebond
	MethodWithdrawUnbonded
	MethodNominate
	MethodChill
	MethodPayoutStakers

	// delegations
	MethodDelegate
	MethodDelegatorBondMore
	MethodScheduleBondLess
	MethodScheduleRevoke
	MethodCancelRequest
	MethodScheduleLeave
	MethodCancelLeave
	MethodExecuteLeave
	MethodExecuteRequest

	// lock then stake
	MethodLock
	MethodUnlock
	MethodRelock
	MethodClaimUnlocked

	MethodTransferBack
	MethodTransferTo
)

var methodNames = [...]string{
	MethodUnknown:           "unknown",
	MethodBond:              "bond",
	MethodBondExtra:         "bond_extra",
	MethodUnbond:            "unbond",
	MethodRebond:            "rebond",
	MethodWithdrawUnbonded:  "withdraw_unbonded",
	MethodNominate:          "nominate",
	MethodChill:             "chill",
	MethodPayoutStakers:     "payout_stakers",
	MethodDelegate:          "delegate",
	MethodDelegatorBondMore: "delegator_bond_more",
	MethodScheduleBondLess:  "schedule_delegator_bond_less",
	MethodScheduleRevoke:    "schedule_revoke_delegation",
	MethodCancelRequest:     "cancel_delegation_request",
	MethodScheduleLeave:     "schedule_leave_delegators",
	MethodCancelLeave:       "cancel_leave_delegators",
	MethodExecuteLeave:      "execute_leave_delegators",
	MethodExecuteRequest:    "execute_delegation_request",
	MethodLock:              "lock",
	MethodUnlock:            "unlock",
	MethodRelock:            "relock_unlocking",
	MethodClaimUnlocked:     "claim_unlocked",
	MethodTransferBack:      "transfer_back",
	MethodTransferTo:        "transfer_to",
}

func (m Method) String() string {
	if int(m) < len(methodNames) {
		return methodNames[m]
	}
	return methodNames[MethodUnknown]
}

// Call is what an agent asks an Encoder to serialize.
// Fields not used by Method are left zero.
type Call struct {
	Currency   slp.Currency
	Method     Method
	Delegator  slp.Address
	Index      uint16 // index the delegator subaccount is derived from
	Validators []slp.Address
	Amount     *uint256.Int
	Target     *slp.Address
	When       *timeunit.TimeUnit
}
