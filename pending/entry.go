// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pending

import (
	"strings"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/slp/slp"
	"github.com/vechain/slp/timeunit"
)

// Operation is the ledger mutation applied when an entry is confirmed.
type Operation = uint8

const (
	OpUnknown = Operation(iota)
	OpBond
	OpBondLess
	OpRevoke
	OpCancelRequest
	OpLeaveDelegator
	OpCancelLeave
	OpExecuteLeave
	OpExecuteRequest
	OpUnlock
	OpRebond
	OpLiquidize
	OpTransferBack
	OpTransferTo
)

var opNames = [...]string{
	OpUnknown:        "unknown",
	OpBond:           "bond",
	OpBondLess:       "bond-less",
	OpRevoke:         "revoke",
	OpCancelRequest:  "cancel-request",
	OpLeaveDelegator: "leave-delegator",
	OpCancelLeave:    "cancel-leave",
	OpExecuteLeave:   "execute-leave",
	OpExecuteRequest: "execute-request",
	OpUnlock:         "unlock",
	OpRebond:         "rebond",
	OpLiquidize:      "liquidize",
	OpTransferBack:   "transfer-back",
	OpTransferTo:     "transfer-to",
}

// OperationName returns the name of op.
func OperationName(op Operation) string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return opNames[OpUnknown]
}

// ParseOperation parses an operation name.
func ParseOperation(s string) (Operation, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for op, name := range opNames {
		if op != int(OpUnknown) && name == s {
			return Operation(op), nil
		}
	}
	return OpUnknown, errors.Errorf("unknown operation %q", s)
}

// LedgerUpdateEntry describes a ledger mutation awaiting confirmation.
type LedgerUpdateEntry struct {
	Currency   slp.Currency
	Delegator  slp.Address
	Validator  *slp.Address `rlp:"nil"`
	Operation  Operation
	Amount     uint256.Int
	UnlockTime *timeunit.TimeUnit `rlp:"nil"` // when the unlocked amount matures, or "now" of a release
	Target     *slp.Address       `rlp:"nil"` // counterparty of transfers
}

// ValidatorsByDelegatorUpdateEntry replaces the validators backed by a delegator once confirmed.
type ValidatorsByDelegatorUpdateEntry struct {
	Currency   slp.Currency
	Delegator  slp.Address
	Validators []slp.Address
}

// Entry is an in-flight operation keyed by its correlation id.
// Exactly one of Ledger and Validators is set.
type Entry struct {
	ID         uint64
	CreatedAt  uint64                            // unix milliseconds
	Ledger     *LedgerUpdateEntry                `rlp:"nil"`
	Validators *ValidatorsByDelegatorUpdateEntry `rlp:"nil"`
}

func (e *Entry) Currency() slp.Currency {
	if e.Ledger != nil {
		return e.Ledger.Currency
	}
	return e.Validators.Currency
}

func (e *Entry) Delegator() slp.Address {
	if e.Ledger != nil {
		return e.Ledger.Delegator
	}
	return e.Validators.Delegator
}

// Operation returns the ledger operation of the entry, OpUnknown for validators updates.
func (e *Entry) Operation() Operation {
	if e.Ledger != nil {
		return e.Ledger.Operation
	}
	return OpUnknown
}

// Describe returns a short name of what the entry does.
func (e *Entry) Describe() string {
	if e.Ledger != nil {
		return OperationName(e.Ledger.Operation)
	}
	return "validators"
}

func (e *Entry) validate() error {
	if (e.Ledger == nil) == (e.Validators == nil) {
		return errors.New("entry must carry exactly one update")
	}
	if e.ID == 0 {
		return errors.New("entry has no id")
	}
	return nil
}
