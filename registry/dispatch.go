// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/vechain/slp/agent"
	"github.com/vechain/slp/slp"
	"github.com/vechain/slp/timeunit"
)

// Names of the operations accepted by Dispatch.
const (
	OpBond         = "bond"
	OpBondExtra    = "bond-extra"
	OpUnbond       = "unbond"
	OpUnbondAll    = "unbond-all"
	OpRebond       = "rebond"
	OpDelegate     = "delegate"
	OpUndelegate   = "undelegate"
	OpRedelegate   = "redelegate"
	OpLiquidize    = "liquidize"
	OpPayout       = "payout"
	OpChill        = "chill"
	OpTransferBack = "transfer-back"
	OpTransferTo   = "transfer-to"
)

// Request is a generic staking operation on a delegator.
type Request struct {
	Operation  string
	Currency   slp.Currency
	Delegator  slp.Address
	Amount     *uint256.Int
	Validator  *slp.Address
	Validators []slp.Address
	// Counterparty is the local receiver of transfer-back and the local source of transfer-to.
	Counterparty *slp.Address
	When         *timeunit.TimeUnit
}

func (req *Request) amount() (*uint256.Int, error) {
	if req.Amount == nil {
		return nil, slp.NewError(slp.PolicyViolation, "%s needs an amount", req.Operation)
	}
	return req.Amount, nil
}

func (req *Request) counterparty() (slp.Address, error) {
	if req.Counterparty == nil {
		return slp.Address{}, slp.NewError(slp.PolicyViolation, "%s needs a counterparty", req.Operation)
	}
	return *req.Counterparty, nil
}

// Dispatch forwards req to the agent of its currency and returns the
// correlation id of the created entry. Payout and chill create none and return 0.
func (r *Registry) Dispatch(ctx context.Context, req *Request) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, err := r.agent(req.Currency)
	if err != nil {
		return 0, err
	}
	id, err := dispatch(ctx, a, req)
	if err != nil {
		logger.Debug("dispatch refused", "currency", req.Currency, "op", req.Operation, "delegator", req.Delegator, "err", err)
		return 0, err
	}
	return id, nil
}

func dispatch(ctx context.Context, a agent.StakingAgent, req *Request) (uint64, error) {
	d := req.Delegator
	switch req.Operation {
	case OpBond, OpBondExtra, OpUnbond, OpRebond:
		amount, err := req.amount()
		if err != nil {
			return 0, err
		}
		switch req.Operation {
		case OpBond:
			return a.Bond(ctx, d, amount, req.Validator)
		case OpBondExtra:
			return a.BondExtra(ctx, d, amount, req.Validator)
		case OpUnbond:
			return a.Unbond(ctx, d, amount, req.Validator)
		default:
			return a.Rebond(ctx, d, amount, req.Validator)
		}
	case OpUnbondAll:
		return a.UnbondAll(ctx, d)
	case OpDelegate:
		return a.Delegate(ctx, d, req.Validators)
	case OpUndelegate:
		return a.Undelegate(ctx, d, req.Validators)
	case OpRedelegate:
		return a.Redelegate(ctx, d, req.Validators)
	case OpLiquidize:
		return a.Liquidize(ctx, d, req.Validator)
	case OpPayout:
		if req.Validator == nil || req.When == nil {
			return 0, slp.NewError(slp.PolicyViolation, "payout needs a validator and a time unit")
		}
		return 0, a.Payout(ctx, d, *req.Validator, *req.When)
	case OpChill:
		return 0, a.Chill(ctx, d)
	case OpTransferBack, OpTransferTo:
		amount, err := req.amount()
		if err != nil {
			return 0, err
		}
		other, err := req.counterparty()
		if err != nil {
			return 0, err
		}
		if req.Operation == OpTransferBack {
			return a.TransferBack(ctx, d, other, amount)
		}
		return a.TransferTo(ctx, other, d, amount)
	}
	return 0, slp.NewError(slp.UnsupportedOperation, "unknown operation %q", req.Operation)
}
