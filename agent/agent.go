// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package agent implements the staking agents, one per delegation model.
//
// An agent validates an operation against the policy of its currency and the
// mirrored ledger, records it as a pending entry and hands the encoded call to
// the transport. When the remote outcome is confirmed the entry is applied back
// onto the ledger by Apply.
package agent

import (
	"context"
	"time"

	"github.com/holiman/uint256"

	"github.com/vechain/slp/delegator"
	"github.com/vechain/slp/ledger"
	"github.com/vechain/slp/pending"
	"github.com/vechain/slp/policy"
	"github.com/vechain/slp/slp"
	"github.com/vechain/slp/timeunit"
	"github.com/vechain/slp/validators"
)

// Encoder serializes a call into the wire payload of a remote protocol.
// It fails with UnsupportedOperation for methods the protocol lacks.
type Encoder interface {
	Encode(call *Call) ([]byte, error)
}

// Transport delivers a payload to the remote chain. The outcome is reported
// later under the same correlation id. An id of zero expects no outcome.
type Transport interface {
	Submit(ctx context.Context, payload []byte, id uint64) error
}

// Currency is the local balance sheet touched by reconciled transfers.
type Currency interface {
	Balance(currency slp.Currency, account slp.Address) (*uint256.Int, error)
	Credit(currency slp.Currency, account slp.Address, amount *uint256.Int) error
	Debit(currency slp.Currency, account slp.Address, amount *uint256.Int) error
}

// StakingAgent dispatches the generic staking operations of one currency.
//
// Every dispatching method returns the correlation id of the pending entry it
// created. Operations a delegation model has no meaning for fail with
// UnsupportedOperation. Validator arguments are optional where the model does
// not need them.
type StakingAgent interface {
	Currency() slp.Currency
	Kind() ledger.Kind

	Bond(ctx context.Context, delegator slp.Address, amount *uint256.Int, validator *slp.Address) (uint64, error)
	BondExtra(ctx context.Context, delegator slp.Address, amount *uint256.Int, validator *slp.Address) (uint64, error)
	Unbond(ctx context.Context, delegator slp.Address, amount *uint256.Int, validator *slp.Address) (uint64, error)
	UnbondAll(ctx context.Context, delegator slp.Address) (uint64, error)
	Rebond(ctx context.Context, delegator slp.Address, amount *uint256.Int, validator *slp.Address) (uint64, error)
	Delegate(ctx context.Context, delegator slp.Address, targets []slp.Address) (uint64, error)
	Undelegate(ctx context.Context, delegator slp.Address, targets []slp.Address) (uint64, error)
	Redelegate(ctx context.Context, delegator slp.Address, targets []slp.Address) (uint64, error)
	Liquidize(ctx context.Context, delegator slp.Address, validator *slp.Address) (uint64, error)
	TransferBack(ctx context.Context, delegator, to slp.Address, amount *uint256.Int) (uint64, error)
	TransferTo(ctx context.Context, from, delegator slp.Address, amount *uint256.Int) (uint64, error)

	// Payout and Chill have no ledger effect and create no pending entry.
	Payout(ctx context.Context, delegator, validator slp.Address, when timeunit.TimeUnit) error
	Chill(ctx context.Context, delegator slp.Address) error

	// Apply reconciles a confirmed entry onto the mirrored state.
	Apply(entry *pending.Entry) error
}

// Backend bundles the stores and collaborators shared by the agents.
type Backend struct {
	Ledgers    *ledger.Store
	Queue      *pending.Queue
	Policies   *policy.Store
	Delegators *delegator.Allocator
	Validators *validators.Store
	Transport  Transport
	Currency   Currency
	Clock      func() time.Time // defaults to time.Now
}

func (b *Backend) now() time.Time {
	if b.Clock != nil {
		return b.Clock()
	}
	return time.Now()
}

// New creates the agent matching the delegation model kind.
func New(kind ledger.Kind, currency slp.Currency, encoder Encoder, backend *Backend) (StakingAgent, error) {
	switch kind {
	case ledger.KindSingleValidator:
		return NewSingleValidatorAgent(currency, encoder, backend), nil
	case ledger.KindMultiValidator:
		return NewMultiValidatorAgent(currency, encoder, backend), nil
	case ledger.KindLock:
		return NewLockAgent(currency, encoder, backend), nil
	}
	return nil, slp.NewError(slp.UnsupportedOperation, "no agent for ledger kind %d", kind)
}
