// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package testsys builds an in-memory staking ledger with one currency per ledger kind.
package testsys

import (
	"context"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/slp/auditlog"
	"github.com/vechain/slp/lvldb"
	"github.com/vechain/slp/policy"
	"github.com/vechain/slp/reconciler"
	"github.com/vechain/slp/registry"
	"github.com/vechain/slp/service"
	"github.com/vechain/slp/slp"
	"github.com/vechain/slp/timeunit"
	"github.com/vechain/slp/transport"
)

// Currencies of the system.
const (
	KSM  = slp.Currency("KSM")  // single validator
	MOVR = slp.Currency("MOVR") // multi validator
	PHA  = slp.Currency("PHA")  // lock
)

// Whitelisted validators of every currency.
var (
	Validator1 = slp.BytesToAddress([]byte{1})
	Validator2 = slp.BytesToAddress([]byte{2})
)

// Submission is a payload handed to the transport.
type Submission struct {
	Payload []byte
	ID      uint64
}

// Recorder is a transport keeping its submissions.
type Recorder struct {
	mu   sync.Mutex
	subs []Submission
}

func (r *Recorder) Submit(_ context.Context, payload []byte, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, Submission{payload, id})
	return nil
}

func (r *Recorder) Submissions() []Submission {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Submission(nil), r.subs...)
}

type System struct {
	db        *lvldb.LevelDB
	registry  *registry.Registry
	audit     *auditlog.AuditLog
	transport *Recorder
	// Delegators holds the first delegator of each currency.
	Delegators map[slp.Currency]slp.Address
}

func bounds() policy.MinimumsMaximums {
	return policy.MinimumsMaximums{
		DelegatorBondedMinimum:        *uint256.NewInt(10),
		BondExtraMinimum:              *uint256.NewInt(1),
		UnbondMinimum:                 *uint256.NewInt(1),
		RebondMinimum:                 *uint256.NewInt(1),
		UnbondRecordMaximum:           8,
		ValidatorsBackMaximum:         2,
		DelegatorActiveStakingMaximum: *uint256.NewInt(1_000_000),
		ValidatorsRewardMaximum:       8,
		DelegationAmountMinimum:       *uint256.NewInt(1),
		DelegatorsMaximum:             4,
		ValidatorsMaximum:             8,
	}
}

// New builds the system and initializes a delegator per currency.
func New() (*System, error) {
	db, err := lvldb.NewMem()
	if err != nil {
		return nil, err
	}
	audit, err := auditlog.NewMem()
	if err != nil {
		db.Close()
		return nil, err
	}
	sys := &System{
		db:         db,
		audit:      audit,
		transport:  &Recorder{},
		Delegators: make(map[slp.Currency]slp.Address),
	}
	if err := sys.init(); err != nil {
		sys.Close()
		return nil, err
	}
	return sys, nil
}

func (s *System) init() error {
	svc, err := service.New(s.db, s.transport, 16, time.Now)
	if err != nil {
		return err
	}
	// distinct parents keep delegator addresses apart across currencies
	parent := func(c slp.Currency) slp.Address { return slp.BytesToAddress([]byte("parent/" + c)) }
	validators := []slp.Address{Validator1, Validator2}
	for _, c := range []*service.Currency{
		{
			Symbol:     KSM,
			Protocol:   "kusama",
			Parent:     parent(KSM),
			Bounds:     bounds(),
			Delays:     policy.Delays{UnlockDelay: timeunit.NewEra(28)},
			Ongoing:    timeunit.NewEra(1),
			Validators: validators,
		},
		{
			Symbol:   MOVR,
			Protocol: "parachain-staking",
			Parent:   parent(MOVR),
			Ethereum: true,
			Bounds:   bounds(),
			Delays: policy.Delays{
				UnlockDelay:          timeunit.NewRound(24),
				LeaveDelegatorsDelay: timeunit.NewRound(24),
			},
			Ongoing:    timeunit.NewRound(1),
			Validators: validators,
		},
		{
			Symbol:     PHA,
			Protocol:   "dapp-staking",
			Parent:     parent(PHA),
			Bounds:     bounds(),
			Delays:     policy.Delays{UnlockDelay: timeunit.NewHour(24)},
			Ongoing:    timeunit.NewHour(1),
			Validators: validators,
		},
	} {
		if err := svc.Install(c); err != nil {
			return err
		}
		_, d, err := svc.Registry().InitializeDelegator(c.Symbol)
		if err != nil {
			return err
		}
		s.Delegators[c.Symbol] = d
	}
	s.registry = svc.Registry()
	return nil
}

func (s *System) Registry() *registry.Registry { return s.registry }
func (s *System) AuditLog() *auditlog.AuditLog { return s.audit }
func (s *System) Transport() *Recorder         { return s.transport }

// Settle confirms id with outcome and records the settlement in the audit log.
func (s *System) Settle(id uint64, outcome transport.Outcome) error {
	st, err := s.registry.Confirm(transport.Confirmation{ID: id, Outcome: outcome})
	if err != nil {
		return err
	}
	if _, err := s.audit.Write(context.Background(), reconciler.Record(st, time.Now())); err != nil {
		return errors.Wrap(err, "audit")
	}
	return nil
}

func (s *System) Close() {
	s.audit.Close()
	s.db.Close()
}
