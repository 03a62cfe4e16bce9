// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package service wires the stores, agents and registry of a staking ledger.
package service

import (
	"slices"
	"time"

	"github.com/pkg/errors"

	"github.com/vechain/slp/agent"
	"github.com/vechain/slp/balance"
	"github.com/vechain/slp/delegator"
	"github.com/vechain/slp/encoder"
	"github.com/vechain/slp/kv"
	"github.com/vechain/slp/ledger"
	"github.com/vechain/slp/log"
	"github.com/vechain/slp/pending"
	"github.com/vechain/slp/policy"
	"github.com/vechain/slp/registry"
	"github.com/vechain/slp/slp"
	"github.com/vechain/slp/timeunit"
	"github.com/vechain/slp/validators"
)

var logger = log.WithContext("pkg", "service")

// Currency configures a staked currency.
type Currency struct {
	Symbol   slp.Currency
	Protocol string // encoder protocol name
	// Parent derives the delegator subaccounts. Ethereum selects 20 bytes accounts.
	Parent     slp.Address
	Ethereum   bool
	Bounds     policy.MinimumsMaximums
	Delays     policy.Delays
	Ongoing    timeunit.TimeUnit // applied unless the stored one is later
	Validators []slp.Address
}

// Service is an assembled staking ledger.
type Service struct {
	registry *registry.Registry
	backend  *agent.Backend
}

// New assembles the stores over db. The ledger read cache holds cacheSize entries.
func New(db kv.Store, transport agent.Transport, cacheSize int, clock func() time.Time) (*Service, error) {
	policies := policy.NewStore(db)
	ledgers, err := ledger.NewStore(db, cacheSize)
	if err != nil {
		return nil, err
	}
	queue, err := pending.NewQueue(db)
	if err != nil {
		return nil, err
	}
	backend := &agent.Backend{
		Ledgers:    ledgers,
		Queue:      queue,
		Policies:   policies,
		Delegators: delegator.NewAllocator(db, policies),
		Validators: validators.NewStore(db, policies),
		Transport:  transport,
		Currency:   balance.NewBook(db),
		Clock:      clock,
	}
	return &Service{
		registry: registry.New(backend),
		backend:  backend,
	}, nil
}

func (s *Service) Registry() *registry.Registry { return s.registry }

// Install registers the agent of c and applies its policy.
func (s *Service) Install(c *Currency) error {
	p, err := encoder.Lookup(c.Protocol)
	if err != nil {
		return err
	}
	if c.Parent.IsZero() {
		return errors.Errorf("%v: derivation parent is not set", c.Symbol)
	}
	if c.Ethereum {
		s.backend.Delegators.SetDeriver(c.Symbol, delegator.EthereumDeriver{Parent: c.Parent})
	} else {
		s.backend.Delegators.SetDeriver(c.Symbol, delegator.SubstrateDeriver{Parent: c.Parent})
	}

	a, err := agent.New(p.Kind, c.Symbol, encoder.New(p), s.backend)
	if err != nil {
		return err
	}
	if err := s.registry.SetMinimumsMaximums(c.Symbol, &c.Bounds); err != nil {
		return errors.WithMessagef(err, "%v: bounds", c.Symbol)
	}
	if err := s.registry.SetDelays(c.Symbol, &c.Delays); err != nil {
		return errors.WithMessagef(err, "%v: delays", c.Symbol)
	}
	if err := s.advance(c.Symbol, c.Ongoing); err != nil {
		return errors.WithMessagef(err, "%v: ongoing time unit", c.Symbol)
	}
	if err := s.whitelist(c.Symbol, c.Validators); err != nil {
		return errors.WithMessagef(err, "%v: validators", c.Symbol)
	}
	if err := s.registry.Register(a); err != nil {
		return err
	}
	logger.Info("currency installed", "currency", c.Symbol, "protocol", p.Name, "validators", len(c.Validators))
	return nil
}

func (s *Service) advance(currency slp.Currency, t timeunit.TimeUnit) error {
	if t.IsZero() {
		return nil
	}
	current, err := s.registry.OngoingTimeUnit(currency)
	if err != nil {
		if !slp.IsKind(err, slp.NotFound) {
			return err
		}
		return s.registry.UpdateOngoingTimeUnit(currency, t)
	}
	c, err := t.Cmp(current)
	if err != nil {
		return err
	}
	if c < 0 {
		logger.Debug("stored ongoing time unit is later", "currency", currency, "stored", current, "configured", t)
		return nil
	}
	return s.registry.UpdateOngoingTimeUnit(currency, t)
}

func (s *Service) whitelist(currency slp.Currency, vs []slp.Address) error {
	list, err := s.registry.Whitelist(currency)
	if err != nil {
		return err
	}
	for _, v := range validators.Normalize(vs) {
		if slices.Contains(list, v) {
			continue
		}
		if err := s.registry.AddValidator(currency, v); err != nil {
			return err
		}
	}
	return nil
}
