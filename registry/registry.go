// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package registry routes operations to the staking agent of each currency
// and settles their pending entries. Every state change, whether dispatched,
// confirmed, timed out or privileged, runs under the same lock.
package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/vechain/slp/agent"
	"github.com/vechain/slp/ledger"
	"github.com/vechain/slp/log"
	"github.com/vechain/slp/metrics"
	"github.com/vechain/slp/pending"
	"github.com/vechain/slp/slp"
	"github.com/vechain/slp/transport"
)

var (
	logger = log.WithContext("pkg", "registry")

	metricSettled = metrics.LazyLoadCounterVec("registry_settled_count", []string{"currency", "result"})
)

// Result is how a pending entry was settled.
type Result uint8

const (
	Applied Result = iota + 1
	Failed
	TimedOut
	Stale
)

func (r Result) String() string {
	switch r {
	case Applied:
		return "applied"
	case Failed:
		return "failed"
	case TimedOut:
		return "timed_out"
	case Stale:
		return "stale"
	}
	return fmt.Sprintf("result(%d)", uint8(r))
}

// Settlement reports a settled entry. Entry is nil for stale confirmations.
type Settlement struct {
	ID     uint64
	Result Result
	Entry  *pending.Entry
	Reason string
}

// Registry owns the agents, one per currency.
type Registry struct {
	mu      sync.Mutex
	backend *agent.Backend
	agents  map[slp.Currency]agent.StakingAgent
}

func New(backend *agent.Backend) *Registry {
	return &Registry{
		backend: backend,
		agents:  make(map[slp.Currency]agent.StakingAgent),
	}
}

// Register installs a for its currency. A currency has at most one agent.
func (r *Registry) Register(a agent.StakingAgent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.agents[a.Currency()]; ok {
		return errors.Errorf("currency %v has an agent already", a.Currency())
	}
	r.agents[a.Currency()] = a
	logger.Info("agent registered", "currency", a.Currency(), "kind", ledger.KindName(a.Kind()))
	return nil
}

// Agent returns the agent of currency.
func (r *Registry) Agent(currency slp.Currency) (agent.StakingAgent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.agent(currency)
}

func (r *Registry) agent(currency slp.Currency) (agent.StakingAgent, error) {
	a, ok := r.agents[currency]
	if !ok {
		return nil, slp.NewError(slp.NotFound, "no agent for currency %v", currency)
	}
	return a, nil
}

// Currencies lists the registered currencies.
func (r *Registry) Currencies() []slp.Currency {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := make([]slp.Currency, 0, len(r.agents))
	for c := range r.agents {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	return list
}

func settled(s *Settlement) {
	currency := "unknown"
	if s.Entry != nil {
		currency = s.Entry.Currency().String()
	}
	metricSettled().AddWithLabel(1, map[string]string{"currency": currency, "result": s.Result.String()})
}

// Confirm settles the entry c refers to. A successful outcome is applied onto
// the mirrored state before the entry is removed, a failed one only removes it.
//
// A confirmation of an unknown entry yields a Stale settlement along with a
// StaleConfirmation error, and changes nothing. When applying fails the entry
// is kept and the error returned, an InvariantViolation must halt the caller.
func (r *Registry) Confirm(c transport.Confirmation) (*Settlement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok, err := r.backend.Queue.Get(c.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		s := &Settlement{ID: c.ID, Result: Stale, Reason: c.Outcome.String()}
		settled(s)
		logger.Warn("stale confirmation", "id", c.ID, "outcome", c.Outcome)
		return s, slp.NewError(slp.StaleConfirmation, "no pending entry %d", c.ID)
	}

	s := &Settlement{ID: c.ID, Entry: e}
	switch c.Outcome {
	case transport.Success:
		a, err := r.agent(e.Currency())
		if err != nil {
			return nil, err
		}
		if err := a.Apply(e); err != nil {
			logger.Error("failed to apply entry", "id", e.ID, "currency", e.Currency(), "op", e.Describe(), "err", err)
			return nil, errors.WithMessagef(err, "apply entry %d", e.ID)
		}
		s.Result = Applied
	case transport.Failure:
		s.Result, s.Reason = Failed, c.Reason
	default:
		return nil, errors.Errorf("confirmation %d has unknown outcome %v", c.ID, c.Outcome)
	}

	if _, _, err := r.backend.Queue.Remove(e.ID); err != nil {
		return nil, err
	}
	settled(s)
	logger.Debug("entry settled", "id", e.ID, "currency", e.Currency(), "op", e.Describe(), "result", s.Result)
	return s, nil
}

// Timeout drops the entry id without touching the mirrored state.
func (r *Registry) Timeout(id uint64) (*Settlement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timeout(id)
}

func (r *Registry) timeout(id uint64) (*Settlement, error) {
	e, ok, err := r.backend.Queue.Remove(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, slp.NewError(slp.NotFound, "no pending entry %d", id)
	}
	s := &Settlement{ID: id, Result: TimedOut, Entry: e}
	settled(s)
	logger.Warn("entry timed out", "id", id, "currency", e.Currency(), "delegator", e.Delegator(), "op", e.Describe())
	return s, nil
}

// Sweep times out up to max entries older than timeout, oldest first.
func (r *Registry) Sweep(now time.Time, timeout time.Duration, max int) ([]*Settlement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	expired, err := r.backend.Queue.Expired(now, timeout, max)
	if err != nil {
		return nil, err
	}
	list := make([]*Settlement, 0, len(expired))
	for _, e := range expired {
		s, err := r.timeout(e.ID)
		if err != nil {
			return list, err
		}
		list = append(list, s)
	}
	return list, nil
}
