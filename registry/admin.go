// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"github.com/holiman/uint256"

	"github.com/vechain/slp/delegator"
	"github.com/vechain/slp/ledger"
	"github.com/vechain/slp/pending"
	"github.com/vechain/slp/policy"
	"github.com/vechain/slp/slp"
	"github.com/vechain/slp/timeunit"
	"github.com/vechain/slp/validators"
)

// InitializeDelegator allocates the next delegator of currency.
func (r *Registry) InitializeDelegator(currency slp.Currency) (uint16, slp.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	index, addr, err := r.backend.Delegators.Allocate(currency)
	if err != nil {
		return 0, slp.Address{}, err
	}
	logger.Info("delegator initialized", "currency", currency, "index", index, "delegator", addr)
	return index, addr, nil
}

// AddDelegator registers addr at index.
func (r *Registry) AddDelegator(currency slp.Currency, index uint16, addr slp.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.backend.Delegators.Register(currency, index, addr); err != nil {
		return err
	}
	logger.Info("delegator added", "currency", currency, "index", index, "delegator", addr)
	return nil
}

// RemoveDelegator forgets addr along with its ledger and nominations.
// A delegator with entries in flight cannot be removed.
func (r *Registry) RemoveDelegator(currency slp.Currency, addr slp.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.backend.Queue.CheckAdmit(currency, addr, pending.OpUnknown); err != nil {
		return err
	}
	if err := r.backend.Delegators.Remove(currency, addr); err != nil {
		return err
	}
	if err := r.backend.Ledgers.Delete(currency, addr); err != nil {
		return err
	}
	if err := r.backend.Validators.SetByDelegator(currency, addr, nil); err != nil {
		return err
	}
	logger.Info("delegator purged", "currency", currency, "delegator", addr)
	return nil
}

// SetLedger overwrites the ledger of a registered delegator.
func (r *Registry) SetLedger(currency slp.Currency, addr slp.Address, l ledger.Ledger) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, err := r.agent(currency)
	if err != nil {
		return err
	}
	if a.Kind() != l.Kind() {
		return slp.NewError(slp.PolicyViolation, "%v keeps %s ledgers, got %s",
			currency, ledger.KindName(a.Kind()), ledger.KindName(l.Kind()))
	}
	if _, err := r.backend.Delegators.IndexOf(currency, addr); err != nil {
		return err
	}
	if err := r.backend.Ledgers.Set(currency, addr, l); err != nil {
		return err
	}
	logger.Info("ledger set", "currency", currency, "delegator", addr, "kind", ledger.KindName(l.Kind()))
	return nil
}

// SetValidatorsByDelegator overwrites the nominations mirrored for a bonded
// delegator, for resyncing after a timed out nomination.
func (r *Registry) SetValidatorsByDelegator(currency slp.Currency, addr slp.Address, vs []slp.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.agent(currency); err != nil {
		return err
	}
	if _, ok, err := r.backend.Ledgers.Get(currency, addr); err != nil {
		return err
	} else if !ok {
		return slp.NewError(slp.NotFound, "no ledger of %v for %v", addr, currency)
	}
	mm, _, err := r.backend.Policies.Policy(currency)
	if err != nil {
		return err
	}
	vs = validators.Normalize(vs)
	if err := mm.CheckValidatorsBack(len(vs)); err != nil {
		return err
	}
	if err := r.backend.Validators.CheckWhitelisted(currency, vs...); err != nil {
		return err
	}
	if err := r.backend.Validators.SetByDelegator(currency, addr, vs); err != nil {
		return err
	}
	logger.Info("validators set", "currency", currency, "delegator", addr, "count", len(vs))
	return nil
}

func (r *Registry) SetMinimumsMaximums(currency slp.Currency, mm *policy.MinimumsMaximums) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.Policies.SetMinimumsMaximums(currency, mm)
}

func (r *Registry) SetDelays(currency slp.Currency, d *policy.Delays) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.Policies.SetDelays(currency, d)
}

// UpdateOngoingTimeUnit advances the remote time of currency.
func (r *Registry) UpdateOngoingTimeUnit(currency slp.Currency, t timeunit.TimeUnit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.backend.Policies.UpdateOngoingTimeUnit(currency, t); err != nil {
		return err
	}
	logger.Debug("ongoing time unit updated", "currency", currency, "now", t)
	return nil
}

func (r *Registry) AddValidator(currency slp.Currency, v slp.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.Validators.Add(currency, v)
}

func (r *Registry) RemoveValidator(currency slp.Currency, v slp.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.Validators.Remove(currency, v)
}

// Ledger returns the mirrored ledger of a delegator.
func (r *Registry) Ledger(currency slp.Currency, addr slp.Address) (ledger.Ledger, error) {
	l, ok, err := r.backend.Ledgers.Get(currency, addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, slp.NewError(slp.NotFound, "no ledger of %v for %v", addr, currency)
	}
	return l, nil
}

func (r *Registry) Ledgers(currency slp.Currency) ([]ledger.Entry, error) {
	return r.backend.Ledgers.List(currency)
}

func (r *Registry) Delegators(currency slp.Currency) ([]delegator.Delegator, error) {
	return r.backend.Delegators.List(currency)
}

func (r *Registry) Pending(limit int) ([]*pending.Entry, error) {
	return r.backend.Queue.List(limit)
}

func (r *Registry) PendingOf(currency slp.Currency, addr slp.Address) ([]*pending.Entry, error) {
	return r.backend.Queue.ByDelegator(currency, addr)
}

func (r *Registry) Policy(currency slp.Currency) (*policy.MinimumsMaximums, *policy.Delays, error) {
	return r.backend.Policies.Policy(currency)
}

func (r *Registry) OngoingTimeUnit(currency slp.Currency) (timeunit.TimeUnit, error) {
	return r.backend.Policies.OngoingTimeUnit(currency)
}

func (r *Registry) Whitelist(currency slp.Currency) ([]slp.Address, error) {
	return r.backend.Validators.Whitelist(currency)
}

func (r *Registry) ValidatorsOf(currency slp.Currency, addr slp.Address) ([]slp.Address, error) {
	return r.backend.Validators.ByDelegator(currency, addr)
}

func (r *Registry) Balance(currency slp.Currency, account slp.Address) (*uint256.Int, error) {
	return r.backend.Currency.Balance(currency, account)
}
