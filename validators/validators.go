// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package validators

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/vechain/slp/kv"
	"github.com/vechain/slp/log"
	"github.com/vechain/slp/policy"
	"github.com/vechain/slp/slp"
)

var logger = log.WithContext("pkg", "validators")

type delegatorKey struct {
	currency  slp.Currency
	delegator slp.Address
}

func (k delegatorKey) Bytes() []byte {
	return k.currency.Key(k.delegator.Bytes())
}

// Store owns the validator whitelist and the validators backed by each delegator.
type Store struct {
	whitelist   *kv.Mapping[slp.Currency, []slp.Address]
	byDelegator *kv.Mapping[delegatorKey, []slp.Address]
	policies    *policy.Store
}

// NewStore creates the validators store on db.
func NewStore(db kv.Store, policies *policy.Store) *Store {
	return &Store{
		whitelist:   kv.NewMapping[slp.Currency, []slp.Address](db, "validators/w/"),
		byDelegator: kv.NewMapping[delegatorKey, []slp.Address](db, "validators/d/"),
		policies:    policies,
	}
}

// Normalize sorts validators by the blake2b hash of their address and drops duplicates.
func Normalize(validators []slp.Address) []slp.Address {
	out := slices.Clone(validators)
	slices.SortFunc(out, func(a, b slp.Address) int {
		return slp.Blake2b(a.Bytes()).Cmp(slp.Blake2b(b.Bytes()))
	})
	return slices.Compact(out)
}

// Whitelist returns the whitelisted validators of currency.
func (s *Store) Whitelist(currency slp.Currency) ([]slp.Address, error) {
	list, _, err := s.whitelist.Get(currency)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get whitelist")
	}
	return list, nil
}

// Contains returns whether v is whitelisted for currency.
func (s *Store) Contains(currency slp.Currency, v slp.Address) (bool, error) {
	list, err := s.Whitelist(currency)
	if err != nil {
		return false, err
	}
	return slices.Contains(list, v), nil
}

// Add whitelists v for currency, bounded by the validators maximum.
func (s *Store) Add(currency slp.Currency, v slp.Address) error {
	if v.IsZero() {
		return slp.NewError(slp.PolicyViolation, "validator address is zero")
	}
	mm, err := s.policies.MinimumsMaximums(currency)
	if err != nil {
		return err
	}
	list, err := s.Whitelist(currency)
	if err != nil {
		return err
	}
	if slices.Contains(list, v) {
		return slp.NewError(slp.PolicyViolation, "validator %v already whitelisted", v)
	}
	if err := mm.CheckValidatorCount(len(list)); err != nil {
		return err
	}
	if err := s.whitelist.Set(currency, Normalize(append(list, v))); err != nil {
		return errors.Wrap(err, "failed to set whitelist")
	}
	logger.Info("validator whitelisted", "currency", currency, "validator", v)
	return nil
}

// Remove drops v from the whitelist of currency.
func (s *Store) Remove(currency slp.Currency, v slp.Address) error {
	list, err := s.Whitelist(currency)
	if err != nil {
		return err
	}
	i := slices.Index(list, v)
	if i < 0 {
		return slp.NewError(slp.NotFound, "validator %v not whitelisted", v)
	}
	if err := s.whitelist.Set(currency, slices.Delete(list, i, i+1)); err != nil {
		return errors.Wrap(err, "failed to set whitelist")
	}
	logger.Info("validator removed from whitelist", "currency", currency, "validator", v)
	return nil
}

// CheckWhitelisted fails with PolicyViolation when any of validators is not whitelisted.
func (s *Store) CheckWhitelisted(currency slp.Currency, validators ...slp.Address) error {
	list, err := s.Whitelist(currency)
	if err != nil {
		return err
	}
	for _, v := range validators {
		if !slices.Contains(list, v) {
			return slp.NewError(slp.PolicyViolation, "validator %v is not whitelisted", v)
		}
	}
	return nil
}

// ByDelegator returns the validators delegator backs.
func (s *Store) ByDelegator(currency slp.Currency, delegator slp.Address) ([]slp.Address, error) {
	list, _, err := s.byDelegator.Get(delegatorKey{currency, delegator})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get validators by delegator")
	}
	return list, nil
}

// SetByDelegator replaces the validators delegator backs. An empty set removes the record.
func (s *Store) SetByDelegator(currency slp.Currency, delegator slp.Address, validators []slp.Address) error {
	key := delegatorKey{currency, delegator}
	if len(validators) == 0 {
		return errors.Wrap(s.byDelegator.Delete(key), "failed to delete validators by delegator")
	}
	return errors.Wrap(s.byDelegator.Set(key, Normalize(validators)), "failed to set validators by delegator")
}
