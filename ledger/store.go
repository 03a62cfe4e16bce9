// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"github.com/pkg/errors"

	"github.com/vechain/slp/cache"
	"github.com/vechain/slp/kv"
	"github.com/vechain/slp/log"
	"github.com/vechain/slp/metrics"
	"github.com/vechain/slp/slp"
)

var (
	logger = log.WithContext("pkg", "ledger")

	metricCacheMisses = metrics.LazyLoadCounter("ledger_cache_misses_count")
)

// Key identifies the ledger of a delegator.
type Key struct {
	Currency  slp.Currency
	Delegator slp.Address
}

func (k Key) Bytes() []byte {
	return k.Currency.Key(k.Delegator.Bytes())
}

// Entry is a ledger listed with its delegator.
type Entry struct {
	Delegator slp.Address
	Ledger    Ledger
}

// Store persists ledgers keyed by (currency, delegator) behind a read cache.
// Ledgers returned by the store are copies, mutating them does not affect the store.
type Store struct {
	ledgers *kv.Mapping[Key, envelope]
	cache   *cache.LRU[Key, Ledger]
}

// NewStore creates a ledger store on db caching up to cacheSize ledgers.
func NewStore(db kv.Store, cacheSize int) (*Store, error) {
	c, err := cache.NewLRU[Key, Ledger](cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "create ledger cache")
	}
	return &Store{
		ledgers: kv.NewMapping[Key, envelope](db, "ledger/"),
		cache:   c,
	}, nil
}

func (s *Store) load(key Key) (Ledger, bool, error) {
	metricCacheMisses().Add(1)
	e, ok, err := s.ledgers.Get(key)
	if err != nil || !ok {
		return nil, ok, err
	}
	return e.ledger, true, nil
}

// Get returns the ledger of delegator, ok is false if it has none.
func (s *Store) Get(currency slp.Currency, delegator slp.Address) (Ledger, bool, error) {
	l, ok, err := s.cache.GetOrLoad(Key{currency, delegator}, s.load)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to get ledger")
	}
	if !ok {
		return nil, false, nil
	}
	return l.Clone(), true, nil
}

func validate(delegator slp.Address, l Ledger) error {
	if l.Owner() != delegator {
		return slp.NewError(slp.InvariantViolation, "ledger of %v written for delegator %v", l.Owner(), delegator)
	}
	if err := l.Check(); err != nil {
		if slp.IsKind(err, slp.InvariantViolation) {
			return err
		}
		return slp.WrapError(slp.InvariantViolation, err, "ledger check")
	}
	return nil
}

// Upsert writes the ledger of delegator. A ledger failing its invariant is
// refused with InvariantViolation and nothing is written.
func (s *Store) Upsert(currency slp.Currency, delegator slp.Address, l Ledger) error {
	if err := validate(delegator, l); err != nil {
		return err
	}
	if old, ok, err := s.Get(currency, delegator); err != nil {
		return err
	} else if ok && old.Kind() != l.Kind() {
		return slp.NewError(slp.InvariantViolation, "ledger of %v is %s, got %s", delegator, KindName(old.Kind()), KindName(l.Kind()))
	}

	key := Key{currency, delegator}
	if err := s.ledgers.Set(key, envelope{l}); err != nil {
		s.cache.Remove(key)
		return errors.Wrap(err, "failed to set ledger")
	}
	s.cache.Add(key, l.Clone())
	logger.Trace("ledger written", "currency", currency, "delegator", delegator, "kind", KindName(l.Kind()))
	return nil
}

// Set replaces the ledger of delegator regardless of the kind it had.
// The ledger must still hold its invariant.
func (s *Store) Set(currency slp.Currency, delegator slp.Address, l Ledger) error {
	if err := validate(delegator, l); err != nil {
		return err
	}
	if err := s.Delete(currency, delegator); err != nil {
		return err
	}
	return s.Upsert(currency, delegator, l)
}

// RemoveIfEmpty deletes the ledger of delegator when it holds nothing.
func (s *Store) RemoveIfEmpty(currency slp.Currency, delegator slp.Address) (bool, error) {
	l, ok, err := s.Get(currency, delegator)
	if err != nil || !ok {
		return false, err
	}
	if !l.IsEmpty() {
		return false, nil
	}
	if err := s.Delete(currency, delegator); err != nil {
		return false, err
	}
	logger.Debug("empty ledger removed", "currency", currency, "delegator", delegator)
	return true, nil
}

// Delete removes the ledger of delegator.
func (s *Store) Delete(currency slp.Currency, delegator slp.Address) error {
	key := Key{currency, delegator}
	s.cache.Remove(key)
	return errors.Wrap(s.ledgers.Delete(key), "failed to delete ledger")
}

// List returns every ledger of currency ordered by delegator.
func (s *Store) List(currency slp.Currency) ([]Entry, error) {
	prefix := currency.Key()
	var entries []Entry
	err := s.ledgers.Iterate(prefix, func(key []byte, e envelope) error {
		entries = append(entries, Entry{
			Delegator: slp.BytesToAddress(key[len(prefix):]),
			Ledger:    e.ledger,
		})
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list ledgers")
	}
	return entries, nil
}
