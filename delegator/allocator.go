// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package delegator

import (
	"encoding/binary"
	"sync"

	"github.com/pkg/errors"

	"github.com/vechain/slp/kv"
	"github.com/vechain/slp/log"
	"github.com/vechain/slp/policy"
	"github.com/vechain/slp/slp"
)

var logger = log.WithContext("pkg", "delegator")

// Delegator is an allocated subaccount.
type Delegator struct {
	Index   uint16
	Address slp.Address
}

type indexKey struct {
	currency slp.Currency
	index    uint16
}

func (k indexKey) Bytes() []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], k.index)
	return k.currency.Key(b[:])
}

type addressKey struct {
	currency slp.Currency
	address  slp.Address
}

func (k addressKey) Bytes() []byte {
	return k.currency.Key(k.address.Bytes())
}

// Allocator maintains the (currency, index) <-> address pair of tables.
// Both directions are always written in one batch.
type Allocator struct {
	db        kv.Store
	addresses *kv.Mapping[indexKey, slp.Address]
	indices   *kv.Mapping[addressKey, uint16]
	policies  *policy.Store

	mu       sync.RWMutex
	derivers map[slp.Currency]Deriver
}

// NewAllocator creates the allocator on db. Capacity is read from the currency's policy.
func NewAllocator(db kv.Store, policies *policy.Store) *Allocator {
	return &Allocator{
		db:        db,
		addresses: kv.NewMapping[indexKey, slp.Address](db, "delegator/a/"),
		indices:   kv.NewMapping[addressKey, uint16](db, "delegator/i/"),
		policies:  policies,
		derivers:  make(map[slp.Currency]Deriver),
	}
}

// SetDeriver configures how currency derives its subaccounts.
func (a *Allocator) SetDeriver(currency slp.Currency, d Deriver) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.derivers[currency] = d
}

func (a *Allocator) deriver(currency slp.Currency) (Deriver, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	d, ok := a.derivers[currency]
	if !ok {
		return nil, slp.NewError(slp.NotFound, "no derivation configured for %v", currency)
	}
	return d, nil
}

// Allocate assigns the lowest free index of currency and registers its derived address.
func (a *Allocator) Allocate(currency slp.Currency) (uint16, slp.Address, error) {
	d, err := a.deriver(currency)
	if err != nil {
		return 0, slp.Address{}, err
	}
	if err := a.checkCapacity(currency); err != nil {
		return 0, slp.Address{}, err
	}

	used := make(map[uint16]bool)
	if err := a.iterate(currency, func(del Delegator) error {
		used[del.Index] = true
		return nil
	}); err != nil {
		return 0, slp.Address{}, err
	}

	index := uint16(0)
	for used[index] {
		index++
	}
	addr := d.Derive(index)
	if err := a.insert(currency, index, addr); err != nil {
		return 0, slp.Address{}, err
	}
	logger.Info("delegator allocated", "currency", currency, "index", index, "address", addr)
	return index, addr, nil
}

// Register records an externally created delegator under index.
func (a *Allocator) Register(currency slp.Currency, index uint16, addr slp.Address) error {
	if addr.IsZero() {
		return slp.NewError(slp.PolicyViolation, "delegator address is zero")
	}
	if err := a.checkCapacity(currency); err != nil {
		return err
	}
	if err := a.insert(currency, index, addr); err != nil {
		return err
	}
	logger.Info("delegator registered", "currency", currency, "index", index, "address", addr)
	return nil
}

func (a *Allocator) checkCapacity(currency slp.Currency) error {
	mm, err := a.policies.MinimumsMaximums(currency)
	if err != nil {
		return err
	}
	count, err := a.Count(currency)
	if err != nil {
		return err
	}
	return mm.CheckDelegatorCount(count)
}

func (a *Allocator) insert(currency slp.Currency, index uint16, addr slp.Address) error {
	if has, err := a.addresses.Has(indexKey{currency, index}); err != nil {
		return errors.Wrap(err, "failed to check index")
	} else if has {
		return slp.NewError(slp.PolicyViolation, "index %d of %v already assigned", index, currency)
	}
	if has, err := a.indices.Has(addressKey{currency, addr}); err != nil {
		return errors.Wrap(err, "failed to check address")
	} else if has {
		return slp.NewError(slp.PolicyViolation, "address %v of %v already registered", addr, currency)
	}

	batch := a.db.NewBatch()
	if err := a.addresses.SetIn(batch, indexKey{currency, index}, addr); err != nil {
		return err
	}
	if err := a.indices.SetIn(batch, addressKey{currency, addr}, index); err != nil {
		return err
	}
	return errors.Wrap(batch.Write(), "failed to write delegator")
}

// Remove unregisters the delegator of addr. The caller guarantees it holds no
// ledger and no pending operation.
func (a *Allocator) Remove(currency slp.Currency, addr slp.Address) error {
	index, err := a.IndexOf(currency, addr)
	if err != nil {
		return err
	}
	batch := a.db.NewBatch()
	if err := a.addresses.DeleteIn(batch, indexKey{currency, index}); err != nil {
		return err
	}
	if err := a.indices.DeleteIn(batch, addressKey{currency, addr}); err != nil {
		return err
	}
	if err := batch.Write(); err != nil {
		return errors.Wrap(err, "failed to remove delegator")
	}
	logger.Info("delegator removed", "currency", currency, "index", index, "address", addr)
	return nil
}

// AddressOf returns the address registered under index.
func (a *Allocator) AddressOf(currency slp.Currency, index uint16) (slp.Address, error) {
	addr, ok, err := a.addresses.Get(indexKey{currency, index})
	if err != nil {
		return slp.Address{}, errors.Wrap(err, "failed to get delegator address")
	}
	if !ok {
		return slp.Address{}, slp.NewError(slp.NotFound, "no delegator at index %d of %v", index, currency)
	}
	return addr, nil
}

// IndexOf returns the index addr is registered under.
func (a *Allocator) IndexOf(currency slp.Currency, addr slp.Address) (uint16, error) {
	index, ok, err := a.indices.Get(addressKey{currency, addr})
	if err != nil {
		return 0, errors.Wrap(err, "failed to get delegator index")
	}
	if !ok {
		return 0, slp.NewError(slp.NotFound, "delegator %v of %v not found", addr, currency)
	}
	return index, nil
}

// Contains returns whether addr is a delegator of currency.
func (a *Allocator) Contains(currency slp.Currency, addr slp.Address) (bool, error) {
	return a.indices.Has(addressKey{currency, addr})
}

// List returns the delegators of currency ordered by index.
func (a *Allocator) List(currency slp.Currency) ([]Delegator, error) {
	var out []Delegator
	err := a.iterate(currency, func(d Delegator) error {
		out = append(out, d)
		return nil
	})
	return out, err
}

// Count returns the number of delegators of currency.
func (a *Allocator) Count(currency slp.Currency) (int, error) {
	n := 0
	err := a.iterate(currency, func(Delegator) error {
		n++
		return nil
	})
	return n, err
}

func (a *Allocator) iterate(currency slp.Currency, fn func(Delegator) error) error {
	prefix := currency.Key()
	err := a.addresses.Iterate(prefix, func(key []byte, addr slp.Address) error {
		index := binary.BigEndian.Uint16(key[len(prefix):])
		return fn(Delegator{Index: index, Address: addr})
	})
	return errors.Wrap(err, "failed to iterate delegators")
}
