// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package policy

import (
	"github.com/pkg/errors"

	"github.com/vechain/slp/kv"
	"github.com/vechain/slp/log"
	"github.com/vechain/slp/slp"
	"github.com/vechain/slp/timeunit"
)

var logger = log.WithContext("pkg", "policy")

// Store owns the per currency policy tables.
type Store struct {
	minsMaxs *kv.Mapping[slp.Currency, MinimumsMaximums]
	delays   *kv.Mapping[slp.Currency, Delays]
	ongoing  *kv.Mapping[slp.Currency, timeunit.TimeUnit]
}

// NewStore creates the policy store on db.
func NewStore(db kv.Store) *Store {
	return &Store{
		minsMaxs: kv.NewMapping[slp.Currency, MinimumsMaximums](db, "policy/mm/"),
		delays:   kv.NewMapping[slp.Currency, Delays](db, "policy/dl/"),
		ongoing:  kv.NewMapping[slp.Currency, timeunit.TimeUnit](db, "policy/og/"),
	}
}

// MinimumsMaximums returns the bounds of currency, NotFound if never set.
func (s *Store) MinimumsMaximums(currency slp.Currency) (*MinimumsMaximums, error) {
	mm, ok, err := s.minsMaxs.Get(currency)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get minimums and maximums")
	}
	if !ok {
		return nil, slp.NewError(slp.NotFound, "minimums and maximums of %v not set", currency)
	}
	return &mm, nil
}

// SetMinimumsMaximums replaces the bounds of currency.
func (s *Store) SetMinimumsMaximums(currency slp.Currency, mm *MinimumsMaximums) error {
	if err := mm.Validate(); err != nil {
		return slp.WrapError(slp.PolicyViolation, err, "invalid minimums and maximums")
	}
	if err := s.minsMaxs.Set(currency, *mm); err != nil {
		return errors.Wrap(err, "failed to set minimums and maximums")
	}
	logger.Info("minimums and maximums updated", "currency", currency)
	return nil
}

// Delays returns the delays of currency, NotFound if never set.
func (s *Store) Delays(currency slp.Currency) (*Delays, error) {
	d, ok, err := s.delays.Get(currency)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get delays")
	}
	if !ok {
		return nil, slp.NewError(slp.NotFound, "delays of %v not set", currency)
	}
	return &d, nil
}

// SetDelays replaces the delays of currency.
func (s *Store) SetDelays(currency slp.Currency, d *Delays) error {
	if err := d.Validate(); err != nil {
		return slp.WrapError(slp.PolicyViolation, err, "invalid delays")
	}
	if err := s.delays.Set(currency, *d); err != nil {
		return errors.Wrap(err, "failed to set delays")
	}
	logger.Info("delays updated", "currency", currency, "unlock", d.UnlockDelay, "leave", d.LeaveDelegatorsDelay)
	return nil
}

// Policy returns both the bounds and the delays of currency.
func (s *Store) Policy(currency slp.Currency) (*MinimumsMaximums, *Delays, error) {
	mm, err := s.MinimumsMaximums(currency)
	if err != nil {
		return nil, nil, err
	}
	d, err := s.Delays(currency)
	if err != nil {
		return nil, nil, err
	}
	return mm, d, nil
}

// OngoingTimeUnit returns the current remote time of currency, NotFound if never set.
func (s *Store) OngoingTimeUnit(currency slp.Currency) (timeunit.TimeUnit, error) {
	t, ok, err := s.ongoing.Get(currency)
	if err != nil {
		return timeunit.TimeUnit{}, errors.Wrap(err, "failed to get ongoing time unit")
	}
	if !ok {
		return timeunit.TimeUnit{}, slp.NewError(slp.NotFound, "ongoing time unit of %v not set", currency)
	}
	return t, nil
}

// UpdateOngoingTimeUnit advances the current remote time of currency.
// It never moves backwards nor switches domain, which keeps computed unlock times monotonic.
func (s *Store) UpdateOngoingTimeUnit(currency slp.Currency, t timeunit.TimeUnit) error {
	if !t.Valid() {
		return slp.NewError(slp.PolicyViolation, "invalid time unit %v", t)
	}
	current, ok, err := s.ongoing.Get(currency)
	if err != nil {
		return errors.Wrap(err, "failed to get ongoing time unit")
	}
	if ok {
		c, err := t.Cmp(current)
		if err != nil {
			return slp.WrapError(slp.PolicyViolation, err, "cannot update ongoing time unit")
		}
		if c < 0 {
			return slp.NewError(slp.PolicyViolation, "ongoing time unit %v is behind %v", t, current)
		}
	}
	if err := s.ongoing.Set(currency, t); err != nil {
		return errors.Wrap(err, "failed to set ongoing time unit")
	}
	logger.Debug("ongoing time unit updated", "currency", currency, "time", t)
	return nil
}

// UnlockTime returns the ongoing time of currency plus delay.
func (s *Store) UnlockTime(currency slp.Currency, delay timeunit.TimeUnit) (timeunit.TimeUnit, error) {
	now, err := s.OngoingTimeUnit(currency)
	if err != nil {
		return timeunit.TimeUnit{}, err
	}
	at, ok := now.SaturatingAdd(delay)
	if !ok {
		return timeunit.TimeUnit{}, slp.NewError(slp.PolicyViolation, "delay %v does not match ongoing time unit %v", delay, now)
	}
	return at, nil
}
