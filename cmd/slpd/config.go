// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"os"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vechain/slp/policy"
	"github.com/vechain/slp/service"
	"github.com/vechain/slp/slp"
	"github.com/vechain/slp/timeunit"
)

type config struct {
	Currencies []currencyConfig `yaml:"currencies"`
}

type currencyConfig struct {
	Symbol     string       `yaml:"symbol"`
	Protocol   string       `yaml:"protocol"`
	Parent     string       `yaml:"parent"`
	Ethereum   bool         `yaml:"ethereum"`
	Bounds     boundsConfig `yaml:"bounds"`
	Delays     delaysConfig `yaml:"delays"`
	Ongoing    string       `yaml:"ongoing"`
	Validators []string     `yaml:"validators"`
}

// amounts are decimal strings, yaml integers overflow beyond 64 bits.
type boundsConfig struct {
	DelegatorBondedMinimum        string `yaml:"delegator-bonded-minimum"`
	BondExtraMinimum              string `yaml:"bond-extra-minimum"`
	UnbondMinimum                 string `yaml:"unbond-minimum"`
	RebondMinimum                 string `yaml:"rebond-minimum"`
	UnbondRecordMaximum           uint32 `yaml:"unbond-record-maximum"`
	ValidatorsBackMaximum         uint32 `yaml:"validators-back-maximum"`
	DelegatorActiveStakingMaximum string `yaml:"delegator-active-staking-maximum"`
	ValidatorsRewardMaximum       uint32 `yaml:"validators-reward-maximum"`
	DelegationAmountMinimum       string `yaml:"delegation-amount-minimum"`
	DelegatorsMaximum             uint16 `yaml:"delegators-maximum"`
	ValidatorsMaximum             uint16 `yaml:"validators-maximum"`
}

type delaysConfig struct {
	Unlock          string `yaml:"unlock"`
	LeaveDelegators string `yaml:"leave-delegators"`
}

func loadConfig(path string) ([]*service.Currency, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	return parseConfig(content)
}

func parseConfig(content []byte) ([]*service.Currency, error) {
	var cfg config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if len(cfg.Currencies) == 0 {
		return nil, errors.New("no currency configured")
	}

	seen := make(map[slp.Currency]bool)
	currencies := make([]*service.Currency, 0, len(cfg.Currencies))
	for i := range cfg.Currencies {
		c, err := cfg.Currencies[i].convert()
		if err != nil {
			return nil, errors.WithMessagef(err, "currencies[%d]", i)
		}
		if seen[c.Symbol] {
			return nil, errors.Errorf("currency %v configured twice", c.Symbol)
		}
		seen[c.Symbol] = true
		currencies = append(currencies, c)
	}
	return currencies, nil
}

func (c *currencyConfig) convert() (*service.Currency, error) {
	symbol, err := slp.ParseCurrency(c.Symbol)
	if err != nil {
		return nil, err
	}
	parent, err := slp.ParseAddress(c.Parent)
	if err != nil {
		return nil, errors.Wrap(err, "parent")
	}
	bounds, err := c.Bounds.convert()
	if err != nil {
		return nil, errors.WithMessage(err, "bounds")
	}
	delays, err := c.Delays.convert()
	if err != nil {
		return nil, errors.WithMessage(err, "delays")
	}
	var ongoing timeunit.TimeUnit
	if err := ongoing.UnmarshalText([]byte(c.Ongoing)); err != nil {
		return nil, errors.WithMessage(err, "ongoing")
	}

	validators := make([]slp.Address, 0, len(c.Validators))
	for _, v := range c.Validators {
		addr, err := slp.ParseAddress(v)
		if err != nil {
			return nil, errors.Wrapf(err, "validator %q", v)
		}
		validators = append(validators, addr)
	}

	return &service.Currency{
		Symbol:     symbol,
		Protocol:   c.Protocol,
		Parent:     parent,
		Ethereum:   c.Ethereum,
		Bounds:     *bounds,
		Delays:     *delays,
		Ongoing:    ongoing,
		Validators: validators,
	}, nil
}

func (b *boundsConfig) convert() (*policy.MinimumsMaximums, error) {
	m := &policy.MinimumsMaximums{
		UnbondRecordMaximum:     b.UnbondRecordMaximum,
		ValidatorsBackMaximum:   b.ValidatorsBackMaximum,
		ValidatorsRewardMaximum: b.ValidatorsRewardMaximum,
		DelegatorsMaximum:       b.DelegatorsMaximum,
		ValidatorsMaximum:       b.ValidatorsMaximum,
	}
	amounts := []struct {
		name string
		text string
		dst  *uint256.Int
	}{
		{"delegator-bonded-minimum", b.DelegatorBondedMinimum, &m.DelegatorBondedMinimum},
		{"bond-extra-minimum", b.BondExtraMinimum, &m.BondExtraMinimum},
		{"unbond-minimum", b.UnbondMinimum, &m.UnbondMinimum},
		{"rebond-minimum", b.RebondMinimum, &m.RebondMinimum},
		{"delegator-active-staking-maximum", b.DelegatorActiveStakingMaximum, &m.DelegatorActiveStakingMaximum},
		{"delegation-amount-minimum", b.DelegationAmountMinimum, &m.DelegationAmountMinimum},
	}
	for _, a := range amounts {
		if a.text == "" {
			continue
		}
		if err := a.dst.SetFromDecimal(a.text); err != nil {
			return nil, errors.Wrapf(err, "%s %q", a.name, a.text)
		}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (d *delaysConfig) convert() (*policy.Delays, error) {
	var delays policy.Delays
	if err := delays.UnlockDelay.UnmarshalText([]byte(d.Unlock)); err != nil {
		return nil, errors.WithMessage(err, "unlock")
	}
	if err := delays.LeaveDelegatorsDelay.UnmarshalText([]byte(d.LeaveDelegators)); err != nil {
		return nil, errors.WithMessage(err, "leave-delegators")
	}
	if err := delays.Validate(); err != nil {
		return nil, err
	}
	return &delays, nil
}
