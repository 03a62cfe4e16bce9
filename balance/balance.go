// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package balance keeps the local balances credited and debited by reconciled transfers.
package balance

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/slp/kv"
	"github.com/vechain/slp/log"
	"github.com/vechain/slp/slp"
)

var logger = log.WithContext("pkg", "balance")

type accountKey struct {
	currency slp.Currency
	account  slp.Address
}

func (k accountKey) Bytes() []byte {
	return k.currency.Key(k.account.Bytes())
}

// Book is a persisted balance sheet per (currency, account).
type Book struct {
	balances *kv.Mapping[accountKey, uint256.Int]
}

func NewBook(db kv.Store) *Book {
	return &Book{kv.NewMapping[accountKey, uint256.Int](db, "balance/")}
}

// Balance returns the balance of account.
func (b *Book) Balance(currency slp.Currency, account slp.Address) (*uint256.Int, error) {
	v, _, err := b.balances.Get(accountKey{currency, account})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get balance")
	}
	return &v, nil
}

// Credit adds amount to account.
func (b *Book) Credit(currency slp.Currency, account slp.Address, amount *uint256.Int) error {
	bal, err := b.Balance(currency, account)
	if err != nil {
		return err
	}
	sum, overflow := new(uint256.Int).AddOverflow(bal, amount)
	if overflow {
		return slp.NewError(slp.InvariantViolation, "balance overflow of %v", account)
	}
	if err := b.set(currency, account, sum); err != nil {
		return err
	}
	logger.Debug("credited", "currency", currency, "account", account, "amount", amount.Dec())
	return nil
}

// Debit subtracts amount from account. It fails with PolicyViolation when the balance is short.
func (b *Book) Debit(currency slp.Currency, account slp.Address, amount *uint256.Int) error {
	bal, err := b.Balance(currency, account)
	if err != nil {
		return err
	}
	if bal.Lt(amount) {
		return slp.NewError(slp.PolicyViolation, "balance of %v is %v, short of %v", account, bal.Dec(), amount.Dec())
	}
	if err := b.set(currency, account, new(uint256.Int).Sub(bal, amount)); err != nil {
		return err
	}
	logger.Debug("debited", "currency", currency, "account", account, "amount", amount.Dec())
	return nil
}

func (b *Book) set(currency slp.Currency, account slp.Address, v *uint256.Int) error {
	key := accountKey{currency, account}
	if v.IsZero() {
		return errors.Wrap(b.balances.Delete(key), "failed to delete balance")
	}
	return errors.Wrap(b.balances.Set(key, *v), "failed to set balance")
}
