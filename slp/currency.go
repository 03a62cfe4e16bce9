// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slp

import (
	"strings"

	"github.com/pkg/errors"
)

// MaxCurrencyLength is the longest currency symbol accepted.
const MaxCurrencyLength = 16

// Currency is the symbol of a staked token, e.g. "DOT" or "MOVR".
type Currency string

// ParseCurrency normalizes and validates a currency symbol.
func ParseCurrency(s string) (Currency, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", errors.New("currency is empty")
	}
	if len(s) > MaxCurrencyLength {
		return "", errors.Errorf("currency %q is too long", s)
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", errors.Errorf("currency %q contains invalid character %q", s, r)
		}
	}
	return Currency(s), nil
}

// Bytes returns the symbol bytes, used as key prefix.
func (c Currency) Bytes() []byte {
	return []byte(c)
}

func (c Currency) String() string {
	return string(c)
}

// Key returns the storage key prefix of the currency.
// The separator keeps "DOT" and "DOTX" prefixes apart.
func (c Currency) Key(suffix ...[]byte) []byte {
	n := len(c) + 1
	for _, s := range suffix {
		n += len(s)
	}
	key := make([]byte, 0, n)
	key = append(key, c...)
	key = append(key, 0)
	for _, s := range suffix {
		key = append(key, s...)
	}
	return key
}
