// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package utils

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/slp/slp"
)

// CurrencyVar parses the "currency" path variable.
func CurrencyVar(r *http.Request) (slp.Currency, error) {
	c, err := slp.ParseCurrency(mux.Vars(r)["currency"])
	if err != nil {
		return "", BadRequest(errors.WithMessage(err, "currency"))
	}
	return c, nil
}

// AddressVar parses the path variable name as an address.
func AddressVar(r *http.Request, name string) (slp.Address, error) {
	addr, err := slp.ParseAddress(mux.Vars(r)[name])
	if err != nil {
		return slp.Address{}, BadRequest(errors.WithMessage(err, name))
	}
	return addr, nil
}

// Uint64Query parses an optional unsigned query parameter, returning def when absent.
func Uint64Query(r *http.Request, name string, def uint64) (uint64, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, BadRequest(errors.WithMessage(err, name))
	}
	return v, nil
}
