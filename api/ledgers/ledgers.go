// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledgers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vechain/slp/api/utils"
	"github.com/vechain/slp/registry"
	"github.com/vechain/slp/slp"
)

type Ledgers struct {
	registry *registry.Registry
}

func New(registry *registry.Registry) *Ledgers {
	return &Ledgers{
		registry,
	}
}

func (l *Ledgers) handleGetLedgers(w http.ResponseWriter, req *http.Request) error {
	currency, err := utils.CurrencyVar(req)
	if err != nil {
		return err
	}
	if _, err := l.registry.Agent(currency); err != nil {
		return err
	}
	entries, err := l.registry.Ledgers(currency)
	if err != nil {
		return err
	}
	out := make([]*Ledger, 0, len(entries))
	for _, e := range entries {
		out = append(out, convertLedger(e.Delegator, e.Ledger))
	}
	return utils.WriteJSON(w, out)
}

func (l *Ledgers) handleGetLedger(w http.ResponseWriter, req *http.Request) error {
	currency, err := utils.CurrencyVar(req)
	if err != nil {
		return err
	}
	delegator, err := utils.AddressVar(req, "delegator")
	if err != nil {
		return err
	}
	ledger, err := l.registry.Ledger(currency, delegator)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, convertLedger(delegator, ledger))
}

func (l *Ledgers) handleGetDelegators(w http.ResponseWriter, req *http.Request) error {
	currency, err := utils.CurrencyVar(req)
	if err != nil {
		return err
	}
	ds, err := l.registry.Delegators(currency)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, convertDelegators(ds))
}

func (l *Ledgers) handleGetValidators(w http.ResponseWriter, req *http.Request) error {
	currency, err := utils.CurrencyVar(req)
	if err != nil {
		return err
	}
	delegator, err := utils.AddressVar(req, "delegator")
	if err != nil {
		return err
	}
	vs, err := l.registry.ValidatorsOf(currency, delegator)
	if err != nil {
		return err
	}
	if vs == nil {
		vs = []slp.Address{}
	}
	return utils.WriteJSON(w, vs)
}

func (l *Ledgers) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/{currency}").
		Methods(http.MethodGet).
		Name("ledgers_get_ledgers").
		HandlerFunc(utils.WrapHandlerFunc(l.handleGetLedgers))
	sub.Path("/{currency}/delegators").
		Methods(http.MethodGet).
		Name("ledgers_get_delegators").
		HandlerFunc(utils.WrapHandlerFunc(l.handleGetDelegators))
	sub.Path("/{currency}/{delegator}").
		Methods(http.MethodGet).
		Name("ledgers_get_ledger").
		HandlerFunc(utils.WrapHandlerFunc(l.handleGetLedger))
	sub.Path("/{currency}/{delegator}/validators").
		Methods(http.MethodGet).
		Name("ledgers_get_validators").
		HandlerFunc(utils.WrapHandlerFunc(l.handleGetValidators))
}
