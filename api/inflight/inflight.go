// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package inflight

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/slp/api/utils"
	"github.com/vechain/slp/registry"
)

type Inflight struct {
	registry *registry.Registry
	limit    uint64
}

// New creates the in-flight operations API. limit caps a listing.
func New(registry *registry.Registry, limit uint64) *Inflight {
	return &Inflight{
		registry,
		limit,
	}
}

func (i *Inflight) handleList(w http.ResponseWriter, req *http.Request) error {
	limit, err := utils.Uint64Query(req, "limit", i.limit)
	if err != nil {
		return err
	}
	if limit == 0 {
		limit = i.limit
	}
	if limit > i.limit {
		return utils.BadRequest(errors.Errorf("limit exceeds the maximum allowed value of %d", i.limit))
	}
	entries, err := i.registry.Pending(int(limit))
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, convertEntries(entries))
}

func (i *Inflight) handleListOf(w http.ResponseWriter, req *http.Request) error {
	currency, err := utils.CurrencyVar(req)
	if err != nil {
		return err
	}
	delegator, err := utils.AddressVar(req, "delegator")
	if err != nil {
		return err
	}
	entries, err := i.registry.PendingOf(currency, delegator)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, convertEntries(entries))
}

func (i *Inflight) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("pending_list").
		HandlerFunc(utils.WrapHandlerFunc(i.handleList))
	sub.Path("/{currency}/{delegator}").
		Methods(http.MethodGet).
		Name("pending_list_of_delegator").
		HandlerFunc(utils.WrapHandlerFunc(i.handleListOf))
}
