// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package operations

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/slp/api/utils"
	"github.com/vechain/slp/auditlog"
	"github.com/vechain/slp/registry"
	"github.com/vechain/slp/slp"
)

type Operations struct {
	registry *registry.Registry
	audit    *auditlog.AuditLog
	limit    uint64
}

// New creates the operations API. limit caps the settlements returned at once.
func New(registry *registry.Registry, audit *auditlog.AuditLog, limit uint64) *Operations {
	return &Operations{
		registry,
		audit,
		limit,
	}
}

func (o *Operations) handleDispatch(w http.ResponseWriter, req *http.Request) error {
	var body Request
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	r, err := body.convert()
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "currency"))
	}
	id, err := o.registry.Dispatch(req.Context(), r)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &Dispatched{ID: id, Pending: id != 0})
}

func (o *Operations) parseFilter(req *http.Request) (*auditlog.Filter, error) {
	query := req.URL.Query()
	f := &auditlog.Filter{
		Result: query.Get("result"),
		Order:  auditlog.ASC,
	}
	if s := query.Get("id"); s != "" {
		id, err := utils.Uint64Query(req, "id", 0)
		if err != nil {
			return nil, err
		}
		f.ID = &id
	}
	if s := query.Get("currency"); s != "" {
		c, err := slp.ParseCurrency(s)
		if err != nil {
			return nil, utils.BadRequest(errors.WithMessage(err, "currency"))
		}
		f.Currency = c
	}
	if s := query.Get("delegator"); s != "" {
		d, err := slp.ParseAddress(s)
		if err != nil {
			return nil, utils.BadRequest(errors.WithMessage(err, "delegator"))
		}
		f.Delegator = &d
	}
	switch order := query.Get("order"); order {
	case "", string(auditlog.ASC):
	case string(auditlog.DESC):
		f.Order = auditlog.DESC
	default:
		return nil, utils.BadRequest(errors.Errorf("order: unknown order %q", order))
	}

	var err error
	if f.Offset, err = utils.Uint64Query(req, "offset", 0); err != nil {
		return nil, err
	}
	if f.Limit, err = utils.Uint64Query(req, "limit", o.limit); err != nil {
		return nil, err
	}
	if f.Limit == 0 {
		f.Limit = o.limit
	}
	if f.Limit > o.limit {
		return nil, utils.BadRequest(errors.Errorf("limit exceeds the maximum allowed value of %d", o.limit))
	}
	return f, nil
}

func (o *Operations) handleSettlements(w http.ResponseWriter, req *http.Request) error {
	filter, err := o.parseFilter(req)
	if err != nil {
		return err
	}
	records, err := o.audit.Filter(req.Context(), filter)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, convertRecords(records))
}

func (o *Operations) handleBalance(w http.ResponseWriter, req *http.Request) error {
	currency, err := utils.CurrencyVar(req)
	if err != nil {
		return err
	}
	account, err := utils.AddressVar(req, "account")
	if err != nil {
		return err
	}
	b, err := o.registry.Balance(currency, account)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &Balance{currency, account, b})
}

func (o *Operations) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodPost).
		Name("operations_dispatch").
		HandlerFunc(utils.WrapHandlerFunc(o.handleDispatch))
	sub.Path("/settlements").
		Methods(http.MethodGet).
		Name("operations_get_settlements").
		HandlerFunc(utils.WrapHandlerFunc(o.handleSettlements))
	sub.Path("/balances/{currency}/{account}").
		Methods(http.MethodGet).
		Name("operations_get_balance").
		HandlerFunc(utils.WrapHandlerFunc(o.handleBalance))
}
