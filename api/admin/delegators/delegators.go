// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package delegators

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/slp/api/ledgers"
	"github.com/vechain/slp/api/utils"
	"github.com/vechain/slp/registry"
	"github.com/vechain/slp/slp"
)

// Request adds an existing subaccount. An empty body allocates the next one.
type Request struct {
	Index   uint16      `json:"index"`
	Address slp.Address `json:"address"`
}

type Response struct {
	Index   uint16      `json:"index"`
	Address slp.Address `json:"address"`
}

type Delegators struct {
	registry *registry.Registry
}

func New(registry *registry.Registry) *Delegators {
	return &Delegators{
		registry,
	}
}

func (d *Delegators) handleAdd(w http.ResponseWriter, req *http.Request) error {
	currency, err := utils.CurrencyVar(req)
	if err != nil {
		return err
	}
	if _, err := d.registry.Agent(currency); err != nil {
		return err
	}

	var body Request
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		if !errors.Is(err, io.EOF) {
			return utils.BadRequest(errors.WithMessage(err, "body"))
		}
		index, addr, err := d.registry.InitializeDelegator(currency)
		if err != nil {
			return err
		}
		return utils.WriteJSON(w, &Response{index, addr})
	}
	if err := d.registry.AddDelegator(currency, body.Index, body.Address); err != nil {
		return err
	}
	return utils.WriteJSON(w, &Response{body.Index, body.Address})
}

func (d *Delegators) handleRemove(w http.ResponseWriter, req *http.Request) error {
	currency, err := utils.CurrencyVar(req)
	if err != nil {
		return err
	}
	delegator, err := utils.AddressVar(req, "delegator")
	if err != nil {
		return err
	}
	if err := d.registry.RemoveDelegator(currency, delegator); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (d *Delegators) handleSetLedger(w http.ResponseWriter, req *http.Request) error {
	currency, err := utils.CurrencyVar(req)
	if err != nil {
		return err
	}
	delegator, err := utils.AddressVar(req, "delegator")
	if err != nil {
		return err
	}
	var body ledgers.Ledger
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if body.Delegator != delegator {
		return utils.BadRequest(errors.New("delegator: does not match the path"))
	}
	l, err := body.ToLedger()
	if err != nil {
		return utils.BadRequest(err)
	}
	if err := d.registry.SetLedger(currency, delegator, l); err != nil {
		return err
	}
	return utils.WriteJSON(w, ledgers.ConvertLedger(delegator, l))
}

// handleSetValidators takes the JSON array of validators the delegator backs.
func (d *Delegators) handleSetValidators(w http.ResponseWriter, req *http.Request) error {
	currency, err := utils.CurrencyVar(req)
	if err != nil {
		return err
	}
	delegator, err := utils.AddressVar(req, "delegator")
	if err != nil {
		return err
	}
	var body []slp.Address
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := d.registry.SetValidatorsByDelegator(currency, delegator, body); err != nil {
		return err
	}
	vs, err := d.registry.ValidatorsOf(currency, delegator)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, vs)
}

func (d *Delegators) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/{currency}").
		Methods(http.MethodPost).
		Name("post-delegator").
		HandlerFunc(utils.WrapHandlerFunc(d.handleAdd))
	sub.Path("/{currency}/{delegator}").
		Methods(http.MethodDelete).
		Name("delete-delegator").
		HandlerFunc(utils.WrapHandlerFunc(d.handleRemove))
	sub.Path("/{currency}/{delegator}/ledger").
		Methods(http.MethodPut).
		Name("put-ledger").
		HandlerFunc(utils.WrapHandlerFunc(d.handleSetLedger))
	sub.Path("/{currency}/{delegator}/validators").
		Methods(http.MethodPut).
		Name("put-validators").
		HandlerFunc(utils.WrapHandlerFunc(d.handleSetValidators))
}
