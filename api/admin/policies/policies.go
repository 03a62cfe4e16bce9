// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package policies

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/slp/api/utils"
	"github.com/vechain/slp/policy"
	"github.com/vechain/slp/registry"
	"github.com/vechain/slp/slp"
)

type Policies struct {
	registry *registry.Registry
}

func New(registry *registry.Registry) *Policies {
	return &Policies{
		registry,
	}
}

func (p *Policies) policy(currency slp.Currency) (*Policy, error) {
	mm, delays, err := p.registry.Policy(currency)
	if err != nil {
		return nil, err
	}
	ongoing, err := p.registry.OngoingTimeUnit(currency)
	if err != nil && !slp.IsKind(err, slp.NotFound) {
		return nil, err
	}
	whitelist, err := p.registry.Whitelist(currency)
	if err != nil {
		return nil, err
	}
	if whitelist == nil {
		whitelist = []slp.Address{}
	}
	return &Policy{
		Currency:  currency,
		Bounds:    convertBounds(mm),
		Delays:    &Delays{delays.UnlockDelay, delays.LeaveDelegatorsDelay},
		Ongoing:   ongoing,
		Whitelist: whitelist,
	}, nil
}

func (p *Policies) handleGetPolicy(w http.ResponseWriter, req *http.Request) error {
	currency, err := utils.CurrencyVar(req)
	if err != nil {
		return err
	}
	out, err := p.policy(currency)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, out)
}

// respond writes the policy of currency after an update.
func (p *Policies) respond(w http.ResponseWriter, currency slp.Currency) error {
	out, err := p.policy(currency)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, out)
}

func (p *Policies) handlePutBounds(w http.ResponseWriter, req *http.Request) error {
	currency, err := utils.CurrencyVar(req)
	if err != nil {
		return err
	}
	var body Bounds
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := p.registry.SetMinimumsMaximums(currency, body.convert()); err != nil {
		return err
	}
	return p.respond(w, currency)
}

func (p *Policies) handlePutDelays(w http.ResponseWriter, req *http.Request) error {
	currency, err := utils.CurrencyVar(req)
	if err != nil {
		return err
	}
	var body Delays
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := p.registry.SetDelays(currency, &policy.Delays{
		UnlockDelay:          body.UnlockDelay,
		LeaveDelegatorsDelay: body.LeaveDelegatorsDelay,
	}); err != nil {
		return err
	}
	return p.respond(w, currency)
}

func (p *Policies) handlePutOngoing(w http.ResponseWriter, req *http.Request) error {
	currency, err := utils.CurrencyVar(req)
	if err != nil {
		return err
	}
	var body OngoingRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := p.registry.UpdateOngoingTimeUnit(currency, body.TimeUnit); err != nil {
		return err
	}
	return p.respond(w, currency)
}

func (p *Policies) handleAddValidator(w http.ResponseWriter, req *http.Request) error {
	currency, err := utils.CurrencyVar(req)
	if err != nil {
		return err
	}
	var body ValidatorRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := p.registry.AddValidator(currency, body.Validator); err != nil {
		return err
	}
	return p.respond(w, currency)
}

func (p *Policies) handleRemoveValidator(w http.ResponseWriter, req *http.Request) error {
	currency, err := utils.CurrencyVar(req)
	if err != nil {
		return err
	}
	validator, err := utils.AddressVar(req, "validator")
	if err != nil {
		return err
	}
	if err := p.registry.RemoveValidator(currency, validator); err != nil {
		return err
	}
	return p.respond(w, currency)
}

func (p *Policies) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/{currency}").
		Methods(http.MethodGet).
		Name("get-policy").
		HandlerFunc(utils.WrapHandlerFunc(p.handleGetPolicy))
	sub.Path("/{currency}/bounds").
		Methods(http.MethodPut).
		Name("put-bounds").
		HandlerFunc(utils.WrapHandlerFunc(p.handlePutBounds))
	sub.Path("/{currency}/delays").
		Methods(http.MethodPut).
		Name("put-delays").
		HandlerFunc(utils.WrapHandlerFunc(p.handlePutDelays))
	sub.Path("/{currency}/ongoing").
		Methods(http.MethodPut).
		Name("put-ongoing").
		HandlerFunc(utils.WrapHandlerFunc(p.handlePutOngoing))
	sub.Path("/{currency}/validators").
		Methods(http.MethodPost).
		Name("post-validator").
		HandlerFunc(utils.WrapHandlerFunc(p.handleAddValidator))
	sub.Path("/{currency}/validators/{validator}").
		Methods(http.MethodDelete).
		Name("delete-validator").
		HandlerFunc(utils.WrapHandlerFunc(p.handleRemoveValidator))
}
