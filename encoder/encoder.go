// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package encoder is the reference call encoder. A call is addressed by the
// pallet and call index of its protocol and serialized with rlp.
package encoder

import (
	"sort"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/slp/agent"
	"github.com/vechain/slp/ledger"
	"github.com/vechain/slp/slp"
	"github.com/vechain/slp/timeunit"
)

// CallIndex locates a call in the remote runtime.
type CallIndex struct {
	Pallet uint8
	Call   uint8
}

// Protocol is the call table of a remote staking runtime.
type Protocol struct {
	Name  string
	Kind  ledger.Kind
	Calls map[agent.Method]CallIndex
}

var (
	xcmTransfer = CallIndex{99, 8}

	Polkadot = Protocol{
		Name: "polkadot",
		Kind: ledger.KindSingleValidator,
		Calls: map[agent.Method]CallIndex{
			agent.MethodBond:             {7, 0},
			agent.MethodBondExtra:        {7, 1},
			agent.MethodUnbond:           {7, 2},
			agent.MethodWithdrawUnbonded: {7, 3},
			agent.MethodNominate:         {7, 5},
			agent.MethodChill:            {7, 6},
			agent.MethodPayoutStakers:    {7, 18},
			agent.MethodRebond:           {7, 19},
			agent.MethodTransferBack:     xcmTransfer,
			agent.MethodTransferTo:       {5, 3},
		},
	}

	Kusama = Protocol{
		Name: "kusama",
		Kind: ledger.KindSingleValidator,
		Calls: map[agent.Method]CallIndex{
			agent.MethodBond:             {6, 0},
			agent.MethodBondExtra:        {6, 1},
			agent.MethodUnbond:           {6, 2},
			agent.MethodWithdrawUnbonded: {6, 3},
			agent.MethodNominate:         {6, 5},
			agent.MethodChill:            {6, 6},
			agent.MethodPayoutStakers:    {6, 18},
			agent.MethodRebond:           {6, 19},
			agent.MethodTransferBack:     xcmTransfer,
			agent.MethodTransferTo:       {4, 3},
		},
	}

	ParachainStaking = Protocol{
		Name: "parachain-staking",
		Kind: ledger.KindMultiValidator,
		Calls: map[agent.Method]CallIndex{
			agent.MethodDelegate:          {20, 17},
			agent.MethodScheduleLeave:     {20, 19},
			agent.MethodExecuteLeave:      {20, 20},
			agent.MethodCancelLeave:       {20, 21},
			agent.MethodScheduleRevoke:    {20, 22},
			agent.MethodDelegatorBondMore: {20, 23},
			agent.MethodScheduleBondLess:  {20, 24},
			agent.MethodExecuteRequest:    {20, 25},
			agent.MethodCancelRequest:     {20, 26},
			agent.MethodPayoutStakers:     {20, 30},
			agent.MethodTransferBack:      xcmTransfer,
			agent.MethodTransferTo:        {10, 3},
		},
	}

	DappStaking = Protocol{
		Name: "dapp-staking",
		Kind: ledger.KindLock,
		Calls: map[agent.Method]CallIndex{
			agent.MethodLock:          {34, 7},
			agent.MethodUnlock:        {34, 8},
			agent.MethodClaimUnlocked: {34, 9},
			agent.MethodRelock:        {34, 10},
			agent.MethodTransferBack:  xcmTransfer,
			agent.MethodTransferTo:    {31, 3},
		},
	}

	protocols = map[string]Protocol{
		Polkadot.Name:         Polkadot,
		Kusama.Name:           Kusama,
		ParachainStaking.Name: ParachainStaking,
		DappStaking.Name:      DappStaking,
	}
)

// Lookup returns the protocol registered under name.
func Lookup(name string) (Protocol, error) {
	p, ok := protocols[name]
	if !ok {
		return Protocol{}, slp.NewError(slp.NotFound, "unknown protocol %q", name)
	}
	return p, nil
}

// Protocols lists the names of the known protocols.
func Protocols() []string {
	names := make([]string, 0, len(protocols))
	for name := range protocols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Payload is the wire form of an encoded call. Arguments a method does not take are zero.
type Payload struct {
	Index      CallIndex
	Currency   string
	Derivative uint16 // sub account index the call is dispatched as
	Validators []slp.Address
	Amount     uint256.Int
	Target     slp.Address
	When       timeunit.TimeUnit
}

// Encoder implements agent.Encoder for a protocol.
type Encoder struct {
	protocol Protocol
}

func New(p Protocol) *Encoder {
	return &Encoder{protocol: p}
}

func (e *Encoder) Protocol() Protocol { return e.protocol }

func (e *Encoder) Encode(call *agent.Call) ([]byte, error) {
	idx, ok := e.protocol.Calls[call.Method]
	if !ok {
		return nil, slp.NewError(slp.UnsupportedOperation, "%s has no %s call", e.protocol.Name, call.Method)
	}
	p := Payload{
		Index:      idx,
		Currency:   call.Currency.String(),
		Derivative: call.Index,
		Validators: call.Validators,
	}
	if call.Amount != nil {
		p.Amount = *call.Amount
	}
	if call.Target != nil {
		p.Target = *call.Target
	}
	if call.When != nil {
		p.When = *call.When
	}
	data, err := rlp.EncodeToBytes(&p)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s", call.Method)
	}
	return data, nil
}

// Decode parses a payload produced by Encode.
func Decode(data []byte) (*Payload, error) {
	var p Payload
	if err := rlp.DecodeBytes(data, &p); err != nil {
		return nil, errors.Wrap(err, "decode payload")
	}
	return &p, nil
}
