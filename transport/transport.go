// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package transport carries encoded calls to remote chains and reports their outcomes.
package transport

import "fmt"

// Outcome is the remote result of a submitted call.
type Outcome uint8

const (
	Success Outcome = iota + 1
	Failure
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Failure:
		return "failure"
	}
	return fmt.Sprintf("outcome(%d)", uint8(o))
}

// Confirmation reports the outcome of the call submitted under ID.
type Confirmation struct {
	ID      uint64
	Outcome Outcome
	Reason  string // set on failure
}
