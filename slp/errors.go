// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slp

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the failures of staking operations.
type ErrorKind uint8

const (
	// PolicyViolation a bound check failed, the operation was never dispatched.
	PolicyViolation ErrorKind = iota + 1
	// OperationInFlight another operation of the delegator awaits confirmation.
	OperationInFlight
	// DispatchError the transport rejected the submission.
	DispatchError
	// StaleConfirmation a confirmation arrived for an unknown correlation id.
	StaleConfirmation
	// InvariantViolation a ledger write would break the ledger invariant. Fatal.
	InvariantViolation
	// NotFound the ledger, delegator or agent does not exist.
	NotFound
	// CapacityExceeded a configured maximum count is reached.
	CapacityExceeded
	// UnsupportedOperation the protocol cannot perform the operation.
	UnsupportedOperation
)

var kindNames = map[ErrorKind]string{
	PolicyViolation:      "policy violation",
	OperationInFlight:    "operation in flight",
	DispatchError:        "dispatch error",
	StaleConfirmation:    "stale confirmation",
	InvariantViolation:   "invariant violation",
	NotFound:             "not found",
	CapacityExceeded:     "capacity exceeded",
	UnsupportedOperation: "unsupported operation",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(k))
}

// Error is a classified error.
type Error struct {
	kind    ErrorKind
	message string
	cause   error
}

// NewError creates a classified error.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{kind: kind, message: fmt.Sprintf(format, args...)}
}

// WrapError classifies an underlying error.
func WrapError(kind ErrorKind, cause error, message string) *Error {
	return &Error{kind: kind, message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

// Kind returns the error classification.
func (e *Error) Kind() ErrorKind {
	return e.kind
}

func (e *Error) Unwrap() error {
	return e.cause
}

// IsKind reports whether any error in err's chain is classified as kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.kind == kind
}

// KindOf returns the classification of err, zero if err is not classified.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return 0
}
