// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package ledger holds the local mirrors of remote staking positions.
//
// A ledger comes in one of three shapes, chosen by the delegation model of the
// remote protocol. Every shape carries an invariant that is checked on every
// write; a write that would break it is refused with an InvariantViolation.
package ledger

import (
	"io"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/slp/slp"
	"github.com/vechain/slp/timeunit"
)

type Kind = uint8

const (
	KindUnknown         = Kind(iota)
	KindSingleValidator // bonded ledger backing a nominated validator set
	KindMultiValidator  // per validator delegations with scheduled requests
	KindLock            // lock then stake ledger
)

// KindName returns the name of kind.
func KindName(k Kind) string {
	switch k {
	case KindSingleValidator:
		return "single-validator"
	case KindMultiValidator:
		return "multi-validator"
	case KindLock:
		return "lock"
	}
	return "unknown"
}

// Ledger is a mirrored staking position.
type Ledger interface {
	Kind() Kind
	// Owner returns the remote account of the position.
	Owner() slp.Address
	// Check verifies the invariant of the shape.
	Check() error
	// IsEmpty reports whether the position holds nothing and can be dropped.
	IsEmpty() bool
	Clone() Ledger
}

// UnlockChunk is an amount that becomes free at UnlockTime.
type UnlockChunk struct {
	Value      uint256.Int
	UnlockTime timeunit.TimeUnit
}

func violation(format string, args ...any) error {
	return slp.NewError(slp.InvariantViolation, format, args...)
}

func add(a, b *uint256.Int) (*uint256.Int, error) {
	sum, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, violation("amount overflow")
	}
	return sum, nil
}

func sub(a, b *uint256.Int) (*uint256.Int, error) {
	diff, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return nil, violation("amount underflow: %v - %v", a, b)
	}
	return diff, nil
}

// sumChunks returns the total value of chunks.
func sumChunks(chunks []UnlockChunk) (*uint256.Int, error) {
	total := new(uint256.Int)
	for i := range chunks {
		var err error
		if total, err = add(total, &chunks[i].Value); err != nil {
			return nil, err
		}
	}
	return total, nil
}

// checkChunks verifies chunks are non-zero and share one valid domain.
func checkChunks(chunks []UnlockChunk) error {
	for i := range chunks {
		c := &chunks[i]
		if c.Value.IsZero() {
			return violation("unlocking chunk %d is zero", i)
		}
		if !c.UnlockTime.Valid() {
			return violation("unlocking chunk %d has invalid unlock time", i)
		}
		if c.UnlockTime.Domain != chunks[0].UnlockTime.Domain {
			return violation("unlocking chunk %d is in domain %v, expected %v", i, c.UnlockTime.Domain, chunks[0].UnlockTime.Domain)
		}
	}
	return nil
}

// insertChunk places c after every chunk unlocking no later than it, keeping
// chunks ordered by unlock time whatever order the unlocks are confirmed in.
func insertChunk(chunks []UnlockChunk, c UnlockChunk) ([]UnlockChunk, error) {
	at := len(chunks)
	for at > 0 {
		cmp, err := chunks[at-1].UnlockTime.Cmp(c.UnlockTime)
		if err != nil {
			return nil, slp.WrapError(slp.InvariantViolation, err, "cannot order unlocking")
		}
		if cmp <= 0 {
			break
		}
		at--
	}
	out := make([]UnlockChunk, 0, len(chunks)+1)
	out = append(out, chunks[:at]...)
	out = append(out, c)
	return append(out, chunks[at:]...), nil
}

// withdrawChunks removes amount from the tail of chunks, splitting the last chunk touched.
func withdrawChunks(chunks []UnlockChunk, amount *uint256.Int) ([]UnlockChunk, error) {
	chunks = append([]UnlockChunk(nil), chunks...)
	remaining := amount.Clone()
	for !remaining.IsZero() {
		if len(chunks) == 0 {
			return nil, violation("not enough unlocking to withdraw %v", amount)
		}
		last := &chunks[len(chunks)-1]
		if last.Value.Gt(remaining) {
			last.Value.Sub(&last.Value, remaining)
			remaining.Clear()
		} else {
			remaining.Sub(remaining, &last.Value)
			chunks = chunks[:len(chunks)-1]
		}
	}
	return chunks, nil
}

// releaseChunks removes every chunk whose unlock time has been reached at now.
func releaseChunks(chunks []UnlockChunk, now timeunit.TimeUnit) ([]UnlockChunk, *uint256.Int, error) {
	freed := new(uint256.Int)
	kept := make([]UnlockChunk, 0, len(chunks))
	for _, c := range chunks {
		reached, err := c.UnlockTime.Reached(now)
		if err != nil {
			return nil, nil, slp.WrapError(slp.InvariantViolation, err, "cannot release unlocking")
		}
		if !reached {
			kept = append(kept, c)
			continue
		}
		if freed, err = add(freed, &c.Value); err != nil {
			return nil, nil, err
		}
	}
	return kept, freed, nil
}

// envelope is the persisted form of a ledger: [kind, body].
type envelope struct {
	ledger Ledger
}

func (e envelope) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, []any{e.ledger.Kind(), e.ledger})
}

func (e *envelope) DecodeRLP(s *rlp.Stream) error {
	if _, err := s.List(); err != nil {
		return err
	}
	kind, err := s.Uint8()
	if err != nil {
		return err
	}
	var l Ledger
	switch kind {
	case KindSingleValidator:
		l = new(SingleValidator)
	case KindMultiValidator:
		l = new(MultiValidator)
	case KindLock:
		l = new(Lock)
	default:
		return errors.Errorf("unknown ledger kind %d", kind)
	}
	if err := s.Decode(l); err != nil {
		return err
	}
	e.ledger = l
	return s.ListEnd()
}

// Encode serializes a ledger.
func Encode(l Ledger) ([]byte, error) {
	return rlp.EncodeToBytes(envelope{l})
}

// Decode deserializes a ledger.
func Decode(data []byte) (Ledger, error) {
	var e envelope
	if err := rlp.DecodeBytes(data, &e); err != nil {
		return nil, errors.Wrap(err, "decode ledger")
	}
	return e.ledger, nil
}
