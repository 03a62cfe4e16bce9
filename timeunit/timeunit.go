// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package timeunit implements the clock domains remote chains schedule unlocking in.
// Values of different domains can neither be compared nor added.
package timeunit

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Domain identifies the clock a TimeUnit is counted in.
type Domain uint8

const (
	// Era relay chain staking era.
	Era Domain = iota + 1
	// SlashingSpan slashing span index.
	SlashingSpan
	// Round parachain staking round.
	Round
	// Kblock key block number.
	Kblock
	// Hour wall clock hour.
	Hour
)

var domainNames = [...]string{
	Era:          "Era",
	SlashingSpan: "SlashingSpan",
	Round:        "Round",
	Kblock:       "Kblock",
	Hour:         "Hour",
}

// Valid returns whether the domain is a known one.
func (d Domain) Valid() bool {
	return d >= Era && d <= Hour
}

func (d Domain) String() string {
	if d.Valid() {
		return domainNames[d]
	}
	return "Unknown(" + strconv.Itoa(int(d)) + ")"
}

// ParseDomain parses the name of a domain, case insensitive.
func ParseDomain(s string) (Domain, error) {
	for d := Era; d <= Hour; d++ {
		if strings.EqualFold(domainNames[d], s) {
			return d, nil
		}
	}
	return 0, errors.Errorf("unknown time unit domain %q", s)
}

var (
	// ErrIncomparable is returned when values of different domains are compared.
	ErrIncomparable = errors.New("time units of different domains are incomparable")
	// ErrInvalid is returned for a value without a known domain.
	ErrInvalid = errors.New("invalid time unit")
)

// TimeUnit is a tick of a protocol specific clock.
type TimeUnit struct {
	Domain Domain
	Value  uint32
}

// New creates a time unit.
func New(d Domain, v uint32) TimeUnit {
	return TimeUnit{Domain: d, Value: v}
}

// NewEra creates an Era time unit.
func NewEra(v uint32) TimeUnit { return TimeUnit{Era, v} }

// NewRound creates a Round time unit.
func NewRound(v uint32) TimeUnit { return TimeUnit{Round, v} }

// NewHour creates an Hour time unit.
func NewHour(v uint32) TimeUnit { return TimeUnit{Hour, v} }

// NewKblock creates a Kblock time unit.
func NewKblock(v uint32) TimeUnit { return TimeUnit{Kblock, v} }

// IsZero returns whether the value is unset.
func (t TimeUnit) IsZero() bool {
	return t == TimeUnit{}
}

// Valid returns whether the value belongs to a known domain.
func (t TimeUnit) Valid() bool {
	return t.Domain.Valid()
}

// AddOne returns the next tick, saturating at the domain maximum.
func (t TimeUnit) AddOne() TimeUnit {
	if t.Value < math.MaxUint32 {
		t.Value++
	}
	return t
}

// SaturatingAdd adds other to t. It returns false when the domains differ.
func (t TimeUnit) SaturatingAdd(other TimeUnit) (TimeUnit, bool) {
	if t.Domain != other.Domain || !t.Valid() {
		return TimeUnit{}, false
	}
	sum := uint64(t.Value) + uint64(other.Value)
	if sum > math.MaxUint32 {
		sum = math.MaxUint32
	}
	return TimeUnit{t.Domain, uint32(sum)}, true
}

// Cmp compares t and other. It returns -1, 0 or +1, and ErrIncomparable
// when the domains differ.
func (t TimeUnit) Cmp(other TimeUnit) (int, error) {
	if !t.Valid() || !other.Valid() {
		return 0, ErrInvalid
	}
	if t.Domain != other.Domain {
		return 0, errors.WithMessagef(ErrIncomparable, "%v vs %v", t, other)
	}
	switch {
	case t.Value < other.Value:
		return -1, nil
	case t.Value > other.Value:
		return 1, nil
	default:
		return 0, nil
	}
}

// Reached returns whether now has arrived at t, i.e. now >= t.
func (t TimeUnit) Reached(now TimeUnit) (bool, error) {
	c, err := now.Cmp(t)
	if err != nil {
		return false, err
	}
	return c >= 0, nil
}

func (t TimeUnit) String() string {
	return fmt.Sprintf("%v(%d)", t.Domain, t.Value)
}

// Parse parses the String form, e.g. "Era(10)".
func Parse(s string) (TimeUnit, error) {
	s = strings.TrimSpace(s)
	open := strings.IndexByte(s, '(')
	if open <= 0 || !strings.HasSuffix(s, ")") {
		return TimeUnit{}, errors.Errorf("malformed time unit %q", s)
	}
	d, err := ParseDomain(s[:open])
	if err != nil {
		return TimeUnit{}, err
	}
	v, err := strconv.ParseUint(s[open+1:len(s)-1], 10, 32)
	if err != nil {
		return TimeUnit{}, errors.Wrapf(err, "malformed time unit %q", s)
	}
	return TimeUnit{d, uint32(v)}, nil
}

// MarshalText implements encoding.TextMarshaler. An unset value encodes as empty text.
func (t TimeUnit) MarshalText() ([]byte, error) {
	if t.IsZero() {
		return []byte{}, nil
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TimeUnit) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*t = TimeUnit{}
		return nil
	}
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
