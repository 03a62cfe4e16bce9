// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slp

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	err := NewError(PolicyViolation, "amount %d below minimum", 5)
	assert.Equal(t, "amount 5 below minimum", err.Error())
	assert.True(t, IsKind(err, PolicyViolation))
	assert.False(t, IsKind(err, NotFound))

	wrapped := errors.Wrap(err, "failed to bond")
	assert.True(t, IsKind(wrapped, PolicyViolation))
	assert.Equal(t, PolicyViolation, KindOf(wrapped))

	assert.False(t, IsKind(nil, PolicyViolation))
	assert.False(t, IsKind(fmt.Errorf("plain"), PolicyViolation))
	assert.Equal(t, ErrorKind(0), KindOf(fmt.Errorf("plain")))
}

func TestWrapError(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := WrapError(DispatchError, cause, "submit failed")
	assert.Equal(t, "submit failed: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "dispatch error", err.Kind().String())
	assert.Equal(t, "unknown(99)", ErrorKind(99).String())
}
