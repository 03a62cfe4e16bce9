// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package balance

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/slp/lvldb"
	"github.com/vechain/slp/slp"
)

func TestBook(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	book := NewBook(db)
	dot := slp.Currency("DOT")
	acc := slp.BytesToAddress([]byte("acc"))

	bal, err := book.Balance(dot, acc)
	require.NoError(t, err)
	assert.True(t, bal.IsZero())

	require.NoError(t, book.Credit(dot, acc, uint256.NewInt(50)))
	require.NoError(t, book.Debit(dot, acc, uint256.NewInt(20)))

	bal, err = book.Balance(dot, acc)
	require.NoError(t, err)
	assert.Equal(t, uint64(30), bal.Uint64())

	err = book.Debit(dot, acc, uint256.NewInt(31))
	assert.True(t, slp.IsKind(err, slp.PolicyViolation))

	require.NoError(t, book.Debit(dot, acc, uint256.NewInt(30)))
	bal, err = book.Balance(dot, acc)
	require.NoError(t, err)
	assert.True(t, bal.IsZero())

	other, err := book.Balance(slp.Currency("KSM"), acc)
	require.NoError(t, err)
	assert.True(t, other.IsZero())
}
