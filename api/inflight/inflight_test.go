// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package inflight_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/slp/api/inflight"
	"github.com/vechain/slp/registry"
	"github.com/vechain/slp/slp"
	"github.com/vechain/slp/test/testsys"
)

func httpGet(t *testing.T, url string) ([]byte, int) {
	res, err := http.Get(url) //#nosec G107
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return body, res.StatusCode
}

func TestInflight(t *testing.T) {
	sys, err := testsys.New()
	require.NoError(t, err)
	defer sys.Close()

	ctx := context.Background()
	ksm := sys.Delegators[testsys.KSM]
	bond, err := sys.Registry().Dispatch(ctx, &registry.Request{Operation: registry.OpBond, Currency: testsys.KSM, Delegator: ksm, Amount: uint256.NewInt(100)})
	require.NoError(t, err)
	nominate, err := sys.Registry().Dispatch(ctx, &registry.Request{Operation: registry.OpDelegate, Currency: testsys.KSM, Delegator: ksm, Validators: []slp.Address{testsys.Validator2, testsys.Validator1}})
	require.Error(t, err, "one entry per delegator")
	assert.Zero(t, nominate)
	lock, err := sys.Registry().Dispatch(ctx, &registry.Request{Operation: registry.OpBond, Currency: testsys.PHA, Delegator: sys.Delegators[testsys.PHA], Amount: uint256.NewInt(20)})
	require.NoError(t, err)

	router := mux.NewRouter()
	inflight.New(sys.Registry(), 2).Mount(router, "/pending")
	ts := httptest.NewServer(router)
	defer ts.Close()

	list := func(t *testing.T, path string) []inflight.Entry {
		body, code := httpGet(t, ts.URL+path)
		require.Equal(t, http.StatusOK, code, string(body))
		var out []inflight.Entry
		require.NoError(t, json.Unmarshal(body, &out))
		return out
	}

	t.Run("list", func(t *testing.T) {
		all := list(t, "/pending")
		require.Len(t, all, 2)
		assert.Equal(t, bond, all[0].ID)
		assert.Equal(t, testsys.KSM, all[0].Currency)
		assert.Equal(t, ksm, all[0].Delegator)
		assert.Equal(t, "bond", all[0].Operation)
		assert.Equal(t, uint64(100), all[0].Amount.Uint64())
		assert.NotZero(t, all[0].CreatedAt)
		assert.Equal(t, lock, all[1].ID)

		assert.Len(t, list(t, "/pending?limit=1"), 1)
	})

	t.Run("list of delegator", func(t *testing.T) {
		of := list(t, "/pending/KSM/"+ksm.String())
		require.Len(t, of, 1)
		assert.Equal(t, bond, of[0].ID)

		assert.Empty(t, list(t, "/pending/MOVR/"+sys.Delegators[testsys.MOVR].String()))
	})

	t.Run("validator", func(t *testing.T) {
		v := testsys.Validator1
		movr := sys.Delegators[testsys.MOVR]
		id, err := sys.Registry().Dispatch(ctx, &registry.Request{Operation: registry.OpBond, Currency: testsys.MOVR, Delegator: movr, Amount: uint256.NewInt(20), Validator: &v})
		require.NoError(t, err)

		of := list(t, "/pending/MOVR/"+movr.String())
		require.Len(t, of, 1)
		assert.Equal(t, id, of[0].ID)
		require.NotNil(t, of[0].Validator)
		assert.Equal(t, v, *of[0].Validator)
		assert.Nil(t, of[0].UnlockTime)

		assert.Len(t, list(t, "/pending"), 2, "capped by the limit")
	})

	t.Run("bad params", func(t *testing.T) {
		for _, path := range []string{"/pending?limit=3", "/pending?limit=x", "/pending/KSM/0x01"} {
			_, code := httpGet(t, ts.URL+path)
			assert.Equal(t, http.StatusBadRequest, code, path)
		}
	})
}
