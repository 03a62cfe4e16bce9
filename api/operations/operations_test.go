// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package operations_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gorilla/mux"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/slp/api/operations"
	"github.com/vechain/slp/slp"
	"github.com/vechain/slp/test/testsys"
	"github.com/vechain/slp/timeunit"
	"github.com/vechain/slp/transport"
)

const limit = 5

func newServer(t *testing.T) (*testsys.System, *httptest.Server) {
	sys, err := testsys.New()
	require.NoError(t, err)
	router := mux.NewRouter()
	operations.New(sys.Registry(), sys.AuditLog(), limit).Mount(router, "/operations")
	ts := httptest.NewServer(router)
	t.Cleanup(func() {
		ts.Close()
		sys.Close()
	})
	return sys, ts
}

func post(t *testing.T, url string, body any) ([]byte, int) {
	data, err := json.Marshal(body)
	require.NoError(t, err)
	res, err := http.Post(url, "application/json", bytes.NewReader(data)) //#nosec G107
	require.NoError(t, err)
	defer res.Body.Close()
	out, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return out, res.StatusCode
}

func get(t *testing.T, url string) ([]byte, int) {
	res, err := http.Get(url) //#nosec G107
	require.NoError(t, err)
	defer res.Body.Close()
	out, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return out, res.StatusCode
}

func dispatch(t *testing.T, ts *httptest.Server, req *operations.Request) *operations.Dispatched {
	body, code := post(t, ts.URL+"/operations", req)
	require.Equal(t, http.StatusOK, code, string(body))
	var d operations.Dispatched
	require.NoError(t, json.Unmarshal(body, &d))
	return &d
}

func TestDispatch(t *testing.T) {
	sys, ts := newServer(t)
	d := sys.Delegators[testsys.KSM]

	res := dispatch(t, ts, &operations.Request{Operation: "bond", Currency: "ksm", Delegator: d, Amount: uint256.NewInt(100)})
	assert.True(t, res.Pending)
	assert.NotZero(t, res.ID)
	require.Len(t, sys.Transport().Submissions(), 1)
	assert.Equal(t, res.ID, sys.Transport().Submissions()[0].ID)

	// another bond while the first is in flight
	body, code := post(t, ts.URL+"/operations", &operations.Request{Operation: "bond", Currency: "KSM", Delegator: d, Amount: uint256.NewInt(100)})
	assert.Equal(t, http.StatusConflict, code, string(body))
	// the ledger is resolved before the queue is looked at
	body, code = post(t, ts.URL+"/operations", &operations.Request{Operation: "bond-extra", Currency: "KSM", Delegator: d, Amount: uint256.NewInt(5)})
	assert.Equal(t, http.StatusNotFound, code, string(body))
	require.Len(t, sys.Transport().Submissions(), 1)

	require.NoError(t, sys.Settle(res.ID, transport.Success))

	v := testsys.Validator1
	when := timeunit.NewEra(1)
	res = dispatch(t, ts, &operations.Request{Operation: "payout", Currency: "KSM", Delegator: d, Validator: &v, When: &when})
	assert.False(t, res.Pending)
	assert.Zero(t, res.ID)
}

func TestDispatchRejected(t *testing.T) {
	sys, ts := newServer(t)
	d := sys.Delegators[testsys.KSM]

	tests := []struct {
		name string
		body any
		code int
	}{
		{"malformed", "bond", http.StatusBadRequest},
		{"unknown field", map[string]any{"operation": "bond", "size": 1}, http.StatusBadRequest},
		{"bad currency", &operations.Request{Operation: "bond", Currency: "K$M", Delegator: d}, http.StatusBadRequest},
		{"unknown currency", &operations.Request{Operation: "bond", Currency: "DOT", Delegator: d, Amount: uint256.NewInt(100)}, http.StatusNotFound},
		{"below minimum", &operations.Request{Operation: "bond", Currency: "KSM", Delegator: d, Amount: uint256.NewInt(1)}, http.StatusBadRequest},
		{"no amount", &operations.Request{Operation: "bond", Currency: "KSM", Delegator: d}, http.StatusBadRequest},
		{"unknown delegator", &operations.Request{Operation: "bond", Currency: "KSM", Delegator: slp.BytesToAddress([]byte{9}), Amount: uint256.NewInt(100)}, http.StatusNotFound},
		{"unknown operation", &operations.Request{Operation: "slash", Currency: "KSM", Delegator: d}, http.StatusNotImplemented},
		{"unsupported by the ledger", &operations.Request{Operation: "chill", Currency: "PHA", Delegator: sys.Delegators[testsys.PHA]}, http.StatusNotImplemented},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, code := post(t, ts.URL+"/operations", tt.body)
			assert.Equal(t, tt.code, code, string(body))
		})
	}
	assert.Empty(t, sys.Transport().Submissions())
}

func TestSettlements(t *testing.T) {
	sys, ts := newServer(t)
	d := sys.Delegators[testsys.KSM]

	bond := dispatch(t, ts, &operations.Request{Operation: "bond", Currency: "KSM", Delegator: d, Amount: uint256.NewInt(100)})
	require.NoError(t, sys.Settle(bond.ID, transport.Failure))
	bond = dispatch(t, ts, &operations.Request{Operation: "bond", Currency: "KSM", Delegator: d, Amount: uint256.NewInt(100)})
	require.NoError(t, sys.Settle(bond.ID, transport.Success))
	lock := dispatch(t, ts, &operations.Request{Operation: "bond", Currency: "PHA", Delegator: sys.Delegators[testsys.PHA], Amount: uint256.NewInt(40)})
	require.NoError(t, sys.Settle(lock.ID, transport.Success))

	query := func(t *testing.T, q string) []*operations.Settlement {
		body, code := get(t, ts.URL+"/operations/settlements"+q)
		require.Equal(t, http.StatusOK, code, string(body))
		var out []*operations.Settlement
		require.NoError(t, json.Unmarshal(body, &out))
		return out
	}

	all := query(t, "")
	require.Len(t, all, 3)
	assert.Equal(t, "failed", all[0].Result)
	assert.Equal(t, "applied", all[1].Result)
	assert.Equal(t, "bond", all[1].Operation)
	assert.Equal(t, "100", all[1].Amount)
	assert.Equal(t, d, *all[1].Delegator)

	assert.Len(t, query(t, "?currency=KSM"), 2)
	assert.Len(t, query(t, "?result=applied"), 2)
	assert.Len(t, query(t, "?delegator="+d.String()), 2)
	assert.Len(t, query(t, "?id="+strconv.FormatUint(lock.ID, 10)), 1)

	desc := query(t, "?order=desc&limit=1")
	require.Len(t, desc, 1)
	assert.Equal(t, slp.Currency("PHA"), desc[0].Currency)
	assert.Len(t, query(t, "?offset=2"), 1)

	for _, q := range []string{"?limit=6", "?order=sideways", "?id=x", "?currency=K$M", "?delegator=0x12"} {
		_, code := get(t, ts.URL+"/operations/settlements"+q)
		assert.Equal(t, http.StatusBadRequest, code, q)
	}
}

func TestBalance(t *testing.T) {
	sys, ts := newServer(t)
	d := sys.Delegators[testsys.KSM]
	receiver := slp.BytesToAddress([]byte("receiver"))

	res := dispatch(t, ts, &operations.Request{Operation: "transfer-back", Currency: "KSM", Delegator: d, Amount: uint256.NewInt(25), Counterparty: &receiver})
	require.NoError(t, sys.Settle(res.ID, transport.Success))

	body, code := get(t, ts.URL+"/operations/balances/KSM/"+receiver.String())
	require.Equal(t, http.StatusOK, code, string(body))
	var b operations.Balance
	require.NoError(t, json.Unmarshal(body, &b))
	assert.Equal(t, receiver, b.Account)
	assert.Equal(t, uint64(25), b.Balance.Uint64())
}
