// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/slp/health"
	"github.com/vechain/slp/metrics"
	"github.com/vechain/slp/test/testsys"
)

func init() {
	metrics.InitializePrometheusMetrics()
}

func httpGet(t *testing.T, url string) ([]byte, int) {
	res, err := http.Get(url) //#nosec G107
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return body, res.StatusCode
}

func TestAPI(t *testing.T) {
	sys, err := testsys.New()
	require.NoError(t, err)
	defer sys.Close()

	var reqLogger atomic.Bool
	reqLogger.Store(true)
	ts := httptest.NewServer(New(sys.Registry(), sys.AuditLog(), Options{
		AllowedOrigins:  "https://ops.example.org, *",
		EnableMetrics:   true,
		EnableReqLogger: &reqLogger,
		Limit:           10,
	}))
	defer ts.Close()

	delegator := sys.Delegators[testsys.KSM].String()
	_, code := httpGet(t, ts.URL+"/ledgers/KSM/"+delegator)
	assert.Equal(t, http.StatusNotFound, code)
	_, code = httpGet(t, ts.URL+"/ledgers/KSM/delegators")
	assert.Equal(t, http.StatusOK, code)
	_, code = httpGet(t, ts.URL+"/pending")
	assert.Equal(t, http.StatusOK, code)
	_, code = httpGet(t, ts.URL+"/operations/settlements")
	assert.Equal(t, http.StatusOK, code)
	_, code = httpGet(t, ts.URL+"/debug/pprof/")
	assert.Equal(t, http.StatusNotFound, code, "pprof is off")

	t.Run("cors", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodOptions, ts.URL+"/operations", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "https://ops.example.org")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		res, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		res.Body.Close()
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.NotEmpty(t, res.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("metrics", func(t *testing.T) {
		router := httptest.NewServer(metrics.HTTPHandler())
		defer router.Close()
		body, code := httpGet(t, router.URL)
		require.Equal(t, http.StatusOK, code)

		parser := expfmt.TextParser{}
		families, err := parser.TextToMetricFamilies(bytes.NewReader(body))
		require.NoError(t, err)

		counts := make(map[string]float64)
		for _, m := range families["slp_metrics_api_request_count"].GetMetric() {
			var name, code string
			for _, l := range m.GetLabel() {
				switch l.GetName() {
				case "name":
					name = l.GetValue()
				case "code":
					code = l.GetValue()
				}
			}
			counts[name+"/"+code] += m.GetCounter().GetValue()
		}
		assert.Equal(t, float64(1), counts["ledgers_get_ledger/404"])
		assert.Equal(t, float64(1), counts["ledgers_get_delegators/200"])
		assert.Equal(t, float64(1), counts["pending_list/200"])
		assert.Equal(t, float64(1), counts["operations_get_settlements/200"])
		for k := range counts {
			assert.False(t, strings.Contains(k, "pprof"), k)
		}
	})
}

func TestStartAdminServer(t *testing.T) {
	sys, err := testsys.New()
	require.NoError(t, err)
	defer sys.Close()

	var (
		level     slog.LevelVar
		reqLogger atomic.Bool
		status    health.Health
	)
	url, closeFunc, err := StartAdminServer("localhost:0", &level, sys.Registry(), &status, &reqLogger)
	require.NoError(t, err)
	defer closeFunc()

	_, code := httpGet(t, url+"/health")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	status.RunningStatus(true)
	_, code = httpGet(t, url+"/health")
	assert.Equal(t, http.StatusOK, code)

	body, code := httpGet(t, url+"/currencies/KSM")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "KSM")

	_, _, err = StartAdminServer("localhost:99999", &level, sys.Registry(), &status, &reqLogger)
	assert.Error(t, err)
}
