// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vechain/slp/log"
)

type mockLogger struct {
	loggedData []any
}

func (m *mockLogger) Trace(string, ...any)      {}
func (m *mockLogger) Debug(string, ...any)      {}
func (m *mockLogger) Error(string, ...any)      {}
func (m *mockLogger) With(...any) log.Logger    { return m }
func (m *mockLogger) Info(_ string, ctx ...any) { m.loggedData = append(m.loggedData, ctx...) }
func (m *mockLogger) Warn(_ string, ctx ...any) { m.loggedData = append(m.loggedData, ctx...) }

func echo(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		w.Write(body)
	})
}

func TestRequestLoggerMiddleware(t *testing.T) {
	tests := []struct {
		name      string
		enabled   bool
		threshold time.Duration
		logged    bool
	}{
		{"enabled", true, 0, true},
		{"disabled", false, 0, false},
		{"fast request below threshold", false, time.Hour, false},
		{"slow request above threshold", false, time.Nanosecond, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &mockLogger{}
			var enabled atomic.Bool
			enabled.Store(tt.enabled)

			handler := RequestLoggerMiddleware(logger, &enabled, tt.threshold)(echo(t))
			req := httptest.NewRequest(http.MethodPost, "/operations", strings.NewReader(`{"operation":"bond"}`))
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, `{"operation":"bond"}`, rr.Body.String(), "the body reaches the handler")
			if !tt.logged {
				assert.Empty(t, logger.loggedData)
				return
			}
			assert.Contains(t, logger.loggedData, "URI")
			assert.Contains(t, logger.loggedData, "/operations")
			assert.Contains(t, logger.loggedData, "POST")
			assert.Contains(t, logger.loggedData, `{"operation":"bond"}`)
			assert.Contains(t, logger.loggedData, http.StatusOK)
		})
	}
}

func TestRequestLoggerStatus(t *testing.T) {
	logger := &mockLogger{}
	var enabled atomic.Bool
	enabled.Store(true)

	handler := RequestLoggerMiddleware(logger, &enabled, 0)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/pending", nil))

	assert.Contains(t, logger.loggedData, http.StatusConflict)
	assert.Contains(t, logger.loggedData, "")
}
