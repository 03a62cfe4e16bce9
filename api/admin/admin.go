// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package admin

import (
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/vechain/slp/api/admin/apilogs"
	"github.com/vechain/slp/api/admin/delegators"
	healthAPI "github.com/vechain/slp/api/admin/health"
	"github.com/vechain/slp/api/admin/loglevel"
	"github.com/vechain/slp/api/admin/policies"
	"github.com/vechain/slp/health"
	"github.com/vechain/slp/registry"
)

func New(
	logLevel *slog.LevelVar,
	registry *registry.Registry,
	healthStatus *health.Health,
	apiLogs *atomic.Bool,
) http.HandlerFunc {
	router := mux.NewRouter()
	sub := router.PathPrefix("/admin").Subrouter()

	loglevel.New(logLevel).Mount(sub, "/loglevel")
	healthAPI.New(healthStatus).Mount(sub, "/health")
	apilogs.New(apiLogs).Mount(sub, "/apilogs")
	policies.New(registry).Mount(sub, "/currencies")
	delegators.New(registry).Mount(sub, "/delegators")

	handler := handlers.CompressHandler(router)

	return handler.ServeHTTP
}
