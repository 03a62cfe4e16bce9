// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"
)

var (
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Value: defaultDataDir(),
		Usage: "directory for the ledger and audit databases",
	}
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to the currencies file (yaml)",
	}
	apiAddrFlag = cli.StringFlag{
		Name:  "api-addr",
		Value: "localhost:8679",
		Usage: "API service listening address",
	}
	apiCorsFlag = cli.StringFlag{
		Name:  "api-cors",
		Value: "",
		Usage: "comma separated list of domains from which to accept cross origin requests to API",
	}
	apiLimitFlag = cli.Uint64Flag{
		Name:  "api-limit",
		Value: 1000,
		Usage: "limit the number of pending entries and settlements returned by the API",
	}
	apiSlowQueriesThresholdFlag = cli.Uint64Flag{
		Name:  "api-slow-queries-threshold",
		Value: 0,
		Usage: "all queries with duration (ms) above the threshold will be logged",
	}
	enableAPILogsFlag = cli.BoolFlag{
		Name:  "enable-api-logs",
		Usage: "enables API requests logging",
	}
	enableMetricsFlag = cli.BoolFlag{
		Name:  "enable-metrics",
		Usage: "enables metrics collection",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Value: "localhost:2112",
		Usage: "metrics service listening address",
	}
	enableAdminFlag = cli.BoolFlag{
		Name:  "enable-admin",
		Usage: "enables admin server",
	}
	adminAddrFlag = cli.StringFlag{
		Name:  "admin-addr",
		Value: "localhost:2113",
		Usage: "admin service listening address",
	}
	verbosityFlag = cli.Uint64Flag{
		Name:  "verbosity",
		Value: 3,
		Usage: "log verbosity (0-5)",
	}
	jsonLogsFlag = cli.BoolFlag{
		Name:  "json-logs",
		Usage: "output logs in JSON format",
	}
	pprofFlag = cli.BoolFlag{
		Name:  "pprof",
		Usage: "turn on go-pprof",
	}
	cacheFlag = cli.Uint64Flag{
		Name:  "cache",
		Value: 256,
		Usage: "megabytes of ram allocated to the ledger database",
	}
	ledgerCacheFlag = cli.IntFlag{
		Name:  "ledger-cache",
		Value: 4096,
		Usage: "number of ledgers kept in the read cache",
	}
	pendingTimeoutFlag = cli.DurationFlag{
		Name:  "pending-timeout",
		Value: 0,
		Usage: "age after which an unconfirmed operation is timed out, 0 disables timeouts",
	}
	sweepIntervalFlag = cli.DurationFlag{
		Name:  "sweep-interval",
		Value: 0,
		Usage: "interval between two timeout sweeps",
	}
	maxSweepFlag = cli.IntFlag{
		Name:  "max-sweep",
		Value: 100,
		Usage: "maximum operations timed out per sweep",
	}
	confirmDelayFlag = cli.DurationFlag{
		Name:  "confirm-delay",
		Value: 0,
		Usage: "delay of the loopback transport before confirming an operation",
	}
)
