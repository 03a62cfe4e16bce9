// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/slp/api"
	"github.com/vechain/slp/health"
	"github.com/vechain/slp/log"
	"github.com/vechain/slp/metrics"
	"github.com/vechain/slp/reconciler"
	"github.com/vechain/slp/service"
	"github.com/vechain/slp/transport"
)

var (
	version   string
	gitCommit string
	gitTag    string

	logger = log.WithContext("pkg", "slpd")
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "slpd",
		Usage:     "Delegator ledger of staked currencies",
		Copyright: "2025 VeChain Foundation <https://vechain.org/>",
		Flags: []cli.Flag{
			dataDirFlag,
			configFlag,
			apiAddrFlag,
			apiCorsFlag,
			apiLimitFlag,
			apiSlowQueriesThresholdFlag,
			enableAPILogsFlag,
			enableMetricsFlag,
			metricsAddrFlag,
			enableAdminFlag,
			adminAddrFlag,
			verbosityFlag,
			jsonLogsFlag,
			pprofFlag,
			cacheFlag,
			ledgerCacheFlag,
			pendingTimeoutFlag,
			sweepIntervalFlag,
			maxSweepFlag,
			confirmDelayFlag,
		},
		Action: defaultAction,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	exitSignal := handleExitSignal()

	defer func() { logger.Info("exited") }()

	logLevel := initLogger(ctx)

	configPath := ctx.String(configFlag.Name)
	if configPath == "" {
		cli.ShowAppHelp(ctx)
		return errors.New("config flag not specified")
	}
	currencies, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	enableMetrics := ctx.Bool(enableMetricsFlag.Name)
	if enableMetrics {
		metrics.InitializePrometheusMetrics()
	}

	dataDir := makeDataDir(ctx)
	mainDB := openMainDB(ctx, dataDir)
	defer func() { logger.Info("closing ledger database..."); mainDB.Close() }()

	audit := openAuditLog(dataDir)
	defer func() { logger.Info("closing audit database..."); audit.Close() }()

	loopback := transport.NewLoopback(ctx.Duration(confirmDelayFlag.Name))
	defer loopback.Close()

	svc, err := service.New(mainDB, loopback, ctx.Int(ledgerCacheFlag.Name), time.Now)
	if err != nil {
		return err
	}
	for _, c := range currencies {
		if err := svc.Install(c); err != nil {
			return err
		}
	}

	confirmations := make(chan transport.Confirmation, 256)
	sub := loopback.SubscribeConfirmations(confirmations)
	defer sub.Unsubscribe()

	healthStatus := &health.Health{}
	rec := reconciler.New(svc.Registry(), audit, confirmations, reconciler.Options{
		Timeout:       ctx.Duration(pendingTimeoutFlag.Name),
		SweepInterval: ctx.Duration(sweepIntervalFlag.Name),
		MaxSweep:      ctx.Int(maxSweepFlag.Name),
		Health:        healthStatus,
	})

	reqLogger := &atomic.Bool{}
	reqLogger.Store(ctx.Bool(enableAPILogsFlag.Name))
	handler := api.New(svc.Registry(), audit, api.Options{
		AllowedOrigins:       ctx.String(apiCorsFlag.Name),
		PprofOn:              ctx.Bool(pprofFlag.Name),
		EnableMetrics:        enableMetrics,
		EnableReqLogger:      reqLogger,
		SlowQueriesThreshold: time.Duration(ctx.Uint64(apiSlowQueriesThresholdFlag.Name)) * time.Millisecond,
		Limit:                ctx.Uint64(apiLimitFlag.Name),
	})
	apiURL, srvCloser := startAPIServer(ctx, handler)
	defer func() { logger.Info("stopping API server..."); srvCloser() }()

	adminURL := ""
	if ctx.Bool(enableAdminFlag.Name) {
		url, closer, err := api.StartAdminServer(ctx.String(adminAddrFlag.Name), logLevel, svc.Registry(), healthStatus, reqLogger)
		if err != nil {
			return err
		}
		defer func() { logger.Info("stopping admin server..."); closer() }()
		adminURL = url
	}

	metricsURL := ""
	if enableMetrics {
		url, closer, err := startMetricsServer(ctx.String(metricsAddrFlag.Name))
		if err != nil {
			return err
		}
		defer func() { logger.Info("stopping metrics server..."); closer() }()
		metricsURL = url
	}

	printStartupMessage(dataDir, len(currencies), apiURL, adminURL, metricsURL)

	g, gctx := errgroup.WithContext(exitSignal)
	g.Go(func() error {
		return rec.Run(gctx)
	})
	g.Go(func() error {
		select {
		case err := <-sub.Err():
			return err
		case <-gctx.Done():
			return nil
		}
	})
	return holdOnHalt(exitSignal, healthStatus, g.Wait())
}

func printStartupMessage(dataDir string, currencies int, apiURL, adminURL, metricsURL string) {
	fmt.Printf(`Starting %v
    Currencies  [ %v ]
    Data dir    [ %v ]
    API portal  [ %v ]
    Admin       [ %v ]
    Metrics     [ %v ]
`,
		"slpd "+fullVersion(),
		currencies,
		dataDir,
		apiURL,
		orDisabled(adminURL),
		orDisabled(metricsURL),
	)
}

func orDisabled(url string) string {
	if url == "" {
		return "Disabled"
	}
	return url
}
