package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/lmittmann/tint"
	"github.com/movelabs/moveguard/internal/aptos"
	"github.com/movelabs/moveguard/internal/config"
	"github.com/movelabs/moveguard/internal/metrics"
	"github.com/movelabs/moveguard/internal/monitor"
	"github.com/movelabs/moveguard/internal/notify"
	"github.com/movelabs/moveguard/internal/ondemand"
	"github.com/movelabs/moveguard/internal/server"
	"github.com/movelabs/moveguard/internal/workflow"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	showVersionFlag := flag.Bool("version", false, "show version and exit")
	verboseFlag := flag.Bool("verbose", false, "verbose mode - show debug logs")
	listenAddrFlag := flag.String("listen-addr", "", "address to listen on (overrides LISTEN_ADDR)")
	disableMonitorFlag := flag.Bool("disable-monitor", false, "disable the on-chain transaction monitor")
	flag.Parse()

	if *showVersionFlag {
		fmt.Printf("version: %s, commit: %s, date: %s\n", version, commit, date)
		os.Exit(0)
	}

	// Load .env file if it exists
	_ = godotenv.Load()

	log := newLogger(*verboseFlag)

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", "error", err)
		return err
	}
	if *listenAddrFlag != "" {
		cfg.ListenAddr = *listenAddrFlag
	}

	metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)

	client, err := ondemand.NewClient(log, ondemand.Config{
		APIKey:  cfg.OnDemandAPIKey,
		BaseURL: cfg.OnDemandBaseURL,
	})
	if err != nil {
		log.Error("failed to create analysis client", "error", err)
		return err
	}

	catalog, err := workflow.NewCatalog()
	if err != nil {
		log.Error("failed to build workflow catalog", "error", err)
		return err
	}

	engine, err := workflow.New(log, &workflow.Config{
		Client:  client,
		Catalog: catalog,
	})
	if err != nil {
		log.Error("failed to create workflow engine", "error", err)
		return err
	}

	hub := notify.NewHub(log)
	defer hub.Close()

	srv, err := server.New(log, server.Config{
		Engine:      engine,
		Hub:         hub,
		ListenAddr:  cfg.ListenAddr,
		Network:     cfg.AptosNetwork,
		Version:     version,
		FrontendDir: cfg.FrontendDir,
	})
	if err != nil {
		log.Error("failed to create http server", "error", err)
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(ctx)
	})

	if !*disableMonitorFlag {
		chain, err := aptos.NewClient(log, aptos.Config{NodeURL: cfg.AptosNodeURL})
		if err != nil {
			log.Error("failed to create aptos client", "error", err)
			return err
		}
		mon, err := monitor.New(log, monitor.Config{
			Chain:                 chain,
			Sink:                  hub,
			Clock:                 clockwork.NewRealClock(),
			PollInterval:          cfg.MonitorPollInterval,
			MaxTransactions:       cfg.MaxTransactionsPerQuery,
			MaxTransactionValue:   cfg.MaxTransactionValue,
			GasUsedThreshold:      cfg.GasUsedThreshold,
			RiskThresholdHigh:     cfg.RiskThresholdHigh,
			RiskThresholdCritical: cfg.RiskThresholdCritical,
		})
		if err != nil {
			log.Error("failed to create transaction monitor", "error", err)
			return err
		}
		g.Go(func() error {
			err := mon.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	log.Info("moveguard started", "version", version, "listen_addr", cfg.ListenAddr, "network", cfg.AptosNetwork)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("service exited with error", "error", err)
		return err
	}
	log.Info("service stopped")
	return nil
}

func newLogger(verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevel,
	}))
}
