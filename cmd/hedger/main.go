package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gregtusar/ctdbasis/api"
	"github.com/gregtusar/ctdbasis/internal/config"
	"github.com/gregtusar/ctdbasis/pkg/account"
	"github.com/gregtusar/ctdbasis/pkg/hedger"
	"github.com/gregtusar/ctdbasis/pkg/snapshot"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	serve   bool
	logger  *logrus.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ctd-hedger",
		Short: "Treasury futures CTD hedge analysis",
		Long:  `Selects cheapest-to-deliver bonds for Treasury futures, ranks calendar hedge pairs by net basis, and screens them against risk limits`,
		Run:   runHedger,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&serve, "serve", false, "keep running and expose the API server")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runHedger(cmd *cobra.Command, args []string) {
	// Local overrides from .env, if present
	_ = godotenv.Load()

	logger = logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load(cfgFile)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		logger.WithError(err).Error("Invalid log level, using INFO")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.Logging.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.WithError(err).Error("Failed to open log file, logging to stderr")
		} else {
			logger.SetOutput(f)
			defer f.Close()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var gateway account.Gateway
	if cfg.Account.Offline {
		logger.WithField("nlv", cfg.Account.StaticNetLiquidation).Info("Using static account gateway")
		gateway = account.StaticGateway{Value: cfg.Account.StaticNetLiquidation}
	} else {
		gateway = account.NewRESTClient(
			cfg.Account.GatewayURL,
			cfg.Account.AccountID,
			cfg.Account.Token,
			cfg.Account.RequestsPerSecond,
			cfg.Account.InsecureTLS,
			logger,
		)
	}

	var snapshots *snapshot.Writer
	if cfg.Snapshot.Enabled {
		snapshots = snapshot.NewWriter(cfg.Snapshot.Dir, logger)
	}

	h := hedger.New(cfg, gateway, snapshots, logger)

	result, err := h.Run(ctx, time.Now())
	if err != nil {
		logger.WithError(err).Fatal("Hedge analysis run failed")
	}
	if result.Order != nil {
		logger.WithFields(logrus.Fields{
			"a_ticker": result.Order.Pair.A.Contract.Ticker,
			"b_ticker": result.Order.Pair.B.Contract.Ticker,
		}).Info("Executable order available")
	}

	if !serve {
		return
	}

	apiServer := api.NewServer(h, logger, fmt.Sprintf("%d", cfg.Server.Port))
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.WithError(err).Fatal("Failed to start API server")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("CTD hedger is running. Press Ctrl+C to stop.")
	<-sigChan
	logger.Info("Received shutdown signal")
	cancel()
	logger.Info("CTD hedger stopped")
}
