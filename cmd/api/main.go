// cmd/api/main.go

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aidchain/config"
	"aidchain/internal/api"
	"aidchain/internal/campaign"
	"aidchain/internal/db"
	"aidchain/internal/donation"
	"aidchain/internal/expense"
	"aidchain/internal/ipfs"
	"aidchain/internal/rates"
	"aidchain/internal/soroban"
	"aidchain/internal/stellar"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadAPIConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	database, err := db.NewDatabase(db.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		Database: cfg.DBName,
		Username: cfg.DBUser,
		Password: cfg.DBPassword,
		Debug:    cfg.DBDebug,
	}, log)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	ledger := stellar.NewClient(cfg.HorizonURL, nil, cfg.LedgerMaxInflight)
	accounts := stellar.NewAccountManager(ledger, cfg.BaseAccountSecret, log)
	submitter := stellar.NewSubmitter(ledger, log)

	contract, err := soroban.NewClient(cfg.SorobanRPCURL, cfg.ContractID, log)
	if err != nil {
		log.Fatalf("Failed to create contract client: %v", err)
	}

	rateCache := rates.NewCache(
		rates.NewCoinGecko(cfg.RateOracleURL),
		cfg.RateAsset,
		cfg.RateCurrency,
		log,
	)

	router := api.NewRouter(api.Deps{
		Store:     database,
		Accounts:  accounts,
		Campaigns: campaign.NewService(database, rateCache, log),
		Donations: donation.NewRecorder(database, submitter, log),
		Expenses:  expense.NewManager(database, submitter, contract, log),
		Rates:     rateCache,
		Proofs:    ipfs.NewClient(cfg.IPFSAPIURL, cfg.IPFSGatewayURL, cfg.IPFSJWT),
		Log:       log,
	})

	g, ctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.APIPort),
		Handler: router,
	}

	g.Go(func() error {
		log.Infof("API server listening on port %s", cfg.APIPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server error: %v", err)
		}
		return nil
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g.Go(func() error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig := <-quit:
			log.Infof("Received shutdown signal: %v", sig)
			cancel()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("graceful shutdown failed: %v", err)
			}

			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Fatalf("Runtime error: %v", err)
	}

	log.Info("Server stopped")
}
