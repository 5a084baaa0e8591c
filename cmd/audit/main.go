package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"aidchain/config"
	"aidchain/internal/db"
	"aidchain/internal/expense"
	"aidchain/internal/soroban"
	"aidchain/internal/stellar"

	"github.com/sirupsen/logrus"
)

// One-shot audit tool: walks the expense chain of one campaign, or of
// every campaign, and reports the first broken link it finds.
func main() {
	campaignID := flag.String("campaign", "", "campaign to audit (default: all campaigns)")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadBase()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

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

	ledger := stellar.NewClient(cfg.HorizonURL, nil, cfg.LedgerMaxInflight)
	payer := stellar.NewSubmitter(ledger, log)

	contract, err := soroban.NewClient(cfg.SorobanRPCURL, cfg.ContractID, log)
	if err != nil {
		log.Fatalf("Failed to create contract client: %v", err)
	}

	expenses := expense.NewManager(database, payer, contract, log)

	ctx := context.Background()

	var campaigns []db.Campaign
	if *campaignID != "" {
		campaign, err := database.GetCampaign(ctx, *campaignID)
		if err != nil {
			log.Fatalf("Failed to load campaign: %v", err)
		}
		if campaign == nil {
			log.Fatalf("Campaign %s not found", *campaignID)
		}
		campaigns = []db.Campaign{*campaign}
	} else {
		campaigns, err = database.GetAllCampaigns(ctx)
		if err != nil {
			log.Fatalf("Failed to load campaigns: %v", err)
		}
	}

	broken := 0
	for _, campaign := range campaigns {
		if err := expenses.VerifyChain(ctx, campaign.ID); err != nil {
			broken++
			fmt.Printf("BROKEN  %s  %s: %v\n", campaign.ID, campaign.Title, err)
			continue
		}
		if err := crossCheckOnChain(ctx, database, contract, expenses, &campaign); err != nil {
			broken++
			fmt.Printf("BROKEN  %s  %s: %v\n", campaign.ID, campaign.Title, err)
			continue
		}
		fmt.Printf("OK      %s  %s\n", campaign.ID, campaign.Title)
	}

	if broken > 0 {
		os.Exit(1)
	}
}

// crossCheckOnChain compares the local chain head's prev pointer with
// the newest record the contract holds for the campaign owner. The two
// views are written by the same saga, so a divergence means the local
// database was tampered with or a mirror write was lost.
func crossCheckOnChain(ctx context.Context, database *db.Database, contract *soroban.Client, expenses *expense.Manager, campaign *db.Campaign) error {
	org, err := database.GetOrganization(ctx, campaign.OrgID)
	if err != nil {
		return err
	}
	if org == nil {
		return fmt.Errorf("campaign owner %s not found", campaign.OrgID)
	}

	onChain, err := contract.GetLatest(ctx, org.PublicKey)
	if err != nil {
		return fmt.Errorf("reading on-chain head: %w", err)
	}

	localHead, err := expenses.PreviousLink(ctx, campaign.ID)
	if err != nil {
		return err
	}

	if onChain == nil {
		if localHead != "" {
			return fmt.Errorf("local head %q but contract holds no records", localHead)
		}
		return nil
	}
	if localHead == "" {
		return fmt.Errorf("contract holds records but local chain is empty")
	}
	return nil
}
