// Command stats-export generates a CSV file with one day's per-message
// campaign statistics for every campaign in the account.
//
// Usage: stats-export [-reduced] [-date YYYY-MM-DD] [-config path] <target.csv>
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/that-one-tom/crossengage-ops/internal/config"
	"github.com/that-one-tom/crossengage-ops/internal/crossengage"
	"github.com/that-one-tom/crossengage-ops/internal/export"
	"github.com/that-one-tom/crossengage-ops/internal/pkg/logger"
)

func main() {
	reduced := flag.Bool("reduced", false, "one row per campaign message with a column per KPI instead of one row per KPI")
	date := flag.String("date", "", "day to export (YYYY-MM-DD), defaults to yesterday")
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: stats-export [-reduced] [-date YYYY-MM-DD] [-config path] <target.csv>")
		os.Exit(2)
	}
	targetFile := flag.Arg(0)

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateExport(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	exportDate := *date
	if exportDate == "" {
		exportDate = time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	}
	logger.Info("starting statistics export", "target", targetFile, "date", exportDate, "reduced", *reduced)

	client := crossengage.NewClient(crossengage.Config{
		APIKey:          cfg.CrossEngage.APIKey,
		Username:        cfg.CrossEngage.Username,
		Password:        cfg.CrossEngage.Password,
		APIBaseURL:      cfg.CrossEngage.APIBaseURL,
		UIBaseURL:       cfg.CrossEngage.UIBaseURL,
		TrackingBaseURL: cfg.CrossEngage.TrackingBaseURL,
		APIVersion:      2,
		Timeout:         cfg.CrossEngage.Timeout(),
	})

	ctx := context.Background()

	if err := client.IdentifyCompany(ctx); err != nil {
		logger.Error("identifying company failed", "error", err)
		os.Exit(1)
	}
	logger.Info("identified company", "company_id", client.CompanyID())

	if err := client.Login(ctx); err != nil {
		logger.Error("login failed", "error", err)
		os.Exit(1)
	}
	logger.Info("session established")

	defs, err := client.FetchKPIDefinitions(ctx)
	if err != nil {
		logger.Error("fetching KPI definitions failed", "error", err)
		os.Exit(1)
	}
	catalog := export.NewCatalog(defs)
	logger.Info("retrieved KPI definitions", "count", len(defs))

	campaigns, err := client.FetchCampaigns(ctx)
	if err != nil {
		logger.Error("fetching campaigns failed", "error", err)
		os.Exit(1)
	}
	logger.Info("fetched campaigns", "count", len(campaigns))

	var rows []export.Row
	for _, campaign := range campaigns {
		logger.Info("fetching statistics", "campaign_id", campaign.ID.String())
		stats, err := client.FetchCampaignStats(ctx, campaign.ID.String(), exportDate, exportDate)
		if err != nil {
			logger.Error("fetching campaign statistics failed", "campaign_id", campaign.ID.String(), "error", err)
			os.Exit(1)
		}
		rows = append(rows, export.Flatten(campaign, stats, catalog, cfg.Export.KPIs, *reduced)...)
	}

	if err := export.WriteCSV(targetFile, rows, cfg.Export.KPIs, *reduced); err != nil {
		logger.Error("writing csv failed", "error", err)
		os.Exit(1)
	}
	logger.Info("finished", "rows", len(rows), "target", targetFile)
}
