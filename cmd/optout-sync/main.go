// Command optout-sync mirrors SendGrid's global unsubscribe list into
// CrossEngage by opting out every matching platform user. Emails are resolved
// to user records in batches through disposable filter segments.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/that-one-tom/crossengage-ops/internal/config"
	"github.com/that-one-tom/crossengage-ops/internal/crossengage"
	"github.com/that-one-tom/crossengage-ops/internal/pkg/logger"
	"github.com/that-one-tom/crossengage-ops/internal/sendgrid"
	"github.com/that-one-tom/crossengage-ops/internal/syncer"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateSync(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	provider := sendgrid.NewClient(sendgrid.Config{
		APIKey:   cfg.SendGrid.APIKey,
		BaseURL:  cfg.SendGrid.BaseURL,
		PageSize: cfg.SendGrid.PageSize,
		Timeout:  cfg.SendGrid.Timeout(),
	})

	emails, err := provider.FetchAllUnsubscribed(ctx)
	if err != nil {
		logger.Error("fetching global unsubscribes failed", "error", err)
		os.Exit(1)
	}
	logger.Info("fetched global unsubscribes", "count", len(emails))

	client := crossengage.NewClient(crossengage.Config{
		APIKey:          cfg.CrossEngage.APIKey,
		Username:        cfg.CrossEngage.Username,
		Password:        cfg.CrossEngage.Password,
		WebTrackingKey:  cfg.CrossEngage.WebTrackingKey,
		APIBaseURL:      cfg.CrossEngage.APIBaseURL,
		UIBaseURL:       cfg.CrossEngage.UIBaseURL,
		TrackingBaseURL: cfg.CrossEngage.TrackingBaseURL,
		APIVersion:      1,
		Timeout:         cfg.CrossEngage.Timeout(),
	})

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

	emailAttributeID, err := client.ResolveEmailAttributeID(ctx)
	if err != nil {
		logger.Error("resolving email attribute failed", "error", err)
		os.Exit(1)
	}
	logger.Info("resolved traits.email attribute", "attribute_id", emailAttributeID.String())

	reconciler := syncer.NewReconciler(client)
	batches := syncer.ChunkEmails(emails, cfg.Sync.SegmentBatchSize)

	for i, batch := range batches {
		logger.Info("processing batch", "batch", i+1, "total_batches", len(batches), "emails", len(batch))
		err := client.WithSegment(ctx, emailAttributeID, batch, func(ctx context.Context, users []crossengage.User) error {
			logger.Info("resolved batch to platform users", "users", len(users))
			return reconciler.Reconcile(ctx, users)
		})
		if err != nil {
			logger.Error("batch failed", "batch", i+1, "error", err)
			os.Exit(1)
		}
	}

	logger.Info("finished", "emails", len(emails), "batches", len(batches))
}
