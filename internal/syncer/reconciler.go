// Package syncer drives the Provider→Platform opt-out reconciliation.
package syncer

import (
	"context"

	"github.com/that-one-tom/crossengage-ops/internal/crossengage"
	"github.com/that-one-tom/crossengage-ops/internal/pkg/logger"
)

// OptOutClient is the slice of the platform client the reconciler needs.
type OptOutClient interface {
	GetOptOutStatus(ctx context.Context, externalID string) (bool, error)
	SetOptOut(ctx context.Context, externalID string) error
	WebhookOptOut(ctx context.Context, xngGlobalUserID string) error
}

// Reconciler opts out platform users resolved from the provider's
// suppression list.
type Reconciler struct {
	client OptOutClient
}

// NewReconciler creates a Reconciler on top of the given client.
func NewReconciler(client OptOutClient) *Reconciler {
	return &Reconciler{client: client}
}

// Reconcile processes users sequentially and stops on the first failure.
// Users with an external id get a read-before-write idempotence guard: the
// opt-out flag is only written when not already set, and the write is
// verified. Users without an external id fall back to the public webhook,
// which cannot be checked first.
func (r *Reconciler) Reconcile(ctx context.Context, users []crossengage.User) error {
	for _, user := range users {
		if user.ExternalID == "" {
			logger.Info("no external id, using webhook opt-out", "user_id", user.XNGGlobalUserID, "email", user.Email)
			if err := r.client.WebhookOptOut(ctx, user.XNGGlobalUserID); err != nil {
				return err
			}
			logger.Info("user opted out via webhook", "user_id", user.XNGGlobalUserID)
			continue
		}

		optedOut, err := r.client.GetOptOutStatus(ctx, user.ExternalID)
		if err != nil {
			return err
		}
		if optedOut {
			logger.Info("user already opted out", "user_id", user.XNGGlobalUserID, "email", user.Email)
			continue
		}

		if err := r.client.SetOptOut(ctx, user.ExternalID); err != nil {
			return err
		}
		logger.Info("user opted out", "user_id", user.XNGGlobalUserID, "email", user.Email)
	}
	return nil
}

// ChunkEmails splits emails into batches of at most size. The batch size is
// bounded by the segment member listing's page size, so each batch resolves
// with a single page.
func ChunkEmails(emails []string, size int) [][]string {
	if size <= 0 || len(emails) == 0 {
		return nil
	}
	batches := make([][]string, 0, (len(emails)+size-1)/size)
	for start := 0; start < len(emails); start += size {
		end := start + size
		if end > len(emails) {
			end = len(emails)
		}
		batches = append(batches, emails[start:end])
	}
	return batches
}
