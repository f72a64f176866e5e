package crossengage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// GetOptOutStatus reads the global opt-out flag for a user identified by
// their external id. Uses the API-key surface, not the UI session.
func (c *Client) GetOptOutStatus(ctx context.Context, externalID string) (bool, error) {
	url := fmt.Sprintf("%s/users/%s/recipient-status", c.apiBaseURL, externalID)
	status, body, err := c.do(ctx, http.MethodGet, url, nil, c.apiHeaders())
	if err != nil {
		return false, fmt.Errorf("reading opt-out status: %w", err)
	}
	if status != http.StatusOK {
		return false, newStatusError(ErrOptOutRead, "reading opt-out status", status, body)
	}

	var result struct {
		OptOutAll bool `json:"optOutAll"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return false, fmt.Errorf("parsing opt-out status: %w", err)
	}
	return result.OptOutAll, nil
}

// SetOptOut opts a user out of all channels and verifies the flag the
// platform echoes back. A 200 with optOut != true is treated as a failure.
func (c *Client) SetOptOut(ctx context.Context, externalID string) error {
	url := fmt.Sprintf("%s/users/%s/optout-status", c.apiBaseURL, externalID)
	payload := map[string]bool{"optOut": true}

	status, body, err := c.do(ctx, http.MethodPut, url, payload, c.apiHeaders())
	if err != nil {
		return fmt.Errorf("writing opt-out status: %w", err)
	}
	if status != http.StatusOK {
		return newStatusError(ErrOptOutWrite, "writing opt-out status", status, body)
	}

	var result struct {
		OptOut bool `json:"optOut"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("parsing opt-out write response: %w", err)
	}
	if !result.OptOut {
		return fmt.Errorf("%w: platform reported optOut=false", ErrOptOutVerify)
	}
	return nil
}

// WebhookOptOut opts a user out through the public tracking webhook. This is
// the fallback for users without an external id; the call is unauthenticated
// and there is no way to read the current status first, so idempotence rests
// on the webhook itself.
func (c *Client) WebhookOptOut(ctx context.Context, xngGlobalUserID string) error {
	url := fmt.Sprintf("%s/optout/inbound/webhook/%s/%s?channelType=all",
		c.trackingBaseURL, c.trackingKey, xngGlobalUserID)

	status, body, err := c.do(ctx, http.MethodGet, url, nil, nil)
	if err != nil {
		return fmt.Errorf("calling opt-out webhook: %w", err)
	}
	if status != http.StatusOK {
		return newStatusError(ErrOptOutWebhook, "calling opt-out webhook", status, body)
	}
	return nil
}
