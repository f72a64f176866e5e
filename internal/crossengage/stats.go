package crossengage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// FetchKPIDefinitions retrieves the KPI id→name catalog from the
// statistics API.
func (c *Client) FetchKPIDefinitions(ctx context.Context) ([]KPIDefinition, error) {
	status, body, err := c.do(ctx, http.MethodGet, c.apiBaseURL+"/statistics/kpi", nil, c.apiHeaders())
	if err != nil {
		return nil, fmt.Errorf("fetching KPI definitions: %w", err)
	}
	if status != http.StatusOK {
		return nil, newStatusError(ErrCatalogFetch, "fetching KPI definitions", status, body)
	}

	var defs []KPIDefinition
	if err := json.Unmarshal(body, &defs); err != nil {
		return nil, fmt.Errorf("parsing KPI definitions: %w", err)
	}
	return defs, nil
}

// FetchCampaigns retrieves all campaigns visible to the session.
func (c *Client) FetchCampaigns(ctx context.Context) ([]Campaign, error) {
	status, body, err := c.do(ctx, http.MethodGet, c.uiBaseURL+"/campaigns", nil, c.uiHeaders())
	if err != nil {
		return nil, fmt.Errorf("fetching campaigns: %w", err)
	}
	if status != http.StatusOK {
		return nil, newStatusError(ErrUnexpectedStatus, "fetching campaigns", status, body)
	}

	var campaigns []Campaign
	if err := json.Unmarshal(body, &campaigns); err != nil {
		return nil, fmt.Errorf("parsing campaigns: %w", err)
	}
	return campaigns, nil
}

// FetchCampaignStats retrieves per-message daily statistics for one campaign.
// startDate and endDate are YYYY-MM-DD; the platform expects full-day
// timestamp bounds around them.
func (c *Client) FetchCampaignStats(ctx context.Context, campaignID, startDate, endDate string) (*CampaignStatistics, error) {
	url := fmt.Sprintf("%s/campaign/%s/stats?startDate=%sT00:00:00.000Z&endDate=%sT23:59:59.999Z&groupBy=MESSAGE&interval=DAY",
		c.uiBaseURL, campaignID, startDate, endDate)

	status, body, err := c.do(ctx, http.MethodGet, url, nil, c.uiHeaders())
	if err != nil {
		return nil, fmt.Errorf("fetching stats for campaign %s: %w", campaignID, err)
	}
	if status != http.StatusOK {
		return nil, newStatusError(ErrUnexpectedStatus, "fetching campaign statistics", status, body)
	}

	var stats CampaignStatistics
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, fmt.Errorf("parsing stats for campaign %s: %w", campaignID, err)
	}
	return &stats, nil
}
