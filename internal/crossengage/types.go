package crossengage

import "encoding/json"

// KPIDefinition maps an opaque KPI id to its display name.
// IDs arrive as numbers from /statistics/kpi but are referenced as string
// keys inside per-message value maps, hence json.Number.
type KPIDefinition struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
}

// Campaign is a platform campaign, read-only for this toolkit.
type Campaign struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
}

// CampaignStatistics is the per-campaign stats payload: history keys are
// timestamps whose first ten characters are the YYYY-MM-DD date, and the
// description side-table maps message ids to display metadata.
type CampaignStatistics struct {
	History     map[string][]MessageStatistic `json:"history"`
	Description map[string]MessageDescription `json:"description"`
}

// MessageStatistic holds one message's KPI values for one day,
// keyed by KPI id.
type MessageStatistic struct {
	ID     string                 `json:"id"`
	Values map[string]json.Number `json:"values"`
}

// MessageDescription is the display metadata for a message.
type MessageDescription struct {
	Name        string `json:"name"`
	ChannelType string `json:"channelType"`
}

// User is a platform user record as returned by the segment member listing.
// ExternalID may be empty; its presence decides which opt-out path applies.
type User struct {
	XNGGlobalUserID string `json:"xngGlobalUserId"`
	ExternalID      string `json:"externalId"`
	Email           string `json:"email"`
}
