package export

import (
	"encoding/json"
	"sort"

	"github.com/that-one-tom/crossengage-ops/internal/crossengage"
)

// Row is one line of the export. In long layout KPI/Value carry a single
// metric; in reduced (wide) layout KPIValues carries every surviving metric
// for the message and KPI/Value stay empty.
type Row struct {
	Date         string
	CampaignID   string
	CampaignName string
	MessageID    string
	MessageName  string
	Channel      string
	KPI          string
	Value        json.Number
	KPIValues    map[string]json.Number
}

// Flatten walks a campaign's nested per-day, per-message statistic blocks and
// produces flat rows. Days are processed in sorted key order (for YYYY-MM-DD
// prefixed keys that is chronological), messages in the order the platform
// returned them. In reduced mode each message yields exactly one row no
// matter how many of its KPIs survive; missing KPIs stay absent rather than
// zero-filled. In long mode each surviving KPI yields one row, in allow-list
// order.
func Flatten(campaign crossengage.Campaign, stats *crossengage.CampaignStatistics, catalog *Catalog, allowList []string, reduced bool) []Row {
	days := make([]string, 0, len(stats.History))
	for day := range stats.History {
		days = append(days, day)
	}
	sort.Strings(days)

	var rows []Row
	for _, day := range days {
		date := day
		if len(date) > 10 {
			date = date[:10]
		}
		for _, message := range stats.History[day] {
			details := stats.Description[message.ID]
			values := catalog.ResolveAndFilter(message.Values, allowList)

			base := Row{
				Date:         date,
				CampaignID:   campaign.ID.String(),
				CampaignName: campaign.Name,
				MessageID:    message.ID,
				MessageName:  details.Name,
				Channel:      details.ChannelType,
			}

			if reduced {
				base.KPIValues = values
				rows = append(rows, base)
				continue
			}

			for _, name := range allowList {
				value, ok := values[name]
				if !ok {
					continue
				}
				row := base
				row.KPI = name
				row.Value = value
				rows = append(rows, row)
			}
		}
	}
	return rows
}
