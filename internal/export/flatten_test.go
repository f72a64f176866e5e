package export

import (
	"encoding/json"
	"testing"

	"github.com/that-one-tom/crossengage-ops/internal/crossengage"
)

var testAllowList = []string{"Sent", "Delivered", "Viewed"}

func testCampaign() crossengage.Campaign {
	return crossengage.Campaign{ID: json.Number("100"), Name: "Welcome Series"}
}

func TestFlattenLongModeExample(t *testing.T) {
	// End-to-end example: one message, one KPI, long layout.
	stats := &crossengage.CampaignStatistics{
		History: map[string][]crossengage.MessageStatistic{
			"2024-01-01": {{ID: "m1", Values: map[string]json.Number{"5": "10"}}},
		},
		Description: map[string]crossengage.MessageDescription{
			"m1": {Name: "Welcome", ChannelType: "email"},
		},
	}
	catalog := NewCatalog(defs("5", "Sent"))

	rows := Flatten(testCampaign(), stats, catalog, testAllowList, false)

	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if row.Date != "2024-01-01" {
		t.Errorf("Date = %q", row.Date)
	}
	if row.CampaignID != "100" || row.CampaignName != "Welcome Series" {
		t.Errorf("Campaign fields = %q, %q", row.CampaignID, row.CampaignName)
	}
	if row.MessageID != "m1" || row.MessageName != "Welcome" || row.Channel != "email" {
		t.Errorf("Message fields = %q, %q, %q", row.MessageID, row.MessageName, row.Channel)
	}
	if row.KPI != "Sent" || row.Value.String() != "10" {
		t.Errorf("KPI fields = %q, %q", row.KPI, row.Value.String())
	}
}

func TestFlattenLongRowCountMatchesSurvivingKPIs(t *testing.T) {
	stats := &crossengage.CampaignStatistics{
		History: map[string][]crossengage.MessageStatistic{
			"2024-01-01T00:00:00.000Z": {{
				ID: "m1",
				Values: map[string]json.Number{
					"1": "100", // Sent
					"2": "98",  // Delivered
					"9": "7",   // unknown id, dropped
				},
			}},
		},
		Description: map[string]crossengage.MessageDescription{
			"m1": {Name: "Mail", ChannelType: "email"},
		},
	}
	catalog := NewCatalog(defs("1", "Sent", "2", "Delivered"))

	rows := Flatten(testCampaign(), stats, catalog, testAllowList, false)

	if len(rows) != 2 {
		t.Fatalf("Expected one row per surviving KPI (2), got %d", len(rows))
	}
	// Long rows come out in allow-list order.
	if rows[0].KPI != "Sent" || rows[1].KPI != "Delivered" {
		t.Errorf("Unexpected KPI order: %q, %q", rows[0].KPI, rows[1].KPI)
	}
	if rows[0].Date != "2024-01-01" {
		t.Errorf("Timestamp key not truncated to date: %q", rows[0].Date)
	}
}

func TestFlattenWideModeOneRowPerMessage(t *testing.T) {
	stats := &crossengage.CampaignStatistics{
		History: map[string][]crossengage.MessageStatistic{
			"2024-01-01": {
				{ID: "m1", Values: map[string]json.Number{"1": "100", "2": "98"}},
				{ID: "m2", Values: map[string]json.Number{}}, // zero surviving KPIs
			},
		},
		Description: map[string]crossengage.MessageDescription{
			"m1": {Name: "Mail A", ChannelType: "email"},
			"m2": {Name: "Mail B", ChannelType: "email"},
		},
	}
	catalog := NewCatalog(defs("1", "Sent", "2", "Delivered"))

	rows := Flatten(testCampaign(), stats, catalog, testAllowList, true)

	if len(rows) != 2 {
		t.Fatalf("Expected 1 row per message regardless of KPI count, got %d", len(rows))
	}
	if rows[0].KPIValues["Sent"].String() != "100" {
		t.Errorf("Expected Sent=100 on first message, got %v", rows[0].KPIValues)
	}
	if _, ok := rows[0].KPIValues["Viewed"]; ok {
		t.Error("Missing KPI must stay absent, not zero-filled")
	}
	if len(rows[1].KPIValues) != 0 {
		t.Errorf("Expected no values for second message, got %v", rows[1].KPIValues)
	}
}

func TestFlattenProcessesDaysInSortedOrder(t *testing.T) {
	stats := &crossengage.CampaignStatistics{
		History: map[string][]crossengage.MessageStatistic{
			"2024-01-03": {{ID: "m1", Values: map[string]json.Number{"1": "3"}}},
			"2024-01-01": {{ID: "m1", Values: map[string]json.Number{"1": "1"}}},
			"2024-01-02": {{ID: "m1", Values: map[string]json.Number{"1": "2"}}},
		},
		Description: map[string]crossengage.MessageDescription{
			"m1": {Name: "Mail", ChannelType: "email"},
		},
	}
	catalog := NewCatalog(defs("1", "Sent"))

	rows := Flatten(testCampaign(), stats, catalog, testAllowList, false)

	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}
	for i, want := range []string{"2024-01-01", "2024-01-02", "2024-01-03"} {
		if rows[i].Date != want {
			t.Errorf("Row %d date = %q, want %q", i, rows[i].Date, want)
		}
	}
}

func TestFlattenEmptyHistory(t *testing.T) {
	stats := &crossengage.CampaignStatistics{
		History:     map[string][]crossengage.MessageStatistic{},
		Description: map[string]crossengage.MessageDescription{},
	}
	catalog := NewCatalog(defs("1", "Sent"))

	if rows := Flatten(testCampaign(), stats, catalog, testAllowList, false); len(rows) != 0 {
		t.Errorf("Expected no rows for empty history, got %d", len(rows))
	}
}
