package export

import (
	"encoding/csv"
	"fmt"
	"os"
)

var baseColumns = []string{"Date", "Campaign ID", "Campaign Name", "Message ID", "Message Name", "Message Channel"}

// WriteCSV writes the rows to path with a header line. Long layout appends
// KPI and Value columns; reduced layout appends one column per allow-listed
// KPI name, in allow-list order, leaving cells empty where a message has no
// value for that KPI.
func WriteCSV(path string, rows []Row, allowList []string, reduced bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := append([]string(nil), baseColumns...)
	if reduced {
		header = append(header, allowList...)
	} else {
		header = append(header, "KPI", "Value")
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, row := range rows {
		record := []string{row.Date, row.CampaignID, row.CampaignName, row.MessageID, row.MessageName, row.Channel}
		if reduced {
			for _, name := range allowList {
				if value, ok := row.KPIValues[name]; ok {
					record = append(record, value.String())
				} else {
					record = append(record, "")
				}
			}
		} else {
			record = append(record, row.KPI, row.Value.String())
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}
