package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

var csvHeader = []string{"type", "id", "title", "severity", "remediation"}

// CSV writes one row per passive finding followed by one row per scanned port.
func CSV(data Data) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, f := range data.Passive {
		row := []string{"passive", f.ID, f.Title, string(f.Severity), f.Remediation}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	for _, p := range data.ports() {
		if err := w.Write([]string{"active", "", p.Raw, "", ""}); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
