package recon

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// ReportByRequirement groups canonical records per requirement for display.
func ReportByRequirement(records []CanonicalRecord) map[string][]map[string]string {
	report := make(map[string][]map[string]string)

	for _, rec := range records {
		key := rec.RequirementKey
		if key == "" {
			key = "(no requirement)"
		}

		entry := map[string]string{
			"candidate": rec.CandidateKey,
			"name":      rec.Display.Name,
			"status":    string(rec.Status),
			"sources":   strings.Join(rec.Sources, ","),
		}
		if !rec.UpdatedAt.IsZero() {
			entry["updated_at"] = rec.UpdatedAt.Format(time.RFC3339)
		}
		if rec.Interview != nil {
			entry["interview_id"] = rec.Interview.ID
			entry["interview_at"] = rec.Interview.ScheduledAt.Format(time.RFC3339)
		}
		if rec.Overridden {
			entry["overridden"] = "true"
		}

		report[key] = append(report[key], entry)
	}

	return report
}

// DumpToTmpFile writes the canonical record set to a temp file and returns
// its name.
func DumpToTmpFile(records []CanonicalRecord) (string, error) {
	file, err := os.CreateTemp("", "ats-reconciler-*.json")
	if err != nil {
		return "", fmt.Errorf("creating a temp file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		return "", fmt.Errorf("encoding records: %w", err)
	}

	return file.Name(), nil
}
