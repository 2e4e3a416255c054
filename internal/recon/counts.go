package recon

import "github.com/avolkov/ats-reconciler/internal/status"

// CountsByStatus tallies canonical records per status for tab badges. Pure
// helper; non-canonical statuses are counted under their cleaned spelling.
func CountsByStatus(records []CanonicalRecord) map[status.Status]int {
	counts := make(map[status.Status]int, len(records))

	for _, rec := range records {
		counts[rec.Status]++
	}

	return counts
}
