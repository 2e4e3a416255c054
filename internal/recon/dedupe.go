package recon

import (
	"sort"

	"github.com/avolkov/ats-reconciler/internal/atsapi"
	"github.com/avolkov/ats-reconciler/internal/logger"
	"github.com/avolkov/ats-reconciler/internal/status"
	"go.uber.org/zap"
)

// dedupeKey groups records describing the same fact: the application instance
// when known, else candidate+requirement, else the candidate alone.
func dedupeKey(s atsapi.Submission) string {
	if s.ApplicationKey != "" {
		return "app::" + s.ApplicationKey
	}
	if s.RequirementKey != "" {
		return s.CandidateKey + "::" + s.RequirementKey
	}
	return s.CandidateKey
}

// beats reports whether a should replace b as a group's canonical member.
// Higher priority wins outright; on a tie the later update wins, so a zero
// timestamp always loses against a timestamped record. The provider name is
// the final tie-break purely to keep the merge order-independent.
func beats(a, b atsapi.Submission) bool {
	pa, pb := status.Priority(a.Status), status.Priority(b.Status)
	if pa != pb {
		return pa > pb
	}
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.Provider < b.Provider
}

// dedupe merges all records sharing a dedupe key into one canonical record.
// Commutative and idempotent: any arrival order yields the same output.
func dedupe(subs []atsapi.Submission, log *zap.Logger) []CanonicalRecord {
	groups := make(map[string]*CanonicalRecord, len(subs))

	for _, sub := range subs {
		key := dedupeKey(sub)

		existing, ok := groups[key]
		if !ok {
			groups[key] = &CanonicalRecord{
				Submission: sub,
				Sources:    []string{sub.Provider},
			}
			continue
		}

		existing.Sources = append(existing.Sources, sub.Provider)
		if beats(sub, existing.Submission) {
			existing.Submission = sub
		}
	}

	records := make([]CanonicalRecord, 0, len(groups))
	for _, rec := range groups {
		sort.Strings(rec.Sources)
		records = append(records, *rec)
	}

	// Most recently updated first for display; key order breaks ties so the
	// result is reproducible.
	sort.Slice(records, func(i, j int) bool {
		if !records[i].UpdatedAt.Equal(records[j].UpdatedAt) {
			return records[i].UpdatedAt.After(records[j].UpdatedAt)
		}
		return dedupeKey(records[i].Submission) < dedupeKey(records[j].Submission)
	})

	log.Debug("filter step",
		zap.String(logger.FieldStage, "dedupe"),
		zap.Int("initial", len(subs)),
		zap.Int("dropped", len(subs)-len(records)),
		zap.Int("left", len(records)),
	)

	return records
}
