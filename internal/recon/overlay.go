package recon

import (
	"strings"

	"github.com/avolkov/ats-reconciler/internal/atsapi"
	"github.com/avolkov/ats-reconciler/internal/logger"
	"github.com/avolkov/ats-reconciler/internal/status"
	"go.uber.org/zap"
)

type interviewIndex struct {
	// byPair maps candidateToken::requirementToken to the latest
	// non-terminal interview; byCandidate is the fallback when the evidence
	// carries no requirement linkage.
	byPair      map[string]atsapi.Interview
	byCandidate map[string]atsapi.Interview
}

func indexInterviews(interviews []atsapi.Interview) *interviewIndex {
	idx := &interviewIndex{
		byPair:      make(map[string]atsapi.Interview),
		byCandidate: make(map[string]atsapi.Interview),
	}

	for _, iv := range interviews {
		if iv.Terminal() {
			continue
		}

		for _, cand := range iv.CandidateTokens {
			if prev, ok := idx.byCandidate[cand]; !ok || iv.ScheduledAt.After(prev.ScheduledAt) {
				idx.byCandidate[cand] = iv
			}
			for _, req := range iv.RequirementTokens {
				key := cand + "::" + req
				if prev, ok := idx.byPair[key]; !ok || iv.ScheduledAt.After(prev.ScheduledAt) {
					idx.byPair[key] = iv
				}
			}
		}
	}

	return idx
}

func (idx *interviewIndex) lookup(rec CanonicalRecord) (atsapi.Interview, bool) {
	cand := strings.ToLower(rec.CandidateKey)

	if req := strings.ToLower(rec.RequirementKey); req != "" {
		if iv, ok := idx.byPair[cand+"::"+req]; ok {
			return iv, true
		}
	}

	iv, ok := idx.byCandidate[cand]
	return iv, ok
}

// overlayInterviews corrects records the providers optimistically marked
// interview_scheduled. Evidence keeps or upgrades the status; no evidence and
// no scheduling note means the booking never happened, so the record drops
// back to client_shortlisted. Records are only ever amended, never discarded.
func overlayInterviews(records []CanonicalRecord, interviews []atsapi.Interview, log *zap.Logger) []CanonicalRecord {
	idx := indexInterviews(interviews)

	confirmed, downgraded := 0, 0
	for i := range records {
		if records[i].Status != status.InterviewScheduled {
			continue
		}

		iv, ok := idx.lookup(records[i])
		if !ok {
			if records[i].SchedulingNote {
				continue
			}
			records[i].Status = status.ClientShortlisted
			downgraded++
			continue
		}

		// The feed says "completed" while provider spellings normalize to
		// interview_completed; both mean the interview already happened.
		switch iv.Status {
		case "completed", string(status.InterviewCompleted):
			records[i].Status = status.InterviewCompleted
		}
		records[i].Interview = &InterviewRef{ID: iv.ID, ScheduledAt: iv.ScheduledAt}
		confirmed++
	}

	log.Debug("filter step",
		zap.String(logger.FieldStage, "interview_overlay"),
		zap.Int("initial", len(records)),
		zap.Int("confirmed", confirmed),
		zap.Int("downgraded", downgraded),
		zap.Int("left", len(records)),
	)

	return records
}
