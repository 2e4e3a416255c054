// Package status holds the canonical pipeline-stage vocabulary shared by the
// reconciliation engine and the provider adapters.
package status

import "strings"

// Status is one canonical pipeline stage. Raw provider strings that fail
// normalization keep their (cleaned) spelling and report IsCanonical false.
type Status string

const (
	SentToAM           Status = "sent_to_am"
	AMShortlisted      Status = "am_shortlisted"
	AMHold             Status = "am_hold"
	AMRejected         Status = "am_rejected"
	SentToClient       Status = "sent_to_client"
	ClientShortlisted  Status = "client_shortlisted"
	ClientHold         Status = "client_hold"
	ClientRejected     Status = "client_rejected"
	InterviewScheduled Status = "interview_scheduled"
	InterviewCompleted Status = "interview_completed"
	Selected           Status = "selected"
	Negotiation        Status = "negotiation"
	Hired              Status = "hired"
	// OfferDeclined is terminal but sits outside the priority ladder. It
	// never displaces a ladder status during conflict resolution.
	OfferDeclined Status = "offer_declined"
)

// priorities is the conflict-resolution ladder. Higher wins. Statuses absent
// from the table (offer_declined, non-canonical strings) resolve to 0.
var priorities = map[Status]int{
	SentToAM:           10,
	AMShortlisted:      20,
	AMHold:             30,
	AMRejected:         40,
	SentToClient:       50,
	ClientShortlisted:  60,
	ClientHold:         70,
	ClientRejected:     80,
	InterviewScheduled: 90,
	InterviewCompleted: 100,
	Selected:           110,
	Negotiation:        120,
	Hired:              130,
}

var aliases = map[string]Status{
	"hold_revisit":  AMHold,
	"am_viewed":     SentToAM,
	"client_viewed": SentToClient,
}

var separators = strings.NewReplacer(" ", "_", "-", "_")

// Normalize maps a raw provider status spelling onto the canonical
// enumeration. Unrecognized spellings pass through cleaned but unchanged so
// they stay visible for audit. Pure and total: never fails.
func Normalize(raw string) Status {
	s := separators.Replace(strings.ToLower(strings.TrimSpace(raw)))

	if alias, ok := aliases[s]; ok {
		return alias
	}

	// Providers disagree on tense: interview_schedule, interview_scheduling,
	// interview_completed_at etc. all describe the same two stages.
	switch {
	case strings.HasPrefix(s, "interview_schedule"):
		return InterviewScheduled
	case strings.HasPrefix(s, "interview_complete"):
		return InterviewCompleted
	}

	return Status(s)
}

// Priority returns the ladder position of s, 0 for offer_declined and for
// any non-canonical string.
func Priority(s Status) int {
	return priorities[s]
}

// IsCanonical reports whether s belongs to the canonical enumeration.
func IsCanonical(s Status) bool {
	if _, ok := priorities[s]; ok {
		return true
	}
	return s == OfferDeclined
}

// All returns the canonical enumeration in ladder order, offer_declined last.
func All() []Status {
	return []Status{
		SentToAM, AMShortlisted, AMHold, AMRejected,
		SentToClient, ClientShortlisted, ClientHold, ClientRejected,
		InterviewScheduled, InterviewCompleted,
		Selected, Negotiation, Hired,
		OfferDeclined,
	}
}
