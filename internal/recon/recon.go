// Package recon reconciles candidate-workflow status claims from several
// upstream providers into one canonical, override-aware record set.
package recon

import (
	"context"
	"time"

	"github.com/avolkov/ats-reconciler/internal/atsapi"
	"github.com/avolkov/ats-reconciler/internal/status"
)

// Scope narrows a reconciliation request to the caller's current selection.
// Zero values mean "no restriction".
type Scope struct {
	RequirementID string
	ClientID      string
	// Statuses is the workflow tab's status set. Empty keeps everything,
	// including non-canonical statuses preserved for audit.
	Statuses []status.Status
}

func (s Scope) wantsStatus(st status.Status) bool {
	if len(s.Statuses) == 0 {
		return true
	}
	for _, want := range s.Statuses {
		if want == st {
			return true
		}
	}
	return false
}

// InterviewRef ties a canonical record to the booking that confirmed it.
type InterviewRef struct {
	ID          string
	ScheduledAt time.Time
}

// CanonicalRecord is the deduplicated, conflict-resolved, overlay-adjusted,
// override-applied result for one dedupe key.
type CanonicalRecord struct {
	atsapi.Submission

	// Sources lists the providers whose raw records contributed to this one.
	Sources []string
	// Interview is set when the overlay confirmed a real booking.
	Interview *InterviewRef
	// Overridden marks a status held up by the local override cache.
	Overridden bool
}

// Source is one submission provider adapter. Fetch returns the provider's
// normalized records; failures are classified by the aggregator and are
// never fatal on their own.
type Source interface {
	Name() string
	// Applies reports whether this adapter can serve the given scope.
	Applies(Scope) bool
	Fetch(ctx context.Context, scope Scope) ([]atsapi.Submission, error)
}

// InterviewSource supplies the authoritative interview-schedule feed.
type InterviewSource interface {
	Fetch(ctx context.Context) ([]atsapi.Interview, error)
}
