package recon

import (
	"context"

	"github.com/avolkov/ats-reconciler/internal/atsapi"
)

// ScopeKind selects how a provider is queried.
type ScopeKind string

const (
	// ScopeRequirement providers index submissions by requirement id.
	ScopeRequirement ScopeKind = "requirement"
	// ScopeClient providers index submissions by client account.
	ScopeClient ScopeKind = "client"
	// ScopeBulk providers only return their full universe.
	ScopeBulk ScopeKind = "bulk"
)

type clientSource struct {
	client *atsapi.Client
	kind   ScopeKind
}

// NewSource wraps an atsapi client as a submission source adapter with the
// given scope kind.
func NewSource(client *atsapi.Client, kind ScopeKind) Source {
	return &clientSource{client: client, kind: kind}
}

func (s *clientSource) Name() string { return s.client.Name() }

func (s *clientSource) Applies(scope Scope) bool {
	switch s.kind {
	case ScopeRequirement:
		return scope.RequirementID != ""
	case ScopeClient:
		return scope.ClientID != ""
	default:
		return true
	}
}

func (s *clientSource) Fetch(ctx context.Context, scope Scope) ([]atsapi.Submission, error) {
	switch s.kind {
	case ScopeRequirement:
		return s.client.SubmissionsByRequirement(ctx, scope.RequirementID)
	case ScopeClient:
		return s.client.SubmissionsByClient(ctx, scope.ClientID)
	default:
		return s.client.Submissions(ctx)
	}
}

type interviewSource struct {
	client *atsapi.Client
}

// NewInterviewSource wraps an atsapi client as the interview feed.
func NewInterviewSource(client *atsapi.Client) InterviewSource {
	return &interviewSource{client: client}
}

func (s *interviewSource) Fetch(ctx context.Context) ([]atsapi.Interview, error) {
	return s.client.Interviews(ctx)
}
