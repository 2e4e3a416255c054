package atsapi

import (
	"strings"
	"time"

	"github.com/avolkov/ats-reconciler/internal/logger"
	"github.com/avolkov/ats-reconciler/internal/status"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

// rawStatusPreviewLimit bounds raw status strings in debug logs; providers
// have shipped multi-line garbage in that column before.
const rawStatusPreviewLimit = 64

// Submission is one provider's claim about a candidate's position in a
// requirement's pipeline, normalized out of the provider's wire shape.
type Submission struct {
	CandidateKey   string
	RequirementKey string
	// ApplicationKey identifies the submission instance itself. When present
	// it is the preferred dedupe key.
	ApplicationKey string
	// ClientKey is the client account the requirement belongs to. Empty when
	// the wire shape carries no client linkage; the engine never drops such
	// records on a client-scoped pass.
	ClientKey string

	Status    status.Status
	RawStatus string
	UpdatedAt time.Time
	// Provider records which adapter produced this. Diagnostics only, never
	// part of identity.
	Provider string

	// SchedulingNote marks a client-side note that an interview was being
	// arranged, independent of the schedule feed.
	SchedulingNote bool

	Display Display
}

// Display carries attributes the engine passes through but never reasons over.
type Display struct {
	Name   string
	Email  string
	Skills []string
}

// Interview is one authoritative scheduling fact from the interview feed.
type Interview struct {
	ID                string
	CandidateTokens   []string
	RequirementTokens []string
	Status            string
	ScheduledAt       time.Time
}

// Terminal interview statuses are excluded from overlay indices entirely.
func (iv Interview) Terminal() bool {
	switch iv.Status {
	case "cancelled", "rejected", "no_show":
		return true
	}
	return false
}

// rawBridgeSubmission nests candidate/requirement sub-objects.
type rawBridgeSubmission struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	UpdatedAt string `json:"updated_at"`
	Candidate struct {
		UUID   string   `json:"uuid"`
		ID     string   `json:"id"`
		Name   string   `json:"name"`
		Email  string   `json:"email"`
		Skills []string `json:"skills"`
	} `json:"candidate"`
	Requirement struct {
		ID  string `json:"id"`
		Ref string `json:"ref"`
	} `json:"requirement"`
	Client struct {
		ID  string `json:"id"`
		Ref string `json:"ref"`
	} `json:"client"`
	SchedulingNote bool `json:"scheduling_note"`
}

// rawLedgerSubmission is flat with *_id columns.
type rawLedgerSubmission struct {
	ApplicationID string `json:"application_id"`
	CandidateID   string `json:"candidate_id"`
	JobID         string `json:"job_id"`
	ClientID      string `json:"client_id"`
	Status        string `json:"status"`
	LastUpdated   string `json:"last_updated"`
	CandidateName string `json:"candidate_name"`
	Email         string `json:"email"`
	HasSchedule   bool   `json:"has_schedule"`
}

// rawArchiveSubmission is the legacy export shape: profile sub-object and a
// generic top-level id that may be a display code.
type rawArchiveSubmission struct {
	ID      string `json:"id"`
	Profile struct {
		CandidateUUID string   `json:"candidate_uuid"`
		CandidateID   string   `json:"candidate_id"`
		FullName      string   `json:"full_name"`
		Skills        []string `json:"skills"`
	} `json:"profile"`
	ReqID          string `json:"req_id"`
	AccountID      string `json:"account_id"`
	WorkflowStatus string `json:"workflow_status"`
	Modified       string `json:"modified"`
}

// DecodeSubmissions maps loosely-typed provider items onto Submission values
// according to the client's configured shape. Records whose candidate cannot
// be identified are dropped and counted, never raised.
func (c *Client) DecodeSubmissions(items []Item) []Submission {
	out := make([]Submission, 0, len(items))
	dropped := 0

	for _, item := range items {
		sub, ok := c.decodeSubmission(item)
		if !ok {
			dropped++
			continue
		}
		sub.Provider = c.cfg.Name
		if !status.IsCanonical(sub.Status) {
			c.logger.Debug("keeping non-canonical status for audit",
				zap.String("raw_status", logger.TruncateForLog(sub.RawStatus, rawStatusPreviewLimit)),
			)
		}
		out = append(out, sub)
	}

	if dropped > 0 {
		c.logger.Warn("dropped records without a resolvable candidate identity",
			zap.Int("dropped", dropped),
			zap.Int("decoded", len(out)),
		)
	}

	return out
}

func (c *Client) decodeSubmission(item Item) (Submission, bool) {
	switch c.cfg.Shape {
	case ShapeLedger:
		var raw rawLedgerSubmission
		if err := decode(item, &raw); err != nil {
			c.logger.Debug("undecodable item", zap.Error(err))
			return Submission{}, false
		}
		return raw.normalize()
	case ShapeArchive:
		var raw rawArchiveSubmission
		if err := decode(item, &raw); err != nil {
			c.logger.Debug("undecodable item", zap.Error(err))
			return Submission{}, false
		}
		return raw.normalize()
	default:
		var raw rawBridgeSubmission
		if err := decode(item, &raw); err != nil {
			c.logger.Debug("undecodable item", zap.Error(err))
			return Submission{}, false
		}
		return raw.normalize()
	}
}

func (r rawBridgeSubmission) normalize() (Submission, bool) {
	candidate, ok := resolveIdentity(r.Candidate.UUID, r.Candidate.ID)
	if !ok {
		return Submission{}, false
	}
	requirement, _ := resolveIdentity(r.Requirement.ID, r.Requirement.Ref)
	client, _ := resolveIdentity(r.Client.ID, r.Client.Ref)

	return Submission{
		CandidateKey:   candidate,
		RequirementKey: requirement,
		ApplicationKey: normalizeApplicationKey(r.ID),
		ClientKey:      client,
		Status:         status.Normalize(r.Status),
		RawStatus:      r.Status,
		UpdatedAt:      parseTime(r.UpdatedAt),
		SchedulingNote: r.SchedulingNote,
		Display: Display{
			Name:   r.Candidate.Name,
			Email:  r.Candidate.Email,
			Skills: r.Candidate.Skills,
		},
	}, true
}

func (r rawLedgerSubmission) normalize() (Submission, bool) {
	candidate, ok := resolveIdentity(r.CandidateID)
	if !ok {
		return Submission{}, false
	}
	requirement, _ := resolveIdentity(r.JobID)
	client, _ := resolveIdentity(r.ClientID)

	return Submission{
		CandidateKey:   candidate,
		RequirementKey: requirement,
		ApplicationKey: normalizeApplicationKey(r.ApplicationID),
		ClientKey:      client,
		Status:         status.Normalize(r.Status),
		RawStatus:      r.Status,
		UpdatedAt:      parseTime(r.LastUpdated),
		SchedulingNote: r.HasSchedule,
		Display: Display{
			Name:  r.CandidateName,
			Email: r.Email,
		},
	}, true
}

func (r rawArchiveSubmission) normalize() (Submission, bool) {
	candidate, ok := resolveIdentity(r.Profile.CandidateUUID, r.Profile.CandidateID, r.ID)
	if !ok {
		return Submission{}, false
	}
	requirement, _ := resolveIdentity(r.ReqID)
	client, _ := resolveIdentity(r.AccountID)

	return Submission{
		CandidateKey:   candidate,
		RequirementKey: requirement,
		ClientKey:      client,
		Status:         status.Normalize(r.WorkflowStatus),
		RawStatus:      r.WorkflowStatus,
		UpdatedAt:      parseTime(r.Modified),
		Display: Display{
			Name:   r.Profile.FullName,
			Skills: r.Profile.Skills,
		},
	}, true
}

// rawInterview tolerates both single refs and alias lists for candidate and
// requirement linkage.
type rawInterview struct {
	ID               string   `json:"id"`
	CandidateRef     string   `json:"candidate_ref"`
	CandidateAliases []string `json:"candidate_aliases"`
	RequirementRef   string   `json:"requirement_ref"`
	RequirementRefs  []string `json:"requirement_refs"`
	Status           string   `json:"status"`
	ScheduledAt      string   `json:"scheduled_at"`
}

// DecodeInterviews maps loosely-typed interview items onto Interview values.
func (c *Client) DecodeInterviews(items []Item) []Interview {
	out := make([]Interview, 0, len(items))

	for _, item := range items {
		var raw rawInterview
		if err := decode(item, &raw); err != nil {
			c.logger.Debug("undecodable interview item", zap.Error(err))
			continue
		}

		iv := Interview{
			ID:                strings.TrimSpace(raw.ID),
			CandidateTokens:   tokens(raw.CandidateRef, raw.CandidateAliases),
			RequirementTokens: tokens(raw.RequirementRef, raw.RequirementRefs),
			Status:            string(status.Normalize(raw.Status)),
			ScheduledAt:       parseTime(raw.ScheduledAt),
		}
		if len(iv.CandidateTokens) == 0 {
			continue
		}
		out = append(out, iv)
	}

	return out
}

func decode(item Item, target interface{}) error {
	cfg := &mapstructure.DecoderConfig{
		Metadata: nil,
		Result:   target,
		TagName:  "json",
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}

	return decoder.Decode(item)
}

func tokens(single string, many []string) []string {
	out := make([]string, 0, len(many)+1)
	seen := map[string]bool{}

	for _, t := range append([]string{single}, many...) {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}

	return out
}

func normalizeApplicationKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// timeLayouts are tried in order. Providers are not consistent here.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}

	return time.Time{}
}
