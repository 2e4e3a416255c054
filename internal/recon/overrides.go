package recon

import (
	"fmt"

	"github.com/avolkov/ats-reconciler/internal/status"
	"go.uber.org/zap"
)

// ApplyLocalOverride records a user-initiated workflow transition so the next
// reconciliation cannot regress the visible status while upstream providers
// catch up. Passing a non-canonical status is a programmer error: it fails
// loudly in development builds and returns an error in production.
func (e *Engine) ApplyLocalOverride(candidateKey, requirementKey string, s status.Status) error {
	if candidateKey == "" {
		return fmt.Errorf("candidate key is required for a local override")
	}
	if !status.IsCanonical(s) {
		e.logger.DPanic("unknown workflow status for local override",
			zap.String("candidate", candidateKey),
			zap.String("status", string(s)),
		)
		return fmt.Errorf("unknown workflow status %q", s)
	}

	e.mu.Lock()
	e.overrides[candidateKey] = s
	e.mu.Unlock()

	e.logger.Info("local override applied",
		zap.String("candidate", candidateKey),
		zap.String("requirement", requirementKey),
		zap.String("status", string(s)),
	)

	return nil
}

// applyOverrides folds pending local transitions into the record set. An
// override wins only while its priority stays at or above the freshly
// computed status; a provider reporting an equal-or-higher stage retires it
// implicitly.
func (e *Engine) applyOverrides(records []CanonicalRecord, log *zap.Logger) []CanonicalRecord {
	e.mu.Lock()
	overrides := make(map[string]status.Status, len(e.overrides))
	for key, s := range e.overrides {
		overrides[key] = s
	}
	e.mu.Unlock()

	held := 0
	for i := range records {
		ov, ok := overrides[records[i].CandidateKey]
		if !ok || ov == records[i].Status {
			continue
		}
		if status.Priority(ov) >= status.Priority(records[i].Status) {
			records[i].Status = ov
			records[i].Overridden = true
			held++
		}
	}

	if held > 0 {
		log.Debug("filter step",
			zap.String("stage", "local_overrides"),
			zap.Int("held", held),
			zap.Int("left", len(records)),
		)
	}

	return records
}
