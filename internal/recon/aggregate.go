package recon

import (
	"context"

	"github.com/avolkov/ats-reconciler/internal/atsapi"
	"github.com/avolkov/ats-reconciler/internal/logger"
	"go.uber.org/zap"
)

type sourceResult struct {
	name string
	subs []atsapi.Submission
	err  error
}

type interviewResult struct {
	interviews []atsapi.Interview
	err        error
}

// aggregate fans out to all applicable submission sources plus the interview
// feed, bounded by the overall deadline. Adapters still pending at the
// deadline are abandoned; their late results belong to no generation.
func (e *Engine) aggregate(ctx context.Context, scope Scope, log *zap.Logger) ([]atsapi.Submission, []atsapi.Interview, error) {
	applicable := make([]Source, 0, len(e.sources))
	for _, src := range e.sources {
		if src.Applies(scope) {
			applicable = append(applicable, src)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, e.overallTimeout)
	defer cancel()

	ch := make(chan sourceResult, len(applicable))
	for _, src := range applicable {
		go func(src Source) {
			subs, err := src.Fetch(ctx, scope)
			ch <- sourceResult{name: src.Name(), subs: subs, err: err}
		}(src)
	}

	var ivCh chan interviewResult
	if e.interviews != nil {
		ivCh = make(chan interviewResult, 1)
		go func() {
			interviews, err := e.interviews.Fetch(ctx)
			ivCh <- interviewResult{interviews: interviews, err: err}
		}()
	}

	var merged []atsapi.Submission
	answered := 0

	for pending := len(applicable); pending > 0; {
		select {
		case r := <-ch:
			pending--
			switch {
			case r.err == nil:
				answered++
				merged = append(merged, r.subs...)
				log.Debug("source answered", zap.String(logger.FieldProvider, r.name), zap.Int("records", len(r.subs)))
			case atsapi.IsExpectedAbsence(r.err):
				// Nothing here for this scope. Not a failure.
				answered++
				log.Debug("source has nothing for this scope", zap.String(logger.FieldProvider, r.name), zap.Error(r.err))
			case atsapi.IsTimeout(r.err):
				log.Warn("source timed out", zap.String(logger.FieldProvider, r.name))
			default:
				log.Warn("source failed", zap.String(logger.FieldProvider, r.name), zap.Error(r.err))
			}
		case <-ctx.Done():
			log.Warn("aggregation deadline reached, abandoning pending sources", zap.Int("pending", pending))
			pending = 0
		}
	}

	if len(applicable) > 0 && answered == 0 {
		return nil, nil, ErrUnavailable
	}

	var interviews []atsapi.Interview
	if ivCh != nil {
		select {
		case r := <-ivCh:
			if r.err != nil {
				// The overlay is skipped rather than failing the whole pass.
				log.Warn("interview feed unavailable", zap.Error(r.err))
			} else {
				interviews = r.interviews
			}
		case <-ctx.Done():
			log.Warn("interview feed abandoned at deadline")
		}
	}

	return e.filterScope(merged, scope, log), interviews, nil
}

// filterScope drops records outside the caller's selection before dedupe.
// Filtering pre-merge is cheaper and bulk providers return far larger
// universes than scoped ones.
func (e *Engine) filterScope(subs []atsapi.Submission, scope Scope, log *zap.Logger) []atsapi.Submission {
	initial := len(subs)
	kept := subs[:0]

	for _, sub := range subs {
		if scope.RequirementID != "" && sub.RequirementKey != "" && sub.RequirementKey != scope.RequirementID {
			continue
		}
		if scope.ClientID != "" && sub.ClientKey != "" && sub.ClientKey != scope.ClientID {
			continue
		}
		if !scope.wantsStatus(sub.Status) {
			continue
		}
		kept = append(kept, sub)
	}

	log.Debug("filter step",
		zap.String(logger.FieldStage, "scope"),
		zap.Int("initial", initial),
		zap.Int("dropped", initial-len(kept)),
		zap.Int("left", len(kept)),
	)

	return kept
}
