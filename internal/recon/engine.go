package recon

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avolkov/ats-reconciler/internal/logger"
	"github.com/avolkov/ats-reconciler/internal/status"
	"go.uber.org/zap"
)

var (
	// ErrUnavailable means every submission source failed or timed out, so
	// an empty result would be indistinguishable from "no candidates".
	ErrUnavailable = errors.New("reconciliation unavailable: all submission sources failed")
	// ErrSuperseded means a newer reconciliation started before this one
	// finished; its results were discarded unpublished.
	ErrSuperseded = errors.New("reconciliation superseded by a newer request")
)

const defaultOverallTimeout = 45 * time.Second

// Options tune a single engine instance.
type Options struct {
	// OverallTimeout bounds one whole aggregation pass. It should exceed any
	// individual provider timeout.
	OverallTimeout time.Duration
}

// Engine owns the override cache and the generation counter for one UI
// session. Construct one per session/view; there is no ambient global state.
type Engine struct {
	sources    []Source
	interviews InterviewSource
	logger     *zap.Logger

	overallTimeout time.Duration
	generation     atomic.Uint64

	mu        sync.Mutex
	overrides map[string]status.Status
}

func New(log *zap.Logger, sources []Source, interviews InterviewSource, opts Options) *Engine {
	if log == nil {
		log = zap.NewNop()
	}

	timeout := opts.OverallTimeout
	if timeout <= 0 {
		timeout = defaultOverallTimeout
	}

	return &Engine{
		sources:        sources,
		interviews:     interviews,
		logger:         log,
		overallTimeout: timeout,
		overrides:      make(map[string]status.Status),
	}
}

// Reconcile runs one full reconciliation pass for the given scope. A run that
// loses the generation race returns ErrSuperseded and never publishes
// anything; ErrUnavailable is returned only when no submission source
// answered at all.
func (e *Engine) Reconcile(ctx context.Context, scope Scope) ([]CanonicalRecord, error) {
	gen := e.generation.Add(1)
	log := e.logger.With(zap.Uint64(logger.FieldGeneration, gen))

	merged, interviews, err := e.aggregate(ctx, scope, log)
	if e.superseded(gen) {
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, err
	}

	records := dedupe(merged, log)
	records = overlayInterviews(records, interviews, log)
	records = e.applyOverrides(records, log)

	// Publish only if still current; a late run must not reach the caller.
	if e.superseded(gen) {
		return nil, ErrSuperseded
	}

	log.Info("reconciliation complete", zap.Int("records", len(records)))

	return records, nil
}

func (e *Engine) superseded(gen uint64) bool {
	return e.generation.Load() != gen
}
