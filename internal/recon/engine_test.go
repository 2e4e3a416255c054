package recon

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/avolkov/ats-reconciler/internal/atsapi"
	"github.com/avolkov/ats-reconciler/internal/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	name string
	subs []atsapi.Submission
	err  error
}

func (f *fakeSource) Name() string       { return f.name }
func (f *fakeSource) Applies(Scope) bool { return true }
func (f *fakeSource) Fetch(context.Context, Scope) ([]atsapi.Submission, error) {
	return f.subs, f.err
}

// gateSource blocks its first Fetch until released so tests can interleave
// two reconciliation runs.
type gateSource struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
	subs    []atsapi.Submission
}

func (g *gateSource) Name() string       { return "gated" }
func (g *gateSource) Applies(Scope) bool { return true }
func (g *gateSource) Fetch(context.Context, Scope) ([]atsapi.Submission, error) {
	if g.calls.Add(1) == 1 {
		g.started <- struct{}{}
		<-g.release
	}
	return g.subs, nil
}

type fakeInterviews struct {
	interviews []atsapi.Interview
	err        error
}

func (f *fakeInterviews) Fetch(context.Context) ([]atsapi.Interview, error) {
	return f.interviews, f.err
}

func newEngine(t *testing.T, interviews InterviewSource, sources ...Source) *Engine {
	t.Helper()
	return New(zap.NewNop(), sources, interviews, Options{OverallTimeout: 2 * time.Second})
}

func TestReconcileNormalizesAliases(t *testing.T) {
	t.Parallel()

	src := &fakeSource{name: "alpha", subs: []atsapi.Submission{{
		CandidateKey:   "cand-1",
		RequirementKey: "req-9",
		Status:         status.Normalize("am_viewed"),
		RawStatus:      "am_viewed",
		UpdatedAt:      t1,
		Provider:       "alpha",
	}}}

	records, err := newEngine(t, nil, src).Reconcile(context.Background(), Scope{})
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, status.SentToAM, records[0].Status)
	assert.Equal(t, "am_viewed", records[0].RawStatus)
}

func TestReconcileIdempotent(t *testing.T) {
	t.Parallel()

	sources := []Source{
		&fakeSource{name: "alpha", subs: []atsapi.Submission{
			sub("cand-1", "req-1", status.SentToAM, t1, "alpha"),
			sub("cand-2", "req-1", status.ClientHold, t2, "alpha"),
		}},
		&fakeSource{name: "beta", subs: []atsapi.Submission{
			sub("cand-1", "req-1", status.AMShortlisted, t1, "beta"),
		}},
	}

	engine := newEngine(t, nil, sources...)

	first, err := engine.Reconcile(context.Background(), Scope{})
	require.NoError(t, err)
	second, err := engine.Reconcile(context.Background(), Scope{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestReconcileMergesAcrossSources(t *testing.T) {
	t.Parallel()

	sources := []Source{
		&fakeSource{name: "alpha", subs: []atsapi.Submission{
			sub("cand-1", "req-1", status.SentToAM, t2, "alpha"),
		}},
		&fakeSource{name: "beta", subs: []atsapi.Submission{
			sub("cand-1", "req-1", status.AMRejected, t1, "beta"),
		}},
	}

	records, err := newEngine(t, nil, sources...).Reconcile(context.Background(), Scope{})
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, status.AMRejected, records[0].Status)
	assert.Equal(t, []string{"alpha", "beta"}, records[0].Sources)
}

func TestReconcileAllSourcesAbsentIsEmptySuccess(t *testing.T) {
	t.Parallel()

	absence := &atsapi.APIError{Code: 404, Status: "404 Not Found"}
	sources := []Source{
		&fakeSource{name: "alpha", err: absence},
		&fakeSource{name: "beta", err: absence},
	}

	records, err := newEngine(t, nil, sources...).Reconcile(context.Background(), Scope{})

	// The endpoints simply have nothing for this scope.
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReconcileAllSourcesTimedOutIsUnavailable(t *testing.T) {
	t.Parallel()

	sources := []Source{
		&fakeSource{name: "alpha", err: context.DeadlineExceeded},
		&fakeSource{name: "beta", err: context.DeadlineExceeded},
	}

	_, err := newEngine(t, nil, sources...).Reconcile(context.Background(), Scope{})

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestReconcileOneFailingSourceDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	sources := []Source{
		&fakeSource{name: "alpha", err: errors.New("boom")},
		&fakeSource{name: "beta", subs: []atsapi.Submission{
			sub("cand-1", "req-1", status.SentToAM, t1, "beta"),
		}},
	}

	records, err := newEngine(t, nil, sources...).Reconcile(context.Background(), Scope{})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestReconcileScopeFiltersBeforeDedupe(t *testing.T) {
	t.Parallel()

	src := &fakeSource{name: "bulk", subs: []atsapi.Submission{
		sub("cand-1", "req-1", status.SentToAM, t1, "bulk"),
		sub("cand-2", "req-2", status.SentToAM, t1, "bulk"),
		sub("cand-3", "req-1", status.Hired, t1, "bulk"),
	}}

	records, err := newEngine(t, nil, src).Reconcile(context.Background(), Scope{
		RequirementID: "req-1",
		Statuses:      []status.Status{status.SentToAM},
	})
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "cand-1", records[0].CandidateKey)
}

func TestReconcileClientScopeFiltersBulkRecords(t *testing.T) {
	t.Parallel()

	mine := sub("cand-1", "req-1", status.SentToAM, t1, "bulk")
	mine.ClientKey = "client-1"
	foreign := sub("cand-2", "req-2", status.SentToAM, t1, "bulk")
	foreign.ClientKey = "client-2"
	unlinked := sub("cand-3", "req-3", status.SentToAM, t1, "bulk")

	src := &fakeSource{name: "bulk", subs: []atsapi.Submission{mine, foreign, unlinked}}

	records, err := newEngine(t, nil, src).Reconcile(context.Background(), Scope{ClientID: "client-1"})
	require.NoError(t, err)

	// Foreign clients drop; records without client linkage are kept.
	require.Len(t, records, 2)
	keys := []string{records[0].CandidateKey, records[1].CandidateKey}
	assert.ElementsMatch(t, []string{"cand-1", "cand-3"}, keys)
}

func TestReconcileAppliesInterviewOverlay(t *testing.T) {
	t.Parallel()

	src := &fakeSource{name: "alpha", subs: []atsapi.Submission{
		sub("cand-1", "req-1", status.InterviewScheduled, t1, "alpha"),
	}}
	interviews := &fakeInterviews{}

	records, err := newEngine(t, interviews, src).Reconcile(context.Background(), Scope{})
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, status.ClientShortlisted, records[0].Status)
}

func TestReconcileInterviewFeedFailureSkipsOverlay(t *testing.T) {
	t.Parallel()

	src := &fakeSource{name: "alpha", subs: []atsapi.Submission{
		sub("cand-1", "req-1", status.InterviewScheduled, t1, "alpha"),
	}}
	interviews := &fakeInterviews{err: errors.New("feed down")}

	records, err := newEngine(t, interviews, src).Reconcile(context.Background(), Scope{})
	require.NoError(t, err)
	require.Len(t, records, 1)

	// Without evidence either way the record passes through unchanged.
	assert.Equal(t, status.InterviewScheduled, records[0].Status)
}

func TestOverridePrecedence(t *testing.T) {
	t.Parallel()

	src := &fakeSource{name: "alpha", subs: []atsapi.Submission{
		sub("cand-1", "req-1", status.SentToAM, t1, "alpha"),
	}}
	engine := newEngine(t, nil, src)

	require.NoError(t, engine.ApplyLocalOverride("cand-1", "req-1", status.AMShortlisted))

	records, err := engine.Reconcile(context.Background(), Scope{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, status.AMShortlisted, records[0].Status)
	assert.True(t, records[0].Overridden)

	// A provider catching up with an equal-or-higher status retires the
	// override.
	src.subs = []atsapi.Submission{sub("cand-1", "req-1", status.AMRejected, t2, "alpha")}

	records, err = engine.Reconcile(context.Background(), Scope{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, status.AMRejected, records[0].Status)
	assert.False(t, records[0].Overridden)
}

func TestApplyLocalOverrideRejectsUnknownStatus(t *testing.T) {
	t.Parallel()

	engine := newEngine(t, nil, &fakeSource{name: "alpha"})

	err := engine.ApplyLocalOverride("cand-1", "req-1", status.Status("totally_bogus"))
	require.Error(t, err)

	err = engine.ApplyLocalOverride("", "req-1", status.Hired)
	require.Error(t, err)
}

func TestGenerationDiscard(t *testing.T) {
	t.Parallel()

	gate := &gateSource{
		started: make(chan struct{}),
		release: make(chan struct{}),
		subs: []atsapi.Submission{
			sub("cand-1", "req-1", status.SentToAM, t1, "gated"),
		},
	}
	engine := newEngine(t, nil, gate)

	type result struct {
		records []CanonicalRecord
		err     error
	}
	done := make(chan result, 1)

	go func() {
		records, err := engine.Reconcile(context.Background(), Scope{})
		done <- result{records: records, err: err}
	}()

	// Wait until the first run is inside its fetch, then start a newer one.
	<-gate.started

	records, err := engine.Reconcile(context.Background(), Scope{})
	require.NoError(t, err)
	assert.Len(t, records, 1)

	close(gate.release)

	first := <-done
	assert.ErrorIs(t, first.err, ErrSuperseded)
	assert.Nil(t, first.records)
}
