package reconcile

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/overviewer/sheetscan/internal/model"
)

type stubMatcher struct {
	results []model.MatchResult
	err     error
	calls   int
}

func (m *stubMatcher) Match(_ context.Context, _ []model.CompanyIdentity) ([]model.MatchResult, error) {
	m.calls++
	return m.results, m.err
}

func identities(n int) []model.CompanyIdentity {
	ids := make([]model.CompanyIdentity, n)
	for i := range ids {
		ids[i] = model.CompanyIdentity{OriginalIndex: i, CompanyName: "co"}
	}
	return ids
}

func TestReconcile_CorrelatesByOriginalIndexNotOrder(t *testing.T) {
	m := &stubMatcher{results: []model.MatchResult{
		// Deliberately out of order relative to the request.
		{OriginalIndex: 2, Matched: true, Metadata: &model.EnrichmentMetadata{Summary: "two"}},
		{OriginalIndex: 0, Matched: false},
		{OriginalIndex: 1, Matched: true, Metadata: &model.EnrichmentMetadata{Summary: "one"}},
	}}
	r := New(m)

	out := r.Reconcile(context.Background(), identities(3))
	require.False(t, out.Degraded)
	assert.True(t, out.Results[1].Matched)
	assert.Equal(t, "two", out.Results[2].Metadata.Summary)
	assert.False(t, out.Results[0].Matched)
}

func TestReconcile_BatchFailureDegrades(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	m := &stubMatcher{err: eris.New("service unreachable")}
	r := New(m)

	out := r.Reconcile(context.Background(), identities(4))
	assert.True(t, out.Degraded)
	assert.NotEmpty(t, out.Warning)
	require.Len(t, out.Results, 4)
	for _, res := range out.Results {
		assert.False(t, res.Matched)
	}
	// Warning emitted exactly once for the whole batch.
	assert.Equal(t, 1, logs.FilterMessageSnippet("match service unavailable").Len())
}

func TestReconcile_MissingResultsDegradeIndividually(t *testing.T) {
	m := &stubMatcher{results: []model.MatchResult{
		{OriginalIndex: 0, Matched: true, Metadata: &model.EnrichmentMetadata{Summary: "s"}},
	}}
	r := New(m)

	out := r.Reconcile(context.Background(), identities(2))
	assert.True(t, out.Results[0].Matched)
	res, ok := out.Results[1]
	require.True(t, ok)
	assert.False(t, res.Matched)
}

func rowsForTest(n int) []model.TableRow {
	rows := make([]model.TableRow, n)
	for i := range rows {
		rows[i] = model.TableRow{ID: i, Status: model.StatusToProcess}
	}
	return rows
}

func TestApply_MatchedRowsBecomeFetched(t *testing.T) {
	out := &Outcome{Results: map[int]model.MatchResult{
		0: {OriginalIndex: 0, Matched: true, Metadata: &model.EnrichmentMetadata{
			Summary:              "known co",
			IndependenceCriteria: "independent",
		}},
		1: {OriginalIndex: 1},
	}}

	rows := Apply(rowsForTest(2), out)
	assert.Equal(t, model.StatusFetched, rows[0].Status)
	assert.Equal(t, "known co", rows[0].Summary)
	assert.Equal(t, "independent", rows[0].IndependenceCriteria)
	assert.Equal(t, model.StatusToProcess, rows[1].Status)
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	src := rowsForTest(1)
	out := &Outcome{Results: map[int]model.MatchResult{
		0: {OriginalIndex: 0, Matched: true},
	}}

	_ = Apply(src, out)
	assert.Equal(t, model.StatusToProcess, src[0].Status)
}

func TestReconcile_CallsMatcherOnce(t *testing.T) {
	m := &stubMatcher{}
	r := New(m)
	_ = r.Reconcile(context.Background(), identities(5))
	assert.Equal(t, 1, m.calls)
}
