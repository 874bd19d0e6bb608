// Package reconcile decides, per uploaded row, whether a matching company
// already exists in the enrichment store, and merges match metadata back
// into the table rows.
package reconcile

import (
	"context"

	"go.uber.org/zap"

	"github.com/overviewer/sheetscan/internal/model"
)

// Matcher is the batched remote matching call. Implementations apply the
// 2-of-3 field voting rule over records created within the match window.
type Matcher interface {
	Match(ctx context.Context, identities []model.CompanyIdentity) ([]model.MatchResult, error)
}

// Outcome is the result of reconciling one batch. Results is keyed by
// OriginalIndex so callers never rely on response ordering. Degraded is
// set when the batch call itself failed and every identity fell back to
// "no match found".
type Outcome struct {
	Results  map[int]model.MatchResult
	Degraded bool
	Warning  string
}

// Reconciler runs the batched match call with degradation on failure.
type Reconciler struct {
	matcher Matcher
}

// New creates a Reconciler.
func New(m Matcher) *Reconciler {
	return &Reconciler{matcher: m}
}

// Reconcile issues one batched match call for all identities. A failure of
// the whole call is not fatal: the outcome degrades to "no matches", a
// warning is recorded exactly once, and processing continues with every
// row left to process.
func (r *Reconciler) Reconcile(ctx context.Context, identities []model.CompanyIdentity) *Outcome {
	out := &Outcome{Results: make(map[int]model.MatchResult, len(identities))}

	results, err := r.matcher.Match(ctx, identities)
	if err != nil {
		zap.L().Warn("reconcile: match service unavailable, continuing without matches", zap.Error(err))
		out.Degraded = true
		out.Warning = "match lookup unavailable; all rows treated as new"
		for _, id := range identities {
			out.Results[id.OriginalIndex] = model.MatchResult{OriginalIndex: id.OriginalIndex}
		}
		return out
	}

	for _, res := range results {
		out.Results[res.OriginalIndex] = res
	}
	// Identities the service did not answer for degrade individually.
	for _, id := range identities {
		if _, ok := out.Results[id.OriginalIndex]; !ok {
			out.Results[id.OriginalIndex] = model.MatchResult{OriginalIndex: id.OriginalIndex}
		}
	}

	return out
}

// Apply merges an outcome into table rows, returning a new slice: matched
// rows become Fetched and acquire the persisted metadata; everything else
// stays to-process. Rows are replaced wholesale, never mutated in place.
func Apply(rows []model.TableRow, out *Outcome) []model.TableRow {
	next := make([]model.TableRow, len(rows))
	copy(next, rows)

	for i := range next {
		res, ok := out.Results[next[i].ID]
		if !ok || !res.Matched {
			continue
		}
		next[i].Status = model.StatusFetched
		if res.Metadata != nil {
			next[i].Summary = res.Metadata.Summary
			next[i].IndependenceCriteria = res.Metadata.IndependenceCriteria
			next[i].InsufficientInformation = res.Metadata.InsufficientInformation
		}
	}

	return next
}
