package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/overviewer/sheetscan/internal/model"
	"github.com/overviewer/sheetscan/internal/normalize"
)

// matchVotesRequired is the voting rule: a candidate counts as an existing
// match only when at least 2 of the 3 identity fields are present on the
// query and equal (case-normalized) on the persisted record.
const matchVotesRequired = 2

// Matcher answers batched match queries against the store, restricted to
// records created within the match window.
type Matcher struct {
	store        Store
	windowMonths int
	now          func() time.Time
}

// NewMatcher creates a Matcher. windowMonths bounds candidate age; records
// older than that never match.
func NewMatcher(s Store, windowMonths int) *Matcher {
	return &Matcher{
		store:        s,
		windowMonths: windowMonths,
		now:          time.Now,
	}
}

// Match resolves every identity in the batch. Results correlate to input
// via OriginalIndex, never position. A single identity's lookup failure is
// recorded on its result and does not abort the batch; Match returns an
// error only when every attempted lookup failed, which callers treat as
// the whole batch call failing.
func (m *Matcher) Match(ctx context.Context, identities []model.CompanyIdentity) ([]model.MatchResult, error) {
	since := m.now().AddDate(0, -m.windowMonths, 0)
	results := make([]model.MatchResult, 0, len(identities))

	attempted, failed := 0, 0
	var firstErr error

	for _, id := range identities {
		result := model.MatchResult{OriginalIndex: id.OriginalIndex}

		// Zero usable fields yields no match, by construction.
		if id.Empty() {
			results = append(results, result)
			continue
		}

		attempted++
		candidates, err := m.store.FindCandidates(ctx, id, since)
		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			result.Error = err.Error()
			zap.L().Warn("store: candidate lookup failed",
				zap.Int("original_index", id.OriginalIndex),
				zap.Error(err),
			)
			results = append(results, result)
			continue
		}

		// First qualifying candidate wins; the store does not guarantee
		// which when several qualify.
		for i := range candidates {
			if countVotes(id, &candidates[i]) >= matchVotesRequired {
				result.Matched = true
				result.Metadata = candidates[i].Metadata()
				break
			}
		}

		results = append(results, result)
	}

	if attempted > 0 && failed == attempted {
		return nil, eris.Wrap(firstErr, "store: match batch failed")
	}

	return results, nil
}

// countVotes tallies identity fields that are present on the query and
// equal, case-normalized, on the candidate.
func countVotes(q model.CompanyIdentity, c *EnrichedCompany) int {
	votes := 0
	if q.CompanyName != "" && normalize.Key(q.CompanyName) == c.NormalizedName {
		votes++
	}
	if q.Country != "" && normalize.Key(q.Country) == c.NormalizedCountry {
		votes++
	}
	if q.Website != "" && normalize.Key(q.Website) == c.NormalizedWebsite {
		votes++
	}
	return votes
}
