package scrape

import (
	"context"

	"go.uber.org/zap"
)

// Chain tries scrape tiers in priority order: the first tier that produces
// usable content wins. When every tier falls short, the most informative
// failure is returned, preferring thin-content outcomes over fetch
// failures so callers see that the site exists but says nothing.
type Chain struct {
	tiers []Scraper
}

// NewChain creates a Chain over the given tiers, tried in order.
func NewChain(tiers ...Scraper) *Chain {
	return &Chain{tiers: tiers}
}

// Scrape runs the tiers against targetURL until one succeeds. Tier
// failures are encoded in the Result; the error return is reserved for
// context cancellation.
func (c *Chain) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	var last *Result

	for _, tier := range c.tiers {
		res, err := tier.Scrape(ctx, targetURL)
		if err != nil {
			return nil, err
		}
		if res.OK() {
			return res, nil
		}

		zap.L().Debug("scrape: tier fell through",
			zap.String("url", targetURL),
			zap.String("status", string(res.Status)),
			zap.String("detail", res.Message),
		)
		last = preferFailure(last, res)
	}

	if last == nil {
		return &Result{
			Status:    StatusNotFound,
			SourceURL: targetURL,
			Message:   "no scrape tier configured",
		}, nil
	}
	return last, nil
}

// failureRank orders failure statuses by how much they reveal about the
// site. Higher ranks win.
func failureRank(s Status) int {
	switch s {
	case StatusTooShort:
		return 3
	case StatusNotFound:
		return 2
	case StatusFailedParse:
		return 1
	default: // StatusFailedFetch
		return 0
	}
}

func preferFailure(a, b *Result) *Result {
	if a == nil {
		return b
	}
	if failureRank(b.Status) >= failureRank(a.Status) {
		return b
	}
	return a
}
