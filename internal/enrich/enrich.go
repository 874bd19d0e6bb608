// Package enrich runs the scrape, summarize, persist pipeline over the
// rows that reconciliation left unmatched.
package enrich

import (
	"context"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/overviewer/sheetscan/internal/model"
	"github.com/overviewer/sheetscan/internal/scrape"
	"github.com/overviewer/sheetscan/internal/summarize"
)

// Persister saves a freshly enriched company for future lookups.
type Persister interface {
	Persist(ctx context.Context, companyName, country, website string, meta model.EnrichmentMetadata) error
}

// Report aggregates the outcome of one enrichment run. Skipped rows had no
// website to fetch; failed rows had one but scraping or summarization did
// not produce a result.
type Report struct {
	Succeeded int
	Skipped   int
	Failed    int
}

// ErrorCount is the number of rows that did not reach fetched status.
func (r Report) ErrorCount() int {
	return r.Skipped + r.Failed
}

// Orchestrator drives the enrichment pipeline with bounded concurrency.
type Orchestrator struct {
	scraper    scrape.Scraper
	summarizer summarize.Summarizer
	persister  Persister
	maxRows    int
}

// New creates an Orchestrator. maxRows bounds how many rows are in flight
// at once.
func New(scraper scrape.Scraper, summarizer summarize.Summarizer, persister Persister, maxRows int) *Orchestrator {
	if maxRows <= 0 {
		maxRows = 5
	}
	return &Orchestrator{scraper: scraper, summarizer: summarizer, persister: persister, maxRows: maxRows}
}

// Enrich processes every eligible row and returns a new slice with the
// results applied in place of the originals. Rows that are not eligible
// pass through untouched. A row failure never aborts the run; the error
// return is reserved for context cancellation.
func (o *Orchestrator) Enrich(ctx context.Context, rows []model.TableRow) ([]model.TableRow, Report, error) {
	out := make([]model.TableRow, len(rows))
	copy(out, rows)

	var succeeded, skipped, failed atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.maxRows)

	for i := range out {
		if !out[i].Eligible() {
			continue
		}

		g.Go(func() error {
			row, outcome := o.enrichRow(ctx, out[i])
			switch outcome {
			case rowSucceeded:
				succeeded.Add(1)
			case rowSkipped:
				skipped.Add(1)
			case rowFailed:
				failed.Add(1)
			}
			out[i] = row
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, Report{}, eris.Wrap(err, "enrich: wait")
	}
	if err := ctx.Err(); err != nil {
		return nil, Report{}, eris.Wrap(err, "enrich: cancelled")
	}

	report := Report{
		Succeeded: int(succeeded.Load()),
		Skipped:   int(skipped.Load()),
		Failed:    int(failed.Load()),
	}
	zap.L().Info("enrich: run complete",
		zap.Int("succeeded", report.Succeeded),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))

	return out, report, nil
}

type rowOutcome int

const (
	rowSucceeded rowOutcome = iota
	rowSkipped
	rowFailed
)

func (o *Orchestrator) enrichRow(ctx context.Context, row model.TableRow) (model.TableRow, rowOutcome) {
	log := zap.L().With(
		zap.Int("row", row.ID),
		zap.String("company", row.Identity.CompanyName))

	if row.Identity.Website == "" {
		log.Debug("enrich: no website, skipping row")
		return row, rowSkipped
	}

	res, err := o.scraper.Scrape(ctx, row.Identity.Website)
	if err != nil {
		log.Warn("enrich: scrape aborted", zap.Error(err))
		return row, rowFailed
	}
	if !res.OK() {
		log.Warn("enrich: scrape produced no content",
			zap.String("status", string(res.Status)),
			zap.String("detail", res.Message))
		return row, rowFailed
	}

	summary, err := o.summarizer.Summarize(ctx, res.Content)
	if err != nil {
		log.Warn("enrich: summarize failed", zap.Error(err))
		return row, rowFailed
	}

	row.Summary = summary.Summary
	row.IndependenceCriteria = summary.IndependenceCriteria
	row.InsufficientInformation = summary.InsufficientInformation
	row.Status = model.StatusFetched

	meta := model.EnrichmentMetadata{
		Summary:                 summary.Summary,
		IndependenceCriteria:    summary.IndependenceCriteria,
		InsufficientInformation: summary.InsufficientInformation,
	}
	if err := o.persister.Persist(ctx, row.Identity.CompanyName, row.Identity.Country, row.Identity.Website, meta); err != nil {
		// The row keeps its local result; only the shared store missed it.
		log.Error("enrich: persist failed", zap.String("step", "persist"), zap.Error(err))
	}

	return row, rowSucceeded
}
