package enrich

import (
	"context"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/overviewer/sheetscan/internal/model"
	"github.com/overviewer/sheetscan/internal/scrape"
	"github.com/overviewer/sheetscan/internal/summarize"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type stubScraper struct {
	failFor map[string]bool
}

func (s *stubScraper) Scrape(_ context.Context, url string) (*scrape.Result, error) {
	if s.failFor[url] {
		return &scrape.Result{Status: scrape.StatusFailedFetch, SourceURL: url, Message: "unreachable"}, nil
	}
	return &scrape.Result{Status: scrape.StatusSuccess, Content: "content for " + url, SourceURL: url}, nil
}

type stubSummarizer struct {
	err error
}

func (s *stubSummarizer) Summarize(_ context.Context, content string) (*summarize.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &summarize.Result{
		Summary:                 "summary of " + content,
		IndependenceCriteria:    "independent",
		InsufficientInformation: "No",
	}, nil
}

type stubPersister struct {
	mu    sync.Mutex
	saved []string
	err   error
}

func (p *stubPersister) Persist(_ context.Context, companyName, _, _ string, _ model.EnrichmentMetadata) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved = append(p.saved, companyName)
	return p.err
}

func row(id int, name, website string) model.TableRow {
	return model.TableRow{
		ID:     id,
		Status: model.StatusToProcess,
		Identity: model.CompanyIdentity{
			OriginalIndex: id,
			CompanyName:   name,
			Website:       website,
		},
	}
}

func TestEnrich_SuccessAndFailureMix(t *testing.T) {
	scraper := &stubScraper{failFor: map[string]bool{"https://b.example": true}}
	persister := &stubPersister{}
	o := New(scraper, &stubSummarizer{}, persister, 2)

	rows := []model.TableRow{
		row(0, "A", "https://a.example"),
		row(1, "B", "https://b.example"),
		row(2, "C", "https://c.example"),
	}

	out, report, err := o.Enrich(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 1, report.ErrorCount())

	assert.Equal(t, model.StatusFetched, out[0].Status)
	assert.Equal(t, model.StatusToProcess, out[1].Status)
	assert.Empty(t, out[1].Summary)
	assert.Equal(t, model.StatusFetched, out[2].Status)
	assert.Contains(t, out[0].Summary, "a.example")

	assert.ElementsMatch(t, []string{"A", "C"}, persister.saved)
}

func TestEnrich_MissingWebsiteSkips(t *testing.T) {
	persister := &stubPersister{}
	o := New(&stubScraper{}, &stubSummarizer{}, persister, 2)

	out, report, err := o.Enrich(context.Background(), []model.TableRow{row(0, "A", "")})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Succeeded)
	assert.Equal(t, model.StatusToProcess, out[0].Status)
	assert.Empty(t, persister.saved)
}

func TestEnrich_IneligibleRowsUntouched(t *testing.T) {
	o := New(&stubScraper{}, &stubSummarizer{}, &stubPersister{}, 2)

	errored := row(0, "A", "https://a.example")
	errored.HasError = true
	fetched := row(1, "B", "https://b.example")
	fetched.Status = model.StatusFetched
	fetched.Summary = "already known"

	out, report, err := o.Enrich(context.Background(), []model.TableRow{errored, fetched})
	require.NoError(t, err)

	assert.Equal(t, Report{}, report)
	assert.Equal(t, errored, out[0])
	assert.Equal(t, fetched, out[1])
}

func TestEnrich_SummarizeFailureFailsRow(t *testing.T) {
	o := New(&stubScraper{}, &stubSummarizer{err: eris.New("overloaded")}, &stubPersister{}, 2)

	out, report, err := o.Enrich(context.Background(), []model.TableRow{row(0, "A", "https://a.example")})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, model.StatusToProcess, out[0].Status)
}

func TestEnrich_PersistFailureKeepsRowFetched(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	persister := &stubPersister{err: eris.New("store down")}
	o := New(&stubScraper{}, &stubSummarizer{}, persister, 2)

	out, report, err := o.Enrich(context.Background(), []model.TableRow{row(0, "A", "https://a.example")})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, model.StatusFetched, out[0].Status)
	assert.NotEmpty(t, out[0].Summary)

	// Logged at error level with the row identity and failing step.
	entries := logs.FilterMessageSnippet("persist failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.ErrorLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "persist", fields["step"])
	assert.Equal(t, "A", fields["company"])
	assert.EqualValues(t, 0, fields["row"])
}

func TestEnrich_DoesNotMutateInput(t *testing.T) {
	o := New(&stubScraper{}, &stubSummarizer{}, &stubPersister{}, 2)

	src := []model.TableRow{row(0, "A", "https://a.example")}
	_, _, err := o.Enrich(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, model.StatusToProcess, src[0].Status)
	assert.Empty(t, src[0].Summary)
}
