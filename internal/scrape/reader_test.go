package scrape

import (
	"context"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overviewer/sheetscan/pkg/jina"
)

type fakeReader struct {
	resp  *jina.ReadResponse
	err   error
	calls int
}

func (f *fakeReader) Read(_ context.Context, _ string) (*jina.ReadResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func renderedResponse(content string) *jina.ReadResponse {
	return &jina.ReadResponse{
		Code: 200,
		Data: jina.ReadData{URL: "https://acme.example", Content: content},
	}
}

func TestReaderScrape_Success(t *testing.T) {
	f := &fakeReader{resp: renderedResponse(longText(10))}
	r := NewReaderScraper(f, 50)

	res, err := r.Scrape(context.Background(), "https://acme.example")
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Contains(t, res.Content, "Acme builds widgets.")
	assert.Equal(t, "https://acme.example", res.SourceURL)
}

func TestReaderScrape_TooShort(t *testing.T) {
	f := &fakeReader{resp: renderedResponse("tiny")}
	r := NewReaderScraper(f, 50)

	res, err := r.Scrape(context.Background(), "https://acme.example")
	require.NoError(t, err)
	assert.Equal(t, StatusTooShort, res.Status)
}

func TestReaderScrape_ChallengePageIsFetchFailure(t *testing.T) {
	f := &fakeReader{resp: renderedResponse("Just a moment while we are checking your browser")}
	r := NewReaderScraper(f, 50)

	res, err := r.Scrape(context.Background(), "https://acme.example")
	require.NoError(t, err)
	assert.Equal(t, StatusFailedFetch, res.Status)
}

func TestReaderScrape_UpstreamErrorIsFetchFailure(t *testing.T) {
	f := &fakeReader{err: eris.New("jina: unexpected status 402")}
	r := NewReaderScraper(f, 50)

	res, err := r.Scrape(context.Background(), "https://acme.example")
	require.NoError(t, err)
	assert.Equal(t, StatusFailedFetch, res.Status)
	assert.Contains(t, res.Message, "402")
}

func TestReaderScrape_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	f := &fakeReader{err: eris.New("upstream broke")}
	r := NewReaderScraper(f, 50)

	for range 3 {
		res, err := r.Scrape(context.Background(), "https://acme.example")
		require.NoError(t, err)
		assert.Equal(t, StatusFailedFetch, res.Status)
	}
	callsBefore := f.calls

	res, err := r.Scrape(context.Background(), "https://acme.example")
	require.NoError(t, err)
	assert.Equal(t, StatusFailedFetch, res.Status)
	assert.True(t, strings.Contains(res.Message, "circuit breaker"))
	assert.Equal(t, callsBefore, f.calls)
}
