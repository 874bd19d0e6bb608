package scrape

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/overviewer/sheetscan/internal/retry"
	"github.com/overviewer/sheetscan/pkg/jina"
)

// circuitBreaker tracks consecutive failures to skip a flaky upstream.
type circuitBreaker struct {
	mu          sync.Mutex
	failures    int
	lastFailure time.Time
	openUntil   time.Time
	threshold   int           // consecutive failures to trip
	window      time.Duration // failures must occur within this window
	cooldown    time.Duration // how long the circuit stays open
}

func newCircuitBreaker(threshold int, window, cooldown time.Duration) *circuitBreaker {
	return &circuitBreaker{
		threshold: threshold,
		window:    window,
		cooldown:  cooldown,
	}
}

func (cb *circuitBreaker) isOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return time.Now().Before(cb.openUntil)
}

func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	now := time.Now()
	if now.Sub(cb.lastFailure) > cb.window {
		cb.failures = 0
	}
	cb.failures++
	cb.lastFailure = now
	if cb.failures >= cb.threshold {
		cb.openUntil = now.Add(cb.cooldown)
		zap.L().Warn("scrape: reader circuit breaker opened",
			zap.Int("failures", cb.failures),
			zap.Duration("cooldown", cb.cooldown),
		)
	}
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
}

// ReaderScraper is the rendering tier: it fetches pages through the Jina
// Reader service, which executes JavaScript before extracting content.
// Used behind the static tier for sites whose static HTML carries nothing.
// A circuit breaker skips the upstream after 3 consecutive failures within
// 30s, for 60s.
type ReaderScraper struct {
	client           jina.Client
	minContentLength int
	breaker          *circuitBreaker
}

// NewReaderScraper creates a ReaderScraper.
func NewReaderScraper(client jina.Client, minContentLength int) *ReaderScraper {
	if minContentLength <= 0 {
		minContentLength = 300
	}
	return &ReaderScraper{
		client:           client,
		minContentLength: minContentLength,
		breaker:          newCircuitBreaker(3, 30*time.Second, 60*time.Second),
	}
}

// Scrape fetches targetURL through the reader service. Upstream failures
// are encoded in the Result status like every other tier; the error return
// is reserved for context cancellation.
func (r *ReaderScraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	if r.breaker.isOpen() {
		return &Result{
			Status:    StatusFailedFetch,
			SourceURL: targetURL,
			Message:   "reader circuit breaker open",
		}, nil
	}

	resp, err := retry.Do(ctx, retry.Config{Operation: "reader_scrape"},
		func(ctx context.Context) (*jina.ReadResponse, error) {
			return r.client.Read(ctx, targetURL)
		})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, eris.Wrap(ctxErr, "scrape: cancelled")
	}
	if err != nil {
		r.breaker.recordFailure()
		return &Result{Status: StatusFailedFetch, SourceURL: targetURL, Message: err.Error()}, nil
	}

	if resp.Code != 0 && resp.Code != 200 {
		r.breaker.recordFailure()
		return &Result{
			Status:    StatusFailedFetch,
			SourceURL: targetURL,
			Message:   "reader returned non-ok code",
		}, nil
	}

	content := collapseWhitespace(resp.Data.Content)
	if blockedContent(content) {
		r.breaker.recordFailure()
		return &Result{
			Status:    StatusFailedFetch,
			SourceURL: targetURL,
			Message:   "rendered page is an anti-bot challenge",
		}, nil
	}

	r.breaker.recordSuccess()

	if len(content) < r.minContentLength {
		return &Result{
			Status:    StatusTooShort,
			SourceURL: targetURL,
			Message:   "rendered content shorter than the minimum length",
		}, nil
	}

	sourceURL := resp.Data.URL
	if sourceURL == "" {
		sourceURL = targetURL
	}
	return &Result{Status: StatusSuccess, Content: content, SourceURL: sourceURL}, nil
}

// blockedContent checks rendered text for challenge-page signatures that
// survive rendering.
func blockedContent(content string) bool {
	lower := strings.ToLower(content)
	signatures := []string{
		"checking your browser",
		"enable javascript",
		"please enable cookies",
		"access denied",
		"403 forbidden",
		"just a moment",
		"attention required",
	}
	for _, sig := range signatures {
		if strings.Contains(lower, sig) && len(content) < 1000 {
			return true
		}
	}
	return false
}
