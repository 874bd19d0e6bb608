package scrape

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const userAgent = "Mozilla/5.0 (compatible; SheetscanBot/1.0)"

// nonContentSelectors are stripped before text extraction: chrome, embedded
// media, forms, and the usual ad/cookie/share noise.
const nonContentSelectors = "script, style, noscript, iframe, svg, canvas, video, audio, embed, object, " +
	"nav, footer, header, aside, form, button, input, textarea, select, option, label, " +
	"[aria-hidden=\"true\"], [hidden]"

// subpageKeywords mark paths likely to describe the company itself.
var subpageKeywords = []string{
	"/about", "/company", "/who-we-are", "/story", "/mission",
	"/vision", "/profile", "/organization",
}

var skippedExtensions = []string{".pdf", ".jpg", ".jpeg", ".png", ".gif", ".zip", ".mp4"}

// Options configures a SiteScraper.
type Options struct {
	Timeout          time.Duration // per-request; default 15s
	MinContentLength int           // default 300
	MaxSubpages      int           // default 2
	RequestsPerHost  float64       // sustained requests/sec per host; default 2
}

// SiteScraper fetches a company homepage, falls back to about-style
// subpages when the homepage text is too thin, and returns cleaned plain
// text. Requests are rate limited per host.
type SiteScraper struct {
	client *http.Client
	opts   Options

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewSiteScraper creates a SiteScraper with sensible defaults.
func NewSiteScraper(opts Options) *SiteScraper {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MinContentLength <= 0 {
		opts.MinContentLength = 300
	}
	if opts.MaxSubpages <= 0 {
		opts.MaxSubpages = 2
	}
	if opts.RequestsPerHost <= 0 {
		opts.RequestsPerHost = 2
	}

	return &SiteScraper{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Scrape fetches targetURL and, when the homepage text is below the
// minimum content length, up to MaxSubpages relevant subpages. The first
// page with enough text wins. Scrape never returns a Go error for page
// failures; those are encoded in the Result status. The error return is
// reserved for context cancellation.
func (s *SiteScraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	log := zap.L().With(zap.String("url", targetURL))

	mainPage, err := s.fetchPage(ctx, targetURL)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, eris.Wrap(ctxErr, "scrape: cancelled")
	}
	if err != nil {
		log.Debug("scrape: homepage fetch failed", zap.Error(err))
		return &Result{Status: StatusFailedFetch, SourceURL: targetURL, Message: err.Error()}, nil
	}

	if len(mainPage.text) >= s.opts.MinContentLength {
		return &Result{Status: StatusSuccess, Content: mainPage.text, SourceURL: targetURL}, nil
	}

	best := mainPage.text
	bestURL := targetURL

	for _, sub := range s.relevantSubpages(targetURL, mainPage.doc) {
		page, err := s.fetchPage(ctx, sub)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, eris.Wrap(ctxErr, "scrape: cancelled")
		}
		if err != nil {
			log.Debug("scrape: subpage fetch failed", zap.String("subpage", sub), zap.Error(err))
			continue
		}
		if len(page.text) >= s.opts.MinContentLength {
			return &Result{Status: StatusSuccess, Content: page.text, SourceURL: sub}, nil
		}
		if len(page.text) > len(best) {
			best, bestURL = page.text, sub
		}
	}

	if best != "" {
		return &Result{
			Status:    StatusTooShort,
			SourceURL: bestURL,
			Message:   "best content found was shorter than the minimum length",
		}, nil
	}

	return &Result{
		Status:    StatusNotFound,
		SourceURL: targetURL,
		Message:   "no usable content found on the site or its subpages",
	}, nil
}

type fetchedPage struct {
	doc  *goquery.Document
	text string
}

func (s *SiteScraper) fetchPage(ctx context.Context, pageURL string) (*fetchedPage, error) {
	if err := s.limiter(pageURL).Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "scrape: rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "scrape: create request")
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "scrape: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, eris.Wrap(err, "scrape: read body")
	}

	if blocked, kind := detectBlock(resp, body); blocked {
		return nil, eris.Errorf("scrape: blocked by anti-bot protection (%s)", kind)
	}

	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("scrape: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "scrape: parse html")
	}

	doc.Find(nonContentSelectors).Remove()
	return &fetchedPage{doc: doc, text: collapseWhitespace(doc.Text())}, nil
}

// relevantSubpages extracts same-host links whose path or anchor text
// suggests an about/company page, shortest paths first, capped at
// MaxSubpages.
func (s *SiteScraper) relevantSubpages(baseURL string, doc *goquery.Document) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	seen := map[string]bool{baseURL: true}
	var links []string

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(strings.SplitN(href, "#", 2)[0])
		if href == "" {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		full := base.ResolveReference(ref)
		if full.Host != base.Host {
			return
		}

		lowerPath := strings.ToLower(full.Path)
		for _, ext := range skippedExtensions {
			if strings.HasSuffix(lowerPath, ext) {
				return
			}
		}

		if !matchesKeyword(lowerPath, strings.ToLower(a.Text())) {
			return
		}

		u := full.String()
		if !seen[u] {
			seen[u] = true
			links = append(links, u)
		}
	})

	// Shorter paths are usually the primary about page.
	sort.Slice(links, func(i, j int) bool { return len(links[i]) < len(links[j]) })
	if len(links) > s.opts.MaxSubpages {
		links = links[:s.opts.MaxSubpages]
	}
	return links
}

func matchesKeyword(path, anchorText string) bool {
	for _, kw := range subpageKeywords {
		if strings.Contains(path, kw) {
			return true
		}
		text := strings.ReplaceAll(strings.TrimPrefix(kw, "/"), "-", " ")
		if strings.Contains(anchorText, text) {
			return true
		}
	}
	return false
}

func (s *SiteScraper) limiter(pageURL string) *rate.Limiter {
	host := ""
	if u, err := url.Parse(pageURL); err == nil {
		host = u.Host
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(s.opts.RequestsPerHost), 2)
		s.limiters[host] = l
	}
	return l
}

var whitespaceRe = regexp.MustCompile(`[ \t]+`)
var newlineRe = regexp.MustCompile(`\n\s*\n+`)

// collapseWhitespace normalizes extracted text: runs of spaces become one
// space, blank-line runs become a single blank line.
func collapseWhitespace(text string) string {
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = newlineRe.ReplaceAllString(text, "\n\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
