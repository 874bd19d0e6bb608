// Package summarize turns scraped website text into a structured business
// summary via a single model call per company.
package summarize

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/overviewer/sheetscan/internal/retry"
	"github.com/overviewer/sheetscan/pkg/anthropic"
)

// InsufficientSummary is the fixed sentinel summary used when the content
// did not support a real summary.
const InsufficientSummary = "Insufficient information to summarize this company."

// InsufficientMarker is the affirmative insufficient-information value.
const InsufficientMarker = "Yes"

// maxContentChars bounds the scraped text passed to the model.
const maxContentChars = 24_000

// Result is the summarization output attached to a row.
type Result struct {
	Summary                 string `json:"summary"`
	IndependenceCriteria    string `json:"independenceCriteria"`
	InsufficientInformation string `json:"insufficientInformation"`
}

// Summarizer produces a business summary from scraped content.
type Summarizer interface {
	Summarize(ctx context.Context, content string) (*Result, error)
}

const summarizeSystemPrompt = `You analyze the text of a company website.
Respond with a single JSON object:
{
  "summary": "2-4 sentence summary of what the company does",
  "independenceCriteria": "evidence the company is or is not an independent business, or empty",
  "insufficientInformation": "Yes if the text does not describe the company's business, otherwise No"
}
Respond with JSON only, no prose.`

// ClaudeSummarizer implements Summarizer with the Anthropic API.
type ClaudeSummarizer struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewClaudeSummarizer creates a ClaudeSummarizer.
func NewClaudeSummarizer(client anthropic.Client, modelID string, maxTokens int64) *ClaudeSummarizer {
	return &ClaudeSummarizer{client: client, model: modelID, maxTokens: maxTokens}
}

// Summarize runs one model call over the content. When the model reports
// the content is unusable, or returns no summary at all, the result is
// reconciled here: the summary becomes the fixed sentinel and
// insufficientInformation is forced affirmative, whatever the model said.
func (s *ClaudeSummarizer) Summarize(ctx context.Context, content string) (*Result, error) {
	if strings.TrimSpace(content) == "" {
		return nil, eris.New("summarize: empty content")
	}
	content = truncate(content, maxContentChars)

	resp, err := retry.Do(ctx, retry.Config{Operation: "summarize"},
		func(ctx context.Context) (*anthropic.MessageResponse, error) {
			return s.client.CreateMessage(ctx, anthropic.MessageRequest{
				Model:     s.model,
				MaxTokens: s.maxTokens,
				System:    summarizeSystemPrompt,
				Messages: []anthropic.Message{
					{Role: "user", Content: "Website text:\n\n" + content},
				},
			})
		})
	if err != nil {
		return nil, eris.Wrap(err, "summarize: create message")
	}
	resp.Usage.Log(s.model, "summarize")

	var res Result
	if err := json.Unmarshal([]byte(extractJSON(resp.Text)), &res); err != nil {
		return nil, eris.Wrap(err, "summarize: parse response")
	}

	if strings.TrimSpace(res.Summary) == "" || isAffirmative(res.InsufficientInformation) {
		res.Summary = InsufficientSummary
		res.InsufficientInformation = InsufficientMarker
	}

	return &res, nil
}

// truncate cuts s to at most max bytes without splitting a UTF-8 rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func isAffirmative(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "y":
		return true
	}
	return false
}

// extractJSON strips code fences and prose around the first top-level
// JSON object.
func extractJSON(text string) string {
	s := strings.TrimSpace(text)
	if i := strings.Index(s, "{"); i >= 0 {
		if j := strings.LastIndex(s, "}"); j > i {
			return s[i : j+1]
		}
	}
	return s
}
