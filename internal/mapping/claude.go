package mapping

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/overviewer/sheetscan/internal/model"
	"github.com/overviewer/sheetscan/internal/retry"
	"github.com/overviewer/sheetscan/pkg/anthropic"
)

const mapperSystemPrompt = `You map spreadsheet column headers to semantic fields.
Given a list of headers, decide which header (if any) contains the company name,
which contains the country, and which contains the company website.
Respond with a single JSON object of the form
{"companyName": "...", "country": "...", "website": "..."}.
Each value must be one of the given headers, copied exactly, or an empty string
if no header fits. Respond with JSON only, no prose.`

// ClaudeMapper infers the header mapping with a single model call per file.
type ClaudeMapper struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewClaudeMapper creates a ClaudeMapper.
func NewClaudeMapper(client anthropic.Client, modelID string, maxTokens int64) *ClaudeMapper {
	return &ClaudeMapper{client: client, model: modelID, maxTokens: maxTokens}
}

// MapHeaders asks the model for the mapping and validates the answer:
// any returned value that is not one of the input headers is cleared.
func (m *ClaudeMapper) MapHeaders(ctx context.Context, headers []string) (model.HeaderMapping, error) {
	payload, err := json.Marshal(headers)
	if err != nil {
		return model.HeaderMapping{}, eris.Wrap(err, "mapping: marshal headers")
	}

	resp, err := retry.Do(ctx, retry.Config{Operation: "map_headers"},
		func(ctx context.Context) (*anthropic.MessageResponse, error) {
			return m.client.CreateMessage(ctx, anthropic.MessageRequest{
				Model:     m.model,
				MaxTokens: m.maxTokens,
				System:    mapperSystemPrompt,
				Messages: []anthropic.Message{
					{Role: "user", Content: "Headers: " + string(payload)},
				},
			})
		})
	if err != nil {
		return model.HeaderMapping{}, eris.Wrap(err, "mapping: create message")
	}
	resp.Usage.Log(m.model, "map_headers")

	var mapping model.HeaderMapping
	if err := json.Unmarshal([]byte(extractJSON(resp.Text)), &mapping); err != nil {
		return model.HeaderMapping{}, eris.Wrap(err, "mapping: parse response")
	}

	known := make(map[string]bool, len(headers))
	for _, h := range headers {
		known[h] = true
	}
	if !known[mapping.CompanyName] {
		mapping.CompanyName = ""
	}
	if !known[mapping.Country] {
		mapping.Country = ""
	}
	if !known[mapping.Website] {
		mapping.Website = ""
	}

	return mapping, nil
}

// extractJSON strips markdown code fences and surrounding prose, returning
// the first top-level JSON object in the text.
func extractJSON(text string) string {
	s := strings.TrimSpace(text)
	if i := strings.Index(s, "{"); i >= 0 {
		if j := strings.LastIndex(s, "}"); j > i {
			return s[i : j+1]
		}
	}
	return s
}
