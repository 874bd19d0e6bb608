package mapping

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/overviewer/sheetscan/pkg/anthropic"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestHeuristicMapper_Exact(t *testing.T) {
	m := NewHeuristicMapper()
	mapping, err := m.MapHeaders(context.Background(), []string{"Company Name", "Country", "Website", "Notes"})
	require.NoError(t, err)
	assert.Equal(t, "Company Name", mapping.CompanyName)
	assert.Equal(t, "Country", mapping.Country)
	assert.Equal(t, "Website", mapping.Website)
}

func TestHeuristicMapper_SeparatorsAndCase(t *testing.T) {
	m := NewHeuristicMapper()
	mapping, err := m.MapHeaders(context.Background(), []string{"company_name", "HQ-Country", "Company URL"})
	require.NoError(t, err)
	assert.Equal(t, "company_name", mapping.CompanyName)
	assert.Equal(t, "HQ-Country", mapping.Country)
	assert.Equal(t, "Company URL", mapping.Website)
}

func TestHeuristicMapper_Undetected(t *testing.T) {
	m := NewHeuristicMapper()
	mapping, err := m.MapHeaders(context.Background(), []string{"Revenue", "Employees"})
	require.NoError(t, err)
	assert.Empty(t, mapping.CompanyName)
	assert.Empty(t, mapping.Country)
	assert.Empty(t, mapping.Website)
}

func TestHeuristicMapper_NoDoubleAssign(t *testing.T) {
	m := NewHeuristicMapper()
	// "Name" could match companyName; it must not also be claimed by others.
	mapping, err := m.MapHeaders(context.Background(), []string{"Name"})
	require.NoError(t, err)
	assert.Equal(t, "Name", mapping.CompanyName)
	assert.Empty(t, mapping.Country)
	assert.Empty(t, mapping.Website)
}

// fakeClient returns a canned response or error.
type fakeClient struct {
	text string
	err  error
	last anthropic.MessageRequest
}

func (f *fakeClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &anthropic.MessageResponse{Text: f.text}, nil
}

func TestClaudeMapper_ParsesFencedJSON(t *testing.T) {
	client := &fakeClient{text: "```json\n{\"companyName\":\"Firm\",\"country\":\"Country\",\"website\":\"URL\"}\n```"}
	m := NewClaudeMapper(client, "claude-haiku-4-5-20251001", 512)

	mapping, err := m.MapHeaders(context.Background(), []string{"Firm", "Country", "URL"})
	require.NoError(t, err)
	assert.Equal(t, "Firm", mapping.CompanyName)
	assert.Equal(t, "URL", mapping.Website)
	assert.Contains(t, client.last.Messages[0].Content, `"Firm"`)
}

func TestClaudeMapper_ClearsUnknownHeaders(t *testing.T) {
	client := &fakeClient{text: `{"companyName":"Invented","country":"Country","website":""}`}
	m := NewClaudeMapper(client, "claude-haiku-4-5-20251001", 512)

	mapping, err := m.MapHeaders(context.Background(), []string{"Name", "Country"})
	require.NoError(t, err)
	assert.Empty(t, mapping.CompanyName)
	assert.Equal(t, "Country", mapping.Country)
}

func TestClaudeMapper_BadJSON(t *testing.T) {
	client := &fakeClient{text: "sorry, I cannot help with that"}
	m := NewClaudeMapper(client, "claude-haiku-4-5-20251001", 512)

	_, err := m.MapHeaders(context.Background(), []string{"Name"})
	assert.Error(t, err)
}

func TestWithFallback(t *testing.T) {
	failing := NewClaudeMapper(&fakeClient{err: eris.New("api down")}, "m", 512)
	m := WithFallback(failing, NewHeuristicMapper())

	mapping, err := m.MapHeaders(context.Background(), []string{"Company", "Country"})
	require.NoError(t, err)
	assert.Equal(t, "Company", mapping.CompanyName)
}
