package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overviewer/sheetscan/internal/model"
)

func TestNewEnrichedCompany_NormalizesFields(t *testing.T) {
	rec, err := NewEnrichedCompany("ACME Inc", "Germany", "WWW.Acme.de/", model.EnrichmentMetadata{
		Summary: "summary text",
	})
	require.NoError(t, err)
	assert.Equal(t, "acme inc", rec.NormalizedName)
	assert.Equal(t, "germany", rec.NormalizedCountry)
	assert.Equal(t, "https://www.acme.de", rec.Website)
	assert.Equal(t, "https://www.acme.de", rec.NormalizedWebsite)
	assert.Equal(t, "summary text", rec.Summary)
}

func TestNewEnrichedCompany_RejectsEmptyIdentity(t *testing.T) {
	_, err := NewEnrichedCompany("", "  ", "", model.EnrichmentMetadata{})
	assert.Error(t, err)
}

func TestNewEnrichedCompany_MalformedWebsiteDropped(t *testing.T) {
	rec, err := NewEnrichedCompany("Acme", "", "not a url", model.EnrichmentMetadata{})
	require.NoError(t, err)
	assert.Empty(t, rec.NormalizedWebsite)
	// Original text preserved for display, comparison key absent.
	assert.Equal(t, "not a url", rec.Website)
}

func TestPersister_SavesValidRecord(t *testing.T) {
	st := &stubStore{}
	p := NewPersister(st)

	err := p.Persist(context.Background(), "Acme", "US", "acme.com", model.EnrichmentMetadata{Summary: "s"})
	require.NoError(t, err)
	require.Len(t, st.saved, 1)
	assert.Equal(t, "acme", st.saved[0].NormalizedName)
}

func TestPersister_RejectsEmptyIdentity(t *testing.T) {
	st := &stubStore{}
	p := NewPersister(st)

	err := p.Persist(context.Background(), "", "", "", model.EnrichmentMetadata{})
	assert.Error(t, err)
	assert.Empty(t, st.saved)
}
