// Package store persists enriched companies and answers the match lookups
// the reconciler depends on. Two backends mirror the deployment modes:
// Postgres for the shared remote store, SQLite for single-user local runs.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/overviewer/sheetscan/internal/model"
	"github.com/overviewer/sheetscan/internal/normalize"
)

// EnrichedCompany is a persisted enrichment record. Normalized* fields are
// the case-folded comparison keys the matching rule votes on.
type EnrichedCompany struct {
	ID          string
	CompanyName string
	Country     string
	Website     string

	NormalizedName    string
	NormalizedCountry string
	NormalizedWebsite string

	Summary                 string
	IndependenceCriteria    string
	InsufficientInformation string

	CreatedAt time.Time
}

// Metadata projects the record's enrichment output.
func (c *EnrichedCompany) Metadata() *model.EnrichmentMetadata {
	return &model.EnrichmentMetadata{
		Summary:                 c.Summary,
		IndependenceCriteria:    c.IndependenceCriteria,
		InsufficientInformation: c.InsufficientInformation,
	}
}

// NewEnrichedCompany builds a record from raw identity fields plus
// summarization metadata. It rejects input where no identity field
// normalizes to a non-empty value; such a record could never be matched.
func NewEnrichedCompany(companyName, country, website string, meta model.EnrichmentMetadata) (*EnrichedCompany, error) {
	rec := &EnrichedCompany{
		CompanyName:             companyName,
		Country:                 country,
		Website:                 website,
		NormalizedName:          normalize.Key(companyName),
		NormalizedCountry:       normalize.Key(country),
		Summary:                 meta.Summary,
		IndependenceCriteria:    meta.IndependenceCriteria,
		InsufficientInformation: meta.InsufficientInformation,
	}
	if w, ok := normalize.Website(website); ok {
		rec.Website = w
		rec.NormalizedWebsite = normalize.Key(w)
	}

	if rec.NormalizedName == "" && rec.NormalizedCountry == "" && rec.NormalizedWebsite == "" {
		return nil, eris.New("store: record has no usable identity field")
	}
	return rec, nil
}

// Store defines the persistence interface for enriched companies.
type Store interface {
	// SaveEnrichment inserts a record. ID and CreatedAt are assigned when
	// unset.
	SaveEnrichment(ctx context.Context, rec *EnrichedCompany) error

	// FindCandidates returns records created at or after since whose
	// normalized fields overlap the query identity on at least one field.
	// The voting rule is applied by the caller.
	FindCandidates(ctx context.Context, q model.CompanyIdentity, since time.Time) ([]EnrichedCompany, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Persister adapts a Store to the enrichment pipeline's persist step.
type Persister struct {
	store Store
}

// NewPersister creates a Persister over the given store.
func NewPersister(s Store) *Persister {
	return &Persister{store: s}
}

// Persist validates and saves one enrichment outcome. It fails when none
// of companyName/country/website normalize to a non-empty value.
func (p *Persister) Persist(ctx context.Context, companyName, country, website string, meta model.EnrichmentMetadata) error {
	rec, err := NewEnrichedCompany(companyName, country, website, meta)
	if err != nil {
		return err
	}
	return p.store.SaveEnrichment(ctx, rec)
}
