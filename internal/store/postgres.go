package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/overviewer/sheetscan/internal/db"
	"github.com/overviewer/sheetscan/internal/model"
	"github.com/overviewer/sheetscan/internal/normalize"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS enriched_companies (
	id                       UUID PRIMARY KEY,
	company_name             TEXT NOT NULL DEFAULT '',
	country                  TEXT NOT NULL DEFAULT '',
	website                  TEXT NOT NULL DEFAULT '',
	normalized_name          TEXT NOT NULL DEFAULT '',
	normalized_country       TEXT NOT NULL DEFAULT '',
	normalized_website       TEXT NOT NULL DEFAULT '',
	summary                  TEXT NOT NULL DEFAULT '',
	independence_criteria    TEXT NOT NULL DEFAULT '',
	insufficient_information TEXT NOT NULL DEFAULT '',
	created_at               TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_enriched_companies_norm_name
	ON enriched_companies (normalized_name, created_at);
CREATE INDEX IF NOT EXISTS idx_enriched_companies_norm_website
	ON enriched_companies (normalized_website, created_at);
`

// Migrate creates the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

const insertEnrichmentSQL = `
INSERT INTO enriched_companies (
	id, company_name, country, website,
	normalized_name, normalized_country, normalized_website,
	summary, independence_criteria, insufficient_information, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// SaveEnrichment inserts a record, assigning ID and CreatedAt when unset.
func (s *PostgresStore) SaveEnrichment(ctx context.Context, rec *EnrichedCompany) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, insertEnrichmentSQL,
		rec.ID, rec.CompanyName, rec.Country, rec.Website,
		rec.NormalizedName, rec.NormalizedCountry, rec.NormalizedWebsite,
		rec.Summary, rec.IndependenceCriteria, rec.InsufficientInformation,
		rec.CreatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: save enrichment")
	}
	return nil
}

const findCandidatesSQL = `
SELECT id, company_name, country, website,
	normalized_name, normalized_country, normalized_website,
	summary, independence_criteria, insufficient_information, created_at
FROM enriched_companies
WHERE created_at >= $1
	AND (normalized_name = NULLIF($2, '')
		OR normalized_country = NULLIF($3, '')
		OR normalized_website = NULLIF($4, ''))
ORDER BY created_at DESC`

// FindCandidates returns recent records overlapping the query identity on
// at least one normalized field.
func (s *PostgresStore) FindCandidates(ctx context.Context, q model.CompanyIdentity, since time.Time) ([]EnrichedCompany, error) {
	rows, err := s.pool.Query(ctx, findCandidatesSQL,
		since,
		normalize.Key(q.CompanyName),
		normalize.Key(q.Country),
		normalize.Key(q.Website),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find candidates")
	}
	defer rows.Close()

	var out []EnrichedCompany
	for rows.Next() {
		var c EnrichedCompany
		if err := rows.Scan(
			&c.ID, &c.CompanyName, &c.Country, &c.Website,
			&c.NormalizedName, &c.NormalizedCountry, &c.NormalizedWebsite,
			&c.Summary, &c.IndependenceCriteria, &c.InsufficientInformation,
			&c.CreatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan candidate")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate candidates")
	}

	return out, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
