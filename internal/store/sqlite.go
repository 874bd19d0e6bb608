package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/overviewer/sheetscan/internal/model"
	"github.com/overviewer/sheetscan/internal/normalize"
)

// SQLiteStore implements Store using modernc.org/sqlite. Used for local
// single-user runs where no shared Postgres is available.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: conn}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS enriched_companies (
	id                       TEXT PRIMARY KEY,
	company_name             TEXT NOT NULL DEFAULT '',
	country                  TEXT NOT NULL DEFAULT '',
	website                  TEXT NOT NULL DEFAULT '',
	normalized_name          TEXT NOT NULL DEFAULT '',
	normalized_country       TEXT NOT NULL DEFAULT '',
	normalized_website       TEXT NOT NULL DEFAULT '',
	summary                  TEXT NOT NULL DEFAULT '',
	independence_criteria    TEXT NOT NULL DEFAULT '',
	insufficient_information TEXT NOT NULL DEFAULT '',
	created_at               DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_enriched_companies_norm_name
	ON enriched_companies (normalized_name, created_at);
CREATE INDEX IF NOT EXISTS idx_enriched_companies_norm_website
	ON enriched_companies (normalized_website, created_at);
`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return nil
}

// SaveEnrichment inserts a record, assigning ID and CreatedAt when unset.
func (s *SQLiteStore) SaveEnrichment(ctx context.Context, rec *EnrichedCompany) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO enriched_companies (
			id, company_name, country, website,
			normalized_name, normalized_country, normalized_website,
			summary, independence_criteria, insufficient_information, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CompanyName, rec.Country, rec.Website,
		rec.NormalizedName, rec.NormalizedCountry, rec.NormalizedWebsite,
		rec.Summary, rec.IndependenceCriteria, rec.InsufficientInformation,
		rec.CreatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: save enrichment")
	}
	return nil
}

// FindCandidates returns recent records overlapping the query identity on
// at least one normalized field.
func (s *SQLiteStore) FindCandidates(ctx context.Context, q model.CompanyIdentity, since time.Time) ([]EnrichedCompany, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_name, country, website,
			normalized_name, normalized_country, normalized_website,
			summary, independence_criteria, insufficient_information, created_at
		FROM enriched_companies
		WHERE created_at >= ?
			AND (normalized_name = NULLIF(?, '')
				OR normalized_country = NULLIF(?, '')
				OR normalized_website = NULLIF(?, ''))
		ORDER BY created_at DESC`,
		since,
		normalize.Key(q.CompanyName),
		normalize.Key(q.Country),
		normalize.Key(q.Website),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find candidates")
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
			return nil, eris.Wrap(err, "sqlite: scan candidate")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate candidates")
	}

	return out, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
