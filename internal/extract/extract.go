// Package extract turns a parsed sheet plus a header mapping into typed
// per-row identity records and the display rows the table and export
// layers work with.
package extract

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/overviewer/sheetscan/internal/model"
	"github.com/overviewer/sheetscan/internal/normalize"
)

// Rows maps a RawSheet through a HeaderMapping into ordered
// CompanyIdentity records and TableRow scaffolding. Row order follows the
// source file; each row's ID is its original index.
//
// A sheet with zero headers is fatal for the whole file: no partial table
// is produced.
func Rows(raw *model.RawSheet, mapping model.HeaderMapping) ([]model.CompanyIdentity, []model.TableRow, error) {
	if len(raw.Headers) == 0 {
		return nil, nil, eris.New("extract: sheet has no header row")
	}

	nameCol := columnIndex(raw.Headers, mapping.CompanyName)
	countryCol := columnIndex(raw.Headers, mapping.Country)
	websiteCol := columnIndex(raw.Headers, mapping.Website)

	identities := make([]model.CompanyIdentity, 0, len(raw.Rows))
	rows := make([]model.TableRow, 0, len(raw.Rows))

	for i, cells := range raw.Rows {
		values := padCells(cells, len(raw.Headers))

		name, hasName := cellAt(values, nameCol)
		country, _ := cellAt(values, countryCol)
		rawWebsite, hasWebsite := cellAt(values, websiteCol)

		website, websiteOK := "", false
		if hasWebsite {
			website, websiteOK = normalize.Website(rawWebsite)
			if websiteOK && website != values[websiteCol] {
				values[websiteCol] = website
			}
		}

		// An absent website is a skip condition later, not a row error;
		// a present but malformed one poisons the row permanently.
		hasError := !hasName || (hasWebsite && !websiteOK)
		if hasError {
			zap.L().Debug("extract: row flagged invalid",
				zap.Int("row", i),
				zap.Bool("has_name", hasName),
				zap.Bool("website_present", hasWebsite),
				zap.Bool("website_valid", websiteOK),
			)
		}

		identity := model.CompanyIdentity{
			OriginalIndex: i,
			CompanyName:   name,
			Country:       country,
			Website:       website,
		}

		identities = append(identities, identity)
		rows = append(rows, model.TableRow{
			ID:       i,
			Values:   values,
			HasError: hasError,
			Status:   model.StatusToProcess,
			Identity: identity,
		})
	}

	return identities, rows, nil
}

// columnIndex resolves a mapped header name to its position by exact
// string match. Empty or unknown header names yield -1: the field is
// absent for every row.
func columnIndex(headers []string, name string) int {
	if name == "" {
		return -1
	}
	for i, h := range headers {
		if h == name {
			return i
		}
	}
	return -1
}

// padCells right-pads a short row with empty cells so Values aligns with
// the header list.
func padCells(cells []string, width int) []string {
	values := make([]string, width)
	copy(values, cells)
	return values
}

func cellAt(values []string, col int) (string, bool) {
	if col < 0 || col >= len(values) {
		return "", false
	}
	return normalize.Field(values[col])
}
