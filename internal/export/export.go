// Package export projects processed rows into the enriched output sheet.
package export

import (
	"strconv"

	"github.com/overviewer/sheetscan/internal/model"
)

// Headers is the column layout of the exported sheet.
var Headers = []string{
	"#",
	"Company Name",
	"Country",
	"Website",
	"Summary",
	"Independence Criteria",
	"Insufficient Information",
}

// Project converts rows into exportable cell rows. Rows flagged with an
// error are dropped and the sequence number is recomputed over what
// remains, starting at 1. An empty result means there is nothing to
// export.
func Project(rows []model.TableRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		if !row.Exportable() {
			continue
		}
		out = append(out, []string{
			strconv.Itoa(len(out) + 1),
			row.Identity.CompanyName,
			row.Identity.Country,
			row.Identity.Website,
			row.Summary,
			row.IndependenceCriteria,
			row.InsufficientInformation,
		})
	}
	return out
}
