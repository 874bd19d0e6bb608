// Package sheet reads and writes the tabular spreadsheet formats the
// service accepts and produces. All cells are handled as text: numeric and
// date cells are coerced to their display string, never their typed value.
package sheet

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/overviewer/sheetscan/internal/model"
)

// Read parses an uploaded XLSX document into a RawSheet. The first row of
// the first sheet is the header row; remaining rows are data. A workbook
// with no sheets or no rows yields a RawSheet with empty Headers, which
// callers treat as a fatal whole-file condition.
func Read(data []byte) (*model.RawSheet, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "sheet: open workbook")
	}

	raw := &model.RawSheet{}
	if len(f.Sheets) == 0 {
		return raw, nil
	}

	for i, row := range f.Sheets[0].Rows {
		cells := rowToStrings(row)
		if i == 0 {
			raw.Headers = cells
			continue
		}
		raw.Rows = append(raw.Rows, cells)
	}

	return raw, nil
}

// ReadFrom reads the full reader and parses it as XLSX.
func ReadFrom(r io.Reader) (*model.RawSheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "sheet: read upload")
	}
	return Read(data)
}

// Write serializes a header row plus data rows into a single-sheet XLSX
// document.
func Write(w io.Writer, sheetName string, headers []string, rows [][]string) error {
	f := xlsx.NewFile()
	s, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "sheet: add sheet")
	}

	hr := s.AddRow()
	for _, h := range headers {
		hr.AddCell().SetString(h)
	}

	for _, row := range rows {
		r := s.AddRow()
		for _, v := range row {
			r.AddCell().SetString(v)
		}
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "sheet: write workbook")
	}
	return nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
