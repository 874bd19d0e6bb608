// Package model holds the shared data types of the sheet enrichment flow.
package model

// RawSheet is the parsed upload: one header row plus data rows, all cells
// read as text. Immutable once parsed.
type RawSheet struct {
	Headers []string
	Rows    [][]string
}

// HeaderMapping maps each semantic field to the header string that carries
// it. An empty string means the field was not detected. Computed exactly
// once per uploaded file.
type HeaderMapping struct {
	CompanyName string `json:"companyName"`
	Country     string `json:"country"`
	Website     string `json:"website"`
}

// CompanyIdentity is the per-row lookup record used to fingerprint a
// company. OriginalIndex is the row's position in the RawSheet and the
// sole correlation key across async stages. Empty string means absent;
// Website, when present, is already normalized.
type CompanyIdentity struct {
	OriginalIndex int    `json:"originalIndex"`
	CompanyName   string `json:"companyName,omitempty"`
	Country       string `json:"country,omitempty"`
	Website       string `json:"website,omitempty"`
}

// Empty reports whether no identity field is usable for a lookup.
func (c CompanyIdentity) Empty() bool {
	return c.CompanyName == "" && c.Country == "" && c.Website == ""
}

// EnrichmentMetadata carries the summarization output attached to a row or
// persisted with a company record.
type EnrichmentMetadata struct {
	Summary                 string `json:"summary,omitempty"`
	IndependenceCriteria    string `json:"independenceCriteria,omitempty"`
	InsufficientInformation string `json:"insufficientInformation,omitempty"`
}

// MatchResult is the per-identity outcome of the reconciliation call,
// correlated back to rows via OriginalIndex.
type MatchResult struct {
	OriginalIndex int                 `json:"originalIndex"`
	Matched       bool                `json:"matched"`
	Metadata      *EnrichmentMetadata `json:"metadata,omitempty"`
	Error         string              `json:"error,omitempty"`
}

// ProcessingStatus is the enrichment state of a row.
type ProcessingStatus string

const (
	// StatusFetched marks a row whose summary exists, either because the
	// reconciler found a persisted match or because enrichment completed.
	StatusFetched ProcessingStatus = "fetched"
	// StatusToProcess marks a row still awaiting enrichment.
	StatusToProcess ProcessingStatus = "to_process"
)

// TableRow is the working unit of the table and export layers. ID equals
// the identity's OriginalIndex. Values holds one display cell per original
// header, with the website cell replaced by its normalized form when
// normalization changed it.
type TableRow struct {
	ID       int              `json:"id"`
	Values   []string         `json:"values"`
	HasError bool             `json:"hasError"`
	Status   ProcessingStatus `json:"processingStatus"`
	Identity CompanyIdentity  `json:"identity"`

	Summary                 string `json:"summary,omitempty"`
	IndependenceCriteria    string `json:"independenceCriteria,omitempty"`
	InsufficientInformation string `json:"insufficientInformation,omitempty"`
}

// Eligible reports whether the row may enter the enrichment pipeline.
// Rows with HasError never become eligible, regardless of status.
func (r TableRow) Eligible() bool {
	return !r.HasError && r.Status == StatusToProcess
}

// Exportable reports whether the row appears in the export projection.
func (r TableRow) Exportable() bool {
	return !r.HasError
}
