// Package mapping infers which spreadsheet headers carry the company name,
// country, and website fields.
package mapping

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/overviewer/sheetscan/internal/model"
)

// Mapper resolves raw column headers into a HeaderMapping. Called exactly
// once per uploaded file. Undetected fields come back as empty strings.
type Mapper interface {
	MapHeaders(ctx context.Context, headers []string) (model.HeaderMapping, error)
}

// WithFallback returns a Mapper that consults primary first and falls back
// to secondary when primary errors. A mapping with all fields empty is not
// an error; only call failures trigger the fallback.
func WithFallback(primary, secondary Mapper) Mapper {
	return &fallbackMapper{primary: primary, secondary: secondary}
}

type fallbackMapper struct {
	primary   Mapper
	secondary Mapper
}

func (m *fallbackMapper) MapHeaders(ctx context.Context, headers []string) (model.HeaderMapping, error) {
	mapping, err := m.primary.MapHeaders(ctx, headers)
	if err == nil {
		return mapping, nil
	}
	zap.L().Warn("mapping: primary mapper failed, using fallback", zap.Error(err))
	return m.secondary.MapHeaders(ctx, headers)
}

// HeuristicMapper matches headers against known synonym sets. It is the
// offline fallback when no inference backend is configured or reachable.
type HeuristicMapper struct{}

// NewHeuristicMapper creates a HeuristicMapper.
func NewHeuristicMapper() *HeuristicMapper { return &HeuristicMapper{} }

var synonyms = map[string][]string{
	"companyName": {"company name", "company", "name", "organization", "organisation", "account name", "firm", "business name", "legal name"},
	"country":     {"country", "country name", "country code", "nation", "hq country", "headquarters country"},
	"website":     {"website", "web site", "url", "domain", "homepage", "company website", "web"},
}

// MapHeaders picks, per semantic field, the first header whose normalized
// form matches a synonym exactly; when nothing matches exactly it falls
// back to a substring match. Each header is assigned to at most one field.
func (m *HeuristicMapper) MapHeaders(_ context.Context, headers []string) (model.HeaderMapping, error) {
	taken := make(map[string]bool, 3)

	pick := func(field string) string {
		// Exact synonym match first.
		for _, syn := range synonyms[field] {
			for _, h := range headers {
				if !taken[h] && headerKey(h) == syn {
					taken[h] = true
					return h
				}
			}
		}
		// Then substring.
		for _, syn := range synonyms[field] {
			for _, h := range headers {
				if !taken[h] && strings.Contains(headerKey(h), syn) {
					taken[h] = true
					return h
				}
			}
		}
		return ""
	}

	return model.HeaderMapping{
		CompanyName: pick("companyName"),
		Country:     pick("country"),
		Website:     pick("website"),
	}, nil
}

// headerKey normalizes a header for comparison: lowercased, trimmed, runs
// of separators collapsed to single spaces.
func headerKey(h string) string {
	s := strings.ToLower(strings.TrimSpace(h))
	for _, sep := range []string{"_", "-", ".", "/"} {
		s = strings.ReplaceAll(s, sep, " ")
	}
	return strings.Join(strings.Fields(s), " ")
}
