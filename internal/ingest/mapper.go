package ingest

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ginjaninja78/pca-consolidation/internal/config"
	"github.com/ginjaninja78/pca-consolidation/internal/types"
)

// ParseNumber reads a number written the way secretariats write them:
// "2.250,00", "2250.00", "R$ 2.250,00", "4,5". Empty cells are zero.
// Anything else that does not parse is NaN, which the consolidator carries
// into the totals and validation reports.
func ParseNumber(raw string) float64 {
	s := strings.TrimSpace(raw)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}
	s = strings.TrimPrefix(strings.TrimSpace(s), "R$")
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\t':
			return -1
		}
		return r
	}, s)

	if s == "" {
		return 0
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			// 2.250,00
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// 2,250.00
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return math.NaN()
		}
		s = strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		// 1.234.567
		s = strings.ReplaceAll(s, ".", "")
	}

	v, err := strconv.ParseFloat(sign+s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// RowID returns the id given to rows that carry none: "<file>#<row>".
func RowID(filePath string, rowNumber int) string {
	return fmt.Sprintf("%s#%d", filepath.Base(filePath), rowNumber)
}

// MapRow converts one transformed export row into a DemandItem using the
// profile's column mapping and defaults.
func MapRow(row map[string]string, rowNumber int, filePath string, source *config.SourceConfig) types.DemandItem {
	m := source.ColumnMapping
	cell := func(header string) string {
		return strings.TrimSpace(row[header])
	}
	orDefault := func(value, fallback string) string {
		if value == "" {
			return fallback
		}
		return value
	}

	item := types.DemandItem{
		ID:              cell(m.ID),
		Description:     cell(m.Description),
		Quantity:        ParseNumber(row[m.Quantity]),
		UnitValue:       ParseNumber(row[m.UnitValue]),
		Unit:            cell(m.Unit),
		TechnicalDetail: cell(m.TechnicalDetail),
		Secretariat:     orDefault(cell(m.Secretariat), source.Defaults.Secretariat),
		Priority:        types.Priority(orDefault(cell(m.Priority), source.Defaults.Priority)),
		ContractingDate: cell(m.ContractingDate),
		DocumentID:      cell(m.DocumentID),
		DocumentType:    orDefault(cell(m.DocumentType), source.Defaults.DocumentType),
	}

	if item.ID == "" {
		item.ID = RowID(filePath, rowNumber)
	}

	if cell(m.Value) == "" {
		item.Value = item.Quantity * item.UnitValue
	} else {
		item.Value = ParseNumber(row[m.Value])
	}

	return item
}
