package converter

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/pca-consolidation/internal/consolidator"
	"github.com/ginjaninja78/pca-consolidation/internal/types"
	"github.com/ginjaninja78/pca-consolidation/internal/xlsxreport"
	"github.com/ginjaninja78/pca-consolidation/internal/xmlwriter"
)

// Plan is the document written by the yaml and json reports.
type Plan struct {
	GeneratedAt   time.Time                            `json:"geradoEm" yaml:"geradoEm"`
	DocumentTypes []string                             `json:"tiposDocumento" yaml:"tiposDocumento"`
	Totals        consolidator.Totals                  `json:"totais" yaml:"totais"`
	Groups        map[string][]types.ConsolidatedGroup `json:"grupos" yaml:"grupos"`
}

// NewPlan builds the report document of a result.
func NewPlan(result *Result, generatedAt time.Time) Plan {
	return Plan{
		GeneratedAt:   generatedAt.UTC(),
		DocumentTypes: result.TypeOrder,
		Totals:        result.Totals,
		Groups:        result.ByType,
	}
}

// writeReport writes one report next to base (a path without extension)
// and returns its path.
//
// NOTE: encoding/json rejects NaN, so the json report fails for plans
// with unparseable numbers. The yaml report writes them as .nan.
func writeReport(base, reportFormat string, result *Result) (string, error) {
	ext := strings.ToLower(reportFormat)
	path := base + "." + ext

	switch ext {
	case "xlsx":
		if err := xlsxreport.Save(path, result.ByType, result.TypeOrder, result.List); err != nil {
			return "", err
		}
		return path, nil

	case "xml":
		data, err := xmlwriter.Generate(result.ByType, result.TypeOrder)
		if err != nil {
			return "", err
		}
		return path, writeFile(path, data)

	case "yaml", "yml":
		data, err := yaml.Marshal(NewPlan(result, time.Now()))
		if err != nil {
			return "", fmt.Errorf("failed to encode YAML: %w", err)
		}
		return path, writeFile(path, data)

	case "json":
		data, err := json.MarshalIndent(NewPlan(result, time.Now()), "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode JSON: %w", err)
		}
		return path, writeFile(path, data)

	default:
		return "", fmt.Errorf("unsupported output format %q", reportFormat)
	}
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
