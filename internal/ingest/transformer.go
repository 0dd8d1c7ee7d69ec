// =============================================================================
// PCA Consolidation - Transformation Engine
// =============================================================================
//
// This module normalizes raw export values before they are mapped to demand
// items. Every secretariat exports differently: one writes "ALTA", another
// "1 - Alta"; one writes dates as 15/03/2024, another as 2024-03-15. Source
// profiles declare per-column transformation rules to iron that out.
//
// TRANSFORMATION TYPES:
//   - String manipulations (trim, case conversion, whitespace, replace)
//   - Regular expression replacements
//   - Lookup table replacements (priority labels, secretariat acronyms)
//   - Date conversions
//   - Fallbacks for empty cells
//
// =============================================================================

package ingest

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ginjaninja78/pca-consolidation/internal/config"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	digitsRe     = regexp.MustCompile(`\d+`)
)

// =============================================================================
// TRANSFORMER
// =============================================================================

// Transformer applies a source profile's transformation rules to rows.
type Transformer struct {
	rules map[string][]config.TransformationAction
	order []string
}

// NewTransformer creates a Transformer. Rules naming the same field are
// concatenated in declaration order.
func NewTransformer(rules []config.TransformationRule) *Transformer {
	t := &Transformer{rules: make(map[string][]config.TransformationAction)}

	for _, rule := range rules {
		if _, exists := t.rules[rule.Field]; !exists {
			t.order = append(t.order, rule.Field)
		}
		t.rules[rule.Field] = append(t.rules[rule.Field], rule.Actions...)
	}

	return t
}

// Transform applies the rules for fieldName to value.
//
// PARAMETERS:
//   - fieldName: The export header of the value.
//   - value: The current value.
//   - allFields: The whole row (for if_empty_use_field).
//
// RETURNS:
//   - The transformed value.
//   - An error naming the failing action.
func (t *Transformer) Transform(fieldName, value string, allFields map[string]string) (string, error) {
	actions, ok := t.rules[fieldName]
	if !ok {
		return value, nil
	}

	result := value
	for _, action := range actions {
		var err error
		result, err = ApplyTransformation(result, action, allFields)
		if err != nil {
			return "", fmt.Errorf("transformation '%s' failed: %w", action.Type, err)
		}
	}

	return result, nil
}

// TransformRow returns a copy of row with every rule applied. Rules run in
// declaration order, so a later rule sees earlier results through allFields.
// Rules for headers the row does not have are skipped unless the first
// action can fill an empty value.
func (t *Transformer) TransformRow(row map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(row))
	for k, v := range row {
		out[k] = v
	}

	for _, field := range t.order {
		value, exists := out[field]
		if !exists && !fillsEmpty(t.rules[field]) {
			continue
		}

		transformed, err := t.Transform(field, value, out)
		if err != nil {
			return nil, fmt.Errorf("error transforming field '%s': %w", field, err)
		}
		out[field] = transformed
	}

	return out, nil
}

func fillsEmpty(actions []config.TransformationAction) bool {
	for _, action := range actions {
		switch action.Type {
		case "if_empty_use_default", "if_empty_use_field":
			return true
		}
	}
	return false
}

// =============================================================================
// TRANSFORMATION FUNCTIONS
// =============================================================================

// ApplyTransformation applies a single transformation action.
//
// SUPPORTED TRANSFORMATIONS:
//   See the switch statement below for all supported transformation types.
func ApplyTransformation(value string, action config.TransformationAction, allFields map[string]string) (string, error) {
	switch action.Type {

	// =========================================================================
	// STRING MANIPULATIONS
	// =========================================================================

	case "trim":
		return strings.TrimSpace(value), nil

	case "uppercase":
		return strings.ToUpper(value), nil

	case "lowercase":
		return strings.ToLower(value), nil

	case "normalize_whitespace":
		// "Arroz   tipo\t1" -> "Arroz tipo 1"
		return strings.TrimSpace(whitespaceRe.ReplaceAllString(value, " ")), nil

	case "replace":
		if action.Find == "" {
			return value, nil
		}
		return strings.ReplaceAll(value, action.Find, action.Value), nil

	case "regex_replace":
		// EXAMPLE:
		//   Input: "1 - Alta"
		//   Action: regex_replace with find "^\d+\s*-\s*" and value ""
		//   Output: "Alta"
		if action.Find == "" {
			return value, nil
		}
		re, err := regexp.Compile(action.Find)
		if err != nil {
			return "", fmt.Errorf("invalid regex pattern: %w", err)
		}
		return re.ReplaceAllString(value, action.Value), nil

	case "extract_digits":
		return strings.Join(digitsRe.FindAllString(value, -1), ""), nil

	// =========================================================================
	// LOOKUP TABLE REPLACEMENTS
	// =========================================================================

	case "lookup":
		// USE CASE: "ALTA" -> "Alta", "SME" -> "Educação".
		if replacement, exists := action.LookupTable[value]; exists {
			return replacement, nil
		}
		return value, nil

	case "lookup_with_default":
		if replacement, exists := action.LookupTable[value]; exists {
			return replacement, nil
		}
		return action.Value, nil

	// =========================================================================
	// DATE CONVERSIONS
	// =========================================================================

	case "format_date":
		// VALUE FORMAT: "input_layout|output_layout" (Go time layouts)
		//
		// EXAMPLE:
		//   Input: "15/03/2024"
		//   Action: format_date with value "02/01/2006|2006-01-02"
		//   Output: "2024-03-15"
		//
		// Values that do not match the input layout pass through unchanged
		// and are reported by validation.
		parts := strings.Split(action.Value, "|")
		if len(parts) != 2 {
			return "", fmt.Errorf("format_date value must be 'input|output', got %q", action.Value)
		}

		if strings.TrimSpace(value) == "" {
			return value, nil
		}

		t, err := time.Parse(strings.TrimSpace(parts[0]), strings.TrimSpace(value))
		if err != nil {
			return value, nil
		}
		return t.Format(strings.TrimSpace(parts[1])), nil

	// =========================================================================
	// EMPTY-VALUE FALLBACKS
	// =========================================================================

	case "if_empty_use_default":
		if strings.TrimSpace(value) == "" {
			return action.Value, nil
		}
		return value, nil

	case "if_empty_use_field":
		if strings.TrimSpace(value) == "" {
			if otherValue, exists := allFields[action.Value]; exists {
				return otherValue, nil
			}
		}
		return value, nil

	default:
		return "", fmt.Errorf("unknown transformation type: %s", action.Type)
	}
}
