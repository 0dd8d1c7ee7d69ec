// =============================================================================
// PCA Consolidation - Advisory Validation
// =============================================================================
//
// This module inspects demand items before consolidation and reports what
// would make the consolidated plan misleading. It never changes an item:
// the consolidator sums and ranks exactly what it is given, and the findings
// explain the surprises in its output.
//
// CHECKS:
//   Item-level:
//   - Quantity or line value that is NaN, infinite or negative
//   - Missing contracting date (an empty date becomes the official date)
//   - Contracting date not written as YYYY-MM-DD (lexicographic ordering)
//   - Priority outside Alta / Média / Baixa (never wins the ranking)
//   Group-level (by-type key):
//   - Contracting dates written in more than one format
//   - Same secretariat contributing twice (only the last contribution is
//     kept in the group's secretariat map)
//
// All findings are warnings. Findings are ordered by item order, item-level
// findings of an item first, group findings after all item findings.
//
// =============================================================================

package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/ginjaninja78/pca-consolidation/internal/consolidator"
	"github.com/ginjaninja78/pca-consolidation/internal/types"
)

// =============================================================================
// FINDINGS
// =============================================================================

// Severity of a finding.
const (
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Rule names.
const (
	RuleQuantity             = "quantity"
	RuleValue                = "value"
	RuleDateMissing          = "date_missing"
	RuleDateFormat           = "date_format"
	RulePriority             = "priority"
	RuleMixedDateFormats     = "mixed_date_formats"
	RuleSecretariatCollision = "secretariat_collision"
)

// Finding is a single validation finding.
type Finding struct {
	Severity string `json:"severity" yaml:"severity"`

	// Rule is one of the Rule* constants.
	Rule string `json:"rule" yaml:"rule"`

	// ItemID identifies the item. Empty for group findings.
	ItemID string `json:"itemId,omitempty" yaml:"itemId,omitempty"`

	// GroupKey is the by-type key for group findings.
	GroupKey string `json:"groupKey,omitempty" yaml:"groupKey,omitempty"`

	Field   string `json:"field" yaml:"field"`
	Value   string `json:"value" yaml:"value"`
	Message string `json:"message" yaml:"message"`
}

// Error implements the error interface.
func (f *Finding) Error() string {
	subject := "item " + f.ItemID
	if f.ItemID == "" {
		subject = "group " + f.GroupKey
	}

	return fmt.Sprintf("[%s] %s, field '%s': %s (value: '%s')",
		strings.ToUpper(f.Severity),
		subject,
		f.Field,
		f.Message,
		f.Value,
	)
}

// =============================================================================
// VALIDATION
// =============================================================================

var isoDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Check validates items and returns every finding.
func Check(items []types.DemandItem) []*Finding {
	var findings []*Finding

	for _, item := range items {
		findings = append(findings, CheckItem(item)...)
	}

	findings = append(findings, checkGroups(items)...)

	return findings
}

// CheckItem runs the item-level checks.
func CheckItem(item types.DemandItem) []*Finding {
	var findings []*Finding

	add := func(rule, field, value, message string) {
		findings = append(findings, &Finding{
			Severity: SeverityWarning,
			Rule:     rule,
			ItemID:   item.ID,
			Field:    field,
			Value:    value,
			Message:  message,
		})
	}

	if msg := checkAmount(item.Quantity); msg != "" {
		add(RuleQuantity, "quantidade", formatFloat(item.Quantity), msg)
	}
	if msg := checkAmount(item.Value); msg != "" {
		add(RuleValue, "valor", formatFloat(item.Value), msg)
	}

	switch {
	case strings.TrimSpace(item.ContractingDate) == "":
		add(RuleDateMissing, "dataContratacao", item.ContractingDate,
			"missing contracting date; it sorts before every other date in its group")
	case !IsISODate(item.ContractingDate):
		add(RuleDateFormat, "dataContratacao", item.ContractingDate,
			"contracting date is not YYYY-MM-DD; official dates are chosen lexicographically")
	}

	if !item.Priority.Known() {
		add(RulePriority, "prioridade", string(item.Priority),
			"priority is not Alta, Média or Baixa and is never chosen as the official priority")
	}

	return findings
}

// checkAmount returns a message when v cannot be summed meaningfully.
func checkAmount(v float64) string {
	switch {
	case math.IsNaN(v):
		return "not a number; group totals will be NaN"
	case math.IsInf(v, 0):
		return "infinite; group totals will be infinite"
	case v < 0:
		return "negative amount"
	default:
		return ""
	}
}

// IsISODate reports whether s is a valid YYYY-MM-DD calendar date.
func IsISODate(s string) bool {
	if !isoDateRe.MatchString(s) {
		return false
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// checkGroups runs the group-level checks over the by-type keys.
func checkGroups(items []types.DemandItem) []*Finding {
	var findings []*Finding

	for _, g := range consolidator.TypedBuckets(items) {
		key := g.Key

		iso, other := 0, 0
		for _, m := range g.Members {
			if m.ContractingDate == "" {
				continue
			}
			if IsISODate(m.ContractingDate) {
				iso++
			} else {
				other++
			}
		}
		if iso > 0 && other > 0 {
			findings = append(findings, &Finding{
				Severity: SeverityWarning,
				Rule:     RuleMixedDateFormats,
				GroupKey: key,
				Field:    "dataContratacao",
				Value:    joinDates(g.Members),
				Message:  "contracting dates use more than one format; the official date may not be the earliest",
			})
		}

		seen := make(map[string]string)
		for _, m := range g.Members {
			if prev, dup := seen[m.Secretariat]; dup {
				findings = append(findings, &Finding{
					Severity: SeverityWarning,
					Rule:     RuleSecretariatCollision,
					ItemID:   m.ID,
					GroupKey: key,
					Field:    "secretaria",
					Value:    m.Secretariat,
					Message:  fmt.Sprintf("secretariat contributes more than once; contribution of item %s is replaced by item %s in the secretariat breakdown (totals include both)", prev, m.ID),
				})
			}
			seen[m.Secretariat] = m.ID
		}
	}

	return findings
}

func joinDates(members []types.DemandItem) string {
	dates := make([]string, 0, len(members))
	for _, m := range members {
		dates = append(dates, m.ContractingDate)
	}
	return strings.Join(dates, ", ")
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// Count returns the number of findings per rule.
func Count(findings []*Finding) map[string]int {
	counts := make(map[string]int)
	for _, f := range findings {
		counts[f.Rule]++
	}
	return counts
}

// FormatFindings formats findings for display or logging.
func FormatFindings(findings []*Finding) string {
	if len(findings) == 0 {
		return "No validation findings."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d finding(s):\n\n", len(findings)))

	for i, f := range findings {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, f.Error()))
	}

	return builder.String()
}
