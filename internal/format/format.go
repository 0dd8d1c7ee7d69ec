// Package format renders values the way the procurement screens show them:
// Brazilian Real amounts, day/month/year dates and priority badge classes.
package format

import (
	"math"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ginjaninja78/pca-consolidation/internal/types"
)

// InvalidDate is returned by FormatDate for input it cannot parse.
const InvalidDate = "Invalid Date"

// Badge classes returned by PriorityColor.
const (
	ClassHigh    = "bg-red-100 text-red-800"
	ClassMedium  = "bg-yellow-100 text-yellow-800"
	ClassLow     = "bg-green-100 text-green-800"
	ClassNeutral = "bg-gray-100 text-gray-800"
)

var printer = message.NewPrinter(language.BrazilianPortuguese)

// dateLayouts are tried in order by FormatDate.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// FormatCurrency formats v as Brazilian Real: "R$ 3.150,00".
func FormatCurrency(v float64) string {
	switch {
	case math.IsNaN(v):
		return "R$ NaN"
	case math.IsInf(v, 1):
		return "R$ ∞"
	case math.IsInf(v, -1):
		return "-R$ ∞"
	}

	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}

	return sign + "R$ " + printer.Sprintf("%.2f", v)
}

// FormatDate renders an ISO date (or timestamp) as dd/mm/yyyy. Only the
// calendar date of a timestamp is used, no timezone conversion happens.
func FormatDate(iso string) string {
	s := strings.TrimSpace(iso)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("02/01/2006")
		}
	}
	return InvalidDate
}

// PriorityColor returns the badge class for a priority label. Matching is
// exact; anything other than Alta, Média or Baixa gets the neutral class.
func PriorityColor(priority string) string {
	switch types.Priority(priority) {
	case types.PriorityHigh:
		return ClassHigh
	case types.PriorityMedium:
		return ClassMedium
	case types.PriorityLow:
		return ClassLow
	default:
		return ClassNeutral
	}
}
