// =============================================================================
// PCA Consolidation - Licitação Scheduling View
// =============================================================================
//
// This package shapes consolidated groups for the scheduling table: which
// purchases are due when, filtered by secretariat, document type, priority
// or a free-text search, sorted by the official contracting date and split
// into pages.
//
// Everything here is pure: the input map is never mutated and each call
// returns a fresh Page.
//
// =============================================================================

package schedule

import (
	"sort"
	"strings"

	"github.com/ginjaninja78/pca-consolidation/internal/consolidator"
	"github.com/ginjaninja78/pca-consolidation/internal/types"
)

// DefaultPageSize is used when Query.PageSize is not positive.
const DefaultPageSize = 10

// Query selects and pages scheduling rows. Empty filter fields match
// everything.
type Query struct {
	// Secretariat keeps groups the named secretariat contributes to.
	// Compared case-insensitively.
	Secretariat string

	// DocumentType keeps groups of this document type (exact match, the
	// same way the consolidation key treats it).
	DocumentType string

	// Priority keeps groups whose official priority equals this label.
	Priority types.Priority

	// Search is matched case-insensitively against the description.
	Search string

	// Page is 1-based. Out-of-range pages are clamped.
	Page int

	PageSize int
}

// Row is one scheduling line.
type Row struct {
	types.ConsolidatedGroup

	// SecretariatNames lists the contributing secretariats, sorted.
	SecretariatNames []string
}

// Page is one page of rows plus the paging state after clamping.
type Page struct {
	Rows       []Row
	Page       int
	PageSize   int
	TotalRows  int
	TotalPages int
}

// Build filters, sorts and pages the by-type mapping. Groups are visited
// in typeOrder first so that ties keep a stable, reproducible order.
func Build(byType map[string][]types.ConsolidatedGroup, typeOrder []string, q Query) Page {
	var rows []Row
	for _, docType := range consolidator.OrderTypes(byType, typeOrder) {
		for _, group := range byType[docType] {
			if !Matches(group, q) {
				continue
			}
			rows = append(rows, Row{ConsolidatedGroup: group, SecretariatNames: names(group)})
		}
	}

	Sort(rows)
	return Paginate(rows, q.Page, q.PageSize)
}

// Matches reports whether group passes every filter in q.
func Matches(group types.ConsolidatedGroup, q Query) bool {
	if q.DocumentType != "" && group.DocumentType != q.DocumentType {
		return false
	}
	if q.Priority != "" && group.OfficialPriority != q.Priority {
		return false
	}
	if search := strings.ToLower(strings.TrimSpace(q.Search)); search != "" {
		if !strings.Contains(strings.ToLower(group.Description), search) {
			return false
		}
	}
	if secretariat := strings.TrimSpace(q.Secretariat); secretariat != "" {
		found := false
		for name := range group.Secretariats {
			if strings.EqualFold(strings.TrimSpace(name), secretariat) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Sort orders rows by official contracting date, then description. Rows
// without a date go last.
func Sort(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].OfficialContractingDate, rows[j].OfficialContractingDate
		if (a == "") != (b == "") {
			return b == ""
		}
		if a != b {
			return a < b
		}
		return strings.ToLower(rows[i].Description) < strings.ToLower(rows[j].Description)
	})
}

// Paginate slices rows into the requested page. The page number is
// clamped to [1, TotalPages]; an empty result has one empty page.
func Paginate(rows []Row, page, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	total := len(rows)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}

	out := make([]Row, end-start)
	copy(out, rows[start:end])

	return Page{
		Rows:       out,
		Page:       page,
		PageSize:   pageSize,
		TotalRows:  total,
		TotalPages: totalPages,
	}
}

func names(group types.ConsolidatedGroup) []string {
	out := make([]string, 0, len(group.Secretariats))
	for name := range group.Secretariats {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
