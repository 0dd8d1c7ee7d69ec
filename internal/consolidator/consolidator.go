// =============================================================================
// PCA Consolidation - Item Consolidator
// =============================================================================
//
// This module groups the raw per-secretariat demand items of the Annual
// Procurement Plan (PCA) into deduplicated aggregate rows.
//
// GROUPING:
//   Items are bucketed by a synthetic key built from the trimmed, lower-cased
//   description, unit and technical detail. The by-type variant appends the
//   document type to the key WITHOUT normalizing it, so "Materiais" and
//   "MATERIAIS" stay apart. Existing consumers depend on that asymmetry.
//
// REDUCTION:
//   - Quantities and values are plain sums (NaN propagates).
//   - The official date is the smallest date string of the group.
//   - The official priority folds from Baixa and keeps the highest rank.
//
// ORDERING:
//   Buckets keep the order their key was first seen; members keep input
//   order. Nothing here mutates the input slice.
//
// =============================================================================

package consolidator

import (
	"sort"
	"strings"

	"github.com/ginjaninja78/pca-consolidation/internal/types"
)

// keySeparator joins the key components.
const keySeparator = "_"

// =============================================================================
// KEY CONSTRUCTION
// =============================================================================

// normalize trims and lower-cases a key component.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ItemKey returns the grouping key that ignores the document type.
func ItemKey(item types.DemandItem) string {
	return normalize(item.Description) + keySeparator +
		normalize(item.Unit) + keySeparator +
		normalize(item.TechnicalDetail)
}

// TypedItemKey returns the by-type grouping key. The document type is
// appended verbatim.
func TypedItemKey(item types.DemandItem) string {
	return ItemKey(item) + keySeparator + item.DocumentType
}

// =============================================================================
// BUCKETING
// =============================================================================

// Bucket holds the members sharing one grouping key.
type Bucket struct {
	Key     string
	Members []types.DemandItem
}

// groupBy buckets items by keyFn, preserving first-seen order of buckets and
// input order within each bucket.
func groupBy(items []types.DemandItem, keyFn func(types.DemandItem) string) []*Bucket {
	index := make(map[string]*Bucket)
	order := []*Bucket{}

	for _, item := range items {
		key := keyFn(item)
		b, exists := index[key]
		if !exists {
			b = &Bucket{Key: key}
			index[key] = b
			order = append(order, b)
		}
		b.Members = append(b.Members, item)
	}

	return order
}

// TypedBuckets returns the members of every by-type group, in the order
// ConsolidateItemsByType creates the groups.
func TypedBuckets(items []types.DemandItem) []*Bucket {
	return groupBy(items, TypedItemKey)
}

// =============================================================================
// CONSOLIDATION
// =============================================================================

// ConsolidateItemsByType groups items by description, unit, technical detail
// and document type, then partitions the groups by document type.
//
// RETURNS:
//   - A mapping document type -> groups, in the order each group's key was
//     first created. An empty input yields an empty, non-nil map.
//
// When two members of one group share a secretariat name, the later member's
// contribution replaces the earlier one in Secretariats. Totals still count
// both. validation.Check reports these collisions.
func ConsolidateItemsByType(items []types.DemandItem) map[string][]types.ConsolidatedGroup {
	result := make(map[string][]types.ConsolidatedGroup)

	for _, b := range TypedBuckets(items) {
		first := b.Members[0]

		group := types.ConsolidatedGroup{
			Key:             b.Key,
			Description:     first.Description,
			Unit:            first.Unit,
			TechnicalDetail: first.TechnicalDetail,
			DocumentType:    first.DocumentType,
			Secretariats:    make(map[string]types.Contribution, len(b.Members)),
		}

		for _, m := range b.Members {
			group.TotalQuantity += m.Quantity
			group.TotalValue += m.Value
			group.Secretariats[m.Secretariat] = types.Contribution{
				Quantity:        m.Quantity,
				Value:           m.Value,
				Priority:        m.Priority,
				ContractingDate: m.ContractingDate,
				DocumentID:      m.DocumentID,
			}
		}

		group.OfficialContractingDate = OfficialDate(b.Members)
		group.OfficialPriority = OfficialPriority(b.Members)

		result[group.DocumentType] = append(result[group.DocumentType], group)
	}

	return result
}

// ConsolidateItems groups items by description, unit and technical detail,
// ignoring the document type. Every member is kept in Secretariats, in input
// order, so nothing is overwritten.
func ConsolidateItems(items []types.DemandItem) []types.ConsolidatedItem {
	buckets := groupBy(items, ItemKey)
	result := make([]types.ConsolidatedItem, 0, len(buckets))

	for _, b := range buckets {
		first := b.Members[0]

		item := types.ConsolidatedItem{
			Key:             b.Key,
			Description:     first.Description,
			Unit:            first.Unit,
			TechnicalDetail: first.TechnicalDetail,
			Secretariats:    make([]types.SecretariatEntry, 0, len(b.Members)),
		}

		for _, m := range b.Members {
			item.TotalQuantity += m.Quantity
			item.TotalValue += m.Value
			item.Secretariats = append(item.Secretariats, types.SecretariatEntry{
				Name:            m.Secretariat,
				Quantity:        m.Quantity,
				Value:           m.Value,
				Priority:        m.Priority,
				ContractingDate: m.ContractingDate,
				DocumentID:      m.DocumentID,
			})
		}

		item.OfficialContractingDate = OfficialDate(b.Members)
		item.OfficialPriority = OfficialPriority(b.Members)

		result = append(result, item)
	}

	return result
}

// =============================================================================
// OFFICIAL DATE / PRIORITY
// =============================================================================

// OfficialDate returns the smallest contracting date string among members.
// The comparison is lexicographic and only chronological for ISO dates.
// Returns "" for no members.
func OfficialDate(members []types.DemandItem) string {
	if len(members) == 0 {
		return ""
	}

	dates := make([]string, len(members))
	for i, m := range members {
		dates[i] = m.ContractingDate
	}
	sort.Strings(dates)

	return dates[0]
}

// OfficialPriority folds the members' priorities starting from Baixa and
// keeps the highest ranked label. Unranked labels never replace the seed.
func OfficialPriority(members []types.DemandItem) types.Priority {
	official := types.PriorityLow
	for _, m := range members {
		if m.Priority.Rank() > official.Rank() {
			official = m.Priority
		}
	}
	return official
}

// =============================================================================
// HELPERS
// =============================================================================

// DocumentTypeOrder returns the distinct document types of items in the
// order they first appear. Reports use it to render the by-type mapping
// deterministically.
func DocumentTypeOrder(items []types.DemandItem) []string {
	seen := make(map[string]bool)
	var order []string

	for _, item := range items {
		if !seen[item.DocumentType] {
			seen[item.DocumentType] = true
			order = append(order, item.DocumentType)
		}
	}

	return order
}

// OrderTypes returns the document types of byType, those listed in
// typeOrder first and in that order, the rest sorted.
func OrderTypes(byType map[string][]types.ConsolidatedGroup, typeOrder []string) []string {
	seen := make(map[string]bool, len(byType))
	order := make([]string, 0, len(byType))

	for _, t := range typeOrder {
		if _, ok := byType[t]; ok && !seen[t] {
			seen[t] = true
			order = append(order, t)
		}
	}

	var rest []string
	for t := range byType {
		if !seen[t] {
			rest = append(rest, t)
		}
	}
	sort.Strings(rest)

	return append(order, rest...)
}

// Totals holds the grand totals of a set of groups.
type Totals struct {
	Groups   int     `json:"grupos" yaml:"grupos"`
	Quantity float64 `json:"quantidadeTotal" yaml:"quantidadeTotal"`
	Value    float64 `json:"valorTotal" yaml:"valorTotal"`
}

// Sum adds up the groups of a by-type mapping.
func Sum(byType map[string][]types.ConsolidatedGroup) Totals {
	var t Totals
	for _, groups := range byType {
		for _, g := range groups {
			t.Groups++
			t.Quantity += g.TotalQuantity
			t.Value += g.TotalValue
		}
	}
	return t
}

// Flatten turns groups back into one synthetic item per group, carrying the
// aggregate quantity, value, official date and priority. Per-secretariat
// identity is lost.
func Flatten(byType map[string][]types.ConsolidatedGroup) []types.DemandItem {
	var items []types.DemandItem
	for _, groups := range byType {
		for _, g := range groups {
			items = append(items, types.DemandItem{
				ID:              g.Key,
				Description:     g.Description,
				Quantity:        g.TotalQuantity,
				Value:           g.TotalValue,
				Unit:            g.Unit,
				TechnicalDetail: g.TechnicalDetail,
				Priority:        g.OfficialPriority,
				ContractingDate: g.OfficialContractingDate,
				DocumentType:    g.DocumentType,
			})
		}
	}
	return items
}
