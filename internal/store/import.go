package store

import (
	"strings"

	"github.com/ginjaninja78/pca-consolidation/internal/types"
)

// DocumentsFromItems groups demand items into documents. Items share a
// document when they agree on every document-level field: owning document
// id, secretariat, document type, priority and contracting date. Documents
// and their items keep input order. The export's document id is kept as
// the document Reference and line values are kept as exported. Item ids
// are not carried over; the store assigns new ones.
func DocumentsFromItems(items []types.DemandItem, status Status) []Document {
	var docs []Document
	index := make(map[string]int)

	for _, item := range items {
		key := strings.Join([]string{
			item.DocumentID,
			item.Secretariat,
			item.DocumentType,
			string(item.Priority),
			item.ContractingDate,
		}, "\x00")

		i, ok := index[key]
		if !ok {
			i = len(docs)
			index[key] = i
			docs = append(docs, Document{
				Reference:       item.DocumentID,
				DocumentType:    item.DocumentType,
				Secretariat:     item.Secretariat,
				Status:          status,
				Priority:        item.Priority,
				ContractingDate: item.ContractingDate,
			})
		}

		docs[i].Items = append(docs[i].Items, Item{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   unitPrice(item),
			Value:       item.Value,
			Unit:        item.Unit,
			Code:        item.TechnicalDetail,
		})
	}

	return docs
}

// unitPrice keeps quantity × unit price equal to the item's line value
// when the export only carried the total.
func unitPrice(item types.DemandItem) float64 {
	if item.UnitValue != 0 || item.Quantity == 0 {
		return item.UnitValue
	}
	return item.Value / item.Quantity
}
