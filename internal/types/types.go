// =============================================================================
// PCA Consolidation - Shared Types
// =============================================================================
//
// This package contains the records shared across the ingest pipeline, the
// consolidator, the document store and the report writers. Keeping them here
// avoids import cycles between:
//   - ingest
//   - consolidator
//   - validation
//   - store
//   - xmlwriter / xlsxreport
//
// Field tags keep the names used by the procurement front end
// (quantidadeTotal, prioridadeOficial, ...) so YAML/JSON reports can be read
// by the same consumers.
//
// =============================================================================

package types

// =============================================================================
// PRIORITY
// =============================================================================

// Priority is the demand priority label. Only the three constants below are
// ranked; any other value is carried through untouched.
type Priority string

const (
	PriorityHigh   Priority = "Alta"
	PriorityMedium Priority = "Média"
	PriorityLow    Priority = "Baixa"
)

// Rank returns the ordering weight of a priority: Alta=3, Média=2, Baixa=1.
// Unknown labels rank 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Known reports whether p is one of the ranked labels.
func (p Priority) Known() bool {
	return p.Rank() > 0
}

// =============================================================================
// INPUT RECORDS
// =============================================================================

// DemandItem is a single secretariat's request for one item, as read from an
// export file or fetched from the document store.
type DemandItem struct {
	// ID identifies the line item. Row-derived ("file.csv#12") for exports.
	ID string `json:"id" yaml:"id"`

	// Description is the free-text item description.
	Description string `json:"descricao" yaml:"descricao"`

	// Quantity requested.
	Quantity float64 `json:"quantidade" yaml:"quantidade"`

	// UnitValue is the estimated unit price.
	UnitValue float64 `json:"valorUnitario" yaml:"valorUnitario"`

	// Value is the line total. Summed by the consolidator.
	Value float64 `json:"valor" yaml:"valor"`

	// Unit is the unit-of-measure label ("kg", "un", "cx").
	Unit string `json:"unidade" yaml:"unidade"`

	// TechnicalDetail is optional; empty when absent.
	TechnicalDetail string `json:"detalhamentoTecnico,omitempty" yaml:"detalhamentoTecnico,omitempty"`

	// Secretariat is the owning secretariat's display name.
	Secretariat string `json:"secretaria" yaml:"secretaria"`

	Priority Priority `json:"prioridade" yaml:"prioridade"`

	// ContractingDate is an ISO date string (YYYY-MM-DD). It is compared
	// lexicographically, so mixed formats sort incorrectly.
	ContractingDate string `json:"dataContratacao" yaml:"dataContratacao"`

	// DocumentID is the owning DFD.
	DocumentID string `json:"documentoId" yaml:"documentoId"`

	// DocumentType is the document-type label ("MATERIAIS DE CONSUMO").
	DocumentType string `json:"tipoDocumento" yaml:"tipoDocumento"`
}

// =============================================================================
// CONSOLIDATED RECORDS
// =============================================================================

// Contribution is one secretariat's share of a consolidated group.
type Contribution struct {
	Quantity        float64  `json:"quantidade" yaml:"quantidade"`
	Value           float64  `json:"valor" yaml:"valor"`
	Priority        Priority `json:"prioridade" yaml:"prioridade"`
	ContractingDate string   `json:"dataContratacao" yaml:"dataContratacao"`
	DocumentID      string   `json:"documentoId" yaml:"documentoId"`
}

// ConsolidatedGroup aggregates every item sharing a by-type key.
type ConsolidatedGroup struct {
	Key                     string                  `json:"key" yaml:"key"`
	Description             string                  `json:"descricao" yaml:"descricao"`
	Unit                    string                  `json:"unidade" yaml:"unidade"`
	TechnicalDetail         string                  `json:"detalhamentoTecnico" yaml:"detalhamentoTecnico"`
	TotalQuantity           float64                 `json:"quantidadeTotal" yaml:"quantidadeTotal"`
	TotalValue              float64                 `json:"valorTotal" yaml:"valorTotal"`
	OfficialContractingDate string                  `json:"dataContratacaoOficial" yaml:"dataContratacaoOficial"`
	OfficialPriority        Priority                `json:"prioridadeOficial" yaml:"prioridadeOficial"`
	DocumentType            string                  `json:"tipoDocumento" yaml:"tipoDocumento"`
	Secretariats            map[string]Contribution `json:"secretarias" yaml:"secretarias"`
}

// SecretariatEntry is one member of a ConsolidatedItem's ordered list.
type SecretariatEntry struct {
	Name            string   `json:"nome" yaml:"nome"`
	Quantity        float64  `json:"quantidade" yaml:"quantidade"`
	Value           float64  `json:"valor" yaml:"valor"`
	Priority        Priority `json:"prioridade" yaml:"prioridade"`
	ContractingDate string   `json:"dataContratacao" yaml:"dataContratacao"`
	DocumentID      string   `json:"documentoId" yaml:"documentoId"`
}

// ConsolidatedItem aggregates every item sharing a key that ignores the
// document type. Secretariats keep every member in input order.
type ConsolidatedItem struct {
	Key                     string             `json:"key" yaml:"key"`
	Description             string             `json:"descricao" yaml:"descricao"`
	Unit                    string             `json:"unidade" yaml:"unidade"`
	TechnicalDetail         string             `json:"detalhamentoTecnico" yaml:"detalhamentoTecnico"`
	TotalQuantity           float64            `json:"quantidadeTotal" yaml:"quantidadeTotal"`
	TotalValue              float64            `json:"valorTotal" yaml:"valorTotal"`
	OfficialContractingDate string             `json:"dataContratacaoOficial" yaml:"dataContratacaoOficial"`
	OfficialPriority        Priority           `json:"prioridadeOficial" yaml:"prioridadeOficial"`
	Secretariats            []SecretariatEntry `json:"secretarias" yaml:"secretarias"`
}

// =============================================================================
// TABULAR INPUT
// =============================================================================

// Table is a parsed export (CSV or XLSX sheet) with rows keyed by header.
type Table struct {
	// Headers are the merged, cleaned column headers.
	Headers []string

	// Rows maps header -> value for each non-empty data row.
	Rows []map[string]string

	// RowNumbers holds the 1-based source row for each entry in Rows.
	RowNumbers []int

	// SourceFile is the path the table was read from.
	SourceFile string
}
