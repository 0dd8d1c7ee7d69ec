// =============================================================================
// PCA Consolidation - Document Store
// =============================================================================
//
// This module persists demand documents (DFDs, Documentos de Formalização
// da Demanda) and their items in SQLite. It is the record source of the
// consolidation run when --source db is used: only approved documents
// contribute to the plan.
//
// DOCUMENT LIFECYCLE:
//   rascunho -> pendente -> aprovado
//                        -> rejeitado
//
// TABLES:
//   documentos (id, referencia, tipo_documento, secretaria, status,
//               prioridade, data_contratacao, justificativa, created_at)
//   itens      (id, documento_id, descricao, quantidade, valor_unitario,
//               valor_total, unidade, codigo)
//
// Amounts are nullable: SQLite stores NaN as NULL, and NULL reads back as
// NaN so unparseable export numbers survive an import.
//
// =============================================================================

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ginjaninja78/pca-consolidation/internal/logging"
	"github.com/ginjaninja78/pca-consolidation/internal/types"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrInvalidStatus is returned when a lifecycle transition is not
	// allowed from the document's current status.
	ErrInvalidStatus = errors.New("invalid status transition")
)

// Status is the lifecycle status of a document.
type Status string

const (
	StatusDraft    Status = "rascunho"
	StatusPending  Status = "pendente"
	StatusApproved Status = "aprovado"
	StatusRejected Status = "rejeitado"
)

// ParseStatus validates a status name. The empty string is allowed and
// means "any status" for ListDocuments.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return "", nil
	case StatusDraft:
		return StatusDraft, nil
	case StatusPending:
		return StatusPending, nil
	case StatusApproved:
		return StatusApproved, nil
	case StatusRejected:
		return StatusRejected, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Document is a DFD with its items. Reference is the document id of the
// export the DFD was imported from, if any; exports reuse ids, so it is
// not unique.
type Document struct {
	ID              string
	Reference       string
	DocumentType    string
	Secretariat     string
	Status          Status
	Priority        types.Priority
	ContractingDate string
	Justification   string
	CreatedAt       time.Time
	Items           []Item
}

// Item is one line of a document. A zero Value is stored as quantity
// times unit price.
type Item struct {
	ID          string
	DocumentID  string
	Description string
	Quantity    float64
	UnitPrice   float64
	Value       float64
	Unit        string
	Code        string
}

// Total returns the sum of the line values.
func (d Document) Total() float64 {
	var total float64
	for _, it := range d.Items {
		total += it.Value
	}
	return total
}

// Store is the SQLite-backed document store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for created_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open creates or opens the database at path and applies the schema.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and writes serialized.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.FromContext(ctx).Debug().Str("path", path).Msg("document store opened")
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documentos (
		id TEXT PRIMARY KEY,
		referencia TEXT NOT NULL DEFAULT '',
		tipo_documento TEXT NOT NULL,
		secretaria TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'rascunho',
		prioridade TEXT NOT NULL DEFAULT '',
		data_contratacao TEXT NOT NULL DEFAULT '',
		justificativa TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documentos_status ON documentos(status);

	CREATE TABLE IF NOT EXISTS itens (
		id TEXT PRIMARY KEY,
		documento_id TEXT NOT NULL REFERENCES documentos(id) ON DELETE CASCADE,
		descricao TEXT NOT NULL,
		quantidade REAL,
		valor_unitario REAL,
		valor_total REAL,
		unidade TEXT NOT NULL DEFAULT '',
		codigo TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_itens_documento ON itens(documento_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// =============================================================================
// WRITES
// =============================================================================

// CreateDocument inserts doc and its items in one transaction. Missing ids
// are generated; an empty status becomes rascunho. The stored document is
// returned.
func (s *Store) CreateDocument(ctx context.Context, doc Document) (Document, error) {
	docs, err := s.CreateDocuments(ctx, []Document{doc})
	if err != nil {
		return Document{}, err
	}
	return docs[0], nil
}

// CreateDocuments inserts several documents in one transaction: either all
// of them are stored or none is.
func (s *Store) CreateDocuments(ctx context.Context, docs []Document) ([]Document, error) {
	created := make([]Document, len(docs))
	for i, doc := range docs {
		doc, err := s.prepare(doc)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i+1, err)
		}
		created[i] = doc
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, doc := range created {
		if err := insertDocument(ctx, tx, doc); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit documents: %w", err)
	}

	logger := logging.FromContext(ctx)
	for _, doc := range created {
		logger.Info().
			Str("document", doc.ID).
			Str("secretaria", doc.Secretariat).
			Int("items", len(doc.Items)).
			Msg("document created")
	}

	return created, nil
}

// prepare validates doc and fills generated fields. The items slice is
// copied so the caller's documents are left untouched.
func (s *Store) prepare(doc Document) (Document, error) {
	if strings.TrimSpace(doc.Secretariat) == "" {
		return Document{}, fmt.Errorf("document secretariat is required")
	}
	if strings.TrimSpace(doc.DocumentType) == "" {
		return Document{}, fmt.Errorf("document type is required")
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.Status == "" {
		doc.Status = StatusDraft
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = s.now().UTC()
	}

	doc.Items = append([]Item(nil), doc.Items...)
	for i := range doc.Items {
		item := &doc.Items[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		if item.Value == 0 {
			item.Value = item.Quantity * item.UnitPrice
		}
		item.DocumentID = doc.ID
	}

	return doc, nil
}

func insertDocument(ctx context.Context, tx *sql.Tx, doc Document) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO documentos (id, referencia, tipo_documento, secretaria, status, prioridade, data_contratacao, justificativa, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Reference, doc.DocumentType, doc.Secretariat, string(doc.Status), string(doc.Priority),
		doc.ContractingDate, doc.Justification, doc.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}

	for i, item := range doc.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO itens (id, documento_id, descricao, quantidade, valor_unitario, valor_total, unidade, codigo)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID, item.DocumentID, item.Description,
			nullable(item.Quantity), nullable(item.UnitPrice), nullable(item.Value),
			item.Unit, item.Code)
		if err != nil {
			return fmt.Errorf("failed to insert item %d: %w", i+1, err)
		}
	}

	return nil
}

// Submit moves a draft to pendente.
func (s *Store) Submit(ctx context.Context, id string) error {
	return s.transition(ctx, id, StatusPending, StatusDraft)
}

// Approve moves a pending document to aprovado.
func (s *Store) Approve(ctx context.Context, id string) error {
	return s.transition(ctx, id, StatusApproved, StatusPending)
}

// Reject moves a pending document to rejeitado.
func (s *Store) Reject(ctx context.Context, id string) error {
	return s.transition(ctx, id, StatusRejected, StatusPending)
}

func (s *Store) transition(ctx context.Context, id string, to, from Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documentos SET status = ? WHERE id = ? AND status = ?`,
		string(to), id, string(from))
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	if n == 0 {
		var current string
		err := s.db.QueryRowContext(ctx, `SELECT status FROM documentos WHERE id = ?`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to read status: %w", err)
		}
		return fmt.Errorf("%s is %s, expected %s: %w", id, current, from, ErrInvalidStatus)
	}

	logging.FromContext(ctx).Info().Str("document", id).Str("status", string(to)).Msg("document status changed")
	return nil
}

// =============================================================================
// READS
// =============================================================================

// GetDocument returns a document with its items.
func (s *Store) GetDocument(ctx context.Context, id string) (Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, referencia, tipo_documento, secretaria, status, prioridade, data_contratacao, justificativa, created_at
		FROM documentos WHERE id = ?`, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Document{}, err
	}

	doc.Items, err = s.items(ctx, id)
	if err != nil {
		return Document{}, err
	}

	return doc, nil
}

// ListDocuments returns documents with the given status (all when empty),
// oldest first, with their items.
func (s *Store) ListDocuments(ctx context.Context, status Status) ([]Document, error) {
	query := `
		SELECT id, referencia, tipo_documento, secretaria, status, prioridade, data_contratacao, justificativa, created_at
		FROM documentos`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at, rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	rows.Close()

	for i := range docs {
		docs[i].Items, err = s.items(ctx, docs[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return docs, nil
}

// FetchApprovedItems returns the items of every approved document as
// demand items, in document then item order. Document fields (priority,
// date, type, secretariat) are copied onto each item and the item code
// becomes the technical detail.
func (s *Store) FetchApprovedItems(ctx context.Context) ([]types.DemandItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.descricao, i.quantidade, i.valor_unitario, i.valor_total, i.unidade, i.codigo,
		       d.id, d.tipo_documento, d.secretaria, d.prioridade, d.data_contratacao
		FROM itens i
		JOIN documentos d ON d.id = i.documento_id
		WHERE d.status = ?
		ORDER BY d.created_at, d.rowid, i.rowid`, string(StatusApproved))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch approved items: %w", err)
	}
	defer rows.Close()

	var items []types.DemandItem
	for rows.Next() {
		var item types.DemandItem
		var priority string
		var qty, unit, value sql.NullFloat64
		if err := rows.Scan(
			&item.ID, &item.Description, &qty, &unit, &value, &item.Unit, &item.TechnicalDetail,
			&item.DocumentID, &item.DocumentType, &item.Secretariat, &priority, &item.ContractingDate,
		); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		item.Priority = types.Priority(priority)
		item.Quantity = fromNullable(qty)
		item.UnitValue = fromNullable(unit)
		item.Value = fromNullable(value)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to fetch approved items: %w", err)
	}

	logging.FromContext(ctx).Debug().Int("items", len(items)).Msg("fetched approved items")
	return items, nil
}

func (s *Store) items(ctx context.Context, documentID string) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, documento_id, descricao, quantidade, valor_unitario, valor_total, unidade, codigo
		FROM itens WHERE documento_id = ? ORDER BY rowid`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to read items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		var qty, unit, value sql.NullFloat64
		if err := rows.Scan(&it.ID, &it.DocumentID, &it.Description, &qty, &unit, &value, &it.Unit, &it.Code); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		it.Quantity = fromNullable(qty)
		it.UnitPrice = fromNullable(unit)
		it.Value = fromNullable(value)
		items = append(items, it)
	}
	return items, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (Document, error) {
	var doc Document
	var status, priority, createdAt string

	err := row.Scan(&doc.ID, &doc.Reference, &doc.DocumentType, &doc.Secretariat, &status, &priority,
		&doc.ContractingDate, &doc.Justification, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, err
		}
		return Document{}, fmt.Errorf("failed to scan document: %w", err)
	}

	doc.Status = Status(status)
	doc.Priority = types.Priority(priority)
	doc.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Document{}, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}

	return doc, nil
}

// nullable binds NaN as NULL, which is what SQLite would store anyway.
func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNullable(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
