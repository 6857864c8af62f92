package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/inamate/vecview/internal/document"
	"github.com/inamate/vecview/internal/typeid"
)

var ErrNotFound = errors.New("document not found")

//go:embed schema.sql
var schema string

// DBPool is the subset of pgxpool.Pool the store uses.
type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store keeps documents as a series of JSON snapshots. Each save appends a
// snapshot with the next version number; loads return the latest one.
type Store struct {
	pool DBPool
}

func New(pool DBPool) *Store {
	return &Store{pool: pool}
}

// Summary describes a stored document without its body.
type Summary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Version   int    `json:"version"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

const (
	sqlInsertDocument = `INSERT INTO documents (id, name) VALUES ($1, $2) RETURNING created_at, updated_at`
	sqlTouchDocument  = `UPDATE documents SET name = $2, updated_at = now() WHERE id = $1`
	sqlInsertSnapshot = `INSERT INTO document_snapshots (id, document_id, version, body)
SELECT $1, $2, COALESCE(MAX(version), 0) + 1, $3 FROM document_snapshots WHERE document_id = $2
RETURNING version`
	sqlLatestSnapshot = `SELECT body, version FROM document_snapshots WHERE document_id = $1 ORDER BY version DESC LIMIT 1`
	sqlListDocuments  = `SELECT d.id, d.name, COALESCE(MAX(s.version), 0), d.created_at, d.updated_at
FROM documents d LEFT JOIN document_snapshots s ON s.document_id = d.id
GROUP BY d.id ORDER BY d.updated_at DESC`
	sqlDeleteDocument = `DELETE FROM documents WHERE id = $1`
)

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Create stores a new document as version 1. An empty document id is
// replaced with a fresh one.
func (s *Store) Create(ctx context.Context, doc *document.Document) (sum *Summary, err error) {
	if doc.ID == "" {
		doc.ID = typeid.NewDocumentID()
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var created, updated time.Time
	if err = tx.QueryRow(ctx, sqlInsertDocument, doc.ID, doc.Name).Scan(&created, &updated); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	var version int
	if err = tx.QueryRow(ctx, sqlInsertSnapshot, typeid.NewSnapshotID(), doc.ID, body).Scan(&version); err != nil {
		return nil, fmt.Errorf("create snapshot: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &Summary{
		ID:        doc.ID,
		Name:      doc.Name,
		Version:   version,
		CreatedAt: formatTime(created),
		UpdatedAt: formatTime(updated),
	}, nil
}

// Save appends a snapshot of an existing document and returns its version.
func (s *Store) Save(ctx context.Context, doc *document.Document) (version int, err error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("marshal document: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	tag, err := tx.Exec(ctx, sqlTouchDocument, doc.ID, doc.Name)
	if err != nil {
		return 0, fmt.Errorf("update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		err = ErrNotFound
		return 0, err
	}
	if err = tx.QueryRow(ctx, sqlInsertSnapshot, typeid.NewSnapshotID(), doc.ID, body).Scan(&version); err != nil {
		return 0, fmt.Errorf("create snapshot: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return version, nil
}

// Latest returns the newest snapshot of a document.
func (s *Store) Latest(ctx context.Context, id string) (*document.Document, int, error) {
	var body []byte
	var version int
	err := s.pool.QueryRow(ctx, sqlLatestSnapshot, id).Scan(&body, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, fmt.Errorf("get snapshot: %w", err)
	}
	doc, err := document.Parse(body)
	if err != nil {
		return nil, 0, err
	}
	doc.Version = version
	return doc, version, nil
}

// List returns all documents, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.pool.Query(ctx, sqlListDocuments)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var sum Summary
		var created, updated time.Time
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.Version, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		sum.CreatedAt = formatTime(created)
		sum.UpdatedAt = formatTime(updated)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return out, nil
}

// Delete removes a document and all of its snapshots.
func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, sqlDeleteDocument, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
