// Package storage is the SQLite-backed local document cache. Every entity is
// stored as a JSON document keyed by (user, collection, id); a sync_state
// column drives the asynchronous mirroring to the remote store.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"farmtrack/internal/core"
	"farmtrack/internal/store"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteStore)(nil)

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrateUp(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// putDocument upserts one document and resets its sync state to pending.
func (s *SQLiteStore) putDocument(ctx context.Context, user, collection, docID string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s document: %w", collection, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (user_id, collection, doc_id, body, updated_at, sync_state)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, 0)
		ON CONFLICT (user_id, collection, doc_id)
		DO UPDATE SET body = excluded.body, updated_at = CURRENT_TIMESTAMP, sync_state = 0`,
		user, collection, docID, string(body))
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, docID, err)
	}

	slog.DebugContext(ctx, "Document saved",
		"user", user, "collection", collection, "doc_id", docID)
	return nil
}

func (s *SQLiteStore) getDocument(ctx context.Context, user, collection, docID string, out any) error {
	var body string
	err := s.db.QueryRowContext(ctx, `
		SELECT body FROM documents
		WHERE user_id = ? AND collection = ? AND doc_id = ?`,
		user, collection, docID).Scan(&body)
	if err == sql.ErrNoRows {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s/%s: %w", collection, docID, err)
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("decode %s/%s: %w", collection, docID, err)
	}
	return nil
}

func (s *SQLiteStore) deleteDocument(ctx context.Context, user, collection, docID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM documents
		WHERE user_id = ? AND collection = ? AND doc_id = ?`,
		user, collection, docID)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, docID, err)
	}
	return nil
}

// listDocuments scans a whole collection; decode failures skip the record
// rather than failing the listing, so one corrupt row cannot take down
// reporting.
func listDocuments[T any](ctx context.Context, s *SQLiteStore, user, collection string) ([]T, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, body FROM documents
		WHERE user_id = ? AND collection = ?
		ORDER BY created_at`,
		user, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var docID, body string
		if err := rows.Scan(&docID, &body); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", collection, err)
		}
		var doc T
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			slog.WarnContext(ctx, "Skipping undecodable document",
				"collection", collection, "doc_id", docID, "error", err)
			continue
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListExpenses(ctx context.Context, user string) ([]core.Expense, error) {
	return listDocuments[core.Expense](ctx, s, user, store.CollectionExpenses)
}

func (s *SQLiteStore) GetExpense(ctx context.Context, user, id string) (core.Expense, error) {
	var e core.Expense
	if err := s.getDocument(ctx, user, store.CollectionExpenses, id, &e); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func (s *SQLiteStore) PutExpense(ctx context.Context, user string, e core.Expense) error {
	if e.ID == "" {
		return fmt.Errorf("put expense: missing id")
	}
	return s.putDocument(ctx, user, store.CollectionExpenses, e.ID, e)
}

func (s *SQLiteStore) DeleteExpense(ctx context.Context, user, id string) error {
	return s.deleteDocument(ctx, user, store.CollectionExpenses, id)
}

func (s *SQLiteStore) ListCategories(ctx context.Context, user string) ([]core.Category, error) {
	return listDocuments[core.Category](ctx, s, user, store.CollectionCategories)
}

func (s *SQLiteStore) PutCategory(ctx context.Context, user string, c core.Category) error {
	if c.ID == "" {
		return fmt.Errorf("put category: missing id")
	}
	return s.putDocument(ctx, user, store.CollectionCategories, c.ID, c)
}

func (s *SQLiteStore) DeleteCategory(ctx context.Context, user, id string) error {
	return s.deleteDocument(ctx, user, store.CollectionCategories, id)
}

func (s *SQLiteStore) ListSubcategories(ctx context.Context, user string) ([]core.Subcategory, error) {
	return listDocuments[core.Subcategory](ctx, s, user, store.CollectionSubcategories)
}

func (s *SQLiteStore) PutSubcategory(ctx context.Context, user string, sc core.Subcategory) error {
	if sc.ID == "" {
		return fmt.Errorf("put subcategory: missing id")
	}
	return s.putDocument(ctx, user, store.CollectionSubcategories, sc.ID, sc)
}

func (s *SQLiteStore) DeleteSubcategory(ctx context.Context, user, id string) error {
	if id == core.OthersSubcategoryID {
		return core.ErrReservedSubcategory
	}
	return s.deleteDocument(ctx, user, store.CollectionSubcategories, id)
}

func (s *SQLiteStore) ListMilestones(ctx context.Context, user string) ([]core.Milestone, error) {
	return listDocuments[core.Milestone](ctx, s, user, store.CollectionMilestones)
}

func (s *SQLiteStore) PutMilestone(ctx context.Context, user string, m core.Milestone) error {
	if m.ID == "" {
		return fmt.Errorf("put milestone: missing id")
	}
	return s.putDocument(ctx, user, store.CollectionMilestones, m.ID, m)
}

func (s *SQLiteStore) DeleteMilestone(ctx context.Context, user, id string) error {
	return s.deleteDocument(ctx, user, store.CollectionMilestones, id)
}

func (s *SQLiteStore) GetFarmInfo(ctx context.Context, user string) (core.FarmInfo, error) {
	var info core.FarmInfo
	err := s.getDocument(ctx, user, store.CollectionFarmData, store.FarmMetadataKey, &info)
	if err == store.ErrNotFound {
		return core.FarmInfo{}, nil
	}
	if err != nil {
		return core.FarmInfo{}, err
	}
	return info, nil
}

func (s *SQLiteStore) PutFarmInfo(ctx context.Context, user string, info core.FarmInfo) error {
	return s.putDocument(ctx, user, store.CollectionFarmData, store.FarmMetadataKey, info)
}

// PendingDocument identifies one document awaiting remote sync.
type PendingDocument struct {
	UserID     string
	Collection string
	DocID      string
	Body       string
	UpdatedAt  time.Time
}

// GetPendingSync returns up to limit documents still waiting to be mirrored
// to the remote store, oldest first.
func (s *SQLiteStore) GetPendingSync(ctx context.Context, limit int) ([]PendingDocument, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, collection, doc_id, body, updated_at FROM documents
		WHERE sync_state = 0
		ORDER BY updated_at
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending documents: %w", err)
	}
	defer rows.Close()

	var out []PendingDocument
	for rows.Next() {
		var p PendingDocument
		if err := rows.Scan(&p.UserID, &p.Collection, &p.DocID, &p.Body, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan pending document: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetDocumentBody fetches one raw document for the sync pipeline.
func (s *SQLiteStore) GetDocumentBody(ctx context.Context, user, collection, docID string) (string, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `
		SELECT body FROM documents
		WHERE user_id = ? AND collection = ? AND doc_id = ?`,
		user, collection, docID).Scan(&body)
	if err == sql.ErrNoRows {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get document body %s/%s: %w", collection, docID, err)
	}
	return body, nil
}

// MarkSynced records a successful remote mirror of one document.
func (s *SQLiteStore) MarkSynced(ctx context.Context, user, collection, docID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE documents SET sync_state = 1
		WHERE user_id = ? AND collection = ? AND doc_id = ?`,
		user, collection, docID)
	if err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	return nil
}

// MarkSyncError flags a document whose remote mirror failed; the periodic
// sweep does not retry errored documents.
func (s *SQLiteStore) MarkSyncError(ctx context.Context, user, collection, docID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE documents SET sync_state = 2
		WHERE user_id = ? AND collection = ? AND doc_id = ?`,
		user, collection, docID)
	if err != nil {
		return fmt.Errorf("mark sync error: %w", err)
	}
	slog.WarnContext(ctx, "Document marked with sync error",
		"user", user, "collection", collection, "doc_id", docID)
	return nil
}
