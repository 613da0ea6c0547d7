// Package document persists content records in SQLite.
package document

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zhouzirui/consult/backend/internal/model/content"
)

// SQLiteStore stores content records and their embeddings.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at dbPath.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// a single connection keeps ":memory:" databases shared and avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS content_records (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		source TEXT NOT NULL,
		title TEXT NOT NULL,
		category TEXT NOT NULL,
		content TEXT NOT NULL,
		vector_json TEXT NOT NULL,
		metadata_json TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_content_category ON content_records(category);
	CREATE INDEX IF NOT EXISTS idx_content_type ON content_records(type);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Upsert creates or replaces a record.
func (s *SQLiteStore) Upsert(ctx context.Context, rec content.Record) error {
	vectorJSON, err := json.Marshal(rec.Vector)
	if err != nil {
		return fmt.Errorf("encode vector: %w", err)
	}

	var metadataJSON any
	if len(rec.Metadata) > 0 {
		raw, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		metadataJSON = string(raw)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
	INSERT INTO content_records (id, type, source, title, category, content, vector_json, metadata_json, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		type = excluded.type,
		source = excluded.source,
		title = excluded.title,
		category = excluded.category,
		content = excluded.content,
		vector_json = excluded.vector_json,
		metadata_json = excluded.metadata_json,
		updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, query,
		rec.ID, rec.Type, rec.Source, rec.Title, rec.Category, rec.Content,
		string(vectorJSON), metadataJSON, createdAt.Unix(), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert content record: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, type, source, title, category, content, vector_json, metadata_json, created_at FROM content_records`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*content.Record, error) {
	var (
		rec          content.Record
		vectorJSON   string
		metadataJSON sql.NullString
		createdAt    int64
	)
	if err := row.Scan(
		&rec.ID, &rec.Type, &rec.Source, &rec.Title, &rec.Category, &rec.Content,
		&vectorJSON, &metadataJSON, &createdAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(vectorJSON), &rec.Vector); err != nil {
		return nil, fmt.Errorf("decode vector: %w", err)
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	rec.CreatedAt = time.Unix(createdAt, 0)
	return &rec, nil
}

// Get returns the record for id, or nil when it does not exist.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*content.Record, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan content record: %w", err)
	}
	return rec, nil
}

// List returns every stored record, oldest first.
func (s *SQLiteStore) List(ctx context.Context) ([]content.Record, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list content records: %w", err)
	}
	defer rows.Close()

	var records []content.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content records: %w", err)
	}
	return records, nil
}

// Delete removes id. Deleting a missing id is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM content_records WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete content record: %w", err)
	}
	return nil
}

// Count returns the number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM content_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count content records: %w", err)
	}
	return n, nil
}
