// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS subscriber_document (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	body       BLOB    NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteBackend keeps the document in a single-row SQLite table.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens the database file at path and creates the table.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer; the store already serializes saves
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

// Name returns "sqlite".
func (s *SQLiteBackend) Name() string {
	return BackendSQLite
}

// Load reads the document row.
func (s *SQLiteBackend) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var body []byte
	err := s.db.QueryRowContext(ctx, "SELECT body FROM subscriber_document WHERE id = 1").Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select document: %w", err)
	}
	return body, nil
}

// Save replaces the document row in one transaction.
func (s *SQLiteBackend) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO subscriber_document (id, body, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		data, time.Now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit document: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (s *SQLiteBackend) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
