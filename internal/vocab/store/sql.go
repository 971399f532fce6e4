package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/review-vocab/internal/vocab/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/errors"
)

// Database is implemented by the postgres and sqlite clients.
type Database interface {
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Placeholder(n int) string
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS vocab_indexes (
		name     TEXT PRIMARY KEY,
		size     INTEGER NOT NULL,
		built_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS vocab_entries (
		name TEXT NOT NULL REFERENCES vocab_indexes(name) ON DELETE CASCADE,
		word TEXT NOT NULL,
		id   INTEGER NOT NULL,
		PRIMARY KEY (name, id)
	)`,
}

// SQLStore keeps one row per vocabulary entry. A save replaces the whole
// index in a single transaction.
type SQLStore struct {
	db Database
}

// NewSQLStore creates the tables if they do not exist.
func NewSQLStore(ctx context.Context, db Database) (*SQLStore, error) {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("creating vocabulary schema: %w", err)
		}
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Save(ctx context.Context, name string, ix *index.Index) error {
	p := s.db.Placeholder
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM vocab_entries WHERE name = %s`, p(1)), name); err != nil {
			return fmt.Errorf("clearing entries of %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM vocab_indexes WHERE name = %s`, p(1)), name); err != nil {
			return fmt.Errorf("clearing index %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO vocab_indexes (name, size, built_at) VALUES (%s, %s, %s)`, p(1), p(2), p(3)),
			name, ix.Len(), time.Now().Unix()); err != nil {
			return fmt.Errorf("inserting index %s: %w", name, err)
		}
		stmt, err := tx.PrepareContext(ctx,
			fmt.Sprintf(`INSERT INTO vocab_entries (name, word, id) VALUES (%s, %s, %s)`, p(1), p(2), p(3)))
		if err != nil {
			return fmt.Errorf("preparing entry insert: %w", err)
		}
		defer stmt.Close()
		for _, e := range ix.Entries() {
			if _, err := stmt.ExecContext(ctx, name, e.Word, e.ID); err != nil {
				return fmt.Errorf("inserting entry %d of %s: %w", e.ID, name, err)
			}
		}
		return nil
	})
}

func (s *SQLStore) Load(ctx context.Context, name string) (*index.Index, error) {
	p := s.db.Placeholder
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT size FROM vocab_indexes WHERE name = %s`, p(1)), name)
	if err != nil {
		return nil, fmt.Errorf("querying index %s: %w", name, err)
	}
	var size int
	found := rows.Next()
	if found {
		err = rows.Scan(&size)
	}
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("scanning index %s: %w", name, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: table vocab_indexes, name %s", ErrNotFound, name)
	}

	rows, err = s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT word, id FROM vocab_entries WHERE name = %s ORDER BY id`, p(1)), name)
	if err != nil {
		return nil, fmt.Errorf("querying entries of %s: %w", name, err)
	}
	defer rows.Close()
	entries := make([]index.Entry, 0, size)
	for rows.Next() {
		var e index.Entry
		if err := rows.Scan(&e.Word, &e.ID); err != nil {
			return nil, fmt.Errorf("scanning entry of %s: %w", name, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading entries of %s: %w", name, err)
	}

	source := "sql:" + name
	if len(entries) != size {
		return nil, apperrors.Newf(apperrors.ErrCorruptIndex, source,
			"%d entries stored, index row says %d", len(entries), size)
	}
	ix, err := index.FromEntries(entries)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCorruptIndex, source, err.Error())
	}
	return ix, nil
}
