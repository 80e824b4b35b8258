package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"qzsync/internal/qzerr"
)

//go:embed schema.sql
var schemaSQL string

// Store manages feed, message, cookie, and block persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &Store{db: db, path: path}
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if err := s.ensureCookieSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// ensureCookieSchema verifies the persisted cookie table carries every
// required credential column, dropping and recreating it otherwise.
func (s *Store) ensureCookieSchema(ctx context.Context) error {
	var name string
	err := s.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'cookie'",
	).Scan(&name)
	exists := err == nil
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("check cookie table: %w", err)
	}

	if exists {
		rows, err := s.db.QueryContext(ctx, "PRAGMA table_info(cookie)")
		if err != nil {
			return fmt.Errorf("cookie table info: %w", err)
		}
		defer rows.Close()

		present := make(map[string]struct{})
		for rows.Next() {
			var (
				cid     int
				colName string
				typeStr string
				notNull int
				dflt    any
				pk      int
			)
			if err := rows.Scan(&cid, &colName, &typeStr, &notNull, &dflt, &pk); err != nil {
				return fmt.Errorf("scan cookie table info: %w", err)
			}
			present[strings.ToLower(colName)] = struct{}{}
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate cookie table info: %w", err)
		}

		complete := true
		for _, col := range cookieColumns {
			if _, ok := present[col]; !ok {
				complete = false
				break
			}
		}
		if complete {
			return nil
		}
		if _, err := s.db.ExecContext(ctx, "DROP TABLE cookie"); err != nil {
			return fmt.Errorf("drop stale cookie table: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx, `CREATE TABLE cookie (
        uin         INTEGER PRIMARY KEY,
        p_skey      VARCHAR NOT NULL,
        pt4_token   VARCHAR NOT NULL,
        pt_guid_sig VARCHAR NOT NULL,
        ptcz        VARCHAR NOT NULL
    )`)
	if err != nil {
		return fmt.Errorf("create cookie table: %w", err)
	}
	return nil
}

func storageErr(operation string, err error) error {
	return qzerr.Wrap(qzerr.ErrStorage, "store", operation, "", err)
}
