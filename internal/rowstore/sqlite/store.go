// Package sqlite is a file-backed row store for local runs and tests.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/mikequentel/sheetposter/internal/model"
	"github.com/mikequentel/sheetposter/internal/rowstore"
)

const schema = `CREATE TABLE IF NOT EXISTS content_rows (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	image_url  TEXT NOT NULL,
	caption    TEXT NOT NULL,
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
)`

type Store struct {
	db *sql.DB
}

var _ rowstore.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and ensures the
// schema exists. ":memory:" is accepted.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, &rowstore.ConfigError{Reason: "SQLITE_PATH is empty"}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &rowstore.ConfigError{Reason: "open sqlite", Err: err}
	}
	// One connection: sqlite serializes writers, and ":memory:" databases are
	// per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, &rowstore.StoreError{Op: "open", Err: fmt.Errorf("create schema: %w", err)}
	}
	log.Debug().Str("path", path).Msg("SQLite row store opened")
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ListRows returns every row in insertion order.
func (s *Store) ListRows(ctx context.Context) ([]model.ContentRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, image_url, caption FROM content_rows ORDER BY id`)
	if err != nil {
		return nil, &rowstore.StoreError{Op: "list", Err: err}
	}
	defer rows.Close()

	var out []model.ContentRow
	for rows.Next() {
		var (
			id       int
			imageURL string
			caption  string
		)
		if err := rows.Scan(&id, &imageURL, &caption); err != nil {
			return nil, &rowstore.StoreError{Op: "list", Err: err}
		}
		out = append(out, model.ContentRow{
			Row:       id,
			ImageURLs: model.SplitImageField(imageURL),
			Caption:   caption,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &rowstore.StoreError{Op: "list", Err: err}
	}
	if len(out) == 0 {
		return nil, &rowstore.StoreError{Op: "list", Err: rowstore.ErrNoRows}
	}
	return out, nil
}

func (s *Store) AppendRow(ctx context.Context, imageURLs, caption string) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO content_rows (image_url, caption) VALUES (?, ?)`, imageURLs, caption)
	if err != nil {
		return &rowstore.StoreError{Op: "append", Err: err}
	}
	id, _ := res.LastInsertId()
	log.Info().Int64("rowId", id).Msg("Row appended")
	return nil
}
