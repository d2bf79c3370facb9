// Package sqlite is a single-file docstore backend for local development and
// the wingctl tooling. Documents are JSON text queried with json_extract.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/wingmentor/wingmentor-api/internal/docstore"
)

//go:embed schema.sql
var schemaSQL string

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the SQLite docstore backend. A single connection serializes all
// access, so transactions never interleave.
type Store struct {
	db      *sql.DB
	now     func() time.Time
	newID   func() string
	watches *docstore.WatchSet

	mu     sync.Mutex
	closed bool
}

// Open creates or opens the database at path (":memory:" works too) and
// applies the schema.
func Open(path string) (*Store, error) {
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn += sep + "_txlock=immediate"

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{
		db:      db,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
		watches: docstore.NewWatchSet(),
	}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

var _ docstore.Store = (*Store)(nil)

// jsonPath addresses a top-level field, quoted so any field name is safe
func jsonPath(field string) string {
	return `$."` + strings.ReplaceAll(field, `"`, `\"`) + `"`
}

func (s *Store) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	return get(ctx, s.db, collection, id)
}

func get(ctx context.Context, db querier, collection, id string) (*docstore.Document, error) {
	var raw string
	err := db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, docstore.ErrNotFound
		}
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	data, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return &docstore.Document{ID: id, Data: data}, nil
}

// buildQuery renders q. Both sides of a filter pass through json_extract so
// that numbers, strings and booleans compare with SQLite's own affinity.
func buildQuery(q docstore.Query) (string, []any, error) {
	var b strings.Builder
	args := []any{q.Collection}
	b.WriteString(`SELECT id, data FROM documents WHERE collection = ?`)

	for _, f := range q.Filters {
		value, err := docstore.Normalize(f.Value)
		if err != nil {
			return "", nil, err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return "", nil, err
		}
		b.WriteString(` AND json_extract(data, ?) = json_extract(?, '$')`)
		args = append(args, jsonPath(f.Field), string(encoded))
	}

	if q.Order != nil {
		dir := "ASC"
		if q.Order.Direction == docstore.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&b, ` ORDER BY json_extract(data, ?) %s, seq %s`, dir, dir)
		args = append(args, jsonPath(q.Order.Field))
	} else {
		b.WriteString(` ORDER BY seq ASC`)
	}

	if q.Limit > 0 {
		b.WriteString(` LIMIT ?`)
		args = append(args, q.Limit)
	}
	return b.String(), args, nil
}

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	return query(ctx, s.db, q)
}

func query(ctx context.Context, db querier, q docstore.Query) ([]docstore.Document, error) {
	stmt, args, err := buildQuery(q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}

	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	defer rows.Close()

	docs := []docstore.Document{}
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.Collection, err)
		}
		data, err := decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", q.Collection, id, err)
		}
		docs = append(docs, docstore.Document{ID: id, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	return docs, nil
}

func insert(ctx context.Context, db querier, collection, id string, data map[string]any, now time.Time) error {
	resolved, err := docstore.ResolveJSON(nil, data, now)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(resolved)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)`, collection, id, string(raw))
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return docstore.ErrAlreadyExists
		}
		return fmt.Errorf("insert %s/%s: %w", collection, id, err)
	}
	return nil
}

func update(ctx context.Context, db querier, collection, id string, patch map[string]any, now time.Time, upsert bool) error {
	var current map[string]any
	existing, err := get(ctx, db, collection, id)
	switch {
	case err == nil:
		current = existing.Data
	case errors.Is(err, docstore.ErrNotFound) && upsert:
	default:
		return err
	}

	resolved, err := docstore.ResolveJSON(current, patch, now)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(resolved)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET
			data = excluded.data,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
		collection, id, string(raw))
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := s.newID()
	if err := s.Create(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Create(ctx context.Context, collection, id string, data map[string]any) error {
	if err := insert(ctx, s.db, collection, id, data, s.now()); err != nil {
		return err
	}
	s.watches.Notify(collection)
	return nil
}

func (s *Store) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	return s.write(ctx, collection, func(tx *sql.Tx) error {
		return update(ctx, tx, collection, id, patch, s.now(), false)
	})
}

func (s *Store) Merge(ctx context.Context, collection, id string, patch map[string]any) error {
	return s.write(ctx, collection, func(tx *sql.Tx) error {
		return update(ctx, tx, collection, id, patch, s.now(), true)
	})
}

// write runs a read-modify-write in its own transaction
func (s *Store) write(ctx context.Context, collection string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.watches.Notify(collection)
	return nil
}

func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	tx := &transaction{tx: sqlTx, store: s, touched: make(map[string]struct{})}
	if err := fn(ctx, tx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	for collection := range tx.touched {
		s.watches.Notify(collection)
	}
	return nil
}

func (s *Store) Subscribe(ctx context.Context, q docstore.Query, fn func([]docstore.Document)) (docstore.Unsubscribe, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, docstore.ErrClosed
	}

	return s.watches.Start(ctx, q, func(ctx context.Context) ([]docstore.Document, error) {
		return s.Query(ctx, q)
	}, fn), nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close(context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.watches.StopAll()
	return s.db.Close()
}

func decode(raw string) (map[string]any, error) {
	data := map[string]any{}
	if raw == "" {
		return data, nil
	}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, err
	}
	return data, nil
}
