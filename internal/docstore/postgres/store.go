// Package postgres stores documents as JSONB rows in a single table and
// drives live queries from LISTEN/NOTIFY.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wingmentor/wingmentor-api/internal/docstore"
)

const (
	// NotifyChannel is raised by the documents trigger with the collection as payload
	NotifyChannel = "docstore_changes"

	uniqueViolation = "23505"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the PostgreSQL docstore backend
type Store struct {
	pool  *pgxpool.Pool
	now   func() time.Time
	newID func() string

	watches  *docstore.WatchSet
	mu       sync.Mutex
	listener *listener
	closed   bool
}

// New wraps an open pool. The schema is created by the migrations package.
func New(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:    pool,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
		watches: docstore.NewWatchSet(),
	}
}

var _ docstore.Store = (*Store)(nil)

func (s *Store) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	return get(ctx, s.pool, collection, id, false)
}

func get(ctx context.Context, q querier, collection, id string, forUpdate bool) (*docstore.Document, error) {
	sql := `SELECT data FROM documents WHERE collection = $1 AND id = $2`
	if forUpdate {
		sql += ` FOR UPDATE`
	}

	var raw []byte
	if err := q.QueryRow(ctx, sql, collection, id).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	return query(ctx, s.pool, q)
}

// buildQuery renders q as SQL. Field names travel as parameters so callers
// never splice identifiers into the statement.
func buildQuery(q docstore.Query) (string, []any, error) {
	var b strings.Builder
	args := []any{q.Collection}
	b.WriteString(`SELECT id, data FROM documents WHERE collection = $1`)

	for _, f := range q.Filters {
		value, err := docstore.Normalize(f.Value)
		if err != nil {
			return "", nil, err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return "", nil, err
		}
		args = append(args, f.Field, string(encoded))
		fmt.Fprintf(&b, ` AND data -> $%d::text = $%d::jsonb`, len(args)-1, len(args))
	}

	if q.Order != nil {
		// missing fields sort as the smallest value in both directions
		dir, nulls := "ASC", "NULLS FIRST"
		if q.Order.Direction == docstore.Desc {
			dir, nulls = "DESC", "NULLS LAST"
		}
		args = append(args, q.Order.Field)
		fmt.Fprintf(&b, ` ORDER BY data -> $%d::text %s %s, seq %s`, len(args), dir, nulls, dir)
	} else {
		b.WriteString(` ORDER BY seq ASC`)
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&b, ` LIMIT $%d`, len(args))
	}
	return b.String(), args, nil
}

func query(ctx context.Context, db querier, q docstore.Query) ([]docstore.Document, error) {
	sql, args, err := buildQuery(q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	defer rows.Close()

	docs := []docstore.Document{}
	for rows.Next() {
		var id string
		var raw []byte
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

func (s *Store) Insert(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := s.newID()
	if err := insert(ctx, s.pool, collection, id, data, s.now()); err != nil {
		return "", err
	}
	return id, nil
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

	_, err = db.Exec(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)`,
		collection, id, string(raw))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return docstore.ErrAlreadyExists
		}
		return fmt.Errorf("insert %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, collection, id string, data map[string]any) error {
	return insert(ctx, s.pool, collection, id, data, s.now())
}

func (s *Store) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return update(ctx, tx, collection, id, patch, s.now())
	})
}

func update(ctx context.Context, db querier, collection, id string, patch map[string]any, now time.Time) error {
	existing, err := get(ctx, db, collection, id, true)
	if err != nil {
		return err
	}
	resolved, err := docstore.ResolveJSON(existing.Data, patch, now)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(resolved)
	if err != nil {
		return err
	}

	_, err = db.Exec(ctx,
		`UPDATE documents SET data = $3::jsonb, updated_at = now() WHERE collection = $1 AND id = $2`,
		collection, id, string(raw))
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Merge(ctx context.Context, collection, id string, patch map[string]any) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var current map[string]any
		existing, err := get(ctx, tx, collection, id, true)
		switch {
		case err == nil:
			current = existing.Data
		case !errors.Is(err, docstore.ErrNotFound):
			return err
		}

		resolved, err := docstore.ResolveJSON(current, patch, s.now())
		if err != nil {
			return err
		}
		raw, err := json.Marshal(resolved)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)
			ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
			collection, id, string(raw))
		if err != nil {
			return fmt.Errorf("merge %s/%s: %w", collection, id, err)
		}
		return nil
	})
}

func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &transaction{tx: tx, store: s})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close stops live queries. The pool belongs to the caller.
func (s *Store) Close(context.Context) error {
	s.mu.Lock()
	s.closed = true
	l := s.listener
	s.listener = nil
	s.mu.Unlock()

	if l != nil {
		l.stop()
	}
	s.watches.StopAll()
	return nil
}

func decode(raw []byte) (map[string]any, error) {
	data := map[string]any{}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}
