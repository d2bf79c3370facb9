package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/wingmentor/wingmentor-api/internal/docstore"
)

type transaction struct {
	tx    pgx.Tx
	store *Store
}

var _ docstore.Tx = (*transaction)(nil)

// Lock takes a transaction-scoped advisory lock on key
func (t *transaction) Lock(ctx context.Context, key string) error {
	if _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("lock %q: %w", key, err)
	}
	return nil
}

func (t *transaction) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	return get(ctx, t.tx, collection, id, false)
}

func (t *transaction) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	return query(ctx, t.tx, q)
}

func (t *transaction) Insert(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := t.store.newID()
	if err := insert(ctx, t.tx, collection, id, data, t.store.now()); err != nil {
		return "", err
	}
	return id, nil
}

func (t *transaction) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	return update(ctx, t.tx, collection, id, patch, t.store.now())
}
