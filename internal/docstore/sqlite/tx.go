package sqlite

import (
	"context"
	"database/sql"

	"github.com/wingmentor/wingmentor-api/internal/docstore"
)

// transaction runs under BEGIN IMMEDIATE on the only connection, so the
// database write lock is already held and Lock has nothing to add.
type transaction struct {
	tx      *sql.Tx
	store   *Store
	touched map[string]struct{}
}

var _ docstore.Tx = (*transaction)(nil)

func (t *transaction) Lock(ctx context.Context, _ string) error {
	return ctx.Err()
}

func (t *transaction) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	return get(ctx, t.tx, collection, id)
}

func (t *transaction) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	return query(ctx, t.tx, q)
}

func (t *transaction) Insert(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := t.store.newID()
	if err := insert(ctx, t.tx, collection, id, data, t.store.now()); err != nil {
		return "", err
	}
	t.touched[collection] = struct{}{}
	return id, nil
}

func (t *transaction) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	if err := update(ctx, t.tx, collection, id, patch, t.store.now(), false); err != nil {
		return err
	}
	t.touched[collection] = struct{}{}
	return nil
}
