package memory

import (
	"context"

	"github.com/wingmentor/wingmentor-api/internal/docstore"
)

type undoEntry struct {
	collection string
	id         string
	prior      *record
}

type undoLog struct {
	entries []undoEntry
}

func (u *undoLog) record(collection, id string, prior *record) {
	u.entries = append(u.entries, undoEntry{collection: collection, id: id, prior: prior})
}

func (u *undoLog) collections() map[string]struct{} {
	out := make(map[string]struct{}, len(u.entries))
	for _, e := range u.entries {
		out[e.collection] = struct{}{}
	}
	return out
}

// transaction runs with the store's txMu held, so Lock has nothing left to do
type transaction struct {
	store *Store
	undo  *undoLog
}

var _ docstore.Tx = (*transaction)(nil)

func (t *transaction) Lock(ctx context.Context, _ string) error {
	return ctx.Err()
}

func (t *transaction) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	return t.store.Get(ctx, collection, id)
}

func (t *transaction) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	return t.store.Query(ctx, q)
}

func (t *transaction) Insert(ctx context.Context, collection string, data map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s := t.store
	id := s.newID()
	err := s.write(collection, id, func(existing *record) (map[string]any, error) {
		if existing != nil {
			return nil, docstore.ErrAlreadyExists
		}
		return docstore.ResolveJSON(nil, data, s.now())
	}, t.undo)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (t *transaction) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := t.store
	return s.write(collection, id, func(existing *record) (map[string]any, error) {
		if existing == nil {
			return nil, docstore.ErrNotFound
		}
		return docstore.ResolveJSON(existing.data, patch, s.now())
	}, t.undo)
}
