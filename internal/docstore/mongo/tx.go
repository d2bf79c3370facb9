package mongo

import (
	"context"
	"fmt"

	"github.com/wingmentor/wingmentor-api/internal/docstore"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// transaction relies on the session carried by ctx, which WithTransaction
// hands to the callback.
type transaction struct {
	store *Store
}

var _ docstore.Tx = (*transaction)(nil)

func (t *transaction) Lock(ctx context.Context, key string) error {
	_, err := t.store.db.Collection(locksCollection).UpdateOne(ctx,
		bson.M{fieldID: key},
		bson.M{"$inc": bson.M{"holds": 1}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("lock %q: %w", key, err)
	}
	return nil
}

func (t *transaction) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	return t.store.Get(ctx, collection, id)
}

func (t *transaction) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	return t.store.Query(ctx, q)
}

func (t *transaction) Insert(ctx context.Context, collection string, data map[string]any) (string, error) {
	return t.store.Insert(ctx, collection, data)
}

func (t *transaction) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	return t.store.Update(ctx, collection, id, patch)
}
