package services_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wingmentor/wingmentor-api/internal/docstore"
	"github.com/wingmentor/wingmentor-api/internal/docstore/memory"
	"github.com/wingmentor/wingmentor-api/internal/repository"
	"github.com/wingmentor/wingmentor-api/pkg/logger"
)

func init() {
	// Initialize logger for tests
	if err := logger.Initialize(logger.Config{
		Level:       "debug",
		Environment: "development",
	}); err != nil {
		panic(err)
	}
}

var baseTime = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

// tickingClock advances one millisecond per reading so server timestamps
// are distinct and increasing
func tickingClock() func() time.Time {
	var mu sync.Mutex
	now := baseTime
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Millisecond)
		return now
	}
}

func newMemoryStore() *memory.Store {
	return memory.New(memory.WithClock(tickingClock()))
}

// countingStore counts document updates, in and out of transactions
type countingStore struct {
	*memory.Store
	updates atomic.Int32
}

func (s *countingStore) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	s.updates.Add(1)
	return s.Store.Update(ctx, collection, id, patch)
}

func (s *countingStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	return s.Store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return fn(ctx, &countingTx{Tx: tx, updates: &s.updates})
	})
}

type countingTx struct {
	docstore.Tx
	updates *atomic.Int32
}

func (t *countingTx) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	t.updates.Add(1)
	return t.Tx.Update(ctx, collection, id, patch)
}

// clientView models a client whose log queries only see its own inserts,
// as with per-client read-after-write consistency before the other client's
// write has propagated
type clientView struct {
	docstore.Store
	mu   sync.Mutex
	mine map[string]bool
}

func newClientView(store docstore.Store) *clientView {
	return &clientView{Store: store, mine: make(map[string]bool)}
}

func (v *clientView) Insert(ctx context.Context, collection string, data map[string]any) (string, error) {
	id, err := v.Store.Insert(ctx, collection, data)
	if err == nil {
		v.mu.Lock()
		v.mine[id] = true
		v.mu.Unlock()
	}
	return id, err
}

func (v *clientView) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	docs, err := v.Store.Query(ctx, q)
	if err != nil || q.Collection != repository.LogsCollection {
		return docs, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	visible := docs[:0]
	for _, d := range docs {
		if v.mine[d.ID] {
			visible = append(visible, d)
		}
	}
	return visible, nil
}

// failingStore rejects writes
type failingStore struct {
	*memory.Store
	err error
}

func (s *failingStore) Insert(context.Context, string, map[string]any) (string, error) {
	return "", s.err
}

func (s *failingStore) RunTransaction(context.Context, func(ctx context.Context, tx docstore.Tx) error) error {
	return s.err
}
