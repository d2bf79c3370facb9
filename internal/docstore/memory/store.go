// Package memory is an in-process docstore backend used by tests and by the
// offline development mode.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wingmentor/wingmentor-api/internal/docstore"
)

type record struct {
	seq  int64
	data map[string]any
}

// Store keeps collections in maps guarded by a single RWMutex. Transactions
// are serialized and rolled back from an undo log on error.
type Store struct {
	mu          sync.RWMutex
	txMu        sync.Mutex
	collections map[string]map[string]*record
	seq         int64
	closed      bool

	watches *docstore.WatchSet

	now   func() time.Time
	newID func() string
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the server clock
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides id assignment for Insert
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// New creates an empty in-memory store
func New(opts ...Option) *Store {
	s := &Store{
		collections: make(map[string]map[string]*record),
		watches:     docstore.NewWatchSet(),
		now:         time.Now,
		newID:       func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ docstore.Store = (*Store)(nil)

func (s *Store) Get(_ context.Context, collection, id string) (*docstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, docstore.ErrClosed
	}
	rec, ok := s.collections[collection][id]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return &docstore.Document{ID: id, Data: docstore.CloneData(rec.data)}, nil
}

func (s *Store) Query(_ context.Context, q docstore.Query) ([]docstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, docstore.ErrClosed
	}
	return s.queryLocked(q), nil
}

func (s *Store) queryLocked(q docstore.Query) []docstore.Document {
	coll := s.collections[q.Collection]
	docs := make([]docstore.Sequenced, 0, len(coll))
	for id, rec := range coll {
		docs = append(docs, docstore.Sequenced{
			Document: docstore.Document{ID: id, Data: rec.data},
			Seq:      rec.seq,
		})
	}
	return docstore.Arrange(docs, q)
}

func (s *Store) Insert(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := s.newID()
	if err := s.write(collection, id, func(existing *record) (map[string]any, error) {
		if existing != nil {
			return nil, docstore.ErrAlreadyExists
		}
		return docstore.ResolveJSON(nil, data, s.now())
	}, nil); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Create(_ context.Context, collection, id string, data map[string]any) error {
	return s.write(collection, id, func(existing *record) (map[string]any, error) {
		if existing != nil {
			return nil, docstore.ErrAlreadyExists
		}
		return docstore.ResolveJSON(nil, data, s.now())
	}, nil)
}

func (s *Store) Update(_ context.Context, collection, id string, patch map[string]any) error {
	return s.write(collection, id, func(existing *record) (map[string]any, error) {
		if existing == nil {
			return nil, docstore.ErrNotFound
		}
		return docstore.ResolveJSON(existing.data, patch, s.now())
	}, nil)
}

func (s *Store) Merge(_ context.Context, collection, id string, patch map[string]any) error {
	return s.write(collection, id, func(existing *record) (map[string]any, error) {
		var current map[string]any
		if existing != nil {
			current = existing.data
		}
		return docstore.ResolveJSON(current, patch, s.now())
	}, nil)
}

// write applies mutate under the write lock. When undo is non-nil the prior
// state is recorded there and subscribers are not notified yet.
func (s *Store) write(collection, id string, mutate func(existing *record) (map[string]any, error), undo *undoLog) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return docstore.ErrClosed
	}

	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]*record)
		s.collections[collection] = coll
	}
	existing := coll[id]

	data, err := mutate(existing)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	if undo != nil {
		undo.record(collection, id, existing)
	}

	if existing != nil {
		coll[id] = &record{seq: existing.seq, data: data}
	} else {
		s.seq++
		coll[id] = &record{seq: s.seq, data: data}
	}
	s.mu.Unlock()

	if undo == nil {
		s.watches.Notify(collection)
	}
	return nil
}

func (s *Store) Subscribe(ctx context.Context, q docstore.Query, fn func([]docstore.Document)) (docstore.Unsubscribe, error) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, docstore.ErrClosed
	}

	return s.watches.Start(ctx, q, func(ctx context.Context) ([]docstore.Document, error) {
		return s.Query(ctx, q)
	}, fn), nil
}

func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &transaction{store: s, undo: &undoLog{}}
	if err := fn(ctx, tx); err != nil {
		s.rollback(tx.undo)
		return err
	}

	for collection := range tx.undo.collections() {
		s.watches.Notify(collection)
	}
	return nil
}

func (s *Store) rollback(undo *undoLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(undo.entries) - 1; i >= 0; i-- {
		e := undo.entries[i]
		coll := s.collections[e.collection]
		if e.prior == nil {
			delete(coll, e.id)
		} else {
			coll[e.id] = e.prior
		}
	}
}

func (s *Store) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return docstore.ErrClosed
	}
	return nil
}

// Close stops all subscriptions and rejects further calls
func (s *Store) Close(context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.watches.StopAll()
	return nil
}

// Len returns the number of documents in a collection
func (s *Store) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}
