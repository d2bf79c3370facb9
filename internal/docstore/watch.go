package docstore

import (
	"context"
	"reflect"
	"sync"

	"github.com/wingmentor/wingmentor-api/pkg/logger"
	"github.com/wingmentor/wingmentor-api/pkg/metrics"
	"go.uber.org/zap"
)

// Watch drives one live query: it runs the query once on start and again on
// every Notify, handing each snapshot to the callback from its own goroutine.
// Notifications that arrive while a snapshot is being built coalesce, and a
// snapshot identical to the previous one is not delivered again.
type Watch struct {
	query  Query
	run    func(ctx context.Context) ([]Document, error)
	fn     func([]Document)
	signal chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// StartWatch launches the watch goroutine. run is evaluated with a context
// that is cancelled on Stop.
func StartWatch(ctx context.Context, q Query, run func(ctx context.Context) ([]Document, error), fn func([]Document)) *Watch {
	wctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w := &Watch{
		query:  q,
		run:    run,
		fn:     fn,
		signal: make(chan struct{}, 1),
		ctx:    wctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	metrics.ActiveSubscriptions.Inc()
	w.Notify()
	go w.loop()
	return w
}

// Query returns the watched query
func (w *Watch) Query() Query {
	return w.query
}

// Context is cancelled when the watch stops
func (w *Watch) Context() context.Context {
	return w.ctx
}

// Notify schedules a re-run of the query
func (w *Watch) Notify() {
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

// Stop ends the watch. It does not wait for an in-flight callback.
func (w *Watch) Stop() {
	w.once.Do(func() {
		w.cancel()
		metrics.ActiveSubscriptions.Dec()
	})
}

// Done is closed once the watch goroutine has exited
func (w *Watch) Done() <-chan struct{} {
	return w.done
}

func (w *Watch) loop() {
	defer close(w.done)
	var last []Document
	delivered := false
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.signal:
		}

		docs, err := w.run(w.ctx)
		if err != nil {
			if w.ctx.Err() != nil {
				return
			}
			logger.Warn("Live query refresh failed",
				zap.String("query", w.query.String()),
				zap.Error(err))
			continue
		}
		if w.ctx.Err() != nil {
			return
		}
		if delivered && reflect.DeepEqual(last, docs) {
			continue
		}
		last, delivered = docs, true
		w.fn(cloneDocuments(docs))
	}
}

func cloneDocuments(docs []Document) []Document {
	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = Document{ID: d.ID, Data: CloneData(d.Data)}
	}
	return out
}

// WatchSet tracks the live queries of a backend so writes can wake them
type WatchSet struct {
	mu      sync.Mutex
	watches map[*Watch]struct{}
}

// NewWatchSet returns an empty set
func NewWatchSet() *WatchSet {
	return &WatchSet{watches: make(map[*Watch]struct{})}
}

// Start launches a watch and registers it. The returned Unsubscribe removes
// and stops it.
func (s *WatchSet) Start(ctx context.Context, q Query, run func(ctx context.Context) ([]Document, error), fn func([]Document)) Unsubscribe {
	w := StartWatch(ctx, q, run, fn)
	s.mu.Lock()
	s.watches[w] = struct{}{}
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watches, w)
		s.mu.Unlock()
		w.Stop()
	}
}

// Notify wakes the watches on collection
func (s *WatchSet) Notify(collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for w := range s.watches {
		if w.query.Collection == collection {
			w.Notify()
		}
	}
}

// NotifyAll wakes every watch
func (s *WatchSet) NotifyAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for w := range s.watches {
		w.Notify()
	}
}

// Len returns the number of registered watches
func (s *WatchSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watches)
}

// StopAll stops and forgets every watch
func (s *WatchSet) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for w := range s.watches {
		w.Stop()
		delete(s.watches, w)
	}
}
