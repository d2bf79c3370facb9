package docstore

import (
	"context"
	"time"

	"github.com/wingmentor/wingmentor-api/pkg/metrics"
	"github.com/wingmentor/wingmentor-api/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Instrumented decorates a Store with metrics and tracing spans
type Instrumented struct {
	next    Store
	backend string
}

// Instrument wraps store; backend labels the spans ("postgres", "mongo", ...)
func Instrument(store Store, backend string) *Instrumented {
	return &Instrumented{next: store, backend: backend}
}

var _ Store = (*Instrumented)(nil)

func (s *Instrumented) start(ctx context.Context, op, collection string) (context.Context, trace.Span, time.Time) {
	ctx, span := tracing.StartSpan(ctx, "docstore."+op)
	span.SetAttributes(
		attribute.String("db.system", s.backend),
		attribute.String("db.operation", op),
		attribute.String("db.collection", collection),
	)
	return ctx, span, time.Now()
}

func (s *Instrumented) finish(span trace.Span, op string, start time.Time, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	metrics.ObserveStoreOperation(s.backend+"_"+op, start, err)
}

func (s *Instrumented) Get(ctx context.Context, collection, id string) (*Document, error) {
	ctx, span, start := s.start(ctx, "get", collection)
	doc, err := s.next.Get(ctx, collection, id)
	// A missing document is an answer, not a failure
	if err == ErrNotFound {
		s.finish(span, "get", start, nil)
		return nil, err
	}
	s.finish(span, "get", start, err)
	return doc, err
}

func (s *Instrumented) Query(ctx context.Context, q Query) ([]Document, error) {
	ctx, span, start := s.start(ctx, "query", q.Collection)
	docs, err := s.next.Query(ctx, q)
	span.SetAttributes(attribute.Int("db.result_count", len(docs)))
	s.finish(span, "query", start, err)
	return docs, err
}

func (s *Instrumented) Insert(ctx context.Context, collection string, data map[string]any) (string, error) {
	ctx, span, start := s.start(ctx, "insert", collection)
	id, err := s.next.Insert(ctx, collection, data)
	s.finish(span, "insert", start, err)
	return id, err
}

func (s *Instrumented) Create(ctx context.Context, collection, id string, data map[string]any) error {
	ctx, span, start := s.start(ctx, "create", collection)
	err := s.next.Create(ctx, collection, id, data)
	if err == ErrAlreadyExists {
		s.finish(span, "create", start, nil)
		return err
	}
	s.finish(span, "create", start, err)
	return err
}

func (s *Instrumented) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	ctx, span, start := s.start(ctx, "update", collection)
	err := s.next.Update(ctx, collection, id, patch)
	s.finish(span, "update", start, err)
	return err
}

func (s *Instrumented) Merge(ctx context.Context, collection, id string, patch map[string]any) error {
	ctx, span, start := s.start(ctx, "merge", collection)
	err := s.next.Merge(ctx, collection, id, patch)
	s.finish(span, "merge", start, err)
	return err
}

func (s *Instrumented) Subscribe(ctx context.Context, q Query, fn func([]Document)) (Unsubscribe, error) {
	ctx, span, start := s.start(ctx, "subscribe", q.Collection)
	unsub, err := s.next.Subscribe(ctx, q, fn)
	s.finish(span, "subscribe", start, err)
	return unsub, err
}

func (s *Instrumented) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	ctx, span, start := s.start(ctx, "transaction", "")
	err := s.next.RunTransaction(ctx, fn)
	s.finish(span, "transaction", start, err)
	return err
}

func (s *Instrumented) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

func (s *Instrumented) Close(ctx context.Context) error {
	return s.next.Close(ctx)
}
