// Package docstore defines the schemaless document store the WingMentor core
// persists to: collections of JSON-like documents with point reads, equality
// queries, partial updates, live subscriptions and short transactions.
//
// Collection paths may be nested ("chats/{chatId}/messages"); every backend
// treats the full path as the collection identity.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by Get and Update when the document does not exist
	ErrNotFound = errors.New("document not found")

	// ErrAlreadyExists is returned by Create when the id is taken
	ErrAlreadyExists = errors.New("document already exists")

	// ErrClosed is returned after Close
	ErrClosed = errors.New("document store closed")
)

// Document is a single stored record. Data never contains the id.
type Document struct {
	ID   string
	Data map[string]any
}

// Direction of an ordering clause
type Direction int

const (
	Asc Direction = iota
	Desc
)

// Filter is an equality predicate on a top-level field
type Filter struct {
	Field string
	Value any
}

// Order sorts query results on a top-level field. Ties keep insertion order
// in the same direction.
type Order struct {
	Field     string
	Direction Direction
}

// Query selects documents from one collection
type Query struct {
	Collection string
	Filters    []Filter
	Order      *Order
	Limit      int
}

// From starts a query on a collection
func From(collection string) Query {
	return Query{Collection: collection}
}

// Where adds an equality filter
func (q Query) Where(field string, value any) Query {
	filters := make([]Filter, len(q.Filters), len(q.Filters)+1)
	copy(filters, q.Filters)
	q.Filters = append(filters, Filter{Field: field, Value: value})
	return q
}

// OrderBy sets the ordering clause
func (q Query) OrderBy(field string, dir Direction) Query {
	q.Order = &Order{Field: field, Direction: dir}
	return q
}

// Take caps the number of results; zero means unlimited
func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

func (q Query) String() string {
	var b strings.Builder
	b.WriteString(q.Collection)
	for _, f := range q.Filters {
		fmt.Fprintf(&b, " %s==%v", f.Field, f.Value)
	}
	if q.Order != nil {
		dir := "asc"
		if q.Order.Direction == Desc {
			dir = "desc"
		}
		fmt.Fprintf(&b, " order=%s:%s", q.Order.Field, dir)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " limit=%d", q.Limit)
	}
	return b.String()
}

// Unsubscribe stops a live query. Safe to call more than once.
type Unsubscribe func()

// Reader is the read half shared by Store and Tx
type Reader interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	Query(ctx context.Context, q Query) ([]Document, error)
}

// Tx is the view of the store inside RunTransaction. Lock serializes
// transactions that take the same key until the transaction ends.
type Tx interface {
	Reader
	Lock(ctx context.Context, key string) error
	Insert(ctx context.Context, collection string, data map[string]any) (string, error)
	Update(ctx context.Context, collection, id string, patch map[string]any) error
}

// ReadWriter is the subset shared by Store and Tx, so repositories can run
// the same code inside and outside a transaction
type ReadWriter interface {
	Reader
	Insert(ctx context.Context, collection string, data map[string]any) (string, error)
	Update(ctx context.Context, collection, id string, patch map[string]any) error
}

// Store is the document store contract consumed by the repositories
type Store interface {
	Reader

	// Insert creates a document with a store-assigned id
	Insert(ctx context.Context, collection string, data map[string]any) (string, error)

	// Create creates a document with the given id or fails with ErrAlreadyExists
	Create(ctx context.Context, collection, id string, data map[string]any) error

	// Update applies a partial patch to an existing document
	Update(ctx context.Context, collection, id string, patch map[string]any) error

	// Merge applies a partial patch, creating the document when absent
	Merge(ctx context.Context, collection, id string, patch map[string]any) error

	// Subscribe runs q now and again after every change to its collection,
	// passing the full result set to fn each time.
	Subscribe(ctx context.Context, q Query, fn func([]Document)) (Unsubscribe, error)

	// RunTransaction runs fn atomically. A non-nil error from fn aborts it.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
