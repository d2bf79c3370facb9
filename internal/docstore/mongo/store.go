// Package mongo maps the docstore contract onto MongoDB. Nested collection
// paths share one physical collection per path shape, keyed by _parent.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wingmentor/wingmentor-api/internal/docstore"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const locksCollection = "_locks"

// Config tunes the backend
type Config struct {
	// PollInterval drives live queries when change streams are unavailable
	// (standalone servers)
	PollInterval time.Duration
}

// Store is the MongoDB docstore backend
type Store struct {
	db    *mongo.Database
	cfg   Config
	now   func() time.Time
	newID func() string

	mu     sync.Mutex
	feeds  map[string]*feed
	closed bool
}

// New wraps a database handle. The client belongs to the caller.
func New(db *mongo.Database, cfg Config) *Store {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	return &Store{
		db:    db,
		cfg:   cfg,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
		feeds: make(map[string]*feed),
	}
}

var _ docstore.Store = (*Store)(nil)

// indexSpecs lists the indexes per Mongo collection. Keys use the stored
// field names of the WingMentor records.
func indexSpecs() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		"mentorship_logs": {
			// pending-match lookup of the reconciliation
			{Keys: bson.D{{Key: "mentorId", Value: 1}, {Key: "menteeId", Value: 1}, {Key: "hoursLogged", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "menteeId", Value: 1}, {Key: fieldSeq, Value: 1}}},
			{Keys: bson.D{{Key: "mentorId", Value: 1}, {Key: fieldSeq, Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: fieldSeq, Value: 1}}},
		},
		"users": {
			{Keys: bson.D{{Key: "region", Value: 1}, {Key: "flightSchool", Value: 1}, {Key: fieldSeq, Value: 1}}},
			{Keys: bson.D{{Key: "flightSchool", Value: 1}, {Key: fieldSeq, Value: 1}}},
		},
		"chats.messages": {
			{Keys: bson.D{{Key: fieldParent, Value: 1}, {Key: "timestamp", Value: -1}, {Key: fieldSeq, Value: -1}}},
		},
		"chats": {
			{Keys: bson.D{{Key: "participants", Value: 1}}},
		},
	}
}

// EnsureIndexes creates the indexes the WingMentor queries rely on
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := indexSpecs()
	for name, models := range specs {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}

	// Collections cannot always be created implicitly inside a transaction
	err := s.db.CreateCollection(ctx, locksCollection)
	var cmdErr mongo.CommandError
	if err != nil && !(errors.As(err, &cmdErr) && cmdErr.Name == "NamespaceExists") {
		return fmt.Errorf("create %s: %w", locksCollection, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	loc := locate(collection)
	var raw bson.M
	err := s.db.Collection(loc.name).FindOne(ctx, loc.selector(id)).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, docstore.ErrNotFound
		}
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	doc := decodeDocument(raw)
	return &doc, nil
}

func buildFind(q docstore.Query) (bson.M, *options.FindOptions, error) {
	loc := locate(q.Collection)
	filter := bson.M{}
	if loc.parent != "" {
		filter[fieldParent] = loc.parent
	}
	for _, f := range q.Filters {
		v, err := encodeValue(f.Value)
		if err != nil {
			return nil, nil, err
		}
		filter[f.Field] = v
	}

	opts := options.Find()
	dir := 1
	if q.Order != nil && q.Order.Direction == docstore.Desc {
		dir = -1
	}
	if q.Order != nil {
		opts.SetSort(bson.D{{Key: q.Order.Field, Value: dir}, {Key: fieldSeq, Value: dir}})
	} else {
		opts.SetSort(bson.D{{Key: fieldSeq, Value: 1}})
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	return filter, opts, nil
}

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	filter, opts, err := buildFind(q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}

	cur, err := s.db.Collection(locate(q.Collection).name).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	defer cur.Close(ctx)

	docs := []docstore.Document{}
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode %s: %w", q.Collection, err)
		}
		docs = append(docs, decodeDocument(raw))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	return docs, nil
}

func (s *Store) Insert(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := s.newID()
	if err := s.Create(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Create(ctx context.Context, collection, id string, data map[string]any) error {
	loc := locate(collection)
	doc, err := encodeDocument(data, s.now())
	if err != nil {
		return err
	}
	doc[fieldID] = id
	doc[fieldSeq] = primitive.NewObjectID()
	if loc.parent != "" {
		doc[fieldParent] = loc.parent
	}

	if _, err := s.db.Collection(loc.name).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return docstore.ErrAlreadyExists
		}
		return fmt.Errorf("insert %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	loc := locate(collection)
	update, err := encodePatch(patch, s.now())
	if err != nil {
		return err
	}
	if len(update) == 0 {
		_, err := s.Get(ctx, collection, id)
		return err
	}

	res, err := s.db.Collection(loc.name).UpdateOne(ctx, loc.selector(id), update)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *Store) Merge(ctx context.Context, collection, id string, patch map[string]any) error {
	loc := locate(collection)
	update, err := encodePatch(patch, s.now())
	if err != nil {
		return err
	}
	update["$setOnInsert"] = bson.M{fieldSeq: primitive.NewObjectID()}

	_, err = s.db.Collection(loc.name).UpdateOne(ctx, loc.selector(id), update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("merge %s/%s: %w", collection, id, err)
	}
	return nil
}

// RunTransaction requires a replica set. Lock upserts a shared document so
// that concurrent holders hit a write conflict and the driver retries one.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	session, err := s.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc, &transaction{store: s})
	})
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// Close stops live queries. The client belongs to the caller.
func (s *Store) Close(context.Context) error {
	s.mu.Lock()
	s.closed = true
	feeds := s.feeds
	s.feeds = make(map[string]*feed)
	s.mu.Unlock()

	for _, f := range feeds {
		f.stop()
	}
	return nil
}
