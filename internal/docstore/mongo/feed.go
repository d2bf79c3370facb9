package mongo

import (
	"context"
	"time"

	"github.com/wingmentor/wingmentor-api/internal/docstore"
	"github.com/wingmentor/wingmentor-api/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// feed watches one physical collection and notifies the live queries on it.
// It prefers a change stream and falls back to polling when the server
// cannot open one.
type feed struct {
	coll     *mongo.Collection
	interval time.Duration

	watches *docstore.WatchSet

	cancel context.CancelFunc
	done   chan struct{}
}

func startFeed(coll *mongo.Collection, interval time.Duration) *feed {
	ctx, cancel := context.WithCancel(context.Background())
	f := &feed{
		coll:     coll,
		interval: interval,
		watches:  docstore.NewWatchSet(),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go f.run(ctx)
	return f
}

func (f *feed) stop() {
	f.cancel()
	<-f.done
	f.watches.StopAll()
}

func (f *feed) run(ctx context.Context) {
	defer close(f.done)

	for ctx.Err() == nil {
		stream, err := f.coll.Watch(ctx, mongo.Pipeline{},
			options.ChangeStream().SetFullDocument(options.Default))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Info("Change streams unavailable, polling instead",
				zap.String("collection", f.coll.Name()),
				zap.Duration("interval", f.interval),
				zap.Error(err))
			f.poll(ctx)
			return
		}

		// Events may have been missed before the stream opened
		f.watches.NotifyAll()
		for stream.Next(ctx) {
			var event bson.M
			if err := stream.Decode(&event); err == nil {
				f.watches.NotifyAll()
			}
		}
		err = stream.Err()
		stream.Close(context.Background())
		if ctx.Err() != nil {
			return
		}
		logger.Warn("Change stream interrupted, reopening",
			zap.String("collection", f.coll.Name()),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (f *feed) poll(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.watches.NotifyAll()
		}
	}
}

func (s *Store) Subscribe(ctx context.Context, q docstore.Query, fn func([]docstore.Document)) (docstore.Unsubscribe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, docstore.ErrClosed
	}

	name := locate(q.Collection).name
	f, ok := s.feeds[name]
	if !ok {
		f = startFeed(s.db.Collection(name), s.cfg.PollInterval)
		s.feeds[name] = f
	}

	return f.watches.Start(ctx, q, func(ctx context.Context) ([]docstore.Document, error) {
		return s.Query(ctx, q)
	}, fn), nil
}
