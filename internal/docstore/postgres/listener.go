package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wingmentor/wingmentor-api/internal/docstore"
	"github.com/wingmentor/wingmentor-api/pkg/logger"
	"github.com/wingmentor/wingmentor-api/pkg/retry"
	"go.uber.org/zap"
)

// listener holds one pooled connection in LISTEN mode and fans
// notifications out to the store's watches by collection.
type listener struct {
	pool   *pgxpool.Pool
	route  func(collection string)
	resync func()
	cancel context.CancelFunc
	done   chan struct{}
}

func startListener(pool *pgxpool.Pool, route func(string), resync func()) *listener {
	ctx, cancel := context.WithCancel(context.Background())
	l := &listener{
		pool:   pool,
		route:  route,
		resync: resync,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go l.run(ctx)
	return l
}

func (l *listener) stop() {
	l.cancel()
	<-l.done
}

func (l *listener) run(ctx context.Context) {
	defer close(l.done)
	for {
		err := retry.Do(ctx, retry.ListenerConfig(), "postgres_listen", func() error {
			return l.listen(ctx)
		})
		if ctx.Err() != nil {
			return
		}
		logger.Error("Change listener gave up, restarting", zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(30 * time.Second):
		}
	}
}

// listen blocks until the connection fails or ctx ends
func (l *listener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listener connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+NotifyChannel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	// Changes may have been missed while disconnected
	l.resync()

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			// The connection state is unknown; drop it from the pool
			conn.Conn().Close(context.Background())
			return fmt.Errorf("wait for notification: %w", err)
		}
		l.route(n.Payload)
	}
}

func (s *Store) Subscribe(ctx context.Context, q docstore.Query, fn func([]docstore.Document)) (docstore.Unsubscribe, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, docstore.ErrClosed
	}
	if s.listener == nil {
		s.listener = startListener(s.pool, s.watches.Notify, s.watches.NotifyAll)
	}
	s.mu.Unlock()

	return s.watches.Start(ctx, q, func(ctx context.Context) ([]docstore.Document, error) {
		return s.Query(ctx, q)
	}, fn), nil
}
