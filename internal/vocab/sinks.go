package vocab

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Adithya-Monish-Kumar-K/review-vocab/internal/vocab/store"
	"github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/sqlite"
)

// Sinks holds the connections opened for the enabled sinks.
type Sinks struct {
	Stores    []Sink
	Publisher *kafka.Producer
	closers   []io.Closer
}

// OpenSinks connects to every sink enabled in cfg.Sinks. On error, any
// connection already opened is closed.
func OpenSinks(ctx context.Context, cfg *config.Config) (_ *Sinks, err error) {
	s := &Sinks{}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	if cfg.Sinks.Redis {
		client, err := redis.NewClient(cfg.Redis)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, client)
		s.Stores = append(s.Stores, Sink{Name: "redis", Store: store.NewRedisStore(client, cfg.Redis.KeyPrefix)})
	}
	if cfg.Sinks.Postgres {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, db)
		sqlStore, err := store.NewSQLStore(ctx, db)
		if err != nil {
			return nil, fmt.Errorf("preparing postgres schema: %w", err)
		}
		s.Stores = append(s.Stores, Sink{Name: "postgres", Store: sqlStore})
	}
	if cfg.Sinks.SQLite {
		db, err := sqlite.New(cfg.SQLite)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, db)
		sqlStore, err := store.NewSQLStore(ctx, db)
		if err != nil {
			return nil, fmt.Errorf("preparing sqlite schema: %w", err)
		}
		s.Stores = append(s.Stores, Sink{Name: "sqlite", Store: sqlStore})
	}
	if cfg.Sinks.Kafka {
		s.Publisher = kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexBuilt)
		s.closers = append(s.closers, s.Publisher)
	}
	return s, nil
}

// Options returns the builder options for the opened sinks.
func (s *Sinks) Options() []Option {
	opts := []Option{WithSinks(s.Stores...)}
	if s.Publisher != nil {
		opts = append(opts, WithPublisher(s.Publisher))
	}
	return opts
}

func (s *Sinks) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i].Close())
	}
	s.closers = nil
	return errors.Join(errs...)
}

// OpenStore opens the store named by from for reading an index back:
// "file" (the default), "redis", "postgres" or "sqlite". Loads through the
// returned store are cached.
func OpenStore(ctx context.Context, cfg *config.Config, from string) (store.Store, io.Closer, error) {
	var (
		backend store.Store
		closer  io.Closer = nopCloser{}
	)
	switch from {
	case "", "file":
		backend = store.NewFileStore(cfg.Vocab.DataDir)
	case "redis":
		client, err := redis.NewClient(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		backend, closer = store.NewRedisStore(client, cfg.Redis.KeyPrefix), client
	case "postgres":
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		sqlStore, err := store.NewSQLStore(ctx, db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		backend, closer = sqlStore, db
	case "sqlite":
		db, err := sqlite.New(cfg.SQLite)
		if err != nil {
			return nil, nil, err
		}
		sqlStore, err := store.NewSQLStore(ctx, db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		backend, closer = sqlStore, db
	default:
		return nil, nil, apperrors.Newf(apperrors.ErrUsage, "", "unknown store %q", from)
	}
	return store.NewCachedStore(backend), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewChecker registers a connectivity check for every sink enabled in
// cfg.Sinks. Each check opens its own connection.
func NewChecker(cfg *config.Config) *health.Checker {
	c := health.NewChecker()
	if cfg.Sinks.Redis {
		c.Register("redis", health.Ping(func(ctx context.Context) error {
			client, err := redis.NewClient(cfg.Redis)
			if err != nil {
				return err
			}
			defer client.Close()
			return client.Ping(ctx)
		}))
	}
	if cfg.Sinks.Postgres {
		c.Register("postgres", health.Ping(func(ctx context.Context) error {
			db, err := postgres.New(cfg.Postgres)
			if err != nil {
				return err
			}
			defer db.Close()
			return db.Ping(ctx)
		}))
	}
	if cfg.Sinks.SQLite {
		c.Register("sqlite", health.Ping(func(ctx context.Context) error {
			db, err := sqlite.New(cfg.SQLite)
			if err != nil {
				return err
			}
			defer db.Close()
			return db.Ping(ctx)
		}))
	}
	if cfg.Sinks.Kafka {
		c.Register("kafka", health.Ping(func(ctx context.Context) error {
			return kafka.Ping(ctx, cfg.Kafka)
		}))
	}
	return c
}
