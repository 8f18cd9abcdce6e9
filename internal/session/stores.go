package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/charmbracelet/log"
	"github.com/go-redis/redis/v7"

	"github.com/justestif/go-spotify-custom-player/internal/config"
	"github.com/justestif/go-spotify-custom-player/internal/db"
)

// PostgresStore is an scs.CtxStore backed by the sessions table.
type PostgresStore struct {
	repo *db.SessionRepository
}

// NewPostgresStore creates a PostgresStore using database.
func NewPostgresStore(database *db.DB) *PostgresStore {
	return &PostgresStore{repo: database.Sessions()}
}

// FindCtx returns the session data for token.
func (s *PostgresStore) FindCtx(ctx context.Context, token string) ([]byte, bool, error) {
	row, err := s.repo.Get(ctx, token)
	if errors.Is(err, db.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return row.Data, true, nil
}

// CommitCtx writes the session data for token.
func (s *PostgresStore) CommitCtx(ctx context.Context, token string, b []byte, expiry time.Time) error {
	return s.repo.Upsert(ctx, &db.Session{Token: token, Data: b, Expiry: expiry})
}

// DeleteCtx removes the session for token.
func (s *PostgresStore) DeleteCtx(ctx context.Context, token string) error {
	return s.repo.Delete(ctx, token)
}

// Find implements scs.Store.
func (s *PostgresStore) Find(token string) ([]byte, bool, error) {
	return s.FindCtx(context.Background(), token)
}

// Commit implements scs.Store.
func (s *PostgresStore) Commit(token string, b []byte, expiry time.Time) error {
	return s.CommitCtx(context.Background(), token, b, expiry)
}

// Delete implements scs.Store.
func (s *PostgresStore) Delete(token string) error {
	return s.DeleteCtx(context.Background(), token)
}

const redisKeyPrefix = "custom-player:session:"

// RedisStore is an scs.Store backed by Redis keys with a TTL, so expired
// sessions need no sweeping.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr, password string, database int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       database,
	})

	if err := client.Ping().Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// Find implements scs.Store.
func (s *RedisStore) Find(token string) ([]byte, bool, error) {
	b, err := s.client.Get(redisKeyPrefix + token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading session: %w", err)
	}
	return b, true, nil
}

// Commit implements scs.Store.
func (s *RedisStore) Commit(token string, b []byte, expiry time.Time) error {
	ttl := time.Until(expiry)
	if ttl <= 0 {
		return s.Delete(token)
	}
	if err := s.client.Set(redisKeyPrefix+token, b, ttl).Err(); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

// Delete implements scs.Store.
func (s *RedisStore) Delete(token string) error {
	if err := s.client.Del(redisKeyPrefix + token).Err(); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Close closes the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Backend is an opened session store plus its housekeeping.
type Backend struct {
	Store scs.Store

	sweep func(context.Context) (int64, error)
	close func()
}

// Open creates the store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.SessionConfig) (*Backend, error) {
	switch cfg.Backend {
	case config.BackendFile:
		store, err := NewFileStore(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Store: store,
			sweep: func(context.Context) (int64, error) { return store.DeleteExpired() },
			close: func() {},
		}, nil

	case config.BackendPostgres:
		database, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("opening session database: %w", err)
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, err
		}
		return &Backend{
			Store: NewPostgresStore(database),
			sweep: database.Sessions().DeleteExpired,
			close: database.Close,
		}, nil

	case config.BackendRedis:
		store, err := NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Store: store,
			close: func() { _ = store.Close() },
		}, nil

	case config.BackendMemory:
		interval := cfg.CleanupInterval
		if interval <= 0 {
			interval = time.Minute
		}
		store := memstore.NewWithCleanupInterval(interval)
		return &Backend{
			Store: store,
			close: store.StopCleanup,
		}, nil

	default:
		return nil, fmt.Errorf("%w: unknown session backend %q", config.ErrInvalidConfig, cfg.Backend)
	}
}

// Sweep removes expired sessions every interval until ctx is done. It returns
// immediately for stores that expire entries themselves.
func (b *Backend) Sweep(ctx context.Context, interval time.Duration, logger *log.Logger) {
	if b.sweep == nil || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := b.sweep(ctx)
			if err != nil {
				logger.Warn("sweeping expired sessions", "err", err)
				continue
			}
			if removed > 0 {
				logger.Debug("swept expired sessions", "count", removed)
			}
		}
	}
}

// Close releases the store's resources.
func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

var (
	_ scs.Store    = (*FileStore)(nil)
	_ scs.CtxStore = (*PostgresStore)(nil)
	_ scs.Store    = (*RedisStore)(nil)
)
