// Package lock provides the optional cross-process run lock.
//
// Two operators running harvests against the same data root would race on
// the registry, the ledger and the result tables. When a Redis address is
// configured every command takes this lock first; without one the lock is a
// no-op.
package lock

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"clipharvest/pkg/config"
	"clipharvest/pkg/errors"
	"clipharvest/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotHeld is returned by Release when the lock expired or was taken over.
var ErrNotHeld = stderrors.New("lock not held")

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Locker guards a run.
type Locker interface {
	Acquire(ctx context.Context) error
	Release(ctx context.Context) error
}

// New returns a Redis locker for cfg, or a no-op locker when no address is set.
func New(cfg config.LockConfig, log logger.Logger) Locker {
	if cfg.Addr == "" {
		return Nop{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedis(client, cfg.Key, cfg.TTL, log)
}

// Redis is a single-instance Redis lock (SET NX PX with a random token).
type Redis struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
	logger logger.Logger
}

// NewRedis creates a lock on key held for at most ttl.
func NewRedis(client *redis.Client, key string, ttl time.Duration, log logger.Logger) *Redis {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Redis{
		client: client,
		key:    key,
		token:  uuid.NewString(),
		ttl:    ttl,
		logger: log,
	}
}

// Acquire takes the lock or fails immediately when another run holds it.
func (l *Redis) Acquire(ctx context.Context) error {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return errors.Wrap(errors.ErrorTypeConfig, "failed to reach lock server", err)
	}
	if !ok {
		holder, _ := l.client.Get(ctx, l.key).Result()
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("another run holds %s (token %s)", l.key, holder))
	}

	l.logger.DebugWithFields("Run lock acquired", map[string]interface{}{
		"key": l.key,
		"ttl": l.ttl,
	})
	return nil
}

// Release drops the lock if this instance still holds it.
func (l *Redis) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if n == 0 {
		return ErrNotHeld
	}
	l.logger.DebugWithFields("Run lock released", map[string]interface{}{"key": l.key})
	return nil
}

// Close closes the Redis connection.
func (l *Redis) Close() error {
	return l.client.Close()
}

// Nop is the locker used when no lock server is configured.
type Nop struct{}

func (Nop) Acquire(ctx context.Context) error { return ctx.Err() }
func (Nop) Release(ctx context.Context) error { return nil }
