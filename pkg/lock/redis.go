package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhiruchieats/storefront-api/pkg/config"
	pkgerrors "github.com/abhiruchieats/storefront-api/pkg/errors"
	"github.com/abhiruchieats/storefront-api/pkg/logger"
)

const (
	defaultTTL            = 10 * time.Second
	defaultAcquireTimeout = 3 * time.Second
	defaultRetryInterval  = 25 * time.Millisecond
	maxRetryInterval      = 250 * time.Millisecond
	releaseTimeout        = 2 * time.Second
)

type store interface {
	LockKey(scope string) string
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, token string) (bool, error)
}

// RedisLocker holds locks as SET NX PX keys carrying a random token.
type RedisLocker struct {
	store          store
	logg           *logger.Logger
	ttl            time.Duration
	acquireTimeout time.Duration
	retryInterval  time.Duration
}

func NewRedisLocker(s store, cfg config.LockConfig, logg *logger.Logger) (*RedisLocker, error) {
	if s == nil {
		return nil, errors.New("redis store required")
	}
	l := &RedisLocker{
		store:          s,
		logg:           logg,
		ttl:            cfg.TTL,
		acquireTimeout: cfg.AcquireTimeout,
		retryInterval:  cfg.RetryInterval,
	}
	if l.ttl <= 0 {
		l.ttl = defaultTTL
	}
	if l.acquireTimeout <= 0 {
		l.acquireTimeout = defaultAcquireTimeout
	}
	if l.retryInterval <= 0 {
		l.retryInterval = defaultRetryInterval
	}
	return l, nil
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := l.store.LockKey(key)
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, l.acquireTimeout)
	defer cancel()

	interval := l.retryInterval
	for {
		ok, err := l.store.AcquireLock(waitCtx, redisKey, token, l.ttl)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock store unavailable")
		}
		if ok {
			return l.releaser(redisKey, token), nil
		}

		timer := time.NewTimer(interval)
		select {
		case <-waitCtx.Done():
			timer.Stop()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "timed out waiting for lock").
				WithDetails(map[string]any{"key": key})
		case <-timer.C:
		}
		interval *= 2
		if interval > maxRetryInterval {
			interval = maxRetryInterval
		}
	}
}

// releaser runs detached from the request context so a cancelled request
// still frees its lock instead of waiting for the TTL.
func (l *RedisLocker) releaser(key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			released, err := l.store.ReleaseLock(ctx, key, token)
			if l.logg == nil {
				return
			}
			logCtx := l.logg.WithField(ctx, "lock_key", key)
			switch {
			case err != nil:
				l.logg.Error(logCtx, "lock.release_failed", err)
			case !released:
				l.logg.Warn(logCtx, "lock.expired_before_release")
			}
		})
	}
}
