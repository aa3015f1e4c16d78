package redisx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const lockPollInterval = 100 * time.Millisecond

// releaseScript deletes the key only while it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out keyed mutual exclusion. Lock blocks until the key is free or
// ctx is done.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

type redisLocker struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewLocker returns a Redis-backed Locker. ttl bounds how long a crashed holder
// can keep a key.
func NewLocker(rdb *goredis.Client, prefix string, ttl time.Duration) Locker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &redisLocker{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (l *redisLocker) Lock(ctx context.Context, key string) (func(), error) {
	full := l.prefix + key
	token := uuid.NewString()
	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()
	for {
		ok, err := l.rdb.SetNX(ctx, full, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			return func() {
				rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = releaseScript.Run(rctx, l.rdb, []string{full}, token).Err()
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

type localEntry struct {
	ch   chan struct{}
	refs int
}

type localLocker struct {
	mu   sync.Mutex
	keys map[string]*localEntry
}

// NewLocalLocker serializes within this process only.
func NewLocalLocker() Locker {
	return &localLocker{keys: map[string]*localEntry{}}
}

func (l *localLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.keys[key]
	if !ok {
		e = &localEntry{ch: make(chan struct{}, 1)}
		l.keys[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.ch
				l.drop(key, e)
			})
		}, nil
	case <-ctx.Done():
		l.drop(key, e)
		return nil, ctx.Err()
	}
}

func (l *localLocker) drop(key string, e *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.keys, key)
	}
}

// Claimer grants a key to the first caller within ttl. Release gives a key
// back early, for a holder whose work failed.
type Claimer interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type redisClaimer struct {
	rdb    *goredis.Client
	prefix string
}

func NewClaimer(rdb *goredis.Client, prefix string) Claimer {
	return &redisClaimer{rdb: rdb, prefix: prefix}
}

func (c *redisClaimer) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, c.prefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

func (c *redisClaimer) Release(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, c.prefix+key).Err()
}

type localClaimer struct {
	mu      sync.Mutex
	now     func() time.Time
	expires map[string]time.Time
}

func NewLocalClaimer() Claimer {
	return &localClaimer{now: time.Now, expires: map[string]time.Time{}}
}

func (c *localClaimer) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, exp := range c.expires {
		if !now.Before(exp) {
			delete(c.expires, k)
		}
	}
	if _, held := c.expires[key]; held {
		return false, nil
	}
	c.expires[key] = now.Add(ttl)
	return true, nil
}

func (c *localClaimer) Release(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.expires, key)
	return nil
}
