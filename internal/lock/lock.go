// Package lock provides per-user mutual exclusion so that at most one run
// touches a user's data at a time.
package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLocked is returned when another run already holds the user's lock.
var ErrLocked = errors.New("a run for this user is already in progress")

// Locker hands out per-fid leases. Release is idempotent.
type Locker interface {
	Acquire(ctx context.Context, fid int64) (release func(), err error)
}

const keyPrefix = "persona:lock:"

// Release and renewal only touch the key while it still holds our token, so
// an expired lease can't disturb a lock someone else has since taken.
var (
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)
	extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)
)

// LeaseStore keeps token-guarded leases with an expiry.
type LeaseStore interface {
	Claim(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	// Extend pushes the expiry out to ttl from now. False means the lease
	// is gone or belongs to another token.
	Extend(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, token string) error
}

type redisLeases struct {
	client *redis.Client
}

func (r redisLeases) Claim(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, token, ttl).Result()
}

func (r redisLeases) Extend(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	n, err := extendScript.Run(ctx, r.client, []string{key}, token, ttl.Milliseconds()).Int()
	return n == 1, err
}

func (r redisLeases) Release(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, r.client, []string{key}, token).Err()
}

// LeaseLocker leases locks in a shared store so that the server, worker and
// CLI exclude each other. A held lease is renewed every ttl/3 and expires
// after ttl once its holder dies.
type LeaseLocker struct {
	leases LeaseStore
	ttl    time.Duration
}

// NewRedisLocker leases locks in Redis.
func NewRedisLocker(client *redis.Client, ttl time.Duration) *LeaseLocker {
	return NewLeaseLocker(redisLeases{client: client}, ttl)
}

func NewLeaseLocker(leases LeaseStore, ttl time.Duration) *LeaseLocker {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &LeaseLocker{leases: leases, ttl: ttl}
}

func (l *LeaseLocker) Acquire(ctx context.Context, fid int64) (func(), error) {
	key := keyPrefix + strconv.FormatInt(fid, 10)
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	ok, err := l.leases.Claim(ctx, key, token, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("acquiring lock for fid %d: %w", fid, err)
	}
	if !ok {
		return nil, ErrLocked
	}

	// The run's context may be cancelled before release runs.
	bg := context.WithoutCancel(ctx)
	stop := make(chan struct{})
	done := make(chan struct{})
	go l.renew(bg, key, token, fid, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			releaseCtx, cancel := context.WithTimeout(bg, 5*time.Second)
			defer cancel()
			if err := l.leases.Release(releaseCtx, key, token); err != nil {
				slog.WarnContext(ctx, "failed to release user lock", "fid", fid, "error", err)
			}
		})
	}, nil
}

// renew extends the lease until stop closes. A lost lease ends renewal; a
// failed call is retried on the next tick.
func (l *LeaseLocker) renew(ctx context.Context, key, token string, fid int64, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			extendCtx, cancel := context.WithTimeout(ctx, l.ttl/3)
			ok, err := l.leases.Extend(extendCtx, key, token, l.ttl)
			cancel()
			switch {
			case err != nil:
				slog.WarnContext(ctx, "failed to renew user lock", "fid", fid, "error", err)
			case !ok:
				slog.ErrorContext(ctx, "user lock lost before the run finished", "fid", fid)
				return
			}
		}
	}
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// LocalLocker is an in-process Locker for single-process use and tests.
type LocalLocker struct {
	mu   sync.Mutex
	held map[int64]struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[int64]struct{})}
}

func (l *LocalLocker) Acquire(_ context.Context, fid int64) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[fid]; ok {
		return nil, ErrLocked
	}
	l.held[fid] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, fid)
			l.mu.Unlock()
		})
	}, nil
}
