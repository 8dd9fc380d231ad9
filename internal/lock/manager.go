// Package lock implements the distributed mutual-exclusion locks taken
// over account ids before a transfer transaction opens. Account balances
// are only ever mutated while holding both this lock and the database row
// lock: the row lock protects against callers that bypass the lock
// manager, this lock keeps long row-lock waits from piling up across
// application instances.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/bank-transfer-engine/internal/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockKeyPrefix = "account:lock:"
	retryInterval = 50 * time.Millisecond
)

// ErrLockNotAcquired indicates the wait timeout elapsed before the lock
// could be taken.
var ErrLockNotAcquired = errors.New("failed to acquire account lock")

// Lock is one held mutual-exclusion lock. The token proves ownership on
// release so a lock that expired and was re-acquired by someone else is
// never deleted by the previous holder.
type Lock struct {
	Key   string
	token string
}

// Manager acquires and releases batches of account locks
type Manager interface {
	// AcquireOrdered takes one lock per distinct id in ascending id
	// order. The fixed global ordering, independent of argument order, is
	// what prevents circular wait among transfers with overlapping
	// account sets. On any failure every previously acquired lock is
	// released; no partial lock set is ever left held.
	AcquireOrdered(ctx context.Context, ids ...int64) ([]Lock, error)

	// ReleaseAll releases in reverse acquisition order, swallowing
	// release errors; the lease auto-expiry is the backstop against a
	// stuck lock.
	ReleaseAll(ctx context.Context, locks []Lock)
}

// compare-and-delete: only the holder's token may release the key
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisManager implements Manager against a Redis deployment
type RedisManager struct {
	client *redis.Client
	logger *slog.Logger
	wait   time.Duration
	lease  time.Duration
}

// NewRedisManager creates a lock manager with the configured wait and
// lease timeouts.
func NewRedisManager(client *redis.Client, logger *slog.Logger, cfg *config.RedisConfig) *RedisManager {
	return &RedisManager{
		client: client,
		logger: logger,
		wait:   cfg.LockWait,
		lease:  cfg.LockLease,
	}
}

// AcquireOrdered implements Manager
func (m *RedisManager) AcquireOrdered(ctx context.Context, ids ...int64) ([]Lock, error) {
	ordered := orderedIDs(ids)

	acquired := make([]Lock, 0, len(ordered))
	for _, id := range ordered {
		lock, err := m.acquire(ctx, id)
		if err != nil {
			m.ReleaseAll(ctx, acquired)
			return nil, fmt.Errorf("account %d: %w", id, err)
		}
		acquired = append(acquired, lock)
	}

	return acquired, nil
}

func (m *RedisManager) acquire(ctx context.Context, id int64) (Lock, error) {
	key := lockKeyPrefix + strconv.FormatInt(id, 10)
	token := uuid.NewString()
	deadline := time.Now().Add(m.wait)

	for {
		ok, err := m.client.SetNX(ctx, key, token, m.lease).Result()
		if err != nil {
			return Lock{}, fmt.Errorf("lock attempt failed: %w", err)
		}
		if ok {
			return Lock{Key: key, token: token}, nil
		}

		if time.Now().After(deadline) {
			return Lock{}, ErrLockNotAcquired
		}

		select {
		case <-ctx.Done():
			return Lock{}, fmt.Errorf("interrupted while acquiring lock: %w", ctx.Err())
		case <-time.After(retryInterval):
		}
	}
}

// ReleaseAll implements Manager
func (m *RedisManager) ReleaseAll(ctx context.Context, locks []Lock) {
	for i := len(locks) - 1; i >= 0; i-- {
		lock := locks[i]
		if err := releaseScript.Run(ctx, m.client, []string{lock.Key}, lock.token).Err(); err != nil {
			// Prefer preserving the business outcome; the lease expiry
			// reclaims the lock if this delete never lands.
			m.logger.Warn("Failed to release account lock", "key", lock.Key, "error", err)
		}
	}
}

// orderedIDs deduplicates and sorts ascending
func orderedIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	ordered := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })
	return ordered
}
