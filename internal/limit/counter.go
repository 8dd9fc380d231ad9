// Package limit enforces the per-user daily transfer ceiling with an
// atomic check-and-increment against Redis. The check and the write are a
// single script so two concurrent transfers can never both pass the check
// before either records its amount.
package limit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const keyPrefix = "limit:daily:"

// ErrLimitExceeded indicates the transfer would push the user past the
// daily ceiling. Nothing is recorded when this is returned.
var ErrLimitExceeded = errors.New("daily transfer limit exceeded")

// Counter records transferred amounts against the daily ceiling
type Counter interface {
	// CheckAndRecord adds amount to the user's running daily total and
	// returns the updated total, or ErrLimitExceeded without writing when
	// the ceiling would be crossed.
	CheckAndRecord(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error)
}

// check-and-increment with conditional abort; -1 signals rejection
var checkAndRecordScript = redis.NewScript(`
local key = KEYS[1]
local increment = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local current = tonumber(redis.call('GET', key) or '0')
local updated = current + increment
if updated > limit then
  return '-1'
end
redis.call('SET', key, tostring(updated), 'EX', ttl)
return tostring(updated)
`)

// RedisCounter implements Counter against Redis. Keys carry a TTL that
// expires at the next UTC midnight, so totals reset daily without a
// cleanup job.
type RedisCounter struct {
	client *redis.Client
	logger *slog.Logger
	limit  decimal.Decimal
	now    func() time.Time // injectable for tests
}

// NewRedisCounter creates a daily limit counter with the given ceiling
func NewRedisCounter(client *redis.Client, logger *slog.Logger, dailyLimit decimal.Decimal) *RedisCounter {
	return &RedisCounter{
		client: client,
		logger: logger,
		limit:  dailyLimit,
		now:    time.Now,
	}
}

// CheckAndRecord implements Counter
func (c *RedisCounter) CheckAndRecord(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if userID == "" {
		return decimal.Zero, errors.New("userID is required")
	}
	if amount.Sign() <= 0 {
		return decimal.Zero, errors.New("amount must be positive")
	}

	nowUTC := c.now().UTC()
	key := dailyKey(userID, nowUTC)
	ttl := ttlUntilMidnight(nowUTC)

	result, err := checkAndRecordScript.Run(ctx, c.client,
		[]string{key},
		amount.String(),
		ttl,
		c.limit.String(),
	).Text()
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to record daily transfer limit: %w", err)
	}

	updated, err := decimal.NewFromString(result)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unexpected limit script result %q: %w", result, err)
	}

	if updated.IsNegative() {
		c.logger.Info("Daily transfer limit exceeded", "user_id", userID, "amount", amount.String())
		return decimal.Zero, fmt.Errorf("%w: max allowed amount is %s", ErrLimitExceeded, c.limit.String())
	}

	return updated, nil
}

// dailyKey builds the counter key for a user and UTC date
func dailyKey(userID string, nowUTC time.Time) string {
	return keyPrefix + userID + ":" + nowUTC.Format("2006-01-02")
}

// ttlUntilMidnight returns whole seconds until the next UTC midnight, at least 1
func ttlUntilMidnight(nowUTC time.Time) int64 {
	year, month, day := nowUTC.Date()
	nextMidnight := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	ttl := int64(nextMidnight.Sub(nowUTC).Seconds())
	if ttl < 1 {
		return 1
	}
	return ttl
}
