package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const debtBalanceTTL = 10 * time.Minute

// Redis caches debt balances in a redis hash-free key space,
// one key per customer. Failures degrade to cache misses.
type Redis struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedis(client *redis.Client, logger *slog.Logger) *Redis {
	return &Redis{client: client, logger: logger}
}

func debtKey(customerID string) string { return "debt:balance:" + customerID }

func (r *Redis) Get(ctx context.Context, customerID string) (decimal.Decimal, bool) {
	val, err := r.client.Get(ctx, debtKey(customerID)).Result()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("redis get failed", "customer_id", customerID, "error", err)
		}
		return decimal.Zero, false
	}
	bal, err := decimal.NewFromString(val)
	if err != nil {
		r.logger.Warn("redis held malformed balance", "customer_id", customerID, "value", val)
		return decimal.Zero, false
	}
	return bal, true
}

func (r *Redis) Set(ctx context.Context, customerID string, balance decimal.Decimal) {
	if err := r.client.Set(ctx, debtKey(customerID), balance.String(), debtBalanceTTL).Err(); err != nil {
		r.logger.Warn("redis set failed", "customer_id", customerID, "error", err)
	}
}

func (r *Redis) Invalidate(ctx context.Context, customerIDs ...string) {
	if len(customerIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(customerIDs))
	for _, id := range customerIDs {
		keys = append(keys, debtKey(id))
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.logger.Warn("redis invalidate failed", "error", err)
	}
}
