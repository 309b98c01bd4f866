package cache

import (
	"context"

	"github.com/shopspring/decimal"
)

// DebtBalances is a read-side projection of customer debt balances. It is
// never the source of truth: a miss falls through to the ledger, and every
// debt posting or supersession invalidates the affected customers.
type DebtBalances interface {
	Get(ctx context.Context, customerID string) (decimal.Decimal, bool)
	Set(ctx context.Context, customerID string, balance decimal.Decimal)
	Invalidate(ctx context.Context, customerIDs ...string)
}

// Noop satisfies DebtBalances without caching anything. Used by tests and
// deployments without redis.
type Noop struct{}

func NewNoop() Noop { return Noop{} }

func (Noop) Get(context.Context, string) (decimal.Decimal, bool) { return decimal.Zero, false }
func (Noop) Set(context.Context, string, decimal.Decimal)        {}
func (Noop) Invalidate(context.Context, ...string)               {}
