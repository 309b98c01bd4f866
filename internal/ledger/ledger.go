package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stationops/fuelledger/internal/cache"
	"github.com/stationops/fuelledger/internal/domain"
	"github.com/stationops/fuelledger/internal/store"
)

// Reader serves derived balances and running-balance statements over the
// append-only ledgers. Balances are always sums over non-superseded
// entries; nothing here ever stores a balance except the debt projection
// cache, which is invalidated on every posting that touches a customer.
type Reader struct {
	repo  store.Repository
	debts cache.DebtBalances
}

func NewReader(repo store.Repository, debts cache.DebtBalances) *Reader {
	return &Reader{repo: repo, debts: debts}
}

func (r *Reader) CashBalance(ctx context.Context, storeID string, until *time.Time) (decimal.Decimal, error) {
	return r.repo.CashBalance(ctx, storeID, until)
}

// DebtBalance is the only cached read. Point-in-time queries (until != nil)
// bypass the cache; only the current balance is projected.
func (r *Reader) DebtBalance(ctx context.Context, customerID string, until *time.Time) (decimal.Decimal, error) {
	if until == nil {
		if bal, ok := r.debts.Get(ctx, customerID); ok {
			return bal, nil
		}
	}
	bal, err := r.repo.DebtBalance(ctx, customerID, until)
	if err != nil {
		return decimal.Zero, err
	}
	if until == nil {
		r.debts.Set(ctx, customerID, bal)
	}
	return bal, nil
}

func (r *Reader) StockBalance(ctx context.Context, warehouseID, productID string, until *time.Time) (decimal.Decimal, error) {
	return r.repo.StockBalance(ctx, warehouseID, productID, until)
}

// InvalidateDebt drops cached balances after a posting or supersession.
func (r *Reader) InvalidateDebt(ctx context.Context, customerIDs ...string) {
	r.debts.Invalidate(ctx, customerIDs...)
}

// CashStatement lists a store's cash entries in ledger order with the
// running balance after each line.
func (r *Reader) CashStatement(ctx context.Context, storeID string, until *time.Time) ([]domain.CashStatementLine, error) {
	entries, err := r.repo.ListCashEntries(ctx, storeID, until)
	if err != nil {
		return nil, err
	}
	lines := make([]domain.CashStatementLine, 0, len(entries))
	running := decimal.Zero
	for _, e := range entries {
		running = running.Add(e.CashIn).Sub(e.CashOut)
		lines = append(lines, domain.CashStatementLine{Entry: e, Balance: running})
	}
	return lines, nil
}

// DebtStatement lists a customer's debt entries in ledger order with the
// running balance (debit increases, credit decreases).
func (r *Reader) DebtStatement(ctx context.Context, customerID string, until *time.Time) ([]domain.DebtStatementLine, error) {
	entries, err := r.repo.ListDebtEntries(ctx, customerID, until)
	if err != nil {
		return nil, err
	}
	lines := make([]domain.DebtStatementLine, 0, len(entries))
	running := decimal.Zero
	for _, e := range entries {
		running = running.Add(e.Debit).Sub(e.Credit)
		lines = append(lines, domain.DebtStatementLine{Entry: e, Balance: running})
	}
	return lines, nil
}
