package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stationops/fuelledger/internal/cache"
	"github.com/stationops/fuelledger/internal/domain"
	"github.com/stationops/fuelledger/internal/store/memory"
)

func TestEntryConstructorsRound(t *testing.T) {
	at := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	e := CashIn("store-1", nil, domain.RefReceipt, "rcpt-1", "", decimal.RequireFromString("10.005"), at)
	assert.Equal(t, "10.01", e.CashIn.String())
	assert.True(t, e.CashOut.IsZero())
	assert.Equal(t, at, e.LedgerAt)

	inv := StockOut("wh-1", "prod-1", nil, domain.RefExport, "doc-1", "", decimal.RequireFromString("49.9995"), at)
	assert.Equal(t, "50", inv.QuantityOut.String())
}

func TestStatementsCarryRunningBalance(t *testing.T) {
	mem := memory.New()
	reader := NewReader(mem, cache.NewNoop())
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	// Two cash movements through their natural postings.
	require.NoError(t, mem.ApplyReceipt(ctx, domain.ReceiptPosting{
		Receipt: domain.Receipt{ID: "rcpt-1", StoreID: "store-1", Amount: decimal.NewFromInt(1000)},
		CashEntry: func() *domain.CashEntry {
			e := CashIn("store-1", nil, domain.RefReceipt, "rcpt-1", "", decimal.NewFromInt(1000), base)
			return &e
		}(),
	}))
	require.NoError(t, mem.ApplyExpense(ctx, domain.ExpensePosting{
		Expense: domain.Expense{ID: "exp-1", StoreID: "store-1", Amount: decimal.NewFromInt(300)},
		CashEntry: func() *domain.CashEntry {
			e := CashOut("store-1", nil, domain.RefExpense, "exp-1", "", decimal.NewFromInt(300), base.Add(time.Hour))
			return &e
		}(),
	}))

	lines, err := reader.CashStatement(ctx, "store-1", nil)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "1000", lines[0].Balance.String())
	assert.Equal(t, "700", lines[1].Balance.String())

	bal, err := reader.CashBalance(ctx, "store-1", nil)
	require.NoError(t, err)
	assert.Equal(t, "700", bal.String())

	// Point-in-time balance sees only the first entry.
	until := base.Add(30 * time.Minute)
	bal, err = reader.CashBalance(ctx, "store-1", &until)
	require.NoError(t, err)
	assert.Equal(t, "1000", bal.String())
}

func TestDebtStatementAndCachedBalance(t *testing.T) {
	mem := memory.New()
	reader := NewReader(mem, cache.NewNoop())
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	mem.AddStore(domain.Store{ID: "store-1", RegionID: "region-1", Name: "Store 1"})
	require.NoError(t, mem.CreateShift(ctx, domain.Shift{
		ID: "shift-1", StoreID: "store-1", ShiftDate: base, ShiftNo: 1,
		OpenedAt: base, Status: domain.ShiftOpen, CreatedAt: base,
	}, domain.AuditLog{ID: "audit-1", TableName: "shifts", RecordID: "shift-1", Action: "CREATE", CreatedAt: base}))

	require.NoError(t, mem.ApplyDebtSale(ctx, domain.DebtSalePosting{
		DebtSale:       domain.ShiftDebtSale{ID: "ds-1", ShiftID: "shift-1", CustomerID: "cust-1"},
		DebtEntry:      DebtDebit("cust-1", "store-1", nil, domain.RefShiftDebtSale, "ds-1", "", decimal.NewFromInt(500), base),
		InventoryEntry: StockOut("wh-1", "prod-1", nil, domain.RefShiftDebtSale, "ds-1", "", decimal.NewFromInt(50), base),
	}))
	require.NoError(t, mem.ApplyReceipt(ctx, domain.ReceiptPosting{
		Receipt: domain.Receipt{ID: "rcpt-1", StoreID: "store-1", Amount: decimal.NewFromInt(200)},
		DebtEntries: []domain.DebtEntry{
			DebtCredit("cust-1", "store-1", nil, domain.RefPayment, "rcpt-1", "", decimal.NewFromInt(200), base.Add(time.Hour)),
		},
	}))

	lines, err := reader.DebtStatement(ctx, "cust-1", nil)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "500", lines[0].Balance.String())
	assert.Equal(t, "300", lines[1].Balance.String())

	bal, err := reader.DebtBalance(ctx, "cust-1", nil)
	require.NoError(t, err)
	assert.Equal(t, "300", bal.String())
}
