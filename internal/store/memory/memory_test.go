package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stationops/fuelledger/internal/domain"
)

func openShiftFixture(t *testing.T, m *Memory) domain.Shift {
	t.Helper()
	at := time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)
	shift := domain.Shift{
		ID: "shift-1", StoreID: "store-main", ShiftDate: at, ShiftNo: 1,
		OpenedAt: at, Status: domain.ShiftOpen, CreatedAt: at,
	}
	require.NoError(t, m.CreateShift(context.Background(), shift,
		domain.AuditLog{ID: "audit-1", TableName: "shifts", RecordID: shift.ID, Action: "CREATE", CreatedAt: at}))
	return shift
}

func TestApplyShiftCloseRejectsNonOpenShift(t *testing.T) {
	m := New()
	require.NoError(t, m.Seed())
	ctx := context.Background()
	shift := openShiftFixture(t, m)

	closedAt := shift.OpenedAt.Add(8 * time.Hour)
	closed := shift
	require.NoError(t, closed.Close(closedAt))
	posting := domain.ShiftClosePosting{
		Shift: closed,
		CashEntries: []domain.CashEntry{{
			ID: "cash-1", StoreID: "store-main", RefType: domain.RefShiftClose, RefID: shift.ID,
			CashIn: decimal.NewFromInt(1000), LedgerAt: closedAt, CreatedAt: closedAt,
		}},
		Audit: domain.AuditLog{ID: "audit-2", TableName: "shifts", RecordID: shift.ID, Action: "CLOSE", CreatedAt: closedAt},
	}
	require.NoError(t, m.ApplyShiftClose(ctx, posting))

	// A second apply must fail and leave the ledger untouched.
	err := m.ApplyShiftClose(ctx, posting)
	assert.ErrorIs(t, err, domain.ErrShiftNotOpen)
	bal, err := m.CashBalance(ctx, "store-main", nil)
	require.NoError(t, err)
	assert.Equal(t, "1000", bal.String())
}

func TestApplyShiftReopenSupersedesEverything(t *testing.T) {
	m := New()
	require.NoError(t, m.Seed())
	ctx := context.Background()
	shift := openShiftFixture(t, m)

	closedAt := shift.OpenedAt.Add(8 * time.Hour)
	closed := shift
	require.NoError(t, closed.Close(closedAt))
	shiftID := shift.ID
	require.NoError(t, m.ApplyShiftClose(ctx, domain.ShiftClosePosting{
		Shift: closed,
		PumpReadings: []domain.PumpReading{{
			ID: "reading-1", ShiftID: shiftID, PumpCode: "P1", ProductID: "prod-pertalite",
			Quantity: decimal.NewFromInt(50), UnitPrice: decimal.NewFromInt(10000), CreatedAt: closedAt,
		}},
		CashEntries: []domain.CashEntry{{
			ID: "cash-1", StoreID: "store-main", ShiftID: &shiftID, RefType: domain.RefShiftClose,
			RefID: shiftID, CashIn: decimal.NewFromInt(500000), LedgerAt: closedAt, CreatedAt: closedAt,
		}},
		InventoryEntries: []domain.InventoryEntry{{
			ID: "inv-1", WarehouseID: "wh-main", ProductID: "prod-pertalite", ShiftID: &shiftID,
			RefType: domain.RefExport, RefID: "doc-1", QuantityOut: decimal.NewFromInt(50),
			LedgerAt: closedAt, CreatedAt: closedAt,
		}},
		Audit: domain.AuditLog{ID: "audit-2", RecordID: shiftID, Action: "CLOSE", CreatedAt: closedAt},
	}))

	reopened := closed
	require.NoError(t, reopened.Reopen())
	require.NoError(t, m.ApplyShiftReopen(ctx, domain.ShiftReopenPosting{
		Shift: reopened,
		Audit: domain.AuditLog{ID: "audit-3", RecordID: shiftID, Action: "REOPEN", CreatedAt: closedAt.Add(time.Hour)},
	}))

	bal, err := m.CashBalance(ctx, "store-main", nil)
	require.NoError(t, err)
	assert.True(t, bal.IsZero())
	stock, err := m.StockBalance(ctx, "wh-main", "prod-pertalite", nil)
	require.NoError(t, err)
	assert.True(t, stock.IsZero())
	readings, err := m.ListPumpReadings(ctx, shiftID)
	require.NoError(t, err)
	assert.Empty(t, readings)

	has, err := m.HasPumpReadings(ctx, shiftID)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestApplyShiftReopenLeavesMidShiftDebtEntries(t *testing.T) {
	m := New()
	require.NoError(t, m.Seed())
	ctx := context.Background()
	shift := openShiftFixture(t, m)
	shiftID := shift.ID

	at := shift.OpenedAt.Add(time.Hour)
	require.NoError(t, m.ApplyDebtSale(ctx, domain.DebtSalePosting{
		DebtSale: domain.ShiftDebtSale{
			ID: "ds-1", ShiftID: shiftID, CustomerID: "cust-harbor", ProductID: "prod-pertalite",
			Quantity: decimal.NewFromInt(20), UnitPrice: decimal.NewFromInt(10000),
			Amount: decimal.NewFromInt(200000), CreatedAt: at,
		},
		DebtEntry: domain.DebtEntry{
			ID: "debt-1", CustomerID: "cust-harbor", StoreID: "store-main", ShiftID: &shiftID,
			RefType: domain.RefShiftDebtSale, RefID: "ds-1", Debit: decimal.NewFromInt(200000),
			LedgerAt: at, CreatedAt: at,
		},
		InventoryEntry: domain.InventoryEntry{
			ID: "inv-1", WarehouseID: "wh-main", ProductID: "prod-pertalite", ShiftID: &shiftID,
			RefType: domain.RefShiftDebtSale, RefID: "ds-1", QuantityOut: decimal.NewFromInt(20),
			LedgerAt: at, CreatedAt: at,
		},
	}))

	closedAt := shift.OpenedAt.Add(8 * time.Hour)
	closed := shift
	require.NoError(t, closed.Close(closedAt))
	require.NoError(t, m.ApplyShiftClose(ctx, domain.ShiftClosePosting{
		Shift: closed,
		CashEntries: []domain.CashEntry{{
			ID: "cash-1", StoreID: "store-main", ShiftID: &shiftID, RefType: domain.RefShiftClose,
			RefID: shiftID, CashIn: decimal.NewFromInt(300000), LedgerAt: closedAt, CreatedAt: closedAt,
		}},
		Audit: domain.AuditLog{ID: "audit-2", RecordID: shiftID, Action: "CLOSE", CreatedAt: closedAt},
	}))

	reopened := closed
	require.NoError(t, reopened.Reopen())
	require.NoError(t, m.ApplyShiftReopen(ctx, domain.ShiftReopenPosting{
		Shift: reopened,
		Audit: domain.AuditLog{ID: "audit-3", RecordID: shiftID, Action: "REOPEN", CreatedAt: closedAt.Add(time.Hour)},
	}))

	// Close output is superseded, the draft's entries stay in force.
	cash, err := m.CashBalance(ctx, "store-main", nil)
	require.NoError(t, err)
	assert.True(t, cash.IsZero())
	debt, err := m.DebtBalance(ctx, "cust-harbor", nil)
	require.NoError(t, err)
	assert.Equal(t, "200000", debt.String())
	stock, err := m.StockBalance(ctx, "wh-main", "prod-pertalite", nil)
	require.NoError(t, err)
	assert.Equal(t, "-20", stock.String())
}

func TestCreateShiftEnforcesSingleOpenPerStore(t *testing.T) {
	m := New()
	require.NoError(t, m.Seed())
	ctx := context.Background()
	openShiftFixture(t, m)

	at := time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)
	err := m.CreateShift(ctx, domain.Shift{
		ID: "shift-2", StoreID: "store-main", ShiftDate: at, ShiftNo: 2,
		OpenedAt: at, Status: domain.ShiftOpen, CreatedAt: at,
	}, domain.AuditLog{ID: "audit-x"})
	assert.ErrorIs(t, err, domain.ErrShiftAlreadyOpenForStore)
}
