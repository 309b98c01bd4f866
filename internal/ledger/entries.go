package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/stationops/fuelledger/internal/domain"
	"github.com/stationops/fuelledger/internal/xid"
)

// Monetary amounts carry two decimal places, fuel quantities three.
func Money(d decimal.Decimal) decimal.Decimal    { return d.Round(2) }
func Quantity(d decimal.Decimal) decimal.Decimal { return d.Round(3) }

// Entry constructors. Each builds a fully-formed append-only row with a
// fresh id; the caller batches them into a posting for atomic commit.
// ledgerAt is the business instant of the underlying event, which for a
// shift close is the close time, not the wall clock at commit.

func CashIn(storeID string, shiftID *string, refType domain.RefType, refID, note string, amount decimal.Decimal, ledgerAt time.Time) domain.CashEntry {
	return domain.CashEntry{
		ID:        xid.New("cash"),
		StoreID:   storeID,
		ShiftID:   shiftID,
		RefType:   refType,
		RefID:     refID,
		CashIn:    Money(amount),
		CashOut:   decimal.Zero,
		Note:      note,
		LedgerAt:  ledgerAt,
		CreatedAt: time.Now().UTC(),
	}
}

func CashOut(storeID string, shiftID *string, refType domain.RefType, refID, note string, amount decimal.Decimal, ledgerAt time.Time) domain.CashEntry {
	return domain.CashEntry{
		ID:        xid.New("cash"),
		StoreID:   storeID,
		ShiftID:   shiftID,
		RefType:   refType,
		RefID:     refID,
		CashIn:    decimal.Zero,
		CashOut:   Money(amount),
		Note:      note,
		LedgerAt:  ledgerAt,
		CreatedAt: time.Now().UTC(),
	}
}

func DebtDebit(customerID, storeID string, shiftID *string, refType domain.RefType, refID, note string, amount decimal.Decimal, ledgerAt time.Time) domain.DebtEntry {
	return domain.DebtEntry{
		ID:         xid.New("debt"),
		CustomerID: customerID,
		StoreID:    storeID,
		ShiftID:    shiftID,
		RefType:    refType,
		RefID:      refID,
		Debit:      Money(amount),
		Credit:     decimal.Zero,
		Note:       note,
		LedgerAt:   ledgerAt,
		CreatedAt:  time.Now().UTC(),
	}
}

func DebtCredit(customerID, storeID string, shiftID *string, refType domain.RefType, refID, note string, amount decimal.Decimal, ledgerAt time.Time) domain.DebtEntry {
	return domain.DebtEntry{
		ID:         xid.New("debt"),
		CustomerID: customerID,
		StoreID:    storeID,
		ShiftID:    shiftID,
		RefType:    refType,
		RefID:      refID,
		Debit:      decimal.Zero,
		Credit:     Money(amount),
		Note:       note,
		LedgerAt:   ledgerAt,
		CreatedAt:  time.Now().UTC(),
	}
}

func StockIn(warehouseID, productID string, shiftID *string, refType domain.RefType, refID, note string, qty decimal.Decimal, ledgerAt time.Time) domain.InventoryEntry {
	return domain.InventoryEntry{
		ID:          xid.New("inv"),
		WarehouseID: warehouseID,
		ProductID:   productID,
		ShiftID:     shiftID,
		RefType:     refType,
		RefID:       refID,
		QuantityIn:  Quantity(qty),
		QuantityOut: decimal.Zero,
		Note:        note,
		LedgerAt:    ledgerAt,
		CreatedAt:   time.Now().UTC(),
	}
}

func StockOut(warehouseID, productID string, shiftID *string, refType domain.RefType, refID, note string, qty decimal.Decimal, ledgerAt time.Time) domain.InventoryEntry {
	return domain.InventoryEntry{
		ID:          xid.New("inv"),
		WarehouseID: warehouseID,
		ProductID:   productID,
		ShiftID:     shiftID,
		RefType:     refType,
		RefID:       refID,
		QuantityIn:  decimal.Zero,
		QuantityOut: Quantity(qty),
		Note:        note,
		LedgerAt:    ledgerAt,
		CreatedAt:   time.Now().UTC(),
	}
}
