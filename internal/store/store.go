package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stationops/fuelledger/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrConflict     = errors.New("record conflicts with existing data")
	ErrInvalidInput = errors.New("invalid input")
)

// Repository is the persistence boundary. The memory implementation backs
// tests and demo mode; the postgres implementation is the production store.
//
// The Apply* methods are atomic units of work: either every row in the
// posting is committed or none is. All other writes are single-row.
type Repository interface {
	// Master data (read-only here; authored elsewhere).
	GetStore(ctx context.Context, id string) (domain.Store, error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	GetCustomer(ctx context.Context, id string) (domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetWarehouseForStore(ctx context.Context, storeID string) (domain.Warehouse, error)
	GetUser(ctx context.Context, username string) (domain.UserAccount, error)

	// PriceWindows returns every price window for the product in the
	// region; the resolver selects and validates against asOf.
	PriceWindows(ctx context.Context, productID, regionID string) ([]domain.ProductPrice, error)

	// Shifts.
	CreateShift(ctx context.Context, shift domain.Shift, audit domain.AuditLog) error
	GetShift(ctx context.Context, id string) (domain.Shift, error)
	ListShifts(ctx context.Context, storeID string, limit int) ([]domain.Shift, error)
	// PreviousShift returns the closed shift immediately preceding the
	// given one for the same store, or ErrNotFound.
	PreviousShift(ctx context.Context, shift domain.Shift) (domain.Shift, error)
	HasPumpReadings(ctx context.Context, shiftID string) (bool, error)
	ListPumpReadings(ctx context.Context, shiftID string) ([]domain.PumpReading, error)

	// Atomic postings.
	ApplyShiftClose(ctx context.Context, posting domain.ShiftClosePosting) error
	// ApplyShiftReopen updates the shift, supersedes every ledger entry,
	// pump reading, sale and auto export document traceable to it, and
	// writes the audit row, all in one unit.
	ApplyShiftReopen(ctx context.Context, posting domain.ShiftReopenPosting) error
	ApplyDebtSale(ctx context.Context, posting domain.DebtSalePosting) error
	ApplyReceipt(ctx context.Context, posting domain.ReceiptPosting) error
	ApplyDeposit(ctx context.Context, posting domain.DepositPosting) error
	ApplyExpense(ctx context.Context, posting domain.ExpensePosting) error

	// Mid-shift debt sale drafts.
	GetDebtSale(ctx context.Context, id string) (domain.ShiftDebtSale, error)
	ListShiftDebtSales(ctx context.Context, shiftID string) ([]domain.ShiftDebtSale, error)
	// DeleteDebtSale removes the draft together with the ledger entries
	// and sale it posted. Callers must verify the owning shift is OPEN.
	DeleteDebtSale(ctx context.Context, id string) error

	// Ledger reads. A nil until means "now"; entries superseded by a
	// reopen are always excluded.
	ListCashEntries(ctx context.Context, storeID string, until *time.Time) ([]domain.CashEntry, error)
	ListDebtEntries(ctx context.Context, customerID string, until *time.Time) ([]domain.DebtEntry, error)
	ListInventoryEntries(ctx context.Context, warehouseID, productID string, until *time.Time) ([]domain.InventoryEntry, error)
	CashBalance(ctx context.Context, storeID string, until *time.Time) (decimal.Decimal, error)
	DebtBalance(ctx context.Context, customerID string, until *time.Time) (decimal.Decimal, error)
	StockBalance(ctx context.Context, warehouseID, productID string, until *time.Time) (decimal.Decimal, error)

	// Reopen safety scan inputs.
	ListDebtEntriesForShift(ctx context.Context, shiftID string) ([]domain.DebtEntry, error)
	// HasPaymentAfter reports whether a PAYMENT credit exists for the
	// customer with ledger_at strictly after the given instant.
	HasPaymentAfter(ctx context.Context, customerID string, after time.Time) (bool, error)

	// Shift report data.
	ListSales(ctx context.Context, shiftID string) ([]domain.Sale, error)
	ListReceiptsForShift(ctx context.Context, shiftID string) ([]domain.Receipt, error)
	ListDepositsForShift(ctx context.Context, shiftID string) ([]domain.CashDeposit, error)
	ListExpensesForShift(ctx context.Context, shiftID string) ([]domain.Expense, error)

	// Audit trail.
	ListAudit(ctx context.Context, recordID string) ([]domain.AuditLog, error)
}
