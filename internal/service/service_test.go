package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stationops/fuelledger/internal/cache"
	"github.com/stationops/fuelledger/internal/domain"
	"github.com/stationops/fuelledger/internal/ledger"
	"github.com/stationops/fuelledger/internal/metrics"
	"github.com/stationops/fuelledger/internal/pricing"
	"github.com/stationops/fuelledger/internal/store/memory"
)

// Seeded fixtures (see memory.Seed): store-main in region-east with
// warehouse wh-main, prod-pertalite at 10000, cust-harbor with a 50M
// limit and cust-agri with a 20M limit.

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T) (*Service, *memory.Memory, *fakeClock) {
	t.Helper()
	mem := memory.New()
	require.NoError(t, mem.Seed())
	svc := New(mem,
		pricing.NewResolver(mem),
		ledger.NewReader(mem, cache.NewNoop()),
		metrics.New(prometheus.NewRegistry()),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	clk := &fakeClock{t: time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)}
	svc.WithClock(clk.Now)
	return svc, mem, clk
}

func openShift(t *testing.T, svc *Service, shiftNo int) domain.Shift {
	t.Helper()
	shift, err := svc.CreateShift(context.Background(), domain.CreateShiftRequest{
		StoreID:   "store-main",
		ShiftDate: "2025-03-10",
		ShiftNo:   shiftNo,
	})
	require.NoError(t, err)
	return shift
}

func reading(pump string, start, end, test int64) domain.PumpReadingInput {
	return domain.PumpReadingInput{
		PumpCode:   pump,
		ProductID:  "prod-pertalite",
		StartValue: decimal.NewFromInt(start),
		EndValue:   decimal.NewFromInt(end),
		TestExport: decimal.NewFromInt(test),
	}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(decimal.RequireFromString(want)), "want %s, got %s", want, got)
}

func TestCloseShiftHappyPath(t *testing.T) {
	svc, _, clk := newTestService(t)
	ctx := context.Background()
	shift := openShift(t, svc, 1)
	clk.Advance(8 * time.Hour)

	closed, err := svc.CloseShift(ctx, domain.CloseShiftRequest{
		ShiftID:      shift.ID,
		PumpReadings: []domain.PumpReadingInput{reading("P1", 100, 150, 0)},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ShiftClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)
	assert.Equal(t, clk.Now(), *closed.ClosedAt)

	// 50 liters at 10000: cash in 500000, stock down 50.
	cash, err := svc.CashBalance(ctx, "store-main", nil)
	require.NoError(t, err)
	assertDecimal(t, "500000", cash)
	stock, err := svc.StockBalance(ctx, "wh-main", "prod-pertalite", nil)
	require.NoError(t, err)
	assertDecimal(t, "-50", stock)

	report, err := svc.GetShiftReport(ctx, shift.ID)
	require.NoError(t, err)
	assertDecimal(t, "500000", report.Summary.TotalRevenue)
	assertDecimal(t, "500000", report.Summary.TotalRetail)
	require.Len(t, report.RetailSales, 1)
	assertDecimal(t, "500000", report.RetailSales[0].Amount)
	require.Len(t, report.PumpReadings, 1)
	assertDecimal(t, "10000", report.PumpReadings[0].UnitPrice)

	logs, err := svc.ListAudit(ctx, shift.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "CREATE", logs[0].Action)
	assert.Equal(t, "CLOSE", logs[1].Action)
}

func TestCloseShiftExcludesTestVolume(t *testing.T) {
	svc, _, clk := newTestService(t)
	ctx := context.Background()
	shift := openShift(t, svc, 1)
	clk.Advance(8 * time.Hour)

	_, err := svc.CloseShift(ctx, domain.CloseShiftRequest{
		ShiftID:      shift.ID,
		PumpReadings: []domain.PumpReadingInput{reading("P1", 100, 152, 2)},
	})
	require.NoError(t, err)

	// end - start - test = 50; the 2 test liters went back into the tank.
	cash, err := svc.CashBalance(ctx, "store-main", nil)
	require.NoError(t, err)
	assertDecimal(t, "500000", cash)
	stock, err := svc.StockBalance(ctx, "wh-main", "prod-pertalite", nil)
	require.NoError(t, err)
	assertDecimal(t, "-50", stock)
}

func TestCloseShiftWithDebtSale(t *testing.T) {
	svc, _, clk := newTestService(t)
	ctx := context.Background()
	shift := openShift(t, svc, 1)
	clk.Advance(8 * time.Hour)

	_, err := svc.CloseShift(ctx, domain.CloseShiftRequest{
		ShiftID:      shift.ID,
		PumpReadings: []domain.PumpReadingInput{reading("P1", 100, 150, 0)},
		DebtSales: []domain.DebtSaleInput{{
			CustomerID: "cust-harbor",
			ProductID:  "prod-pertalite",
			Quantity:   decimal.NewFromInt(20),
		}},
	})
	require.NoError(t, err)

	// Cash only covers the retail remainder: 50 pumped - 20 on credit.
	cash, err := svc.CashBalance(ctx, "store-main", nil)
	require.NoError(t, err)
	assertDecimal(t, "300000", cash)
	debt, err := svc.DebtBalance(ctx, "cust-harbor", nil)
	require.NoError(t, err)
	assertDecimal(t, "200000", debt)
	// Total stock out still equals pumped volume.
	stock, err := svc.StockBalance(ctx, "wh-main", "prod-pertalite", nil)
	require.NoError(t, err)
	assertDecimal(t, "-50", stock)
}

func TestCloseShiftDuplicateCloseLeavesStateUntouched(t *testing.T) {
	svc, _, clk := newTestService(t)
	ctx := context.Background()
	shift := openShift(t, svc, 1)
	clk.Advance(8 * time.Hour)

	_, err := svc.CloseShift(ctx, domain.CloseShiftRequest{
		ShiftID:      shift.ID,
		PumpReadings: []domain.PumpReadingInput{reading("P1", 100, 150, 0)},
	})
	require.NoError(t, err)

	_, err = svc.CloseShift(ctx, domain.CloseShiftRequest{
		ShiftID:      shift.ID,
		PumpReadings: []domain.PumpReadingInput{reading("P1", 150, 200, 0)},
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateClose)

	cash, err := svc.CashBalance(ctx, "store-main", nil)
	require.NoError(t, err)
	assertDecimal(t, "500000", cash)
	readings, err := svc.repo.ListPumpReadings(ctx, shift.ID)
	require.NoError(t, err)
	assert.Len(t, readings, 1)
}

func TestCloseShiftMissingPriceCommitsNothing(t *testing.T) {
	svc, mem, clk := newTestService(t)
	ctx := context.Background()
	mem.AddProduct(domain.Product{ID: "prod-premium", Code: "PRM", Name: "Premium", Unit: "liter"})
	shift := openShift(t, svc, 1)
	clk.Advance(8 * time.Hour)

	_, err := svc.CloseShift(ctx, domain.CloseShiftRequest{
		ShiftID: shift.ID,
		PumpReadings: []domain.PumpReadingInput{
			reading("P1", 100, 150, 0),
			{PumpCode: "P2", ProductID: "prod-premium", StartValue: decimal.NewFromInt(0), EndValue: decimal.NewFromInt(10)},
		},
	})
	var missing *domain.MissingPriceError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"prod-premium"}, missing.ProductIDs)

	got, err := svc.GetShift(ctx, shift.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ShiftOpen, got.Status)
	cash, err := svc.CashBalance(ctx, "store-main", nil)
	require.NoError(t, err)
	assert.True(t, cash.IsZero())
	readings, err := svc.repo.ListPumpReadings(ctx, shift.ID)
	require.NoError(t, err)
	assert.Empty(t, readings)
}

func TestCloseShiftDebtExceedsPumped(t *testing.T) {
	svc, _, clk := newTestService(t)
	ctx := context.Background()
	shift := openShift(t, svc, 1)
	clk.Advance(8 * time.Hour)

	_, err := svc.CloseShift(ctx, domain.CloseShiftRequest{
		ShiftID:      shift.ID,
		PumpReadings: []domain.PumpReadingInput{reading("P1", 100, 150, 0)},
		DebtSales: []domain.DebtSaleInput{{
			CustomerID: "cust-harbor",
			ProductID:  "prod-pertalite",
			Quantity:   decimal.NewFromInt(60),
		}},
	})
	assert.ErrorIs(t, err, domain.ErrDebtExceedsPumped)
}

func TestCloseShiftCreditLimit(t *testing.T) {
	svc, _, clk := newTestService(t)
	ctx := context.Background()
	shift := openShift(t, svc, 1)
	clk.Advance(8 * time.Hour)

	// 2001 liters at 10000 exceeds cust-agri's 20M limit by 10000.
	_, err := svc.CloseShift(ctx, domain.CloseShiftRequest{
		ShiftID:      shift.ID,
		PumpReadings: []domain.PumpReadingInput{reading("P1", 0, 2001, 0)},
		DebtSales: []domain.DebtSaleInput{{
			CustomerID: "cust-agri",
			ProductID:  "prod-pertalite",
			Quantity:   decimal.NewFromInt(2001),
		}},
	})
	var limit *domain.CreditLimitExceededError
	require.ErrorAs(t, err, &limit)
	assert.Equal(t, "cust-agri", limit.CustomerID)

	got, err := svc.GetShift(ctx, shift.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ShiftOpen, got.Status)
}

func TestCloseShiftReceiptDetailMismatch(t *testing.T) {
	svc, _, clk := newTestService(t)
	ctx := context.Background()
	shift := openShift(t, svc, 1)
	clk.Advance(8 * time.Hour)

	_, err := svc.CloseShift(ctx, domain.CloseShiftRequest{
		ShiftID:      shift.ID,
		PumpReadings: []domain.PumpReadingInput{reading("P1", 100, 150, 0)},
		Receipts: []domain.ReceiptInput{{
			ReceiptType:   "DEBT_PAYMENT",
			Amount:        decimal.NewFromInt(1000),
			PaymentMethod: domain.PayCash,
			Details: []domain.ReceiptDetailInput{
				{CustomerID: "cust-harbor", Amount: decimal.NewFromInt(900)},
			},
		}},
	})
	assert.ErrorIs(t, err, domain.ErrReceiptDetailMismatch)

	cash, err := svc.CashBalance(ctx, "store-main", nil)
	require.NoError(t, err)
	assert.True(t, cash.IsZero())
}

func TestReopenRestoresBalancesAndRecloseMatches(t *testing.T) {
	svc, _, clk := newTestService(t)
	ctx := context.Background()
	shift := openShift(t, svc, 1)
	clk.Advance(8 * time.Hour)

	req := domain.CloseShiftRequest{
		ShiftID:      shift.ID,
		PumpReadings: []domain.PumpReadingInput{reading("P1", 100, 150, 0)},
		DebtSales: []domain.DebtSaleInput{{
			CustomerID: "cust-harbor",
			ProductID:  "prod-pertalite",
			Quantity:   decimal.NewFromInt(20),
		}},
	}
	_, err := svc.CloseShift(ctx, req)
	require.NoError(t, err)

	clk.Advance(time.Hour)
	reopened, err := svc.ReopenShift(ctx, shift.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ShiftOpen, reopened.Status)
	assert.Nil(t, reopened.ClosedAt)

	// All effects are out of play, history intact.
	cash, err := svc.CashBalance(ctx, "store-main", nil)
	require.NoError(t, err)
	assert.True(t, cash.IsZero())
	debt, err := svc.DebtBalance(ctx, "cust-harbor", nil)
	require.NoError(t, err)
	assert.True(t, debt.IsZero())
	stock, err := svc.StockBalance(ctx, "wh-main", "prod-pertalite", nil)
	require.NoError(t, err)
	assert.True(t, stock.IsZero())

	// Close -> reopen -> close converges to the same balances.
	clk.Advance(time.Hour)
	_, err = svc.CloseShift(ctx, req)
	require.NoError(t, err)
	cash, err = svc.CashBalance(ctx, "store-main", nil)
	require.NoError(t, err)
	assertDecimal(t, "300000", cash)
	debt, err = svc.DebtBalance(ctx, "cust-harbor", nil)
	require.NoError(t, err)
	assertDecimal(t, "200000", debt)
	stock, err = svc.StockBalance(ctx, "wh-main", "prod-pertalite", nil)
	require.NoError(t, err)
	assertDecimal(t, "-50", stock)

	logs, err := svc.ListAudit(ctx, shift.ID)
	require.NoError(t, err)
	require.Len(t, logs, 4)
	assert.Equal(t, "REOPEN", logs[2].Action)
}

func TestReopenKeepsMidShiftDebtSaleAndRecloseMatches(t *testing.T) {
	svc, _, clk := newTestService(t)
	ctx := context.Background()
	shift := openShift(t, svc, 1)
	clk.Advance(time.Hour)

	_, err := svc.CreateDebtSale(ctx, domain.CreateDebtSaleRequest{
		ShiftID: shift.ID,
		DebtSaleInput: domain.DebtSaleInput{
			CustomerID: "cust-harbor",
			ProductID:  "prod-pertalite",
			Quantity:   decimal.NewFromInt(20),
		},
	})
	require.NoError(t, err)

	clk.Advance(7 * time.Hour)
	req := domain.CloseShiftRequest{
		ShiftID:      shift.ID,
		PumpReadings: []domain.PumpReadingInput{reading("P1", 100, 150, 0)},
	}
	_, err = svc.CloseShift(ctx, req)
	require.NoError(t, err)

	// The draft posted before the close stays in force across the reopen.
	clk.Advance(time.Hour)
	_, err = svc.ReopenShift(ctx, shift.ID)
	require.NoError(t, err)
	debt, err := svc.DebtBalance(ctx, "cust-harbor", nil)
	require.NoError(t, err)
	assertDecimal(t, "200000", debt)
	stock, err := svc.StockBalance(ctx, "wh-main", "prod-pertalite", nil)
	require.NoError(t, err)
	assertDecimal(t, "-20", stock)
	cash, err := svc.CashBalance(ctx, "store-main", nil)
	require.NoError(t, err)
	assert.True(t, cash.IsZero())

	// Re-closing with the identical payload reproduces the balances.
	clk.Advance(time.Hour)
	_, err = svc.CloseShift(ctx, req)
	require.NoError(t, err)
	cash, err = svc.CashBalance(ctx, "store-main", nil)
	require.NoError(t, err)
	assertDecimal(t, "300000", cash)
	debt, err = svc.DebtBalance(ctx, "cust-harbor", nil)
	require.NoError(t, err)
	assertDecimal(t, "200000", debt)
	stock, err = svc.StockBalance(ctx, "wh-main", "prod-pertalite", nil)
	require.NoError(t, err)
	assertDecimal(t, "-50", stock)
}

func TestRecloseWithManualImportDoesNotDoubleCount(t *testing.T) {
	svc, _, clk := newTestService(t)
	ctx := context.Background()
	shift := openShift(t, svc, 1)
	clk.Advance(8 * time.Hour)

	req := domain.CloseShiftRequest{
		ShiftID:      shift.ID,
		PumpReadings: []domain.PumpReadingInput{reading("P1", 100, 150, 0)},
		Imports: []domain.InventoryDocInput{{
			Items: []domain.InventoryDocItemInput{{
				ProductID: "prod-pertalite",
				Quantity:  decimal.NewFromInt(1000),
			}},
		}},
	}
	_, err := svc.CloseShift(ctx, req)
	require.NoError(t, err)
	stock, err := svc.StockBalance(ctx, "wh-main", "prod-pertalite", nil)
	require.NoError(t, err)
	assertDecimal(t, "950", stock)

	// The manual document belongs to the close, so the reopen takes it
	// out of play and the re-close posts it exactly once.
	clk.Advance(time.Hour)
	_, err = svc.ReopenShift(ctx, shift.ID)
	require.NoError(t, err)
	stock, err = svc.StockBalance(ctx, "wh-main", "prod-pertalite", nil)
	require.NoError(t, err)
	assert.True(t, stock.IsZero())

	clk.Advance(time.Hour)
	_, err = svc.CloseShift(ctx, req)
	require.NoError(t, err)
	stock, err = svc.StockBalance(ctx, "wh-main", "prod-pertalite", nil)
	require.NoError(t, err)
	assertDecimal(t, "950", stock)
}

func TestCloseCreatesSaleRows(t *testing.T) {
	svc, _, clk := newTestService(t)
	ctx := context.Background()
	shift := openShift(t, svc, 1)
	clk.Advance(8 * time.Hour)

	_, err := svc.CloseShift(ctx, domain.CloseShiftRequest{
		ShiftID:      shift.ID,
		PumpReadings: []domain.PumpReadingInput{reading("P1", 100, 150, 0)},
		DebtSales: []domain.DebtSaleInput{{
			CustomerID: "cust-harbor",
			ProductID:  "prod-pertalite",
			Quantity:   decimal.NewFromInt(20),
		}},
	})
	require.NoError(t, err)

	// One sale per dispenser at full metered quantity, plus one
	// customer-tagged sale per close-time debt sale.
	sales, err := svc.repo.ListSales(ctx, shift.ID)
	require.NoError(t, err)
	require.Len(t, sales, 2)
	var retail, credit []domain.Sale
	for _, sale := range sales {
		if sale.CustomerID != nil {
			credit = append(credit, sale)
		} else {
			retail = append(retail, sale)
		}
	}
	require.Len(t, retail, 1)
	assertDecimal(t, "50", retail[0].Quantity)
	assertDecimal(t, "500000", retail[0].Amount)
	require.Len(t, credit, 1)
	assert.Equal(t, "cust-harbor", *credit[0].CustomerID)
	assertDecimal(t, "20", credit[0].Quantity)
	assertDecimal(t, "200000", credit[0].Amount)

	report, err := svc.GetShiftReport(ctx, shift.ID)
	require.NoError(t, err)
	require.Len(t, report.CreditSales, 1)
	assertDecimal(t, "200000", report.Summary.TotalDebtSales)
	assertDecimal(t, "300000", report.Summary.TotalRetail)
}

func TestReopenRefusedAfterLaterPayment(t *testing.T) {
	svc, _, clk := newTestService(t)
	ctx := context.Background()
	shift := openShift(t, svc, 1)
	clk.Advance(8 * time.Hour)

	_, err := svc.CloseShift(ctx, domain.CloseShiftRequest{
		ShiftID:      shift.ID,
		PumpReadings: []domain.PumpReadingInput{reading("P1", 100, 150, 0)},
		DebtSales: []domain.DebtSaleInput{{
			CustomerID: "cust-harbor",
			ProductID:  "prod-pertalite",
			Quantity:   decimal.NewFromInt(20),
		}},
	})
	require.NoError(t, err)

	clk.Advance(time.Hour)
	_, err = svc.CreateReceipt(ctx, domain.CreateReceiptRequest{
		StoreID: "store-main",
		ReceiptInput: domain.ReceiptInput{
			ReceiptType:   "DEBT_PAYMENT",
			Amount:        decimal.NewFromInt(50000),
			PaymentMethod: domain.PayCash,
			Details: []domain.ReceiptDetailInput{
				{CustomerID: "cust-harbor", Amount: decimal.NewFromInt(50000)},
			},
		},
	})
	require.NoError(t, err)

	_, err = svc.ReopenShift(ctx, shift.ID)
	var unsafe *domain.UnsafeReopenError
	require.ErrorAs(t, err, &unsafe)
	assert.Equal(t, []string{"cust-harbor"}, unsafe.CustomerIDs)

	// Still closed; balances keep both the close and the payment.
	got, err := svc.GetShift(ctx, shift.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ShiftClosed, got.Status)
	debt, err := svc.DebtBalance(ctx, "cust-harbor", nil)
	require.NoError(t, err)
	assertDecimal(t, "150000", debt)
}

func TestMidShiftDebtSaleLifecycle(t *testing.T) {
	svc, _, clk := newTestService(t)
	ctx := context.Background()
	shift := openShift(t, svc, 1)
	clk.Advance(time.Hour)

	sale, err := svc.CreateDebtSale(ctx, domain.CreateDebtSaleRequest{
		ShiftID: shift.ID,
		DebtSaleInput: domain.DebtSaleInput{
			CustomerID: "cust-harbor",
			ProductID:  "prod-pertalite",
			Quantity:   decimal.NewFromInt(30),
		},
	})
	require.NoError(t, err)
	assertDecimal(t, "300000", sale.Amount) // price resolved to 10000

	debt, err := svc.DebtBalance(ctx, "cust-harbor", nil)
	require.NoError(t, err)
	assertDecimal(t, "300000", debt)
	stock, err := svc.StockBalance(ctx, "wh-main", "prod-pertalite", nil)
	require.NoError(t, err)
	assertDecimal(t, "-30", stock)

	// Drafts are deletable while the shift is open.
	require.NoError(t, svc.DeleteDebtSale(ctx, sale.ID))
	debt, err = svc.DebtBalance(ctx, "cust-harbor", nil)
	require.NoError(t, err)
	assert.True(t, debt.IsZero())
	stock, err = svc.StockBalance(ctx, "wh-main", "prod-pertalite", nil)
	require.NoError(t, err)
	assert.True(t, stock.IsZero())
}

func TestMidShiftDebtSaleCountsAgainstClose(t *testing.T) {
	svc, _, clk := newTestService(t)
	ctx := context.Background()
	shift := openShift(t, svc, 1)
	clk.Advance(time.Hour)

	sale, err := svc.CreateDebtSale(ctx, domain.CreateDebtSaleRequest{
		ShiftID: shift.ID,
		DebtSaleInput: domain.DebtSaleInput{
			CustomerID: "cust-harbor",
			ProductID:  "prod-pertalite",
			Quantity:   decimal.NewFromInt(30),
		},
	})
	require.NoError(t, err)

	clk.Advance(7 * time.Hour)
	_, err = svc.CloseShift(ctx, domain.CloseShiftRequest{
		ShiftID:      shift.ID,
		PumpReadings: []domain.PumpReadingInput{reading("P1", 100, 150, 0)},
	})
	require.NoError(t, err)

	// 50 pumped, 30 already on credit: cash covers 20 liters.
	cash, err := svc.CashBalance(ctx, "store-main", nil)
	require.NoError(t, err)
	assertDecimal(t, "200000", cash)
	stock, err := svc.StockBalance(ctx, "wh-main", "prod-pertalite", nil)
	require.NoError(t, err)
	assertDecimal(t, "-50", stock)

	// Once closed the draft is part of the record.
	err = svc.DeleteDebtSale(ctx, sale.ID)
	assert.ErrorIs(t, err, domain.ErrShiftNotOpen)
}

func TestShiftUniquenessRules(t *testing.T) {
	svc, _, clk := newTestService(t)
	ctx := context.Background()
	shift := openShift(t, svc, 1)

	_, err := svc.CreateShift(ctx, domain.CreateShiftRequest{
		StoreID: "store-main", ShiftDate: "2025-03-10", ShiftNo: 2,
	})
	assert.ErrorIs(t, err, domain.ErrShiftAlreadyOpenForStore)

	clk.Advance(8 * time.Hour)
	_, err = svc.CloseShift(ctx, domain.CloseShiftRequest{
		ShiftID:      shift.ID,
		PumpReadings: []domain.PumpReadingInput{reading("P1", 100, 150, 0)},
	})
	require.NoError(t, err)

	_, err = svc.CreateShift(ctx, domain.CreateShiftRequest{
		StoreID: "store-main", ShiftDate: "2025-03-10", ShiftNo: 1,
	})
	assert.ErrorIs(t, err, domain.ErrShiftAlreadyExists)

	_, err = svc.CreateShift(ctx, domain.CreateShiftRequest{
		StoreID: "store-main", ShiftDate: "2025-03-10", ShiftNo: 2,
	})
	require.NoError(t, err)
}

func TestPreviousShiftReadings(t *testing.T) {
	svc, _, clk := newTestService(t)
	ctx := context.Background()
	first := openShift(t, svc, 1)

	prev, err := svc.GetPreviousShiftReadings(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, prev.HasPrevious)

	clk.Advance(8 * time.Hour)
	_, err = svc.CloseShift(ctx, domain.CloseShiftRequest{
		ShiftID:      first.ID,
		PumpReadings: []domain.PumpReadingInput{reading("P1", 100, 150, 0)},
	})
	require.NoError(t, err)

	second, err := svc.CreateShift(ctx, domain.CreateShiftRequest{
		StoreID: "store-main", ShiftDate: "2025-03-10", ShiftNo: 2,
	})
	require.NoError(t, err)

	prev, err = svc.GetPreviousShiftReadings(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, prev.HasPrevious)
	require.NotNil(t, prev.PreviousShift)
	assert.Equal(t, first.ID, prev.PreviousShift.ID)
	assertDecimal(t, "150", prev.Readings["P1"])
}

func TestDepositsAndExpensesMoveCash(t *testing.T) {
	svc, _, clk := newTestService(t)
	ctx := context.Background()
	shift := openShift(t, svc, 1)
	clk.Advance(8 * time.Hour)

	_, err := svc.CloseShift(ctx, domain.CloseShiftRequest{
		ShiftID:      shift.ID,
		PumpReadings: []domain.PumpReadingInput{reading("P1", 100, 150, 0)},
	})
	require.NoError(t, err)

	clk.Advance(time.Hour)
	_, err = svc.CreateCashDeposit(ctx, domain.CreateDepositRequest{
		StoreID: "store-main",
		DepositInput: domain.DepositInput{
			Amount:        decimal.NewFromInt(400000),
			PaymentMethod: domain.PayCash,
		},
	})
	require.NoError(t, err)
	_, err = svc.CreateExpense(ctx, domain.CreateExpenseRequest{
		StoreID: "store-main",
		ExpenseInput: domain.ExpenseInput{
			Category:      "utilities",
			Amount:        decimal.NewFromInt(25000),
			PaymentMethod: domain.PayCash,
		},
	})
	require.NoError(t, err)

	// Bank transfers leave the cash drawer alone.
	_, err = svc.CreateCashDeposit(ctx, domain.CreateDepositRequest{
		StoreID: "store-main",
		DepositInput: domain.DepositInput{
			Amount:        decimal.NewFromInt(999999),
			PaymentMethod: domain.PayBankTransfer,
		},
	})
	require.NoError(t, err)

	cash, err := svc.CashBalance(ctx, "store-main", nil)
	require.NoError(t, err)
	assertDecimal(t, "75000", cash)
}

func TestCreditStatus(t *testing.T) {
	svc, _, clk := newTestService(t)
	ctx := context.Background()
	shift := openShift(t, svc, 1)
	clk.Advance(time.Hour)

	_, err := svc.CreateDebtSale(ctx, domain.CreateDebtSaleRequest{
		ShiftID: shift.ID,
		DebtSaleInput: domain.DebtSaleInput{
			CustomerID: "cust-agri",
			ProductID:  "prod-pertalite",
			Quantity:   decimal.NewFromInt(1900), // 19M of a 20M limit
		},
	})
	require.NoError(t, err)

	status, err := svc.CreditStatus(ctx, "cust-agri")
	require.NoError(t, err)
	assertDecimal(t, "19000000", status.CurrentDebt)
	assertDecimal(t, "1000000", status.AvailableCredit)
	assert.Equal(t, "danger", status.WarningLevel)
	assert.False(t, status.OverLimit)
}
