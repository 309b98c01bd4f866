package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stationops/fuelledger/internal/domain"
	"github.com/stationops/fuelledger/internal/store"
)

// GetShiftReport aggregates everything a closed (or still open) shift has
// produced into one handover view.
func (s *Service) GetShiftReport(ctx context.Context, shiftID string) (domain.ShiftReport, error) {
	shift, err := s.repo.GetShift(ctx, shiftID)
	if err != nil {
		return domain.ShiftReport{}, err
	}
	readings, err := s.repo.ListPumpReadings(ctx, shiftID)
	if err != nil {
		return domain.ShiftReport{}, err
	}
	sales, err := s.repo.ListSales(ctx, shiftID)
	if err != nil {
		return domain.ShiftReport{}, err
	}
	var retail, credit []domain.Sale
	for _, sale := range sales {
		if sale.CustomerID != nil {
			credit = append(credit, sale)
		} else {
			retail = append(retail, sale)
		}
	}
	debtSales, err := s.repo.ListShiftDebtSales(ctx, shiftID)
	if err != nil {
		return domain.ShiftReport{}, err
	}
	receipts, err := s.repo.ListReceiptsForShift(ctx, shiftID)
	if err != nil {
		return domain.ShiftReport{}, err
	}
	deposits, err := s.repo.ListDepositsForShift(ctx, shiftID)
	if err != nil {
		return domain.ShiftReport{}, err
	}
	expenses, err := s.repo.ListExpensesForShift(ctx, shiftID)
	if err != nil {
		return domain.ShiftReport{}, err
	}

	var summary domain.ShiftReportSummary
	revenue := decimal.Zero
	for _, r := range readings {
		revenue = revenue.Add(r.Quantity.Mul(r.UnitPrice))
	}
	summary.TotalRevenue = revenue.Round(2)
	// Credit volume comes from the mid-shift drafts plus the
	// customer-tagged sales posted with the close.
	for _, d := range debtSales {
		summary.TotalDebtSales = summary.TotalDebtSales.Add(d.Amount)
	}
	for _, c := range credit {
		summary.TotalDebtSales = summary.TotalDebtSales.Add(c.Amount)
	}
	summary.TotalRetail = summary.TotalRevenue.Sub(summary.TotalDebtSales)

	cashReceipts := decimal.Zero
	for _, r := range receipts {
		summary.TotalReceipts = summary.TotalReceipts.Add(r.Amount)
		if r.PaymentMethod == domain.PayCash {
			cashReceipts = cashReceipts.Add(r.Amount)
		}
	}
	cashDeposits := decimal.Zero
	for _, d := range deposits {
		summary.TotalDeposits = summary.TotalDeposits.Add(d.Amount)
		if d.PaymentMethod == domain.PayCash {
			cashDeposits = cashDeposits.Add(d.Amount)
		}
	}
	cashExpenses := decimal.Zero
	for _, e := range expenses {
		summary.TotalExpenses = summary.TotalExpenses.Add(e.Amount)
		if e.PaymentMethod == domain.PayCash {
			cashExpenses = cashExpenses.Add(e.Amount)
		}
	}
	summary.CashMovement = summary.TotalRetail.Add(cashReceipts).Sub(cashDeposits).Sub(cashExpenses)

	onHand, err := s.ledgers.CashBalance(ctx, shift.StoreID, nil)
	if err != nil {
		return domain.ShiftReport{}, err
	}
	summary.StoreCashOnHand = onHand

	return domain.ShiftReport{
		Shift:        shift,
		Summary:      summary,
		PumpReadings: readings,
		RetailSales:  retail,
		CreditSales:  credit,
		DebtSales:    debtSales,
		Receipts:     receipts,
		Deposits:     deposits,
	}, nil
}

// GetPreviousShiftReadings returns the prior shift's end meter values so
// the operator can prefill start values and spot meter tampering.
func (s *Service) GetPreviousShiftReadings(ctx context.Context, shiftID string) (domain.PreviousShiftReadings, error) {
	shift, err := s.repo.GetShift(ctx, shiftID)
	if err != nil {
		return domain.PreviousShiftReadings{}, err
	}
	prev, err := s.repo.PreviousShift(ctx, shift)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.PreviousShiftReadings{HasPrevious: false, Readings: map[string]decimal.Decimal{}}, nil
		}
		return domain.PreviousShiftReadings{}, err
	}
	readings, err := s.repo.ListPumpReadings(ctx, prev.ID)
	if err != nil {
		return domain.PreviousShiftReadings{}, err
	}
	out := domain.PreviousShiftReadings{
		HasPrevious:   true,
		PreviousShift: &prev,
		Readings:      make(map[string]decimal.Decimal, len(readings)),
	}
	for _, r := range readings {
		out.Readings[r.PumpCode] = r.EndValue
	}
	return out, nil
}

// CreditStatus reports how much headroom a customer has left.
func (s *Service) CreditStatus(ctx context.Context, customerID string) (domain.CreditStatus, error) {
	customer, err := s.repo.GetCustomer(ctx, customerID)
	if err != nil {
		return domain.CreditStatus{}, err
	}
	debt, err := s.ledgers.DebtBalance(ctx, customerID, nil)
	if err != nil {
		return domain.CreditStatus{}, err
	}
	status := domain.CreditStatus{
		CustomerID:   customer.ID,
		CustomerName: customer.Name,
		CreditLimit:  customer.CreditLimit,
		CurrentDebt:  debt,
	}
	if customer.CreditLimit.IsPositive() {
		status.AvailableCredit = customer.CreditLimit.Sub(debt)
		pct, _ := debt.Div(customer.CreditLimit).Mul(decimal.NewFromInt(100)).Float64()
		status.CreditUsagePercent = pct
		switch {
		case pct > 100:
			status.WarningLevel = "overlimit"
			status.OverLimit = true
		case pct >= 90:
			status.WarningLevel = "danger"
		case pct >= 70:
			status.WarningLevel = "warning"
		default:
			status.WarningLevel = "safe"
		}
	} else {
		status.WarningLevel = "safe"
	}
	return status, nil
}

// Ledger read-throughs for the HTTP layer.

func (s *Service) CashBalance(ctx context.Context, storeID string, until *time.Time) (decimal.Decimal, error) {
	if _, err := s.repo.GetStore(ctx, storeID); err != nil {
		return decimal.Zero, err
	}
	return s.ledgers.CashBalance(ctx, storeID, until)
}

func (s *Service) CashStatement(ctx context.Context, storeID string, until *time.Time) ([]domain.CashStatementLine, error) {
	if _, err := s.repo.GetStore(ctx, storeID); err != nil {
		return nil, err
	}
	return s.ledgers.CashStatement(ctx, storeID, until)
}

func (s *Service) DebtBalance(ctx context.Context, customerID string, until *time.Time) (decimal.Decimal, error) {
	if _, err := s.repo.GetCustomer(ctx, customerID); err != nil {
		return decimal.Zero, err
	}
	return s.ledgers.DebtBalance(ctx, customerID, until)
}

func (s *Service) DebtStatement(ctx context.Context, customerID string, until *time.Time) ([]domain.DebtStatementLine, error) {
	if _, err := s.repo.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	return s.ledgers.DebtStatement(ctx, customerID, until)
}

func (s *Service) StockBalance(ctx context.Context, warehouseID, productID string, until *time.Time) (decimal.Decimal, error) {
	return s.ledgers.StockBalance(ctx, warehouseID, productID, until)
}

func (s *Service) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

func (s *Service) ListAudit(ctx context.Context, recordID string) ([]domain.AuditLog, error) {
	return s.repo.ListAudit(ctx, recordID)
}
