package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stationops/fuelledger/internal/domain"
	"github.com/stationops/fuelledger/internal/ledger"
	"github.com/stationops/fuelledger/internal/store"
	"github.com/stationops/fuelledger/internal/xid"
)

// CloseShift turns the operator's close submission into one atomic posting:
// pump readings with price snapshots, retail and debt sales, receipts,
// deposits, expenses, inventory documents, the derived ledger entries and
// the audit row. Nothing is committed unless every validation passes.
func (s *Service) CloseShift(ctx context.Context, req domain.CloseShiftRequest) (domain.Shift, error) {
	started := s.now()
	shift, err := s.closeShift(ctx, req)
	if err != nil {
		s.metrics.ShiftCloses.WithLabelValues("error").Inc()
		return domain.Shift{}, err
	}
	s.metrics.ShiftCloses.WithLabelValues("ok").Inc()
	s.metrics.CloseDuration.Observe(s.now().Sub(started).Seconds())
	return shift, nil
}

func (s *Service) closeShift(ctx context.Context, req domain.CloseShiftRequest) (domain.Shift, error) {
	shift, err := s.repo.GetShift(ctx, req.ShiftID)
	if err != nil {
		return domain.Shift{}, err
	}
	st, err := s.repo.GetStore(ctx, shift.StoreID)
	if err != nil {
		return domain.Shift{}, err
	}
	warehouse, err := s.repo.GetWarehouseForStore(ctx, shift.StoreID)
	if err != nil {
		return domain.Shift{}, err
	}

	if len(req.PumpReadings) == 0 {
		return domain.Shift{}, fmt.Errorf("%w: at least one pump reading required", store.ErrInvalidInput)
	}
	hasReadings, err := s.repo.HasPumpReadings(ctx, shift.ID)
	if err != nil {
		return domain.Shift{}, err
	}
	if hasReadings {
		return domain.Shift{}, domain.ErrDuplicateClose
	}

	closedAt := s.now()
	if req.ClosedAt != nil {
		closedAt = req.ClosedAt.UTC()
	}
	original := shift
	if err := shift.Close(closedAt); err != nil {
		return domain.Shift{}, err
	}

	// Every price in this close resolves at the same instant.
	prices, err := s.resolveClosePrices(ctx, st.RegionID, closedAt, req)
	if err != nil {
		return domain.Shift{}, err
	}

	posting := domain.ShiftClosePosting{Shift: shift}
	var (
		pumpedQty = map[string]decimal.Decimal{}
		debtQty   = map[string]decimal.Decimal{}
		touched   []string // customers whose debt balance changed
	)

	for _, in := range req.PumpReadings {
		price := prices[in.ProductID]
		qty := ledger.Quantity(in.EndValue.Sub(in.StartValue).Sub(in.TestExport))
		if qty.IsNegative() {
			return domain.Shift{}, fmt.Errorf("%w: pump %s", domain.ErrNegativeQuantity, in.PumpCode)
		}
		posting.PumpReadings = append(posting.PumpReadings, domain.PumpReading{
			ID:         xid.New("reading"),
			ShiftID:    shift.ID,
			PumpCode:   in.PumpCode,
			ProductID:  in.ProductID,
			StartValue: ledger.Quantity(in.StartValue),
			EndValue:   ledger.Quantity(in.EndValue),
			TestExport: ledger.Quantity(in.TestExport),
			Quantity:   qty,
			UnitPrice:  price.Price,
			CreatedAt:  s.now(),
		})
		// One sale row per dispenser, full metered quantity.
		if qty.IsPositive() {
			posting.Sales = append(posting.Sales, domain.Sale{
				ID:        xid.New("sale"),
				ShiftID:   shift.ID,
				StoreID:   shift.StoreID,
				ProductID: in.ProductID,
				Quantity:  qty,
				UnitPrice: price.Price,
				Amount:    ledger.Money(qty.Mul(price.Price)),
				CreatedAt: s.now(),
			})
		}
		pumpedQty[in.ProductID] = pumpedQty[in.ProductID].Add(qty)
	}

	// Debt sales recorded mid-shift already posted their ledger entries
	// and those entries stay in force across a reopen; here they only
	// count against pumped volume and against the retail cash.
	midShift, err := s.repo.ListShiftDebtSales(ctx, shift.ID)
	if err != nil {
		return domain.Shift{}, err
	}
	for _, d := range midShift {
		debtQty[d.ProductID] = debtQty[d.ProductID].Add(d.Quantity)
	}

	// Debt sales submitted with the close become customer-tagged sale rows
	// with their own debt and stock entries, all part of this posting.
	newDebtByCustomer := map[string]decimal.Decimal{}
	for _, in := range req.DebtSales {
		if _, err := s.repo.GetCustomer(ctx, in.CustomerID); err != nil {
			return domain.Shift{}, err
		}
		unitPrice := in.UnitPrice
		if unitPrice.IsZero() {
			unitPrice = prices[in.ProductID].Price
		}
		if !in.Quantity.IsPositive() {
			return domain.Shift{}, fmt.Errorf("%w: debt sale quantity must be positive", store.ErrInvalidInput)
		}
		customerID := in.CustomerID
		amount := ledger.Money(in.Quantity.Mul(unitPrice))
		sale := domain.Sale{
			ID:         xid.New("sale"),
			ShiftID:    shift.ID,
			StoreID:    shift.StoreID,
			ProductID:  in.ProductID,
			CustomerID: &customerID,
			Quantity:   ledger.Quantity(in.Quantity),
			UnitPrice:  unitPrice,
			Amount:     amount,
			CreatedAt:  s.now(),
		}
		posting.Sales = append(posting.Sales, sale)
		posting.DebtEntries = append(posting.DebtEntries,
			ledger.DebtDebit(customerID, shift.StoreID, &shift.ID, domain.RefDebtSale, sale.ID, in.Notes, amount, closedAt))
		posting.InventoryEntries = append(posting.InventoryEntries,
			ledger.StockOut(warehouse.ID, sale.ProductID, &shift.ID, domain.RefDebtSale, sale.ID, "", sale.Quantity, closedAt))
		debtQty[in.ProductID] = debtQty[in.ProductID].Add(sale.Quantity)
		newDebtByCustomer[customerID] = newDebtByCustomer[customerID].Add(amount)
		touched = append(touched, customerID)
	}

	// A customer cannot drive off with more fuel than the meters moved.
	for productID, dq := range debtQty {
		if dq.GreaterThan(pumpedQty[productID]) {
			return domain.Shift{}, fmt.Errorf("%w: product %s", domain.ErrDebtExceedsPumped, productID)
		}
	}
	if err := s.checkCreditLimits(ctx, newDebtByCustomer); err != nil {
		return domain.Shift{}, err
	}

	// Retail remainder per product; everything not sold on credit is
	// assumed paid in cash.
	productIDs := make([]string, 0, len(pumpedQty))
	for id := range pumpedQty {
		productIDs = append(productIDs, id)
	}
	sort.Strings(productIDs)

	cashTotal := decimal.Zero
	for _, productID := range productIDs {
		retailQty := pumpedQty[productID].Sub(debtQty[productID])
		cashTotal = cashTotal.Add(ledger.Money(retailQty.Mul(prices[productID].Price)))
	}
	if cashTotal.IsPositive() {
		posting.CashEntries = append(posting.CashEntries,
			ledger.CashIn(shift.StoreID, &shift.ID, domain.RefShiftClose, shift.ID, "retail fuel sales", cashTotal, closedAt))
	}

	for _, in := range req.Receipts {
		receipt, debtEntries, cashEntry, err := s.buildReceipt(ctx, shift.StoreID, &shift.ID, in, closedAt)
		if err != nil {
			return domain.Shift{}, err
		}
		posting.Receipts = append(posting.Receipts, receipt)
		posting.DebtEntries = append(posting.DebtEntries, debtEntries...)
		if cashEntry != nil {
			posting.CashEntries = append(posting.CashEntries, *cashEntry)
		}
		for _, d := range receipt.Details {
			touched = append(touched, d.CustomerID)
		}
	}

	for _, in := range req.Deposits {
		deposit, cashEntry, err := s.buildDeposit(shift.StoreID, &shift.ID, in, closedAt)
		if err != nil {
			return domain.Shift{}, err
		}
		posting.Deposits = append(posting.Deposits, deposit)
		if cashEntry != nil {
			posting.CashEntries = append(posting.CashEntries, *cashEntry)
		}
	}

	for _, in := range req.Expenses {
		if !in.Amount.IsPositive() {
			return domain.Shift{}, fmt.Errorf("%w: expense amount must be positive", store.ErrInvalidInput)
		}
		expense, cashEntry := s.buildExpense(ctx, shift.StoreID, &shift.ID, in, closedAt)
		posting.Expenses = append(posting.Expenses, expense)
		if cashEntry != nil {
			posting.CashEntries = append(posting.CashEntries, *cashEntry)
		}
	}

	for _, in := range req.Imports {
		doc, entries, err := s.buildInventoryDoc(warehouse.ID, &shift.ID, domain.DocImport, in, closedAt)
		if err != nil {
			return domain.Shift{}, err
		}
		posting.Documents = append(posting.Documents, doc)
		posting.InventoryEntries = append(posting.InventoryEntries, entries...)
	}
	for _, in := range req.Exports {
		doc, entries, err := s.buildInventoryDoc(warehouse.ID, &shift.ID, domain.DocExport, in, closedAt)
		if err != nil {
			return domain.Shift{}, err
		}
		posting.Documents = append(posting.Documents, doc)
		posting.InventoryEntries = append(posting.InventoryEntries, entries...)
	}

	// Auto export document for the retail volume. Debt-sale volume already
	// left the tank through its own entries, and test volume went back in,
	// so the document carries pumped minus debt per product.
	autoDoc := domain.InventoryDocument{
		ID:          xid.New("invdoc"),
		WarehouseID: warehouse.ID,
		DocType:     domain.DocExport,
		DocDate:     closedAt,
		RefShiftID:  &shift.ID,
		Notes:       fmt.Sprintf("pump totals, shift %d on %s", shift.ShiftNo, shift.ShiftDate.Format(dateLayout)),
		CreatedAt:   s.now(),
	}
	for _, productID := range productIDs {
		qty := pumpedQty[productID].Sub(debtQty[productID])
		if !qty.IsPositive() {
			continue
		}
		autoDoc.Items = append(autoDoc.Items, domain.InventoryDocumentItem{
			ID:         xid.New("invitem"),
			DocumentID: autoDoc.ID,
			ProductID:  productID,
			Quantity:   qty,
			UnitPrice:  prices[productID].Price,
		})
		posting.InventoryEntries = append(posting.InventoryEntries,
			ledger.StockOut(warehouse.ID, productID, &shift.ID, domain.RefExport, autoDoc.ID, "", qty, closedAt))
	}
	if len(autoDoc.Items) > 0 {
		posting.Documents = append(posting.Documents, autoDoc)
	}

	posting.Audit = s.auditRow(ctx, "shifts", shift.ID, "CLOSE", original, shift)

	if err := s.repo.ApplyShiftClose(ctx, posting); err != nil {
		return domain.Shift{}, err
	}
	s.ledgers.InvalidateDebt(ctx, touched...)
	s.metrics.LedgerEntries.WithLabelValues("cash").Add(float64(len(posting.CashEntries)))
	s.metrics.LedgerEntries.WithLabelValues("debt").Add(float64(len(posting.DebtEntries)))
	s.metrics.LedgerEntries.WithLabelValues("inventory").Add(float64(len(posting.InventoryEntries)))
	s.logger.Info("shift closed",
		"shift_id", shift.ID, "store_id", shift.StoreID,
		"readings", len(posting.PumpReadings), "debt_sales", len(req.DebtSales),
		"cash_total", cashTotal.String(), "closed_at", closedAt)
	return shift, nil
}

// resolveClosePrices resolves every product referenced by the close at the
// close instant. Missing prices are gathered into one error so the operator
// can fix the whole price table in a single pass; an ambiguous window fails
// immediately.
func (s *Service) resolveClosePrices(ctx context.Context, regionID string, asOf time.Time, req domain.CloseShiftRequest) (map[string]domain.ProductPrice, error) {
	productIDs := map[string]bool{}
	for _, r := range req.PumpReadings {
		productIDs[r.ProductID] = true
	}
	for _, d := range req.DebtSales {
		productIDs[d.ProductID] = true
	}

	prices := make(map[string]domain.ProductPrice, len(productIDs))
	var missing []string
	for productID := range productIDs {
		if _, err := s.repo.GetProduct(ctx, productID); err != nil {
			return nil, err
		}
		price, err := s.prices.Resolve(ctx, productID, regionID, asOf)
		if err != nil {
			var mp *domain.MissingPriceError
			if errors.As(err, &mp) {
				missing = append(missing, productID)
				continue
			}
			return nil, err
		}
		prices[productID] = price
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &domain.MissingPriceError{ProductIDs: missing, RegionID: regionID, AsOf: asOf}
	}
	return prices, nil
}

func (s *Service) checkCreditLimits(ctx context.Context, newDebt map[string]decimal.Decimal) error {
	for customerID, amount := range newDebt {
		customer, err := s.repo.GetCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		if customer.CreditLimit.IsZero() {
			continue // no limit configured
		}
		current, err := s.ledgers.DebtBalance(ctx, customerID, nil)
		if err != nil {
			return err
		}
		if current.Add(amount).GreaterThan(customer.CreditLimit) {
			return &domain.CreditLimitExceededError{
				CustomerID:  customerID,
				CreditLimit: customer.CreditLimit,
				CurrentDebt: current,
				Requested:   amount,
			}
		}
	}
	return nil
}
