package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stationops/fuelledger/internal/domain"
	"github.com/stationops/fuelledger/internal/ledger"
	"github.com/stationops/fuelledger/internal/store"
	"github.com/stationops/fuelledger/internal/xid"
)

// Mid-shift writes. Each posts immediately in its own atomic unit; the
// owning shift must still be OPEN. Debt sale rows created here carry the
// SHIFT_DEBT_SALE ref type and survive a reopen untouched; every close of
// the shift counts them against pumped volume again.

func (s *Service) CreateDebtSale(ctx context.Context, req domain.CreateDebtSaleRequest) (domain.ShiftDebtSale, error) {
	shift, err := s.repo.GetShift(ctx, req.ShiftID)
	if err != nil {
		return domain.ShiftDebtSale{}, err
	}
	if shift.Status != domain.ShiftOpen {
		return domain.ShiftDebtSale{}, domain.ErrShiftNotOpen
	}
	if !req.Quantity.IsPositive() {
		return domain.ShiftDebtSale{}, fmt.Errorf("%w: quantity must be positive", store.ErrInvalidInput)
	}
	if _, err := s.repo.GetProduct(ctx, req.ProductID); err != nil {
		return domain.ShiftDebtSale{}, err
	}
	if _, err := s.repo.GetCustomer(ctx, req.CustomerID); err != nil {
		return domain.ShiftDebtSale{}, err
	}
	warehouse, err := s.repo.GetWarehouseForStore(ctx, shift.StoreID)
	if err != nil {
		return domain.ShiftDebtSale{}, err
	}

	now := s.now()
	unitPrice := req.UnitPrice
	if unitPrice.IsZero() {
		st, err := s.repo.GetStore(ctx, shift.StoreID)
		if err != nil {
			return domain.ShiftDebtSale{}, err
		}
		price, err := s.prices.Resolve(ctx, req.ProductID, st.RegionID, now)
		if err != nil {
			return domain.ShiftDebtSale{}, err
		}
		unitPrice = price.Price
	}
	amount := ledger.Money(req.Quantity.Mul(unitPrice))
	if err := s.checkCreditLimits(ctx, map[string]decimal.Decimal{req.CustomerID: amount}); err != nil {
		return domain.ShiftDebtSale{}, err
	}

	sale := domain.ShiftDebtSale{
		ID:         xid.New("debtsale"),
		ShiftID:    shift.ID,
		CustomerID: req.CustomerID,
		ProductID:  req.ProductID,
		Quantity:   ledger.Quantity(req.Quantity),
		UnitPrice:  unitPrice,
		Amount:     amount,
		Notes:      req.Notes,
		CreatedAt:  now,
	}
	posting := domain.DebtSalePosting{
		DebtSale:       sale,
		DebtEntry:      ledger.DebtDebit(sale.CustomerID, shift.StoreID, &shift.ID, domain.RefShiftDebtSale, sale.ID, sale.Notes, amount, now),
		InventoryEntry: ledger.StockOut(warehouse.ID, sale.ProductID, &shift.ID, domain.RefShiftDebtSale, sale.ID, "", sale.Quantity, now),
	}
	if err := s.repo.ApplyDebtSale(ctx, posting); err != nil {
		return domain.ShiftDebtSale{}, err
	}
	s.ledgers.InvalidateDebt(ctx, sale.CustomerID)
	s.metrics.LedgerEntries.WithLabelValues("debt").Inc()
	s.metrics.LedgerEntries.WithLabelValues("inventory").Inc()
	s.logger.Info("debt sale recorded", "debt_sale_id", sale.ID, "shift_id", shift.ID,
		"customer_id", sale.CustomerID, "amount", amount.String())
	return sale, nil
}

// DeleteDebtSale removes a draft and its ledger entries. Allowed only
// while the owning shift is still OPEN; after the close the sale is part
// of the immutable record and only a reopen can take it out of play.
func (s *Service) DeleteDebtSale(ctx context.Context, id string) error {
	sale, err := s.repo.GetDebtSale(ctx, id)
	if err != nil {
		return err
	}
	shift, err := s.repo.GetShift(ctx, sale.ShiftID)
	if err != nil {
		return err
	}
	if shift.Status != domain.ShiftOpen {
		return domain.ErrShiftNotOpen
	}
	if err := s.repo.DeleteDebtSale(ctx, id); err != nil {
		return err
	}
	s.ledgers.InvalidateDebt(ctx, sale.CustomerID)
	s.logger.Info("debt sale deleted", "debt_sale_id", id, "shift_id", shift.ID)
	return nil
}

func (s *Service) ListShiftDebtSales(ctx context.Context, shiftID string) ([]domain.ShiftDebtSale, error) {
	if _, err := s.repo.GetShift(ctx, shiftID); err != nil {
		return nil, err
	}
	return s.repo.ListShiftDebtSales(ctx, shiftID)
}

func (s *Service) CreateReceipt(ctx context.Context, req domain.CreateReceiptRequest) (domain.Receipt, error) {
	if _, err := s.repo.GetStore(ctx, req.StoreID); err != nil {
		return domain.Receipt{}, err
	}
	now := s.now()
	receipt, debtEntries, cashEntry, err := s.buildReceipt(ctx, req.StoreID, req.ShiftID, req.ReceiptInput, now)
	if err != nil {
		return domain.Receipt{}, err
	}
	posting := domain.ReceiptPosting{Receipt: receipt, DebtEntries: debtEntries, CashEntry: cashEntry}
	if err := s.repo.ApplyReceipt(ctx, posting); err != nil {
		return domain.Receipt{}, err
	}
	for _, d := range receipt.Details {
		s.ledgers.InvalidateDebt(ctx, d.CustomerID)
	}
	s.metrics.LedgerEntries.WithLabelValues("debt").Add(float64(len(debtEntries)))
	s.logger.Info("receipt recorded", "receipt_id", receipt.ID, "store_id", req.StoreID,
		"amount", receipt.Amount.String(), "method", receipt.PaymentMethod)
	return receipt, nil
}

func (s *Service) CreateCashDeposit(ctx context.Context, req domain.CreateDepositRequest) (domain.CashDeposit, error) {
	if _, err := s.repo.GetStore(ctx, req.StoreID); err != nil {
		return domain.CashDeposit{}, err
	}
	deposit, cashEntry, err := s.buildDeposit(req.StoreID, req.ShiftID, req.DepositInput, s.now())
	if err != nil {
		return domain.CashDeposit{}, err
	}
	if err := s.repo.ApplyDeposit(ctx, domain.DepositPosting{Deposit: deposit, CashEntry: cashEntry}); err != nil {
		return domain.CashDeposit{}, err
	}
	s.logger.Info("cash deposit recorded", "deposit_id", deposit.ID, "store_id", req.StoreID,
		"amount", deposit.Amount.String())
	return deposit, nil
}

func (s *Service) CreateExpense(ctx context.Context, req domain.CreateExpenseRequest) (domain.Expense, error) {
	if _, err := s.repo.GetStore(ctx, req.StoreID); err != nil {
		return domain.Expense{}, err
	}
	if !req.Amount.IsPositive() {
		return domain.Expense{}, fmt.Errorf("%w: amount must be positive", store.ErrInvalidInput)
	}
	expense, cashEntry := s.buildExpense(ctx, req.StoreID, req.ShiftID, req.ExpenseInput, s.now())
	if err := s.repo.ApplyExpense(ctx, domain.ExpensePosting{Expense: expense, CashEntry: cashEntry}); err != nil {
		return domain.Expense{}, err
	}
	s.logger.Info("expense recorded", "expense_id", expense.ID, "store_id", req.StoreID,
		"amount", expense.Amount.String())
	return expense, nil
}

// ---------------------------------------------------------------------------
// Builders shared between the mid-shift paths and the close orchestrator.
// ---------------------------------------------------------------------------

func validMethod(m domain.PaymentMethod) bool {
	return m == domain.PayCash || m == domain.PayBankTransfer
}

func (s *Service) buildReceipt(ctx context.Context, storeID string, shiftID *string, in domain.ReceiptInput, ledgerAt time.Time) (domain.Receipt, []domain.DebtEntry, *domain.CashEntry, error) {
	if !in.Amount.IsPositive() {
		return domain.Receipt{}, nil, nil, fmt.Errorf("%w: receipt amount must be positive", store.ErrInvalidInput)
	}
	if !validMethod(in.PaymentMethod) {
		return domain.Receipt{}, nil, nil, fmt.Errorf("%w: unknown payment method %q", store.ErrInvalidInput, in.PaymentMethod)
	}

	receipt := domain.Receipt{
		ID:            xid.New("receipt"),
		StoreID:       storeID,
		ShiftID:       shiftID,
		ReceiptType:   in.ReceiptType,
		Amount:        ledger.Money(in.Amount),
		PaymentMethod: in.PaymentMethod,
		Notes:         in.Notes,
		CreatedAt:     s.now(),
	}
	if receipt.ReceiptType == "" {
		receipt.ReceiptType = "DEBT_PAYMENT"
	}

	var debtEntries []domain.DebtEntry
	if len(in.Details) > 0 {
		sum := decimal.Zero
		for _, d := range in.Details {
			sum = sum.Add(d.Amount)
		}
		if !ledger.Money(sum).Equal(receipt.Amount) {
			return domain.Receipt{}, nil, nil, domain.ErrReceiptDetailMismatch
		}
		for _, d := range in.Details {
			if _, err := s.repo.GetCustomer(ctx, d.CustomerID); err != nil {
				return domain.Receipt{}, nil, nil, err
			}
			detail := domain.ReceiptDetail{
				ID:         xid.New("rcptdet"),
				ReceiptID:  receipt.ID,
				CustomerID: d.CustomerID,
				Amount:     ledger.Money(d.Amount),
			}
			receipt.Details = append(receipt.Details, detail)
			debtEntries = append(debtEntries,
				ledger.DebtCredit(d.CustomerID, storeID, shiftID, domain.RefPayment, receipt.ID, in.Notes, d.Amount, ledgerAt))
		}
	} else if receipt.ReceiptType == "DEBT_PAYMENT" {
		return domain.Receipt{}, nil, nil, fmt.Errorf("%w: debt payment receipt requires details", store.ErrInvalidInput)
	}

	var cashEntry *domain.CashEntry
	if receipt.PaymentMethod == domain.PayCash {
		e := ledger.CashIn(storeID, shiftID, domain.RefReceipt, receipt.ID, in.Notes, receipt.Amount, ledgerAt)
		cashEntry = &e
	}
	return receipt, debtEntries, cashEntry, nil
}

func (s *Service) buildDeposit(storeID string, shiftID *string, in domain.DepositInput, ledgerAt time.Time) (domain.CashDeposit, *domain.CashEntry, error) {
	if !in.Amount.IsPositive() {
		return domain.CashDeposit{}, nil, fmt.Errorf("%w: deposit amount must be positive", store.ErrInvalidInput)
	}
	if !validMethod(in.PaymentMethod) {
		return domain.CashDeposit{}, nil, fmt.Errorf("%w: unknown payment method %q", store.ErrInvalidInput, in.PaymentMethod)
	}
	depositDate := ledgerAt
	if in.DepositDate != "" {
		parsed, err := time.ParseInLocation(dateLayout, in.DepositDate, time.UTC)
		if err != nil {
			return domain.CashDeposit{}, nil, fmt.Errorf("%w: deposit_date must be YYYY-MM-DD", store.ErrInvalidInput)
		}
		depositDate = parsed
	}
	deposit := domain.CashDeposit{
		ID:            xid.New("deposit"),
		StoreID:       storeID,
		ShiftID:       shiftID,
		Amount:        ledger.Money(in.Amount),
		DepositDate:   depositDate,
		ReceiverName:  in.ReceiverName,
		PaymentMethod: in.PaymentMethod,
		Notes:         in.Notes,
		CreatedAt:     s.now(),
	}
	var cashEntry *domain.CashEntry
	if deposit.PaymentMethod == domain.PayCash {
		e := ledger.CashOut(storeID, shiftID, domain.RefDeposit, deposit.ID, in.Notes, deposit.Amount, ledgerAt)
		cashEntry = &e
	}
	return deposit, cashEntry, nil
}

func (s *Service) buildExpense(ctx context.Context, storeID string, shiftID *string, in domain.ExpenseInput, ledgerAt time.Time) (domain.Expense, *domain.CashEntry) {
	expense := domain.Expense{
		ID:            xid.New("expense"),
		StoreID:       storeID,
		ShiftID:       shiftID,
		Category:      in.Category,
		Amount:        ledger.Money(in.Amount),
		Description:   in.Description,
		PaymentMethod: in.PaymentMethod,
		ExpenseDate:   ledgerAt,
		CreatedBy:     ActorFromContext(ctx).Username,
		CreatedAt:     s.now(),
	}
	if expense.PaymentMethod == "" {
		expense.PaymentMethod = domain.PayCash
	}
	var cashEntry *domain.CashEntry
	if expense.PaymentMethod == domain.PayCash {
		e := ledger.CashOut(storeID, shiftID, domain.RefExpense, expense.ID, in.Description, expense.Amount, ledgerAt)
		cashEntry = &e
	}
	return expense, cashEntry
}

func (s *Service) buildInventoryDoc(warehouseID string, refShiftID *string, docType domain.DocType, in domain.InventoryDocInput, ledgerAt time.Time) (domain.InventoryDocument, []domain.InventoryEntry, error) {
	if len(in.Items) == 0 {
		return domain.InventoryDocument{}, nil, fmt.Errorf("%w: inventory document requires items", store.ErrInvalidInput)
	}
	docDate := ledgerAt
	if in.DocDate != "" {
		parsed, err := time.ParseInLocation(dateLayout, in.DocDate, time.UTC)
		if err != nil {
			return domain.InventoryDocument{}, nil, fmt.Errorf("%w: doc_date must be YYYY-MM-DD", store.ErrInvalidInput)
		}
		docDate = parsed
	}
	doc := domain.InventoryDocument{
		ID:          xid.New("invdoc"),
		WarehouseID: warehouseID,
		DocType:     docType,
		DocDate:     docDate,
		RefShiftID:  refShiftID,
		PartnerName: in.PartnerName,
		Notes:       in.Notes,
		CreatedAt:   s.now(),
	}
	refType := domain.RefImport
	if docType == domain.DocExport {
		refType = domain.RefExport
	}
	var entries []domain.InventoryEntry
	for _, item := range in.Items {
		if !item.Quantity.IsPositive() {
			return domain.InventoryDocument{}, nil, fmt.Errorf("%w: item quantity must be positive", store.ErrInvalidInput)
		}
		doc.Items = append(doc.Items, domain.InventoryDocumentItem{
			ID:         xid.New("invitem"),
			DocumentID: doc.ID,
			ProductID:  item.ProductID,
			Quantity:   ledger.Quantity(item.Quantity),
			UnitPrice:  item.UnitPrice,
		})
		if docType == domain.DocImport {
			entries = append(entries, ledger.StockIn(warehouseID, item.ProductID, refShiftID, refType, doc.ID, in.Notes, item.Quantity, ledgerAt))
		} else {
			entries = append(entries, ledger.StockOut(warehouseID, item.ProductID, refShiftID, refType, doc.ID, in.Notes, item.Quantity, ledgerAt))
		}
	}
	return doc, entries, nil
}
