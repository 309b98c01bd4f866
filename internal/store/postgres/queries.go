package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stationops/fuelledger/internal/domain"
	"github.com/stationops/fuelledger/internal/store"
)

// ---------------------------------------------------------------------------
// Master data.
// ---------------------------------------------------------------------------

func (p *Postgres) GetStore(ctx context.Context, id string) (domain.Store, error) {
	var s domain.Store
	err := p.db.QueryRowContext(ctx,
		`SELECT id, region_id, name FROM stores WHERE id = $1`, id).
		Scan(&s.ID, &s.RegionID, &s.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Store{}, fmt.Errorf("store %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return domain.Store{}, fmt.Errorf("get store: %w", err)
	}
	return s, nil
}

func (p *Postgres) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var pr domain.Product
	err := p.db.QueryRowContext(ctx,
		`SELECT id, code, name, unit FROM products WHERE id = $1`, id).
		Scan(&pr.ID, &pr.Code, &pr.Name, &pr.Unit)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, fmt.Errorf("product %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}
	return pr, nil
}

func (p *Postgres) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	var c domain.Customer
	err := p.db.QueryRowContext(ctx,
		`SELECT id, code, name, credit_limit FROM customers WHERE id = $1`, id).
		Scan(&c.ID, &c.Code, &c.Name, &c.CreditLimit)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Customer{}, fmt.Errorf("customer %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return domain.Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

func (p *Postgres) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, code, name, credit_limit FROM customers ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()
	var out []domain.Customer
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.CreditLimit); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *Postgres) GetWarehouseForStore(ctx context.Context, storeID string) (domain.Warehouse, error) {
	var w domain.Warehouse
	err := p.db.QueryRowContext(ctx,
		`SELECT id, store_id, name, type FROM warehouses WHERE store_id = $1`, storeID).
		Scan(&w.ID, &w.StoreID, &w.Name, &w.Type)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Warehouse{}, fmt.Errorf("warehouse for store %s: %w", storeID, store.ErrNotFound)
	}
	if err != nil {
		return domain.Warehouse{}, fmt.Errorf("get warehouse: %w", err)
	}
	return w, nil
}

func (p *Postgres) GetUser(ctx context.Context, username string) (domain.UserAccount, error) {
	var u domain.UserAccount
	err := p.db.QueryRowContext(ctx,
		`SELECT username, password, role, active, created_at FROM users WHERE username = $1`, username).
		Scan(&u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UserAccount{}, fmt.Errorf("user %s: %w", username, store.ErrNotFound)
	}
	if err != nil {
		return domain.UserAccount{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (p *Postgres) PriceWindows(ctx context.Context, productID, regionID string) ([]domain.ProductPrice, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, product_id, region_id, price, valid_from, valid_to, created_at
		FROM product_prices
		WHERE product_id = $1 AND region_id = $2
		ORDER BY valid_from`, productID, regionID)
	if err != nil {
		return nil, fmt.Errorf("list price windows: %w", err)
	}
	defer rows.Close()
	var out []domain.ProductPrice
	for rows.Next() {
		var pp domain.ProductPrice
		if err := rows.Scan(&pp.ID, &pp.ProductID, &pp.RegionID, &pp.Price, &pp.ValidFrom, &pp.ValidTo, &pp.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, pp)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// Pump readings and debt sale drafts.
// ---------------------------------------------------------------------------

func (p *Postgres) ListPumpReadings(ctx context.Context, shiftID string) ([]domain.PumpReading, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, shift_id, pump_code, product_id, start_value, end_value, test_export, quantity, unit_price, superseded_by_shift_id, created_at
		FROM pump_readings
		WHERE shift_id = $1 AND superseded_by_shift_id IS NULL
		ORDER BY pump_code`, shiftID)
	if err != nil {
		return nil, fmt.Errorf("list pump readings: %w", err)
	}
	defer rows.Close()
	var out []domain.PumpReading
	for rows.Next() {
		var r domain.PumpReading
		if err := rows.Scan(&r.ID, &r.ShiftID, &r.PumpCode, &r.ProductID, &r.StartValue, &r.EndValue,
			&r.TestExport, &r.Quantity, &r.UnitPrice, &r.SupersededByShiftID, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const debtSaleColumns = `id, shift_id, customer_id, product_id, quantity, unit_price, amount, notes, created_at`

func scanDebtSale(row interface{ Scan(...any) error }) (domain.ShiftDebtSale, error) {
	var d domain.ShiftDebtSale
	err := row.Scan(&d.ID, &d.ShiftID, &d.CustomerID, &d.ProductID, &d.Quantity, &d.UnitPrice,
		&d.Amount, &d.Notes, &d.CreatedAt)
	return d, err
}

func (p *Postgres) GetDebtSale(ctx context.Context, id string) (domain.ShiftDebtSale, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+debtSaleColumns+` FROM shift_debt_sales WHERE id = $1`, id)
	d, err := scanDebtSale(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ShiftDebtSale{}, fmt.Errorf("debt sale %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return domain.ShiftDebtSale{}, fmt.Errorf("get debt sale: %w", err)
	}
	return d, nil
}

func (p *Postgres) ListShiftDebtSales(ctx context.Context, shiftID string) ([]domain.ShiftDebtSale, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+debtSaleColumns+` FROM shift_debt_sales WHERE shift_id = $1 ORDER BY created_at`, shiftID)
	if err != nil {
		return nil, fmt.Errorf("list debt sales: %w", err)
	}
	defer rows.Close()
	var out []domain.ShiftDebtSale
	for rows.Next() {
		d, err := scanDebtSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// Ledger reads.
// ---------------------------------------------------------------------------

// untilOrMax turns a nil until into a far-future bound so every query can
// use one parameterized form.
func untilOrMax(until *time.Time) time.Time {
	if until != nil {
		return *until
	}
	return time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (p *Postgres) ListCashEntries(ctx context.Context, storeID string, until *time.Time) ([]domain.CashEntry, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, store_id, shift_id, ref_type, ref_id, cash_in, cash_out, note, ledger_at, created_at, superseded_by_shift_id
		FROM cash_ledger
		WHERE store_id = $1 AND superseded_by_shift_id IS NULL AND ledger_at <= $2
		ORDER BY ledger_at, created_at`, storeID, untilOrMax(until))
	if err != nil {
		return nil, fmt.Errorf("list cash entries: %w", err)
	}
	defer rows.Close()
	var out []domain.CashEntry
	for rows.Next() {
		var e domain.CashEntry
		if err := rows.Scan(&e.ID, &e.StoreID, &e.ShiftID, &e.RefType, &e.RefID, &e.CashIn, &e.CashOut,
			&e.Note, &e.LedgerAt, &e.CreatedAt, &e.SupersededByShiftID); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

const debtEntryColumns = `id, customer_id, store_id, shift_id, ref_type, ref_id, debit, credit, note, ledger_at, created_at, superseded_by_shift_id`

func scanDebtEntry(row interface{ Scan(...any) error }) (domain.DebtEntry, error) {
	var e domain.DebtEntry
	err := row.Scan(&e.ID, &e.CustomerID, &e.StoreID, &e.ShiftID, &e.RefType, &e.RefID, &e.Debit,
		&e.Credit, &e.Note, &e.LedgerAt, &e.CreatedAt, &e.SupersededByShiftID)
	return e, err
}

func (p *Postgres) ListDebtEntries(ctx context.Context, customerID string, until *time.Time) ([]domain.DebtEntry, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+debtEntryColumns+`
		FROM debt_ledger
		WHERE customer_id = $1 AND superseded_by_shift_id IS NULL AND ledger_at <= $2
		ORDER BY ledger_at, created_at`, customerID, untilOrMax(until))
	if err != nil {
		return nil, fmt.Errorf("list debt entries: %w", err)
	}
	defer rows.Close()
	var out []domain.DebtEntry
	for rows.Next() {
		e, err := scanDebtEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *Postgres) ListInventoryEntries(ctx context.Context, warehouseID, productID string, until *time.Time) ([]domain.InventoryEntry, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, warehouse_id, product_id, shift_id, ref_type, ref_id, quantity_in, quantity_out, note, ledger_at, created_at, superseded_by_shift_id
		FROM inventory_ledger
		WHERE warehouse_id = $1 AND product_id = $2 AND superseded_by_shift_id IS NULL AND ledger_at <= $3
		ORDER BY ledger_at, created_at`, warehouseID, productID, untilOrMax(until))
	if err != nil {
		return nil, fmt.Errorf("list inventory entries: %w", err)
	}
	defer rows.Close()
	var out []domain.InventoryEntry
	for rows.Next() {
		var e domain.InventoryEntry
		if err := rows.Scan(&e.ID, &e.WarehouseID, &e.ProductID, &e.ShiftID, &e.RefType, &e.RefID,
			&e.QuantityIn, &e.QuantityOut, &e.Note, &e.LedgerAt, &e.CreatedAt, &e.SupersededByShiftID); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *Postgres) CashBalance(ctx context.Context, storeID string, until *time.Time) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := p.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(cash_in - cash_out), 0)
		FROM cash_ledger
		WHERE store_id = $1 AND superseded_by_shift_id IS NULL AND ledger_at <= $2`,
		storeID, untilOrMax(until)).Scan(&bal)
	if err != nil {
		return decimal.Zero, fmt.Errorf("cash balance: %w", err)
	}
	return bal, nil
}

func (p *Postgres) DebtBalance(ctx context.Context, customerID string, until *time.Time) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := p.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(debit - credit), 0)
		FROM debt_ledger
		WHERE customer_id = $1 AND superseded_by_shift_id IS NULL AND ledger_at <= $2`,
		customerID, untilOrMax(until)).Scan(&bal)
	if err != nil {
		return decimal.Zero, fmt.Errorf("debt balance: %w", err)
	}
	return bal, nil
}

func (p *Postgres) StockBalance(ctx context.Context, warehouseID, productID string, until *time.Time) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := p.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(quantity_in - quantity_out), 0)
		FROM inventory_ledger
		WHERE warehouse_id = $1 AND product_id = $2 AND superseded_by_shift_id IS NULL AND ledger_at <= $3`,
		warehouseID, productID, untilOrMax(until)).Scan(&bal)
	if err != nil {
		return decimal.Zero, fmt.Errorf("stock balance: %w", err)
	}
	return bal, nil
}

func (p *Postgres) ListDebtEntriesForShift(ctx context.Context, shiftID string) ([]domain.DebtEntry, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+debtEntryColumns+`
		FROM debt_ledger
		WHERE shift_id = $1 AND superseded_by_shift_id IS NULL
		ORDER BY ledger_at, created_at`, shiftID)
	if err != nil {
		return nil, fmt.Errorf("list shift debt entries: %w", err)
	}
	defer rows.Close()
	var out []domain.DebtEntry
	for rows.Next() {
		e, err := scanDebtEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *Postgres) HasPaymentAfter(ctx context.Context, customerID string, after time.Time) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM debt_ledger
			WHERE customer_id = $1 AND ref_type = 'PAYMENT'
			  AND superseded_by_shift_id IS NULL AND ledger_at > $2
		)`, customerID, after).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check later payments: %w", err)
	}
	return exists, nil
}

// ---------------------------------------------------------------------------
// Shift report data.
// ---------------------------------------------------------------------------

func (p *Postgres) ListSales(ctx context.Context, shiftID string) ([]domain.Sale, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, shift_id, store_id, product_id, customer_id, quantity, unit_price, amount, superseded_by_shift_id, created_at
		FROM sales
		WHERE shift_id = $1 AND superseded_by_shift_id IS NULL
		ORDER BY product_id`, shiftID)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()
	var out []domain.Sale
	for rows.Next() {
		var s domain.Sale
		if err := rows.Scan(&s.ID, &s.ShiftID, &s.StoreID, &s.ProductID, &s.CustomerID, &s.Quantity,
			&s.UnitPrice, &s.Amount, &s.SupersededByShiftID, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) ListReceiptsForShift(ctx context.Context, shiftID string) ([]domain.Receipt, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, store_id, shift_id, receipt_type, amount, payment_method, notes, created_at
		FROM receipts
		WHERE shift_id = $1
		ORDER BY created_at`, shiftID)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	defer rows.Close()
	var out []domain.Receipt
	for rows.Next() {
		var r domain.Receipt
		if err := rows.Scan(&r.ID, &r.StoreID, &r.ShiftID, &r.ReceiptType, &r.Amount,
			&r.PaymentMethod, &r.Notes, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		details, err := p.listReceiptDetails(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Details = details
	}
	return out, nil
}

func (p *Postgres) listReceiptDetails(ctx context.Context, receiptID string) ([]domain.ReceiptDetail, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, receipt_id, customer_id, amount
		FROM receipt_details
		WHERE receipt_id = $1`, receiptID)
	if err != nil {
		return nil, fmt.Errorf("list receipt details: %w", err)
	}
	defer rows.Close()
	var out []domain.ReceiptDetail
	for rows.Next() {
		var d domain.ReceiptDetail
		if err := rows.Scan(&d.ID, &d.ReceiptID, &d.CustomerID, &d.Amount); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) ListDepositsForShift(ctx context.Context, shiftID string) ([]domain.CashDeposit, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, store_id, shift_id, amount, deposit_date, receiver_name, payment_method, notes, created_at
		FROM cash_deposits
		WHERE shift_id = $1
		ORDER BY created_at`, shiftID)
	if err != nil {
		return nil, fmt.Errorf("list deposits: %w", err)
	}
	defer rows.Close()
	var out []domain.CashDeposit
	for rows.Next() {
		var d domain.CashDeposit
		if err := rows.Scan(&d.ID, &d.StoreID, &d.ShiftID, &d.Amount, &d.DepositDate,
			&d.ReceiverName, &d.PaymentMethod, &d.Notes, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) ListExpensesForShift(ctx context.Context, shiftID string) ([]domain.Expense, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, store_id, shift_id, category, amount, description, payment_method, expense_date, created_by, created_at
		FROM expenses
		WHERE shift_id = $1
		ORDER BY created_at`, shiftID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()
	var out []domain.Expense
	for rows.Next() {
		var e domain.Expense
		if err := rows.Scan(&e.ID, &e.StoreID, &e.ShiftID, &e.Category, &e.Amount, &e.Description,
			&e.PaymentMethod, &e.ExpenseDate, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// Audit.
// ---------------------------------------------------------------------------

func (p *Postgres) ListAudit(ctx context.Context, recordID string) ([]domain.AuditLog, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, table_name, record_id, action, old_data, new_data, changed_by, created_at
		FROM audit_logs
		WHERE ($1 = '' OR record_id = $1)
		ORDER BY created_at`, recordID)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()
	var out []domain.AuditLog
	for rows.Next() {
		var a domain.AuditLog
		var oldData, newData []byte
		if err := rows.Scan(&a.ID, &a.TableName, &a.RecordID, &a.Action, &oldData, &newData,
			&a.ChangedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.OldData = oldData
		a.NewData = newData
		out = append(out, a)
	}
	return out, rows.Err()
}
