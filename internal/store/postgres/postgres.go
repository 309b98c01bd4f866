// Package postgres implements store.Repository on PostgreSQL via
// database/sql over the pgx driver. Atomic postings run inside one SQL
// transaction; the schema's unique indexes back the shift invariants
// against concurrent writers.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/stationops/fuelledger/internal/domain"
	"github.com/stationops/fuelledger/internal/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Postgres struct {
	db *sql.DB
}

var _ store.Repository = (*Postgres)(nil)

func Open(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error { return p.db.Close() }

// Migrate applies the embedded goose migrations.
func (p *Postgres) Migrate() error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(p.db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// mapPgError translates unique violations into the domain errors the
// service layer reports, so races lost at the database surface the same
// way as races caught up front.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case "shifts_store_open_idx":
			return domain.ErrShiftAlreadyOpenForStore
		case "shifts_store_date_no_key":
			return domain.ErrShiftAlreadyExists
		}
		return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

func (p *Postgres) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return mapPgError(err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", mapPgError(err))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Shifts.
// ---------------------------------------------------------------------------

func (p *Postgres) CreateShift(ctx context.Context, shift domain.Shift, audit domain.AuditLog) error {
	return p.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO shifts (id, store_id, shift_date, shift_no, opened_at, closed_at, status, handover_name, receiver_name, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			shift.ID, shift.StoreID, shift.ShiftDate, shift.ShiftNo, shift.OpenedAt, shift.ClosedAt,
			shift.Status, shift.HandoverName, shift.ReceiverName, shift.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert shift: %w", err)
		}
		return insertAudit(ctx, tx, audit)
	})
}

const shiftColumns = `id, store_id, shift_date, shift_no, opened_at, closed_at, status, handover_name, receiver_name, created_at`

func scanShift(row interface{ Scan(...any) error }) (domain.Shift, error) {
	var s domain.Shift
	err := row.Scan(&s.ID, &s.StoreID, &s.ShiftDate, &s.ShiftNo, &s.OpenedAt, &s.ClosedAt,
		&s.Status, &s.HandoverName, &s.ReceiverName, &s.CreatedAt)
	return s, err
}

func (p *Postgres) GetShift(ctx context.Context, id string) (domain.Shift, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = $1`, id)
	s, err := scanShift(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Shift{}, fmt.Errorf("shift %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return domain.Shift{}, fmt.Errorf("get shift: %w", err)
	}
	return s, nil
}

func (p *Postgres) ListShifts(ctx context.Context, storeID string, limit int) ([]domain.Shift, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+shiftColumns+` FROM shifts
		WHERE ($1 = '' OR store_id = $1)
		ORDER BY shift_date DESC, shift_no DESC
		LIMIT $2`, storeID, limit)
	if err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}
	defer rows.Close()
	var out []domain.Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) PreviousShift(ctx context.Context, shift domain.Shift) (domain.Shift, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT `+shiftColumns+` FROM shifts
		WHERE store_id = $1 AND status = 'CLOSED' AND id <> $2
		  AND (shift_date < $3 OR (shift_date = $3 AND shift_no < $4))
		ORDER BY shift_date DESC, shift_no DESC
		LIMIT 1`, shift.StoreID, shift.ID, shift.ShiftDate, shift.ShiftNo)
	s, err := scanShift(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Shift{}, fmt.Errorf("previous shift for %s: %w", shift.ID, store.ErrNotFound)
	}
	if err != nil {
		return domain.Shift{}, fmt.Errorf("previous shift: %w", err)
	}
	return s, nil
}

func (p *Postgres) HasPumpReadings(ctx context.Context, shiftID string) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM pump_readings
			WHERE shift_id = $1 AND superseded_by_shift_id IS NULL
		)`, shiftID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check pump readings: %w", err)
	}
	return exists, nil
}

// ---------------------------------------------------------------------------
// Atomic postings.
// ---------------------------------------------------------------------------

func (p *Postgres) ApplyShiftClose(ctx context.Context, posting domain.ShiftClosePosting) error {
	return p.inTx(ctx, func(tx *sql.Tx) error {
		var status domain.ShiftStatus
		err := tx.QueryRowContext(ctx, `SELECT status FROM shifts WHERE id = $1 FOR UPDATE`, posting.Shift.ID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("shift %s: %w", posting.Shift.ID, store.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("lock shift: %w", err)
		}
		if status != domain.ShiftOpen {
			return domain.ErrShiftNotOpen
		}
		var hasReadings bool
		err = tx.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM pump_readings
				WHERE shift_id = $1 AND superseded_by_shift_id IS NULL
			)`, posting.Shift.ID).Scan(&hasReadings)
		if err != nil {
			return fmt.Errorf("check pump readings: %w", err)
		}
		if hasReadings {
			return domain.ErrDuplicateClose
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE shifts SET status = $2, closed_at = $3, handover_name = $4, receiver_name = $5
			WHERE id = $1`,
			posting.Shift.ID, posting.Shift.Status, posting.Shift.ClosedAt,
			posting.Shift.HandoverName, posting.Shift.ReceiverName)
		if err != nil {
			return fmt.Errorf("update shift: %w", err)
		}

		for _, r := range posting.PumpReadings {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO pump_readings (id, shift_id, pump_code, product_id, start_value, end_value, test_export, quantity, unit_price, superseded_by_shift_id, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
				r.ID, r.ShiftID, r.PumpCode, r.ProductID, r.StartValue, r.EndValue, r.TestExport,
				r.Quantity, r.UnitPrice, r.SupersededByShiftID, r.CreatedAt)
			if err != nil {
				return fmt.Errorf("insert pump reading: %w", err)
			}
		}
		for _, s := range posting.Sales {
			if err := insertSale(ctx, tx, s); err != nil {
				return err
			}
		}
		for _, r := range posting.Receipts {
			if err := insertReceipt(ctx, tx, r); err != nil {
				return err
			}
		}
		for _, d := range posting.Deposits {
			if err := insertDeposit(ctx, tx, d); err != nil {
				return err
			}
		}
		for _, e := range posting.Expenses {
			if err := insertExpense(ctx, tx, e); err != nil {
				return err
			}
		}
		for _, doc := range posting.Documents {
			if err := insertDocument(ctx, tx, doc); err != nil {
				return err
			}
		}
		for _, e := range posting.CashEntries {
			if err := insertCashEntry(ctx, tx, e); err != nil {
				return err
			}
		}
		for _, e := range posting.DebtEntries {
			if err := insertDebtEntry(ctx, tx, e); err != nil {
				return err
			}
		}
		for _, e := range posting.InventoryEntries {
			if err := insertInventoryEntry(ctx, tx, e); err != nil {
				return err
			}
		}
		return insertAudit(ctx, tx, posting.Audit)
	})
}

func (p *Postgres) ApplyShiftReopen(ctx context.Context, posting domain.ShiftReopenPosting) error {
	return p.inTx(ctx, func(tx *sql.Tx) error {
		var status domain.ShiftStatus
		err := tx.QueryRowContext(ctx, `SELECT status FROM shifts WHERE id = $1 FOR UPDATE`, posting.Shift.ID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("shift %s: %w", posting.Shift.ID, store.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("lock shift: %w", err)
		}
		if status != domain.ShiftClosed {
			return domain.ErrShiftNotClosed
		}

		shiftID := posting.Shift.ID
		_, err = tx.ExecContext(ctx, `UPDATE shifts SET status = 'OPEN', closed_at = NULL WHERE id = $1`, shiftID)
		if err != nil {
			return fmt.Errorf("reopen shift: %w", err)
		}
		// Mid-shift debt sale entries (SHIFT_DEBT_SALE) stay in force;
		// the next close counts their drafts again.
		for _, stmt := range []string{
			`UPDATE cash_ledger SET superseded_by_shift_id = $1 WHERE shift_id = $1 AND superseded_by_shift_id IS NULL`,
			`UPDATE debt_ledger SET superseded_by_shift_id = $1 WHERE shift_id = $1 AND superseded_by_shift_id IS NULL AND ref_type <> 'SHIFT_DEBT_SALE'`,
			`UPDATE inventory_ledger SET superseded_by_shift_id = $1 WHERE shift_id = $1 AND superseded_by_shift_id IS NULL AND ref_type <> 'SHIFT_DEBT_SALE'`,
			`UPDATE pump_readings SET superseded_by_shift_id = $1 WHERE shift_id = $1 AND superseded_by_shift_id IS NULL`,
			`UPDATE sales SET superseded_by_shift_id = $1 WHERE shift_id = $1 AND superseded_by_shift_id IS NULL`,
			`UPDATE inventory_documents SET superseded_by_shift_id = $1 WHERE ref_shift_id = $1 AND superseded_by_shift_id IS NULL`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, shiftID); err != nil {
				return fmt.Errorf("supersede shift rows: %w", err)
			}
		}
		return insertAudit(ctx, tx, posting.Audit)
	})
}

func (p *Postgres) ApplyDebtSale(ctx context.Context, posting domain.DebtSalePosting) error {
	return p.inTx(ctx, func(tx *sql.Tx) error {
		if err := insertDebtSale(ctx, tx, posting.DebtSale); err != nil {
			return err
		}
		if err := insertDebtEntry(ctx, tx, posting.DebtEntry); err != nil {
			return err
		}
		return insertInventoryEntry(ctx, tx, posting.InventoryEntry)
	})
}

func (p *Postgres) ApplyReceipt(ctx context.Context, posting domain.ReceiptPosting) error {
	return p.inTx(ctx, func(tx *sql.Tx) error {
		if err := insertReceipt(ctx, tx, posting.Receipt); err != nil {
			return err
		}
		for _, e := range posting.DebtEntries {
			if err := insertDebtEntry(ctx, tx, e); err != nil {
				return err
			}
		}
		if posting.CashEntry != nil {
			return insertCashEntry(ctx, tx, *posting.CashEntry)
		}
		return nil
	})
}

func (p *Postgres) ApplyDeposit(ctx context.Context, posting domain.DepositPosting) error {
	return p.inTx(ctx, func(tx *sql.Tx) error {
		if err := insertDeposit(ctx, tx, posting.Deposit); err != nil {
			return err
		}
		if posting.CashEntry != nil {
			return insertCashEntry(ctx, tx, *posting.CashEntry)
		}
		return nil
	})
}

func (p *Postgres) ApplyExpense(ctx context.Context, posting domain.ExpensePosting) error {
	return p.inTx(ctx, func(tx *sql.Tx) error {
		if err := insertExpense(ctx, tx, posting.Expense); err != nil {
			return err
		}
		if posting.CashEntry != nil {
			return insertCashEntry(ctx, tx, *posting.CashEntry)
		}
		return nil
	})
}

func (p *Postgres) DeleteDebtSale(ctx context.Context, id string) error {
	return p.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM shift_debt_sales WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete debt sale: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("debt sale %s: %w", id, store.ErrNotFound)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM debt_ledger WHERE ref_type = 'SHIFT_DEBT_SALE' AND ref_id = $1`, id); err != nil {
			return fmt.Errorf("delete debt entries: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM inventory_ledger WHERE ref_type = 'SHIFT_DEBT_SALE' AND ref_id = $1`, id); err != nil {
			return fmt.Errorf("delete inventory entries: %w", err)
		}
		return nil
	})
}

// ---------------------------------------------------------------------------
// Row insert helpers shared by the postings.
// ---------------------------------------------------------------------------

func insertSale(ctx context.Context, tx *sql.Tx, s domain.Sale) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sales (id, shift_id, store_id, product_id, customer_id, quantity, unit_price, amount, superseded_by_shift_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.ShiftID, s.StoreID, s.ProductID, s.CustomerID, s.Quantity, s.UnitPrice, s.Amount,
		s.SupersededByShiftID, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

func insertDebtSale(ctx context.Context, tx *sql.Tx, d domain.ShiftDebtSale) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO shift_debt_sales (id, shift_id, customer_id, product_id, quantity, unit_price, amount, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.ShiftID, d.CustomerID, d.ProductID, d.Quantity, d.UnitPrice, d.Amount, d.Notes, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert debt sale: %w", err)
	}
	return nil
}

func insertReceipt(ctx context.Context, tx *sql.Tx, r domain.Receipt) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO receipts (id, store_id, shift_id, receipt_type, amount, payment_method, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, r.StoreID, r.ShiftID, r.ReceiptType, r.Amount, r.PaymentMethod, r.Notes, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}
	for _, d := range r.Details {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO receipt_details (id, receipt_id, customer_id, amount)
			VALUES ($1, $2, $3, $4)`,
			d.ID, d.ReceiptID, d.CustomerID, d.Amount)
		if err != nil {
			return fmt.Errorf("insert receipt detail: %w", err)
		}
	}
	return nil
}

func insertDeposit(ctx context.Context, tx *sql.Tx, d domain.CashDeposit) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO cash_deposits (id, store_id, shift_id, amount, deposit_date, receiver_name, payment_method, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.StoreID, d.ShiftID, d.Amount, d.DepositDate, d.ReceiverName, d.PaymentMethod, d.Notes, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert deposit: %w", err)
	}
	return nil
}

func insertExpense(ctx context.Context, tx *sql.Tx, e domain.Expense) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO expenses (id, store_id, shift_id, category, amount, description, payment_method, expense_date, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.StoreID, e.ShiftID, e.Category, e.Amount, e.Description, e.PaymentMethod,
		e.ExpenseDate, e.CreatedBy, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

func insertDocument(ctx context.Context, tx *sql.Tx, doc domain.InventoryDocument) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO inventory_documents (id, warehouse_id, doc_type, doc_date, ref_shift_id, partner_name, notes, superseded_by_shift_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		doc.ID, doc.WarehouseID, doc.DocType, doc.DocDate, doc.RefShiftID, doc.PartnerName,
		doc.Notes, doc.SupersededByShiftID, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert inventory document: %w", err)
	}
	for _, item := range doc.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO inventory_document_items (id, document_id, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5)`,
			item.ID, item.DocumentID, item.ProductID, item.Quantity, item.UnitPrice)
		if err != nil {
			return fmt.Errorf("insert inventory document item: %w", err)
		}
	}
	return nil
}

func insertCashEntry(ctx context.Context, tx *sql.Tx, e domain.CashEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO cash_ledger (id, store_id, shift_id, ref_type, ref_id, cash_in, cash_out, note, ledger_at, created_at, superseded_by_shift_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.StoreID, e.ShiftID, e.RefType, e.RefID, e.CashIn, e.CashOut, e.Note,
		e.LedgerAt, e.CreatedAt, e.SupersededByShiftID)
	if err != nil {
		return fmt.Errorf("insert cash entry: %w", err)
	}
	return nil
}

func insertDebtEntry(ctx context.Context, tx *sql.Tx, e domain.DebtEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO debt_ledger (id, customer_id, store_id, shift_id, ref_type, ref_id, debit, credit, note, ledger_at, created_at, superseded_by_shift_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.CustomerID, e.StoreID, e.ShiftID, e.RefType, e.RefID, e.Debit, e.Credit, e.Note,
		e.LedgerAt, e.CreatedAt, e.SupersededByShiftID)
	if err != nil {
		return fmt.Errorf("insert debt entry: %w", err)
	}
	return nil
}

func insertInventoryEntry(ctx context.Context, tx *sql.Tx, e domain.InventoryEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO inventory_ledger (id, warehouse_id, product_id, shift_id, ref_type, ref_id, quantity_in, quantity_out, note, ledger_at, created_at, superseded_by_shift_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.WarehouseID, e.ProductID, e.ShiftID, e.RefType, e.RefID, e.QuantityIn, e.QuantityOut,
		e.Note, e.LedgerAt, e.CreatedAt, e.SupersededByShiftID)
	if err != nil {
		return fmt.Errorf("insert inventory entry: %w", err)
	}
	return nil
}

func insertAudit(ctx context.Context, tx *sql.Tx, a domain.AuditLog) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO audit_logs (id, table_name, record_id, action, old_data, new_data, changed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.TableName, a.RecordID, a.Action, []byte(a.OldData), []byte(a.NewData), a.ChangedBy, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
