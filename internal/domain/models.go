package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Actor identifies the authenticated user performing an operation.
type Actor struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// ---------------------------------------------------------------------------
// Master data. CRUD for these lives outside this service; the core only
// reads them (and the memory store seeds them for dev/demo mode).
// ---------------------------------------------------------------------------

type Region struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Store struct {
	ID       string `json:"id"`
	RegionID string `json:"region_id"`
	Name     string `json:"name"`
}

type Warehouse struct {
	ID      string `json:"id"`
	StoreID string `json:"store_id"`
	Name    string `json:"name"`
	Type    string `json:"type"` // STORE
}

type Product struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
	Unit string `json:"unit"` // liter
}

type Customer struct {
	ID          string          `json:"id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
}

type UserAccount struct {
	Username  string    `json:"username"`
	Password  string    `json:"-"` // bcrypt hash
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// ProductPrice is one validity window of a product's price in a region.
// ValidTo == nil means the window is currently open-ended. Non-overlap of
// windows is guaranteed by the upstream price-authoring process; the
// resolver fails loudly if that guarantee is broken.
type ProductPrice struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	RegionID  string          `json:"region_id"`
	Price     decimal.Decimal `json:"price"`
	ValidFrom time.Time       `json:"valid_from"`
	ValidTo   *time.Time      `json:"valid_to,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ---------------------------------------------------------------------------
// Shift and its close-time artifacts.
// ---------------------------------------------------------------------------

type Shift struct {
	ID           string      `json:"id"`
	StoreID      string      `json:"store_id"`
	ShiftDate    time.Time   `json:"shift_date"` // date component only
	ShiftNo      int         `json:"shift_no"`
	OpenedAt     time.Time   `json:"opened_at"`
	ClosedAt     *time.Time  `json:"closed_at,omitempty"`
	Status       ShiftStatus `json:"status"`
	HandoverName string      `json:"handover_name,omitempty"`
	ReceiverName string      `json:"receiver_name,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// PumpReading is one dispenser meter reading captured at close time.
// Quantity excludes TestExport (fuel pumped for a meter test and poured
// back into the tank). UnitPrice is snapshotted so that later price-table
// changes never rewrite historical revenue.
type PumpReading struct {
	ID                  string          `json:"id"`
	ShiftID             string          `json:"shift_id"`
	PumpCode            string          `json:"pump_code"`
	ProductID           string          `json:"product_id"`
	StartValue          decimal.Decimal `json:"start_value"`
	EndValue            decimal.Decimal `json:"end_value"`
	TestExport          decimal.Decimal `json:"test_export"`
	Quantity            decimal.Decimal `json:"quantity"`
	UnitPrice           decimal.Decimal `json:"unit_price"`
	SupersededByShiftID *string         `json:"superseded_by_shift_id,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
}

// Sale is one quantity x price transaction. CustomerID == nil means retail
// (assumed paid in cash); a non-nil CustomerID marks a debt sale.
type Sale struct {
	ID                  string          `json:"id"`
	ShiftID             string          `json:"shift_id"`
	StoreID             string          `json:"store_id"`
	ProductID           string          `json:"product_id"`
	CustomerID          *string         `json:"customer_id,omitempty"`
	Quantity            decimal.Decimal `json:"quantity"`
	UnitPrice           decimal.Decimal `json:"unit_price"`
	Amount              decimal.Decimal `json:"amount"`
	SupersededByShiftID *string         `json:"superseded_by_shift_id,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
}

type ShiftDebtSale struct {
	ID         string          `json:"id"`
	ShiftID    string          `json:"shift_id"`
	CustomerID string          `json:"customer_id"`
	ProductID  string          `json:"product_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Amount     decimal.Decimal `json:"amount"`
	Notes      string          `json:"notes,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

type PaymentMethod string

const (
	PayCash         PaymentMethod = "CASH"
	PayBankTransfer PaymentMethod = "BANK_TRANSFER"
)

type Receipt struct {
	ID            string          `json:"id"`
	StoreID       string          `json:"store_id"`
	ShiftID       *string         `json:"shift_id,omitempty"`
	ReceiptType   string          `json:"receipt_type"` // DEBT_PAYMENT, OTHER
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	Details       []ReceiptDetail `json:"details"`
}

type ReceiptDetail struct {
	ID         string          `json:"id"`
	ReceiptID  string          `json:"receipt_id"`
	CustomerID string          `json:"customer_id"`
	Amount     decimal.Decimal `json:"amount"`
}

type CashDeposit struct {
	ID            string          `json:"id"`
	StoreID       string          `json:"store_id"`
	ShiftID       *string         `json:"shift_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	DepositDate   time.Time       `json:"deposit_date"`
	ReceiverName  string          `json:"receiver_name,omitempty"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type Expense struct {
	ID            string          `json:"id"`
	StoreID       string          `json:"store_id"`
	ShiftID       *string         `json:"shift_id,omitempty"`
	Category      string          `json:"category,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description,omitempty"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	ExpenseDate   time.Time       `json:"expense_date"`
	CreatedBy     string          `json:"created_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type DocType string

const (
	DocImport DocType = "IMPORT"
	DocExport DocType = "EXPORT"
)

type InventoryDocument struct {
	ID                  string                  `json:"id"`
	WarehouseID         string                  `json:"warehouse_id"`
	DocType             DocType                 `json:"doc_type"`
	DocDate             time.Time               `json:"doc_date"`
	RefShiftID          *string                 `json:"ref_shift_id,omitempty"`
	PartnerName         string                  `json:"partner_name,omitempty"`
	Notes               string                  `json:"notes,omitempty"`
	SupersededByShiftID *string                 `json:"superseded_by_shift_id,omitempty"`
	CreatedAt           time.Time               `json:"created_at"`
	Items               []InventoryDocumentItem `json:"items"`
}

type InventoryDocumentItem struct {
	ID         string          `json:"id"`
	DocumentID string          `json:"document_id"`
	ProductID  string          `json:"product_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

// ---------------------------------------------------------------------------
// Append-only ledgers. Entries are never mutated or deleted once committed;
// supersession excludes them from balance computation without losing them.
// LedgerAt is the business timestamp, distinct from CreatedAt.
// ---------------------------------------------------------------------------

type RefType string

const (
	RefShiftClose    RefType = "SHIFT_CLOSE"
	RefDebtSale      RefType = "DEBT_SALE"
	RefShiftDebtSale RefType = "SHIFT_DEBT_SALE"
	RefReceipt       RefType = "RECEIPT"
	RefPayment       RefType = "PAYMENT"
	RefDeposit       RefType = "DEPOSIT"
	RefExpense       RefType = "EXPENSE"
	RefImport        RefType = "IMPORT"
	RefExport        RefType = "EXPORT"
	RefAdjust        RefType = "ADJUST"
)

type CashEntry struct {
	ID                  string          `json:"id"`
	StoreID             string          `json:"store_id"`
	ShiftID             *string         `json:"shift_id,omitempty"`
	RefType             RefType         `json:"ref_type"`
	RefID               string          `json:"ref_id"`
	CashIn              decimal.Decimal `json:"cash_in"`
	CashOut             decimal.Decimal `json:"cash_out"`
	Note                string          `json:"note,omitempty"`
	LedgerAt            time.Time       `json:"ledger_at"`
	CreatedAt           time.Time       `json:"created_at"`
	SupersededByShiftID *string         `json:"superseded_by_shift_id,omitempty"`
}

type DebtEntry struct {
	ID                  string          `json:"id"`
	CustomerID          string          `json:"customer_id"`
	StoreID             string          `json:"store_id"`
	ShiftID             *string         `json:"shift_id,omitempty"`
	RefType             RefType         `json:"ref_type"`
	RefID               string          `json:"ref_id"`
	Debit               decimal.Decimal `json:"debit"`
	Credit              decimal.Decimal `json:"credit"`
	Note                string          `json:"note,omitempty"`
	LedgerAt            time.Time       `json:"ledger_at"`
	CreatedAt           time.Time       `json:"created_at"`
	SupersededByShiftID *string         `json:"superseded_by_shift_id,omitempty"`
}

type InventoryEntry struct {
	ID                  string          `json:"id"`
	WarehouseID         string          `json:"warehouse_id"`
	ProductID           string          `json:"product_id"`
	ShiftID             *string         `json:"shift_id,omitempty"`
	RefType             RefType         `json:"ref_type"`
	RefID               string          `json:"ref_id"`
	QuantityIn          decimal.Decimal `json:"quantity_in"`
	QuantityOut         decimal.Decimal `json:"quantity_out"`
	Note                string          `json:"note,omitempty"`
	LedgerAt            time.Time       `json:"ledger_at"`
	CreatedAt           time.Time       `json:"created_at"`
	SupersededByShiftID *string         `json:"superseded_by_shift_id,omitempty"`
}

// AuditLog captures before/after snapshots of every shift transition.
type AuditLog struct {
	ID        string          `json:"id"`
	TableName string          `json:"table_name"`
	RecordID  string          `json:"record_id"`
	Action    string          `json:"action"` // CREATE, CLOSE, REOPEN
	OldData   json.RawMessage `json:"old_data,omitempty"`
	NewData   json.RawMessage `json:"new_data,omitempty"`
	ChangedBy string          `json:"changed_by,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ---------------------------------------------------------------------------
// Atomic write units handed to the store. The orchestrator assembles the
// complete set of rows (ids pre-assigned) and the store commits them as one
// all-or-nothing unit of work.
// ---------------------------------------------------------------------------

type ShiftClosePosting struct {
	Shift            Shift
	PumpReadings     []PumpReading
	Sales            []Sale
	Receipts         []Receipt
	Deposits         []CashDeposit
	Expenses         []Expense
	Documents        []InventoryDocument
	CashEntries      []CashEntry
	DebtEntries      []DebtEntry
	InventoryEntries []InventoryEntry
	Audit            AuditLog
}

type ShiftReopenPosting struct {
	Shift Shift // already transitioned back to OPEN
	Audit AuditLog
}

type DebtSalePosting struct {
	DebtSale       ShiftDebtSale
	DebtEntry      DebtEntry
	InventoryEntry InventoryEntry
}

type ReceiptPosting struct {
	Receipt     Receipt
	DebtEntries []DebtEntry
	CashEntry   *CashEntry
}

type DepositPosting struct {
	Deposit   CashDeposit
	CashEntry *CashEntry
}

type ExpensePosting struct {
	Expense   Expense
	CashEntry *CashEntry
}

// ---------------------------------------------------------------------------
// Request / response shapes consumed by the service layer.
// ---------------------------------------------------------------------------

type CreateShiftRequest struct {
	StoreID      string     `json:"store_id"`
	ShiftDate    string     `json:"shift_date"` // 2006-01-02
	ShiftNo      int        `json:"shift_no"`
	OpenedAt     *time.Time `json:"opened_at,omitempty"`
	HandoverName string     `json:"handover_name,omitempty"`
	ReceiverName string     `json:"receiver_name,omitempty"`
}

type PumpReadingInput struct {
	PumpCode   string          `json:"pump_code"`
	ProductID  string          `json:"product_id"`
	StartValue decimal.Decimal `json:"start_value"`
	EndValue   decimal.Decimal `json:"end_value"`
	TestExport decimal.Decimal `json:"test_export"`
}

type DebtSaleInput struct {
	CustomerID string          `json:"customer_id"`
	ProductID  string          `json:"product_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Notes      string          `json:"notes,omitempty"`
}

type ReceiptDetailInput struct {
	CustomerID string          `json:"customer_id"`
	Amount     decimal.Decimal `json:"amount"`
}

type ReceiptInput struct {
	ReceiptType   string               `json:"receipt_type"`
	Amount        decimal.Decimal      `json:"amount"`
	PaymentMethod PaymentMethod        `json:"payment_method"`
	Notes         string               `json:"notes,omitempty"`
	Details       []ReceiptDetailInput `json:"details"`
}

type DepositInput struct {
	Amount        decimal.Decimal `json:"amount"`
	DepositDate   string          `json:"deposit_date"` // 2006-01-02
	ReceiverName  string          `json:"receiver_name,omitempty"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Notes         string          `json:"notes,omitempty"`
}

type ExpenseInput struct {
	Category      string          `json:"category,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description,omitempty"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
}

type InventoryDocItemInput struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type InventoryDocInput struct {
	DocDate     string                  `json:"doc_date,omitempty"` // 2006-01-02, defaults to close date
	PartnerName string                  `json:"partner_name,omitempty"`
	Notes       string                  `json:"notes,omitempty"`
	Items       []InventoryDocItemInput `json:"items"`
}

type CloseShiftRequest struct {
	ShiftID      string              `json:"-"`
	PumpReadings []PumpReadingInput  `json:"pump_readings"`
	DebtSales    []DebtSaleInput     `json:"debt_sales,omitempty"`
	Receipts     []ReceiptInput      `json:"receipts,omitempty"`
	Deposits     []DepositInput      `json:"deposits,omitempty"`
	Expenses     []ExpenseInput      `json:"expenses,omitempty"`
	Imports      []InventoryDocInput `json:"imports,omitempty"`
	Exports      []InventoryDocInput `json:"exports,omitempty"`
	ClosedAt     *time.Time          `json:"closed_at,omitempty"`
}

type CreateDebtSaleRequest struct {
	ShiftID string `json:"-"`
	DebtSaleInput
}

type CreateReceiptRequest struct {
	StoreID string  `json:"store_id"`
	ShiftID *string `json:"shift_id,omitempty"`
	ReceiptInput
}

type CreateDepositRequest struct {
	StoreID string  `json:"store_id"`
	ShiftID *string `json:"shift_id,omitempty"`
	DepositInput
}

type CreateExpenseRequest struct {
	StoreID string  `json:"store_id"`
	ShiftID *string `json:"shift_id,omitempty"`
	ExpenseInput
}

// ---------------------------------------------------------------------------
// Read views.
// ---------------------------------------------------------------------------

type CashStatementLine struct {
	Entry   CashEntry       `json:"entry"`
	Balance decimal.Decimal `json:"balance"`
}

type DebtStatementLine struct {
	Entry   DebtEntry       `json:"entry"`
	Balance decimal.Decimal `json:"balance"`
}

type CreditStatus struct {
	CustomerID         string          `json:"customer_id"`
	CustomerName       string          `json:"customer_name"`
	CreditLimit        decimal.Decimal `json:"credit_limit"`
	CurrentDebt        decimal.Decimal `json:"current_debt"`
	AvailableCredit    decimal.Decimal `json:"available_credit"`
	CreditUsagePercent float64         `json:"credit_usage_percent"`
	OverLimit          bool            `json:"over_limit"`
	WarningLevel       string          `json:"warning_level"` // safe, warning, danger, overlimit
}

type ShiftReportSummary struct {
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	TotalRetail     decimal.Decimal `json:"total_retail"`
	TotalDebtSales  decimal.Decimal `json:"total_debt_sales"`
	TotalReceipts   decimal.Decimal `json:"total_receipts"`
	TotalDeposits   decimal.Decimal `json:"total_deposits"`
	TotalExpenses   decimal.Decimal `json:"total_expenses"`
	CashMovement    decimal.Decimal `json:"cash_movement"`
	StoreCashOnHand decimal.Decimal `json:"store_cash_on_hand"`
}

type ShiftReport struct {
	Shift        Shift              `json:"shift"`
	Summary      ShiftReportSummary `json:"summary"`
	PumpReadings []PumpReading      `json:"pump_readings"`
	RetailSales  []Sale             `json:"retail_sales"`
	CreditSales  []Sale             `json:"credit_sales"`
	DebtSales    []ShiftDebtSale    `json:"debt_sales"`
	Receipts     []Receipt          `json:"receipts"`
	Deposits     []CashDeposit      `json:"deposits"`
}

type PreviousShiftReadings struct {
	HasPrevious   bool                       `json:"has_previous"`
	PreviousShift *Shift                     `json:"previous_shift,omitempty"`
	Readings      map[string]decimal.Decimal `json:"readings"` // pump code -> end meter value
}
