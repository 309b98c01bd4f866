// Package memory implements store.Repository with in-process maps guarded by
// a single mutex. It backs the test suite and the demo mode of the server.
// Atomic postings are validated in full before any mutation, so a failed
// posting leaves the store untouched.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/stationops/fuelledger/internal/domain"
	"github.com/stationops/fuelledger/internal/store"
)

type Memory struct {
	mu sync.RWMutex

	regions    map[string]domain.Region
	stores     map[string]domain.Store
	warehouses map[string]domain.Warehouse // keyed by store id
	products   map[string]domain.Product
	customers  map[string]domain.Customer
	users      map[string]domain.UserAccount
	prices     map[string]domain.ProductPrice

	shifts       map[string]domain.Shift
	pumpReadings map[string]domain.PumpReading
	sales        map[string]domain.Sale
	debtSales    map[string]domain.ShiftDebtSale
	receipts     map[string]domain.Receipt
	deposits     map[string]domain.CashDeposit
	expenses     map[string]domain.Expense
	documents    map[string]domain.InventoryDocument

	cashEntries []domain.CashEntry
	debtEntries []domain.DebtEntry
	invEntries  []domain.InventoryEntry
	audits      []domain.AuditLog
}

var _ store.Repository = (*Memory)(nil)

func New() *Memory {
	return &Memory{
		regions:      make(map[string]domain.Region),
		stores:       make(map[string]domain.Store),
		warehouses:   make(map[string]domain.Warehouse),
		products:     make(map[string]domain.Product),
		customers:    make(map[string]domain.Customer),
		users:        make(map[string]domain.UserAccount),
		prices:       make(map[string]domain.ProductPrice),
		shifts:       make(map[string]domain.Shift),
		pumpReadings: make(map[string]domain.PumpReading),
		sales:        make(map[string]domain.Sale),
		debtSales:    make(map[string]domain.ShiftDebtSale),
		receipts:     make(map[string]domain.Receipt),
		deposits:     make(map[string]domain.CashDeposit),
		expenses:     make(map[string]domain.Expense),
		documents:    make(map[string]domain.InventoryDocument),
	}
}

// ---------------------------------------------------------------------------
// Fixture helpers. Used by Seed and by tests to arrange master data.
// ---------------------------------------------------------------------------

func (m *Memory) AddRegion(r domain.Region) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regions[r.ID] = r
}

func (m *Memory) AddStore(s domain.Store) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stores[s.ID] = s
}

func (m *Memory) AddWarehouse(w domain.Warehouse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warehouses[w.StoreID] = w
}

func (m *Memory) AddProduct(p domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

func (m *Memory) AddCustomer(c domain.Customer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[c.ID] = c
}

func (m *Memory) AddUser(u domain.UserAccount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.Username] = u
}

func (m *Memory) AddPrice(p domain.ProductPrice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[p.ID] = p
}

// Seed loads a small demo fuel station: one region, one store with its
// warehouse, three fuel products with open-ended price windows, two credit
// customers and two users (admin/admin123, operator/operator123).
func (m *Memory) Seed() error {
	m.AddRegion(domain.Region{ID: "region-east", Name: "East Java"})
	m.AddStore(domain.Store{ID: "store-main", RegionID: "region-east", Name: "Station 54.601.23"})
	m.AddWarehouse(domain.Warehouse{ID: "wh-main", StoreID: "store-main", Name: "Main tanks", Type: "STORE"})

	m.AddProduct(domain.Product{ID: "prod-biosolar", Code: "BIO", Name: "Biosolar", Unit: "liter"})
	m.AddProduct(domain.Product{ID: "prod-pertalite", Code: "PER", Name: "Pertalite", Unit: "liter"})
	m.AddProduct(domain.Product{ID: "prod-dexlite", Code: "DEX", Name: "Dexlite", Unit: "liter"})

	m.AddCustomer(domain.Customer{ID: "cust-harbor", Code: "C001", Name: "Harbor Logistics", CreditLimit: decimal.NewFromInt(50_000_000)})
	m.AddCustomer(domain.Customer{ID: "cust-agri", Code: "C002", Name: "Agri Transport", CreditLimit: decimal.NewFromInt(20_000_000)})

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.AddPrice(domain.ProductPrice{ID: "price-bio-1", ProductID: "prod-biosolar", RegionID: "region-east", Price: decimal.NewFromInt(6800), ValidFrom: from, CreatedAt: from})
	m.AddPrice(domain.ProductPrice{ID: "price-per-1", ProductID: "prod-pertalite", RegionID: "region-east", Price: decimal.NewFromInt(10000), ValidFrom: from, CreatedAt: from})
	m.AddPrice(domain.ProductPrice{ID: "price-dex-1", ProductID: "prod-dexlite", RegionID: "region-east", Price: decimal.NewFromInt(13550), ValidFrom: from, CreatedAt: from})

	for user, pass := range map[string]string{"admin": "admin123", "operator": "operator123"} {
		hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", user, err)
		}
		role := "operator"
		if user == "admin" {
			role = "admin"
		}
		m.AddUser(domain.UserAccount{Username: user, Password: string(hash), Role: role, Active: true, CreatedAt: time.Now().UTC()})
	}
	return nil
}

// ---------------------------------------------------------------------------
// Master data reads.
// ---------------------------------------------------------------------------

func (m *Memory) GetStore(_ context.Context, id string) (domain.Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stores[id]
	if !ok {
		return domain.Store{}, fmt.Errorf("store %s: %w", id, store.ErrNotFound)
	}
	return s, nil
}

func (m *Memory) GetProduct(_ context.Context, id string) (domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("product %s: %w", id, store.ErrNotFound)
	}
	return p, nil
}

func (m *Memory) GetCustomer(_ context.Context, id string) (domain.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.customers[id]
	if !ok {
		return domain.Customer{}, fmt.Errorf("customer %s: %w", id, store.ErrNotFound)
	}
	return c, nil
}

func (m *Memory) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Customer, 0, len(m.customers))
	for _, c := range m.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *Memory) GetWarehouseForStore(_ context.Context, storeID string) (domain.Warehouse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.warehouses[storeID]
	if !ok {
		return domain.Warehouse{}, fmt.Errorf("warehouse for store %s: %w", storeID, store.ErrNotFound)
	}
	return w, nil
}

func (m *Memory) GetUser(_ context.Context, username string) (domain.UserAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	if !ok {
		return domain.UserAccount{}, fmt.Errorf("user %s: %w", username, store.ErrNotFound)
	}
	return u, nil
}

func (m *Memory) PriceWindows(_ context.Context, productID, regionID string) ([]domain.ProductPrice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.ProductPrice
	for _, p := range m.prices {
		if p.ProductID == productID && p.RegionID == regionID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ValidFrom.Before(out[j].ValidFrom) })
	return out, nil
}

// ---------------------------------------------------------------------------
// Shifts.
// ---------------------------------------------------------------------------

func (m *Memory) CreateShift(_ context.Context, shift domain.Shift, audit domain.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stores[shift.StoreID]; !ok {
		return fmt.Errorf("store %s: %w", shift.StoreID, store.ErrNotFound)
	}
	for _, existing := range m.shifts {
		if existing.StoreID != shift.StoreID {
			continue
		}
		if existing.Status == domain.ShiftOpen {
			return fmt.Errorf("%w: shift %s", domain.ErrShiftAlreadyOpenForStore, existing.ID)
		}
		if existing.ShiftDate.Equal(shift.ShiftDate) && existing.ShiftNo == shift.ShiftNo {
			return fmt.Errorf("%w: shift %s", domain.ErrShiftAlreadyExists, existing.ID)
		}
	}
	m.shifts[shift.ID] = shift
	m.audits = append(m.audits, audit)
	return nil
}

func (m *Memory) GetShift(_ context.Context, id string) (domain.Shift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.shifts[id]
	if !ok {
		return domain.Shift{}, fmt.Errorf("shift %s: %w", id, store.ErrNotFound)
	}
	return s, nil
}

func (m *Memory) ListShifts(_ context.Context, storeID string, limit int) ([]domain.Shift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Shift
	for _, s := range m.shifts {
		if storeID == "" || s.StoreID == storeID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ShiftDate.Equal(out[j].ShiftDate) {
			return out[i].ShiftDate.After(out[j].ShiftDate)
		}
		return out[i].ShiftNo > out[j].ShiftNo
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) PreviousShift(_ context.Context, shift domain.Shift) (domain.Shift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var prev *domain.Shift
	for _, s := range m.shifts {
		if s.StoreID != shift.StoreID || s.ID == shift.ID || s.Status != domain.ShiftClosed {
			continue
		}
		if s.ShiftDate.After(shift.ShiftDate) {
			continue
		}
		if s.ShiftDate.Equal(shift.ShiftDate) && s.ShiftNo >= shift.ShiftNo {
			continue
		}
		if prev == nil || s.ShiftDate.After(prev.ShiftDate) ||
			(s.ShiftDate.Equal(prev.ShiftDate) && s.ShiftNo > prev.ShiftNo) {
			cp := s
			prev = &cp
		}
	}
	if prev == nil {
		return domain.Shift{}, fmt.Errorf("previous shift for %s: %w", shift.ID, store.ErrNotFound)
	}
	return *prev, nil
}

func (m *Memory) HasPumpReadings(_ context.Context, shiftID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.pumpReadings {
		if r.ShiftID == shiftID && r.SupersededByShiftID == nil {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) ListPumpReadings(_ context.Context, shiftID string) ([]domain.PumpReading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.PumpReading
	for _, r := range m.pumpReadings {
		if r.ShiftID == shiftID && r.SupersededByShiftID == nil {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PumpCode < out[j].PumpCode })
	return out, nil
}

// ---------------------------------------------------------------------------
// Atomic postings.
// ---------------------------------------------------------------------------

func (m *Memory) ApplyShiftClose(_ context.Context, p domain.ShiftClosePosting) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.shifts[p.Shift.ID]
	if !ok {
		return fmt.Errorf("shift %s: %w", p.Shift.ID, store.ErrNotFound)
	}
	if current.Status != domain.ShiftOpen {
		return domain.ErrShiftNotOpen
	}
	for _, r := range m.pumpReadings {
		if r.ShiftID == p.Shift.ID && r.SupersededByShiftID == nil {
			return domain.ErrDuplicateClose
		}
	}

	m.shifts[p.Shift.ID] = p.Shift
	for _, r := range p.PumpReadings {
		m.pumpReadings[r.ID] = r
	}
	for _, s := range p.Sales {
		m.sales[s.ID] = s
	}
	for _, r := range p.Receipts {
		m.receipts[r.ID] = r
	}
	for _, d := range p.Deposits {
		m.deposits[d.ID] = d
	}
	for _, e := range p.Expenses {
		m.expenses[e.ID] = e
	}
	for _, doc := range p.Documents {
		m.documents[doc.ID] = doc
	}
	m.cashEntries = append(m.cashEntries, p.CashEntries...)
	m.debtEntries = append(m.debtEntries, p.DebtEntries...)
	m.invEntries = append(m.invEntries, p.InventoryEntries...)
	m.audits = append(m.audits, p.Audit)
	return nil
}

func (m *Memory) ApplyShiftReopen(_ context.Context, p domain.ShiftReopenPosting) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.shifts[p.Shift.ID]
	if !ok {
		return fmt.Errorf("shift %s: %w", p.Shift.ID, store.ErrNotFound)
	}
	if current.Status != domain.ShiftClosed {
		return domain.ErrShiftNotClosed
	}

	shiftID := p.Shift.ID
	m.shifts[shiftID] = p.Shift

	for i := range m.cashEntries {
		e := &m.cashEntries[i]
		if e.ShiftID != nil && *e.ShiftID == shiftID && e.SupersededByShiftID == nil {
			e.SupersededByShiftID = &shiftID
		}
	}
	// Mid-shift debt sale entries stay in force; the next close of this
	// shift counts their drafts again instead of re-posting them.
	for i := range m.debtEntries {
		e := &m.debtEntries[i]
		if e.ShiftID != nil && *e.ShiftID == shiftID && e.SupersededByShiftID == nil &&
			e.RefType != domain.RefShiftDebtSale {
			e.SupersededByShiftID = &shiftID
		}
	}
	for i := range m.invEntries {
		e := &m.invEntries[i]
		if e.ShiftID != nil && *e.ShiftID == shiftID && e.SupersededByShiftID == nil &&
			e.RefType != domain.RefShiftDebtSale {
			e.SupersededByShiftID = &shiftID
		}
	}
	for id, r := range m.pumpReadings {
		if r.ShiftID == shiftID && r.SupersededByShiftID == nil {
			r.SupersededByShiftID = &shiftID
			m.pumpReadings[id] = r
		}
	}
	for id, s := range m.sales {
		if s.ShiftID == shiftID && s.SupersededByShiftID == nil {
			s.SupersededByShiftID = &shiftID
			m.sales[id] = s
		}
	}
	for id, doc := range m.documents {
		if doc.RefShiftID != nil && *doc.RefShiftID == shiftID && doc.SupersededByShiftID == nil {
			doc.SupersededByShiftID = &shiftID
			m.documents[id] = doc
		}
	}
	m.audits = append(m.audits, p.Audit)
	return nil
}

func (m *Memory) ApplyDebtSale(_ context.Context, p domain.DebtSalePosting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.shifts[p.DebtSale.ShiftID]; !ok {
		return fmt.Errorf("shift %s: %w", p.DebtSale.ShiftID, store.ErrNotFound)
	}
	m.debtSales[p.DebtSale.ID] = p.DebtSale
	m.debtEntries = append(m.debtEntries, p.DebtEntry)
	m.invEntries = append(m.invEntries, p.InventoryEntry)
	return nil
}

func (m *Memory) ApplyReceipt(_ context.Context, p domain.ReceiptPosting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts[p.Receipt.ID] = p.Receipt
	m.debtEntries = append(m.debtEntries, p.DebtEntries...)
	if p.CashEntry != nil {
		m.cashEntries = append(m.cashEntries, *p.CashEntry)
	}
	return nil
}

func (m *Memory) ApplyDeposit(_ context.Context, p domain.DepositPosting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deposits[p.Deposit.ID] = p.Deposit
	if p.CashEntry != nil {
		m.cashEntries = append(m.cashEntries, *p.CashEntry)
	}
	return nil
}

func (m *Memory) ApplyExpense(_ context.Context, p domain.ExpensePosting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expenses[p.Expense.ID] = p.Expense
	if p.CashEntry != nil {
		m.cashEntries = append(m.cashEntries, *p.CashEntry)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Debt sale drafts.
// ---------------------------------------------------------------------------

func (m *Memory) GetDebtSale(_ context.Context, id string) (domain.ShiftDebtSale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.debtSales[id]
	if !ok {
		return domain.ShiftDebtSale{}, fmt.Errorf("debt sale %s: %w", id, store.ErrNotFound)
	}
	return d, nil
}

func (m *Memory) ListShiftDebtSales(_ context.Context, shiftID string) ([]domain.ShiftDebtSale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.ShiftDebtSale
	for _, d := range m.debtSales {
		if d.ShiftID == shiftID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) DeleteDebtSale(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.debtSales[id]; !ok {
		return fmt.Errorf("debt sale %s: %w", id, store.ErrNotFound)
	}
	delete(m.debtSales, id)

	kept := m.debtEntries[:0]
	for _, e := range m.debtEntries {
		if !(e.RefType == domain.RefShiftDebtSale && e.RefID == id) {
			kept = append(kept, e)
		}
	}
	m.debtEntries = kept

	keptInv := m.invEntries[:0]
	for _, e := range m.invEntries {
		if !(e.RefType == domain.RefShiftDebtSale && e.RefID == id) {
			keptInv = append(keptInv, e)
		}
	}
	m.invEntries = keptInv
	return nil
}

// ---------------------------------------------------------------------------
// Ledger reads.
// ---------------------------------------------------------------------------

func within(ledgerAt time.Time, until *time.Time) bool {
	return until == nil || !ledgerAt.After(*until)
}

func (m *Memory) ListCashEntries(_ context.Context, storeID string, until *time.Time) ([]domain.CashEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.CashEntry
	for _, e := range m.cashEntries {
		if e.StoreID == storeID && e.SupersededByShiftID == nil && within(e.LedgerAt, until) {
			out = append(out, e)
		}
	}
	sortCash(out)
	return out, nil
}

func (m *Memory) ListDebtEntries(_ context.Context, customerID string, until *time.Time) ([]domain.DebtEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.DebtEntry
	for _, e := range m.debtEntries {
		if e.CustomerID == customerID && e.SupersededByShiftID == nil && within(e.LedgerAt, until) {
			out = append(out, e)
		}
	}
	sortDebt(out)
	return out, nil
}

func (m *Memory) ListInventoryEntries(_ context.Context, warehouseID, productID string, until *time.Time) ([]domain.InventoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.InventoryEntry
	for _, e := range m.invEntries {
		if e.WarehouseID == warehouseID && e.ProductID == productID &&
			e.SupersededByShiftID == nil && within(e.LedgerAt, until) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LedgerAt.Equal(out[j].LedgerAt) {
			return out[i].LedgerAt.Before(out[j].LedgerAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func sortCash(entries []domain.CashEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].LedgerAt.Equal(entries[j].LedgerAt) {
			return entries[i].LedgerAt.Before(entries[j].LedgerAt)
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
}

func sortDebt(entries []domain.DebtEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].LedgerAt.Equal(entries[j].LedgerAt) {
			return entries[i].LedgerAt.Before(entries[j].LedgerAt)
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
}

func (m *Memory) CashBalance(ctx context.Context, storeID string, until *time.Time) (decimal.Decimal, error) {
	entries, err := m.ListCashEntries(ctx, storeID, until)
	if err != nil {
		return decimal.Zero, err
	}
	bal := decimal.Zero
	for _, e := range entries {
		bal = bal.Add(e.CashIn).Sub(e.CashOut)
	}
	return bal, nil
}

func (m *Memory) DebtBalance(ctx context.Context, customerID string, until *time.Time) (decimal.Decimal, error) {
	entries, err := m.ListDebtEntries(ctx, customerID, until)
	if err != nil {
		return decimal.Zero, err
	}
	bal := decimal.Zero
	for _, e := range entries {
		bal = bal.Add(e.Debit).Sub(e.Credit)
	}
	return bal, nil
}

func (m *Memory) StockBalance(ctx context.Context, warehouseID, productID string, until *time.Time) (decimal.Decimal, error) {
	entries, err := m.ListInventoryEntries(ctx, warehouseID, productID, until)
	if err != nil {
		return decimal.Zero, err
	}
	bal := decimal.Zero
	for _, e := range entries {
		bal = bal.Add(e.QuantityIn).Sub(e.QuantityOut)
	}
	return bal, nil
}

func (m *Memory) ListDebtEntriesForShift(_ context.Context, shiftID string) ([]domain.DebtEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.DebtEntry
	for _, e := range m.debtEntries {
		if e.ShiftID != nil && *e.ShiftID == shiftID && e.SupersededByShiftID == nil {
			out = append(out, e)
		}
	}
	sortDebt(out)
	return out, nil
}

func (m *Memory) HasPaymentAfter(_ context.Context, customerID string, after time.Time) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.debtEntries {
		if e.CustomerID == customerID && e.RefType == domain.RefPayment &&
			e.SupersededByShiftID == nil && e.LedgerAt.After(after) {
			return true, nil
		}
	}
	return false, nil
}

// ---------------------------------------------------------------------------
// Shift report data.
// ---------------------------------------------------------------------------

func (m *Memory) ListSales(_ context.Context, shiftID string) ([]domain.Sale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Sale
	for _, s := range m.sales {
		if s.ShiftID == shiftID && s.SupersededByShiftID == nil {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (m *Memory) ListReceiptsForShift(_ context.Context, shiftID string) ([]domain.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Receipt
	for _, r := range m.receipts {
		if r.ShiftID != nil && *r.ShiftID == shiftID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) ListDepositsForShift(_ context.Context, shiftID string) ([]domain.CashDeposit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.CashDeposit
	for _, d := range m.deposits {
		if d.ShiftID != nil && *d.ShiftID == shiftID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) ListExpensesForShift(_ context.Context, shiftID string) ([]domain.Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Expense
	for _, e := range m.expenses {
		if e.ShiftID != nil && *e.ShiftID == shiftID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ---------------------------------------------------------------------------
// Audit.
// ---------------------------------------------------------------------------

func (m *Memory) ListAudit(_ context.Context, recordID string) ([]domain.AuditLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.AuditLog
	for _, a := range m.audits {
		if recordID == "" || a.RecordID == recordID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
