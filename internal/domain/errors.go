package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrShiftNotOpen             = errors.New("shift is not open")
	ErrShiftNotClosed           = errors.New("shift is not closed")
	ErrShiftAlreadyOpenForStore = errors.New("store already has an open shift")
	ErrShiftAlreadyExists       = errors.New("shift already exists for store, date and sequence")
	ErrDuplicateClose           = errors.New("shift already has pump readings recorded")
	ErrReceiptDetailMismatch    = errors.New("receipt detail amounts do not sum to receipt amount")
	ErrDebtExceedsPumped        = errors.New("debt sale quantity exceeds pumped quantity")
	ErrClosedBeforeOpened       = errors.New("close time is before open time")
	ErrNegativeQuantity         = errors.New("pump reading yields negative quantity")
)

// MissingPriceError reports products with no valid price window at the
// resolution instant. A close listing several unpriced products carries
// them all so the operator can fix the price table in one pass.
type MissingPriceError struct {
	ProductIDs []string
	RegionID   string
	AsOf       time.Time
}

func (e *MissingPriceError) Error() string {
	return fmt.Sprintf("no valid price for product(s) %s in region %s at %s",
		strings.Join(e.ProductIDs, ", "), e.RegionID, e.AsOf.Format(time.RFC3339))
}

// AmbiguousPriceError reports overlapping price windows. This is a data
// integrity failure and always aborts the operation.
type AmbiguousPriceError struct {
	ProductID string
	RegionID  string
	AsOf      time.Time
	PriceIDs  []string
}

func (e *AmbiguousPriceError) Error() string {
	return fmt.Sprintf("ambiguous price for product %s in region %s at %s: windows %s overlap",
		e.ProductID, e.RegionID, e.AsOf.Format(time.RFC3339), strings.Join(e.PriceIDs, ", "))
}

// UnsafeReopenError blocks a reopen when a customer payment has been
// recorded after one of the shift's debt sales. Superseding the sale
// would leave the payment crediting debt that no longer exists.
type UnsafeReopenError struct {
	ShiftID     string
	CustomerIDs []string
}

func (e *UnsafeReopenError) Error() string {
	return fmt.Sprintf("cannot reopen shift %s: payments recorded after debt sales for customer(s) %s",
		e.ShiftID, strings.Join(e.CustomerIDs, ", "))
}

// CreditLimitExceededError aborts a close or debt sale that would push a
// customer past their credit limit.
type CreditLimitExceededError struct {
	CustomerID  string
	CreditLimit decimal.Decimal
	CurrentDebt decimal.Decimal
	Requested   decimal.Decimal
}

func (e *CreditLimitExceededError) Error() string {
	return fmt.Sprintf("credit limit exceeded for customer %s: limit %s, current debt %s, requested %s",
		e.CustomerID, e.CreditLimit, e.CurrentDebt, e.Requested)
}
