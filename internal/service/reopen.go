package service

import (
	"context"
	"sort"

	"github.com/stationops/fuelledger/internal/domain"
)

// ReopenShift reverses a close without erasing history. Every row the
// close produced is marked superseded by this shift's id and drops out of
// balance computation; a later close layers fresh rows on top. Mid-shift
// debt sale entries stay in force, the next close counts them again. The
// reopen is refused when a customer payment landed after one of the
// close-time debt sales, because superseding the sale would orphan the
// payment.
func (s *Service) ReopenShift(ctx context.Context, shiftID string) (domain.Shift, error) {
	shift, err := s.reopenShift(ctx, shiftID)
	if err != nil {
		s.metrics.ShiftReopens.WithLabelValues("error").Inc()
		return domain.Shift{}, err
	}
	s.metrics.ShiftReopens.WithLabelValues("ok").Inc()
	return shift, nil
}

func (s *Service) reopenShift(ctx context.Context, shiftID string) (domain.Shift, error) {
	shift, err := s.repo.GetShift(ctx, shiftID)
	if err != nil {
		return domain.Shift{}, err
	}
	if shift.Status != domain.ShiftClosed {
		return domain.Shift{}, domain.ErrShiftNotClosed
	}

	debtEntries, err := s.repo.ListDebtEntriesForShift(ctx, shiftID)
	if err != nil {
		return domain.Shift{}, err
	}
	unsafeCustomers := map[string]bool{}
	var touched []string
	for _, e := range debtEntries {
		touched = append(touched, e.CustomerID)
		if !e.Debit.IsPositive() {
			continue
		}
		// Mid-shift entries survive the reopen, so payments booked
		// against them stay attributable.
		if e.RefType == domain.RefShiftDebtSale {
			continue
		}
		paid, err := s.repo.HasPaymentAfter(ctx, e.CustomerID, e.LedgerAt)
		if err != nil {
			return domain.Shift{}, err
		}
		if paid {
			unsafeCustomers[e.CustomerID] = true
		}
	}
	if len(unsafeCustomers) > 0 {
		ids := make([]string, 0, len(unsafeCustomers))
		for id := range unsafeCustomers {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return domain.Shift{}, &domain.UnsafeReopenError{ShiftID: shiftID, CustomerIDs: ids}
	}

	original := shift
	if err := shift.Reopen(); err != nil {
		return domain.Shift{}, err
	}
	posting := domain.ShiftReopenPosting{
		Shift: shift,
		Audit: s.auditRow(ctx, "shifts", shift.ID, "REOPEN", original, shift),
	}
	if err := s.repo.ApplyShiftReopen(ctx, posting); err != nil {
		return domain.Shift{}, err
	}
	s.ledgers.InvalidateDebt(ctx, touched...)
	s.logger.Info("shift reopened", "shift_id", shift.ID, "store_id", shift.StoreID,
		"superseded_debt_entries", len(debtEntries))
	return shift, nil
}
