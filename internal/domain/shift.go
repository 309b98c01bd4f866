package domain

import "time"

type ShiftStatus string

const (
	ShiftOpen   ShiftStatus = "OPEN"
	ShiftClosed ShiftStatus = "CLOSED"
)

// Close transitions the shift to CLOSED at the given instant. The caller is
// responsible for everything else a close entails; this method only guards
// the state transition itself.
func (s *Shift) Close(at time.Time) error {
	if s.Status != ShiftOpen {
		return ErrShiftNotOpen
	}
	if at.Before(s.OpenedAt) {
		return ErrClosedBeforeOpened
	}
	s.Status = ShiftClosed
	s.ClosedAt = &at
	return nil
}

// Reopen transitions the shift back to OPEN and clears the close timestamp.
func (s *Shift) Reopen() error {
	if s.Status != ShiftClosed {
		return ErrShiftNotClosed
	}
	s.Status = ShiftOpen
	s.ClosedAt = nil
	return nil
}
