package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShiftCloseTransition(t *testing.T) {
	opened := time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)
	shift := Shift{ID: "shift-1", Status: ShiftOpen, OpenedAt: opened}

	require.NoError(t, shift.Close(opened.Add(8*time.Hour)))
	assert.Equal(t, ShiftClosed, shift.Status)
	require.NotNil(t, shift.ClosedAt)
	assert.Equal(t, opened.Add(8*time.Hour), *shift.ClosedAt)

	// already closed
	assert.ErrorIs(t, shift.Close(opened.Add(9*time.Hour)), ErrShiftNotOpen)
}

func TestShiftCloseBeforeOpen(t *testing.T) {
	opened := time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)
	shift := Shift{ID: "shift-1", Status: ShiftOpen, OpenedAt: opened}

	err := shift.Close(opened.Add(-time.Minute))
	assert.ErrorIs(t, err, ErrClosedBeforeOpened)
	assert.Equal(t, ShiftOpen, shift.Status)
	assert.Nil(t, shift.ClosedAt)
}

func TestShiftReopenTransition(t *testing.T) {
	opened := time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)
	shift := Shift{ID: "shift-1", Status: ShiftOpen, OpenedAt: opened}

	assert.ErrorIs(t, shift.Reopen(), ErrShiftNotClosed)

	require.NoError(t, shift.Close(opened.Add(8*time.Hour)))
	require.NoError(t, shift.Reopen())
	assert.Equal(t, ShiftOpen, shift.Status)
	assert.Nil(t, shift.ClosedAt)
}
