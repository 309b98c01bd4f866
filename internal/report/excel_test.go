package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stationops/fuelledger/internal/domain"
)

func TestDebtStatementWorkbook(t *testing.T) {
	at := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	customer := domain.Customer{ID: "cust-1", Code: "C001", Name: "Harbor Logistics", CreditLimit: decimal.NewFromInt(50000000)}
	lines := []domain.DebtStatementLine{
		{
			Entry: domain.DebtEntry{
				CustomerID: "cust-1", RefType: domain.RefShiftDebtSale, RefID: "ds-1",
				Debit: decimal.NewFromInt(200000), LedgerAt: at,
			},
			Balance: decimal.NewFromInt(200000),
		},
	}

	wb, err := DebtStatementWorkbook(customer, lines)
	require.NoError(t, err)
	defer wb.Close()

	name, err := wb.GetCellValue("Statement", "B1")
	require.NoError(t, err)
	assert.Equal(t, "Harbor Logistics", name)
	ref, err := wb.GetCellValue("Statement", "B6")
	require.NoError(t, err)
	assert.Equal(t, "SHIFT_DEBT_SALE/ds-1", ref)
	bal, err := wb.GetCellValue("Statement", "F6")
	require.NoError(t, err)
	assert.Equal(t, "200000", bal)
}

func TestShiftReportWorkbook(t *testing.T) {
	opened := time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)
	closed := opened.Add(8 * time.Hour)
	rep := domain.ShiftReport{
		Shift: domain.Shift{
			ID: "shift-1", StoreID: "store-main", ShiftDate: opened, ShiftNo: 1,
			OpenedAt: opened, ClosedAt: &closed, Status: domain.ShiftClosed,
		},
		Summary: domain.ShiftReportSummary{
			TotalRevenue: decimal.NewFromInt(500000),
			TotalRetail:  decimal.NewFromInt(300000),
		},
		PumpReadings: []domain.PumpReading{{
			PumpCode: "P1", ProductID: "prod-pertalite",
			StartValue: decimal.NewFromInt(100), EndValue: decimal.NewFromInt(150),
			Quantity: decimal.NewFromInt(50), UnitPrice: decimal.NewFromInt(10000),
		}},
	}

	wb, err := ShiftReportWorkbook(rep)
	require.NoError(t, err)
	defer wb.Close()

	storeCell, err := wb.GetCellValue("Shift", "B1")
	require.NoError(t, err)
	assert.Equal(t, "store-main", storeCell)
	revenue, err := wb.GetCellValue("Shift", "B6")
	require.NoError(t, err)
	assert.Equal(t, "500000", revenue)
	pump, err := wb.GetCellValue("Shift", "A15")
	require.NoError(t, err)
	assert.Equal(t, "P1", pump)
}
