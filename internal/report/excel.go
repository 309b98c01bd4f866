// Package report renders read views into XLSX workbooks for handover and
// collections paperwork.
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/stationops/fuelledger/internal/domain"
)

const timeLayout = "2006-01-02 15:04"

// DebtStatementWorkbook renders a customer's debt ledger with running
// balances into a single-sheet workbook.
func DebtStatementWorkbook(customer domain.Customer, lines []domain.DebtStatementLine) (*excelize.File, error) {
	f := excelize.NewFile()
	const sheet = "Statement"
	f.SetSheetName(f.GetSheetName(0), sheet)

	rows := [][]any{
		{"Customer", customer.Name},
		{"Code", customer.Code},
		{"Credit limit", customer.CreditLimit.InexactFloat64()},
		{},
		{"Date", "Reference", "Note", "Debit", "Credit", "Balance"},
	}
	for _, line := range lines {
		rows = append(rows, []any{
			line.Entry.LedgerAt.Format(timeLayout),
			fmt.Sprintf("%s/%s", line.Entry.RefType, line.Entry.RefID),
			line.Entry.Note,
			line.Entry.Debit.InexactFloat64(),
			line.Entry.Credit.InexactFloat64(),
			line.Balance.InexactFloat64(),
		})
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// ShiftReportWorkbook renders a shift handover report: summary figures,
// per-pump readings and the credit sales of the shift.
func ShiftReportWorkbook(r domain.ShiftReport) (*excelize.File, error) {
	f := excelize.NewFile()
	const sheet = "Shift"
	f.SetSheetName(f.GetSheetName(0), sheet)

	closedAt := ""
	if r.Shift.ClosedAt != nil {
		closedAt = r.Shift.ClosedAt.Format(timeLayout)
	}
	rows := [][]any{
		{"Store", r.Shift.StoreID},
		{"Date", r.Shift.ShiftDate.Format("2006-01-02"), "Shift", r.Shift.ShiftNo},
		{"Opened", r.Shift.OpenedAt.Format(timeLayout), "Closed", closedAt},
		{"Handover", r.Shift.HandoverName, "Receiver", r.Shift.ReceiverName},
		{},
		{"Total revenue", r.Summary.TotalRevenue.InexactFloat64()},
		{"Retail (cash)", r.Summary.TotalRetail.InexactFloat64()},
		{"Credit sales", r.Summary.TotalDebtSales.InexactFloat64()},
		{"Receipts", r.Summary.TotalReceipts.InexactFloat64()},
		{"Deposits", r.Summary.TotalDeposits.InexactFloat64()},
		{"Expenses", r.Summary.TotalExpenses.InexactFloat64()},
		{"Cash movement", r.Summary.CashMovement.InexactFloat64()},
		{},
		{"Pump", "Product", "Start", "End", "Test", "Quantity", "Unit price"},
	}
	for _, pr := range r.PumpReadings {
		rows = append(rows, []any{
			pr.PumpCode, pr.ProductID,
			pr.StartValue.InexactFloat64(), pr.EndValue.InexactFloat64(),
			pr.TestExport.InexactFloat64(), pr.Quantity.InexactFloat64(),
			pr.UnitPrice.InexactFloat64(),
		})
	}
	rows = append(rows, []any{}, []any{"Customer", "Product", "Quantity", "Unit price", "Amount"})
	for _, d := range r.DebtSales {
		rows = append(rows, []any{
			d.CustomerID, d.ProductID,
			d.Quantity.InexactFloat64(), d.UnitPrice.InexactFloat64(), d.Amount.InexactFloat64(),
		})
	}
	for _, c := range r.CreditSales {
		customer := ""
		if c.CustomerID != nil {
			customer = *c.CustomerID
		}
		rows = append(rows, []any{
			customer, c.ProductID,
			c.Quantity.InexactFloat64(), c.UnitPrice.InexactFloat64(), c.Amount.InexactFloat64(),
		})
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}
	return f, nil
}
