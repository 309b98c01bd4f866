package httpapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stationops/fuelledger/internal/report"
)

func writeWorkbook(w http.ResponseWriter, filename string, write func(w http.ResponseWriter) error) error {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	return write(w)
}

func (s *Server) handleDebtStatementXLSX(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "id")
	customer, err := s.svc.GetCustomer(r.Context(), customerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	until, err := untilParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	lines, err := s.svc.DebtStatement(r.Context(), customerID, until)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	wb, err := report.DebtStatementWorkbook(customer, lines)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer wb.Close()
	err = writeWorkbook(w, fmt.Sprintf("debt-statement-%s.xlsx", customer.Code), func(w http.ResponseWriter) error {
		return wb.Write(w)
	})
	if err != nil {
		s.logger.Error("write workbook", "customer_id", customerID, "error", err)
	}
}

func (s *Server) handleShiftReportXLSX(w http.ResponseWriter, r *http.Request) {
	shiftID := chi.URLParam(r, "id")
	rep, err := s.svc.GetShiftReport(r.Context(), shiftID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	wb, err := report.ShiftReportWorkbook(rep)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer wb.Close()
	name := fmt.Sprintf("shift-%s-%d.xlsx", rep.Shift.ShiftDate.Format("2006-01-02"), rep.Shift.ShiftNo)
	err = writeWorkbook(w, name, func(w http.ResponseWriter) error {
		return wb.Write(w)
	})
	if err != nil {
		s.logger.Error("write workbook", "shift_id", shiftID, "error", err)
	}
}
