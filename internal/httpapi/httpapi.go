// Package httpapi exposes the service over REST. Handlers decode, call the
// service and map domain errors to status codes; no business rules live
// here.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/stationops/fuelledger/internal/domain"
	"github.com/stationops/fuelledger/internal/service"
	"github.com/stationops/fuelledger/internal/store"
)

type Server struct {
	svc       *service.Service
	logger    *slog.Logger
	jwtSecret []byte
}

func New(svc *service.Service, logger *slog.Logger, jwtSecret string) *Server {
	return &Server{svc: svc, logger: logger, jwtSecret: []byte(jwtSecret)}
}

// Router assembles the chi mux. The metrics handler is injected so the
// prometheus registry stays owned by main.
func (s *Server) Router(metricsHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/shifts", s.handleListShifts)
			r.Get("/shifts/{id}", s.handleGetShift)
			r.Get("/shifts/{id}/report", s.handleShiftReport)
			r.Get("/shifts/{id}/report.xlsx", s.handleShiftReportXLSX)
			r.Get("/shifts/{id}/previous-readings", s.handlePreviousReadings)
			r.Get("/shifts/{id}/debt-sales", s.handleListDebtSales)

			r.Get("/stores/{id}/cash/balance", s.handleCashBalance)
			r.Get("/stores/{id}/cash/statement", s.handleCashStatement)
			r.Get("/customers/{id}/debt/balance", s.handleDebtBalance)
			r.Get("/customers/{id}/debt/statement", s.handleDebtStatement)
			r.Get("/customers/{id}/debt/statement.xlsx", s.handleDebtStatementXLSX)
			r.Get("/customers/{id}/credit-status", s.handleCreditStatus)
			r.Get("/warehouses/{id}/products/{pid}/balance", s.handleStockBalance)
			r.Get("/audit", s.handleListAudit)

			r.Group(func(r chi.Router) {
				r.Use(s.requireRole("operator", "admin"))
				r.Post("/shifts", s.handleCreateShift)
				r.Post("/shifts/{id}/close", s.handleCloseShift)
				r.Post("/shifts/{id}/debt-sales", s.handleCreateDebtSale)
				r.Delete("/debt-sales/{id}", s.handleDeleteDebtSale)
				r.Post("/receipts", s.handleCreateReceipt)
				r.Post("/deposits", s.handleCreateDeposit)
				r.Post("/expenses", s.handleCreateExpense)
			})

			r.Group(func(r chi.Router) {
				r.Use(s.requireRole("admin"))
				r.Post("/shifts/{id}/reopen", s.handleReopenShift)
			})
		})
	})
	return r
}

// ---------------------------------------------------------------------------
// Helpers.
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, status, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	var (
		missingPrice *domain.MissingPriceError
		ambiguous    *domain.AmbiguousPriceError
		unsafeReopen *domain.UnsafeReopenError
		creditLimit  *domain.CreditLimitExceededError
	)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidInput),
		errors.Is(err, domain.ErrReceiptDetailMismatch),
		errors.Is(err, domain.ErrNegativeQuantity),
		errors.Is(err, domain.ErrClosedBeforeOpened):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrShiftNotOpen),
		errors.Is(err, domain.ErrShiftNotClosed),
		errors.Is(err, domain.ErrShiftAlreadyOpenForStore),
		errors.Is(err, domain.ErrShiftAlreadyExists),
		errors.Is(err, domain.ErrDuplicateClose),
		errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.As(err, &missingPrice),
		errors.As(err, &ambiguous),
		errors.As(err, &unsafeReopen),
		errors.As(err, &creditLimit),
		errors.Is(err, domain.ErrDebtExceedsPumped):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}
	return nil
}

// untilParam parses an optional ?until=RFC3339 query value.
func untilParam(r *http.Request) (*time.Time, error) {
	raw := r.URL.Query().Get("until")
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: until must be RFC3339", store.ErrInvalidInput)
	}
	return &t, nil
}

// ---------------------------------------------------------------------------
// Shift handlers.
// ---------------------------------------------------------------------------

func (s *Server) handleCreateShift(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateShiftRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	shift, err := s.svc.CreateShift(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, shift)
}

func (s *Server) handleGetShift(w http.ResponseWriter, r *http.Request) {
	shift, err := s.svc.GetShift(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shift)
}

func (s *Server) handleListShifts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	shifts, err := s.svc.ListShifts(r.Context(), r.URL.Query().Get("store_id"), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shifts)
}

func (s *Server) handleCloseShift(w http.ResponseWriter, r *http.Request) {
	var req domain.CloseShiftRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	req.ShiftID = chi.URLParam(r, "id")
	shift, err := s.svc.CloseShift(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shift)
}

func (s *Server) handleReopenShift(w http.ResponseWriter, r *http.Request) {
	shift, err := s.svc.ReopenShift(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shift)
}

func (s *Server) handleShiftReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.svc.GetShiftReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handlePreviousReadings(w http.ResponseWriter, r *http.Request) {
	readings, err := s.svc.GetPreviousShiftReadings(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, readings)
}

// ---------------------------------------------------------------------------
// Draft handlers.
// ---------------------------------------------------------------------------

func (s *Server) handleCreateDebtSale(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateDebtSaleRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	req.ShiftID = chi.URLParam(r, "id")
	sale, err := s.svc.CreateDebtSale(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sale)
}

func (s *Server) handleDeleteDebtSale(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteDebtSale(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListDebtSales(w http.ResponseWriter, r *http.Request) {
	sales, err := s.svc.ListShiftDebtSales(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sales)
}

func (s *Server) handleCreateReceipt(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateReceiptRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	receipt, err := s.svc.CreateReceipt(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

func (s *Server) handleCreateDeposit(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateDepositRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	deposit, err := s.svc.CreateCashDeposit(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, deposit)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	expense, err := s.svc.CreateExpense(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, expense)
}

// ---------------------------------------------------------------------------
// Read views.
// ---------------------------------------------------------------------------

func (s *Server) handleCashBalance(w http.ResponseWriter, r *http.Request) {
	until, err := untilParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	bal, err := s.svc.CashBalance(r.Context(), chi.URLParam(r, "id"), until)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"store_id": chi.URLParam(r, "id"), "balance": bal})
}

func (s *Server) handleCashStatement(w http.ResponseWriter, r *http.Request) {
	until, err := untilParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	lines, err := s.svc.CashStatement(r.Context(), chi.URLParam(r, "id"), until)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lines)
}

func (s *Server) handleDebtBalance(w http.ResponseWriter, r *http.Request) {
	until, err := untilParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	bal, err := s.svc.DebtBalance(r.Context(), chi.URLParam(r, "id"), until)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customer_id": chi.URLParam(r, "id"), "balance": bal})
}

func (s *Server) handleDebtStatement(w http.ResponseWriter, r *http.Request) {
	until, err := untilParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	lines, err := s.svc.DebtStatement(r.Context(), chi.URLParam(r, "id"), until)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lines)
}

func (s *Server) handleCreditStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.svc.CreditStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleStockBalance(w http.ResponseWriter, r *http.Request) {
	until, err := untilParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	bal, err := s.svc.StockBalance(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "pid"), until)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"warehouse_id": chi.URLParam(r, "id"),
		"product_id":   chi.URLParam(r, "pid"),
		"balance":      bal,
	})
}

func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	logs, err := s.svc.ListAudit(r.Context(), r.URL.Query().Get("record_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
