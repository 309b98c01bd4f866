// Package service implements the business rules: shift lifecycle, the
// close orchestration that turns pump readings and drafts into ledger
// postings, the supersession-based reopen, and the read views.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/stationops/fuelledger/internal/domain"
	"github.com/stationops/fuelledger/internal/ledger"
	"github.com/stationops/fuelledger/internal/metrics"
	"github.com/stationops/fuelledger/internal/pricing"
	"github.com/stationops/fuelledger/internal/store"
	"github.com/stationops/fuelledger/internal/xid"
)

type Service struct {
	repo    store.Repository
	prices  *pricing.Resolver
	ledgers *ledger.Reader
	metrics *metrics.Metrics
	logger  *slog.Logger

	// now is swappable so tests control every timestamp.
	now func() time.Time
}

func New(repo store.Repository, prices *pricing.Resolver, ledgers *ledger.Reader, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		prices:  prices,
		ledgers: ledgers,
		metrics: m,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the service clock. Test helper.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type actorContextKey struct{}

// WithActor attaches the authenticated actor to the context.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the actor, or a zero actor if none was set.
func ActorFromContext(ctx context.Context) domain.Actor {
	actor, _ := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor
}

func (s *Service) auditRow(ctx context.Context, table, recordID, action string, oldData, newData any) domain.AuditLog {
	row := domain.AuditLog{
		ID:        xid.New("audit"),
		TableName: table,
		RecordID:  recordID,
		Action:    action,
		ChangedBy: ActorFromContext(ctx).Username,
		CreatedAt: s.now(),
	}
	if oldData != nil {
		row.OldData, _ = json.Marshal(oldData)
	}
	if newData != nil {
		row.NewData, _ = json.Marshal(newData)
	}
	return row
}

const dateLayout = "2006-01-02"

// CreateShift opens a new shift for a store. At most one shift per store
// may be OPEN, and (store, date, sequence) must be unique; both are
// enforced by the store as well so concurrent creates cannot race past the
// checks here.
func (s *Service) CreateShift(ctx context.Context, req domain.CreateShiftRequest) (domain.Shift, error) {
	if req.StoreID == "" || req.ShiftNo < 1 {
		return domain.Shift{}, fmt.Errorf("%w: store_id and shift_no >= 1 required", store.ErrInvalidInput)
	}
	shiftDate, err := time.ParseInLocation(dateLayout, req.ShiftDate, time.UTC)
	if err != nil {
		return domain.Shift{}, fmt.Errorf("%w: shift_date must be YYYY-MM-DD", store.ErrInvalidInput)
	}
	if _, err := s.repo.GetStore(ctx, req.StoreID); err != nil {
		return domain.Shift{}, err
	}

	openedAt := s.now()
	if req.OpenedAt != nil {
		openedAt = req.OpenedAt.UTC()
	}
	shift := domain.Shift{
		ID:           xid.New("shift"),
		StoreID:      req.StoreID,
		ShiftDate:    shiftDate,
		ShiftNo:      req.ShiftNo,
		OpenedAt:     openedAt,
		Status:       domain.ShiftOpen,
		HandoverName: req.HandoverName,
		ReceiverName: req.ReceiverName,
		CreatedAt:    s.now(),
	}
	audit := s.auditRow(ctx, "shifts", shift.ID, "CREATE", nil, shift)
	if err := s.repo.CreateShift(ctx, shift, audit); err != nil {
		return domain.Shift{}, err
	}
	s.logger.Info("shift opened",
		"shift_id", shift.ID, "store_id", shift.StoreID,
		"shift_date", shift.ShiftDate.Format(dateLayout), "shift_no", shift.ShiftNo)
	return shift, nil
}

func (s *Service) GetShift(ctx context.Context, id string) (domain.Shift, error) {
	return s.repo.GetShift(ctx, id)
}

func (s *Service) ListShifts(ctx context.Context, storeID string, limit int) ([]domain.Shift, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListShifts(ctx, storeID, limit)
}
