package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sensei-assign-api/internal/dto"
	"github.com/noah-isme/sensei-assign-api/internal/models"
	appErrors "github.com/noah-isme/sensei-assign-api/pkg/errors"
)

type alertStore interface {
	Create(ctx context.Context, alert *models.AdminAlert) error
	List(ctx context.Context, filter models.AlertFilter) ([]models.AdminAlert, int, error)
	FindByID(ctx context.Context, id string) (*models.AdminAlert, error)
	Resolve(ctx context.Context, id, resolvedBy string, at time.Time) (bool, error)
	ExistsSince(ctx context.Context, tripID string, alertType models.AlertType, since time.Time) (bool, error)
}

// AlertService records and manages admin escalation alerts.
type AlertService struct {
	store     alertStore
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAlertService constructs the alert service.
func NewAlertService(store alertStore, validate *validator.Validate, logger *zap.Logger) *AlertService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertService{store: store, validator: validate, logger: logger, now: time.Now}
}

// Raise persists a new alert.
func (s *AlertService) Raise(ctx context.Context, alert *models.AdminAlert) error {
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = s.now().UTC()
	}
	if err := s.store.Create(ctx, alert); err != nil {
		s.logger.Error("failed to raise admin alert",
			zap.String("alert_type", string(alert.AlertType)),
			zap.Stringp("trip_id", alert.TripID),
			zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create alert")
	}
	s.logger.Info("admin alert raised",
		zap.String("alert_id", alert.ID),
		zap.String("alert_type", string(alert.AlertType)),
		zap.String("priority", string(alert.Priority)),
		zap.Stringp("trip_id", alert.TripID))
	return nil
}

// RaiseOnce persists the alert unless one of the same type was raised for the trip
// within window. It reports whether a new alert was created.
func (s *AlertService) RaiseOnce(ctx context.Context, alert *models.AdminAlert, window time.Duration) (bool, error) {
	if alert.TripID != nil && window > 0 {
		exists, err := s.store.ExistsSince(ctx, *alert.TripID, alert.AlertType, s.now().UTC().Add(-window))
		if err != nil {
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check recent alerts")
		}
		if exists {
			return false, nil
		}
	}
	if err := s.Raise(ctx, alert); err != nil {
		return false, err
	}
	return true, nil
}

// List returns alerts matching the query.
func (s *AlertService) List(ctx context.Context, query dto.AlertQuery) ([]models.AdminAlert, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Validation(err, "invalid alert filter")
	}
	filter := models.AlertFilter{
		Resolved: query.Resolved,
		TripID:   query.TripID,
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if query.AlertType != "" {
		alertType := models.AlertType(query.AlertType)
		filter.AlertType = &alertType
	}
	if query.Priority != "" {
		priority := models.AlertPriority(query.Priority)
		filter.Priority = &priority
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}

	alerts, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list alerts")
	}
	return alerts, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Resolve marks an alert handled by the acting user.
func (s *AlertService) Resolve(ctx context.Context, id string, actor *models.JWTClaims) (*models.AdminAlert, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	alert, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "alert not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load alert")
	}
	if alert.IsResolved {
		return alert, nil
	}

	at := s.now().UTC()
	if _, err := s.store.Resolve(ctx, id, actor.UserID, at); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve alert")
	}
	alert.IsResolved = true
	alert.ResolvedAt = &at
	resolvedBy := actor.UserID
	alert.ResolvedBy = &resolvedBy
	return alert, nil
}
