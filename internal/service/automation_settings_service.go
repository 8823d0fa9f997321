package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sensei-assign-api/internal/dto"
	"github.com/noah-isme/sensei-assign-api/internal/models"
	appErrors "github.com/noah-isme/sensei-assign-api/pkg/errors"
)

type automationSettingsRepository interface {
	Get(ctx context.Context) (*models.AutomationSettings, error)
	Upsert(ctx context.Context, settings *models.AutomationSettings) error
}

// AutomationSettingsService reads and edits the backup coordinator settings.
// Settings are never cached so every scan sees the latest admin edit.
type AutomationSettingsService struct {
	repo      automationSettingsRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAutomationSettingsService constructs the service.
func NewAutomationSettingsService(repo automationSettingsRepository, validate *validator.Validate, logger *zap.Logger) *AutomationSettingsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutomationSettingsService{repo: repo, validator: validate, logger: logger}
}

// Get returns the stored settings with defaults applied, or the defaults when no row exists.
func (s *AutomationSettingsService) Get(ctx context.Context) (models.AutomationSettings, error) {
	stored, err := s.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DefaultAutomationSettings(), nil
		}
		return models.AutomationSettings{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load automation settings")
	}
	return stored.WithDefaults(), nil
}

// Update validates and replaces the settings.
func (s *AutomationSettingsService) Update(ctx context.Context, req dto.UpdateAutomationSettingsRequest, actor *models.JWTClaims) (models.AutomationSettings, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.AutomationSettings{}, appErrors.Validation(err, "invalid automation settings")
	}
	if actor == nil {
		return models.AutomationSettings{}, appErrors.ErrUnauthorized
	}

	updatedBy := actor.UserID
	settings := models.AutomationSettings{
		Enabled:              *req.Enabled,
		MaxRequestsPerTrip:   req.MaxRequestsPerTrip,
		ResponseTimeoutHours: req.ResponseTimeoutHours,
		MinMatchScore:        *req.MinMatchScore,
		RetryAfterHours:      req.RetryAfterHours,
		EscalateAfterRetries: req.EscalateAfterRetries,
		UpdatedBy:            &updatedBy,
	}
	if err := s.repo.Upsert(ctx, &settings); err != nil {
		return models.AutomationSettings{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save automation settings")
	}
	s.logger.Info("automation settings updated",
		zap.String("user_id", actor.UserID),
		zap.Bool("enabled", settings.Enabled),
		zap.Int("max_requests_per_trip", settings.MaxRequestsPerTrip))
	return settings, nil
}
