package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sensei-assign-api/internal/dto"
	"github.com/noah-isme/sensei-assign-api/internal/models"
	appErrors "github.com/noah-isme/sensei-assign-api/pkg/errors"
)

type settingsRepoStub struct {
	stored  *models.AutomationSettings
	getErr  error
	saveErr error
}

func (s *settingsRepoStub) Get(ctx context.Context) (*models.AutomationSettings, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if s.stored == nil {
		return nil, sql.ErrNoRows
	}
	clone := *s.stored
	return &clone, nil
}

func (s *settingsRepoStub) Upsert(ctx context.Context, settings *models.AutomationSettings) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	clone := *settings
	s.stored = &clone
	return nil
}

func boolPtr(v bool) *bool { return &v }

func floatPtr(v float64) *float64 { return &v }

func TestAutomationSettingsGetDefaultsWhenMissing(t *testing.T) {
	svc := NewAutomationSettingsService(&settingsRepoStub{}, nil, nil)

	settings, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DefaultAutomationSettings(), settings)
}

func TestAutomationSettingsGetFillsZeroFields(t *testing.T) {
	repo := &settingsRepoStub{stored: &models.AutomationSettings{Enabled: true, MaxRequestsPerTrip: 5}}
	svc := NewAutomationSettingsService(repo, nil, nil)

	settings, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, settings.MaxRequestsPerTrip)
	assert.Equal(t, models.DefaultResponseTimeoutHours, settings.ResponseTimeoutHours)
	assert.Equal(t, models.DefaultEscalateAfterRetries, settings.EscalateAfterRetries)
}

func TestAutomationSettingsGetError(t *testing.T) {
	svc := NewAutomationSettingsService(&settingsRepoStub{getErr: errBoom}, nil, nil)

	_, err := svc.Get(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestAutomationSettingsUpdate(t *testing.T) {
	repo := &settingsRepoStub{}
	svc := NewAutomationSettingsService(repo, nil, nil)
	actor := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	req := dto.UpdateAutomationSettingsRequest{
		Enabled:              boolPtr(false),
		MaxRequestsPerTrip:   4,
		ResponseTimeoutHours: 48,
		MinMatchScore:        floatPtr(0),
		RetryAfterHours:      12,
		EscalateAfterRetries: 3,
	}

	saved, err := svc.Update(context.Background(), req, actor)
	require.NoError(t, err)
	assert.False(t, saved.Enabled)
	assert.Equal(t, "admin-1", *saved.UpdatedBy)

	loaded, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, loaded.Enabled)
	assert.Equal(t, 48, loaded.ResponseTimeoutHours)
	assert.Zero(t, loaded.MinMatchScore)
}

func TestAutomationSettingsUpdateValidation(t *testing.T) {
	svc := NewAutomationSettingsService(&settingsRepoStub{}, nil, nil)
	actor := &models.JWTClaims{UserID: "admin-1"}

	_, err := svc.Update(context.Background(), dto.UpdateAutomationSettingsRequest{
		Enabled:              boolPtr(true),
		MaxRequestsPerTrip:   0,
		ResponseTimeoutHours: 72,
		MinMatchScore:        floatPtr(150),
		RetryAfterHours:      24,
		EscalateAfterRetries: 2,
	}, actor)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
