package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sensei-assign-api/internal/dto"
	"github.com/noah-isme/sensei-assign-api/internal/models"
	appErrors "github.com/noah-isme/sensei-assign-api/pkg/errors"
)

type coordinatorMock struct {
	summary    *dto.BackupScanSummary
	scanErr    error
	requests   []models.BackupRequest
	created    *models.BackupRequest
	createErr  error
	responded  *models.BackupRequest
	respondErr error
	lastAnswer dto.RespondBackupRequest
}

func (m *coordinatorMock) RunBackupScan(ctx context.Context) (*dto.BackupScanSummary, error) {
	return m.summary, m.scanErr
}

func (m *coordinatorMock) ListByTrip(ctx context.Context, tripID string) ([]models.BackupRequest, error) {
	return m.requests, nil
}

func (m *coordinatorMock) CreateManualRequest(ctx context.Context, tripID string, req dto.ManualBackupRequest) (*models.BackupRequest, error) {
	return m.created, m.createErr
}

func (m *coordinatorMock) Respond(ctx context.Context, requestID string, req dto.RespondBackupRequest) (*models.BackupRequest, error) {
	m.lastAnswer = req
	return m.responded, m.respondErr
}

func TestBackupHandlerRunScan(t *testing.T) {
	mock := &coordinatorMock{summary: &dto.BackupScanSummary{Enabled: true, ProcessedTrips: 2, RequestsSent: 3}}
	c, w := newTestContext(http.MethodPost, "/backup-scan/run", nil)

	NewBackupHandler(mock).RunScan(c)
	require.Equal(t, http.StatusOK, w.Code)
	var summary dto.BackupScanSummary
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &summary))
	assert.Equal(t, 3, summary.RequestsSent)

	mock.scanErr = appErrors.Clone(appErrors.ErrConflict, "backup scan already running")
	c, w = newTestContext(http.MethodPost, "/backup-scan/run", nil)
	NewBackupHandler(mock).RunScan(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBackupHandlerListRequestsEmpty(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/trips/trip-1/backup-requests", nil)
	c.Params = gin.Params{{Key: "id", Value: "trip-1"}}

	NewBackupHandler(&coordinatorMock{}).ListRequests(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"requests":[]`)
}

func TestBackupHandlerCreateRequest(t *testing.T) {
	mock := &coordinatorMock{created: &models.BackupRequest{ID: "req-1", SenseiID: "s9", RequestType: models.BackupRequestManual}}
	c, w := newTestContext(http.MethodPost, "/trips/trip-1/backup-requests", dto.ManualBackupRequest{SenseiID: "s9"})
	c.Params = gin.Params{{Key: "id", Value: "trip-1"}}

	NewBackupHandler(mock).CreateRequest(c)
	assert.Equal(t, http.StatusCreated, w.Code)

	mock.createErr = appErrors.Clone(appErrors.ErrConflict, "sensei already has a pending request for this trip")
	c, w = newTestContext(http.MethodPost, "/trips/trip-1/backup-requests", dto.ManualBackupRequest{SenseiID: "s9"})
	NewBackupHandler(mock).CreateRequest(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBackupHandlerRespond(t *testing.T) {
	mock := &coordinatorMock{responded: &models.BackupRequest{ID: "req-1", Status: models.BackupRequestAccepted}}
	c, w := newTestContext(http.MethodPost, "/backup-requests/req-1/respond", dto.RespondBackupRequest{Action: dto.BackupResponseAccept})
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}

	NewBackupHandler(mock).Respond(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.BackupResponseAccept, mock.lastAnswer.Action)

	mock.respondErr = appErrors.Clone(appErrors.ErrAlreadyAssigned, "trip backup slot already filled")
	c, w = newTestContext(http.MethodPost, "/backup-requests/req-1/respond", dto.RespondBackupRequest{Action: dto.BackupResponseAccept})
	NewBackupHandler(mock).Respond(c)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ALREADY_ASSIGNED", decodeEnvelope(t, w).Error.Code)

	c, w = newTestContext(http.MethodPost, "/backup-requests/req-1/respond", "{")
	NewBackupHandler(mock).Respond(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
