package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sensei-assign-api/internal/models"
	"github.com/noah-isme/sensei-assign-api/pkg/jobs"
)

// JobTypeBackupRequestNotification identifies outbound backup offer deliveries.
const JobTypeBackupRequestNotification = "backup_request_notification"

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// BackupRequestNotification is the webhook payload announcing a backup offer to a sensei.
type BackupRequestNotification struct {
	Event            string                   `json:"event"`
	RequestID        string                   `json:"request_id"`
	TripID           string                   `json:"trip_id"`
	TripTheme        string                   `json:"trip_theme"`
	Destination      string                   `json:"destination"`
	StartDate        time.Time                `json:"start_date"`
	EndDate          time.Time                `json:"end_date"`
	SenseiID         string                   `json:"sensei_id"`
	MatchScore       float64                  `json:"match_score"`
	RequestType      models.BackupRequestType `json:"request_type"`
	ResponseDeadline time.Time                `json:"response_deadline"`
}

// NotificationConfig configures webhook delivery.
type NotificationConfig struct {
	WebhookURL string
	Timeout    time.Duration
}

// NotificationService delivers backup offers to senseis through the job queue.
type NotificationService struct {
	queue   jobEnqueuer
	client  *http.Client
	url     string
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService constructs the service. Call AttachQueue before use to deliver asynchronously.
func NewNotificationService(cfg NotificationConfig, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &NotificationService{
		client:  &http.Client{Timeout: cfg.Timeout},
		url:     cfg.WebhookURL,
		metrics: metrics,
		logger:  logger,
	}
}

// AttachQueue sets the queue used for delivery. The queue's handler should be Handle.
func (s *NotificationService) AttachQueue(queue jobEnqueuer) {
	s.queue = queue
}

// NotifyBackupRequests enqueues one delivery per request. Enqueue failures are logged only.
func (s *NotificationService) NotifyBackupRequests(ctx context.Context, trip models.Trip, requests []*models.BackupRequest) {
	for _, req := range requests {
		payload := BackupRequestNotification{
			Event:            "backup_request.created",
			RequestID:        req.ID,
			TripID:           trip.ID,
			TripTheme:        trip.Theme,
			Destination:      trip.Destination,
			StartDate:        trip.StartDate,
			EndDate:          trip.EndDate,
			SenseiID:         req.SenseiID,
			MatchScore:       req.MatchScore,
			RequestType:      req.RequestType,
			ResponseDeadline: req.ResponseDeadline,
		}
		job := jobs.Job{ID: req.ID, Type: JobTypeBackupRequestNotification, Payload: payload}
		if s.queue == nil {
			if err := s.Handle(ctx, job); err != nil {
				s.logger.Warn("backup request notification failed", zap.String("request_id", req.ID), zap.Error(err))
			}
			continue
		}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("failed to enqueue backup request notification", zap.String("request_id", req.ID), zap.Error(err))
		}
	}
}

// Handle delivers a single notification job. It is the queue handler.
func (s *NotificationService) Handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(BackupRequestNotification)
	if !ok {
		return fmt.Errorf("unexpected payload %T for job %s", job.Payload, job.ID)
	}
	if s.url == "" {
		s.logger.Info("backup request notification (no webhook configured)",
			zap.String("request_id", payload.RequestID),
			zap.String("trip_id", payload.TripID),
			zap.String("sensei_id", payload.SenseiID),
			zap.Time("response_deadline", payload.ResponseDeadline))
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// OnExhausted records a delivery that ran out of retries.
func (s *NotificationService) OnExhausted(job jobs.Job, err error) {
	s.logger.Error("backup request notification dropped",
		zap.String("job_id", job.ID),
		zap.Int("attempts", job.Attempt),
		zap.Error(err))
	s.metrics.RecordNotificationFailure()
}
