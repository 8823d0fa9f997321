package bootstrap

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sensei-assign-api/internal/repository"
	"github.com/noah-isme/sensei-assign-api/internal/service"
	"github.com/noah-isme/sensei-assign-api/pkg/cache"
	"github.com/noah-isme/sensei-assign-api/pkg/config"
	"github.com/noah-isme/sensei-assign-api/pkg/database"
	"github.com/noah-isme/sensei-assign-api/pkg/jobs"
)

// Services holds the wired application graph shared by the API server and the
// one-shot scan command.
type Services struct {
	DB    *sqlx.DB
	Redis *redis.Client

	Metrics      *service.MetricsService
	Auth         *service.AuthService
	Ranking      *service.RankingService
	Assignment   *service.AssignmentService
	Coordinator  *service.BackupCoordinatorService
	Alerts       *service.AlertService
	Settings     *service.AutomationSettingsService
	Export       *service.ExportService
	Notification *service.NotificationService
	Queue        *jobs.Queue
}

// New connects to Postgres and Redis and builds every service. Redis is optional:
// without it the match cache is off and assignment relies on the conditional write.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Services, error) {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, continuing without cache and leases", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	trips := repository.NewTripRepository(db)
	senseis := repository.NewSenseiRepository(db)
	availability := repository.NewAvailabilityRepository(db)
	requests := repository.NewBackupRequestRepository(db)
	alertRepo := repository.NewAdminAlertRepository(db)
	settingsRepo := repository.NewAutomationSettingsRepository(db)
	scoringRepo, err := repository.NewScoringRepository(db, cfg.Scoring.Function)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	leases := repository.NewLeaseRepository(redisClient)

	cacheSvc := service.NewCacheService(
		repository.NewCacheRepository(redisClient, logger),
		metrics,
		cfg.Scoring.CacheTTL,
		logger,
		cfg.Scoring.CacheEnabled && redisClient != nil,
	)
	scoring := service.NewScoringService(scoringRepo, cacheSvc, metrics, logger, service.ScoringConfig{
		Timeout:  cfg.Scoring.Timeout,
		CacheTTL: cfg.Scoring.CacheTTL,
	})
	conflicts := service.NewConflictService(availability, trips, logger)
	ranking := service.NewRankingService(senseis, trips, scoring, conflicts, logger, service.RankingConfig{
		MaxCandidates:      cfg.Assignment.MaxCandidates,
		Concurrency:        cfg.Assignment.ScoringConcurrency,
		SpecialtyPrefilter: cfg.Assignment.SpecialtyPrefilter,
	})
	alerts := service.NewAlertService(alertRepo, validate, logger)
	settings := service.NewAutomationSettingsService(settingsRepo, validate, logger)

	notification := service.NewNotificationService(service.NotificationConfig{
		WebhookURL: cfg.Notifications.WebhookURL,
		Timeout:    cfg.Notifications.Timeout,
	}, metrics, logger)
	queue := jobs.NewQueue("backup-notifications", notification.Handle, jobs.QueueConfig{
		Workers:       cfg.Notifications.Workers,
		MaxRetries:    cfg.Notifications.Retries,
		RetryDelay:    cfg.Notifications.RetryDelay,
		MaxRetryDelay: cfg.Notifications.MaxRetryDelay,
		Logger:        logger,
		OnExhausted:   notification.OnExhausted,
	})
	notification.AttachQueue(queue)

	assignment := service.NewAssignmentService(trips, ranking, leases, alerts, scoring, metrics, validate, logger, service.AssignmentConfig{
		LeaseTTL: cfg.Assignment.LeaseTTL,
	})
	coordinator := service.NewBackupCoordinatorService(trips, requests, senseis, ranking, scoring, settings, alerts, notification, db, metrics, validate, logger,
		service.BackupCoordinatorConfig{
			Interval:              cfg.BackupScan.Interval,
			DeadlineWarningWindow: cfg.BackupScan.DeadlineWarningWindow,
			WarningDedupeWindow:   cfg.BackupScan.WarningDedupeWindow,
		})

	return &Services{
		DB:           db,
		Redis:        redisClient,
		Metrics:      metrics,
		Auth:         service.NewAuthService(logger, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer}),
		Ranking:      ranking,
		Assignment:   assignment,
		Coordinator:  coordinator,
		Alerts:       alerts,
		Settings:     settings,
		Export:       service.NewExportService(trips, ranking, logger, nil, nil),
		Notification: notification,
		Queue:        queue,
	}, nil
}

// Close stops the notification workers, then releases connections.
func (s *Services) Close() {
	if s.Queue != nil {
		s.Queue.Stop()
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if s.DB != nil {
		_ = s.DB.Close()
	}
}
