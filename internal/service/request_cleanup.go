package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const DefaultCleanupSchedule = "0 0 0 * * *"

type expiredRequestRepo interface {
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RequestCleanupService sweeps processed requests older than the retention out of the ledger.
type RequestCleanupService struct {
	logger      *slog.Logger
	requestRepo expiredRequestRepo
	retention   time.Duration
	now         func() time.Time
}

func NewRequestCleanupService(logger *slog.Logger, requestRepo expiredRequestRepo, retention time.Duration) *RequestCleanupService {
	return &RequestCleanupService{
		logger:      logger.With("component", "RequestCleanupService"),
		requestRepo: requestRepo,
		retention:   retention,
		now:         time.Now,
	}
}

func (that *RequestCleanupService) CleanupOldProcessedRequests(ctx context.Context) (int64, error) {
	log := that.logger.With("method", "CleanupOldProcessedRequests")

	cutoff := that.now().UTC().Add(-that.retention)

	deleted, err := that.requestRepo.DeleteCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old processed requests: %w", err)
	}

	log.Info("old processed requests removed", "deleted", deleted, "cutoff", cutoff)

	return deleted, nil
}

// Schedule - runs the sweep on spec (cron with a seconds field) until ctx is done.
func (that *RequestCleanupService) Schedule(ctx context.Context, spec string) error {
	scheduler := cron.New(cron.WithSeconds())

	_, err := scheduler.AddFunc(spec, func() {
		if _, err := that.CleanupOldProcessedRequests(ctx); err != nil {
			that.logger.Error("scheduled cleanup failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", spec, err)
	}

	scheduler.Start()

	go func() {
		<-ctx.Done()
		<-scheduler.Stop().Done()
	}()

	return nil
}
