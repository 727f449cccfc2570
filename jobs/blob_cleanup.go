package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/quinisports/quinisports/internal/jobs"
	"github.com/quinisports/quinisports/internal/platform/blob"
)

// BlobCleanupJob deletes blobs left behind by image replacements.
type BlobCleanupJob struct {
	Store   blob.Store
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewBlobCleanupJob initialises the cleanup handler.
func NewBlobCleanupJob(store blob.Store, logger *slog.Logger, metrics *jobmetrics.Metrics) *BlobCleanupJob {
	return &BlobCleanupJob{Store: store, Logger: logger, Metrics: metrics}
}

// Handle executes one cleanup attempt. Asynq retries returned errors.
func (j *BlobCleanupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Store == nil {
		return errors.New("blob cleanup: handler not configured")
	}
	var payload BlobCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.URL == "" {
		return fmt.Errorf("blob cleanup: bad payload: %w", asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskBlobCleanup)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger().With(slog.String("url", payload.URL))
	if err := j.Store.Delete(ctx, payload.URL); err != nil {
		if errors.Is(err, blob.ErrNotConfigured) {
			logger.Warn("blob store not configured, dropping cleanup")
			return fmt.Errorf("blob cleanup: %w", asynq.SkipRetry)
		}
		logger.Warn("blob cleanup failed", slog.Any("error", err))
		return err
	}
	j.Metrics.AddRemoved("blob", 1)
	logger.Info("blob removed")
	return nil
}

func (j *BlobCleanupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
