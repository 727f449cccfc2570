package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/quinisports/quinisports/internal/jobs"
	"github.com/quinisports/quinisports/internal/platform/db"
)

// DefaultAuditRetentionDays applies when the payload carries no retention.
const DefaultAuditRetentionDays = 365

// AuditPruneJob removes audit records past their retention window.
type AuditPruneJob struct {
	DB      db.Querier
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewAuditPruneJob initialises the prune handler.
func NewAuditPruneJob(q db.Querier, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuditPruneJob {
	return &AuditPruneJob{
		DB:      q,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the prune.
func (j *AuditPruneJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.DB == nil {
		return errors.New("audit prune: handler not configured")
	}
	var payload AuditPrunePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.RetentionDays <= 0 {
		payload.RetentionDays = DefaultAuditRetentionDays
	}

	tracker := j.Metrics.Track(TaskAuditPrune)
	defer func() {
		err = tracker.End(err)
	}()

	cutoff := j.now().AddDate(0, 0, -payload.RetentionDays)
	removed, err := db.ExecBuilt(ctx, j.DB, pruneStatement(cutoff))
	if err != nil {
		j.logger().Error("audit prune failed", slog.Any("error", err))
		return err
	}
	j.Metrics.AddRemoved("audit_log", removed)
	j.logger().Info("audit prune finished", slog.Int64("removed", removed), slog.Time("cutoff", cutoff))
	return nil
}

func pruneStatement(cutoff time.Time) sq.DeleteBuilder {
	return db.PSQL.Delete("audit_logs").Where(sq.Lt{"occurred_at": cutoff})
}

func (j *AuditPruneJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *AuditPruneJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
