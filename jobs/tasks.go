package jobs

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBlobCleanup removes a blob whose inline deletion failed.
	TaskBlobCleanup = "blob:cleanup"
	// TaskAuditPrune deletes audit records older than the retention window.
	TaskAuditPrune = "audit:prune"
)

// BlobCleanupPayload names the blob to remove.
type BlobCleanupPayload struct {
	URL string `json:"url"`
}

// NewBlobCleanupTask constructs an Asynq task for TaskBlobCleanup.
func NewBlobCleanupTask(url string) (*asynq.Task, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("blob cleanup: url required")
	}
	data, err := json.Marshal(BlobCleanupPayload{URL: url})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBlobCleanup, data, asynq.MaxRetry(10), asynq.Timeout(time.Minute)), nil
}

// AuditPrunePayload configures one prune run.
type AuditPrunePayload struct {
	RetentionDays int `json:"retention_days"`
}

// NewAuditPruneTask constructs an Asynq task for TaskAuditPrune.
func NewAuditPruneTask(retentionDays int) (*asynq.Task, error) {
	data, err := json.Marshal(AuditPrunePayload{RetentionDays: retentionDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditPrune, data), nil
}
