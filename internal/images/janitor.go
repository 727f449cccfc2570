// Package images stores uploaded pictures in the blob store and removes the
// ones records no longer reference.
package images

import (
	"context"
	"log/slog"

	"github.com/quinisports/quinisports/internal/platform/blob"
	"github.com/quinisports/quinisports/internal/shared"
)

// CleanupQueue schedules retries of failed blob deletions.
type CleanupQueue interface {
	EnqueueBlobCleanup(ctx context.Context, url string) error
}

// Janitor deletes blobs that a record stopped referencing.
type Janitor struct {
	store  blob.Store
	queue  CleanupQueue
	logger *slog.Logger
}

// NewJanitor builds a Janitor. queue may be nil.
func NewJanitor(store blob.Store, queue CleanupQueue, logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{store: store, queue: queue, logger: logger}
}

// Remove deletes url from the blob store. A failure is logged, queued for a
// background retry and returned as a warning for the response envelope.
func (j *Janitor) Remove(ctx context.Context, url string) *shared.Warning {
	if j == nil || j.store == nil || url == "" {
		return nil
	}
	err := j.store.Delete(ctx, url)
	if err == nil {
		return nil
	}
	j.logger.Warn("delete previous image", slog.String("url", url), slog.Any("error", err))
	if j.queue != nil {
		if qerr := j.queue.EnqueueBlobCleanup(ctx, url); qerr != nil {
			j.logger.Error("enqueue blob cleanup", slog.String("url", url), slog.Any("error", qerr))
		}
	}
	return &shared.Warning{
		Code:    shared.WarningImageCleanup,
		Message: "La imagen anterior no se pudo eliminar, consulte con soporte",
	}
}

// Replace removes old when it differs from current and collects the
// warning, if any, into warnings.
func (j *Janitor) Replace(ctx context.Context, old, current string, warnings []shared.Warning) []shared.Warning {
	if old == "" || old == current {
		return warnings
	}
	if w := j.Remove(ctx, old); w != nil {
		warnings = append(warnings, *w)
	}
	return warnings
}
