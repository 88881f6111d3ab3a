package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/mealgrid/mealgrid-rms/internal/jobs"
	"github.com/mealgrid/mealgrid-rms/internal/shared"
)

const defaultKeyRetention = 7 * 24 * time.Hour

// IdempotencyCleaner prunes idempotency keys past their retention window.
type IdempotencyCleaner struct {
	store   *shared.IdempotencyStore
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewIdempotencyCleaner constructs the cleaner.
func NewIdempotencyCleaner(store *shared.IdempotencyStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleaner {
	return &IdempotencyCleaner{store: store, logger: logger, metrics: metrics}
}

// Handle processes TaskIdempotencyCleanup tasks.
func (c *IdempotencyCleaner) Handle(ctx context.Context, t *asynq.Task) error {
	var payload IdempotencyCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	retention := defaultKeyRetention
	if payload.OlderThan != "" {
		parsed, err := time.ParseDuration(payload.OlderThan)
		if err != nil {
			return asynq.SkipRetry
		}
		retention = parsed
	}
	tracker := c.metrics.Track(TaskIdempotencyCleanup)
	err := c.store.Cleanup(ctx, retention)
	if err == nil {
		c.logger.Info("idempotency keys pruned", slog.Duration("older_than", retention))
	}
	return tracker.End(err)
}
