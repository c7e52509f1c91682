package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/billdesk/internal/jobs"
)

// CatalogInvalidator drops cached catalog reads of a tenant.
type CatalogInvalidator interface {
	Invalidate(ctx context.Context, tenant string) error
}

// CatalogInvalidateJob handles TaskCatalogInvalidate.
type CatalogInvalidateJob struct {
	Catalog CatalogInvalidator
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewCatalogInvalidateJob wires dependencies for the invalidation handler.
func NewCatalogInvalidateJob(catalog CatalogInvalidator, logger *slog.Logger, metrics *jobmetrics.Metrics) *CatalogInvalidateJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogInvalidateJob{Catalog: catalog, Logger: logger, Metrics: metrics}
}

// Handle processes catalog invalidation tasks.
func (j *CatalogInvalidateJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Catalog == nil {
		return errors.New("catalog invalidate: handler not configured")
	}
	var payload CatalogInvalidatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.Tenant == "" {
		return fmt.Errorf("catalog invalidate: bad payload: %w", asynq.SkipRetry)
	}

	return j.Metrics.Run(TaskCatalogInvalidate, func() (int64, error) {
		if err := j.Catalog.Invalidate(ctx, payload.Tenant); err != nil {
			j.Logger.Error("catalog invalidate", slog.String("tenant", payload.Tenant), slog.Any("error", err))
			return 0, err
		}
		return 1, nil
	})
}
