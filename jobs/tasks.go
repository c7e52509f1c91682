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
	// TaskCatalogInvalidate drops a tenant's cached catalog reads.
	TaskCatalogInvalidate = "catalog:invalidate"
	// TaskIdempotencyCleanup prunes old idempotency ledger rows.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// CatalogInvalidatePayload names the tenant whose catalog changed.
type CatalogInvalidatePayload struct {
	Tenant string `json:"tenant"`
}

// NewCatalogInvalidateTask constructs a catalog invalidation task.
func NewCatalogInvalidateTask(tenant string) (*asynq.Task, error) {
	tenant = strings.TrimSpace(tenant)
	if tenant == "" {
		return nil, errors.New("jobs: tenant required")
	}
	body, err := json.Marshal(CatalogInvalidatePayload{Tenant: tenant})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCatalogInvalidate, body, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// IdempotencyCleanupPayload carries the retention window.
type IdempotencyCleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewIdempotencyCleanupTask constructs a ledger cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(IdempotencyCleanupPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}
