package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-erp/billdesk/internal/jobs"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeInvalidator struct {
	tenants []string
	err     error
}

func (f *fakeInvalidator) Invalidate(_ context.Context, tenant string) error {
	f.tenants = append(f.tenants, tenant)
	return f.err
}

type fakeCleaner struct {
	retention time.Duration
	removed   int64
}

func (f *fakeCleaner) Cleanup(_ context.Context, olderThan time.Duration) (int64, error) {
	f.retention = olderThan
	return f.removed, nil
}

func TestCatalogInvalidateJob(t *testing.T) {
	inv := &fakeInvalidator{}
	job := NewCatalogInvalidateJob(inv, quietLogger, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewCatalogInvalidateTask(" shop-1 ")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, []string{"shop-1"}, inv.tenants)

	inv.err = errors.New("redis down")
	assert.Error(t, job.Handle(context.Background(), task))

	bad := asynq.NewTask(TaskCatalogInvalidate, []byte(`{}`))
	assert.ErrorIs(t, job.Handle(context.Background(), bad), asynq.SkipRetry)

	_, err = NewCatalogInvalidateTask("")
	assert.Error(t, err)
}

func TestIdempotencyCleanupJob(t *testing.T) {
	cleaner := &fakeCleaner{removed: 4}
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	job := NewIdempotencyCleanupJob(cleaner, 48*time.Hour, quietLogger, metrics)

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, nil)))
	assert.Equal(t, 48*time.Hour, cleaner.retention)

	task, err := NewIdempotencyCleanupTask(time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, time.Hour, cleaner.retention)

	families, err := registry.Gather()
	require.NoError(t, err)
	var removed float64
	for _, mf := range families {
		if mf.GetName() == "billdesk_job_items_total" {
			removed = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(8), removed)
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return s.info, s.err }

func TestHealthHandler(t *testing.T) {
	cases := []struct {
		name      string
		inspector QueueInspector
		status    int
		pending   int
	}{
		{"no inspector", nil, http.StatusOK, 0},
		{"queue info", stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3}}, http.StatusOK, 3},
		{"redis down", stubInspector{err: errors.New("dial")}, http.StatusServiceUnavailable, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			NewHandler(tc.inspector, quietLogger).MountRoutes(r)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			require.Equal(t, tc.status, rec.Code)
			if tc.status != http.StatusOK {
				return
			}
			var body queueHealth
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, QueueDefault, body.Queue)
			assert.Equal(t, tc.pending, body.Pending)
		})
	}
}
