package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type stubEnqueuer struct {
	info  *asynq.TaskInfo
	err   error
	calls int
}

func (s *stubEnqueuer) EnqueueLowStockScan(ctx context.Context) (*asynq.TaskInfo, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.info, nil
}

func newJobsRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/jobs", func(r chi.Router) {
		h.MountRoutes(r)
	})
	return r
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTriggerLowStockScanEnqueues(t *testing.T) {
	enqueuer := &stubEnqueuer{info: &asynq.TaskInfo{ID: "task-123", Queue: QueueDefault}}
	router := newJobsRouter(NewHandler(nil, enqueuer, testLogger()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/low-stock-scan", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, 1, enqueuer.calls)
	body := rec.Body.String()
	require.Contains(t, body, `"task_id":"task-123"`)
	require.Contains(t, body, `"queue":"default"`)
}

func TestTriggerLowStockScanQueueDown(t *testing.T) {
	enqueuer := &stubEnqueuer{err: errors.New("redis gone")}
	router := newJobsRouter(NewHandler(nil, enqueuer, testLogger()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/low-stock-scan", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, 1, enqueuer.calls)
}

func TestTriggerLowStockScanWithoutEnqueuer(t *testing.T) {
	router := newJobsRouter(NewHandler(nil, nil, testLogger()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/low-stock-scan", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthWithoutInspector(t *testing.T) {
	router := newJobsRouter(NewHandler(nil, nil, testLogger()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), `"pending":0`))
}
