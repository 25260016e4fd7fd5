package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogtools/importer/internal/importer/domain"
)

// fakeJobStore serves a scripted sequence of job snapshots. Once the script
// is exhausted it returns getErr when set, otherwise the last snapshot.
type fakeJobStore struct {
	mu        sync.Mutex
	snapshots []*domain.ImportJob
	getErr    error
	calls     int
}

func (f *fakeJobStore) CreateJob(ctx context.Context, job *domain.ImportJob) error {
	return nil
}

func (f *fakeJobStore) GetJob(ctx context.Context, jobID string) (*domain.ImportJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.calls >= len(f.snapshots) {
		if f.getErr != nil {
			return nil, f.getErr
		}
		return f.snapshots[len(f.snapshots)-1], nil
	}

	job := f.snapshots[f.calls]
	f.calls++
	return job, nil
}

func (f *fakeJobStore) MarkFailed(ctx context.Context, jobID, errorMessage string) error {
	return nil
}

// sseRecorder adds the close notification channel gin's stream writer
// expects from the underlying ResponseWriter.
type sseRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func newSSERecorder() *sseRecorder {
	return &sseRecorder{
		ResponseRecorder: httptest.NewRecorder(),
		closed:           make(chan bool, 1),
	}
}

func (r *sseRecorder) CloseNotify() <-chan bool {
	return r.closed
}

func newJobTestRouter(jobs *fakeJobStore) *gin.Engine {
	gin.SetMode(gin.TestMode)

	h := NewImportHandler(&Dependencies{
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		Jobs:            jobs,
		SSEPollInterval: 5 * time.Millisecond,
	})

	r := gin.New()
	r.GET("/api/v1/import-jobs/:job_id", h.GetImportJob)
	r.GET("/api/v1/import-jobs/:job_id/events", h.StreamImportJob)
	return r
}

func sseEvents(body string) []string {
	var events []string
	for _, chunk := range strings.Split(body, "\n\n") {
		chunk = strings.TrimSpace(chunk)
		if chunk != "" {
			events = append(events, strings.TrimPrefix(chunk, "data: "))
		}
	}
	return events
}

func TestStreamImportJob_TerminatesOnCompletion(t *testing.T) {
	jobID := uuid.New().String()
	store := &fakeJobStore{snapshots: []*domain.ImportJob{
		{JobID: jobID, Status: domain.JobStatusImporting, TotalRows: 4, ProcessedRows: 2},
		{JobID: jobID, Status: domain.JobStatusCompleted, TotalRows: 4, ProcessedRows: 4, SuccessfulRows: 4},
	}}
	r := newJobTestRouter(store)

	w := newSSERecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/import-jobs/"+jobID+"/events", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	events := sseEvents(w.Body.String())
	require.Len(t, events, 2)
	assert.Contains(t, events[0], `"status":"importing"`)
	assert.Contains(t, events[1], `"status":"completed"`)
	assert.Contains(t, events[1], `"is_complete":true`)

	// The terminal snapshot ends the stream; no further polls happen.
	assert.Equal(t, 2, store.calls)
}

func TestStreamImportJob_JobVanished(t *testing.T) {
	jobID := uuid.New().String()
	store := &fakeJobStore{
		snapshots: []*domain.ImportJob{
			{JobID: jobID, Status: domain.JobStatusImporting, TotalRows: 10, ProcessedRows: 1},
		},
		getErr: domain.ErrJobNotFound,
	}
	r := newJobTestRouter(store)

	w := newSSERecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/import-jobs/"+jobID+"/events", nil)
	r.ServeHTTP(w, req)

	events := sseEvents(w.Body.String())
	require.Len(t, events, 2)
	assert.Contains(t, events[0], `"status":"importing"`)
	assert.Contains(t, events[1], `"error":"Import job not found"`)
}

func TestGetImportJob_AcceptNegotiation(t *testing.T) {
	jobID := uuid.New().String()

	t.Run("event stream accept header switches to SSE", func(t *testing.T) {
		store := &fakeJobStore{snapshots: []*domain.ImportJob{
			{JobID: jobID, Status: domain.JobStatusCompleted},
		}}
		r := newJobTestRouter(store)

		w := newSSERecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/import-jobs/"+jobID, nil)
		req.Header.Set("Accept", "text/event-stream, */*")
		r.ServeHTTP(w, req)

		assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
		require.Len(t, sseEvents(w.Body.String()), 1)
	})

	t.Run("plain accept header returns snapshot", func(t *testing.T) {
		store := &fakeJobStore{snapshots: []*domain.ImportJob{
			{JobID: jobID, Status: domain.JobStatusCompleted},
		}}
		r := newJobTestRouter(store)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/import-jobs/"+jobID, nil)
		req.Header.Set("Accept", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"completed"`)
	})
}

func TestGetImportJob_InvalidID(t *testing.T) {
	r := newJobTestRouter(&fakeJobStore{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/import-jobs/not-a-uuid", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
