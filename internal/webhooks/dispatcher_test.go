package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-import-service/internal/models"
)

type staticSource struct {
	hooks []models.Webhook
	err   error
}

func (s *staticSource) ActiveWebhooksForEvent(string) ([]models.Webhook, error) {
	return s.hooks, s.err
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

type capturedDelivery struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

func TestDispatchDeliversToAllSubscribers(t *testing.T) {
	var mu sync.Mutex
	var received []capturedDelivery

	handler := func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var d capturedDelivery
		require.NoError(t, json.Unmarshal(body, &d))
		mu.Lock()
		received = append(received, d)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}
	first := httptest.NewServer(http.HandlerFunc(handler))
	defer first.Close()
	second := httptest.NewServer(http.HandlerFunc(handler))
	defer second.Close()

	source := &staticSource{hooks: []models.Webhook{
		{ID: uuid.New(), URL: first.URL, EventType: models.EventProductBulkImport, IsActive: true},
		{ID: uuid.New(), URL: second.URL, EventType: models.EventProductBulkImport, IsActive: true},
	}}
	d := NewDispatcher(source, time.Second, quietLogger())

	d.dispatch(models.EventProductBulkImport, map[string]interface{}{"jobId": "job-1"})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 2)
	for _, got := range received {
		assert.Equal(t, models.EventProductBulkImport, got.Event)
		assert.Equal(t, "job-1", got.Data["jobId"])
	}
}

func TestDispatchIsolatesFailingSubscriber(t *testing.T) {
	var mu sync.Mutex
	delivered := 0
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		delivered++
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close() // connection refused from here on

	source := &staticSource{hooks: []models.Webhook{
		{ID: uuid.New(), URL: dead.URL, EventType: models.EventProductBulkImport, IsActive: true},
		{ID: uuid.New(), URL: healthy.URL, EventType: models.EventProductBulkImport, IsActive: true},
	}}
	d := NewDispatcher(source, time.Second, quietLogger())

	// Must not panic or stop at the dead endpoint.
	d.dispatch(models.EventProductBulkImport, map[string]interface{}{"jobId": "job-2"})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, delivered)
}

func TestDispatchNoSubscribersIsNoop(t *testing.T) {
	d := NewDispatcher(&staticSource{}, time.Second, quietLogger())
	d.dispatch(models.EventProductBulkImport, nil)
}

func TestTestReportsResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDispatcher(&staticSource{}, time.Second, quietLogger())
	hook := &models.Webhook{ID: uuid.New(), URL: srv.URL, EventType: models.EventWebhookTest}

	result, err := d.Test(context.Background(), hook)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, result.StatusCode)
	assert.True(t, result.Success)
	assert.GreaterOrEqual(t, result.ResponseTimeMs, int64(0))
}

func TestTestReportsFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDispatcher(&staticSource{}, time.Second, quietLogger())
	hook := &models.Webhook{ID: uuid.New(), URL: srv.URL, EventType: models.EventWebhookTest}

	result, err := d.Test(context.Background(), hook)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, http.StatusInternalServerError, result.StatusCode)
}

func TestTestUnreachableEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	d := NewDispatcher(&staticSource{}, time.Second, quietLogger())
	hook := &models.Webhook{ID: uuid.New(), URL: srv.URL, EventType: models.EventWebhookTest}

	_, err := d.Test(context.Background(), hook)
	assert.Error(t, err)
}
