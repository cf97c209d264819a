package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"catalog-import-service/internal/models"
)

// SubscriptionSource lists the active webhook subscriptions for an event type.
type SubscriptionSource interface {
	ActiveWebhooksForEvent(eventType string) ([]models.Webhook, error)
}

// Dispatcher delivers event payloads to registered webhook endpoints.
// Deliveries are best-effort: a dead or slow endpoint is logged and skipped,
// and never affects the job that triggered the event or the other endpoints.
type Dispatcher struct {
	source SubscriptionSource
	client *http.Client
	logger *logrus.Entry
}

func NewDispatcher(source SubscriptionSource, timeout time.Duration, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		source: source,
		client: &http.Client{Timeout: timeout},
		logger: logger.WithField("component", "webhook-dispatcher"),
	}
}

// Dispatch notifies every active subscriber of eventType in the background.
// It returns immediately; the caller gets no delivery feedback.
func (d *Dispatcher) Dispatch(eventType string, data map[string]interface{}) {
	go d.dispatch(eventType, data)
}

func (d *Dispatcher) dispatch(eventType string, data map[string]interface{}) {
	hooks, err := d.source.ActiveWebhooksForEvent(eventType)
	if err != nil {
		d.logger.WithError(err).WithField("event_type", eventType).Error("Failed to load webhook subscriptions")
		return
	}
	if len(hooks) == 0 {
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"event": eventType,
		"data":  data,
	})
	if err != nil {
		d.logger.WithError(err).WithField("event_type", eventType).Error("Failed to marshal webhook payload")
		return
	}

	for _, hook := range hooks {
		log := d.logger.WithFields(logrus.Fields{
			"event_type": eventType,
			"webhook_id": hook.ID,
			"url":        hook.URL,
		})
		status, err := d.deliver(hook.URL, payload)
		if err != nil {
			log.WithError(err).Warn("Webhook delivery failed")
			continue
		}
		if status >= http.StatusBadRequest {
			log.WithField("status_code", status).Warn("Webhook endpoint returned error status")
			continue
		}
		log.Debug("Webhook delivered")
	}
}

func (d *Dispatcher) deliver(url string, payload []byte) (int, error) {
	resp, err := d.client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// Test sends a synchronous probe event to a single endpoint and reports what
// happened, so operators can verify a subscription before relying on it.
func (d *Dispatcher) Test(ctx context.Context, hook *models.Webhook) (*models.WebhookTestResult, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"event": models.EventWebhookTest,
		"data": map[string]interface{}{
			"message":    "This is a test webhook delivery",
			"webhook_id": hook.ID.String(),
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := d.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("webhook endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return &models.WebhookTestResult{
		StatusCode:     resp.StatusCode,
		ResponseTimeMs: elapsed.Milliseconds(),
		Success:        resp.StatusCode < http.StatusBadRequest,
	}, nil
}
