package events

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"catalog-import-service/internal/models"
)

// Subjects for import lifecycle events.
const (
	SubjectImportStarted   = "import.started"
	SubjectImportCompleted = "import.completed"
	SubjectImportFailed    = "import.failed"
)

// ImportEvent is the wire format for import lifecycle events.
type ImportEvent struct {
	EventID   string                 `json:"eventId"`
	EventType string                 `json:"eventType"`
	JobID     string                 `json:"jobId"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Publisher emits import lifecycle events to NATS. It is optional wiring:
// when NATS is not configured the service runs without it and callers hold a
// nil *Publisher, whose methods are all nil-safe no-ops.
type Publisher struct {
	conn   *nats.Conn
	logger *logrus.Entry
}

// NewPublisher connects to the NATS server named by NATS_URL.
func NewPublisher(logger *logrus.Logger) (*Publisher, error) {
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = nats.DefaultURL
	}

	conn, err := nats.Connect(natsURL,
		nats.Name("catalog-import-service"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Publisher{
		conn:   conn,
		logger: logger.WithField("component", "import-events"),
	}, nil
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.logger.WithError(err).Warn("Failed to drain NATS connection")
	}
}

// ImportStarted announces that a job left the queue and began processing.
func (p *Publisher) ImportStarted(jobID, fileName string, totalRows int) {
	p.publish(SubjectImportStarted, jobID, map[string]interface{}{
		"fileName":  fileName,
		"totalRows": totalRows,
	})
}

// ImportCompleted announces a successful import with its final counts.
func (p *Publisher) ImportCompleted(jobID string, outcome *models.ImportOutcome) {
	p.publish(SubjectImportCompleted, jobID, map[string]interface{}{
		"totalProcessed":    outcome.TotalProcessed,
		"totalUpserted":     outcome.TotalUpserted,
		"duplicatesDropped": outcome.DuplicatesDropped,
	})
}

// ImportFailed announces a failed import.
func (p *Publisher) ImportFailed(jobID, reason string) {
	p.publish(SubjectImportFailed, jobID, map[string]interface{}{
		"reason": reason,
	})
}

func (p *Publisher) publish(subject, jobID string, data map[string]interface{}) {
	if p == nil || p.conn == nil {
		return
	}

	event := ImportEvent{
		EventID:   uuid.New().String(),
		EventType: subject,
		JobID:     jobID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	// Events are telemetry, not state; never block an import on the broker.
	go func() {
		payload, err := json.Marshal(event)
		if err != nil {
			p.logger.WithError(err).WithField("subject", subject).Error("Failed to marshal event")
			return
		}
		if err := p.conn.Publish(subject, payload); err != nil {
			p.logger.WithError(err).WithFields(logrus.Fields{
				"subject": subject,
				"job_id":  jobID,
			}).Error("Failed to publish event")
			return
		}
		p.logger.WithFields(logrus.Fields{
			"subject": subject,
			"job_id":  jobID,
		}).Debug("Published event")
	}()
}
