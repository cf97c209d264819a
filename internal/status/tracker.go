package status

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"catalog-import-service/internal/models"
)

const keyPrefix = "catalog:import:"

// Percent reports completion as a whole number, rounded down and clamped to
// [0, 100]. An unknown total reports 0 rather than guessing.
func Percent(current, total int) int {
	if total <= 0 {
		return 0
	}
	p := current * 100 / total
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Tracker publishes import job snapshots to Redis so any API instance can
// answer status polls. Each job holds a single key that is overwritten with
// the latest snapshot; snapshots expire after the configured TTL.
type Tracker struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Entry
}

func NewTracker(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *Tracker {
	return &Tracker{
		client: client,
		ttl:    ttl,
		logger: logger.WithField("component", "status-tracker"),
	}
}

// Pending records a freshly accepted job before it reaches a worker.
func (t *Tracker) Pending(ctx context.Context, jobID string) {
	t.publish(ctx, models.JobStatus{
		JobID:   jobID,
		State:   models.JobStatePending,
		Message: "Import queued",
	})
}

// Running records in-flight progress. Percent is derived here so every
// publisher reports it the same way.
func (t *Tracker) Running(ctx context.Context, jobID string, current, total int) {
	t.publish(ctx, models.JobStatus{
		JobID:   jobID,
		State:   models.JobStateRunning,
		Current: current,
		Total:   total,
		Percent: Percent(current, total),
		Message: "Import in progress",
	})
}

// Succeeded records the terminal snapshot for a completed job. Percent is
// pinned to 100 regardless of rounding along the way.
func (t *Tracker) Succeeded(ctx context.Context, jobID string, current, total int, outcome *models.ImportOutcome) {
	t.publish(ctx, models.JobStatus{
		JobID:   jobID,
		State:   models.JobStateSucceeded,
		Current: current,
		Total:   total,
		Percent: 100,
		Message: "Import completed",
		Result:  outcome,
	})
}

// Failed records the terminal snapshot for a failed job, preserving the
// counts reached before the failure.
func (t *Tracker) Failed(ctx context.Context, jobID string, current, total int, errMsg string) {
	t.publish(ctx, models.JobStatus{
		JobID:   jobID,
		State:   models.JobStateFailed,
		Current: current,
		Total:   total,
		Percent: Percent(current, total),
		Message: "Import failed",
		Error:   errMsg,
	})
}

// Discard removes a job's snapshot. Used to retract a pending snapshot for a
// job the queue refused, so pollers never see a job that will never run.
func (t *Tracker) Discard(ctx context.Context, jobID string) {
	if err := t.client.Del(ctx, keyPrefix+jobID).Err(); err != nil {
		t.logger.WithError(err).WithField("job_id", jobID).Warn("Failed to discard status snapshot")
	}
}

// Get returns the latest snapshot for a job, or nil when the job is unknown
// (never seen, or expired).
func (t *Tracker) Get(ctx context.Context, jobID string) (*models.JobStatus, error) {
	raw, err := t.client.Get(ctx, keyPrefix+jobID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snapshot models.JobStatus
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (t *Tracker) publish(ctx context.Context, snapshot models.JobStatus) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		t.logger.WithError(err).WithField("job_id", snapshot.JobID).Warn("Failed to marshal status snapshot")
		return
	}
	if err := t.client.Set(ctx, keyPrefix+snapshot.JobID, data, t.ttl).Err(); err != nil {
		// Status is best-effort; a Redis hiccup must not abort the import.
		t.logger.WithError(err).WithField("job_id", snapshot.JobID).Warn("Failed to publish status snapshot")
	}
}
