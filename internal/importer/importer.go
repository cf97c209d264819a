package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"catalog-import-service/internal/events"
	"catalog-import-service/internal/models"
)

// BatchMerger lands a normalized batch in the catalog and reports how many
// rows it touched.
type BatchMerger interface {
	MergeBatch(ctx context.Context, rows []models.ProductRow) (int64, error)
}

// StatusReporter publishes job snapshots to the shared status channel.
type StatusReporter interface {
	Running(ctx context.Context, jobID string, current, total int)
	Succeeded(ctx context.Context, jobID string, current, total int, outcome *models.ImportOutcome)
	Failed(ctx context.Context, jobID string, current, total int, errMsg string)
}

// CompletionNotifier fans a completion event out to webhook subscribers.
type CompletionNotifier interface {
	Dispatch(eventType string, data map[string]interface{})
}

// Importer runs bulk catalog imports: it streams the uploaded file in
// batches, normalizes each batch, merges it into the products table and
// reports progress after every batch. A single bad batch fails the whole job;
// batches already merged stay merged.
type Importer struct {
	merger    BatchMerger
	status    StatusReporter
	notifier  CompletionNotifier
	publisher *events.Publisher
	batchSize int
	logger    *logrus.Entry
}

func New(merger BatchMerger, status StatusReporter, notifier CompletionNotifier, publisher *events.Publisher, batchSize int, logger *logrus.Logger) *Importer {
	if batchSize <= 0 {
		batchSize = 10000
	}
	return &Importer{
		merger:    merger,
		status:    status,
		notifier:  notifier,
		publisher: publisher,
		batchSize: batchSize,
		logger:    logger.WithField("component", "importer"),
	}
}

// Run executes one import job to a terminal state. The returned outcome is
// non-nil exactly when the job succeeded; on failure the error carries the
// reason already published to the status channel. The uploaded file is
// deleted only after success, so a failed upload can be inspected.
func (i *Importer) Run(ctx context.Context, jobID, filePath string) (*models.ImportOutcome, error) {
	log := i.logger.WithFields(logrus.Fields{
		"job_id": jobID,
		"file":   filepath.Base(filePath),
	})
	log.Info("Starting import")

	total, err := CountDataRows(filePath)
	if err != nil {
		return nil, i.fail(ctx, jobID, 0, 0, fmt.Errorf("failed to read import file: %w", err), log)
	}
	i.status.Running(ctx, jobID, 0, total)
	i.publisher.ImportStarted(jobID, filepath.Base(filePath), total)

	src, err := NewSource(filePath)
	if err != nil {
		return nil, i.fail(ctx, jobID, 0, total, err, log)
	}
	defer src.Close()

	var (
		processed  int
		upserted   int64
		duplicates int
	)
	for {
		batch, readErr := ReadBatch(src, i.batchSize)
		if len(batch) > 0 {
			rows, dropped := NormalizeBatch(batch)
			affected, mergeErr := i.merger.MergeBatch(ctx, rows)
			if mergeErr != nil {
				return nil, i.fail(ctx, jobID, processed, total, fmt.Errorf("failed to merge batch: %w", mergeErr), log)
			}
			processed += len(batch)
			upserted += affected
			duplicates += dropped
			i.status.Running(ctx, jobID, processed, total)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, i.fail(ctx, jobID, processed, total, fmt.Errorf("failed to read import file: %w", readErr), log)
		}
	}

	outcome := &models.ImportOutcome{
		TotalProcessed:    processed,
		TotalUpserted:     upserted,
		DuplicatesDropped: duplicates,
		Message:           fmt.Sprintf("Successfully imported %d products", upserted),
	}
	i.status.Succeeded(ctx, jobID, processed, total, outcome)
	i.publisher.ImportCompleted(jobID, outcome)

	if err := os.Remove(filePath); err != nil {
		log.WithError(err).Warn("Failed to remove uploaded file")
	}

	i.notifier.Dispatch(models.EventProductBulkImport, map[string]interface{}{
		"jobId":             jobID,
		"totalProcessed":    outcome.TotalProcessed,
		"totalUpserted":     outcome.TotalUpserted,
		"duplicatesDropped": outcome.DuplicatesDropped,
	})

	log.WithFields(logrus.Fields{
		"processed":  processed,
		"upserted":   upserted,
		"duplicates": duplicates,
	}).Info("Import completed")
	return outcome, nil
}

func (i *Importer) fail(ctx context.Context, jobID string, current, total int, err error, log *logrus.Entry) error {
	i.status.Failed(ctx, jobID, current, total, err.Error())
	i.publisher.ImportFailed(jobID, err.Error())
	log.WithError(err).Error("Import failed")
	return err
}
