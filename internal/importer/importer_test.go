package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-import-service/internal/models"
)

type fakeMerger struct {
	batches   [][]models.ProductRow
	failBatch int // 1-based batch index that fails; 0 means never
}

func (m *fakeMerger) MergeBatch(_ context.Context, rows []models.ProductRow) (int64, error) {
	m.batches = append(m.batches, rows)
	if m.failBatch > 0 && len(m.batches) == m.failBatch {
		return 0, errors.New("connection reset")
	}
	return int64(len(rows)), nil
}

type fakeReporter struct {
	snapshots []models.JobStatus
}

func (r *fakeReporter) Running(_ context.Context, jobID string, current, total int) {
	r.snapshots = append(r.snapshots, models.JobStatus{JobID: jobID, State: models.JobStateRunning, Current: current, Total: total})
}

func (r *fakeReporter) Succeeded(_ context.Context, jobID string, current, total int, outcome *models.ImportOutcome) {
	r.snapshots = append(r.snapshots, models.JobStatus{JobID: jobID, State: models.JobStateSucceeded, Current: current, Total: total, Result: outcome})
}

func (r *fakeReporter) Failed(_ context.Context, jobID string, current, total int, errMsg string) {
	r.snapshots = append(r.snapshots, models.JobStatus{JobID: jobID, State: models.JobStateFailed, Current: current, Total: total, Error: errMsg})
}

func (r *fakeReporter) last() models.JobStatus {
	return r.snapshots[len(r.snapshots)-1]
}

type fakeNotifier struct {
	events   []string
	payloads []map[string]interface{}
}

func (n *fakeNotifier) Dispatch(eventType string, data map[string]interface{}) {
	n.events = append(n.events, eventType)
	n.payloads = append(n.payloads, data)
}

func writeImportCSV(t *testing.T, rowCount int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("sku,name,description,price\n")
	for i := 0; i < rowCount; i++ {
		fmt.Fprintf(&b, "SKU-%06d,Product %d,,%d.50\n", i, i, i%100)
	}
	path := filepath.Join(t.TempDir(), "bulk.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func newTestImporter(merger *fakeMerger, reporter *fakeReporter, notifier *fakeNotifier, batchSize int) *Importer {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.PanicLevel)
	return New(merger, reporter, notifier, nil, batchSize, logger)
}

func TestRunReportsProgressPerBatch(t *testing.T) {
	path := writeImportCSV(t, 2500)
	merger := &fakeMerger{}
	reporter := &fakeReporter{}
	notifier := &fakeNotifier{}
	imp := newTestImporter(merger, reporter, notifier, 1000)

	outcome, err := imp.Run(context.Background(), "job-1", path)
	require.NoError(t, err)
	require.NotNil(t, outcome)

	// One initial running snapshot, one per batch, then the terminal one.
	require.Len(t, reporter.snapshots, 5)
	currents := []int{}
	for _, s := range reporter.snapshots {
		assert.Equal(t, 2500, s.Total)
		currents = append(currents, s.Current)
	}
	assert.Equal(t, []int{0, 1000, 2000, 2500, 2500}, currents)

	last := reporter.last()
	assert.Equal(t, models.JobStateSucceeded, last.State)
	require.NotNil(t, last.Result)
	assert.Equal(t, 2500, last.Result.TotalProcessed)
	assert.Equal(t, int64(2500), last.Result.TotalUpserted)
	assert.Equal(t, 0, last.Result.DuplicatesDropped)

	require.Len(t, merger.batches, 3)
	assert.Len(t, merger.batches[0], 1000)
	assert.Len(t, merger.batches[2], 500)
}

func TestRunProgressIsMonotonic(t *testing.T) {
	path := writeImportCSV(t, 3700)
	reporter := &fakeReporter{}
	imp := newTestImporter(&fakeMerger{}, reporter, &fakeNotifier{}, 500)

	_, err := imp.Run(context.Background(), "job-mono", path)
	require.NoError(t, err)

	prev := -1
	for _, s := range reporter.snapshots {
		assert.GreaterOrEqual(t, s.Current, prev)
		prev = s.Current
	}
}

func TestRunCountsIntraBatchDuplicates(t *testing.T) {
	content := "sku,name\nDUP-1,First\ndup-1,Second\nKEEP-1,Kept\n"
	path := filepath.Join(t.TempDir(), "dups.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	merger := &fakeMerger{}
	reporter := &fakeReporter{}
	imp := newTestImporter(merger, reporter, &fakeNotifier{}, 100)

	outcome, err := imp.Run(context.Background(), "job-dup", path)
	require.NoError(t, err)

	assert.Equal(t, 3, outcome.TotalProcessed)
	assert.Equal(t, 1, outcome.DuplicatesDropped)
	assert.Equal(t, int64(2), outcome.TotalUpserted)

	require.Len(t, merger.batches, 1)
	require.Len(t, merger.batches[0], 2)
	assert.Equal(t, "DUP-1", merger.batches[0][0].SKU)
	assert.Equal(t, "Second", merger.batches[0][0].Name)
}

func TestRunRemovesFileOnSuccess(t *testing.T) {
	path := writeImportCSV(t, 10)
	imp := newTestImporter(&fakeMerger{}, &fakeReporter{}, &fakeNotifier{}, 100)

	_, err := imp.Run(context.Background(), "job-clean", path)
	require.NoError(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunKeepsFileAndCountsOnFailure(t *testing.T) {
	path := writeImportCSV(t, 2500)
	merger := &fakeMerger{failBatch: 2}
	reporter := &fakeReporter{}
	notifier := &fakeNotifier{}
	imp := newTestImporter(merger, reporter, notifier, 1000)

	outcome, err := imp.Run(context.Background(), "job-fail", path)
	require.Error(t, err)
	assert.Nil(t, outcome)

	last := reporter.last()
	assert.Equal(t, models.JobStateFailed, last.State)
	// Counts reached before the failing batch are preserved.
	assert.Equal(t, 1000, last.Current)
	assert.Equal(t, 2500, last.Total)
	assert.Contains(t, last.Error, "connection reset")

	// The file survives a failed import.
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)

	// No completion notification on failure.
	assert.Empty(t, notifier.events)
}

func TestRunNotifiesOnSuccessOnly(t *testing.T) {
	path := writeImportCSV(t, 5)
	notifier := &fakeNotifier{}
	imp := newTestImporter(&fakeMerger{}, &fakeReporter{}, notifier, 100)

	_, err := imp.Run(context.Background(), "job-notify", path)
	require.NoError(t, err)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, models.EventProductBulkImport, notifier.events[0])
	assert.Equal(t, "job-notify", notifier.payloads[0]["jobId"])
	assert.Equal(t, 5, notifier.payloads[0]["totalProcessed"])
}

func TestRunFailsOnMissingFile(t *testing.T) {
	reporter := &fakeReporter{}
	imp := newTestImporter(&fakeMerger{}, reporter, &fakeNotifier{}, 100)

	_, err := imp.Run(context.Background(), "job-missing", filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.Equal(t, models.JobStateFailed, reporter.last().State)
}
