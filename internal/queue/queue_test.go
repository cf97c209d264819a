package queue

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-import-service/internal/models"
)

type recordingRunner struct {
	mu   sync.Mutex
	jobs []Job
	done chan struct{}
}

func newRecordingRunner(expected int) *recordingRunner {
	return &recordingRunner{done: make(chan struct{}, expected)}
}

func (r *recordingRunner) Run(_ context.Context, jobID, filePath string) (*models.ImportOutcome, error) {
	r.mu.Lock()
	r.jobs = append(r.jobs, Job{ID: jobID, FilePath: filePath})
	r.mu.Unlock()
	r.done <- struct{}{}
	return &models.ImportOutcome{}, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestPoolProcessesEnqueuedJobs(t *testing.T) {
	runner := newRecordingRunner(3)
	pool := NewPool(runner, 2, 8, quietLogger())
	pool.Start(context.Background())

	require.True(t, pool.Enqueue(Job{ID: "a", FilePath: "/tmp/a.csv"}))
	require.True(t, pool.Enqueue(Job{ID: "b", FilePath: "/tmp/b.csv"}))
	require.True(t, pool.Enqueue(Job{ID: "c", FilePath: "/tmp/c.csv"}))

	for i := 0; i < 3; i++ {
		select {
		case <-runner.done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs to run")
		}
	}

	pool.CloseIntake()
	pool.Wait()

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.Len(t, runner.jobs, 3)

	enqueued, processed, depth := pool.Metrics()
	assert.Equal(t, uint64(3), enqueued)
	assert.Equal(t, uint64(3), processed)
	assert.Equal(t, 0, depth)
}

func TestPoolRejectsWhenBufferFull(t *testing.T) {
	// No workers started, so the buffer never drains.
	pool := NewPool(newRecordingRunner(0), 1, 2, quietLogger())

	assert.True(t, pool.Enqueue(Job{ID: "a"}))
	assert.True(t, pool.Enqueue(Job{ID: "b"}))
	assert.False(t, pool.Enqueue(Job{ID: "c"}))
}

func TestPoolRejectsAfterCloseIntake(t *testing.T) {
	runner := newRecordingRunner(1)
	pool := NewPool(runner, 1, 8, quietLogger())
	pool.Start(context.Background())

	require.True(t, pool.Enqueue(Job{ID: "a"}))
	<-runner.done

	pool.CloseIntake()
	assert.False(t, pool.Enqueue(Job{ID: "late"}))
	pool.Wait()
}

func TestPoolDrainsBufferAfterCloseIntake(t *testing.T) {
	runner := newRecordingRunner(4)
	pool := NewPool(runner, 1, 8, quietLogger())

	for _, id := range []string{"a", "b", "c", "d"} {
		require.True(t, pool.Enqueue(Job{ID: id}))
	}

	// Intake closes before any worker starts; the buffered jobs still run.
	pool.CloseIntake()
	pool.Start(context.Background())
	pool.Wait()

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.Len(t, runner.jobs, 4)
}
