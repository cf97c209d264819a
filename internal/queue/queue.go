// Package queue implements the in-memory import job queue and its worker pool.
package queue

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"catalog-import-service/internal/models"
)

// Job is one accepted import waiting for a worker.
type Job struct {
	ID       string
	FilePath string
}

// Runner executes a single import job to a terminal state.
type Runner interface {
	Run(ctx context.Context, jobID, filePath string) (*models.ImportOutcome, error)
}

// Pool is a fixed-size worker pool over a buffered job channel. Enqueue is
// non-blocking: when the buffer is full or intake is closed the job is
// rejected and the caller decides what to tell the client.
type Pool struct {
	jobs         chan Job
	runner       Runner
	workers      int
	logger       *logrus.Entry
	wg           sync.WaitGroup
	mu           sync.Mutex
	shuttingDown atomic.Bool

	enqueued  atomic.Uint64
	processed atomic.Uint64
}

func NewPool(runner Runner, workers, buffer int, logger *logrus.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if buffer <= 0 {
		buffer = 64
	}
	return &Pool{
		jobs:    make(chan Job, buffer),
		runner:  runner,
		workers: workers,
		logger:  logger.WithField("component", "import-queue"),
	}
}

// Start launches the workers. They exit when intake is closed and the buffer
// drains, or when ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	log := p.logger.WithField("worker", id)
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			if _, err := p.runner.Run(ctx, job.ID, job.FilePath); err != nil {
				log.WithField("job_id", job.ID).WithError(err).Error("Import job failed")
			}
			p.processed.Add(1)
		}
	}
}

// Enqueue offers a job to the pool. It reports false when the job was not
// accepted.
func (p *Pool) Enqueue(job Job) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shuttingDown.Load() {
		return false
	}
	select {
	case p.jobs <- job:
		p.enqueued.Add(1)
		return true
	default:
		return false
	}
}

// CloseIntake rejects future enqueues and lets workers drain the buffer.
func (p *Pool) CloseIntake() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shuttingDown.CompareAndSwap(false, true) {
		close(p.jobs)
	}
}

// Wait blocks until all workers have exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Metrics returns accepted and completed job counters plus the buffered depth.
func (p *Pool) Metrics() (enqueued, processed uint64, depth int) {
	return p.enqueued.Load(), p.processed.Load(), len(p.jobs)
}
