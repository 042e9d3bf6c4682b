package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/imoveis-tracker/internal/jobs"
	"github.com/dvloznov/imoveis-tracker/internal/logger"
	"github.com/google/uuid"
)

// DefaultMaxRetries applies to jobs published without MaxRetries.
const DefaultMaxRetries = 3

// Queue is an in-memory implementation of job publisher and consumer.
// It uses Go channels for job distribution and is safe for concurrent use.
// Jobs do not survive a restart.
type Queue struct {
	jobChan   chan *jobs.ExportJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.JobStore
	closed    bool

	workers    int
	maxRetries int
	backoff    func(retry int) time.Duration
	onFinish   func(job jobs.ExportJob)
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithWorkers sets the number of concurrent workers.
func WithWorkers(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

// WithMaxRetries sets the retry budget of jobs published without one.
func WithMaxRetries(n int) QueueOption {
	return func(q *Queue) { q.maxRetries = n }
}

// WithBackoff sets the delay before the nth retry.
func WithBackoff(f func(retry int) time.Duration) QueueOption {
	return func(q *Queue) { q.backoff = f }
}

// WithFinishHook is called once per job when it completes or runs out of
// retries.
func WithFinishHook(f func(job jobs.ExportJob)) QueueOption {
	return func(q *Queue) { q.onFinish = f }
}

// NewQueue creates a new in-memory job queue.
// bufferSize determines how many jobs can be queued before Publish blocks.
func NewQueue(bufferSize int, store jobs.JobStore, opts ...QueueOption) *Queue {
	q := &Queue{
		jobChan:    make(chan *jobs.ExportJob, bufferSize),
		closeChan:  make(chan struct{}),
		store:      store,
		workers:    2,
		maxRetries: DefaultMaxRetries,
		backoff:    func(retry int) time.Duration { return time.Duration(retry) * time.Second },
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Publish implements the Publisher interface.
func (q *Queue) Publish(ctx context.Context, job *jobs.ExportJob) error {
	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = q.maxRetries
	}
	return q.enqueue(ctx, job)
}

func (q *Queue) enqueue(ctx context.Context, job *jobs.ExportJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return fmt.Errorf("queue is closed")
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("failed to save job: %w", err)
		}
	}

	select {
	case q.jobChan <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return fmt.Errorf("queue is closed")
	}
}

// Start implements the Consumer interface.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return fmt.Errorf("queue is closed")
	}
	q.mu.RUnlock()

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}

	return nil
}

// worker processes jobs from the queue.
func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}
			q.processJob(ctx, job, handler)
		}
	}
}

// processJob executes a single job with retry logic.
func (q *Queue) processJob(ctx context.Context, job *jobs.ExportJob, handler jobs.JobHandler) {
	log := logger.FromContext(ctx)

	job.Status = jobs.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}

	result, err := handler(ctx, job)

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	switch {
	case err == nil:
		job.Status = jobs.JobStatusCompleted
		job.Result = result
		job.Error = ""
	case job.RetryCount < job.MaxRetries && !errors.Is(err, jobs.ErrNotConfigured):
		job.Error = err.Error()
		job.RetryCount++
		job.Status = jobs.JobStatusRetrying
		log.Warn().Err(err).
			Str("job_id", job.JobID).
			Int("retry", job.RetryCount).
			Msg("Job failed, retrying")

		retry := *job
		retry.Status = jobs.JobStatusPending
		retry.StartedAt = nil
		retry.CompletedAt = nil
		time.AfterFunc(q.backoff(job.RetryCount), func() {
			if err := q.enqueue(ctx, &retry); err != nil {
				log.Warn().Err(err).Str("job_id", retry.JobID).Msg("Dropping retry")
			}
		})
	default:
		job.Error = err.Error()
		job.Status = jobs.JobStatusFailed
		log.Error().Err(err).Str("job_id", job.JobID).Msg("Job failed")
	}

	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}
	if job.Status.Final() && q.onFinish != nil {
		q.onFinish(*job)
	}
}

// Stop implements the Consumer interface.
// It stops the queue and waits for all in-flight jobs to complete.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements the Publisher interface.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

// Ensure Queue implements both Publisher and Consumer interfaces.
var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
