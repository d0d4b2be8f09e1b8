// Package queue archives inserted records in the background.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/codebuildervaibhav/voice-clipboard/internal/storage"
	"github.com/codebuildervaibhav/voice-clipboard/internal/types"
)

// ErrQueueFull is returned when a record cannot be queued
var ErrQueueFull = errors.New("archive queue is full")

// ErrStopped is returned after Stop
var ErrStopped = errors.New("archive queue is stopped")

// DefaultJobTimeout bounds one archiver call
const DefaultJobTimeout = 2 * time.Minute

// WorkerPool hands records to its archivers on a fixed set of workers.
// It is itself a storage.Archiver, so it slots into storage.ArchivingStore.
type WorkerPool struct {
	jobQueue    chan *Job
	workerCount int
	archivers   []storage.Archiver
	jobTimeout  time.Duration

	// OnDone is called after each job; used by tests
	OnDone func(*Job)

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewWorkerPool creates a pool with the given queue size
func NewWorkerPool(workerCount, queueSize int, archivers ...storage.Archiver) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	return &WorkerPool{
		jobQueue:    make(chan *Job, queueSize),
		workerCount: workerCount,
		archivers:   archivers,
		jobTimeout:  DefaultJobTimeout,
	}
}

// Start launches the workers
func (wp *WorkerPool) Start() {
	log.Printf("Starting archive pool with %d workers", wp.workerCount)
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the queue and waits for queued jobs to finish
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	close(wp.jobQueue)
	wp.mu.Unlock()

	wp.wg.Wait()
	log.Println("Archive pool stopped")
}

// Name implements storage.Archiver
func (wp *WorkerPool) Name() string { return "queue" }

// Archive queues rec without blocking. The caller's context is not carried
// into the job since the insert request usually ends first.
func (wp *WorkerPool) Archive(ctx context.Context, rec types.Record) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.stopped {
		return ErrStopped
	}
	select {
	case wp.jobQueue <- NewJob(rec):
		return nil
	default:
		return ErrQueueFull
	}
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Archive worker %d: PANIC on record %s: %v\n%s",
						id, job.ID, r, string(debug.Stack()))
					job.Status = StatusFailed
					job.Errors = append(job.Errors, fmt.Errorf("worker panic: %v", r))
				}
				if wp.OnDone != nil {
					wp.OnDone(job)
				}
			}()

			wp.processJob(id, job)
		}()
	}
}

// processJob runs every archiver; one failing does not stop the others
func (wp *WorkerPool) processJob(workerID int, job *Job) {
	job.Status = StatusProcessing

	for _, archiver := range wp.archivers {
		ctx, cancel := context.WithTimeout(context.Background(), wp.jobTimeout)
		err := archiver.Archive(ctx, job.Record)
		cancel()

		if err != nil {
			log.Printf("Archive worker %d: %s failed for record %s: %v", workerID, archiver.Name(), job.ID, err)
			job.Errors = append(job.Errors, fmt.Errorf("%s: %w", archiver.Name(), err))
		}
	}

	if len(job.Errors) > 0 {
		job.Status = StatusFailed
		return
	}
	job.Status = StatusCompleted
}
