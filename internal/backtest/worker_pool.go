package backtest

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/haidang-fin/dex-band-bot/pkg/types"
)

// WorkerPool manages parallel sweep execution
type WorkerPool struct {
	workerCount int
	jobQueue    chan SweepJob
	resultQueue chan SweepJobResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// SweepJob represents a single parameter combination to replay
type SweepJob struct {
	ID      string
	Config  Config
	Candles []types.Candle
}

// SweepJobResult represents the outcome of one sweep job
type SweepJobResult struct {
	ID       string
	Config   Config
	Results  *Results
	Duration time.Duration
	Error    error
}

// NewWorkerPool creates a new worker pool for parallel sweeps
func NewWorkerPool(workerCount int, jobBufferSize int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		workerCount: workerCount,
		jobQueue:    make(chan SweepJob, jobBufferSize),
		resultQueue: make(chan SweepJobResult, jobBufferSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start starts the worker pool
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
}

// Stop stops the worker pool gracefully
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
}

// SubmitJob submits a sweep job to the pool
func (wp *WorkerPool) SubmitJob(job SweepJob) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// GetResults returns the result channel for collecting completed jobs
func (wp *WorkerPool) GetResults() <-chan SweepJobResult {
	return wp.resultQueue
}

// worker processes sweep jobs until the queue closes
func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for {
		select {
		case job, ok := <-wp.jobQueue:
			if !ok {
				return
			}

			result := wp.processJob(job)

			select {
			case wp.resultQueue <- result:
			case <-wp.ctx.Done():
				return
			}

		case <-wp.ctx.Done():
			return
		}
	}
}

// processJob replays one parameter combination
func (wp *WorkerPool) processJob(job SweepJob) SweepJobResult {
	start := time.Now()

	engine, err := NewEngine(job.Config)
	if err != nil {
		return SweepJobResult{ID: job.ID, Config: job.Config, Duration: time.Since(start), Error: err}
	}

	results, err := engine.Run(job.Candles)
	return SweepJobResult{
		ID:       job.ID,
		Config:   job.Config,
		Results:  results,
		Duration: time.Since(start),
		Error:    err,
	}
}
