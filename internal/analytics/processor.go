package analytics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"shortlink/internal/domain"
	"shortlink/internal/repository"
)

// ClickJob is one click waiting to be recorded.
type ClickJob struct {
	LinkID int64
	Event  *domain.ClickEvent
}

// ProcessorConfig holds configuration for the click processor.
type ProcessorConfig struct {
	WorkerCount     int           // Number of worker goroutines
	BufferSize      int           // Size of the job queue buffer
	RetryAttempts   int           // Number of retry attempts for failed jobs
	RetryDelay      time.Duration // Base delay between retries
	ShutdownTimeout time.Duration // Time to wait for graceful shutdown
}

// DefaultProcessorConfig returns sensible default configuration.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		WorkerCount:     3,
		BufferSize:      1000,
		RetryAttempts:   3,
		RetryDelay:      time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Processor records clicks asynchronously so a redirect never waits on the
// accounting transaction and a disconnecting client never tears one down.
// Submitted jobs run on a background context owned by the processor.
type Processor struct {
	config   ProcessorConfig
	engine   *Engine
	log      *zap.Logger
	jobQueue chan *ClickJob
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	mu       sync.RWMutex
}

// NewProcessor creates a click processor backed by the accounting engine.
func NewProcessor(engine *Engine, log *zap.Logger, config ProcessorConfig) *Processor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Processor{
		config:   config,
		engine:   engine,
		log:      log,
		jobQueue: make(chan *ClickJob, config.BufferSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the worker pool.
func (p *Processor) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("processor already started")
	}

	p.log.Info("starting click processor",
		zap.Int("workers", p.config.WorkerCount),
		zap.Int("buffer_size", p.config.BufferSize))

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.started = true
	return nil
}

// Stop drains the queue and shuts the workers down, waiting at most the
// configured shutdown timeout.
func (p *Processor) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return fmt.Errorf("processor not started")
	}

	p.log.Info("stopping click processor")
	// The queue is closed from here on; flip started first so a concurrent
	// Submit errors out instead of sending on the closed channel.
	p.started = false
	close(p.jobQueue)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Info("click processor stopped")
	case <-time.After(p.config.ShutdownTimeout):
		p.cancel()
		p.log.Warn("click processor shutdown timeout reached")
		return fmt.Errorf("shutdown timeout reached")
	}

	p.cancel()
	return nil
}

// Submit queues a click for recording. When the queue is full the click is
// dropped and an error returned; callers should redirect regardless.
func (p *Processor) Submit(job *ClickJob) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.started {
		return fmt.Errorf("processor not started")
	}

	select {
	case p.jobQueue <- job:
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("processor is shutting down")
	default:
		p.log.Error("click queue is full, dropping click",
			zap.Int64("link_id", job.LinkID),
			zap.Int("queue_size", len(p.jobQueue)))
		return fmt.Errorf("click queue is full")
	}
}

// QueueStats reports queue occupancy for the health endpoint.
func (p *Processor) QueueStats() map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return map[string]interface{}{
		"started":        p.started,
		"queue_length":   len(p.jobQueue),
		"queue_capacity": cap(p.jobQueue),
		"worker_count":   p.config.WorkerCount,
	}
}

func (p *Processor) worker(workerID int) {
	defer p.wg.Done()

	log := p.log.With(zap.Int("worker_id", workerID))
	for job := range p.jobQueue {
		p.processWithRetry(log, job)
	}
	log.Debug("click worker stopped")
}

func (p *Processor) processWithRetry(log *zap.Logger, job *ClickJob) {
	var lastErr error

	for attempt := 1; attempt <= p.config.RetryAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(p.ctx, 30*time.Second)
		err := p.engine.RecordClick(ctx, job.LinkID, job.Event)
		cancel()

		if err == nil {
			if attempt > 1 {
				log.Info("click recorded after retry",
					zap.Int64("link_id", job.LinkID),
					zap.Int("attempt", attempt))
			}
			return
		}

		// A vanished link is permanent; retrying cannot help.
		if errors.Is(err, repository.ErrLinkNotFound) {
			log.Warn("dropping click for missing link", zap.Int64("link_id", job.LinkID))
			return
		}

		lastErr = err
		log.Warn("failed to record click",
			zap.Int64("link_id", job.LinkID),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.config.RetryAttempts),
			zap.Error(err))

		if attempt == p.config.RetryAttempts {
			break
		}

		delay := p.config.RetryDelay * time.Duration(1<<(attempt-1))
		select {
		case <-time.After(delay):
		case <-p.ctx.Done():
			return
		}
	}

	log.Error("click lost after all retries",
		zap.Int64("link_id", job.LinkID),
		zap.Error(lastErr))
}
