package task

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tripbuddy/tripbuddy-api/internal/job"
)

// RunnerConfig holds configuration for the generation runner.
type RunnerConfig struct {
	// WorkerCount determines how many concurrent workers process jobs.
	WorkerCount int

	// MaxStarts caps how many generation attempts may start per StartWindow.
	// This is an admission control on planner calls, shared by all workers.
	MaxStarts int

	// StartWindow is the rolling window MaxStarts applies to.
	StartWindow time.Duration
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount: 2,
		MaxStarts:   3,
		StartWindow: 10 * time.Second,
	}
}

// GenerationRunner consumes the job queue with a pool of workers. Every
// worker waits on a shared rate limiter before taking a job, so attempt
// starts across the whole process never exceed MaxStarts per StartWindow.
type GenerationRunner struct {
	queue     *job.Queue
	processor Processor
	limiter   *rate.Limiter
	config    RunnerConfig
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewGenerationRunner creates a new runner over the given queue and
// processor.
func NewGenerationRunner(queue *job.Queue, processor Processor, config RunnerConfig, logger *slog.Logger) *GenerationRunner {
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultRunnerConfig().WorkerCount
	}
	if config.MaxStarts <= 0 {
		config.MaxStarts = DefaultRunnerConfig().MaxStarts
	}
	if config.StartWindow <= 0 {
		config.StartWindow = DefaultRunnerConfig().StartWindow
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	limit := rate.Limit(float64(config.MaxStarts) / config.StartWindow.Seconds())

	return &GenerationRunner{
		queue:     queue,
		processor: processor,
		limiter:   rate.NewLimiter(limit, config.MaxStarts),
		config:    config,
		logger:    logger.With(slog.String("component", "generation_runner")),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the worker pool. Jobs already persisted by a previous run
// should be replayed with Queue.Recover before calling Start.
func (r *GenerationRunner) Start() {
	r.logger.Info("starting generation runner",
		slog.Int("worker_count", r.config.WorkerCount),
		slog.Int("max_starts", r.config.MaxStarts),
		slog.Duration("start_window", r.config.StartWindow))

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
}

// Stop shuts the runner down and waits for in-flight jobs to finish their
// current step. Jobs left in active state are replayed by the next process's
// recovery pass.
func (r *GenerationRunner) Stop() {
	r.logger.Info("stopping generation runner")
	r.cancel()
	r.wg.Wait()
	r.logger.Info("generation runner stopped")
}

// worker is the main loop of a single worker goroutine.
func (r *GenerationRunner) worker(id int) {
	defer r.wg.Done()

	log := r.logger.With(slog.Int("worker_id", id))
	log.Debug("worker started")

	for {
		select {
		case <-r.ctx.Done():
			log.Debug("worker stopping")
			return
		case rec, ok := <-r.queue.Jobs():
			if !ok {
				log.Debug("job channel closed, worker stopping")
				return
			}
			r.handle(rec, log)
		}
	}
}

// handle executes one job record.
func (r *GenerationRunner) handle(rec *job.Record, log *slog.Logger) {
	log = log.With(slog.String("job_id", rec.ID))

	// Admission control: the limiter gates how fast attempts may start,
	// regardless of how many workers are free.
	if err := r.limiter.Wait(r.ctx); err != nil {
		log.Debug("worker cancelled while waiting for start slot")
		return
	}

	if err := r.queue.MarkActive(r.ctx, rec.ID); err != nil {
		log.Error("failed to mark job active", slog.String("error", err.Error()))
		return
	}

	var payload job.Payload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		// A payload that cannot be decoded will never succeed; resolve it
		// so it does not loop through recovery forever.
		log.Error("failed to decode job payload, resolving as poison",
			slog.String("error", err.Error()))
		r.resolve(rec.ID, log)
		return
	}

	if err := r.processor.Process(r.ctx, payload); err != nil {
		// Leave the job active: the outcome was not recorded, and the next
		// recovery pass will redeliver it.
		log.Error("job processing failed, leaving job for redelivery",
			slog.String("error", err.Error()))
		return
	}

	r.resolve(rec.ID, log)
}

func (r *GenerationRunner) resolve(id string, log *slog.Logger) {
	if err := r.queue.Resolve(context.WithoutCancel(r.ctx), id); err != nil {
		log.Error("failed to resolve job", slog.String("error", err.Error()))
		return
	}
	log.Debug("job resolved")
}
