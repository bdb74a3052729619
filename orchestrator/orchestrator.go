// Package orchestrator owns the task lifecycle: submission, the bounded
// worker pool executing mode-specific pipelines, polling and cancellation.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"go-terrawatch/aoi"
	"go-terrawatch/config"
	"go-terrawatch/types"
)

// ErrUnsupportedMode rejects submissions for modes without a pipeline.
var ErrUnsupportedMode = errors.New("unsupported analysis mode")

// Orchestrator schedules analysis tasks onto a bounded worker pool. The
// task table is mutated only here and by the single worker owning a task
// id; the pipelines themselves are pure functions over their inputs.
type Orchestrator struct {
	cfg       config.EngineConfig
	store     *Store
	builder   *aoi.Builder
	pipelines map[types.TaskMode]Pipeline
	queue     chan string
	logger    *zap.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopMu   sync.RWMutex // serializes enqueues against closing the queue
	stopped  chan struct{}

	mu      sync.Mutex
	running map[string]context.CancelFunc // task id -> best-effort cancel
}

func New(cfg config.EngineConfig, store *Store, builder *aoi.Builder, pipelines map[types.TaskMode]Pipeline, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		store:     store,
		builder:   builder,
		pipelines: pipelines,
		queue:     make(chan string, cfg.QueueSize),
		logger:    logger.With(zap.String("component", "orchestrator")),
		stopped:   make(chan struct{}),
		running:   make(map[string]context.CancelFunc),
	}
}

// Store exposes the task table for the retention sweeper.
func (o *Orchestrator) Store() *Store {
	return o.store
}

// Start launches the worker pool. Workers exit when ctx is cancelled or
// Stop closes the queue.
func (o *Orchestrator) Start(ctx context.Context) {
	for i := 0; i < o.cfg.Workers; i++ {
		o.wg.Add(1)
		go o.worker(ctx, i)
	}
	o.logger.Info("worker pool started", zap.Int("workers", o.cfg.Workers))
}

// Stop closes the queue and waits for in-flight tasks to finish.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() {
		o.stopMu.Lock()
		close(o.stopped)
		close(o.queue)
		o.stopMu.Unlock()
	})
	o.wg.Wait()
	o.logger.Info("worker pool stopped")
}

// Submit validates the request, builds the AOI and enqueues a Pending
// task. Equivalent submissions (same AOI identity and mode) while a task
// is still Pending/Running coalesce to the existing task id.
func (o *Orchestrator) Submit(mode types.TaskMode, lat, lon, radiusM float64) (string, error) {
	if _, ok := o.pipelines[mode]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMode, mode)
	}

	region, err := o.builder.Build(lat, lon, radiusM)
	if err != nil {
		return "", err
	}

	if id, ok := o.store.ActiveFor(region.ID, mode); ok {
		o.logger.Info("coalesced submission onto active task",
			zap.String("taskId", id), zap.String("aoi", region.ID))
		return id, nil
	}

	select {
	case <-o.stopped:
		return "", fmt.Errorf("orchestrator stopped: %w", types.ErrDependencyUnavailable)
	default:
	}

	task, err := o.store.Create(mode, region)
	if err != nil {
		return "", err
	}

	if err := o.enqueue(task.ID); err != nil {
		// Drop the record again so the caller can retry later instead of
		// holding a task no worker will reach.
		_ = o.store.Remove(task.ID)
		return "", err
	}

	o.logger.Info("task submitted",
		zap.String("taskId", task.ID),
		zap.String("mode", string(mode)),
		zap.String("aoi", region.ID))
	return task.ID, nil
}

// enqueue hands the task id to the worker pool. The read lock pairs with
// Stop's write lock so the send can never race the queue close.
func (o *Orchestrator) enqueue(id string) error {
	o.stopMu.RLock()
	defer o.stopMu.RUnlock()

	select {
	case <-o.stopped:
		return fmt.Errorf("orchestrator stopped: %w", types.ErrDependencyUnavailable)
	default:
	}

	select {
	case o.queue <- id:
		return nil
	default:
		return fmt.Errorf("pending queue full: %w", types.ErrDependencyUnavailable)
	}
}

// Status returns the task snapshot, or ErrTaskNotFound for unknown ids.
func (o *Orchestrator) Status(id string) (types.AnalysisTask, error) {
	return o.store.Get(id)
}

// Cancel removes a Pending task from the table, or requests best-effort
// cooperative cancellation of a Running one at its next stage boundary.
// Terminal tasks are left untouched.
func (o *Orchestrator) Cancel(id string) error {
	task, err := o.store.Get(id)
	if err != nil {
		return err
	}

	switch task.State {
	case types.TaskPending:
		return o.store.Remove(id)
	case types.TaskRunning:
		o.mu.Lock()
		cancel, ok := o.running[id]
		o.mu.Unlock()
		if ok {
			cancel()
		}
		return nil
	default:
		return fmt.Errorf("task %q already %s", id, task.State)
	}
}

func (o *Orchestrator) worker(ctx context.Context, n int) {
	defer o.wg.Done()
	logger := o.logger.With(zap.Int("worker", n))

	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-o.queue:
			if !ok {
				return
			}
			o.execute(ctx, id, logger)
		}
	}
}

// execute runs one task end to end. Errors are caught at this boundary and
// recorded as the task's terminal Failed state; they never escape to crash
// the pool or affect other tasks.
func (o *Orchestrator) execute(ctx context.Context, id string, logger *zap.Logger) {
	if err := o.store.MarkRunning(id); err != nil {
		// Cancelled-then-removed tasks still leave their id in the queue.
		logger.Debug("skipping unrunnable task", zap.String("taskId", id), zap.Error(err))
		return
	}

	task, err := o.store.Get(id)
	if err != nil {
		logger.Error("running task disappeared", zap.String("taskId", id), zap.Error(err))
		return
	}

	taskCtx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.running[id] = cancel
	o.mu.Unlock()
	defer func() {
		cancel()
		o.mu.Lock()
		delete(o.running, id)
		o.mu.Unlock()
	}()

	pipeline := o.pipelines[task.Mode]
	result, err := pipeline.Run(taskCtx, task.AOI)
	if err != nil {
		kind := types.KindOf(err)
		logger.Warn("task failed",
			zap.String("taskId", id),
			zap.String("kind", string(kind)),
			zap.Error(err))
		if ferr := o.store.Fail(id, kind); ferr != nil {
			logger.Error("recording task failure", zap.String("taskId", id), zap.Error(ferr))
		}
		return
	}

	if cerr := o.store.Complete(id, result); cerr != nil {
		logger.Error("recording task result", zap.String("taskId", id), zap.Error(cerr))
		return
	}
	logger.Info("task succeeded", zap.String("taskId", id))
}
