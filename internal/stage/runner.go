package stage

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/open-edge-insights/video-common/internal/domain/entity"
	"github.com/open-edge-insights/video-common/internal/domain/port"
	"github.com/open-edge-insights/video-common/internal/infra/metrics"
)

// ErrRunnerUsed is returned by Start on a runner that already ran. A
// runner is single-use: once stopped it is not restarted.
var ErrRunnerUsed = errors.New("stage runner already started")

const (
	stateCreated int32 = iota
	stateRunning
	stateStopping
	stateStopped
)

// Runner hosts one stage between its input and output queues with a
// fixed-size worker pool. The queues are the only state shared between
// workers; stage-internal state is never synchronized here, so a stage
// with temporal state must be hosted with a single worker.
type Runner struct {
	stage   port.Stage
	in, out port.FrameQueue
	workers int
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	live   atomic.Int32
	state  atomic.Int32
}

// NewRunner builds a runner for the given stage. The worker count comes
// from the same max_workers key the loader validated.
func NewRunner(s port.Stage, cfg entity.StageConfig, in, out port.FrameQueue, logger *zap.Logger) (*Runner, error) {
	workers, err := cfg.MaxWorkers()
	if err != nil {
		return nil, err
	}
	return &Runner{
		stage:   s,
		in:      in,
		out:     out,
		workers: workers,
		logger:  logger.With(zap.String("stage", s.Name())),
	}, nil
}

// Start spawns the worker pool. Each worker blocks on the input queue,
// invokes the stage and forwards admitted frames until Stop is called
// or the parent context is done.
func (r *Runner) Start(parent context.Context) error {
	if !r.state.CompareAndSwap(stateCreated, stateRunning) {
		return ErrRunnerUsed
	}

	r.ctx, r.cancel = context.WithCancel(parent)

	r.logger.Info("starting stage worker pool", zap.Int("workers", r.workers))
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	return nil
}

// Stop raises the cancellation signal and returns immediately: in-flight
// Process calls complete, no new dequeue begins once a worker observes
// the signal, and the caller is never blocked on worker completion.
// Callers that need drain guarantees use Wait. Stop is idempotent.
func (r *Runner) Stop() {
	if r.state.CompareAndSwap(stateRunning, stateStopping) {
		r.logger.Info("stopping stage worker pool")
		r.cancel()
	}
}

// Wait blocks until every worker has observed the stop signal and
// exited. It is the separate blocking join Stop deliberately is not.
func (r *Runner) Wait() {
	r.wg.Wait()
	r.state.CompareAndSwap(stateStopping, stateStopped)
}

// Running reports whether the pool has been started and not yet stopped.
func (r *Runner) Running() bool {
	return r.state.Load() == stateRunning
}

// LiveWorkers returns the number of workers currently in their loop.
func (r *Runner) LiveWorkers() int {
	return int(r.live.Load())
}

func (r *Runner) worker(id int) {
	defer r.wg.Done()
	r.live.Add(1)
	metrics.ActiveWorkers.WithLabelValues(r.stage.Name()).Inc()
	defer func() {
		r.live.Add(-1)
		metrics.ActiveWorkers.WithLabelValues(r.stage.Name()).Dec()
	}()

	log := r.logger.With(zap.Int("worker_id", id))
	log.Debug("worker started")

	for {
		frame, err := r.in.Take(r.ctx)
		if err != nil {
			// Cancellation is the only way Take fails.
			log.Debug("worker shutting down")
			return
		}
		r.processFrame(frame, log)
	}
}

func (r *Runner) processFrame(frame *entity.Frame, log *zap.Logger) {
	tracer := otel.Tracer("stage")
	ctx, span := tracer.Start(r.ctx, "Stage.Process")
	span.SetAttributes(
		attribute.String("stage.name", r.stage.Name()),
		attribute.String("frame.id", frame.ID.String()),
	)
	defer span.End()

	start := time.Now()
	out, admit, err := r.stage.Process(ctx, frame)
	metrics.ProcessDuration.WithLabelValues(r.stage.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		// One bad frame must not take the pool down: drop it, report,
		// keep consuming.
		perr := &ProcessingError{Stage: r.stage.Name(), Err: err}
		metrics.FramesProcessedTotal.WithLabelValues(r.stage.Name(), metrics.OutcomeError).Inc()
		log.Warn("frame dropped", zap.String("frame_id", frame.ID.String()), zap.Error(perr))
		return
	}

	if !admit {
		metrics.FramesProcessedTotal.WithLabelValues(r.stage.Name(), metrics.OutcomeRejected).Inc()
		return
	}

	if out == nil {
		out = frame
	}
	if err := r.out.Put(r.ctx, out); err != nil {
		// Shutdown raced the forward; the frame is lost by design.
		log.Debug("output enqueue aborted by shutdown", zap.String("frame_id", out.ID.String()))
		return
	}
	metrics.FramesProcessedTotal.WithLabelValues(r.stage.Name(), metrics.OutcomeAdmitted).Inc()
}
