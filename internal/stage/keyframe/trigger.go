// Package keyframe implements the PCB visual trigger: a stateful stage
// that admits a frame only when the tracked object is fully in view and
// centered, then holds the trigger closed for a fixed number of frames
// to suppress duplicate detections of the same physical pass.
package keyframe

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/open-edge-insights/video-common/internal/domain/entity"
	"github.com/open-edge-insights/video-common/internal/domain/port"
	"github.com/open-edge-insights/video-common/internal/infra/metrics"
	"github.com/open-edge-insights/video-common/internal/stage"
)

// StageName is the registry name of the trigger.
const StageName = "pcb_filter"

const (
	// holdFrames is the debounce window: after a trigger the lock holds
	// for this many frames, and the frame on which the count reaches it
	// is evaluated fresh.
	holdFrames = 7

	// defaultCenterTolerance is the half-width, in pixels, of the band
	// around the frame's horizontal midpoint the object center must
	// fall into.
	defaultCenterTolerance = 100
)

// Trigger is the debounced key-frame decision stage. All state below is
// private to one instance and unsynchronized: hosting a Trigger with
// more than one worker leaves the lock and counter ordering undefined,
// which is the caller's responsibility to avoid.
type Trigger struct {
	analyzer port.FrameAnalyzer
	store    port.FrameStore
	logger   *zap.Logger
	name     string

	minTotalPx int
	maxLeftPx  int
	maxRightPx int
	centerTol  int
	training   bool

	locked         bool
	lockFrameCount int
}

// Factory binds the trigger's collaborators and returns the uniform
// stage factory for registration. The analyzer is mandatory; the store
// is required only when training_mode is set.
func Factory(analyzer port.FrameAnalyzer, store port.FrameStore, logger *zap.Logger) stage.Factory {
	return func(cfg entity.StageConfig, _, _ port.FrameQueue) (port.Stage, error) {
		return New(cfg, analyzer, store, logger)
	}
}

// New constructs the trigger from its configuration. Required keys:
// n_total_px, n_left_px, n_right_px, training_mode. Optional:
// center_tolerance_px.
func New(cfg entity.StageConfig, analyzer port.FrameAnalyzer, store port.FrameStore, logger *zap.Logger) (*Trigger, error) {
	t := &Trigger{
		analyzer: analyzer,
		store:    store,
		logger:   logger,
	}

	var err error
	if t.minTotalPx, err = cfg.Int("n_total_px"); err != nil {
		return nil, err
	}
	if t.maxLeftPx, err = cfg.Int("n_left_px"); err != nil {
		return nil, err
	}
	if t.maxRightPx, err = cfg.Int("n_right_px"); err != nil {
		return nil, err
	}
	if t.training, err = cfg.Bool("training_mode"); err != nil {
		return nil, err
	}
	if t.centerTol, err = cfg.IntOr("center_tolerance_px", defaultCenterTolerance); err != nil {
		return nil, err
	}

	if analyzer == nil {
		return nil, fmt.Errorf("key-frame trigger requires a frame analyzer")
	}
	if t.training && store == nil {
		return nil, &entity.ConfigError{Key: "training_mode", Reason: "requires a frame store"}
	}
	return t, nil
}

func (t *Trigger) Name() string        { return t.name }
func (t *Trigger) SetName(name string) { t.name = name }

// Process runs the debounced admit/drop decision for one frame.
//
// In training mode the decision is bypassed entirely: the frame is
// persisted for offline tuning and never admitted, and storage failures
// are reported without failing the invocation.
//
// Otherwise the lock state machine runs. While locked, the analyzer is
// still invoked so the background model stays current, but nothing is
// admitted; when the hold window has elapsed the frame in hand is
// evaluated fresh. An analyzer failure is fatal for the invocation
// only: the error disqualifies the offending frame, never the stage.
func (t *Trigger) Process(ctx context.Context, frame *entity.Frame) (*entity.Frame, bool, error) {
	if t.training {
		if err := t.store.StoreFrame(ctx, t.name, frame); err != nil {
			t.logger.Warn("training frame not persisted",
				zap.String("frame_id", frame.ID.String()), zap.Error(err))
		} else {
			metrics.TrainingFramesStoredTotal.Inc()
		}
		return nil, false, nil
	}

	if t.locked {
		t.lockFrameCount++
		if t.lockFrameCount < holdFrames {
			// The background model must see every frame, locked or not.
			if _, err := t.analyzer.Analyze(frame); err != nil {
				return nil, false, err
			}
			return nil, false, nil
		}
		t.locked = false
	}

	interesting, err := t.checkFrame(frame)
	if err != nil {
		return nil, false, err
	}
	if !interesting {
		return nil, false, nil
	}

	t.locked = true
	t.lockFrameCount = 0
	frame.SetMeta("user_data", 1)
	t.logger.Debug("key frame detected", zap.String("frame_id", frame.ID.String()))
	return frame, true, nil
}

// checkFrame runs the vision decision: the object must be large enough,
// clear of both lateral edges at the mask level, bounded by a contour
// box that also clears both edges, and horizontally centered.
func (t *Trigger) checkFrame(frame *entity.Frame) (bool, error) {
	a, err := t.analyzer.Analyze(frame)
	if err != nil {
		return false, err
	}

	if a.ForegroundPx <= t.minTotalPx || a.LeftEdgePx >= t.maxLeftPx || a.RightEdgePx >= t.maxRightPx {
		return false, nil
	}
	if !a.HasObject {
		return false, nil
	}

	if a.Box.Min.X == 0 || a.Box.Max.X == a.Cols {
		return false, nil
	}
	center := a.Box.Min.X + a.Box.Dx()/2
	mid := a.Cols / 2
	return mid-t.centerTol <= center && center <= mid+t.centerTol, nil
}
