package port

import (
	"image"

	"github.com/open-edge-insights/video-common/internal/domain/entity"
)

// FrameAnalysis summarizes the foreground mask a background-subtraction
// pass produced for one frame: pixel counts over the full mask and the
// lateral edge strips, plus the bounding box of the largest external
// contour when one exists.
type FrameAnalysis struct {
	Cols         int
	Rows         int
	ForegroundPx int
	LeftEdgePx   int
	RightEdgePx  int
	HasObject    bool
	Box          image.Rectangle
}

// FrameAnalyzer wraps the vision primitives (background subtraction,
// adaptive thresholding, morphology, contour extraction) as one opaque
// operation. Every call updates the running background model, so the
// analyzer must be invoked for bookkeeping even when its result is
// ignored. Not safe for concurrent use.
type FrameAnalyzer interface {
	Analyze(f *entity.Frame) (FrameAnalysis, error)
	Close() error
}
