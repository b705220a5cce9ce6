// Package vision adapts OpenCV (via gocv) to the FrameAnalyzer port:
// MOG2 background subtraction, Otsu binarization, morphological closing
// and external-contour extraction over raw frame buffers.
package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/open-edge-insights/video-common/internal/domain/entity"
	"github.com/open-edge-insights/video-common/internal/domain/port"
)

const (
	// edgeStripWidth is the width, in pixels, of the lateral strips
	// whose foreground counts gate the decision.
	edgeStripWidth = 10

	// closeKernelSize is the structuring-element size for the
	// morphological close that fills small mask gaps.
	closeKernelSize = 20
)

// Analyzer holds the running MOG2 background model. Every Analyze call
// updates the model, so one Analyzer serves exactly one frame sequence
// and must not be shared across stage instances or goroutines.
type Analyzer struct {
	mog2   gocv.BackgroundSubtractorMOG2
	kernel gocv.Mat
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{
		mog2: gocv.NewBackgroundSubtractorMOG2(),
		kernel: gocv.GetStructuringElement(gocv.MorphRect,
			image.Pt(closeKernelSize, closeKernelSize)),
	}
}

// Analyze feeds the frame's primary plane through the background model
// and summarizes the resulting foreground mask. A malformed plane is an
// error; no default mask is ever substituted.
func (a *Analyzer) Analyze(f *entity.Frame) (port.FrameAnalysis, error) {
	var out port.FrameAnalysis

	p := f.Plane
	if !p.Valid() {
		return out, fmt.Errorf("frame %s: plane geometry %dx%dx%d does not match %d pixel bytes",
			f.ID, p.Width, p.Height, p.Channels, len(p.Pixels))
	}

	var matType gocv.MatType
	switch p.Channels {
	case 1:
		matType = gocv.MatTypeCV8UC1
	case 3:
		matType = gocv.MatTypeCV8UC3
	default:
		return out, fmt.Errorf("frame %s: unsupported channel count %d", f.ID, p.Channels)
	}

	mat, err := gocv.NewMatFromBytes(p.Height, p.Width, matType, p.Pixels)
	if err != nil {
		return out, fmt.Errorf("frame %s: wrap pixels: %w", f.ID, err)
	}
	defer mat.Close()

	fg := gocv.NewMat()
	defer fg.Close()
	a.mog2.Apply(mat, &fg)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(fg, &thresh, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)
	gocv.MorphologyEx(thresh, &thresh, gocv.MorphClose, a.kernel)

	out.Cols = p.Width
	out.Rows = p.Height
	out.ForegroundPx = gocv.CountNonZero(thresh)

	left := thresh.Region(image.Rect(0, 0, min(edgeStripWidth, p.Width), p.Height))
	out.LeftEdgePx = gocv.CountNonZero(left)
	left.Close()

	right := thresh.Region(image.Rect(max(0, p.Width-edgeStripWidth), 0, p.Width, p.Height))
	out.RightEdgePx = gocv.CountNonZero(right)
	right.Close()

	contours := gocv.FindContours(thresh, gocv.RetrievalExternal, gocv.ChainApproxNone)
	defer contours.Close()

	// The largest external contour is assumed to bound the object of
	// interest.
	best := -1
	bestArea := 0.0
	for i := 0; i < contours.Size(); i++ {
		area := gocv.ContourArea(contours.At(i))
		if area > bestArea {
			bestArea = area
			best = i
		}
	}
	if best >= 0 {
		out.HasObject = true
		out.Box = gocv.BoundingRect(contours.At(best))
	}

	return out, nil
}

// Close releases the background model and kernel.
func (a *Analyzer) Close() error {
	a.kernel.Close()
	return a.mog2.Close()
}
