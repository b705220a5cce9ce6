package port

import (
	"context"

	"github.com/open-edge-insights/video-common/internal/domain/entity"
)

// Stage is the unit of pluggable per-frame logic hosted between two
// queues. Process returns the frame to forward (nil means forward the
// input unchanged), an admission verdict, and an error scoped to this
// single invocation. A stage must never touch queues directly; only its
// hosting runner does.
//
// A stage that keeps temporal state across invocations is only
// well-defined under a single-worker pool.
type Stage interface {
	Process(ctx context.Context, frame *entity.Frame) (out *entity.Frame, admit bool, err error)
	Name() string
	SetName(name string)
}
