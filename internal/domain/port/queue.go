package port

import (
	"context"

	"github.com/open-edge-insights/video-common/internal/domain/entity"
)

// FrameQueue carries frames between pipeline stages. Implementations
// must be safe for arbitrarily many concurrent producers and consumers;
// no ordering is promised beyond what an implementation documents.
//
// Put and Take block until the operation completes or ctx is done, in
// which case they return ctx's error.
type FrameQueue interface {
	Put(ctx context.Context, f *entity.Frame) error
	Take(ctx context.Context) (*entity.Frame, error)
}
