package port

import (
	"context"

	"github.com/open-edge-insights/video-common/internal/domain/entity"
)

// FramePublisher pushes admitted frames to the downstream transport.
type FramePublisher interface {
	PublishKeyFrame(ctx context.Context, f *entity.Frame) error
}
