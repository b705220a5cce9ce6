package port

import (
	"context"

	"github.com/open-edge-insights/video-common/internal/domain/entity"
)

// FrameStore persists whole frames for offline model tuning (training
// mode capture).
type FrameStore interface {
	StoreFrame(ctx context.Context, stageName string, f *entity.Frame) error
}
