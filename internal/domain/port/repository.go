package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/open-edge-insights/video-common/internal/domain/entity"
)

// EventRepository records admitted key frames.
type EventRepository interface {
	Record(ctx context.Context, ev *entity.KeyFrameEvent) error
	FindByFrameID(ctx context.Context, frameID uuid.UUID) (*entity.KeyFrameEvent, error)
}
