package usecase

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/open-edge-insights/video-common/internal/domain/entity"
	"github.com/open-edge-insights/video-common/internal/domain/port"
	"github.com/open-edge-insights/video-common/internal/infra/metrics"
)

// ForwardKeyFrames is the downstream consumer of the stage's output
// queue: it records every admitted frame as an event and republishes it
// on the key-frames transport. It honors the cumulative-metadata
// contract, forwarding whatever keys the stage wrote without assuming a
// fixed set.
type ForwardKeyFrames struct {
	output    port.FrameQueue
	repo      port.EventRepository
	publisher port.FramePublisher
	stageName string
	logger    *zap.Logger
}

func NewForwardKeyFrames(
	output port.FrameQueue,
	repo port.EventRepository,
	publisher port.FramePublisher,
	stageName string,
	logger *zap.Logger,
) *ForwardKeyFrames {
	return &ForwardKeyFrames{
		output:    output,
		repo:      repo,
		publisher: publisher,
		stageName: stageName,
		logger:    logger,
	}
}

// Run drains the output queue until ctx is done.
func (u *ForwardKeyFrames) Run(ctx context.Context) error {
	for {
		frame, err := u.output.Take(ctx)
		if err != nil {
			return nil
		}
		u.forward(ctx, frame)
	}
}

func (u *ForwardKeyFrames) forward(ctx context.Context, frame *entity.Frame) {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ForwardKeyFrames.forward")
	span.SetAttributes(attribute.String("frame.id", frame.ID.String()))
	defer span.End()

	log := u.logger.With(zap.String("frame_id", frame.ID.String()))

	// Losing the record must not lose the frame, and vice versa: each
	// failure is logged and the other path still runs.
	ev := entity.NewKeyFrameEvent(frame, u.stageName)
	if err := u.repo.Record(ctx, ev); err != nil {
		log.Error("failed to record key frame event", zap.Error(err))
	}

	if err := u.publisher.PublishKeyFrame(ctx, frame); err != nil {
		log.Error("failed to publish key frame", zap.Error(err))
		return
	}

	metrics.KeyFramesPublishedTotal.Inc()
	log.Info("key frame forwarded", zap.String("stage", u.stageName))
}
