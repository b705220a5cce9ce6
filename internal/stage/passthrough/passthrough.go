// Package passthrough provides a stateless stage that admits every
// frame, stamping a marker so downstream consumers can see it ran. It
// doubles as the smallest example of the uniform factory shape: it
// needs neither configuration keys nor queues and ignores all three.
package passthrough

import (
	"context"

	"github.com/open-edge-insights/video-common/internal/domain/entity"
	"github.com/open-edge-insights/video-common/internal/domain/port"
	"github.com/open-edge-insights/video-common/internal/stage"
)

// StageName is the registry name of the stage.
const StageName = "dummy"

type Stage struct {
	name string
}

// Factory returns the uniform stage factory for registration.
func Factory() stage.Factory {
	return func(_ entity.StageConfig, _, _ port.FrameQueue) (port.Stage, error) {
		return &Stage{}, nil
	}
}

func (s *Stage) Name() string        { return s.name }
func (s *Stage) SetName(name string) { s.name = name }

// Process admits the frame unchanged apart from the visit marker.
func (s *Stage) Process(_ context.Context, frame *entity.Frame) (*entity.Frame, bool, error) {
	frame.SetMeta("dummy_visited", true)
	return frame, true, nil
}
