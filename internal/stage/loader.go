package stage

import (
	"github.com/open-edge-insights/video-common/internal/domain/entity"
	"github.com/open-edge-insights/video-common/internal/domain/port"
)

// Load resolves a stage-type name against the registry and constructs
// the stage with its configuration and queue pair. It returns a
// *LoadError for an unknown name and an *entity.ConfigError when a
// required key is missing or invalid; in either case no stage escapes.
//
// Load has no side effects beyond construction: no worker is started.
func Load(name string, cfg entity.StageConfig, in, out port.FrameQueue) (port.Stage, error) {
	factory, ok := lookup(name)
	if !ok {
		return nil, &LoadError{Name: name}
	}

	// Every stage requires a pool size, whether or not its own logic
	// reads further keys.
	if _, err := cfg.MaxWorkers(); err != nil {
		return nil, err
	}

	s, err := factory(cfg, in, out)
	if err != nil {
		return nil, err
	}
	s.SetName(name)
	return s, nil
}
