package stage

import (
	"sync"

	"github.com/open-edge-insights/video-common/internal/domain/entity"
	"github.com/open-edge-insights/video-common/internal/domain/port"
)

// Factory constructs a stage from its configuration and queue pair.
// Every factory takes the full triple; stages with no external
// dependencies simply ignore the arguments they do not need.
type Factory func(cfg entity.StageConfig, in, out port.FrameQueue) (port.Stage, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a stage factory to the static registration table under
// the given stage-type name. Later registrations of the same name win,
// which lets tests shadow builtins.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Registered reports whether a stage-type name is known.
func Registered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

func lookup(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}
