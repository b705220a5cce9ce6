package entity

import (
	"time"

	"github.com/google/uuid"
)

// KeyFrameEvent is the persistent record written for every frame a stage
// admits. Events are append-only; a frame itself is transient but the
// fact that it triggered survives for offline tuning.
type KeyFrameEvent struct {
	ID         uuid.UUID
	FrameID    uuid.UUID
	StageName  string
	UserData   int
	Width      int
	Height     int
	Meta       Metadata
	DetectedAt time.Time
}

// NewKeyFrameEvent captures an admitted frame as an event. The user_data
// marker is lifted out of the frame metadata when present.
func NewKeyFrameEvent(f *Frame, stageName string) *KeyFrameEvent {
	ev := &KeyFrameEvent{
		ID:         uuid.New(),
		FrameID:    f.ID,
		StageName:  stageName,
		Width:      f.Plane.Width,
		Height:     f.Plane.Height,
		Meta:       f.Meta,
		DetectedAt: time.Now().UTC(),
	}
	switch v := f.Meta["user_data"].(type) {
	case int:
		ev.UserData = v
	case float64:
		ev.UserData = int(v)
	}
	return ev
}
