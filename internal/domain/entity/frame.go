package entity

import (
	"time"

	"github.com/google/uuid"
)

// Metadata is the key-value annotation attached to a frame. Stages add
// entries in place; downstream consumers must treat the key set as
// cumulative, never fixed.
type Metadata map[string]any

// Plane is a single row-major pixel buffer. Channels is 1 for grayscale
// and 3 for BGR.
type Plane struct {
	Width    int
	Height   int
	Channels int
	Pixels   []byte
}

// Valid reports whether the buffer length matches the declared geometry.
func (p Plane) Valid() bool {
	return p.Width > 0 && p.Height > 0 && p.Channels > 0 &&
		len(p.Pixels) == p.Width*p.Height*p.Channels
}

// Frame is one unit of visual input flowing through the pipeline. The
// primary plane carries the image a stage operates on; Aux holds extra
// planes for multi-sensor input. A frame is owned by whichever queue
// currently holds it; once dequeued, the dequeuing worker owns it
// exclusively until it forwards or drops it.
type Frame struct {
	ID         uuid.UUID
	Plane      Plane
	Aux        []Plane
	CapturedAt time.Time
	Meta       Metadata
}

// NewFrame builds a frame around a single pixel plane with a fresh
// identity and an empty metadata map.
func NewFrame(width, height, channels int, pixels []byte) *Frame {
	return &Frame{
		ID: uuid.New(),
		Plane: Plane{
			Width:    width,
			Height:   height,
			Channels: channels,
			Pixels:   pixels,
		},
		CapturedAt: time.Now().UTC(),
		Meta:       Metadata{},
	}
}

// SetMeta writes one metadata entry, allocating the map if the frame
// arrived without one.
func (f *Frame) SetMeta(key string, value any) {
	if f.Meta == nil {
		f.Meta = Metadata{}
	}
	f.Meta[key] = value
}
