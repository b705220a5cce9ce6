package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PlaneMessage is the wire form of one pixel plane. Pixels travel
// base64-encoded inside the JSON document.
type PlaneMessage struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Channels int    `json:"channels"`
	Pixels   []byte `json:"pixels"`
}

// FrameMessage is the message exchanged on the frames queues: raw frames
// inbound from producers, key frames outbound to consumers.
type FrameMessage struct {
	FrameID    uuid.UUID      `json:"frame_id"`
	Plane      PlaneMessage   `json:"plane"`
	Aux        []PlaneMessage `json:"aux,omitempty"`
	CapturedAt time.Time      `json:"captured_at"`
	Metadata   Metadata       `json:"metadata,omitempty"`
}

// NewFrameMessage converts a frame to its wire form.
func NewFrameMessage(f *Frame) FrameMessage {
	msg := FrameMessage{
		FrameID:    f.ID,
		Plane:      planeMessage(f.Plane),
		CapturedAt: f.CapturedAt,
		Metadata:   f.Meta,
	}
	for _, p := range f.Aux {
		msg.Aux = append(msg.Aux, planeMessage(p))
	}
	return msg
}

// ToFrame converts a wire message back into a frame, validating plane
// geometry so malformed payloads are rejected at the boundary.
func (m FrameMessage) ToFrame() (*Frame, error) {
	f := &Frame{
		ID:         m.FrameID,
		Plane:      plane(m.Plane),
		CapturedAt: m.CapturedAt,
		Meta:       m.Metadata,
	}
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.Meta == nil {
		f.Meta = Metadata{}
	}
	if !f.Plane.Valid() {
		return nil, fmt.Errorf("frame %s: plane geometry %dx%dx%d does not match %d pixel bytes",
			f.ID, m.Plane.Width, m.Plane.Height, m.Plane.Channels, len(m.Plane.Pixels))
	}
	for i, p := range m.Aux {
		aux := plane(p)
		if !aux.Valid() {
			return nil, fmt.Errorf("frame %s: aux plane %d is malformed", f.ID, i)
		}
		f.Aux = append(f.Aux, aux)
	}
	return f, nil
}

func planeMessage(p Plane) PlaneMessage {
	return PlaneMessage{Width: p.Width, Height: p.Height, Channels: p.Channels, Pixels: p.Pixels}
}

func plane(m PlaneMessage) Plane {
	return Plane{Width: m.Width, Height: m.Height, Channels: m.Channels, Pixels: m.Pixels}
}
