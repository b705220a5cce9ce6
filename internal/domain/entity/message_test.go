package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameMessageRoundTrip(t *testing.T) {
	f := NewFrame(4, 2, 3, make([]byte, 24))
	f.SetMeta("user_data", 1)
	f.SetMeta("source_video", "line-2.mp4")

	data, err := json.Marshal(NewFrameMessage(f))
	require.NoError(t, err)

	var msg FrameMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	got, err := msg.ToFrame()
	require.NoError(t, err)

	assert.Equal(t, f.ID, got.ID)
	assert.Equal(t, f.Plane.Pixels, got.Plane.Pixels)
	// Metadata keys written upstream arrive present and unaltered.
	assert.Equal(t, float64(1), got.Meta["user_data"])
	assert.Equal(t, "line-2.mp4", got.Meta["source_video"])
}

func TestMalformedPlaneIsRejected(t *testing.T) {
	msg := FrameMessage{
		Plane: PlaneMessage{Width: 100, Height: 100, Channels: 3, Pixels: make([]byte, 10)},
	}

	f, err := msg.ToFrame()
	assert.Nil(t, f)
	assert.Error(t, err)
}

func TestMalformedAuxPlaneIsRejected(t *testing.T) {
	msg := FrameMessage{
		Plane: PlaneMessage{Width: 2, Height: 2, Channels: 1, Pixels: make([]byte, 4)},
		Aux:   []PlaneMessage{{Width: 8, Height: 8, Channels: 1, Pixels: nil}},
	}

	f, err := msg.ToFrame()
	assert.Nil(t, f)
	assert.Error(t, err)
}

func TestToFrameFillsIdentityAndMetadata(t *testing.T) {
	msg := FrameMessage{
		Plane: PlaneMessage{Width: 2, Height: 2, Channels: 1, Pixels: make([]byte, 4)},
	}

	f, err := msg.ToFrame()
	require.NoError(t, err)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", f.ID.String())
	assert.NotNil(t, f.Meta)
}
