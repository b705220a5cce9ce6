package passthrough

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-edge-insights/video-common/internal/domain/entity"
)

func TestAdmitsEveryFrame(t *testing.T) {
	s, err := Factory()(nil, nil, nil)
	require.NoError(t, err)
	s.SetName(StageName)

	f := entity.NewFrame(2, 2, 1, make([]byte, 4))
	f.SetMeta("origin", "camera-1")

	out, admit, err := s.Process(context.Background(), f)
	require.NoError(t, err)
	assert.True(t, admit)
	assert.Same(t, f, out)
	assert.Equal(t, true, out.Meta["dummy_visited"])
	assert.Equal(t, "camera-1", out.Meta["origin"])
}
