package stage

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/open-edge-insights/video-common/internal/domain/entity"
	"github.com/open-edge-insights/video-common/internal/infra/queue"
)

func newTestRunner(t *testing.T, s *fakeStage, workers int) (*Runner, *queue.Channel, *queue.Channel) {
	t.Helper()
	in := queue.NewChannel(16)
	out := queue.NewChannel(16)
	cfg := entity.StageConfig{"max_workers": workers}
	r, err := NewRunner(s, cfg, in, out, zaptest.NewLogger(t))
	require.NoError(t, err)
	return r, in, out
}

func testFrame() *entity.Frame {
	return entity.NewFrame(4, 4, 1, make([]byte, 16))
}

func TestRunnerSpawnsConfiguredWorkers(t *testing.T) {
	r, _, _ := newTestRunner(t, &fakeStage{name: "pool"}, 3)

	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	assert.Eventually(t, func() bool { return r.LiveWorkers() == 3 },
		time.Second, 5*time.Millisecond)
	assert.True(t, r.Running())
}

func TestRunnerForwardsAdmittedFrames(t *testing.T) {
	r, in, out := newTestRunner(t, &fakeStage{name: "admit", admit: true}, 1)

	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	f := testFrame()
	f.SetMeta("origin", "camera-1")
	require.NoError(t, in.Put(context.Background(), f))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := out.Take(ctx)
	require.NoError(t, err)

	// Metadata written upstream survives the hop unaltered.
	assert.Equal(t, f.ID, got.ID)
	assert.Equal(t, "camera-1", got.Meta["origin"])
}

func TestRunnerDiscardsRejectedFrames(t *testing.T) {
	var seen atomic.Int32
	s := &fakeStage{name: "reject", process: func(*entity.Frame) (*entity.Frame, bool, error) {
		seen.Add(1)
		return nil, false, nil
	}}
	r, in, out := newTestRunner(t, s, 1)

	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	require.NoError(t, in.Put(context.Background(), testFrame()))

	assert.Eventually(t, func() bool { return seen.Load() == 1 },
		time.Second, 5*time.Millisecond)
	assert.Zero(t, out.Len())
}

func TestRunnerSurvivesProcessingError(t *testing.T) {
	var calls atomic.Int32
	s := &fakeStage{name: "flaky", process: func(*entity.Frame) (*entity.Frame, bool, error) {
		if calls.Add(1) == 1 {
			return nil, false, errors.New("malformed frame")
		}
		return nil, true, nil
	}}
	r, in, out := newTestRunner(t, s, 1)

	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	require.NoError(t, in.Put(context.Background(), testFrame()))
	require.NoError(t, in.Put(context.Background(), testFrame()))

	// The bad frame is dropped; the worker keeps going and the next
	// frame still makes it through.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := out.Take(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRunnerStopDoesNotBlock(t *testing.T) {
	r, in, _ := newTestRunner(t, &fakeStage{name: "stop"}, 2)

	require.NoError(t, r.Start(context.Background()))
	for i := 0; i < 10; i++ {
		require.NoError(t, in.Put(context.Background(), testFrame()))
	}

	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on outstanding queue depth")
	}

	r.Wait()
	assert.Zero(t, r.LiveWorkers())
}

func TestRunnerStopIsIdempotent(t *testing.T) {
	r, _, _ := newTestRunner(t, &fakeStage{name: "idem"}, 2)

	require.NoError(t, r.Start(context.Background()))
	r.Stop()
	r.Wait()

	assert.NotPanics(t, func() { r.Stop() })
	assert.Zero(t, r.LiveWorkers())
}

func TestRunnerNoDequeueAfterStop(t *testing.T) {
	var processed atomic.Int32
	s := &fakeStage{name: "halt", process: func(*entity.Frame) (*entity.Frame, bool, error) {
		processed.Add(1)
		return nil, false, nil
	}}
	r, in, _ := newTestRunner(t, s, 1)

	require.NoError(t, r.Start(context.Background()))
	r.Stop()
	r.Wait()

	require.NoError(t, in.Put(context.Background(), testFrame()))
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, processed.Load())
	assert.Equal(t, 1, in.Len())
}

func TestRunnerIsSingleUse(t *testing.T) {
	r, _, _ := newTestRunner(t, &fakeStage{name: "once"}, 1)

	require.NoError(t, r.Start(context.Background()))
	r.Stop()
	r.Wait()

	assert.ErrorIs(t, r.Start(context.Background()), ErrRunnerUsed)
}
