package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcrabbitmq "github.com/testcontainers/testcontainers-go/modules/rabbitmq"

	"github.com/open-edge-insights/video-common/internal/domain/entity"
	"github.com/open-edge-insights/video-common/internal/domain/port"
	miniostorage "github.com/open-edge-insights/video-common/internal/infra/minio"
	"github.com/open-edge-insights/video-common/internal/infra/postgres"
	"github.com/open-edge-insights/video-common/internal/infra/queue"
	"github.com/open-edge-insights/video-common/internal/infra/rabbitmq"
	"github.com/open-edge-insights/video-common/internal/stage"
	"github.com/open-edge-insights/video-common/internal/stage/keyframe"
	"github.com/open-edge-insights/video-common/internal/usecase"
	"github.com/open-edge-insights/video-common/pkg/logger"
)

// stripAnalyzer is a deterministic stand-in for the OpenCV analyzer: a
// frame whose first pixel is 255 reads as a centered object, everything
// else reads as background.
type stripAnalyzer struct{}

func (stripAnalyzer) Analyze(f *entity.Frame) (port.FrameAnalysis, error) {
	a := port.FrameAnalysis{Cols: f.Plane.Width, Rows: f.Plane.Height}
	if len(f.Plane.Pixels) > 0 && f.Plane.Pixels[0] == 255 {
		a.ForegroundPx = 1 << 20
		a.HasObject = true
		w := f.Plane.Width
		a.Box.Min.X = w/2 - 50
		a.Box.Max.X = w/2 + 50
		a.Box.Max.Y = f.Plane.Height
	}
	return a, nil
}

func (stripAnalyzer) Close() error { return nil }

func TestKeyFramePipelineEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	log, err := logger.New("debug")
	require.NoError(t, err)

	// Start PostgreSQL container
	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("events"),
		tcpostgres.WithUsername("frames_user"),
		tcpostgres.WithPassword("frames_pass"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	defer pgContainer.Terminate(ctx)

	pgConnStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Start RabbitMQ container
	rmqContainer, err := tcrabbitmq.Run(ctx,
		"rabbitmq:3.12-management-alpine",
	)
	require.NoError(t, err)
	defer rmqContainer.Terminate(ctx)

	rmqURL, err := rmqContainer.AmqpURL(ctx)
	require.NoError(t, err)

	// Start MinIO container
	minioContainer, err := tcminio.Run(ctx,
		"minio/minio:latest",
		tcminio.WithUsername("minioadmin"),
		tcminio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	defer minioContainer.Terminate(ctx)

	minioEndpoint, err := minioContainer.ConnectionString(ctx)
	require.NoError(t, err)

	// Migrations + repository
	require.NoError(t, postgres.RunMigrations(pgConnStr, "../../migrations"))
	pool, err := pgxpool.New(ctx, pgConnStr)
	require.NoError(t, err)
	defer pool.Close()
	repo := postgres.NewEventRepository(pool)

	// Training store (exercised separately below)
	store, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:       minioEndpoint,
		AccessKey:      "minioadmin",
		SecretKey:      "minioadmin",
		TrainingBucket: "training-frames",
	})
	require.NoError(t, err)
	require.NoError(t, store.EnsureBucket(ctx))

	// Stage wiring
	stage.Register("pcb_filter_itest", keyframe.Factory(stripAnalyzer{}, store, log))

	inQueue := queue.NewChannel(16)
	outQueue := queue.NewChannel(16)

	stageCfg := entity.StageConfig{
		"max_workers":   1,
		"n_total_px":    300000,
		"n_left_px":     1000,
		"n_right_px":    1000,
		"training_mode": false,
	}

	st, err := stage.Load("pcb_filter_itest", stageCfg, inQueue, outQueue)
	require.NoError(t, err)
	runner, err := stage.NewRunner(st, stageCfg, inQueue, outQueue, log)
	require.NoError(t, err)

	ingestCfg := rabbitmq.IngestConfig{
		URL:           rmqURL,
		Exchange:      "videocommon.frames.itest",
		RawQueue:      "frames.raw.itest",
		RawRoutingKey: "frames.raw",
		KeyQueue:      "frames.key.itest",
		KeyRoutingKey: "frames.key",
		Prefetch:      5,
	}
	ingest, err := rabbitmq.NewIngest(ingestCfg, inQueue, log)
	require.NoError(t, err)
	defer ingest.Close()

	pubConn, err := amqp.Dial(rmqURL)
	require.NoError(t, err)
	defer pubConn.Close()

	pub, err := rabbitmq.NewPublisher(pubConn, ingestCfg.Exchange)
	require.NoError(t, err)
	keyPub := rabbitmq.NewKeyFramePublisher(pub, ingestCfg.KeyRoutingKey)
	rawPub := rabbitmq.NewRawFramePublisher(pub, ingestCfg.RawRoutingKey)

	forward := usecase.NewForwardKeyFrames(outQueue, repo, keyPub, "pcb_filter_itest", log)

	runCtx, stopAll := context.WithCancel(ctx)
	defer stopAll()
	require.NoError(t, runner.Start(runCtx))
	go forward.Run(runCtx)
	go ingest.Start(runCtx)

	// Subscribe the key-frames queue like a downstream consumer would.
	subConn, err := amqp.Dial(rmqURL)
	require.NoError(t, err)
	defer subConn.Close()
	subCh, err := subConn.Channel()
	require.NoError(t, err)
	keyFrames, err := subCh.ConsumeWithContext(runCtx, ingestCfg.KeyQueue, "", true, false, false, false, nil)
	require.NoError(t, err)

	// One interesting frame among ten boring ones.
	interesting := entity.NewFrame(640, 480, 1, make([]byte, 640*480))
	interesting.Plane.Pixels[0] = 255
	interesting.SetMeta("source_video", "itest.mp4")
	require.NoError(t, rawPub.PublishFrame(ctx, interesting))
	for i := 0; i < 9; i++ {
		require.NoError(t, rawPub.PublishFrame(ctx, entity.NewFrame(640, 480, 1, make([]byte, 640*480))))
	}

	var delivered entity.FrameMessage
	select {
	case d := <-keyFrames:
		require.NoError(t, json.Unmarshal(d.Body, &delivered))
	case <-time.After(60 * time.Second):
		t.Fatal("no key frame arrived downstream")
	}

	// The admitted frame carries its upstream metadata plus the trigger
	// marker, nothing lost.
	assert.Equal(t, interesting.ID, delivered.FrameID)
	assert.Equal(t, float64(1), delivered.Metadata["user_data"])
	assert.Equal(t, "itest.mp4", delivered.Metadata["source_video"])

	// The event record landed in postgres.
	require.Eventually(t, func() bool {
		ev, err := repo.FindByFrameID(ctx, interesting.ID)
		return err == nil && ev.UserData == 1
	}, 30*time.Second, 500*time.Millisecond)

	// And exactly one frame was admitted.
	time.Sleep(2 * time.Second)
	_, err = repo.FindByFrameID(ctx, uuid.New())
	assert.Error(t, err, "no spurious events")
}

func TestTrainingStorePersistsPNG(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	minioContainer, err := tcminio.Run(ctx,
		"minio/minio:latest",
		tcminio.WithUsername("minioadmin"),
		tcminio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	defer minioContainer.Terminate(ctx)

	endpoint, err := minioContainer.ConnectionString(ctx)
	require.NoError(t, err)

	store, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:       endpoint,
		AccessKey:      "minioadmin",
		SecretKey:      "minioadmin",
		TrainingBucket: "training-frames",
	})
	require.NoError(t, err)
	require.NoError(t, store.EnsureBucket(ctx))

	f := entity.NewFrame(8, 8, 3, make([]byte, 8*8*3))
	require.NoError(t, store.StoreFrame(ctx, "pcb_filter", f))

	malformed := entity.NewFrame(8, 8, 3, make([]byte, 5))
	assert.Error(t, store.StoreFrame(ctx, "pcb_filter", malformed))
}
