package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/open-edge-insights/video-common/internal/infra/config"
	"github.com/open-edge-insights/video-common/internal/infra/metrics"
	miniostorage "github.com/open-edge-insights/video-common/internal/infra/minio"
	"github.com/open-edge-insights/video-common/internal/infra/postgres"
	"github.com/open-edge-insights/video-common/internal/infra/queue"
	"github.com/open-edge-insights/video-common/internal/infra/rabbitmq"
	"github.com/open-edge-insights/video-common/internal/infra/tracing"
	"github.com/open-edge-insights/video-common/internal/infra/vision"
	"github.com/open-edge-insights/video-common/internal/stage"
	"github.com/open-edge-insights/video-common/internal/stage/keyframe"
	"github.com/open-edge-insights/video-common/internal/stage/passthrough"
	"github.com/open-edge-insights/video-common/internal/usecase"
	"github.com/open-edge-insights/video-common/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting stage host", zap.String("stage", cfg.StageName))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if the collector is unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.OTLPEndpoint)
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(ctx)
	}

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	err = postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir)
	if err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

	// MinIO training-frame store
	store, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:       cfg.MinIOEndpoint,
		AccessKey:      cfg.MinIOAccessKey,
		SecretKey:      cfg.MinIOSecretKey,
		UseSSL:         cfg.MinIOUseSSL,
		TrainingBucket: cfg.TrainingBucket,
	})
	fatalOnErr(err, "create minio storage")
	fatalOnErr(store.EnsureBucket(ctx), "ensure training bucket")

	// Stage registry: the static registration table, populated before
	// any load is attempted.
	analyzer := vision.NewAnalyzer()
	defer analyzer.Close()
	stage.Register(keyframe.StageName, keyframe.Factory(analyzer, store, log))
	stage.Register(passthrough.StageName, passthrough.Factory())

	// Queue pair around the hosted stage
	inQueue := queue.NewChannel(cfg.QueueCapacity)
	outQueue := queue.NewChannel(cfg.QueueCapacity)

	stageCfg, err := cfg.ParseStageConfig()
	fatalOnErr(err, "parse stage config")

	st, err := stage.Load(cfg.StageName, stageCfg, inQueue, outQueue)
	fatalOnErr(err, "load stage")

	runner, err := stage.NewRunner(st, stageCfg, inQueue, outQueue, log)
	fatalOnErr(err, "create stage runner")

	// RabbitMQ publisher connection
	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq for publisher")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")
	keyPub := rabbitmq.NewKeyFramePublisher(pub, cfg.KeyRoutingKey)

	repo := postgres.NewEventRepository(pool)
	forward := usecase.NewForwardKeyFrames(outQueue, repo, keyPub, cfg.StageName, log)

	// Metrics server
	metricsSrv := metrics.StartServer(cfg.MetricsPort, log)

	// Frame ingest
	ingest, err := rabbitmq.NewIngest(rabbitmq.IngestConfig{
		URL:           cfg.RabbitMQURL,
		Exchange:      cfg.RabbitMQExchange,
		RawQueue:      cfg.RawFrameQueue,
		RawRoutingKey: cfg.RawRoutingKey,
		KeyQueue:      cfg.KeyFrameQueue,
		KeyRoutingKey: cfg.KeyRoutingKey,
		Prefetch:      cfg.RabbitMQPrefetch,
	}, inQueue, log)
	fatalOnErr(err, "create frame ingest")

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	fatalOnErr(runner.Start(ctx), "start stage runner")
	go forward.Run(ctx)

	log.Info("stage host started, consuming frames")

	if err := ingest.Start(ctx); err != nil {
		log.Error("frame ingest error", zap.Error(err))
	}

	// Shutdown: signal the pool without blocking on it, then join.
	runner.Stop()
	runner.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	ingest.Close()
	log.Info("stage host stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
