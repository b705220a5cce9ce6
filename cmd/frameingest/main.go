// Command frameingest is the upstream producer: it splits a video file
// into still frames and publishes them on the raw-frames queue for a
// stage host to consume.
package main

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/open-edge-insights/video-common/internal/domain/entity"
	"github.com/open-edge-insights/video-common/internal/infra/config"
	"github.com/open-edge-insights/video-common/internal/infra/ffmpeg"
	"github.com/open-edge-insights/video-common/internal/infra/rabbitmq"
	"github.com/open-edge-insights/video-common/pkg/logger"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <video-file>\n", os.Args[0])
		os.Exit(2)
	}
	videoPath := os.Args[1]

	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	workDir, err := os.MkdirTemp("", "frameingest")
	fatalOnErr(err, "create work dir")
	defer os.RemoveAll(workDir)

	extractor := ffmpeg.NewExtractor(1, "png", log)
	result, err := extractor.ExtractFrames(ctx, videoPath, workDir)
	fatalOnErr(err, "extract frames")

	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create publisher")
	rawPub := rabbitmq.NewRawFramePublisher(pub, cfg.RawRoutingKey)

	published := 0
	for _, path := range result.FramePaths {
		frame, err := loadFrame(path)
		if err != nil {
			log.Warn("skipping unreadable frame", zap.String("path", path), zap.Error(err))
			continue
		}
		frame.SetMeta("source_video", videoPath)

		if err := rawPub.PublishFrame(ctx, frame); err != nil {
			log.Error("publish failed", zap.String("path", path), zap.Error(err))
			break
		}
		published++
	}

	log.Info("ingest finished",
		zap.Int("extracted", result.FrameCount),
		zap.Int("published", published),
		zap.Float64("video_duration", result.VideoDuration),
	)
}

// loadFrame decodes one extracted PNG into a BGR frame buffer.
func loadFrame(path string) (*entity.Frame, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	img, err := png.Decode(fh)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pixels := make([]byte, 0, w*h*3)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			pixels = append(pixels, byte(b>>8), byte(g>>8), byte(r>>8))
		}
	}

	return entity.NewFrame(w, h, 3, pixels), nil
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
