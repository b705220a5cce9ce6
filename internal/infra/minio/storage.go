package minio

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/open-edge-insights/video-common/internal/domain/entity"
)

// Storage persists training-mode frames as PNG objects, keyed by stage
// name and frame identity.
type Storage struct {
	client *miniogo.Client
	bucket string
}

type StorageConfig struct {
	Endpoint       string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
	TrainingBucket string
}

func NewStorage(cfg StorageConfig) (*Storage, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Storage{client: client, bucket: cfg.TrainingBucket}, nil
}

func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, miniogo.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// StoreFrame encodes the frame's primary plane as PNG and uploads it
// under <stage>/<frameID>.png.
func (s *Storage) StoreFrame(ctx context.Context, stageName string, f *entity.Frame) error {
	img, err := planeImage(f.Plane)
	if err != nil {
		return fmt.Errorf("frame %s: %w", f.ID, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("frame %s: encode png: %w", f.ID, err)
	}

	key := fmt.Sprintf("%s/%s.png", stageName, f.ID)
	_, err = s.client.PutObject(ctx, s.bucket, key, &buf, int64(buf.Len()),
		miniogo.PutObjectOptions{ContentType: "image/png"})
	if err != nil {
		return fmt.Errorf("upload training frame %s: %w", key, err)
	}
	return nil
}

func planeImage(p entity.Plane) (image.Image, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("plane geometry %dx%dx%d does not match %d pixel bytes",
			p.Width, p.Height, p.Channels, len(p.Pixels))
	}

	switch p.Channels {
	case 1:
		img := image.NewGray(image.Rect(0, 0, p.Width, p.Height))
		copy(img.Pix, p.Pixels)
		return img, nil
	case 3:
		// Planes are BGR, image.RGBA wants RGBA.
		img := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
		for i := 0; i < p.Width*p.Height; i++ {
			img.SetRGBA(i%p.Width, i/p.Width, color.RGBA{
				R: p.Pixels[i*3+2],
				G: p.Pixels[i*3+1],
				B: p.Pixels[i*3],
				A: 255,
			})
		}
		return img, nil
	default:
		return nil, fmt.Errorf("unsupported channel count %d", p.Channels)
	}
}
