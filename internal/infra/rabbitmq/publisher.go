package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/open-edge-insights/video-common/internal/domain/entity"
)

type Publisher struct {
	channel  *amqp.Channel
	exchange string
}

func NewPublisher(conn *amqp.Connection, exchange string) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open publisher channel: %w", err)
	}
	return &Publisher{channel: ch, exchange: exchange}, nil
}

// KeyFramePublisher publishes admitted frames with persistent delivery
// so a broker restart does not lose triggered key frames.
type KeyFramePublisher struct {
	pub        *Publisher
	routingKey string
}

func NewKeyFramePublisher(pub *Publisher, routingKey string) *KeyFramePublisher {
	return &KeyFramePublisher{pub: pub, routingKey: routingKey}
}

func (kp *KeyFramePublisher) PublishKeyFrame(ctx context.Context, f *entity.Frame) error {
	body, err := json.Marshal(entity.NewFrameMessage(f))
	if err != nil {
		return fmt.Errorf("marshal frame %s: %w", f.ID, err)
	}

	return kp.pub.channel.PublishWithContext(ctx,
		kp.pub.exchange,
		kp.routingKey,
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
		},
	)
}

// RawFramePublisher feeds frames into the pipeline from a producer
// process.
type RawFramePublisher struct {
	pub        *Publisher
	routingKey string
}

func NewRawFramePublisher(pub *Publisher, routingKey string) *RawFramePublisher {
	return &RawFramePublisher{pub: pub, routingKey: routingKey}
}

func (rp *RawFramePublisher) PublishFrame(ctx context.Context, f *entity.Frame) error {
	body, err := json.Marshal(entity.NewFrameMessage(f))
	if err != nil {
		return fmt.Errorf("marshal frame %s: %w", f.ID, err)
	}

	return rp.pub.channel.PublishWithContext(ctx,
		rp.pub.exchange,
		rp.routingKey,
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
		},
	)
}
