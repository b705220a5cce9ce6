package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/open-edge-insights/video-common/internal/domain/entity"
	"github.com/open-edge-insights/video-common/internal/domain/port"
	"github.com/open-edge-insights/video-common/internal/infra/metrics"
)

// Ingest subscribes the raw-frames queue and pumps decoded frames into
// the hosted stage's input queue. Decoding failures are dead-lettered
// without requeue; a frame is acked only once it has been handed to the
// input queue.
type Ingest struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	input   port.FrameQueue
	logger  *zap.Logger
}

type IngestConfig struct {
	URL           string
	Exchange      string
	RawQueue      string
	RawRoutingKey string
	KeyQueue      string
	KeyRoutingKey string
	Prefetch      int
}

func NewIngest(cfg IngestConfig, input port.FrameQueue, logger *zap.Logger) (*Ingest, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareTopology(ch, cfg); err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	return &Ingest{
		conn:    conn,
		channel: ch,
		queue:   cfg.RawQueue,
		input:   input,
		logger:  logger,
	}, nil
}

func declareTopology(ch *amqp.Channel, cfg IngestConfig) error {
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, q := range []string{cfg.RawQueue, cfg.KeyQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
	}

	if err := ch.QueueBind(cfg.RawQueue, cfg.RawRoutingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind raw queue: %w", err)
	}
	if err := ch.QueueBind(cfg.KeyQueue, cfg.KeyRoutingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind key queue: %w", err)
	}
	return nil
}

// Start pumps deliveries until ctx is done or the broker closes the
// delivery channel.
func (i *Ingest) Start(ctx context.Context) error {
	deliveries, err := i.channel.ConsumeWithContext(
		ctx,
		i.queue,
		"",
		false, // autoAck=false
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	i.logger.Info("frame ingest started", zap.String("queue", i.queue))

	for {
		select {
		case <-ctx.Done():
			i.logger.Info("frame ingest shutting down")
			return nil
		case d, ok := <-deliveries:
			if !ok {
				i.logger.Info("delivery channel closed")
				return nil
			}
			i.handleDelivery(ctx, d)
		}
	}
}

func (i *Ingest) handleDelivery(ctx context.Context, d amqp.Delivery) {
	var msg entity.FrameMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		i.logger.Warn("undecodable frame message, dead-lettering", zap.Error(err))
		metrics.IngestFramesTotal.WithLabelValues("malformed").Inc()
		_ = d.Nack(false, false)
		return
	}

	frame, err := msg.ToFrame()
	if err != nil {
		i.logger.Warn("malformed frame payload, dead-lettering", zap.Error(err))
		metrics.IngestFramesTotal.WithLabelValues("malformed").Inc()
		_ = d.Nack(false, false)
		return
	}

	if err := i.input.Put(ctx, frame); err != nil {
		// Shutdown while the input queue was full; leave the message
		// for the next run.
		_ = d.Nack(false, true)
		return
	}

	metrics.IngestFramesTotal.WithLabelValues("accepted").Inc()
	_ = d.Ack(false)
}

func (i *Ingest) Close() error {
	if i.channel != nil {
		i.channel.Close()
	}
	if i.conn != nil {
		return i.conn.Close()
	}
	return nil
}
