package events

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"

	"github.com/xenking/sareeta-shop/internal/domain/order"
)

var _ order.Publisher = (*KafkaPublisher)(nil)

// KafkaConfig holds Kafka producer settings.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// KafkaPublisher publishes order events to a Kafka topic. Messages are keyed
// by username so one user's events stay ordered within a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
	now    func() time.Time
}

// NewKafkaPublisher creates a KafkaPublisher. No connection is made until the
// first publish.
func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
		},
		now: time.Now,
	}, nil
}

// PublishOrderSubmitted writes an order.submitted event.
func (p *KafkaPublisher) PublishOrderSubmitted(ctx context.Context, o *order.Order) error {
	ev := NewOrderSubmitted(o, p.now())
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(o.User.Username),
		Value: ev.Payload,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(ev.ID)},
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	})
	if err != nil {
		return errors.Wrapf(err, "write %s", ev.Type)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
