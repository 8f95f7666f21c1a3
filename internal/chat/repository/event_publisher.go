package repository

import (
	"context"
	"encoding/json"
	"time"

	"chat_relay_service/internal/chat/domain"

	"github.com/segmentio/kafka-go"
)

// MessageCreatedEvent integration event emitted after a message is stored
type MessageCreatedEvent struct {
	Type       string             `json:"type"`
	Message    domain.MessageView `json:"message"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// MessageEventPublisher sink for message integration events
type MessageEventPublisher interface {
	PublishMessageCreated(ctx context.Context, msg domain.MessageView) error
	Close() error
}

type kafkaMessagePublisher struct {
	writer *kafka.Writer
}

// NewKafkaMessagePublisher publish events keyed by room id, so one room keeps
// its order inside a partition
func NewKafkaMessagePublisher(writer *kafka.Writer) MessageEventPublisher {
	return &kafkaMessagePublisher{writer: writer}
}

func encodeMessageCreated(msg domain.MessageView, at time.Time) (kafka.Message, error) {
	value, err := json.Marshal(MessageCreatedEvent{
		Type:       "message.created",
		Message:    msg,
		OccurredAt: at.UTC(),
	})
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(msg.RoomID),
		Value: value,
		Time:  at,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte("message.created")},
		},
	}, nil
}

func (p *kafkaMessagePublisher) PublishMessageCreated(ctx context.Context, msg domain.MessageView) error {
	m, err := encodeMessageCreated(msg, time.Now())
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, m)
}

func (p *kafkaMessagePublisher) Close() error {
	return p.writer.Close()
}

type noopMessagePublisher struct{}

// NewNoopMessagePublisher publisher used when no brokers are configured
func NewNoopMessagePublisher() MessageEventPublisher {
	return noopMessagePublisher{}
}

func (noopMessagePublisher) PublishMessageCreated(context.Context, domain.MessageView) error {
	return nil
}

func (noopMessagePublisher) Close() error { return nil }
