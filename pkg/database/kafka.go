package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chat_relay_service/pkg/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// NewKafkaWriterWithRetry 建立 Kafka Writer，並確認至少一個 broker 可以讀到 topic metadata
func NewKafkaWriterWithRetry(ctx context.Context, k KafkaConnection) (*kafka.Writer, error) {
	if len(k.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}

	var err error
	for attempt := 1; attempt <= k.RetryCount+1; attempt++ {
		if err = probeKafka(ctx, k.Brokers, k.Topic); err == nil {
			logger.Log.Info("kafka writer ready", zap.String("topic", k.Topic), zap.Int("attempt", attempt))
			return &kafka.Writer{
				Addr:                   kafka.TCP(k.Brokers...),
				Topic:                  k.Topic,
				Balancer:               &kafka.Hash{},
				RequiredAcks:           kafka.RequireOne,
				AllowAutoTopicCreation: true,
				BatchTimeout:           50 * time.Millisecond,
			}, nil
		}

		logger.Log.Warn("kafka dial failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Strings("brokers", k.Brokers),
			zap.Error(err),
		)
		if attempt <= k.RetryCount {
			time.Sleep(k.RetryInterval * time.Second)
		}
	}

	return nil, fmt.Errorf("無法建立 Kafka Writer，經過 %d 次嘗試: %w", k.RetryCount+1, err)
}

// probeKafka 任一 broker 回應 metadata 即可, 不要求它是 partition leader
//
// An unknown topic still counts as ready, the writer creates it on first write.
func probeKafka(ctx context.Context, brokers []string, topic string) error {
	var errs []error
	for _, broker := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", broker, err))
			continue
		}

		partitions, err := conn.ReadPartitions(topic)
		_ = conn.Close()
		if err != nil && !errors.Is(err, kafka.UnknownTopicOrPartition) {
			errs = append(errs, fmt.Errorf("%s: %w", broker, err))
			continue
		}
		logger.Log.Debug("kafka broker reachable", zap.String("broker", broker), zap.Int("partitions", len(partitions)))
		return nil
	}
	return errors.Join(errs...)
}
