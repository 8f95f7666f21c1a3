package database

import (
	"context"
	"testing"
	"time"

	"chat_relay_service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKafkaWriterWithRetry_NoBrokers(t *testing.T) {
	logger.SetNewNop()
	_, err := NewKafkaWriterWithRetry(context.Background(), KafkaConnection{Topic: "t"})
	assert.Error(t, err)
}

func TestNewKafkaWriterWithRetry_TriesEveryBroker(t *testing.T) {
	logger.SetNewNop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := NewKafkaWriterWithRetry(ctx, KafkaConnection{
		Brokers:    []string{"127.0.0.1:1", "127.0.0.1:2"},
		Topic:      "chat.message.created",
		RetryCount: 0,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
	assert.Contains(t, err.Error(), "127.0.0.1:2", "a dead first broker does not stop the check")
}
