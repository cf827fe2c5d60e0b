package queue

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demandcast/demandcast/internal/config"
)

func TestNewQueue_Memory(t *testing.T) {
	q, err := NewQueue(config.QueueConfig{Type: "Memory"})
	require.NoError(t, err)
	defer func() { _ = q.Close() }()

	_, ok := q.(*MemoryQueue)
	assert.True(t, ok)
}

func TestNewQueue_DefaultsToNATS(t *testing.T) {
	q, err := NewQueue(config.QueueConfig{URL: setupTestNATS(t)})
	require.NoError(t, err)
	defer func() { _ = q.Close() }()

	_, ok := q.(*NATSQueue)
	assert.True(t, ok)
}

func TestNewQueue_Unsupported(t *testing.T) {
	_, err := NewQueue(config.QueueConfig{Type: "rabbitmq"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported queue type")
}

func TestNewQueue_KafkaWithoutBrokers(t *testing.T) {
	_, err := NewQueue(config.QueueConfig{Type: "kafka"})
	assert.Error(t, err)
}

func TestNewKafkaQueue_Defaults(t *testing.T) {
	q, err := newKafkaQueue(KafkaConfig{Brokers: []string{"localhost:9092"}})
	require.NoError(t, err)
	defer func() { _ = q.Close() }()

	assert.Equal(t, "demandcast-group", q.config.GroupID)
	assert.Equal(t, 10*time.Millisecond, q.config.BatchTimeout)
	assert.Equal(t, 3, q.config.MaxAttempts)
	assert.Equal(t, 3, q.config.CommitRetries)

	// writers are created lazily and reused per topic
	w := q.writer("forecast.results")
	assert.Same(t, w, q.writer("forecast.results"))
	assert.Equal(t, "forecast.results", w.Topic)

	assert.ErrorIs(t, q.Unsubscribe("forecast.requests"), ErrNotSubscribed)
}

func TestNewRedisQueueWithClient_Defaults(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	q := newRedisQueueWithClient(client, RedisConfig{})
	defer func() { _ = q.Close() }()

	assert.Equal(t, "demandcast", q.config.Stream)
	assert.Equal(t, "demandcast-group", q.config.Group)
	assert.NotEmpty(t, q.config.Consumer)
	assert.Equal(t, "demandcast:forecast.requests", q.streamKey("forecast.requests"))
}

func TestRedisQueue_PublishSubscribe(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379"
	}
	q, err := newRedisQueue(RedisConfig{URL: url, Stream: "demandcast-test-" + time.Now().Format("150405.000")})
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer func() { _ = q.Close() }()

	received := make(chan string, 1)
	require.NoError(t, q.Subscribe("jobs", func(ctx context.Context, data []byte) error {
		received <- string(data)
		return nil
	}))
	require.NoError(t, q.Publish(context.Background(), "jobs", []byte("job-1")))

	select {
	case got := <-received:
		assert.Equal(t, "job-1", got)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	_ = q.client.Del(context.Background(), q.streamKey("jobs")).Err()
}
