package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/txtalert/reminder-gateway/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	// Use unique connection name per test to avoid global adapter caching issues
	connName := t.Name() + "-" + mr.Addr()
	adapter, err := redis.NewRedisAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func testBusConfig(stream string) BusConfig {
	return BusConfig{
		Stream:            stream,
		ConsumerGroup:     "test-group",
		ConsumerName:      "test-consumer",
		MaxRetries:        3,
		VisibilityTimeout: 5 * time.Second,
		PollInterval:      100 * time.Millisecond,
		BatchSize:         10,
		MaxLen:            1000,
		EnableDLQ:         true,
	}
}

func TestBus_PublishAndConsume(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	bus, err := NewBus(adapter, testBusConfig("test:events"))
	require.NoError(t, err)

	ctx := context.Background()
	err = bus.Publish(ctx, "pcm.received", map[string]interface{}{"pcm_id": 7})
	require.NoError(t, err)

	received := make(chan *Event, 1)
	handler := func(ctx context.Context, event *Event) error {
		received <- event
		return nil
	}

	require.NoError(t, bus.Consume(handler))

	select {
	case event := <-received:
		assert.Equal(t, "pcm.received", event.Name)

		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(event.Payload, &payload))
		assert.Equal(t, float64(7), payload["pcm_id"])
	case <-time.After(2 * time.Second):
		t.Fatal("event not received")
	}

	bus.Stop(time.Second)
}

func TestBus_Validation(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	t.Run("stream name is required", func(t *testing.T) {
		_, err := NewBus(adapter, BusConfig{})
		assert.Error(t, err)
	})

	t.Run("handler is required", func(t *testing.T) {
		bus, err := NewBus(adapter, testBusConfig("test:validation"))
		require.NoError(t, err)
		assert.Error(t, bus.Consume(nil))
	})
}

func TestBus_RetryMechanism(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	config := testBusConfig("test:retry")
	config.MaxRetries = 2
	config.VisibilityTimeout = 1 * time.Second

	bus, err := NewBus(adapter, config)
	require.NoError(t, err)
	defer bus.Stop(time.Second)

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, "receipts.reconciled", map[string]interface{}{"message_id": 1}))

	attempts := 0
	handler := func(ctx context.Context, event *Event) error {
		attempts++
		if attempts <= 2 {
			return assert.AnError
		}
		return nil
	}

	require.NoError(t, bus.Consume(handler))

	time.Sleep(500 * time.Millisecond)
	assert.GreaterOrEqual(t, attempts, 1)
}

func TestBus_GetStats(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	bus, err := NewBus(adapter, testBusConfig("test:stats"))
	require.NoError(t, err)
	defer bus.Stop(time.Second)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(ctx, "pcm.received", map[string]interface{}{"pcm_id": i}))
	}

	stats, err := bus.GetStats()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.TotalEvents, int64(5))
}
