package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/txtalert/reminder-gateway/pkg/redis"
)

// Event is one domain event on the gateway stream. Name routes it to the
// registered handlers; Payload is the JSON-encoded body.
type Event struct {
	ID        string
	Name      string
	Payload   []byte
	Timestamp time.Time
	Attempts  int
}

// EventHandler processes events.
// Return values:
//   - nil: Success - event will be auto-acked
//   - error: Failure - event will NOT be acked and will retry
type EventHandler func(ctx context.Context, event *Event) error

type BusConfig struct {
	Stream            string
	ConsumerGroup     string
	ConsumerName      string
	MaxRetries        int
	VisibilityTimeout time.Duration
	PollInterval      time.Duration
	BatchSize         int64
	MaxLen            int64
	EnableDLQ         bool
}

// Bus is a Redis Streams event bus: consumer-group delivery, visibility
// timeout reclaim for stuck events, and a dead letter stream for events
// that exhaust their retries.
type Bus struct {
	adapter redis.RedisAdapter
	config  BusConfig
	handler EventHandler
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type BusStats struct {
	TotalEvents   int64
	PendingEvents int64
	ConsumerCount int64
}

func NewBus(adapter redis.RedisAdapter, config BusConfig) (*Bus, error) {
	if config.Stream == "" {
		return nil, fmt.Errorf("stream name is required")
	}
	if config.ConsumerGroup == "" {
		config.ConsumerGroup = "gateway-workers"
	}
	if config.ConsumerName == "" {
		config.ConsumerName = fmt.Sprintf("consumer-%d", time.Now().UnixNano())
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.VisibilityTimeout == 0 {
		config.VisibilityTimeout = 30 * time.Second
	}
	if config.PollInterval == 0 {
		config.PollInterval = 1 * time.Second
	}
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}

	ctx, cancel := context.WithCancel(context.Background())

	b := &Bus{
		adapter: adapter,
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
	}

	if err := b.initConsumerGroup(); err != nil {
		// Group might already exist, which is fine
	}

	return b, nil
}

func (b *Bus) initConsumerGroup() error {
	return b.adapter.XGroupCreateMkStream(
		b.config.Stream,
		b.config.ConsumerGroup,
		"0",
	)
}

// Publish appends an event to the stream.
func (b *Bus) Publish(ctx context.Context, name string, payload map[string]interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	values := map[string]interface{}{
		"event":     name,
		"data":      string(data),
		"timestamp": time.Now().Unix(),
		"attempts":  0,
	}

	if _, err := b.adapter.XAdd(b.config.Stream, values); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	if b.config.MaxLen > 0 {
		_ = b.adapter.XTrimApprox(b.config.Stream, b.config.MaxLen)
	}

	return nil
}

// Consume starts the poll loop with auto-ack semantics.
func (b *Bus) Consume(handler EventHandler) error {
	if handler == nil {
		return fmt.Errorf("event handler is required")
	}

	b.handler = handler
	b.wg.Add(1)

	go b.consumeLoop()

	return nil
}

func (b *Bus) consumeLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			b.processEvents()
			b.claimStuckEvents()
		}
	}
}

func (b *Bus) processEvents() {
	messages, err := b.adapter.XReadGroup(
		b.config.ConsumerGroup,
		b.config.ConsumerName,
		b.config.Stream,
		">",
		b.config.BatchSize,
	)
	if err != nil {
		return
	}

	for _, streamMsg := range messages {
		b.handleEvent(b.streamMessageToEvent(streamMsg))
	}
}

func (b *Bus) claimStuckEvents() {
	pending, err := b.adapter.XPending(b.config.Stream, b.config.ConsumerGroup)
	if err != nil || pending == nil || pending.Count == 0 {
		return
	}

	pendingExt, err := b.adapter.XPendingExt(
		b.config.Stream,
		b.config.ConsumerGroup,
		"-",
		"+",
		100,
	)
	if err != nil || len(pendingExt) == 0 {
		return
	}

	var idsToReclaim []string
	for _, msg := range pendingExt {
		if msg.Idle >= b.config.VisibilityTimeout {
			idsToReclaim = append(idsToReclaim, msg.ID)
		}
	}

	if len(idsToReclaim) == 0 {
		return
	}

	messages, err := b.adapter.XClaim(
		b.config.Stream,
		b.config.ConsumerGroup,
		b.config.ConsumerName,
		b.config.VisibilityTimeout,
		idsToReclaim...,
	)
	if err != nil {
		return
	}

	for _, streamMsg := range messages {
		event := b.streamMessageToEvent(streamMsg)
		event.Attempts++
		b.handleEvent(event)
	}
}

func (b *Bus) handleEvent(event *Event) {
	if event.Attempts >= b.config.MaxRetries {
		b.moveToDeadLetter(event)
		b.ack(event.ID)
		return
	}

	ctx, cancel := context.WithTimeout(b.ctx, b.config.VisibilityTimeout)
	defer cancel()

	if err := b.handler(ctx, event); err != nil {
		// not acked, will be reclaimed and retried
		return
	}

	b.ack(event.ID)
}

func (b *Bus) ack(eventID string) {
	_ = b.adapter.XAck(b.config.Stream, b.config.ConsumerGroup, eventID)
}

func (b *Bus) moveToDeadLetter(event *Event) {
	if !b.config.EnableDLQ {
		return
	}

	values := map[string]interface{}{
		"event":           event.Name,
		"data":            string(event.Payload),
		"original_id":     event.ID,
		"attempts":        event.Attempts,
		"failed_at":       time.Now().Unix(),
		"original_stream": b.config.Stream,
	}

	_, _ = b.adapter.XAdd(b.config.Stream+":dlq", values)
}

func (b *Bus) streamMessageToEvent(streamMsg redis.StreamMessage) *Event {
	event := &Event{
		ID: streamMsg.ID,
	}

	for k, v := range streamMsg.Values {
		switch k {
		case "event":
			if name, ok := v.(string); ok {
				event.Name = name
			}
		case "data":
			if data, ok := v.(string); ok {
				event.Payload = []byte(data)
			}
		case "attempts":
			if attempts, ok := v.(string); ok {
				fmt.Sscanf(attempts, "%d", &event.Attempts)
			}
		}
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	return event
}

func (b *Bus) Stop(timeout time.Duration) error {
	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for bus to stop")
	}
}

func (b *Bus) GetStats() (*BusStats, error) {
	total, err := b.adapter.XLen(b.config.Stream)
	if err != nil {
		return nil, err
	}

	stats := &BusStats{
		TotalEvents: total,
	}

	if pending, err := b.adapter.XPending(b.config.Stream, b.config.ConsumerGroup); err == nil && pending != nil {
		stats.PendingEvents = pending.Count
		stats.ConsumerCount = int64(len(pending.Consumers))
	}

	return stats, nil
}
