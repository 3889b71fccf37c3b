package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/txtalert/reminder-gateway/pkg/logger"
	"github.com/txtalert/reminder-gateway/pkg/prom"
	"github.com/txtalert/reminder-gateway/pkg/redis"
	"github.com/txtalert/reminder-gateway/pkg/worker"
)

const ProcessingTimeout = time.Second * 5
const HealthInterval = time.Second * 30
const ShutdownTimeout = time.Minute

// Handler is a named subscription to one event. Subscriptions are
// explicit; an event with no handlers is acked and dropped.
type Handler struct {
	Name   string
	Event  string
	Handle EventHandler
}

// Dispatcher routes bus events to registered handlers through a worker
// pool, with a small consumer fleet sharing one consumer group.
type Dispatcher struct {
	adapter   redis.RedisAdapter
	busConfig BusConfig
	consumers int

	mu       sync.RWMutex
	handlers map[string][]Handler

	buses  []*Bus
	worker *worker.WorkerManager
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewDispatcher(adapter redis.RedisAdapter, busConfig BusConfig, consumers int) *Dispatcher {
	if consumers <= 0 {
		consumers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		adapter:   adapter,
		busConfig: busConfig,
		consumers: consumers,
		handlers:  make(map[string][]Handler),
		worker:    worker.NewWorkerManager(10_000, 100, nil),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Register subscribes a named handler to an event. Must be called before
// Start.
func (d *Dispatcher) Register(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[h.Event] = append(d.handlers[h.Event], h)
	logger.Info("Registered event handler", "handler", h.Name, "event", h.Event)
}

// Start spins up the worker pool and the bus consumers.
func (d *Dispatcher) Start() error {
	logger.Info("Starting event dispatcher...")

	d.worker.SetWorker(d.workerHandler)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.worker.Start(); err != nil {
			logger.Error("Worker manager stopped", "error", err)
		}
	}()

	for i := 0; i < d.consumers; i++ {
		config := d.busConfig
		config.ConsumerName = fmt.Sprintf("%s-instance-%d", config.ConsumerName, i)

		bus, err := NewBus(d.adapter, config)
		if err != nil {
			return fmt.Errorf("failed to create bus consumer %d: %w", i, err)
		}

		if err := bus.Consume(d.eventHandler); err != nil {
			return fmt.Errorf("failed to start consumer %d: %w", i, err)
		}

		d.buses = append(d.buses, bus)
		logger.Info("Started consumer instance", "instance", i)
	}

	d.wg.Add(1)
	go d.healthChecker()

	logger.Info("Event dispatcher started", "consumers", len(d.buses))
	return nil
}

func (d *Dispatcher) healthChecker() {
	defer d.wg.Done()

	ticker := time.NewTicker(HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.performHealthCheck()
		case <-d.ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) performHealthCheck() {
	if err := d.adapter.Client().Ping(context.Background()).Err(); err != nil {
		logger.Error("HEALTH CHECK FAILED: Redis connection error", "error", err)
		return
	}

	for i, bus := range d.buses {
		stats, err := bus.GetStats()
		if err != nil {
			logger.Warn("HEALTH CHECK WARNING: Bus stats unavailable", "consumer", i, "error", err)
			continue
		}
		if stats.PendingEvents > 10000 {
			logger.Warn("HEALTH CHECK WARNING: Event stream has high lag", "consumer", i, "pending_events", stats.PendingEvents)
		}
	}

	logger.Info("HEALTH CHECK: OK - dispatcher healthy")
}

// Stop gracefully stops the dispatcher.
func (d *Dispatcher) Stop() {
	logger.Info("Shutting down event dispatcher...")

	d.cancel()

	stopChan := make(chan bool, len(d.buses))
	for i, bus := range d.buses {
		go func(index int, b *Bus) {
			if err := b.Stop(ShutdownTimeout); err != nil {
				logger.Error("Error stopping bus consumer", "consumer", index, "error", err)
			}
			stopChan <- true
		}(i, bus)
	}

	for range d.buses {
		select {
		case <-stopChan:
		case <-time.After(ShutdownTimeout + 5*time.Second):
			logger.Warn("Timeout waiting for bus consumers to stop")
		}
	}

	d.worker.Exit()
	d.wg.Wait()

	logger.Info("Event dispatcher stopped")
}

type jobResult struct {
	event      *Event
	resultChan chan error
	ctx        context.Context
}

// eventHandler receives events from the bus and hands them to the worker
// pool, blocking until a worker reports the outcome so ack semantics stay
// with the bus.
func (d *Dispatcher) eventHandler(ctx context.Context, event *Event) error {
	resultChan := make(chan error, 1)

	eventCtx, cancel := context.WithTimeout(ctx, ProcessingTimeout+time.Second)
	defer cancel()

	d.worker.Enqueue(&jobResult{
		event:      event,
		resultChan: resultChan,
		ctx:        eventCtx,
	})

	select {
	case err := <-resultChan:
		return err
	case <-eventCtx.Done():
		return fmt.Errorf("timeout waiting for worker to process event: %w", eventCtx.Err())
	}
}

func (d *Dispatcher) workerHandler(workerIndex int, job interface{}) {
	jobRes, ok := job.(*jobResult)
	if !ok {
		logger.Error("Invalid job type in worker", "worker", workerIndex)
		return
	}

	select {
	case <-jobRes.ctx.Done():
		logger.Warn("Job context cancelled before processing started", "worker", workerIndex)
		return
	default:
	}

	resultErr := d.Dispatch(jobRes.ctx, jobRes.event)

	select {
	case jobRes.resultChan <- resultErr:
	case <-jobRes.ctx.Done():
		logger.Warn("Context cancelled while sending result", "worker", workerIndex)
	}
}

// Dispatch runs every handler subscribed to the event. The first handler
// error is returned so the bus retries the event; an event nobody
// subscribes to is dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, event *Event) error {
	d.mu.RLock()
	handlers := d.handlers[event.Name]
	d.mu.RUnlock()

	if len(handlers) == 0 {
		logger.Debug("No handlers for event, dropping", "event", event.Name, "id", event.ID)
		prom.IncEventProcessed(event.Name, "dropped")
		return nil
	}

	for _, h := range handlers {
		start := time.Now()
		if err := h.Handle(ctx, event); err != nil {
			prom.IncEventProcessed(event.Name, "failure")
			logger.Error("Event handler failed", "handler", h.Name, "event", event.Name, "id", event.ID, "error", err)
			return fmt.Errorf("handler %s: %w", h.Name, err)
		}
		prom.IncEventProcessed(event.Name, "success")
		prom.AddEventProcessingDuration(event.Name, time.Since(start).Seconds())
	}

	return nil
}
