package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type EventType string

const (
	EventEndpointSelected EventType = "endpoint_selected"
	EventForwardCompleted EventType = "forward_completed"
	EventProbeCompleted   EventType = "probe_completed"
	EventRequestRejected  EventType = "request_rejected"
)

type MetricEvent struct {
	Type       EventType
	Timestamp  time.Time
	Endpoint   string
	Duration   time.Duration
	StatusCode int
	Success    bool
	Reason     string
}

// Send delivers an event without blocking the caller. Events are dropped
// when the buffer is full or ch is nil.
func Send(ch chan<- MetricEvent, event MetricEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case ch <- event:
	default:
	}
}

type Collector struct {
	eventCh    chan MetricEvent
	metrics    *Metrics
	prometheus *promMetrics
	registry   *prometheus.Registry
	logger     *slog.Logger
}

// NewCollector creates a collector with its own Prometheus registry, so
// several collectors (e.g. in tests) never clash on registration.
func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	registry := prometheus.NewRegistry()

	return &Collector{
		eventCh:    make(chan MetricEvent, bufferSize),
		metrics:    NewMetrics(),
		prometheus: newPromMetrics(registry),
		registry:   registry,
		logger:     logger,
	}
}

func (c *Collector) EventChannel() chan<- MetricEvent {
	return c.eventCh
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventEndpointSelected:
		c.metrics.RecordSelection(event.Endpoint)
		c.prometheus.selections.WithLabelValues(event.Endpoint).Inc()

	case EventForwardCompleted:
		c.metrics.RecordForward(event.Endpoint, event.Duration, event.StatusCode, event.Success)
		c.prometheus.forwards.WithLabelValues(event.Endpoint, outcome(event.Success)).Inc()
		c.prometheus.forwardDuration.WithLabelValues(event.Endpoint).Observe(event.Duration.Seconds())

	case EventProbeCompleted:
		c.metrics.RecordProbe(event.Endpoint, event.Success)
		c.prometheus.probeDuration.WithLabelValues(event.Endpoint).Observe(event.Duration.Seconds())
		reachable := 0.0
		if event.Success {
			reachable = 1
		}
		c.prometheus.reachable.WithLabelValues(event.Endpoint).Set(reachable)

	case EventRequestRejected:
		c.metrics.RecordRejection(event.Reason)
		c.prometheus.rejections.WithLabelValues(event.Reason).Inc()

	default:
		c.logger.Debug("Dropping unknown metric event", slog.String("type", string(event.Type)))
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
