package healthcheck

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/angeloszaimis/label-gateway/internal/endpoint"
	"github.com/angeloszaimis/label-gateway/internal/metrics"
)

const DefaultTimeout = 5 * time.Second

// Prober issues warm-up probes against a fixed sub-path of each endpoint.
type Prober struct {
	client  *http.Client
	path    string
	timeout time.Duration
	logger  *slog.Logger
	events  chan<- metrics.MetricEvent
}

// NewProber creates a Prober. A non-positive timeout falls back to
// DefaultTimeout. events may be nil.
func NewProber(path string, timeout time.Duration, logger *slog.Logger, events chan<- metrics.MetricEvent) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Prober{
		client:  cleanhttp.DefaultPooledClient(),
		path:    path,
		timeout: timeout,
		logger:  logger,
		events:  events,
	}
}

// WarmUp probes every endpoint concurrently and waits for all probes to
// finish or time out. One hung endpoint never delays the others past the
// per-probe timeout.
func (p *Prober) WarmUp(ctx context.Context, endpoints []*endpoint.Endpoint) {
	var wg sync.WaitGroup

	for _, e := range endpoints {
		wg.Add(1)
		go func(e *endpoint.Endpoint) {
			defer wg.Done()
			p.probe(ctx, e)
		}(e)
	}

	wg.Wait()
}

// Run sweeps all endpoints every interval until ctx is cancelled.
func (p *Prober) Run(ctx context.Context, endpoints []*endpoint.Endpoint, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.logger.Info("Periodic warm-up started",
		slog.Duration("interval", interval),
		slog.Int("endpoints", len(endpoints)))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Periodic warm-up stopped")
			return

		case <-ticker.C:
			p.WarmUp(ctx, endpoints)
		}
	}
}

func (p *Prober) probe(ctx context.Context, e *endpoint.Endpoint) {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	target := e.Resolve(p.path)
	start := time.Now()

	reachable, status, err := p.do(probeCtx, target)
	latency := time.Since(start)

	changed := e.SetReachable(reachable, latency)

	metrics.Send(p.events, metrics.MetricEvent{
		Type:       metrics.EventProbeCompleted,
		Endpoint:   e.String(),
		Duration:   latency,
		StatusCode: status,
		Success:    reachable,
	})

	if reachable {
		level := slog.LevelDebug
		if changed {
			level = slog.LevelInfo
		}
		p.logger.Log(ctx, level, "Endpoint is reachable",
			slog.String("endpoint", e.String()),
			slog.Int("status", status),
			slog.Duration("latency", latency))
		return
	}

	p.logger.Warn("Endpoint is unreachable",
		slog.String("endpoint", e.String()),
		slog.Duration("latency", latency),
		slog.Any("err", err))
}

// do performs one GET. Any HTTP response counts as reachable.
func (p *Prober) do(ctx context.Context, target string) (bool, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false, 0, err
	}

	res, err := p.client.Do(req)
	if err != nil {
		return false, 0, err
	}
	defer res.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 64<<10))

	return true, res.StatusCode, nil
}
