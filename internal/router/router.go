package router

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/angeloszaimis/label-gateway/internal/endpoint"
	"github.com/angeloszaimis/label-gateway/internal/store"
)

var ErrNoEndpoints = errors.New("no endpoints configured")

// persistTimeout bounds a single pointer write. Only stores that honour ctx
// (SQLiteStore) are cut off by it; file and memory writes run to completion.
const persistTimeout = 2 * time.Second

type Router struct {
	endpoints []*endpoint.Endpoint
	store     store.PointerStore
	logger    *slog.Logger
	mutex     sync.Mutex
	pointer   int
}

// New creates a router over endpoints and restores the pointer from st.
// A missing, unreadable or corrupt value starts the rotation at 0.
func New(ctx context.Context, endpoints []*endpoint.Endpoint, st store.PointerStore, logger *slog.Logger) (*Router, error) {
	if len(endpoints) == 0 {
		return nil, ErrNoEndpoints
	}

	r := &Router{
		endpoints: endpoints,
		store:     st,
		logger:    logger,
	}

	persisted, err := st.Load(ctx)
	if err != nil {
		logger.Warn("Failed to restore rotation pointer, starting at 0",
			slog.Any("err", err))
		persisted = 0
	}

	if persisted < 0 {
		persisted = 0
	}

	r.pointer = persisted % len(endpoints)

	logger.Info("Rotation pointer restored",
		slog.Int("persisted", persisted),
		slog.Int("pointer", r.pointer),
		slog.Int("endpoints", len(endpoints)))

	return r, nil
}

// SelectEndpoint returns the endpoint under the pointer and advances the
// pointer, wrapping at the end of the list. It never fails.
func (r *Router) SelectEndpoint() *endpoint.Endpoint {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	n := len(r.endpoints)
	chosen := r.endpoints[r.pointer%n]
	r.pointer = (r.pointer + 1) % n

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := r.store.Save(ctx, r.pointer); err != nil {
		r.logger.Error("Failed to persist rotation pointer",
			slog.Int("pointer", r.pointer),
			slog.Any("err", err))
	}

	r.logger.Debug("Endpoint selected",
		slog.String("endpoint", chosen.String()),
		slog.Int("next", r.pointer))

	return chosen
}

// Pointer returns the index the next selection will use.
func (r *Router) Pointer() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.pointer
}

// Endpoints returns the configured endpoints in rotation order.
func (r *Router) Endpoints() []*endpoint.Endpoint {
	return r.endpoints
}
