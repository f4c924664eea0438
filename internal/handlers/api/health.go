package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"

	"hitokoto/internal/corpus"
	"hitokoto/internal/stats"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Refresher republishes the corpus snapshot.
type Refresher interface {
	Refresh(ctx context.Context) error
	Snapshot() *corpus.Snapshot
}

// RefreshObserver is told the outcome of admin refreshes.
type RefreshObserver interface {
	ObserveRefresh(trigger string, err error)
}

// TriggerAdmin labels refreshes started through the admin endpoint.
const TriggerAdmin = "admin"

// ServiceHandler serves the operational endpoints: statistics, cache refresh
// and health.
type ServiceHandler struct {
	store    Pinger
	cache    Refresher
	counter  stats.Counter
	observer RefreshObserver
	timeout  time.Duration
}

// NewServiceHandler creates a new service handler. observer may be nil.
func NewServiceHandler(store Pinger, cache Refresher, counter stats.Counter, observer RefreshObserver) *ServiceHandler {
	return &ServiceHandler{
		store:    store,
		cache:    cache,
		counter:  counter,
		observer: observer,
		timeout:  30 * time.Second,
	}
}

// Stats returns the request count of every window as requests_per_<window>.
func (h *ServiceHandler) Stats(c fiber.Ctx) error {
	counts, err := h.counter.Snapshot(c.Context())
	if err != nil {
		return respondError(c, err)
	}

	body := fiber.Map{}
	for _, wc := range counts {
		body["requests_per_"+wc.Name] = wc.Count
	}
	return c.JSON(body)
}

// UpdateCount refreshes the corpus cache and returns the new aggregates.
// A failed refresh keeps serving the previous snapshot.
func (h *ServiceHandler) UpdateCount(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), h.timeout)
	defer cancel()

	err := h.cache.Refresh(ctx)
	if h.observer != nil {
		h.observer.ObserveRefresh(TriggerAdmin, err)
	}
	if err != nil {
		return respondError(c, err)
	}

	snap := h.cache.Snapshot()
	return jsonSuccess(c, fiber.Map{
		"count":      snap.Count,
		"min_length": snap.MinLength,
		"max_length": snap.MaxLength,
	})
}

// Health pings the store and reports the published corpus size.
func (h *ServiceHandler) Health(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	snap := h.cache.Snapshot()
	if err := h.store.Ping(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "error",
			"error":  "database unreachable",
			"count":  snap.Count,
		})
	}
	return jsonSuccess(c, fiber.Map{
		"count":        snap.Count,
		"refreshed_at": snap.RefreshedAt,
	})
}
