// Package registry owns the process-wide persona catalog lifecycle:
// initial load, explicit reload with atomic snapshot swap, and dispatch.
package registry

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rosterlabs/roster/internal/cache"
	"github.com/rosterlabs/roster/internal/eventbus"
	"github.com/rosterlabs/roster/internal/metrics"
	"github.com/rosterlabs/roster/internal/selector"
	"github.com/rosterlabs/roster/internal/store"
	"github.com/rosterlabs/roster/internal/telemetry"
	"github.com/rosterlabs/roster/pkg/models"
)

var (
	// ErrNotLoaded is returned when dispatch runs before the initial load.
	ErrNotLoaded = errors.New("registry has no loaded catalog")

	// ErrClosed is returned after the registry has been torn down.
	ErrClosed = errors.New("registry is closed")
)

// Registry holds the current catalog snapshot and coordinates loads,
// reloads, and dispatches. The snapshot lives behind an atomic pointer:
// readers take it once per dispatch and keep using it to completion, so a
// concurrent reload never exposes a half-updated catalog.
type Registry struct {
	store    *store.Store
	selector *selector.Selector

	bus       *eventbus.EventBus // optional
	metrics   *metrics.Metrics   // optional
	dispCache *cache.Cache       // optional

	loadTimeout time.Duration

	catalog atomic.Pointer[models.Catalog]
	closed  atomic.Bool
}

// Status describes the registry for health and audit endpoints.
type Status struct {
	Loaded         bool      `json:"loaded"`
	CatalogVersion uint64    `json:"catalog_version,omitempty"`
	Personas       int       `json:"personas"`
	Source         string    `json:"source,omitempty"`
	LoadedAt       time.Time `json:"loaded_at,omitempty"`
	MinConfidence  float64   `json:"min_confidence"`
}

// New creates a registry. The catalog is empty until Load runs.
func New(st *store.Store, sel *selector.Selector, loadTimeout time.Duration) *Registry {
	if loadTimeout <= 0 {
		loadTimeout = 30 * time.Second
	}
	return &Registry{
		store:       st,
		selector:    sel,
		loadTimeout: loadTimeout,
	}
}

// SetEventBus attaches an event bus for lifecycle and dispatch events.
func (r *Registry) SetEventBus(bus *eventbus.EventBus) {
	r.bus = bus
}

// SetMetrics attaches Prometheus metrics, shared with the store so skip
// counts surface too.
func (r *Registry) SetMetrics(m *metrics.Metrics) {
	r.metrics = m
	r.store.SetMetrics(m)
}

// SetCache attaches a dispatch outcome cache. The cache is cleared on
// every successful reload.
func (r *Registry) SetCache(c *cache.Cache) {
	r.dispCache = c
}

// Load performs the initial catalog load. Bounded by the registry's load
// timeout unless the caller's context carries an earlier deadline.
func (r *Registry) Load(ctx context.Context) error {
	return r.load(ctx, eventbus.EventTypeCatalogLoaded)
}

// Reload atomically replaces the current catalog. In-flight dispatches
// keep the snapshot they already acquired; on failure the previous
// catalog stays in place untouched.
func (r *Registry) Reload(ctx context.Context) error {
	return r.load(ctx, eventbus.EventTypeCatalogReloaded)
}

func (r *Registry) load(ctx context.Context, event eventbus.EventType) error {
	if r.closed.Load() {
		return ErrClosed
	}

	ctx, span := telemetry.Tracer.Start(ctx, "registry.load")
	defer span.End()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.loadTimeout)
		defer cancel()
	}

	start := time.Now()
	catalog, err := r.store.Load(ctx)
	if r.metrics != nil {
		r.metrics.LoadDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if r.metrics != nil {
			r.metrics.CatalogReloads.WithLabelValues("error").Inc()
		}
		return err
	}

	r.catalog.Store(catalog)
	if r.dispCache != nil {
		r.dispCache.Clear(ctx)
	}

	if r.metrics != nil {
		r.metrics.CatalogReloads.WithLabelValues("ok").Inc()
		r.metrics.CatalogPersonas.Set(float64(catalog.Len()))
		r.metrics.CatalogVersion.Set(float64(catalog.Version))
	}
	r.publish(event, map[string]interface{}{
		"version":  catalog.Version,
		"personas": catalog.Len(),
		"source":   catalog.Source,
	})

	span.SetAttributes(
		attribute.Int64("catalog.version", int64(catalog.Version)),
		attribute.Int("catalog.personas", catalog.Len()),
	)
	return nil
}

// Snapshot returns the current catalog, or nil before the first Load.
// The returned catalog is immutable and safe to use after a reload.
func (r *Registry) Snapshot() *models.Catalog {
	return r.catalog.Load()
}

// Dispatch resolves one task to at most one persona against the current
// snapshot. Returns selector.ErrNoMatch when no persona clears the
// confidence threshold; that is an expected outcome, not a failure.
func (r *Registry) Dispatch(ctx context.Context, task *models.TaskSignature) (*models.DispatchHandle, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}

	catalog := r.catalog.Load()
	if catalog == nil {
		return nil, ErrNotLoaded
	}

	_, span := telemetry.Tracer.Start(ctx, "registry.dispatch",
		trace.WithAttributes(attribute.Int64("catalog.version", int64(catalog.Version))))
	defer span.End()

	if r.dispCache != nil {
		key := cache.GenerateKey(catalog.Version, task)
		if entry, ok := r.dispCache.Get(ctx, key); ok {
			if r.metrics != nil {
				r.metrics.CacheHits.Inc()
			}
			r.countDispatch("cached", entry.Outcome.Handle)
			if entry.Outcome.NoMatch {
				return nil, selector.ErrNoMatch
			}
			return entry.Outcome.Handle, nil
		}
		if r.metrics != nil {
			r.metrics.CacheMisses.Inc()
		}
	}

	start := time.Now()
	handle, err := r.selector.Select(catalog, task)
	if r.metrics != nil {
		r.metrics.SelectionDuration.Observe(time.Since(start).Seconds())
	}

	switch {
	case errors.Is(err, selector.ErrNoMatch):
		r.cacheOutcome(ctx, catalog.Version, task, cache.Outcome{NoMatch: true})
		r.countDispatch("no_match", nil)
		r.publish(eventbus.EventTypeDispatchNoMatch, map[string]interface{}{
			"task_text": task.Text,
		})
		return nil, err
	case err != nil:
		return nil, err
	}

	r.cacheOutcome(ctx, catalog.Version, task, cache.Outcome{Handle: handle})
	r.countDispatch("selected", handle)
	r.publish(eventbus.EventTypePersonaSelected, map[string]interface{}{
		"dispatch_id": handle.DispatchID,
		"persona_id":  handle.ID(),
		"score":       handle.Score.Value,
	})

	span.SetAttributes(attribute.String("persona.id", handle.ID()))
	return handle, nil
}

// Scores returns every persona's score against the task, for audit.
func (r *Registry) Scores(task *models.TaskSignature) ([]models.MatchScore, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}
	catalog := r.catalog.Load()
	if catalog == nil {
		return nil, ErrNotLoaded
	}
	return r.selector.ScoreAll(catalog, task), nil
}

// Status reports the registry state.
func (r *Registry) Status() Status {
	status := Status{MinConfidence: r.selector.MinConfidence()}
	if catalog := r.catalog.Load(); catalog != nil {
		status.Loaded = true
		status.CatalogVersion = catalog.Version
		status.Personas = catalog.Len()
		status.Source = catalog.Source
		status.LoadedAt = catalog.LoadedAt
	}
	return status
}

// Close tears the registry down and releases the held catalog. Dispatches
// already running against a snapshot complete normally.
func (r *Registry) Close() {
	if r.closed.Swap(true) {
		return
	}
	r.publish(eventbus.EventTypeRegistryClosed, nil)
	r.catalog.Store(nil)
	log.Printf("[Registry] Closed")
}

func (r *Registry) cacheOutcome(ctx context.Context, version uint64, task *models.TaskSignature, outcome cache.Outcome) {
	if r.dispCache == nil {
		return
	}
	key := cache.GenerateKey(version, task)
	if err := r.dispCache.Set(ctx, key, outcome); err != nil {
		log.Printf("[Registry] Failed to cache dispatch outcome: %v", err)
	}
}

func (r *Registry) countDispatch(result string, handle *models.DispatchHandle) {
	if r.metrics == nil {
		return
	}
	r.metrics.DispatchesTotal.WithLabelValues(result).Inc()
	if handle != nil {
		r.metrics.DispatchScore.Observe(handle.Score.Value)
	}
}

func (r *Registry) publish(event eventbus.EventType, data map[string]interface{}) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(event, "registry", data)
	if r.metrics != nil {
		r.metrics.EventsPublished.WithLabelValues(string(event)).Inc()
	}
}
