package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/steveyegge/issuebridge/internal/cache"
)

const cacheScopeName = "github.com/steveyegge/issuebridge/cache"

// InstrumentedCache wraps a cache.Cache and attributes lookups to hits or
// misses.
type InstrumentedCache struct {
	inner   cache.Cache
	in      instruments
	lookups metric.Int64Counter
}

// WrapCache returns c decorated with OTel instrumentation.
// When telemetry is disabled, c is returned as-is.
func WrapCache(c cache.Cache) cache.Cache {
	if !Enabled() {
		return c
	}
	return newInstrumentedCache(c, Tracer(cacheScopeName), Meter(cacheScopeName))
}

func newInstrumentedCache(c cache.Cache, tracer trace.Tracer, m metric.Meter) *InstrumentedCache {
	lookups, _ := m.Int64Counter("issuebridge.cache.lookups",
		metric.WithDescription("Successful cache reads by outcome"),
	)
	return &InstrumentedCache{inner: c, in: newInstruments("cache", tracer, m), lookups: lookups}
}

func (c *InstrumentedCache) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, span, t := c.in.op(ctx, "Get")
	v, ok, err := c.inner.Get(ctx, key)
	if err == nil {
		span.SetAttributes(attribute.Bool("cache.hit", ok))
		c.lookups.Add(ctx, 1, metric.WithAttributes(attribute.Bool("cache.hit", ok)))
	}
	c.in.done(ctx, span, t, err)
	return v, ok, err
}

func (c *InstrumentedCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	attrs := []attribute.KeyValue{attribute.Int64("cache.ttl_ms", ttl.Milliseconds())}
	ctx, span, t := c.in.op(ctx, "Set", attrs...)
	err := c.inner.Set(ctx, key, value, ttl)
	c.in.done(ctx, span, t, err)
	return err
}
