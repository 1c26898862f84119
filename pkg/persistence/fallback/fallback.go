// Package fallback implements the persistence layer's migration-era
// read pattern: consult the relational tier first, and only on a miss
// fall back to a legacy object-store-backed cache, counting every
// fallback hit so the migration can be declared complete once the
// counter goes flat.
package fallback

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Counter records fallback hits per cache, one metric per process
// regardless of how many caches use it (cache name is an attribute, not
// a separate instrument), mirroring the single `func_runs.layerdb_fallback_total`
// counter the pattern is named after.
type Counter struct {
	hits metric.Int64Counter
}

// NewCounter registers the fallback-hit counter against meter. Pass the
// Meter() of the process's observability.Provider.
func NewCounter(meter metric.Meter) (*Counter, error) {
	hits, err := meter.Int64Counter(
		"persistence.layerdb_fallback_total",
		metric.WithDescription("count of reads that missed the relational tier and were served from the legacy object-store cache"),
		metric.WithUnit("{read}"),
	)
	if err != nil {
		return nil, fmt.Errorf("fallback: register counter: %w", err)
	}
	return &Counter{hits: hits}, nil
}

// Record increments the fallback counter for one cache/method pair.
func (c *Counter) Record(ctx context.Context, cache, method string) {
	if c == nil || c.hits == nil {
		return
	}
	c.hits.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("cache", cache),
			attribute.String("method", method),
		),
	)
}

// Read consults primary first; on a miss (found == false, err == nil)
// it consults secondary, recording a fallback hit on the counter if
// secondary produces a result. Either reader's error is returned as-is.
func Read[T any](ctx context.Context, counter *Counter, cache, method string, primary, secondary func(context.Context) (T, bool, error)) (T, bool, error) {
	value, found, err := primary(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}
	if found {
		return value, true, nil
	}

	value, found, err = secondary(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}
	if found {
		counter.Record(ctx, cache, method)
	}
	return value, found, nil
}
