// Package observability provides OpenTelemetry tracing and metrics for the
// workspace engine, following the RED (Rate, Errors, Duration) pattern.
//
// # Setup
//
// Initialize the provider at application startup:
//
//	p, err := observability.New(ctx, observability.DefaultConfig())
//	defer p.Shutdown(ctx)
//
// # Tracing
//
// Create spans manually, or wrap an operation end to end:
//
//	ctx, span := p.StartSpan(ctx, "rebase.apply")
//	defer span.End()
//
//	ctx, done := p.TrackOperation(ctx, "dvg.debounce.run", observability.DVUOperation(funcID, instanceID)...)
//	err := doWork(ctx)
//	done(err)
//
// # Metrics
//
// p.Meter() hands a metric.Meter to any component that registers its own
// counters/histograms — pkg/persistence/fallback does this for the
// layerdb-fallback counter. The domain-specific attribute helpers in
// workspace.go (SnapshotOperation, MutationOperation, RebaseOperation,
// DVUOperation, PersistenceOperation) keep span/metric attribute keys
// consistent across components.
package observability
