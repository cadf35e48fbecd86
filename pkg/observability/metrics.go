package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRunsTotal       = "pybundle.runs.total"
	metricRunDuration     = "pybundle.run.duration.seconds"
	metricModulesTotal    = "pybundle.modules.total"
	metricEdgesTotal      = "pybundle.edges.total"
	metricExternalTotal   = "pybundle.external_imports.total"
	metricCacheHitsTotal  = "pybundle.cache.hits.total"
	metricCacheMissTotal  = "pybundle.cache.misses.total"
	metricBundleSizeBytes = "pybundle.bundle.size.bytes"

	attrStatus = "status"
	attrLayer  = "layer"

	// StatusOK labels a successful run.
	StatusOK = "ok"
	// StatusError labels a failed run.
	StatusError = "error"
)

// durationBucketBoundaries covers 1ms to 60s: small projects bundle in
// milliseconds, cold runs over large trees take seconds.
var durationBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// BundleMetrics holds the instruments recorded once per run.
type BundleMetrics struct {
	runsTotal   metric.Int64Counter
	runDuration metric.Float64Histogram
	modules     metric.Int64Counter
	edges       metric.Int64Counter
	external    metric.Int64Counter
	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter
	bundleSize  metric.Int64Histogram
}

// RunStats is the per-run summary fed to BundleMetrics.
type RunStats struct {
	Status          string
	Duration        time.Duration
	Modules         int
	Edges           int
	ExternalImports int
	CacheHits       int64
	CacheDiskHits   int64
	CacheMisses     int64
	BundleBytes     int
}

// NewBundleMetrics creates the run instruments from mt.
func NewBundleMetrics(mt metric.Meter) (*BundleMetrics, error) {
	runs, err := mt.Int64Counter(metricRunsTotal,
		metric.WithDescription("Bundle runs by status"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRunsTotal, err)
	}

	duration, err := mt.Float64Histogram(metricRunDuration,
		metric.WithDescription("End-to-end bundle duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRunDuration, err)
	}

	modules, err := mt.Int64Counter(metricModulesTotal,
		metric.WithDescription("Modules written to bundles"),
		metric.WithUnit("{module}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricModulesTotal, err)
	}

	edges, err := mt.Int64Counter(metricEdgesTotal,
		metric.WithDescription("Internal dependency edges resolved"),
		metric.WithUnit("{edge}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricEdgesTotal, err)
	}

	external, err := mt.Int64Counter(metricExternalTotal,
		metric.WithDescription("External import statements hoisted"),
		metric.WithUnit("{import}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricExternalTotal, err)
	}

	hits, err := mt.Int64Counter(metricCacheHitsTotal,
		metric.WithDescription("Parse cache hits by layer"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCacheHitsTotal, err)
	}

	misses, err := mt.Int64Counter(metricCacheMissTotal,
		metric.WithDescription("Parse cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCacheMissTotal, err)
	}

	size, err := mt.Int64Histogram(metricBundleSizeBytes,
		metric.WithDescription("Size of generated bundles"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricBundleSizeBytes, err)
	}

	return &BundleMetrics{
		runsTotal:   runs,
		runDuration: duration,
		modules:     modules,
		edges:       edges,
		external:    external,
		cacheHits:   hits,
		cacheMisses: misses,
		bundleSize:  size,
	}, nil
}

// RecordRun records one completed run. Safe to call on a nil receiver.
func (bm *BundleMetrics) RecordRun(ctx context.Context, stats RunStats) {
	if bm == nil {
		return
	}

	status := stats.Status
	if status == "" {
		status = StatusOK
	}

	statusAttrs := metric.WithAttributes(attribute.String(attrStatus, status))
	bm.runsTotal.Add(ctx, 1, statusAttrs)
	bm.runDuration.Record(ctx, stats.Duration.Seconds(), statusAttrs)

	if status != StatusOK {
		return
	}

	bm.modules.Add(ctx, int64(stats.Modules))
	bm.edges.Add(ctx, int64(stats.Edges))
	bm.external.Add(ctx, int64(stats.ExternalImports))
	bm.bundleSize.Record(ctx, int64(stats.BundleBytes))

	bm.cacheHits.Add(ctx, stats.CacheHits, metric.WithAttributes(attribute.String(attrLayer, "memory")))
	bm.cacheHits.Add(ctx, stats.CacheDiskHits, metric.WithAttributes(attribute.String(attrLayer, "disk")))
	bm.cacheMisses.Add(ctx, stats.CacheMisses)
}
