package scene

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("octasphere.scene")
	meter  = otel.Meter("octasphere.scene")
)

var (
	rebuildLatency      metric.Float64Histogram
	rebuildTotal        metric.Int64Counter
	rebuildTriangles    metric.Int64Histogram
	integrityViolations metric.Int64Counter
	pathQueries         metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		rebuildLatency, err = meter.Float64Histogram(
			"scene_rebuild_duration_seconds",
			metric.WithDescription("Duration of region and graph rebuilds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		rebuildTotal, err = meter.Int64Counter(
			"scene_rebuild_total",
			metric.WithDescription("Total number of rebuilds"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		rebuildTriangles, err = meter.Int64Histogram(
			"scene_rebuild_triangles",
			metric.WithDescription("Triangles in the mesh after a rebuild"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		integrityViolations, err = meter.Int64Counter(
			"scene_integrity_violations_total",
			metric.WithDescription("Adjacency integrity violations found during rebuilds"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		pathQueries, err = meter.Int64Counter(
			"scene_path_queries_total",
			metric.WithDescription("Path preview queries"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startRebuildSpan(ctx context.Context, regions []int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Scene.rebuild",
		trace.WithAttributes(
			attribute.IntSlice("scene.regions", regions),
		),
	)
}

func recordRebuild(ctx context.Context, d time.Duration, triangles, violations int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool("success", success))

	rebuildLatency.Record(ctx, d.Seconds(), attrs)
	rebuildTotal.Add(ctx, 1, attrs)
	if success {
		rebuildTriangles.Record(ctx, int64(triangles))
	}
	if violations > 0 {
		integrityViolations.Add(ctx, int64(violations))
	}
}

func recordPathQuery(ctx context.Context, found bool) {
	if err := initMetrics(); err != nil {
		return
	}
	pathQueries.Add(ctx, 1, metric.WithAttributes(attribute.Bool("found", found)))
}
