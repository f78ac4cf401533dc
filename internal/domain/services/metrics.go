package services

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ersonp/lineage-core/internal/domain/entities"
)

var tracer = otel.Tracer("lineage")

var (
	// traversalTotal counts exposed operations by result code
	traversalTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lineage_traversal_total",
		Help: "Total genealogy operations by operation and result",
	}, []string{"operation", "result"})

	// traversalDuration tracks operation latency
	traversalDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lineage_traversal_duration_seconds",
		Help:    "Genealogy operation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	}, []string{"operation"})

	// edgeRejections counts writes refused by the cycle guard or storage
	edgeRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lineage_edge_rejections_total",
		Help: "Parent-child edge writes rejected by reason",
	}, []string{"reason"})

	// cacheRequests counts traversal cache lookups by result
	cacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lineage_cache_requests_total",
		Help: "Traversal cache requests by result",
	}, []string{"result"})
)

// startOp opens a span for an exposed operation and returns a finish func
// that records metrics and span status for the final error.
func startOp(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := tracer.Start(ctx, "lineage."+operation, trace.WithAttributes(attrs...))
	start := time.Now()

	return ctx, func(err error) {
		defer span.End()
		traversalDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(entities.CodeOf(err)))
			traversalTotal.WithLabelValues(operation, string(entities.CodeOf(err))).Inc()
			return
		}
		span.SetStatus(codes.Ok, "")
		traversalTotal.WithLabelValues(operation, "ok").Inc()
	}
}
