package predict

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/dermrisk/backend/internal/predict"

// Metrics holds the prediction instruments. A nil *Metrics records nothing.
type Metrics struct {
	predictions  metric.Int64Counter
	scores       metric.Float64Histogram
	selected     metric.Int64Histogram
	rejected     metric.Int64Counter
	auditDropped metric.Int64Counter
}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)

	predictions, err := meter.Int64Counter("dermrisk_predictions_total",
		metric.WithDescription("Completed risk predictions by risk level"))
	if err != nil {
		return nil, fmt.Errorf("predictions counter: %w", err)
	}
	scores, err := meter.Float64Histogram("dermrisk_risk_score",
		metric.WithDescription("Distribution of normalized risk scores"),
		metric.WithExplicitBucketBoundaries(0.2, 0.4, 0.6, 0.8, 1))
	if err != nil {
		return nil, fmt.Errorf("score histogram: %w", err)
	}
	selected, err := meter.Int64Histogram("dermrisk_features_selected",
		metric.WithDescription("Number of indicators present per prediction"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 3, 4, 5, 6, 7, 8))
	if err != nil {
		return nil, fmt.Errorf("selected histogram: %w", err)
	}
	rejected, err := meter.Int64Counter("dermrisk_requests_rejected_total",
		metric.WithDescription("Requests that produced no prediction, by error type"))
	if err != nil {
		return nil, fmt.Errorf("rejected counter: %w", err)
	}
	dropped, err := meter.Int64Counter("dermrisk_audit_dropped_total",
		metric.WithDescription("Audit entries dropped because the queue was full"))
	if err != nil {
		return nil, fmt.Errorf("audit dropped counter: %w", err)
	}

	return &Metrics{
		predictions:  predictions,
		scores:       scores,
		selected:     selected,
		rejected:     rejected,
		auditDropped: dropped,
	}, nil
}

func (m *Metrics) prediction(ctx context.Context, level string, score float64, selected int) {
	if m == nil {
		return
	}
	m.predictions.Add(ctx, 1, metric.WithAttributes(attribute.String("risk_level", level)))
	m.scores.Record(ctx, score)
	m.selected.Record(ctx, int64(selected))
}

func (m *Metrics) rejection(ctx context.Context, errorType string) {
	if m == nil {
		return
	}
	m.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("type", errorType)))
}

// AuditDropped is wired as the audit recorder's drop callback.
func (m *Metrics) AuditDropped() {
	if m == nil {
		return
	}
	m.auditDropped.Add(context.Background(), 1)
}
