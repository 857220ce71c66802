package monitoring

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/smartcontractkit/chainlink-common/pkg/beholder"
	"github.com/smartcontractkit/chainlink-common/pkg/metrics"

	"github.com/vaultsentry/vaultsentry"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// ScanMetrics provides all metrics recorded across scan cycles.
type ScanMetrics struct {
	scanCycleDuration metric.Float64Histogram

	transactionsApprovedCounter metric.Int64Counter
	messagesApprovedCounter     metric.Int64Counter
	itemsDeniedCounter          metric.Int64Counter
	itemsAlreadyApprovedCounter metric.Int64Counter
	submissionErrorsCounter     metric.Int64Counter
	networkFetchErrorsCounter   metric.Int64Counter
}

func MetricViews() []sdkmetric.View {
	return []sdkmetric.View{}
}

// InitMetrics registers all scan metrics with the beholder meter.
func InitMetrics() (*ScanMetrics, error) {
	sm := &ScanMetrics{}
	var err error

	sm.scanCycleDuration, err = beholder.GetMeter().Float64Histogram(
		"sentry_scan_cycle_duration_seconds",
		metric.WithDescription("Duration of one full scan cycle across all networks"),
		metric.WithUnit("seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register scan cycle duration histogram: %w", err)
	}

	sm.transactionsApprovedCounter, err = beholder.GetMeter().Int64Counter(
		"sentry_transactions_approved_total",
		metric.WithDescription("Total number of transaction approvals submitted"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register transactions approved counter: %w", err)
	}

	sm.messagesApprovedCounter, err = beholder.GetMeter().Int64Counter(
		"sentry_messages_approved_total",
		metric.WithDescription("Total number of message approvals submitted"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register messages approved counter: %w", err)
	}

	sm.itemsDeniedCounter, err = beholder.GetMeter().Int64Counter(
		"sentry_items_denied_total",
		metric.WithDescription("Total number of pending items blocked by the policy engine"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register items denied counter: %w", err)
	}

	sm.itemsAlreadyApprovedCounter, err = beholder.GetMeter().Int64Counter(
		"sentry_items_already_approved_total",
		metric.WithDescription("Total number of pending items skipped because the operator already signed"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register items already approved counter: %w", err)
	}

	sm.submissionErrorsCounter, err = beholder.GetMeter().Int64Counter(
		"sentry_submission_errors_total",
		metric.WithDescription("Total number of approval submissions rejected or failed"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register submission errors counter: %w", err)
	}

	sm.networkFetchErrorsCounter, err = beholder.GetMeter().Int64Counter(
		"sentry_network_fetch_errors_total",
		metric.WithDescription("Total number of per-network pending item fetch failures"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register network fetch errors counter: %w", err)
	}

	return sm, nil
}

type ScanMetricLabeler struct {
	metrics.Labeler
	sm *ScanMetrics
}

func NewScanMetricLabeler(labeler metrics.Labeler, sm *ScanMetrics) vaultsentry.MetricLabeler {
	return &ScanMetricLabeler{
		Labeler: labeler,
		sm:      sm,
	}
}

func (c *ScanMetricLabeler) With(keyValues ...string) vaultsentry.MetricLabeler {
	return &ScanMetricLabeler{c.Labeler.With(keyValues...), c.sm}
}

func (c *ScanMetricLabeler) otelAttributes() metric.MeasurementOption {
	return metric.WithAttributes(beholder.OtelAttributes(c.Labels).AsStringAttributes()...)
}

func (c *ScanMetricLabeler) RecordScanCycleDuration(ctx context.Context, duration time.Duration) {
	c.sm.scanCycleDuration.Record(ctx, duration.Seconds(), c.otelAttributes())
}

func (c *ScanMetricLabeler) IncrementTransactionsApproved(ctx context.Context) {
	c.sm.transactionsApprovedCounter.Add(ctx, 1, c.otelAttributes())
}

func (c *ScanMetricLabeler) IncrementMessagesApproved(ctx context.Context) {
	c.sm.messagesApprovedCounter.Add(ctx, 1, c.otelAttributes())
}

func (c *ScanMetricLabeler) IncrementItemsDenied(ctx context.Context) {
	c.sm.itemsDeniedCounter.Add(ctx, 1, c.otelAttributes())
}

func (c *ScanMetricLabeler) IncrementItemsAlreadyApproved(ctx context.Context) {
	c.sm.itemsAlreadyApprovedCounter.Add(ctx, 1, c.otelAttributes())
}

func (c *ScanMetricLabeler) IncrementSubmissionErrors(ctx context.Context) {
	c.sm.submissionErrorsCounter.Add(ctx, 1, c.otelAttributes())
}

func (c *ScanMetricLabeler) IncrementNetworkFetchErrors(ctx context.Context) {
	c.sm.networkFetchErrorsCounter.Add(ctx, 1, c.otelAttributes())
}
