package monitoring

import (
	"context"
	"time"

	"github.com/vaultsentry/vaultsentry"
)

var _ vaultsentry.Monitoring = (*NoopMonitoring)(nil)

type NoopMonitoring struct {
	noop vaultsentry.MetricLabeler
}

func NewNoopMonitoring() vaultsentry.Monitoring {
	return &NoopMonitoring{noop: NewNoopMetricLabeler()}
}

func (n *NoopMonitoring) Metrics() vaultsentry.MetricLabeler {
	return n.noop
}

type NoopMetricLabeler struct{}

func NewNoopMetricLabeler() vaultsentry.MetricLabeler {
	return &NoopMetricLabeler{}
}

func (n *NoopMetricLabeler) With(keyValues ...string) vaultsentry.MetricLabeler {
	return n
}

func (n *NoopMetricLabeler) RecordScanCycleDuration(ctx context.Context, duration time.Duration) {}

func (n *NoopMetricLabeler) IncrementTransactionsApproved(ctx context.Context) {}

func (n *NoopMetricLabeler) IncrementMessagesApproved(ctx context.Context) {}

func (n *NoopMetricLabeler) IncrementItemsDenied(ctx context.Context) {}

func (n *NoopMetricLabeler) IncrementItemsAlreadyApproved(ctx context.Context) {}

func (n *NoopMetricLabeler) IncrementSubmissionErrors(ctx context.Context) {}

func (n *NoopMetricLabeler) IncrementNetworkFetchErrors(ctx context.Context) {}
