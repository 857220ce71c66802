package monitoring

import (
	"fmt"

	"github.com/smartcontractkit/chainlink-common/pkg/beholder"
	"github.com/smartcontractkit/chainlink-common/pkg/metrics"

	"github.com/vaultsentry/vaultsentry"
)

var _ vaultsentry.Monitoring = (*BeholderMonitoring)(nil)

type BeholderMonitoring struct {
	metrics vaultsentry.MetricLabeler
}

// InitMonitoring wires the beholder client and the service metrics.
func InitMonitoring(config beholder.Config) (vaultsentry.Monitoring, error) {
	// Note: due to OTEL spec, all histogram buckets must be defined when the beholder client is created.
	config.MetricViews = MetricViews()

	client, err := beholder.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create beholder client: %w", err)
	}

	// Set the beholder client and global otel providers, so they don't have to be referenced elsewhere.
	beholder.SetClient(client)
	beholder.SetGlobalOtelProviders()

	scanMetrics, err := InitMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize scan metrics: %w", err)
	}

	return &BeholderMonitoring{
		metrics: NewScanMetricLabeler(metrics.NewLabeler(), scanMetrics),
	}, nil
}

func (m *BeholderMonitoring) Metrics() vaultsentry.MetricLabeler {
	return m.metrics
}
