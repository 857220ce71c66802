package vaultsentry

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pelletier/go-toml/v2"
	chainselectors "github.com/smartcontractkit/chain-selectors"

	"github.com/vaultsentry/vaultsentry/pkg/throttle"
	"github.com/vaultsentry/vaultsentry/types"
)

// minScanInterval is the enforced floor for the periodic scan cadence.
const minScanInterval = 5 * time.Second

// Configuration is the process configuration, loaded from TOML.
type Configuration struct {
	// VaultAddress is the shared-custody account watched on every network.
	VaultAddress string `toml:"vault_address"`
	// Networks maps a decimal chain id to its endpoints.
	Networks map[string]NetworkConfig `toml:"networks"`
	// ScanInterval is the periodic scan cadence, e.g. "30s".
	ScanInterval string `toml:"scan_interval"`
	// NetworkPause is the pause inserted between per-network scans.
	NetworkPause string `toml:"network_pause"`
	// QueryConcurrency is the process-wide transaction-service query budget.
	QueryConcurrency int `toml:"query_concurrency"`
	// MessageRequiredApprovals stands in for the required-approval count the
	// message API does not report.
	MessageRequiredApprovals int `toml:"message_required_approvals"`
	// TrustedDelegateTargets is the delegate-call allowlist. Empty means no
	// delegate call is ever auto-approved.
	TrustedDelegateTargets []string         `toml:"trusted_delegate_targets"`
	Monitoring             MonitoringConfig `toml:"Monitoring"`
}

// NetworkConfig holds the per-network endpoints.
type NetworkConfig struct {
	Name                  string `toml:"name"`
	RPCURL                string `toml:"rpc_url"`
	TransactionServiceURL string `toml:"transaction_service_url"`
}

// LoadConfiguration reads and validates a TOML configuration file.
func LoadConfiguration(path string) (*Configuration, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration file: %w", err)
	}

	var cfg Configuration
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Configuration) Validate() error {
	if !common.IsHexAddress(c.VaultAddress) {
		return fmt.Errorf("vault_address %q is not a valid address", c.VaultAddress)
	}
	if len(c.Networks) == 0 {
		return fmt.Errorf("no networks configured")
	}
	for key, network := range c.Networks {
		chainID, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return fmt.Errorf("network key %q is not a chain id", key)
		}
		if _, err := chainselectors.GetChainDetailsByChainIDAndFamily(key, chainselectors.FamilyEVM); err != nil {
			return fmt.Errorf("chain %d is not supported: %w", chainID, err)
		}
		if network.RPCURL == "" {
			return fmt.Errorf("network %d: rpc_url must be configured", chainID)
		}
		if network.TransactionServiceURL == "" {
			return fmt.Errorf("network %d: transaction_service_url must be configured", chainID)
		}
	}
	for _, target := range c.TrustedDelegateTargets {
		if !common.IsHexAddress(target) {
			return fmt.Errorf("trusted delegate target %q is not a valid address", target)
		}
	}
	if c.QueryConcurrency < 0 {
		return fmt.Errorf("query_concurrency must not be negative")
	}
	if c.MessageRequiredApprovals < 0 {
		return fmt.Errorf("message_required_approvals must not be negative")
	}
	if err := c.Monitoring.Validate(); err != nil {
		return fmt.Errorf("monitoring config validation failed: %w", err)
	}
	return nil
}

// EnabledNetworks returns the configured networks as the typed set handed to
// the client-set initializer.
func (c *Configuration) EnabledNetworks() []types.Network {
	networks := make([]types.Network, 0, len(c.Networks))
	for key, network := range c.Networks {
		chainID, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			continue // rejected by Validate
		}
		networks = append(networks, types.Network{
			ChainID:              chainID,
			Name:                 network.Name,
			RPCURL:               network.RPCURL,
			TransactionServerURL: network.TransactionServiceURL,
		})
	}
	return networks
}

// Vault returns the parsed vault address.
func (c *Configuration) Vault() common.Address {
	return common.HexToAddress(c.VaultAddress)
}

// TrustedTargets returns the parsed delegate-call allowlist.
func (c *Configuration) TrustedTargets() []common.Address {
	targets := make([]common.Address, 0, len(c.TrustedDelegateTargets))
	for _, target := range c.TrustedDelegateTargets {
		targets = append(targets, common.HexToAddress(target))
	}
	return targets
}

// GetScanInterval returns the scan cadence, defaulting to 30s and never below
// the enforced floor.
func (c *Configuration) GetScanInterval() time.Duration {
	d, err := time.ParseDuration(c.ScanInterval)
	if err != nil {
		return 30 * time.Second
	}
	if d < minScanInterval {
		return minScanInterval
	}
	return d
}

// GetNetworkPause returns the inter-network pause, defaulting to 1s.
func (c *Configuration) GetNetworkPause() time.Duration {
	d, err := time.ParseDuration(c.NetworkPause)
	if err != nil {
		return 1 * time.Second
	}
	return d
}

// GetQueryConcurrency returns the query budget ceiling.
func (c *Configuration) GetQueryConcurrency() int {
	if c.QueryConcurrency <= 0 {
		return throttle.DefaultLimit
	}
	return c.QueryConcurrency
}

// GetMessageRequiredApprovals returns the stand-in required-approval count
// for messages, defaulting to 2.
func (c *Configuration) GetMessageRequiredApprovals() int {
	if c.MessageRequiredApprovals <= 0 {
		return 2
	}
	return c.MessageRequiredApprovals
}

// MonitoringConfig provides monitoring configuration.
type MonitoringConfig struct {
	// Enabled enables the monitoring system.
	Enabled bool `toml:"Enabled"`
	// Type is the type of monitoring system to use (beholder, noop).
	Type string `toml:"Type"`
	// Beholder is the configuration for the beholder client (not required if type is noop).
	Beholder BeholderConfig `toml:"Beholder"`
}

// BeholderConfig wraps OpenTelemetry configuration for the beholder client.
type BeholderConfig struct {
	// InsecureConnection disables TLS for the beholder client.
	InsecureConnection bool `toml:"InsecureConnection"`
	// CACertFile is the path to the CA certificate file for the beholder client.
	CACertFile string `toml:"CACertFile"`
	// OtelExporterGRPCEndpoint is the endpoint for the beholder client to export to the collector.
	OtelExporterGRPCEndpoint string `toml:"OtelExporterGRPCEndpoint"`
	// OtelExporterHTTPEndpoint is the endpoint for the beholder client to export to the collector.
	OtelExporterHTTPEndpoint string `toml:"OtelExporterHTTPEndpoint"`
	// LogStreamingEnabled enables log streaming to the collector.
	LogStreamingEnabled bool `toml:"LogStreamingEnabled"`
	// MetricReaderInterval is the interval to scrape metrics (in seconds).
	MetricReaderInterval int64 `toml:"MetricReaderInterval"`
	// TraceSampleRatio is the ratio of traces to sample.
	TraceSampleRatio float64 `toml:"TraceSampleRatio"`
	// TraceBatchTimeout is the timeout for a batch of traces.
	TraceBatchTimeout int64 `toml:"TraceBatchTimeout"`
}

// Validate performs validation on the monitoring configuration.
func (m *MonitoringConfig) Validate() error {
	if m.Enabled && m.Type == "" {
		return fmt.Errorf("monitoring type is required when monitoring is enabled")
	}

	if m.Enabled && m.Type == "beholder" {
		if err := m.Beholder.Validate(); err != nil {
			return fmt.Errorf("beholder config validation failed: %w", err)
		}
	}

	return nil
}

// Validate performs validation on the beholder configuration.
func (b *BeholderConfig) Validate() error {
	if b.MetricReaderInterval <= 0 {
		return fmt.Errorf("metric_reader_interval must be positive, got %d", b.MetricReaderInterval)
	}

	if b.TraceSampleRatio < 0 || b.TraceSampleRatio > 1 {
		return fmt.Errorf("trace_sample_ratio must be between 0 and 1, got %f", b.TraceSampleRatio)
	}

	if b.TraceBatchTimeout <= 0 {
		return fmt.Errorf("trace_batch_timeout must be positive, got %d", b.TraceBatchTimeout)
	}

	return nil
}
