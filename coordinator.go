package vaultsentry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/smartcontractkit/chainlink-common/pkg/logger"
	"golang.org/x/sync/errgroup"

	"github.com/vaultsentry/vaultsentry/pkg/clientset"
	"github.com/vaultsentry/vaultsentry/pkg/policy"
	"github.com/vaultsentry/vaultsentry/pkg/throttle"
	"github.com/vaultsentry/vaultsentry/types"
)

// Status is the operator-facing snapshot of the coordinator.
type Status struct {
	Running         bool
	OperatorAddress *common.Address
	EnabledNetworks []types.Network
	VaultAddress    common.Address
	ScanInterval    time.Duration
}

// Coordinator owns the scan lifecycle: it initializes the per-network clients
// once, runs an immediate scan on start, and keeps scanning on a fixed
// cadence until stopped. Stopping never interrupts an in-flight cycle.
type Coordinator struct {
	lggr       logger.Logger
	cfg        *Configuration
	signer     HashSigner
	monitoring Monitoring
	apiKey     string

	engine   *policy.Engine
	throttle *throttle.Throttle

	mu      sync.Mutex
	running bool
	scanner Scanner
	clients *clientset.Set
	stopCh  chan struct{}
	wg      sync.WaitGroup

	// scanMu serializes scan cycles across the periodic trigger and
	// TriggerScan.
	scanMu sync.Mutex
}

// Option is a functional option for Coordinator.
type Option func(*Coordinator)

func WithLogger(lggr logger.Logger) Option {
	return func(c *Coordinator) {
		c.lggr = lggr
	}
}

func WithConfiguration(cfg *Configuration) Option {
	return func(c *Coordinator) {
		c.cfg = cfg
	}
}

func WithSigner(hashSigner HashSigner) Option {
	return func(c *Coordinator) {
		c.signer = hashSigner
	}
}

func WithMonitoring(monitoring Monitoring) Option {
	return func(c *Coordinator) {
		c.monitoring = monitoring
	}
}

// WithAPICredential sets the shared transaction-service credential.
func WithAPICredential(apiKey string) Option {
	return func(c *Coordinator) {
		c.apiKey = apiKey
	}
}

// WithScanner injects a prebuilt scanner, skipping client-set initialization
// on Start. Used by tests.
func WithScanner(scanner Scanner) Option {
	return func(c *Coordinator) {
		c.scanner = scanner
	}
}

func NewCoordinator(options ...Option) (*Coordinator, error) {
	c := &Coordinator{}
	for _, opt := range options {
		opt(c)
	}

	var errs []error
	if c.lggr == nil {
		errs = append(errs, fmt.Errorf("logger is not set"))
	}
	if c.cfg == nil {
		errs = append(errs, fmt.Errorf("configuration is not set"))
	}
	if c.signer == nil {
		errs = append(errs, fmt.Errorf("signer is not set"))
	}
	if c.monitoring == nil {
		errs = append(errs, fmt.Errorf("monitoring is not set"))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	th, err := throttle.New(c.cfg.GetQueryConcurrency())
	if err != nil {
		return nil, err
	}
	c.throttle = th
	c.engine = policy.NewEngine(c.cfg.TrustedTargets())

	return c, nil
}

// Policy exposes the engine for runtime rule additions and removals.
func (c *Coordinator) Policy() *policy.Engine {
	return c.engine
}

// Start transitions stopped -> running: one-time client initialization, an
// immediate first scan, then the periodic trigger. Calling Start while
// running is a logged no-op.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		c.lggr.Infow("coordinator already running, ignoring start")
		return nil
	}

	if c.scanner == nil {
		set, err := clientset.Initialize(ctx, c.lggr, c.cfg.EnabledNetworks(), c.apiKey)
		if err != nil {
			c.mu.Unlock()
			return fmt.Errorf("network client initialization failed: %w", err)
		}

		entries := make([]NetworkEntry, 0, len(set.All()))
		for _, clients := range set.All() {
			entries = append(entries, NetworkEntry{
				Network: clients.Network,
				Service: clients.TxService,
			})
		}

		orchestrator, err := NewScanOrchestrator(
			c.lggr,
			entries,
			c.engine,
			c.throttle,
			c.signer,
			c.cfg.Vault(),
			c.cfg.GetNetworkPause(),
			c.cfg.GetMessageRequiredApprovals(),
			c.monitoring,
		)
		if err != nil {
			set.Close()
			c.mu.Unlock()
			return err
		}
		c.clients = set
		c.scanner = orchestrator
	}

	c.running = true
	c.stopCh = make(chan struct{})
	c.wg.Add(1)
	go c.run(ctx, c.stopCh)
	c.mu.Unlock()

	c.lggr.Infow("coordinator started",
		"operator", c.signer.Address().Hex(),
		"vault", c.cfg.Vault().Hex(),
		"scanInterval", c.cfg.GetScanInterval(),
	)

	// First scan happens before Start returns.
	c.runCycle(ctx)
	return nil
}

// Stop transitions running -> stopped. The periodic trigger is cancelled;
// an in-flight cycle is allowed to finish. Calling Stop while stopped is a
// no-op.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		c.lggr.Infow("coordinator not running, ignoring stop")
		return
	}
	c.running = false
	close(c.stopCh)
	c.mu.Unlock()

	c.wg.Wait()
	c.lggr.Infow("coordinator stopped")
}

// TriggerScan runs one cycle immediately, outside the periodic cadence. The
// next periodic firing time is unaffected. Only valid while running.
func (c *Coordinator) TriggerScan(ctx context.Context) (txProcessed, msgProcessed int, err error) {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return 0, 0, fmt.Errorf("coordinator is not running")
	}
	c.mu.Unlock()

	txProcessed, msgProcessed = c.runCycle(ctx)
	return txProcessed, msgProcessed, nil
}

// IsRunning returns whether the coordinator is running.
func (c *Coordinator) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// GetStatus returns the operator-facing snapshot.
func (c *Coordinator) GetStatus() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	networks := c.cfg.EnabledNetworks()
	sort.Slice(networks, func(i, j int) bool {
		return networks[i].ChainID < networks[j].ChainID
	})

	operator := c.signer.Address()
	return Status{
		Running:         c.running,
		OperatorAddress: &operator,
		EnabledNetworks: networks,
		VaultAddress:    c.cfg.Vault(),
		ScanInterval:    c.cfg.GetScanInterval(),
	}
}

// GetVaultInfoForAllNetworks fetches the vault metadata from every enabled
// network concurrently, inside the shared query budget. Per-network failures
// are reported in the result, not returned as an error.
func (c *Coordinator) GetVaultInfoForAllNetworks(ctx context.Context) ([]types.NetworkVaultInfo, error) {
	c.mu.Lock()
	clients := c.clients
	c.mu.Unlock()
	if clients == nil {
		return nil, fmt.Errorf("network clients are not initialized, call Start first")
	}

	all := clients.All()
	results := make([]types.NetworkVaultInfo, len(all))
	g, gctx := errgroup.WithContext(ctx)
	for i, nc := range all {
		g.Go(func() error {
			var info *types.VaultInfo
			err := c.throttle.Do(gctx, func() error {
				var fetchErr error
				info, fetchErr = nc.TxService.FetchVaultInfo(gctx, c.cfg.Vault())
				return fetchErr
			})
			results[i] = types.NetworkVaultInfo{Network: nc.Network, Info: info, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

func (c *Coordinator) run(ctx context.Context, stopCh chan struct{}) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.GetScanInterval())
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			c.lggr.Infow("coordinator context done, run loop exiting")
			return
		case <-ticker.C:
			c.runCycle(ctx)
		}
	}
}

func (c *Coordinator) runCycle(ctx context.Context) (int, int) {
	c.scanMu.Lock()
	defer c.scanMu.Unlock()
	return c.scanner.ScanAndProcess(ctx)
}
