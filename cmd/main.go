package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/smartcontractkit/chainlink-common/pkg/beholder"
	"github.com/smartcontractkit/chainlink-common/pkg/logger"

	"github.com/vaultsentry/vaultsentry"
	"github.com/vaultsentry/vaultsentry/internal/monitoring"
	"github.com/vaultsentry/vaultsentry/pkg/signer"
)

const (
	defaultConfigFile = "vaultsentry.toml"

	configPathEnvVar = "VAULTSENTRY_CONFIG_PATH"
	privateKeyEnvVar = "VAULTSENTRY_OPERATOR_PRIVATE_KEY"
	apiKeyEnvVar     = "VAULTSENTRY_SERVICE_API_KEY"
)

func main() {
	configPath := defaultConfigFile
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	if envConfig := os.Getenv(configPathEnvVar); envConfig != "" {
		configPath = envConfig
	}

	lggr, err := logger.NewWith(func(config *zap.Config) {
		config.Development = true
		config.Encoding = "console"
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	lggr = logger.Sugared(logger.Named(lggr, "vaultsentry"))

	cfg, err := vaultsentry.LoadConfiguration(configPath)
	if err != nil {
		lggr.Errorw("Failed to load configuration", "path", configPath, "error", err)
		os.Exit(1)
	}

	privateKey := os.Getenv(privateKeyEnvVar)
	if privateKey == "" {
		lggr.Errorf("Environment variable %s is not set", privateKeyEnvVar)
		os.Exit(1)
	}
	operatorSigner, err := signer.NewFromHex(privateKey)
	if err != nil {
		lggr.Errorw("Failed to load operator key", "error", err)
		os.Exit(1)
	}

	var mon vaultsentry.Monitoring
	if cfg.Monitoring.Enabled && cfg.Monitoring.Type == "beholder" {
		mon, err = monitoring.InitMonitoring(beholder.Config{
			InsecureConnection:       cfg.Monitoring.Beholder.InsecureConnection,
			CACertFile:               cfg.Monitoring.Beholder.CACertFile,
			OtelExporterHTTPEndpoint: cfg.Monitoring.Beholder.OtelExporterHTTPEndpoint,
			OtelExporterGRPCEndpoint: cfg.Monitoring.Beholder.OtelExporterGRPCEndpoint,
			LogStreamingEnabled:      cfg.Monitoring.Beholder.LogStreamingEnabled,
			MetricReaderInterval:     time.Second * time.Duration(cfg.Monitoring.Beholder.MetricReaderInterval),
			TraceSampleRatio:         cfg.Monitoring.Beholder.TraceSampleRatio,
			TraceBatchTimeout:        time.Second * time.Duration(cfg.Monitoring.Beholder.TraceBatchTimeout),
		})
		if err != nil {
			lggr.Errorw("Failed to initialize monitoring", "error", err)
			os.Exit(1)
		}
	} else {
		lggr.Info("Using noop monitoring")
		mon = monitoring.NewNoopMonitoring()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	coordinator, err := vaultsentry.NewCoordinator(
		vaultsentry.WithLogger(lggr),
		vaultsentry.WithConfiguration(cfg),
		vaultsentry.WithSigner(operatorSigner),
		vaultsentry.WithMonitoring(mon),
		vaultsentry.WithAPICredential(os.Getenv(apiKeyEnvVar)),
	)
	if err != nil {
		lggr.Errorw("Failed to create coordinator", "error", err)
		os.Exit(1)
	}

	if err := coordinator.Start(ctx); err != nil {
		lggr.Errorw("Failed to start coordinator", "error", err)
		os.Exit(1)
	}

	<-sigCh
	lggr.Infow("Shutdown signal received, stopping")
	coordinator.Stop()
	lggr.Infow("Stopped gracefully")
}
