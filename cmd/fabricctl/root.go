package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vnykmshr/gofabric/internal/config"
	"github.com/vnykmshr/gofabric/internal/logging"
	"github.com/vnykmshr/gofabric/pkg/fabric"
	"github.com/vnykmshr/gofabric/pkg/metrics"
)

// app holds the state shared by subcommands once flags are parsed.
type app struct {
	cfg        *config.Configuration
	logger     *zap.Logger
	registry   *prometheus.Registry
	metrics    *metrics.Registry
	restoreLog func()
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "fabricctl",
		Short:        "Run workloads on a gofabric task runtime",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.teardown()
		},
	}
	config.BindFlags(root.PersistentFlags())

	root.AddCommand(
		newComputeCommand(a),
		newPipelineCommand(a),
		newServeCommand(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.restoreLog = logging.Install(logger)
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.NewRegistry(a.registry)
	return nil
}

func (a *app) teardown() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if a.restoreLog != nil {
		a.restoreLog()
	}
}

func (a *app) newFabric() (*fabric.Fabric, error) {
	f, err := fabric.New(a.cfg.FabricConfig(a.logger, a.metrics))
	if err != nil {
		return nil, fmt.Errorf("create fabric: %w", err)
	}
	return f, nil
}
