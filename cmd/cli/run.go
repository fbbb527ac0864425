package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/netsweep/netsweep/internal/config"
	"github.com/netsweep/netsweep/internal/errors"
	"github.com/netsweep/netsweep/internal/exporter"
	"github.com/netsweep/netsweep/internal/geoip"
	"github.com/netsweep/netsweep/internal/logging"
	"github.com/netsweep/netsweep/internal/metrics"
	"github.com/netsweep/netsweep/internal/scanning"
	"github.com/netsweep/netsweep/internal/server"
	"github.com/netsweep/netsweep/internal/targets"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the exporter",
	Long: `Run the recurring scan loop and serve Prometheus metrics.

Targets are resolved at the start of every cycle, scanned in bounded
concurrent batches, and published on the metrics endpoint. The loop runs
until interrupted.`,
	RunE: runExporter,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runExporter(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	resolver, err := newResolver(cfg)
	if err != nil {
		return err
	}

	var enricher *geoip.Enricher
	if cfg.GeoIP.Enabled {
		client := geoip.NewClient("", cfg.GeoIP.Token)
		enricher = geoip.NewEnricher(client, cfg.GeoIP.CacheTTL)
	}

	sink := metrics.NewPrometheusSink()
	exp := exporter.New(cfg, resolver, scanning.NewNmapScanner(), enricher, sink)
	srv := server.New(cfg.ListenAddress(), sink, enricher)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info("Starting netsweep",
		"version", version,
		"address", cfg.ListenAddress(),
		"source", cfg.Targets.Source,
		"interval", cfg.Scanning.Interval,
		"geoip", cfg.GeoIP.Enabled)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return srv.Start(groupCtx)
	})
	group.Go(func() error {
		return exp.Run(groupCtx)
	})

	if err := group.Wait(); err != nil {
		logging.Error("Exporter stopped with error", "error", err)
		return err
	}

	logging.Info("Exporter stopped")
	return nil
}

// newResolver builds the target resolver selected by the configuration.
func newResolver(cfg *config.Config) (targets.Resolver, error) {
	switch cfg.Targets.Source {
	case "file":
		return targets.NewFileResolver(cfg.Targets.File), nil
	case "static":
		return targets.NewStaticResolver(cfg.Targets.Static), nil
	case "aws":
		return targets.NewAWSResolver(cfg.Targets.AWSCredentials)
	case "azure":
		return targets.NewAzureResolver(cfg.Targets.AzureCredentials)
	default:
		return nil, errors.NewConfigFieldError(errors.CodeValidation,
			fmt.Sprintf("unknown target source: %s", cfg.Targets.Source),
			"targets.source", cfg.Targets.Source)
	}
}
