// Package exporter drives the recurring scan cycle: resolve targets, scan
// them in batches, enrich discovered hosts with GeoIP metadata, and publish
// the results as Prometheus metrics.
package exporter

import (
	"context"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/netsweep/netsweep/internal/config"
	"github.com/netsweep/netsweep/internal/geoip"
	"github.com/netsweep/netsweep/internal/logging"
	"github.com/netsweep/netsweep/internal/metrics"
	"github.com/netsweep/netsweep/internal/scanning"
	"github.com/netsweep/netsweep/internal/scheduler"
	"github.com/netsweep/netsweep/internal/targets"
)

// Exporter owns one scan pipeline and runs it on a fixed interval.
type Exporter struct {
	cfg       *config.Config
	resolver  targets.Resolver
	scheduler *scheduler.BatchScheduler
	enricher  *geoip.Enricher
	sink      metrics.Sink
	logger    *logging.Logger
}

// New wires an exporter from its collaborators. The enricher may be nil when
// GeoIP enrichment is disabled.
func New(cfg *config.Config, resolver targets.Resolver, scanner scanning.Scanner,
	enricher *geoip.Enricher, sink metrics.Sink) *Exporter {
	return &Exporter{
		cfg:      cfg,
		resolver: resolver,
		scheduler: scheduler.New(scheduler.Config{
			BatchSize:      cfg.Scanning.BatchSize,
			MaxConcurrency: cfg.Scanning.MaxConcurrency,
			Ports:          cfg.Scanning.Ports,
			Args:           cfg.Scanning.Args,
		}, scanner),
		enricher: enricher,
		sink:     sink,
		logger:   logging.Default().WithComponent("exporter"),
	}
}

// Run executes scan cycles until the context is canceled. A cycle error is
// fatal: the exporter reports it rather than silently serving stale metrics.
func (e *Exporter) Run(ctx context.Context) error {
	for {
		if err := e.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		e.logger.Info("Sleeping until next cycle", "interval", e.cfg.Scanning.Interval)
		timer := time.NewTimer(e.cfg.Scanning.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// RunOnce executes a single scan cycle.
func (e *Exporter) RunOnce(ctx context.Context) error {
	cycleID := uuid.New().String()
	logger := e.logger.WithCycleID(cycleID)
	start := time.Now()

	logger.Info("Starting scan cycle")

	targetSet, err := e.resolver.Resolve(ctx)
	if err != nil {
		return err
	}
	e.sink.SetTargetCount(len(targetSet))

	// An empty set only updates the target count; the previous cycle's
	// service gauges and stats stay exposed so a transient resolution
	// hiccup does not blank the exposition.
	if len(targetSet) == 0 {
		logger.Warn("No targets resolved, skipping scan")
		e.sink.SetScanDuration(time.Since(start).Seconds())
		return nil
	}

	outcomes, stats := e.scheduler.Run(ctx, targetSet)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	merged := &scanning.Result{}
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			e.sink.IncFailedScans()
			continue
		}
		e.sink.IncSuccessfulScans()
		merged.Merge(outcome.Result)
	}

	var enriched map[string]geoip.Record
	if e.enricher != nil {
		if upHosts := merged.UpHosts(); len(upHosts) > 0 {
			logger.Info("Enriching hosts with GeoIP data", "hosts", len(upHosts))
			enriched = e.enricher.EnrichBatch(ctx, upHosts)
		}
	}

	e.emit(targetSet, merged, enriched)

	e.sink.SetInfo(merged.Stats.Elapsed, merged.Stats.Up, merged.Stats.Down, merged.Stats.Total)
	e.sink.SetScanDuration(time.Since(start).Seconds())

	logger.Info("Scan cycle complete",
		"targets", stats.TargetCount,
		"batches", stats.BatchCount,
		"successful", stats.SuccessCount,
		"failed", stats.FailCount,
		"hosts_up", merged.Stats.Up,
		"duration", time.Since(start))
	return nil
}

// emit publishes per-service gauges, replacing the previous cycle's set so
// closed services disappear from the exposition.
func (e *Exporter) emit(targetSet []string, result *scanning.Result, enriched map[string]geoip.Record) {
	targetByAddress := mapAddressesToTargets(targetSet, result)

	e.sink.ResetServices()
	for _, record := range result.ServiceRecords() {
		target := record.Host
		if original, ok := targetByAddress[record.Host]; ok {
			target = original
		}

		e.sink.SetServiceGauge(record.Host, target, record.Protocol,
			record.Service, record.Product, record.Port)

		if geo, ok := enriched[record.Host]; ok {
			e.sink.SetEnrichedServiceGauge(record.Host, target, record.Protocol,
				record.Service, record.Product,
				geo.ISP, geo.ASN, geo.Country, geo.City, geo.ConnectionType,
				record.Port)
		}
	}
}

// mapAddressesToTargets maps scanned addresses back to the hostname targets
// they resolved from, so the target label reflects what the operator
// configured. Addresses scanned directly map to themselves.
func mapAddressesToTargets(targetSet []string, result *scanning.Result) map[string]string {
	hostnames := make(map[string]struct{})
	for _, target := range targetSet {
		if net.ParseIP(target) == nil {
			hostnames[target] = struct{}{}
		}
	}
	if len(hostnames) == 0 {
		return nil
	}

	byAddress := make(map[string]string)
	for _, host := range result.Hosts {
		if host.Hostname == "" {
			continue
		}
		if _, ok := hostnames[host.Hostname]; ok {
			byAddress[host.Address] = host.Hostname
		}
	}
	return byAddress
}
