// Package metrics provides the Prometheus exposition sink for scan results.
// Metric names and label sets are a compatibility contract with existing
// dashboards; they must not change between releases.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Sink is the metrics surface the exporter writes into. It abstracts the
// Prometheus registry so cycle logic can be tested against a fake.
type Sink interface {
	ResetServices()
	SetServiceGauge(host, target, protocol, name, product string, port uint16)
	SetEnrichedServiceGauge(host, target, protocol, name, product,
		isp, asn, country, city, connectionType string, port uint16)
	SetInfo(timeElapsed float64, upHosts, downHosts, totalHosts int)
	IncSuccessfulScans()
	IncFailedScans()
	SetTargetCount(n int)
	SetScanDuration(seconds float64)
}

// PrometheusSink holds all exporter metric collectors on a private registry.
type PrometheusSink struct {
	registry *prometheus.Registry

	scanResults      *prometheus.GaugeVec
	scanResultsGeoIP *prometheus.GaugeVec
	scanStats        *prometheus.GaugeVec
	targetCount      prometheus.Gauge
	scanDuration     prometheus.Gauge
	failedScans      prometheus.Counter
	successfulScans  prometheus.Counter
}

// NewPrometheusSink creates the sink with all collectors registered.
func NewPrometheusSink() *PrometheusSink {
	registry := prometheus.NewRegistry()

	sink := &PrometheusSink{
		registry: registry,
		scanResults: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nmap_scan_results",
				Help: "Holds the scanned result",
			},
			[]string{"host", "target", "protocol", "name", "product_detected"},
		),
		scanResultsGeoIP: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nmap_scan_results_geoip",
				Help: "Holds the scanned result with GeoIP metadata",
			},
			[]string{
				"host", "target", "protocol", "name", "product_detected",
				"isp", "asn", "country", "city", "connection_type",
			},
		),
		scanStats: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nmap_scan_stats",
				Help: "Holds details about the scan",
			},
			[]string{"time_elapsed", "uphosts", "downhosts", "totalhosts"},
		),
		targetCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "nmap_target_count",
				Help: "Number of targets discovered for scanning",
			},
		),
		scanDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "nmap_scan_duration_seconds",
				Help: "Duration of the last scan in seconds",
			},
		),
		failedScans: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "nmap_failed_scans_total",
				Help: "Total number of failed scan batches",
			},
		),
		successfulScans: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "nmap_successful_scans_total",
				Help: "Total number of successful scan batches",
			},
		),
	}

	registry.MustRegister(
		sink.scanResults,
		sink.scanResultsGeoIP,
		sink.scanStats,
		sink.targetCount,
		sink.scanDuration,
		sink.failedScans,
		sink.successfulScans,
	)

	// Standard Go and process collectors for runtime visibility.
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return sink
}

// Registry returns the Prometheus registry for the HTTP handler.
func (s *PrometheusSink) Registry() *prometheus.Registry {
	return s.registry
}

// ResetServices clears the per-service gauges so services that closed since
// the last cycle stop being reported.
func (s *PrometheusSink) ResetServices() {
	s.scanResults.Reset()
	s.scanResultsGeoIP.Reset()
}

// SetServiceGauge records one discovered service.
func (s *PrometheusSink) SetServiceGauge(host, target, protocol, name, product string, port uint16) {
	s.scanResults.WithLabelValues(host, target, protocol, name, product).Set(float64(port))
}

// SetEnrichedServiceGauge records one discovered service with its GeoIP
// metadata labels.
func (s *PrometheusSink) SetEnrichedServiceGauge(host, target, protocol, name, product,
	isp, asn, country, city, connectionType string, port uint16) {
	s.scanResultsGeoIP.WithLabelValues(
		host, target, protocol, name, product,
		isp, asn, country, city, connectionType,
	).Set(float64(port))
}

// SetInfo publishes aggregate scan statistics as an info-style gauge: the
// values ride in the labels and the sample is fixed at 1.
func (s *PrometheusSink) SetInfo(timeElapsed float64, upHosts, downHosts, totalHosts int) {
	s.scanStats.Reset()
	s.scanStats.WithLabelValues(
		strconv.FormatFloat(timeElapsed, 'f', 2, 64),
		strconv.Itoa(upHosts),
		strconv.Itoa(downHosts),
		strconv.Itoa(totalHosts),
	).Set(1)
}

// IncSuccessfulScans increments the successful batch counter.
func (s *PrometheusSink) IncSuccessfulScans() {
	s.successfulScans.Inc()
}

// IncFailedScans increments the failed batch counter.
func (s *PrometheusSink) IncFailedScans() {
	s.failedScans.Inc()
}

// SetTargetCount records the size of the resolved target set.
func (s *PrometheusSink) SetTargetCount(n int) {
	s.targetCount.Set(float64(n))
}

// SetScanDuration records the wall-clock duration of the last cycle.
func (s *PrometheusSink) SetScanDuration(seconds float64) {
	s.scanDuration.Set(seconds)
}
