package scanning

import (
	"context"
	"strings"

	"github.com/Ullaakut/nmap/v3"

	"github.com/netsweep/netsweep/internal/errors"
	"github.com/netsweep/netsweep/internal/logging"
)

// Scanner is the external scan capability: one call scans one batch of
// targets and returns structured per-host service records or fails.
type Scanner interface {
	Scan(ctx context.Context, targets []string, ports, args string) (*Result, error)
}

// NmapScanner runs scans through the nmap binary.
type NmapScanner struct{}

// NewNmapScanner creates a scanner backed by nmap.
func NewNmapScanner() *NmapScanner {
	return &NmapScanner{}
}

// Scan performs a single nmap invocation over the given targets. An empty
// ports string leaves port selection to nmap's defaults; args carries
// additional scan options as a whitespace-separated string.
func (s *NmapScanner) Scan(ctx context.Context, targets []string, ports, args string) (*Result, error) {
	options := buildScanOptions(targets, ports, args)

	scanner, err := nmap.NewScanner(ctx, options...)
	if err != nil {
		return nil, errors.WrapScanError(errors.CodeScanFailed, "failed to create scanner", err)
	}

	run, warnings, err := scanner.Run()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.WrapScanError(errors.CodeTimeout, "scan timed out", err)
		}
		return nil, errors.WrapScanError(errors.CodeScanFailed, "scanner execution failed", err)
	}

	if warnings != nil && len(*warnings) > 0 {
		logging.Warn("Scan completed with warnings", "warnings", *warnings)
	}

	return convertRun(run), nil
}

// buildScanOptions maps the target list, port spec, and argument string onto
// nmap options. Unknown argument tokens are ignored with a warning so a
// mistyped option degrades the scan instead of aborting the cycle.
func buildScanOptions(targets []string, ports, args string) []nmap.Option {
	options := []nmap.Option{
		nmap.WithTargets(targets...),
	}

	if ports != "" {
		options = append(options, nmap.WithPorts(ports))
	}

	for _, tok := range strings.Fields(args) {
		switch tok {
		case "-sT":
			options = append(options, nmap.WithConnectScan())
		case "-sS":
			options = append(options, nmap.WithSYNScan())
		case "-sV":
			options = append(options, nmap.WithServiceInfo())
		case "-Pn":
			options = append(options, nmap.WithSkipHostDiscovery())
		case "-T2":
			options = append(options, nmap.WithTimingTemplate(nmap.TimingPolite))
		case "-T3":
			options = append(options, nmap.WithTimingTemplate(nmap.TimingNormal))
		case "-T4":
			options = append(options, nmap.WithTimingTemplate(nmap.TimingAggressive))
		case "-O":
			options = append(options, nmap.WithOSDetection())
		default:
			logging.Warn("Ignoring unsupported scan argument", "arg", tok)
		}
	}

	return options
}

// convertRun converts nmap output to the internal result format.
func convertRun(run *nmap.Run) *Result {
	result := &Result{
		Stats: Stats{
			Up:      run.Stats.Hosts.Up,
			Down:    run.Stats.Hosts.Down,
			Total:   run.Stats.Hosts.Total,
			Elapsed: float64(run.Stats.Finished.Elapsed),
		},
	}

	result.Hosts = make([]Host, 0, len(run.Hosts))
	for i := range run.Hosts {
		if host := convertHost(&run.Hosts[i]); host != nil {
			result.Hosts = append(result.Hosts, *host)
		}
	}
	return result
}

// convertHost converts a single nmap host to the internal format.
func convertHost(h *nmap.Host) *Host {
	if len(h.Addresses) == 0 {
		return nil
	}

	host := &Host{
		Address: h.Addresses[0].Addr,
		Status:  h.Status.State,
		Ports:   make([]Port, 0, len(h.Ports)),
	}
	if len(h.Hostnames) > 0 {
		host.Hostname = h.Hostnames[0].Name
	}

	for j := range h.Ports {
		p := &h.Ports[j]
		host.Ports = append(host.Ports, Port{
			Number:   p.ID,
			Protocol: p.Protocol,
			State:    p.State.State,
			Service:  p.Service.Name,
			Product:  p.Service.Product,
			Version:  p.Service.Version,
		})
	}

	return host
}
