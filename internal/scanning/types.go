// Package scanning wraps the external nmap capability behind a small
// interface. It converts nmap output into the internal host, port, and
// service record types consumed by the exporter.
package scanning

// Port represents a single scanned port on a host.
type Port struct {
	Number   uint16
	Protocol string
	State    string
	Service  string
	Product  string
	Version  string
}

// Host represents one scanned host with its discovered ports.
type Host struct {
	Address  string
	Hostname string
	Status   string
	Ports    []Port
}

// Stats summarizes a scan run.
type Stats struct {
	Up      int
	Down    int
	Total   int
	Elapsed float64
}

// Result holds the outcome of one scan invocation.
type Result struct {
	Hosts []Host
	Stats Stats
}

// ServiceRecord is one discovered open service, flattened for metric
// emission.
type ServiceRecord struct {
	Host     string
	Protocol string
	Port     uint16
	Service  string
	Product  string
}

// ServiceRecords flattens the result into one record per open port on each
// up host.
func (r *Result) ServiceRecords() []ServiceRecord {
	var records []ServiceRecord
	for _, host := range r.Hosts {
		if host.Status != "up" {
			continue
		}
		for _, port := range host.Ports {
			if port.State != "open" {
				continue
			}
			records = append(records, ServiceRecord{
				Host:     host.Address,
				Protocol: port.Protocol,
				Port:     port.Number,
				Service:  port.Service,
				Product:  port.Product,
			})
		}
	}
	return records
}

// UpHosts returns the distinct addresses of hosts reported up, in result
// order.
func (r *Result) UpHosts() []string {
	seen := make(map[string]struct{}, len(r.Hosts))
	var addrs []string
	for _, host := range r.Hosts {
		if host.Status != "up" {
			continue
		}
		if _, ok := seen[host.Address]; ok {
			continue
		}
		seen[host.Address] = struct{}{}
		addrs = append(addrs, host.Address)
	}
	return addrs
}

// Merge accumulates another result into this one, summing stats.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.Hosts = append(r.Hosts, other.Hosts...)
	r.Stats.Up += other.Stats.Up
	r.Stats.Down += other.Stats.Down
	r.Stats.Total += other.Stats.Total
	r.Stats.Elapsed += other.Stats.Elapsed
}
