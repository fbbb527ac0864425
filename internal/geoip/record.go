// Package geoip provides GeoIP enrichment for scanned hosts. It combines a
// provider client, a TTL cache with stale-read fallback, and a connection
// type classifier that labels each host by its network operator.
package geoip

// Record holds the enrichment result for a single IP address. Once built it
// is never mutated; cache refreshes replace the whole record.
type Record struct {
	ASN            string `json:"asn"`
	ISP            string `json:"isp"`
	Org            string `json:"org"`
	Country        string `json:"country"`
	City           string `json:"city"`
	Region         string `json:"region"`
	ConnectionType string `json:"connection_type"`
}

// EmptyRecord returns the well-defined fallback record used when a lookup
// fails and nothing is cached for the IP.
func EmptyRecord() Record {
	return Record{ConnectionType: ConnectionUnknown}
}
