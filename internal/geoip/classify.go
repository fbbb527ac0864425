package geoip

import (
	"strings"
)

// Connection type categories assigned by Classify.
const (
	ConnectionMobile     = "mobile"
	ConnectionDatacentre = "datacentre"
	ConnectionFibre      = "fibre"
	ConnectionDSL        = "dsl"
	ConnectionUnknown    = "unknown"
)

// classifyRule pairs a category with the keywords that select it.
type classifyRule struct {
	category string
	keywords []string
}

// classifyRules is evaluated in order; the first rule with a matching
// keyword wins. The ordering is a behavioral contract: an operator string
// containing both a mobile and a datacentre keyword classifies as mobile.
var classifyRules = []classifyRule{
	{ConnectionMobile, []string{
		"mobile", "lte", "4g", "5g", "cellular", "wireless",
		"vodafone", "t-mobile", "verizon", "at&t", "att",
	}},
	{ConnectionDatacentre, []string{
		"aws", "amazon", "azure", "microsoft", "google cloud", "gcp",
		"hetzner", "ovh", "digitalocean", "linode", "vultr",
		"datacentre", "datacenter", "hosting", "cloud",
	}},
	{ConnectionFibre, []string{"fiber", "fibre", "ftth", "fttp"}},
	{ConnectionDSL, []string{"dsl", "vdsl", "adsl", "broadband"}},
}

// Classify maps free-text network identity strings to a connection type
// category. Matching is substring based and case-insensitive over the
// concatenation of all three fields.
func Classify(isp, org, asn string) string {
	combined := strings.ToLower(isp + " " + org + " " + asn)
	for _, rule := range classifyRules {
		for _, kw := range rule.keywords {
			if strings.Contains(combined, kw) {
				return rule.category
			}
		}
	}
	return ConnectionUnknown
}
