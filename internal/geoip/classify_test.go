package geoip

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		isp      string
		org      string
		asn      string
		expected string
	}{
		{
			name:     "mobile carrier",
			isp:      "Verizon Wireless",
			org:      "Verizon",
			asn:      "AS701",
			expected: ConnectionMobile,
		},
		{
			name:     "mobile beats datacentre",
			isp:      "Mobile Cloud Services",
			org:      "Vodafone",
			asn:      "AS12345",
			expected: ConnectionMobile,
		},
		{
			name:     "datacentre beats fibre",
			isp:      "AWS Fiber Network",
			org:      "Amazon",
			asn:      "AS16509",
			expected: ConnectionDatacentre,
		},
		{
			name:     "hosting provider",
			isp:      "Hetzner Online GmbH",
			org:      "Hetzner",
			asn:      "AS24940",
			expected: ConnectionDatacentre,
		},
		{
			name:     "fibre provider",
			isp:      "CityFibre FTTH",
			org:      "CityFibre Ltd",
			asn:      "AS201576",
			expected: ConnectionFibre,
		},
		{
			name:     "dsl provider",
			isp:      "Deutsche Telekom VDSL",
			org:      "Telekom",
			asn:      "AS3320",
			expected: ConnectionDSL,
		},
		{
			name:     "keyword in asn field only",
			isp:      "",
			org:      "",
			asn:      "AS-HOSTING-1",
			expected: ConnectionDatacentre,
		},
		{
			name:     "no match",
			isp:      "Example ISP",
			org:      "Example Org",
			asn:      "AS1",
			expected: ConnectionUnknown,
		},
		{
			name:     "all empty",
			isp:      "",
			org:      "",
			asn:      "",
			expected: ConnectionUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.isp, tt.org, tt.asn))
		})
	}
}

func TestClassifyCaseInsensitive(t *testing.T) {
	upper := Classify("AWS", "AMAZON", "AS1")
	lower := Classify("aws", "amazon", "as1")

	assert.Equal(t, upper, lower)
	assert.Equal(t, ConnectionDatacentre, upper)
}

func TestClassifyPriorityOrder(t *testing.T) {
	// Every earlier category must win over every later one when keywords
	// from both appear in the same string.
	t.Run("mobile over datacentre", func(t *testing.T) {
		assert.Equal(t, ConnectionMobile, Classify("lte hosting", "", ""))
	})
	t.Run("datacentre over fibre", func(t *testing.T) {
		assert.Equal(t, ConnectionDatacentre, Classify("cloud fibre", "", ""))
	})
	t.Run("fibre over dsl", func(t *testing.T) {
		assert.Equal(t, ConnectionFibre, Classify("ftth dsl", "", ""))
	})
}
