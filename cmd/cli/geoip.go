package cli

import (
	"encoding/json"
	"fmt"
	"net"
	"os"

	"github.com/spf13/cobra"

	"github.com/netsweep/netsweep/internal/errors"
	"github.com/netsweep/netsweep/internal/geoip"
)

var geoipToken string

var geoipCmd = &cobra.Command{
	Use:   "geoip [ip...]",
	Short: "Look up GeoIP metadata for IP addresses",
	Long: `Fetch GeoIP metadata for the given IP addresses and print the
classified records as JSON. Uses the same provider and classification rules
as the exporter's enrichment path.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGeoIP,
}

func init() {
	geoipCmd.Flags().StringVar(&geoipToken, "token", "", "provider API token")
	rootCmd.AddCommand(geoipCmd)
}

func runGeoIP(cmd *cobra.Command, args []string) error {
	for _, arg := range args {
		if net.ParseIP(arg) == nil {
			return errors.NewConfigFieldError(errors.CodeValidation,
				fmt.Sprintf("not a valid IP address: %s", arg), "ip", arg)
		}
	}

	client := geoip.NewClient("", geoipToken)
	enricher := geoip.NewEnricher(client, geoip.FetchTimeout)

	records := enricher.EnrichBatch(cmd.Context(), args)

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(records)
}
