package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/netsweep/netsweep/internal/scanning"
)

var (
	scanPorts string
	scanArgs  string
)

var scanCmd = &cobra.Command{
	Use:   "scan [targets...]",
	Short: "Run a one-shot scan",
	Long: `Scan the given targets once and print the discovered services as a
table. Useful for verifying scan arguments and target reachability before
running the exporter.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVarP(&scanPorts, "ports", "p", "", "port specification (e.g. '22,80,443' or '1-1000')")
	scanCmd.Flags().StringVar(&scanArgs, "args", "-sV -Pn", "extra scan arguments")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	scanner := scanning.NewNmapScanner()

	result, err := scanner.Scan(cmd.Context(), args, scanPorts, scanArgs)
	if err != nil {
		return err
	}

	records := result.ServiceRecords()
	if len(records) == 0 {
		fmt.Println("No open services found.")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Host", "Port", "Protocol", "Service", "Product")
	for _, record := range records {
		_ = table.Append([]string{
			record.Host,
			strconv.Itoa(int(record.Port)),
			record.Protocol,
			record.Service,
			record.Product,
		})
	}
	_ = table.Render()

	fmt.Printf("\n%d hosts up, %d total, %.2fs elapsed\n",
		result.Stats.Up, result.Stats.Total, result.Stats.Elapsed)
	return nil
}
