// Command netsweep runs the recurring network scan exporter.
package main

import (
	"github.com/netsweep/netsweep/cmd/cli"
)

// Build information - set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildTime)
	cli.Execute()
}
