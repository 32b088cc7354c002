package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		// Diagnostics carry the [init] stage prefix; exit code 1 covers
		// config errors, readiness timeouts and missing toolchains alike.
		_, _ = fmt.Fprintf(os.Stderr, "[init] %v\n", err)
		os.Exit(1)
	}
}

// buildRoot creates the root command. All configuration comes from the
// INITUP_* environment, so there are no persistent flags to speak of.
func buildRoot() *cobra.Command {
	root := &cobra.Command{
		Use:   "initup",
		Short: "One-shot container bootstrap orchestrator",
		Long: `initup is a one-shot bring-up sequencer for containers: it starts
auxiliary dependency services gated on TCP readiness probes, optionally
prestarts the primary workload in the background so a control client can
attach to it, and finally replaces itself with the workload as the
container's main process.

All configuration is read from INITUP_* environment variables.

Examples:
  INITUP_STARTUP_CMD="run-app" initup up
  INITUP_START_STORE=1 INITUP_STARTUP_CMD="run-app" initup up
  INITUP_PRESTART_SERVER=1 INITUP_STARTUP_CMD="run-app attach" initup up
  initup plan`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		createUpCommand(),
		createPlanCommand(),
	)
	return root
}
