package main

import (
	"fmt"
	"io"
	"net"
	"os"
	"strconv"

	"github.com/loykin/initup"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// createUpCommand creates the up subcommand, the container entrypoint path.
func createUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Run the bring-up sequence and hand off to the workload",
		Long: `Resolve the plan from the environment, start the configured dependency
services in order (each gated on a TCP readiness probe), optionally
prestart the primary workload against its control port, then replace this
process with the startup command.

On success this command does not return: the workload takes over as the
container's foreground process.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := initup.Resolve()
			if err != nil {
				return err
			}
			if err := initup.RegisterMetrics(); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "[init] warning: metrics registration failed: %v\n", err)
			}
			return initup.New(plan).Run(cmd.Context())
		},
	}
}

// createPlanCommand creates the plan subcommand.
func createPlanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Print the resolved bring-up plan without starting anything",
		Long: `Resolve the INITUP_* environment exactly as 'up' would and print the
resulting plan as a table. Nothing is spawned; configuration errors (for
example both prestart modes selected) surface here the same way.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := initup.Resolve()
			if err != nil {
				return err
			}
			printPlan(os.Stdout, plan)
			return nil
		},
	}
}

func printPlan(w io.Writer, plan *initup.Plan) {
	table := tablewriter.NewWriter(w)
	table.Header("Stage", "Name", "Command", "Probe", "Budget")

	for _, s := range plan.Services {
		addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
		budget := fmt.Sprintf("%d x %s", s.ProbeAttempts, s.ProbeInterval)
		table.Append([]string{"dependency", s.Name, s.CommandLine(), addr, budget})
	}

	p := plan.Primary
	if p.Mode != initup.ModeNone {
		addr := net.JoinHostPort(p.ControlHost, strconv.Itoa(p.ControlPort))
		table.Append([]string{"prestart (" + p.Mode.String() + ")", "primary", p.PrestartCommand, addr, p.Timeout.String()})
	}

	handoffCmd := p.Command
	if handoffCmd == "" {
		handoffCmd = "(not configured)"
	}
	table.Append([]string{"handoff", "primary", handoffCmd, "-", "-"})

	table.Render()
}
